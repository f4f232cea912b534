package points

import (
	"testing"
	"time"

	"ecopoints/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	testCases := []struct {
		name    string
		amount  string
		want    float64
		wantErr bool
	}{
		{name: "integer with unit", amount: "10 kg", want: 10},
		{name: "decimal with unit", amount: "3.5 kg", want: 3.5},
		{name: "unit first", amount: "kg 7", want: 7},
		{name: "bare number", amount: "42", want: 42},
		{name: "leading dot", amount: ".5kg", want: 0.5},
		{name: "negative", amount: "-2 kg", want: -2},
		{name: "two dots keeps prefix", amount: "1.5.2 kg", want: 1.5},
		{name: "no digits", amount: "a lot", wantErr: true},
		{name: "empty", amount: "", wantErr: true},
		{name: "lone minus", amount: "- kg", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseAmount(tc.amount)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidAmount)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestReportPoints(t *testing.T) {
	assert.InDelta(t, 1.0, ReportPoints(10), 1e-9)
	assert.InDelta(t, 0.1225, ReportPoints(3.5), 1e-9)
	assert.InDelta(t, 10000.0, ReportPoints(1000), 1e-9)
	assert.Equal(t, 0.0, ReportPoints(0))
}

func TestCollectionRewardBounds(t *testing.T) {
	assert.Equal(t, 10, CollectionReward(func(int) int { return 0 }))
	assert.Equal(t, 59, CollectionReward(func(n int) int { return n - 1 }))

	var gotSpan int
	CollectionReward(func(n int) int { gotSpan = n; return 0 })
	assert.Equal(t, 50, gotSpan)
}

func TestLeadingQuantity(t *testing.T) {
	assert.Equal(t, 12.5, LeadingQuantity("about 12.5 kg"))
	assert.Equal(t, 3.0, LeadingQuantity("3 bags"))
	assert.Equal(t, 0.0, LeadingQuantity("unknown"))
}

func TestBalance(t *testing.T) {
	testCases := []struct {
		name string
		txs  []models.Transaction
		want float64
	}{
		{name: "empty ledger", want: 0},
		{
			name: "earned only",
			txs: []models.Transaction{
				{Type: models.TxEarnedReport, Amount: 1},
				{Type: models.TxEarnedCollect, Amount: 25},
			},
			want: 26,
		},
		{
			name: "earned minus redeemed",
			txs: []models.Transaction{
				{Type: models.TxEarnedReport, Amount: 0.1225},
				{Type: models.TxEarnedCollect, Amount: 10},
				{Type: models.TxRedeemed, Amount: 5},
			},
			want: 5.1225,
		},
		{
			name: "floored at zero",
			txs: []models.Transaction{
				{Type: models.TxEarnedReport, Amount: 1},
				{Type: models.TxRedeemed, Amount: 30},
			},
			want: 0,
		},
		{
			name: "unknown types ignored",
			txs: []models.Transaction{
				{Type: models.TxEarnedReport, Amount: 4},
				{Type: "adjustment", Amount: 100},
			},
			want: 4,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, Balance(tc.txs), 1e-9)
		})
	}
}

func TestTotalPoints(t *testing.T) {
	rewards := []models.Reward{{Points: 1.5}, {Points: 20}, {Points: 0.25}}
	assert.InDelta(t, 21.75, TotalPoints(rewards), 1e-9)
	assert.Equal(t, 0.0, TotalPoints(nil))
}

func TestLeaderboard(t *testing.T) {
	ann, bob, cem := "Ann", "Bob", "Cem"
	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	rows := []models.RewardWithUser{
		{ID: 1, UserID: 10, Points: 30, Level: 1, CreatedAt: t1, UserName: &ann},
		{ID: 2, UserID: 20, Points: 12, Level: 2, CreatedAt: t1, UserName: &bob},
		{ID: 3, UserID: 10, Points: 5, Level: 3, CreatedAt: t2, UserName: &ann},
		{ID: 4, UserID: 30, Points: 12, Level: 1, CreatedAt: t2, UserName: &cem},
		{ID: 5, UserID: 20, Points: 40, Level: 4, CreatedAt: t2, UserName: &bob},
	}

	got := Leaderboard(rows)
	require.Len(t, got, 3)

	assert.Equal(t, int64(20), got[0].UserID)
	assert.Equal(t, 52.0, got[0].Points)
	assert.Equal(t, int64(5), got[0].ID)
	assert.Equal(t, 4, got[0].Level)
	assert.Equal(t, t2, got[0].CreatedAt)

	assert.Equal(t, int64(10), got[1].UserID)
	assert.Equal(t, 35.0, got[1].Points)
	assert.Equal(t, int64(1), got[1].ID)
	assert.Equal(t, 1, got[1].Level)

	assert.Equal(t, int64(30), got[2].UserID)
	assert.Equal(t, "Cem", *got[2].UserName)
}

func TestLeaderboardTiesKeepFirstSeenOrder(t *testing.T) {
	rows := []models.RewardWithUser{
		{ID: 1, UserID: 7, Points: 10},
		{ID: 2, UserID: 3, Points: 10},
		{ID: 3, UserID: 5, Points: 10},
	}
	got := Leaderboard(rows)
	require.Len(t, got, 3)
	assert.Equal(t, []int64{7, 3, 5}, []int64{got[0].UserID, got[1].UserID, got[2].UserID})
}

func TestRound1(t *testing.T) {
	assert.Equal(t, 12.3, Round1(12.34))
	assert.Equal(t, 12.4, Round1(12.35000001))
}

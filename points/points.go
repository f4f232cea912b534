// Package points holds the point accounting rules: how report amounts are
// parsed and priced, how collection rewards are rolled, and how balances and
// leaderboard totals are folded out of ledger and reward rows at read time.
package points

import (
	"errors"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"ecopoints/models"

	"github.com/shopspring/decimal"
)

const (
	CollectionRewardMin  = 10
	CollectionRewardSpan = 50 // rewards fall in [10, 59]

	// CO2 offset per unit of collected waste on the impact page.
	CO2PerUnit = 0.5
)

var (
	ErrInvalidAmount = errors.New("invalid waste amount")

	nonNumeric    = regexp.MustCompile(`[^\d.\-]`)
	numericPrefix = regexp.MustCompile(`^-?(\d+(\.\d*)?|\.\d+)`)
	firstQuantity = regexp.MustCompile(`\d+(\.\d+)?`)
)

// ParseAmount extracts the number from an amount string such as "3.5 kg".
// Everything but digits, dots and minus signs is dropped and the longest
// numeric prefix of the remainder is parsed.
func ParseAmount(amount string) (float64, error) {
	cleaned := nonNumeric.ReplaceAllString(amount, "")
	prefix := numericPrefix.FindString(cleaned)
	if prefix == "" {
		return 0, ErrInvalidAmount
	}
	n, err := strconv.ParseFloat(prefix, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, ErrInvalidAmount
	}
	return n, nil
}

// ReportPoints is the award for reporting n units of waste: n * (n / 100).
// The function is not clamped.
func ReportPoints(n float64) float64 {
	return n * (n / 100)
}

// CollectionReward rolls a verified collection reward using intn, which must
// behave like rand.IntN.
func CollectionReward(intn func(int) int) int {
	return intn(CollectionRewardSpan) + CollectionRewardMin
}

// LeadingQuantity returns the first number found in s, or 0.
func LeadingQuantity(s string) float64 {
	m := firstQuantity.FindString(s)
	if m == "" {
		return 0
	}
	n, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	return n
}

// Balance folds a user's full transaction history into the spendable
// balance. Earned entries add, redeemed entries subtract, and the result is
// never negative.
func Balance(txs []models.Transaction) float64 {
	total := decimal.Zero
	for _, tx := range txs {
		amount := decimal.NewFromFloat(tx.Amount)
		switch {
		case strings.HasPrefix(tx.Type, "earned"):
			total = total.Add(amount)
		case strings.HasPrefix(tx.Type, "redeemed"):
			total = total.Sub(amount)
		}
	}
	if total.IsNegative() {
		return 0
	}
	return total.InexactFloat64()
}

// TotalPoints sums the points of reward rows.
func TotalPoints(rewards []models.Reward) float64 {
	total := decimal.Zero
	for _, r := range rewards {
		total = total.Add(decimal.NewFromFloat(r.Points))
	}
	return total.InexactFloat64()
}

// Leaderboard groups reward rows by user. Each entry carries the summed
// points and the id, level and creation time of the user's highest single
// row. Entries are sorted by summed points, descending; ties keep the order
// in which users first appear in rows.
func Leaderboard(rows []models.RewardWithUser) []models.LeaderboardEntry {
	type acc struct {
		total decimal.Decimal
		best  models.RewardWithUser
	}
	order := make([]int64, 0)
	byUser := make(map[int64]*acc)
	for _, r := range rows {
		a, ok := byUser[r.UserID]
		if !ok {
			byUser[r.UserID] = &acc{total: decimal.NewFromFloat(r.Points), best: r}
			order = append(order, r.UserID)
			continue
		}
		a.total = a.total.Add(decimal.NewFromFloat(r.Points))
		if a.best.Points < r.Points {
			userName := a.best.UserName
			a.best = r
			if a.best.UserName == nil {
				a.best.UserName = userName
			}
		}
	}

	entries := make([]models.LeaderboardEntry, 0, len(order))
	for _, userID := range order {
		a := byUser[userID]
		entries = append(entries, models.LeaderboardEntry{
			ID:        a.best.ID,
			UserID:    userID,
			Points:    a.total.InexactFloat64(),
			Level:     a.best.Level,
			CreatedAt: a.best.CreatedAt,
			UserName:  a.best.UserName,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Points > entries[j].Points
	})
	return entries
}

// Round1 rounds to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

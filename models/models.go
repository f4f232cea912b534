package models

import (
	"encoding/json"
	"time"
)

// Report statuses. A report only ever moves forward through this list.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusVerified   = "verified"
)

// Transaction types of the points ledger.
const (
	TxEarnedReport  = "earned_report"
	TxEarnedCollect = "earned_collect"
	TxRedeemed      = "redeemed"
)

const (
	DefaultRewardName           = "Default Reward"
	DefaultRewardCollectionInfo = "Default collection info"
	CollectionRewardName        = "Waste Collection Reward"
	CollectionRewardInfo        = "Points earned from collecting waste"

	NotificationTypeReward = "reward"

	CollectedStatusVerified = "verified"
)

// statusRank orders the report statuses.
var statusRank = map[string]int{
	StatusPending:    0,
	StatusInProgress: 1,
	StatusCompleted:  2,
	StatusVerified:   3,
}

// ValidStatus reports whether s is one of the known report statuses.
func ValidStatus(s string) bool {
	_, ok := statusRank[s]
	return ok
}

// StatusesBefore returns the statuses a report may hold to be moved to s.
func StatusesBefore(s string) []string {
	rank, ok := statusRank[s]
	if !ok {
		return nil
	}
	var out []string
	for _, st := range []string{StatusPending, StatusInProgress, StatusCompleted, StatusVerified} {
		if statusRank[st] < rank {
			out = append(out, st)
		}
	}
	return out
}

type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Phone     *string   `json:"phone"`
	Avatar    *string   `json:"avatar"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Report struct {
	ID                 int64           `json:"id"`
	UserID             int64           `json:"userId"`
	Location           string          `json:"location"`
	WasteType          string          `json:"wasteType"`
	Amount             string          `json:"amount"`
	ImageURL           *string         `json:"imageUrl"`
	VerificationResult json.RawMessage `json:"verificationResult,omitempty"`
	Status             string          `json:"status"`
	CollectorID        *int64          `json:"collectorId"`
	CreatedAt          time.Time       `json:"createdAt"`
}

// Task is the collector-facing projection of a report.
type Task struct {
	ID          int64  `json:"id"`
	Location    string `json:"location"`
	WasteType   string `json:"wasteType"`
	Amount      string `json:"amount"`
	Status      string `json:"status"`
	Date        string `json:"date"`
	CollectorID *int64 `json:"collectorId"`
}

type Reward struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"userId"`
	Name           string    `json:"name"`
	CollectionInfo string    `json:"collectionInfo"`
	Description    *string   `json:"description"`
	Points         float64   `json:"points"`
	Level          int       `json:"level"`
	IsAvailable    bool      `json:"isAvailable"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// RewardWithUser is a reward row joined with its owner's display name.
type RewardWithUser struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Points    float64   `json:"points"`
	Level     int       `json:"level"`
	CreatedAt time.Time `json:"createdAt"`
	UserName  *string   `json:"userName"`
}

// AvailableReward is an entry of the redemption catalog as seen by a user.
type AvailableReward struct {
	ID             int64   `json:"id"`
	Name           string  `json:"name"`
	Cost           float64 `json:"cost"`
	Description    *string `json:"description"`
	CollectionInfo string  `json:"collectionInfo"`
}

type CollectedWaste struct {
	ID                 int64           `json:"id"`
	ReportID           int64           `json:"reportId"`
	CollectorID        int64           `json:"collectorId"`
	CollectionDate     time.Time       `json:"collectionDate"`
	Status             string          `json:"status"`
	VerificationResult json.RawMessage `json:"verificationResult,omitempty"`
}

// CollectedWasteInfo is a collected waste joined with the report it came from.
type CollectedWasteInfo struct {
	ID             int64  `json:"id"`
	ReportID       int64  `json:"reportId"`
	CollectorID    int64  `json:"collectorId"`
	CollectionDate string `json:"collectionDate"`
	Status         string `json:"status"`
	Location       string `json:"location"`
	WasteType      string `json:"wasteType"`
	Amount         string `json:"amount"`
}

type Notification struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	IsRead    bool      `json:"isRead"`
	CreatedAt time.Time `json:"createdAt"`
}

type Transaction struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"userId"`
	Type        string    `json:"type"`
	Amount      float64   `json:"amount"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
}

// TransactionView is a ledger entry formatted for display.
type TransactionView struct {
	ID          int64   `json:"id"`
	Type        string  `json:"type"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
}

type Station struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Location     string    `json:"location"`
	RecycleTypes string    `json:"recycleTypes"`
	ActiveStatus bool      `json:"activeStatus"`
	CreatedAt    time.Time `json:"createdAt"`
}

// LeaderboardEntry is one user's aggregated reward standing.
type LeaderboardEntry struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Points    float64   `json:"points"`
	Level     int       `json:"level"`
	CreatedAt time.Time `json:"createdAt"`
	UserName  *string   `json:"userName"`
}

type ImpactStats struct {
	WasteCollected   float64 `json:"wasteCollected"`
	ReportsSubmitted int     `json:"reportsSubmitted"`
	TokensEarned     float64 `json:"tokensEarned"`
	CO2Offset        float64 `json:"co2Offset"`
}

// DateLayout is the YYYY-MM-DD layout used for dates shown to users.
const DateLayout = "2006-01-02"

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Task maps a report to its collection task view.
func (r *Report) Task() Task {
	return Task{
		ID:          r.ID,
		Location:    r.Location,
		WasteType:   r.WasteType,
		Amount:      r.Amount,
		Status:      r.Status,
		Date:        FormatDate(r.CreatedAt),
		CollectorID: r.CollectorID,
	}
}

// View formats a ledger entry for display.
func (t *Transaction) View() TransactionView {
	return TransactionView{
		ID:          t.ID,
		Type:        t.Type,
		Amount:      t.Amount,
		Description: t.Description,
		Date:        FormatDate(t.Date),
	}
}

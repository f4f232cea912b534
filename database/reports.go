package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"ecopoints/models"
)

const reportColumns = "id, user_id, location, waste_type, amount, image_url, verification_result, status, collector_id, created_at"

func scanReport(s scanner) (*models.Report, error) {
	var (
		r    models.Report
		blob []byte
	)
	if err := s.Scan(&r.ID, &r.UserID, &r.Location, &r.WasteType, &r.Amount, &r.ImageURL, &blob, &r.Status, &r.CollectorID, &r.CreatedAt); err != nil {
		return nil, err
	}
	if len(blob) > 0 {
		r.VerificationResult = json.RawMessage(blob)
	}
	return &r, nil
}

func (q *Queries) queryReports(ctx context.Context, query string, args ...any) ([]models.Report, error) {
	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reports := make([]models.Report, 0)
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *r)
	}
	return reports, rows.Err()
}

// InsertReport stores a new pending report and returns its id.
func (q *Queries) InsertReport(ctx context.Context, userID int64, location, wasteType, amount string, imageURL *string, verificationResult json.RawMessage) (int64, error) {
	result, err := q.q.ExecContext(ctx,
		"INSERT INTO reports (user_id, location, waste_type, amount, image_url, verification_result, status) VALUES (?, ?, ?, ?, ?, ?, ?)",
		userID, location, wasteType, amount, imageURL, nullJSON(verificationResult), models.StatusPending)
	if err != nil {
		return 0, fmt.Errorf("failed to insert report: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get report id: %w", err)
	}
	return id, nil
}

// GetReport returns nil, nil when the report does not exist.
func (q *Queries) GetReport(ctx context.Context, id int64) (*models.Report, error) {
	r, err := scanReport(q.q.QueryRowContext(ctx, "SELECT "+reportColumns+" FROM reports WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report %d: %w", id, err)
	}
	return r, nil
}

// ListRecentReports returns the newest reports first. A non-empty location
// keeps only reports whose location contains it.
func (q *Queries) ListRecentReports(ctx context.Context, location string, limit int) ([]models.Report, error) {
	var (
		reports []models.Report
		err     error
	)
	if location == "" {
		reports, err = q.queryReports(ctx,
			"SELECT "+reportColumns+" FROM reports ORDER BY created_at DESC, id DESC LIMIT ?", limit)
	} else {
		reports, err = q.queryReports(ctx,
			"SELECT "+reportColumns+" FROM reports WHERE LOWER(location) LIKE ? ORDER BY created_at DESC, id DESC LIMIT ?",
			"%"+likeEscape(strings.ToLower(location))+"%", limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list recent reports: %w", err)
	}
	return reports, nil
}

func (q *Queries) ListReportsByUser(ctx context.Context, userID int64) ([]models.Report, error) {
	reports, err := q.queryReports(ctx,
		"SELECT "+reportColumns+" FROM reports WHERE user_id = ? ORDER BY created_at DESC, id DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports of user %d: %w", userID, err)
	}
	return reports, nil
}

func (q *Queries) ListPendingReports(ctx context.Context) ([]models.Report, error) {
	reports, err := q.queryReports(ctx,
		"SELECT "+reportColumns+" FROM reports WHERE status = ? ORDER BY created_at DESC, id DESC", models.StatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending reports: %w", err)
	}
	return reports, nil
}

// ClaimReport moves a pending report to in_progress for the collector.
// It returns false when the report is not pending any more.
func (q *Queries) ClaimReport(ctx context.Context, id, collectorID int64) (bool, error) {
	result, err := q.q.ExecContext(ctx,
		"UPDATE reports SET status = ?, collector_id = ? WHERE id = ? AND status = ?",
		models.StatusInProgress, collectorID, id, models.StatusPending)
	if err != nil {
		return false, fmt.Errorf("failed to claim report %d: %w", id, err)
	}
	return affectedOne(result)
}

// MarkReportVerified moves an in_progress report claimed by collectorID to
// verified. It returns false when the report is in any other state.
func (q *Queries) MarkReportVerified(ctx context.Context, id, collectorID int64) (bool, error) {
	result, err := q.q.ExecContext(ctx,
		"UPDATE reports SET status = ? WHERE id = ? AND status = ? AND collector_id = ?",
		models.StatusVerified, id, models.StatusInProgress, collectorID)
	if err != nil {
		return false, fmt.Errorf("failed to verify report %d: %w", id, err)
	}
	return affectedOne(result)
}

// UpdateReportStatus sets the status of a report whose current status is one
// of from, and the collector when collectorID is not nil.
func (q *Queries) UpdateReportStatus(ctx context.Context, id int64, status string, from []string, collectorID *int64) (bool, error) {
	if len(from) == 0 {
		return false, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(from)), ", ")

	set := "status = ?"
	args := []any{status}
	if collectorID != nil {
		set += ", collector_id = ?"
		args = append(args, *collectorID)
	}
	args = append(args, id)
	for _, s := range from {
		args = append(args, s)
	}

	result, err := q.q.ExecContext(ctx,
		"UPDATE reports SET "+set+" WHERE id = ? AND status IN ("+placeholders+")", args...)
	if err != nil {
		return false, fmt.Errorf("failed to update status of report %d: %w", id, err)
	}
	return affectedOne(result)
}

func likeEscape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ecopoints/models"
)

// InsertCollectedWaste records a verified pickup.
func (q *Queries) InsertCollectedWaste(ctx context.Context, reportID, collectorID int64, verificationResult json.RawMessage) (int64, error) {
	result, err := q.q.ExecContext(ctx,
		"INSERT INTO collected_wastes (report_id, collector_id, status, verification_result) VALUES (?, ?, ?, ?)",
		reportID, collectorID, models.CollectedStatusVerified, nullJSON(verificationResult))
	if err != nil {
		return 0, fmt.Errorf("failed to insert collected waste for report %d: %w", reportID, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get collected waste id: %w", err)
	}
	return id, nil
}

const collectedWithReport = `
	SELECT cw.id, cw.report_id, cw.collector_id, cw.collection_date, cw.status, r.location, r.waste_type, r.amount
	FROM collected_wastes AS cw JOIN reports AS r ON cw.report_id = r.id`

// ListCollectedWastes returns every pickup joined with its report, newest first.
func (q *Queries) ListCollectedWastes(ctx context.Context) ([]models.CollectedWasteInfo, error) {
	return q.queryCollected(ctx, collectedWithReport+" ORDER BY cw.collection_date DESC, cw.id DESC")
}

// ListCollectedByCollector returns the collector's pickups, newest first.
func (q *Queries) ListCollectedByCollector(ctx context.Context, collectorID int64) ([]models.CollectedWasteInfo, error) {
	return q.queryCollected(ctx,
		collectedWithReport+" WHERE cw.collector_id = ? ORDER BY cw.collection_date DESC, cw.id DESC", collectorID)
}

func (q *Queries) queryCollected(ctx context.Context, query string, args ...any) ([]models.CollectedWasteInfo, error) {
	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list collected wastes: %w", err)
	}
	defer rows.Close()

	collected := make([]models.CollectedWasteInfo, 0)
	for rows.Next() {
		var (
			c    models.CollectedWasteInfo
			date time.Time
		)
		if err := rows.Scan(&c.ID, &c.ReportID, &c.CollectorID, &date, &c.Status, &c.Location, &c.WasteType, &c.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan collected waste: %w", err)
		}
		c.CollectionDate = models.FormatDate(date)
		collected = append(collected, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list collected wastes: %w", err)
	}
	return collected, nil
}

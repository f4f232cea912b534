package database

import (
	"context"
	"fmt"
	"time"

	"ecopoints/models"
)

func (q *Queries) InsertStation(ctx context.Context, name, location, recycleTypes string, activeStatus bool) (*models.Station, error) {
	result, err := q.q.ExecContext(ctx,
		"INSERT INTO stations (name, location, recycle_types, active_status) VALUES (?, ?, ?, ?)",
		name, location, recycleTypes, activeStatus)
	if err != nil {
		return nil, fmt.Errorf("failed to insert station: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get station id: %w", err)
	}
	return &models.Station{
		ID:           id,
		Name:         name,
		Location:     location,
		RecycleTypes: recycleTypes,
		ActiveStatus: activeStatus,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// ListStations returns all stations, newest first.
func (q *Queries) ListStations(ctx context.Context) ([]models.Station, error) {
	rows, err := q.q.QueryContext(ctx,
		"SELECT id, name, location, recycle_types, active_status, created_at FROM stations ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to list stations: %w", err)
	}
	defer rows.Close()

	stations := make([]models.Station, 0)
	for rows.Next() {
		var s models.Station
		if err := rows.Scan(&s.ID, &s.Name, &s.Location, &s.RecycleTypes, &s.ActiveStatus, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan station: %w", err)
		}
		stations = append(stations, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list stations: %w", err)
	}
	return stations, nil
}

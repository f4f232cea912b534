package service

import (
	"context"
	"fmt"
	"strings"

	"ecopoints/models"
)

func (s *Service) AddStation(ctx context.Context, name, location, recycleTypes string, activeStatus bool) (*models.Station, error) {
	name, location, recycleTypes = strings.TrimSpace(name), strings.TrimSpace(location), strings.TrimSpace(recycleTypes)
	if name == "" || location == "" || recycleTypes == "" {
		return nil, fmt.Errorf("%w: name, location and recycle types are required", ErrInvalidInput)
	}
	return s.db.InsertStation(ctx, name, location, recycleTypes, activeStatus)
}

func (s *Service) ListStations(ctx context.Context) ([]models.Station, error) {
	return s.db.ListStations(ctx)
}

// SearchStations keeps the stations whose location contains location and
// which accept recycleType. Empty filters match every station.
func (s *Service) SearchStations(ctx context.Context, location, recycleType string) ([]models.Station, error) {
	stations, err := s.db.ListStations(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Station, 0, len(stations))
	for _, st := range stations {
		if StationMatches(st, location, recycleType) {
			out = append(out, st)
		}
	}
	return out, nil
}

// StationMatches reports whether the station's location contains location
// and one of its comma separated recycle types equals recycleType, both
// ignoring case.
func StationMatches(st models.Station, location, recycleType string) bool {
	location = strings.TrimSpace(location)
	if location != "" && !strings.Contains(strings.ToLower(st.Location), strings.ToLower(location)) {
		return false
	}
	recycleType = strings.TrimSpace(recycleType)
	if recycleType == "" {
		return true
	}
	for _, t := range strings.Split(st.RecycleTypes, ",") {
		if strings.EqualFold(strings.TrimSpace(t), recycleType) {
			return true
		}
	}
	return false
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"ecopoints/database"
	"ecopoints/image"
	"ecopoints/metrics"
	"ecopoints/models"
	"ecopoints/points"
	"ecopoints/rabbitmq"
	"ecopoints/verification"

	"github.com/apex/log"
)

// CollectionResult is the outcome of a successful collection verification.
type CollectionResult struct {
	Outcome          verification.Outcome `json:"outcome"`
	Reward           int                  `json:"reward"`
	CollectedWasteID int64                `json:"collectedWasteId"`
	Notification     *models.Notification `json:"notification"`
}

type collectionVerifiedEvent struct {
	ReportID         int64   `json:"reportId"`
	CollectorID      int64   `json:"collectorId"`
	CollectedWasteID int64   `json:"collectedWasteId"`
	Reward           int     `json:"reward"`
	Confidence       float64 `json:"confidence"`
}

// ClaimTask assigns a pending report to the collector. Only one claim can
// win; the others get ErrConflict.
func (s *Service) ClaimTask(ctx context.Context, reportID, collectorID int64) (*models.Report, error) {
	ok, err := s.db.ClaimReport(ctx, reportID, collectorID)
	if err != nil {
		metrics.ClaimsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	report, err := s.db.GetReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if report == nil {
		metrics.ClaimsTotal.WithLabelValues("not_found").Inc()
		return nil, fmt.Errorf("%w: report %d", ErrNotFound, reportID)
	}
	if !ok {
		metrics.ClaimsTotal.WithLabelValues("conflict").Inc()
		return nil, fmt.Errorf("%w: report %d is %s", ErrConflict, reportID, report.Status)
	}

	metrics.ClaimsTotal.WithLabelValues("ok").Inc()
	log.Infof("Report %d claimed by collector %d", reportID, collectorID)
	return report, nil
}

// claimedReport returns the report when it is in progress under collectorID.
func (s *Service) claimedReport(ctx context.Context, reportID, collectorID int64) (*models.Report, error) {
	report, err := s.db.GetReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if report == nil {
		return nil, fmt.Errorf("%w: report %d", ErrNotFound, reportID)
	}
	if report.Status != models.StatusInProgress {
		return nil, fmt.Errorf("%w: report %d is %s", ErrConflict, reportID, report.Status)
	}
	if report.CollectorID == nil || *report.CollectorID != collectorID {
		return nil, fmt.Errorf("%w: report %d is claimed by another collector", ErrConflict, reportID)
	}
	return report, nil
}

// VerifyAndCompleteCollection checks a classifier result against the
// report's declared waste and, when it matches, marks the report verified
// and rewards the collector. A mismatch returns a *VerificationError and
// changes nothing.
func (s *Service) VerifyAndCompleteCollection(ctx context.Context, reportID, collectorID int64, result *verification.Result) (*CollectionResult, error) {
	if reportID <= 0 || collectorID <= 0 || result == nil {
		return nil, ErrMissingVerificationInput
	}

	report, err := s.claimedReport(ctx, reportID, collectorID)
	if err != nil {
		return nil, err
	}

	outcome := verification.Evaluate(report.WasteType, report.Amount, result)
	if !outcome.Success() {
		metrics.VerificationsTotal.WithLabelValues("rejected").Inc()
		log.WithFields(log.Fields{
			"report_id":        reportID,
			"collector_id":     collectorID,
			"waste_type_match": outcome.WasteTypeMatch,
			"quantity_match":   outcome.QuantityMatch,
			"confidence":       outcome.Confidence,
		}).Info("Collection rejected")
		return nil, &VerificationError{Outcome: outcome}
	}

	reward := points.CollectionReward(s.intn)
	out := CollectionResult{Outcome: outcome, Reward: reward}
	err = s.db.InTx(ctx, func(q *database.Queries) error {
		ok, err := q.MarkReportVerified(ctx, reportID, collectorID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: report %d changed during verification", ErrConflict, reportID)
		}
		if err := q.AddRewardPoints(ctx, collectorID, models.CollectionRewardName, models.CollectionRewardInfo, float64(reward)); err != nil {
			return err
		}
		if _, err := q.InsertTransaction(ctx, collectorID, models.TxEarnedCollect, float64(reward), "Points earned for collecting waste"); err != nil {
			return err
		}
		if out.CollectedWasteID, err = q.InsertCollectedWaste(ctx, reportID, collectorID, result.Raw); err != nil {
			return err
		}
		out.Notification, err = q.InsertNotification(ctx, collectorID,
			fmt.Sprintf("Verification successful! You have earned %d points for collecting waste.", reward), models.NotificationTypeReward)
		return err
	})
	if err != nil {
		metrics.VerificationsTotal.WithLabelValues("error").Inc()
		if errors.Is(err, ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to complete collection: %w", err)
	}

	metrics.VerificationsTotal.WithLabelValues("verified").Inc()
	metrics.PointsAwardedTotal.WithLabelValues("collection").Add(float64(reward))
	log.WithFields(log.Fields{"report_id": reportID, "collector_id": collectorID, "reward": reward}).Info("Collection verified")

	s.publish(ctx, rabbitmq.RoutingKeyCollectionVerified, collectionVerifiedEvent{
		ReportID:         reportID,
		CollectorID:      collectorID,
		CollectedWasteID: out.CollectedWasteID,
		Reward:           reward,
		Confidence:       outcome.Confidence,
	})
	s.notify(out.Notification)
	return &out, nil
}

// VerifyCollectionImage classifies the collector's photo and completes the
// collection with the classification.
func (s *Service) VerifyCollectionImage(ctx context.Context, reportID, collectorID int64, imageRef string) (*CollectionResult, error) {
	if reportID <= 0 || collectorID <= 0 || strings.TrimSpace(imageRef) == "" {
		return nil, ErrMissingVerificationInput
	}
	data, mimeType, err := image.Decode(imageRef)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	// No point paying for a classification the report cannot use.
	if _, err := s.claimedReport(ctx, reportID, collectorID); err != nil {
		return nil, err
	}

	result, err := s.classify(ctx, data, mimeType)
	if err != nil {
		var verr *VerificationError
		if errors.As(err, &verr) {
			metrics.VerificationsTotal.WithLabelValues("malformed").Inc()
		}
		return nil, err
	}
	return s.VerifyAndCompleteCollection(ctx, reportID, collectorID, result)
}

// VerifyCollectionResult completes the collection with a classification the
// client obtained itself.
func (s *Service) VerifyCollectionResult(ctx context.Context, reportID, collectorID int64, raw json.RawMessage) (*CollectionResult, error) {
	if reportID <= 0 || collectorID <= 0 || len(raw) == 0 || string(raw) == "null" {
		return nil, ErrMissingVerificationInput
	}
	result, err := verification.Parse(raw)
	if err != nil {
		metrics.VerificationsTotal.WithLabelValues("malformed").Inc()
		return nil, &VerificationError{Reason: err.Error()}
	}
	return s.VerifyAndCompleteCollection(ctx, reportID, collectorID, result)
}

// ListTasks returns the newest reports as collection tasks. A limit of 0
// uses the configured default.
func (s *Service) ListTasks(ctx context.Context, limit int) ([]models.Task, error) {
	return s.SearchTasks(ctx, "", limit)
}

// SearchTasks is ListTasks restricted to reports whose location contains
// location, ignoring case.
func (s *Service) SearchTasks(ctx context.Context, location string, limit int) ([]models.Task, error) {
	reports, err := s.db.ListRecentReports(ctx, strings.TrimSpace(location), clampLimit(limit, s.tasksLimit))
	if err != nil {
		return nil, err
	}
	tasks := make([]models.Task, 0, len(reports))
	for i := range reports {
		tasks = append(tasks, reports[i].Task())
	}
	return tasks, nil
}

func (s *Service) ListPendingReports(ctx context.Context) ([]models.Report, error) {
	return s.db.ListPendingReports(ctx)
}

// UpdateTaskStatus moves a report forward by hand. Only in_progress and
// completed can be set this way; verified is reserved for a successful
// collection verification so that every verified report carries its reward.
func (s *Service) UpdateTaskStatus(ctx context.Context, reportID int64, status string, collectorID *int64) (*models.Report, error) {
	switch status {
	case models.StatusInProgress:
		if collectorID == nil {
			return nil, fmt.Errorf("%w: a collector is required to start a task", ErrInvalidInput)
		}
	case models.StatusCompleted:
	case models.StatusPending:
		return nil, fmt.Errorf("%w: a task cannot move back to pending", ErrConflict)
	case models.StatusVerified:
		return nil, fmt.Errorf("%w: tasks are verified through collection verification", ErrInvalidInput)
	default:
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}

	ok, err := s.db.UpdateReportStatus(ctx, reportID, status, models.StatusesBefore(status), collectorID)
	if err != nil {
		return nil, err
	}
	report, err := s.db.GetReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if report == nil {
		return nil, fmt.Errorf("%w: report %d", ErrNotFound, reportID)
	}
	if !ok {
		return nil, fmt.Errorf("%w: report %d is already %s", ErrConflict, reportID, report.Status)
	}
	log.Infof("Report %d moved to %s", reportID, status)
	return report, nil
}

func (s *Service) ListCollectedWastes(ctx context.Context) ([]models.CollectedWasteInfo, error) {
	return s.db.ListCollectedWastes(ctx)
}

func (s *Service) ListCollectedByCollector(ctx context.Context, collectorID int64) ([]models.CollectedWasteInfo, error) {
	return s.db.ListCollectedByCollector(ctx, collectorID)
}

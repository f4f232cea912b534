package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"ecopoints/database"
	"ecopoints/image"
	"ecopoints/metrics"
	"ecopoints/models"
	"ecopoints/points"
	"ecopoints/rabbitmq"
	"ecopoints/verification"

	"github.com/apex/log"
)

// impactSampleSize is how many recent reports the impact numbers are drawn from.
const impactSampleSize = 100

type NewReport struct {
	UserID             int64
	Location           string
	WasteType          string
	Amount             string
	ImageURL           *string
	VerificationResult json.RawMessage
}

// ReportSubmitted is the result of SubmitReport.
type ReportSubmitted struct {
	Report       *models.Report       `json:"report"`
	PointsEarned float64              `json:"pointsEarned"`
	Notification *models.Notification `json:"notification"`
}

type reportCreatedEvent struct {
	ReportID  int64   `json:"reportId"`
	UserID    int64   `json:"userId"`
	Location  string  `json:"location"`
	WasteType string  `json:"wasteType"`
	Amount    string  `json:"amount"`
	Points    float64 `json:"points"`
}

// SubmitReport stores a waste report and credits the reporter. The report,
// the points on the reporter's default reward, the ledger entry and the
// notification are written together or not at all.
func (s *Service) SubmitReport(ctx context.Context, in NewReport) (*ReportSubmitted, error) {
	if strings.TrimSpace(in.Location) == "" || strings.TrimSpace(in.WasteType) == "" {
		return nil, fmt.Errorf("%w: location and waste type are required", ErrInvalidInput)
	}
	quantity, err := points.ParseAmount(in.Amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, in.Amount)
	}
	if len(in.VerificationResult) > 0 && !json.Valid(in.VerificationResult) {
		return nil, fmt.Errorf("%w: verification result is not valid JSON", ErrInvalidInput)
	}

	imageURL := in.ImageURL
	if imageURL != nil && *imageURL != "" {
		compressed, err := image.CompressDataURL(*imageURL)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		imageURL = &compressed
	}

	earned := points.ReportPoints(quantity)
	var out ReportSubmitted
	err = s.db.InTx(ctx, func(q *database.Queries) error {
		reportID, err := q.InsertReport(ctx, in.UserID, in.Location, in.WasteType, in.Amount, imageURL, in.VerificationResult)
		if err != nil {
			return err
		}
		if err := q.AddRewardPoints(ctx, in.UserID, models.DefaultRewardName, models.DefaultRewardCollectionInfo, earned); err != nil {
			return err
		}
		if _, err := q.InsertTransaction(ctx, in.UserID, models.TxEarnedReport, earned, "Points earned for reporting waste"); err != nil {
			return err
		}
		n, err := q.InsertNotification(ctx, in.UserID,
			fmt.Sprintf("You have earned %s points for reporting waste!", formatPoints(earned)), models.NotificationTypeReward)
		if err != nil {
			return err
		}
		report, err := q.GetReport(ctx, reportID)
		if err != nil {
			return err
		}
		if report == nil {
			return fmt.Errorf("report %d vanished after insert", reportID)
		}
		out = ReportSubmitted{Report: report, PointsEarned: earned, Notification: n}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to submit report: %w", err)
	}

	log.WithFields(log.Fields{"report_id": out.Report.ID, "user_id": in.UserID, "points": earned}).Info("Report submitted")
	metrics.ReportsSubmittedTotal.Inc()
	metrics.PointsAwardedTotal.WithLabelValues("report").Add(max(earned, 0))

	s.publish(ctx, rabbitmq.RoutingKeyReportCreated, reportCreatedEvent{
		ReportID:  out.Report.ID,
		UserID:    in.UserID,
		Location:  out.Report.Location,
		WasteType: out.Report.WasteType,
		Amount:    out.Report.Amount,
		Points:    earned,
	})
	s.notify(out.Notification)
	return &out, nil
}

// AnalyzeImage classifies a report photo so the client can prefill the
// waste type and amount.
func (s *Service) AnalyzeImage(ctx context.Context, imageRef string) (*verification.Result, error) {
	data, mimeType, err := image.Decode(imageRef)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return s.classify(ctx, data, mimeType)
}

func (s *Service) classify(ctx context.Context, data []byte, mimeType string) (*verification.Result, error) {
	if s.classifier == nil || !s.classifier.Enabled() {
		return nil, ErrClassifierUnavailable
	}
	if compressed, changed, err := image.Compress(data); err == nil && changed {
		data, mimeType = compressed, "image/jpeg"
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	start := time.Now()
	result, err := s.classifier.Classify(ctx, data, mimeType)
	switch {
	case err == nil:
		metrics.ClassifierDurationSeconds.WithLabelValues("ok").Observe(time.Since(start).Seconds())
		return result, nil
	case errors.Is(err, verification.ErrMalformedResult):
		metrics.ClassifierDurationSeconds.WithLabelValues("malformed").Observe(time.Since(start).Seconds())
		return nil, &VerificationError{Reason: err.Error()}
	default:
		metrics.ClassifierDurationSeconds.WithLabelValues("error").Observe(time.Since(start).Seconds())
		log.Errorf("Image classification failed: %v", err)
		return nil, ErrClassifierUnavailable
	}
}

func (s *Service) ListReportsByUser(ctx context.Context, userID int64) ([]models.Report, error) {
	return s.db.ListReportsByUser(ctx, userID)
}

// ListRecentReports returns the newest reports, at most limit of them.
func (s *Service) ListRecentReports(ctx context.Context, limit int) ([]models.Report, error) {
	return s.db.ListRecentReports(ctx, "", clampLimit(limit, 10))
}

// ImpactStats computes the home page figures: the waste behind recent
// reports, how many there are, the points held across all rewards and the
// CO2 offset of the waste.
func (s *Service) ImpactStats(ctx context.Context) (*models.ImpactStats, error) {
	reports, err := s.db.ListRecentReports(ctx, "", impactSampleSize)
	if err != nil {
		return nil, err
	}
	tokens, err := s.db.SumRewardPoints(ctx)
	if err != nil {
		return nil, err
	}

	var waste float64
	for _, r := range reports {
		waste += points.LeadingQuantity(r.Amount)
	}
	return &models.ImpactStats{
		WasteCollected:   points.Round1(waste),
		ReportsSubmitted: len(reports),
		TokensEarned:     tokens,
		CO2Offset:        points.Round1(waste * points.CO2PerUnit),
	}, nil
}

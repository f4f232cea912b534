// Package service implements the report, collection and reward workflows on
// top of the database. Every workflow that writes more than one row runs in
// a single transaction; events, websocket pushes and metrics follow the
// commit and never fail the call.
package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"

	"ecopoints/database"
	"ecopoints/models"
	"ecopoints/verification"

	"github.com/apex/log"
)

var (
	ErrNotFound                 = errors.New("not found")
	ErrConflict                 = errors.New("conflict")
	ErrInvalidInput             = errors.New("invalid input")
	ErrInvalidAmount            = errors.New("invalid waste amount")
	ErrMissingVerificationInput = errors.New("missing verification input")
	ErrVerificationFailed       = errors.New("verification failed")
	ErrInsufficientPoints       = errors.New("insufficient points")
	ErrInvalidReward            = errors.New("invalid reward")
	ErrClassifierUnavailable    = errors.New("image classifier unavailable")
)

// VerificationError describes a rejected collection. It matches
// ErrVerificationFailed with errors.Is.
type VerificationError struct {
	Outcome verification.Outcome
	Reason  string
}

func (e *VerificationError) Error() string {
	if e.Reason != "" {
		return "verification failed: " + e.Reason
	}
	return fmt.Sprintf("verification failed: waste type match %v, quantity match %v, confidence %.2f",
		e.Outcome.WasteTypeMatch, e.Outcome.QuantityMatch, e.Outcome.Confidence)
}

func (e *VerificationError) Unwrap() error {
	return ErrVerificationFailed
}

// Classifier is the image classification boundary.
type Classifier interface {
	Enabled() bool
	Classify(ctx context.Context, image []byte, mimeType string) (*verification.Result, error)
}

// Publisher sends domain events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// Notifier pushes a stored notification to the user's open sessions.
type Notifier interface {
	Notify(userID int64, n *models.Notification)
}

const maxListLimit = 100

type Service struct {
	db         *database.Database
	classifier Classifier
	publisher  Publisher
	notifier   Notifier
	intn       func(int) int
	tasksLimit int
}

type Option func(*Service)

func WithClassifier(c Classifier) Option {
	return func(s *Service) { s.classifier = c }
}

func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithRandom replaces the source used to roll collection rewards. intn must
// behave like rand.IntN.
func WithRandom(intn func(int) int) Option {
	return func(s *Service) { s.intn = intn }
}

// WithTasksLimit sets the default size of the task list.
func WithTasksLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.tasksLimit = n
		}
	}
}

func New(db *database.Database, opts ...Option) *Service {
	s := &Service{
		db:         db,
		intn:       rand.Intn,
		tasksLimit: 20,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) publish(ctx context.Context, routingKey string, payload any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(context.WithoutCancel(ctx), routingKey, payload); err != nil {
		log.Warnf("Failed to publish %s: %v", routingKey, err)
	}
}

func (s *Service) notify(n *models.Notification) {
	if s.notifier == nil || n == nil {
		return
	}
	s.notifier.Notify(n.UserID, n)
}

func clampLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

func formatPoints(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}

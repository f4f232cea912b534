package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ecopoints/database"
	"ecopoints/models"

	"github.com/apex/log"
)

func (s *Service) CreateUser(ctx context.Context, email, name string) (*models.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	u, err := s.db.CreateUser(ctx, email, strings.TrimSpace(name))
	if errors.Is(err, database.ErrDuplicate) {
		return nil, fmt.Errorf("%w: user %s already exists", ErrConflict, email)
	}
	if err != nil {
		return nil, err
	}
	log.Infof("User %d created", u.ID)
	return u, nil
}

// ResolveUser returns the user with the email, creating it when missing.
// The caller has already established that the email belongs to the client.
func (s *Service) ResolveUser(ctx context.Context, email, name string) (*models.User, error) {
	u, err := s.db.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil || u != nil {
		return u, err
	}
	u, err = s.CreateUser(ctx, email, name)
	if errors.Is(err, ErrConflict) {
		// Lost a race with a concurrent first login.
		return s.db.GetUserByEmail(ctx, strings.TrimSpace(email))
	}
	return u, err
}

func (s *Service) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	u, err := s.db.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("%w: user %d", ErrNotFound, userID)
	}
	return u, nil
}

func (s *Service) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := s.db.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, email)
	}
	return u, nil
}

func (s *Service) UserExists(ctx context.Context, email string) (bool, error) {
	u, err := s.db.GetUserByEmail(ctx, email)
	return u != nil, err
}

// UpdateUserByEmail sets the user's name and, when not nil, phone and avatar.
func (s *Service) UpdateUserByEmail(ctx context.Context, email, name string, phone, avatar *string) (*models.User, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	ok, err := s.db.UpdateUserByEmail(ctx, email, strings.TrimSpace(name), phone, avatar)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, email)
	}
	return s.GetUserByEmail(ctx, email)
}

// DeleteUser removes the user with the email and all their data. It returns
// false when there is no such user.
func (s *Service) DeleteUser(ctx context.Context, email string) (bool, error) {
	u, err := s.db.GetUserByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	if u == nil {
		return false, nil
	}
	err = s.db.InTx(ctx, func(q *database.Queries) error {
		return q.DeleteUserData(ctx, u.ID)
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete user %d: %w", u.ID, err)
	}
	log.Infof("User %d deleted with all their data", u.ID)
	return true, nil
}

func (s *Service) ListUnreadNotifications(ctx context.Context, userID int64) ([]models.Notification, error) {
	return s.db.ListUnreadNotifications(ctx, userID)
}

func (s *Service) MarkNotificationRead(ctx context.Context, notificationID, userID int64) error {
	ok, err := s.db.MarkNotificationRead(ctx, notificationID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: notification %d", ErrNotFound, notificationID)
	}
	return nil
}

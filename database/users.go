package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ecopoints/models"
)

const userColumns = "id, email, name, phone, avatar, created_at, updated_at"

func scanUser(s scanner) (*models.User, error) {
	var u models.User
	if err := s.Scan(&u.ID, &u.Email, &u.Name, &u.Phone, &u.Avatar, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts a user and returns the stored row. A taken email
// yields ErrDuplicate.
func (q *Queries) CreateUser(ctx context.Context, email, name string) (*models.User, error) {
	result, err := q.q.ExecContext(ctx, "INSERT INTO users (email, name) VALUES (?, ?)", email, name)
	if err != nil {
		if isDuplicate(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get user id: %w", err)
	}
	return q.GetUserByID(ctx, id)
}

// GetUserByID returns nil, nil when the user does not exist.
func (q *Queries) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	u, err := scanUser(q.q.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}
	return u, nil
}

// GetUserByEmail returns nil, nil when no user has the email.
func (q *Queries) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(q.q.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return u, nil
}

// UpdateUserByEmail sets the name and, when given, the phone and avatar.
// It returns false when no user has the email.
func (q *Queries) UpdateUserByEmail(ctx context.Context, email, name string, phone, avatar *string) (bool, error) {
	result, err := q.q.ExecContext(ctx,
		"UPDATE users SET name = ?, phone = COALESCE(?, phone), avatar = COALESCE(?, avatar) WHERE email = ?",
		name, phone, avatar, email)
	if err != nil {
		return false, fmt.Errorf("failed to update user: %w", err)
	}
	return affectedOne(result)
}

// DeleteUserData removes a user and everything that references it. Claims
// the user holds on other users' reports are released, not deleted: open
// claims go back to pending, finished ones just lose the collector. Run it
// inside a transaction.
func (q *Queries) DeleteUserData(ctx context.Context, userID int64) error {
	reopened, err := q.q.ExecContext(ctx,
		"UPDATE reports SET status = ?, collector_id = NULL WHERE collector_id = ? AND status = ?",
		models.StatusPending, userID, models.StatusInProgress)
	if err != nil {
		return fmt.Errorf("failed to reopen claims of user %d: %w", userID, err)
	}
	logResult("DeleteUserData reopen claims", reopened, false)

	steps := []struct {
		what  string
		query string
	}{
		{"collected wastes by collector", "DELETE FROM collected_wastes WHERE collector_id = ?"},
		{"collected wastes of reports", "DELETE cw FROM collected_wastes cw JOIN reports r ON cw.report_id = r.id WHERE r.user_id = ?"},
		{"claims", "UPDATE reports SET collector_id = NULL WHERE collector_id = ?"},
		{"reports", "DELETE FROM reports WHERE user_id = ?"},
		{"rewards", "DELETE FROM rewards WHERE user_id = ?"},
		{"notifications", "DELETE FROM notifications WHERE user_id = ?"},
		{"transactions", "DELETE FROM transactions WHERE user_id = ?"},
	}
	for _, step := range steps {
		if _, err := q.q.ExecContext(ctx, step.query, userID); err != nil {
			return fmt.Errorf("failed to delete %s of user %d: %w", step.what, userID, err)
		}
	}

	result, err := q.q.ExecContext(ctx, "DELETE FROM users WHERE id = ?", userID)
	if err != nil {
		return fmt.Errorf("failed to delete user %d: %w", userID, err)
	}
	logResult("DeleteUserData", result, true)
	return nil
}

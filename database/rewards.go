package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ecopoints/models"
)

const rewardColumns = "id, user_id, name, collection_info, description, points, level, is_available, created_at, updated_at"

func scanReward(s scanner) (*models.Reward, error) {
	var r models.Reward
	if err := s.Scan(&r.ID, &r.UserID, &r.Name, &r.CollectionInfo, &r.Description, &r.Points, &r.Level, &r.IsAvailable, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

func (q *Queries) queryRewards(ctx context.Context, query string, args ...any) ([]models.Reward, error) {
	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rewards := make([]models.Reward, 0)
	for rows.Next() {
		r, err := scanReward(rows)
		if err != nil {
			return nil, err
		}
		rewards = append(rewards, *r)
	}
	return rewards, rows.Err()
}

// AddRewardPoints adds points to the user's reward row with the given name,
// creating the row when the user has none.
func (q *Queries) AddRewardPoints(ctx context.Context, userID int64, name, collectionInfo string, points float64) error {
	_, err := q.q.ExecContext(ctx,
		`INSERT INTO rewards (user_id, name, collection_info, points, level, is_available)
		VALUES (?, ?, ?, ?, 1, TRUE)
		ON DUPLICATE KEY UPDATE points = points + VALUES(points)`,
		userID, name, collectionInfo, points)
	if err != nil {
		return fmt.Errorf("failed to add %v points to %q of user %d: %w", points, name, userID, err)
	}
	return nil
}

// GetUserReward returns nil, nil when the user has no row with that name.
func (q *Queries) GetUserReward(ctx context.Context, userID int64, name string) (*models.Reward, error) {
	r, err := scanReward(q.q.QueryRowContext(ctx,
		"SELECT "+rewardColumns+" FROM rewards WHERE user_id = ? AND name = ?", userID, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reward %q of user %d: %w", name, userID, err)
	}
	return r, nil
}

// LockUserReward reads the user's reward row with that name and locks it
// until the surrounding transaction ends. It returns nil, nil when there is
// no such row.
func (q *Queries) LockUserReward(ctx context.Context, userID int64, name string) (*models.Reward, error) {
	r, err := scanReward(q.q.QueryRowContext(ctx,
		"SELECT "+rewardColumns+" FROM rewards WHERE user_id = ? AND name = ? FOR UPDATE", userID, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock reward %q of user %d: %w", name, userID, err)
	}
	return r, nil
}

// GetReward returns nil, nil when the reward does not exist.
func (q *Queries) GetReward(ctx context.Context, id int64) (*models.Reward, error) {
	r, err := scanReward(q.q.QueryRowContext(ctx, "SELECT "+rewardColumns+" FROM rewards WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reward %d: %w", id, err)
	}
	return r, nil
}

func (q *Queries) ListUserRewards(ctx context.Context, userID int64) ([]models.Reward, error) {
	rewards, err := q.queryRewards(ctx,
		"SELECT "+rewardColumns+" FROM rewards WHERE user_id = ? ORDER BY id", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rewards of user %d: %w", userID, err)
	}
	return rewards, nil
}

// ListAvailableRewards returns the redemption catalog.
func (q *Queries) ListAvailableRewards(ctx context.Context) ([]models.Reward, error) {
	rewards, err := q.queryRewards(ctx,
		"SELECT "+rewardColumns+" FROM rewards WHERE is_available = TRUE ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list available rewards: %w", err)
	}
	return rewards, nil
}

// ListRewardsWithUsers returns every reward row with its owner's name,
// highest points first.
func (q *Queries) ListRewardsWithUsers(ctx context.Context) ([]models.RewardWithUser, error) {
	rows, err := q.q.QueryContext(ctx,
		`SELECT r.id, r.user_id, r.points, r.level, r.created_at, u.name
		FROM rewards AS r LEFT JOIN users AS u ON r.user_id = u.id
		ORDER BY r.points DESC, r.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list rewards: %w", err)
	}
	defer rows.Close()

	rewards := make([]models.RewardWithUser, 0)
	for rows.Next() {
		var r models.RewardWithUser
		if err := rows.Scan(&r.ID, &r.UserID, &r.Points, &r.Level, &r.CreatedAt, &r.UserName); err != nil {
			return nil, fmt.Errorf("failed to scan reward: %w", err)
		}
		rewards = append(rewards, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list rewards: %w", err)
	}
	return rewards, nil
}

// SumRewardPoints returns the points held across all reward rows.
func (q *Queries) SumRewardPoints(ctx context.Context) (float64, error) {
	var total float64
	if err := q.q.QueryRowContext(ctx, "SELECT COALESCE(SUM(points), 0) FROM rewards").Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum reward points: %w", err)
	}
	return total, nil
}

// SetRewardPoints overwrites the points of a reward row.
func (q *Queries) SetRewardPoints(ctx context.Context, id int64, points float64) error {
	result, err := q.q.ExecContext(ctx, "UPDATE rewards SET points = ? WHERE id = ?", points, id)
	if err != nil {
		return fmt.Errorf("failed to set points of reward %d: %w", id, err)
	}
	logResult("SetRewardPoints", result, true)
	return nil
}

// DeductRewardPoints subtracts cost from a reward row holding at least cost.
// It returns false, leaving the row untouched, when the row holds less.
func (q *Queries) DeductRewardPoints(ctx context.Context, id int64, cost float64) (bool, error) {
	result, err := q.q.ExecContext(ctx,
		"UPDATE rewards SET points = points - ? WHERE id = ? AND points >= ?", cost, id, cost)
	if err != nil {
		return false, fmt.Errorf("failed to deduct points of reward %d: %w", id, err)
	}
	return affectedOne(result)
}

package database

import (
	"context"
	"fmt"
	"time"

	"ecopoints/models"
)

// InsertNotification stores an unread notification and returns it.
func (q *Queries) InsertNotification(ctx context.Context, userID int64, message, notificationType string) (*models.Notification, error) {
	result, err := q.q.ExecContext(ctx,
		"INSERT INTO notifications (user_id, message, type) VALUES (?, ?, ?)",
		userID, message, notificationType)
	if err != nil {
		return nil, fmt.Errorf("failed to insert notification: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get notification id: %w", err)
	}
	return &models.Notification{
		ID:        id,
		UserID:    userID,
		Message:   message,
		Type:      notificationType,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func (q *Queries) ListUnreadNotifications(ctx context.Context, userID int64) ([]models.Notification, error) {
	rows, err := q.q.QueryContext(ctx,
		`SELECT id, user_id, message, type, is_read, created_at
		FROM notifications WHERE user_id = ? AND is_read = FALSE
		ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications of user %d: %w", userID, err)
	}
	defer rows.Close()

	notifications := make([]models.Notification, 0)
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.Type, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list notifications of user %d: %w", userID, err)
	}
	return notifications, nil
}

// MarkNotificationRead returns false when the notification does not belong
// to the user.
func (q *Queries) MarkNotificationRead(ctx context.Context, id, userID int64) (bool, error) {
	result, err := q.q.ExecContext(ctx,
		"UPDATE notifications SET is_read = TRUE WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to mark notification %d read: %w", id, err)
	}
	return affectedOne(result)
}

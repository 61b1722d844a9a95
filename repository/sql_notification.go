package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/akinalp/ajans/database"
	"github.com/akinalp/ajans/models"
	"github.com/akinalp/ajans/pkg"
)

type sqlNotificationRepo struct {
	db database.TxQuerier
}

// NewSQLNotificationRepo, constructor. Interface döner.
func NewSQLNotificationRepo(db database.TxQuerier) NotificationRepository {
	return &sqlNotificationRepo{db: db}
}

const notificationColumns = `id, user_id, category, title, message, action_url, sender_id, metadata, is_read, read_at, created_at`

func (r *sqlNotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	if n.Metadata == nil {
		n.Metadata = models.Metadata{}
	}

	query := r.db.Rebind(`
		INSERT INTO notifications (` + notificationColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err := r.db.ExecContext(ctx, query,
		n.ID, n.UserID, n.Category, n.Title, n.Message, n.ActionURL, n.SenderID,
		n.Metadata, n.IsRead, n.ReadAt, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (r *sqlNotificationRepo) GetByID(ctx context.Context, id, userID string) (*models.Notification, error) {
	var n models.Notification
	err := r.db.GetContext(ctx, &n, r.db.Rebind(
		`SELECT `+notificationColumns+` FROM notifications WHERE id = ? AND user_id = ?`), id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return &n, nil
}

func (r *sqlNotificationRepo) List(ctx context.Context, userID string, params models.ListNotificationsParams) ([]models.Notification, error) {
	var where strings.Builder
	where.WriteString("user_id = ?")
	args := []any{userID}

	if params.UnreadOnly {
		where.WriteString(" AND is_read = FALSE")
	}
	if params.Before != nil {
		where.WriteString(" AND created_at < ?")
		args = append(args, params.Before.UTC())
	}
	args = append(args, clampLimit(params.Limit, 20, 101))

	query := `SELECT ` + notificationColumns + ` FROM notifications
		WHERE ` + where.String() + `
		ORDER BY created_at DESC, id DESC
		LIMIT ?`

	list := []models.Notification{}
	if err := r.db.SelectContext(ctx, &list, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return list, nil
}

func (r *sqlNotificationRepo) CountUnread(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, r.db.Rebind(
		`SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_read = FALSE`), userID)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return n, nil
}

func (r *sqlNotificationRepo) SetRead(ctx context.Context, id, userID string, read bool, at time.Time) error {
	var readAt *time.Time
	if read {
		t := at.UTC()
		readAt = &t
	}

	result, err := r.db.ExecContext(ctx, r.db.Rebind(
		`UPDATE notifications SET is_read = ?, read_at = ? WHERE id = ? AND user_id = ?`),
		read, readAt, id, userID)
	if err != nil {
		return fmt.Errorf("failed to update notification: %w", err)
	}
	return requireAffected(result, "notification")
}

func (r *sqlNotificationRepo) MarkAllRead(ctx context.Context, userID string, at time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, r.db.Rebind(
		`UPDATE notifications SET is_read = TRUE, read_at = ? WHERE user_id = ? AND is_read = FALSE`),
		at.UTC(), userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark all notifications read: %w", err)
	}
	return result.RowsAffected()
}

func (r *sqlNotificationRepo) Delete(ctx context.Context, id, userID string) error {
	result, err := r.db.ExecContext(ctx, r.db.Rebind(
		`DELETE FROM notifications WHERE id = ? AND user_id = ?`), id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	return requireAffected(result, "notification")
}

func (r *sqlNotificationRepo) ListUnreadSince(ctx context.Context, userID string, since time.Time, limit int) ([]models.Notification, error) {
	query := r.db.Rebind(`
		SELECT ` + notificationColumns + ` FROM notifications
		WHERE user_id = ? AND is_read = FALSE AND created_at > ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`)

	list := []models.Notification{}
	if err := r.db.SelectContext(ctx, &list, query, userID, since.UTC(), clampLimit(limit, 50, 200)); err != nil {
		return nil, fmt.Errorf("failed to list unread notifications: %w", err)
	}
	return list, nil
}

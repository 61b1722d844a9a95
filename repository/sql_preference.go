package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/akinalp/ajans/database"
	"github.com/akinalp/ajans/models"
	"github.com/akinalp/ajans/pkg"
)

type sqlPreferenceRepo struct {
	db database.TxQuerier
}

// NewSQLPreferenceRepo, constructor. Interface döner.
func NewSQLPreferenceRepo(db database.TxQuerier) PreferenceRepository {
	return &sqlPreferenceRepo{db: db}
}

const preferenceColumns = `user_id, email_enabled, email_task_assigned, email_project_updates,
	email_invoice_updates, email_file_shared, email_approval_requests, email_mentions,
	in_app_enabled, digest_daily, digest_weekly, updated_at`

func (r *sqlPreferenceRepo) Get(ctx context.Context, userID string) (*models.NotificationPreference, error) {
	var pref models.NotificationPreference
	err := r.db.GetContext(ctx, &pref, r.db.Rebind(
		`SELECT `+preferenceColumns+` FROM notification_preferences WHERE user_id = ?`), userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get notification preferences: %w", err)
	}
	return &pref, nil
}

func (r *sqlPreferenceRepo) Upsert(ctx context.Context, pref *models.NotificationPreference) error {
	pref.UpdatedAt = time.Now().UTC()

	query := r.db.Rebind(`
		INSERT INTO notification_preferences (` + preferenceColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			email_enabled = excluded.email_enabled,
			email_task_assigned = excluded.email_task_assigned,
			email_project_updates = excluded.email_project_updates,
			email_invoice_updates = excluded.email_invoice_updates,
			email_file_shared = excluded.email_file_shared,
			email_approval_requests = excluded.email_approval_requests,
			email_mentions = excluded.email_mentions,
			in_app_enabled = excluded.in_app_enabled,
			digest_daily = excluded.digest_daily,
			digest_weekly = excluded.digest_weekly,
			updated_at = excluded.updated_at`)

	_, err := r.db.ExecContext(ctx, query,
		pref.UserID, pref.EmailEnabled, pref.EmailTaskAssigned, pref.EmailProjectUpdates,
		pref.EmailInvoiceUpdates, pref.EmailFileShared, pref.EmailApprovalRequests, pref.EmailMentions,
		pref.InAppEnabled, pref.DigestDaily, pref.DigestWeekly, pref.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert notification preferences: %w", err)
	}
	return nil
}

func (r *sqlPreferenceRepo) ListDigestRecipients(ctx context.Context, kind models.DigestKind) ([]models.User, error) {
	var flag string
	switch kind {
	case models.DigestDaily:
		flag = "p.digest_daily"
	case models.DigestWeekly:
		flag = "p.digest_weekly"
	default:
		return nil, fmt.Errorf("%w: unknown digest kind %q", pkg.ErrBadRequest, kind)
	}

	query := `
		SELECT u.id, u.username, u.display_name, u.email, u.avatar_url, u.language, u.created_at
		FROM users u
		INNER JOIN notification_preferences p ON p.user_id = u.id
		WHERE ` + flag + ` = TRUE AND p.email_enabled = TRUE AND u.email <> ''
		ORDER BY u.id`

	users := []models.User{}
	if err := r.db.SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("failed to list digest recipients: %w", err)
	}
	return users, nil
}

type sqlDigestRepo struct {
	db database.TxQuerier
}

// NewSQLDigestRepo, constructor. Interface döner.
func NewSQLDigestRepo(db database.TxQuerier) DigestRepository {
	return &sqlDigestRepo{db: db}
}

func (r *sqlDigestRepo) LastSent(ctx context.Context, userID string, kind models.DigestKind) (time.Time, error) {
	var at time.Time
	err := r.db.GetContext(ctx, &at, r.db.Rebind(
		`SELECT last_sent_at FROM notification_digests WHERE user_id = ? AND kind = ?`), userID, kind)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, pkg.ErrNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get digest log: %w", err)
	}
	return at, nil
}

func (r *sqlDigestRepo) MarkSent(ctx context.Context, userID string, kind models.DigestKind, at time.Time) error {
	query := r.db.Rebind(`
		INSERT INTO notification_digests (user_id, kind, last_sent_at)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id, kind) DO UPDATE SET last_sent_at = excluded.last_sent_at`)

	if _, err := r.db.ExecContext(ctx, query, userID, kind, at.UTC()); err != nil {
		return fmt.Errorf("failed to record digest: %w", err)
	}
	return nil
}

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

type sqlChannelRepo struct {
	db database.TxQuerier
}

// NewSQLChannelRepo, constructor. Interface döner.
func NewSQLChannelRepo(db database.TxQuerier) ChannelRepository {
	return &sqlChannelRepo{db: db}
}

const channelColumns = `c.id, c.workspace_id, c.name, c.description, c.is_private, c.project_id,
	c.is_archived, c.created_by, c.created_at, c.updated_at`

func (r *sqlChannelRepo) Create(ctx context.Context, channel *models.Channel) error {
	query := r.db.Rebind(`
		INSERT INTO channels (id, workspace_id, name, description, is_private, project_id, is_archived, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err := r.db.ExecContext(ctx, query,
		channel.ID, channel.WorkspaceID, channel.Name, channel.Description, channel.IsPrivate,
		channel.ProjectID, channel.IsArchived, channel.CreatedBy, channel.CreatedAt, channel.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: channel already exists", pkg.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create channel: %w", err)
	}
	return nil
}

func (r *sqlChannelRepo) GetByID(ctx context.Context, id string) (*models.Channel, error) {
	var ch models.Channel
	err := r.db.GetContext(ctx, &ch, r.db.Rebind(`SELECT `+channelColumns+` FROM channels c WHERE c.id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get channel by id: %w", err)
	}
	return &ch, nil
}

func (r *sqlChannelRepo) ListVisible(ctx context.Context, workspaceID, userID string) ([]models.ChannelWithUnread, error) {
	query := r.db.Rebind(`
		SELECT ` + channelColumns + `, COALESCE(cr.unread_count, 0) AS unread_count
		FROM channels c
		LEFT JOIN channel_reads cr ON cr.channel_id = c.id AND cr.user_id = ?
		WHERE c.workspace_id = ?
		  AND (c.is_private = FALSE
		       OR EXISTS (SELECT 1 FROM channel_members cm WHERE cm.channel_id = c.id AND cm.user_id = ?))
		ORDER BY c.is_archived, c.name`)

	channels := []models.ChannelWithUnread{}
	if err := r.db.SelectContext(ctx, &channels, query, userID, workspaceID, userID); err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	return channels, nil
}

func (r *sqlChannelRepo) Update(ctx context.Context, channel *models.Channel) error {
	channel.UpdatedAt = time.Now().UTC()
	query := r.db.Rebind(`
		UPDATE channels SET name = ?, description = ?, is_private = ?, updated_at = ?
		WHERE id = ?`)

	result, err := r.db.ExecContext(ctx, query,
		channel.Name, channel.Description, channel.IsPrivate, channel.UpdatedAt, channel.ID)
	if err != nil {
		return fmt.Errorf("failed to update channel: %w", err)
	}
	return requireAffected(result, "channel")
}

func (r *sqlChannelRepo) Archive(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		r.db.Rebind(`UPDATE channels SET is_archived = TRUE, updated_at = ? WHERE id = ?`),
		time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to archive channel: %w", err)
	}
	return requireAffected(result, "channel")
}

// AddMember, idempotent: zaten üyeyse bir şey yapmaz.
func (r *sqlChannelRepo) AddMember(ctx context.Context, channelID, userID string) error {
	query := r.db.Rebind(`
		INSERT INTO channel_members (channel_id, user_id, joined_at)
		VALUES (?, ?, ?)
		ON CONFLICT (channel_id, user_id) DO NOTHING`)

	if _, err := r.db.ExecContext(ctx, query, channelID, userID, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to add channel member: %w", err)
	}
	return nil
}

func (r *sqlChannelRepo) IsMember(ctx context.Context, channelID, userID string) (bool, error) {
	var n int
	err := r.db.GetContext(ctx, &n, r.db.Rebind(
		`SELECT COUNT(*) FROM channel_members WHERE channel_id = ? AND user_id = ?`), channelID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to check channel membership: %w", err)
	}
	return n > 0, nil
}

func (r *sqlChannelRepo) ListMemberIDs(ctx context.Context, channelID string) ([]string, error) {
	ids := []string{}
	err := r.db.SelectContext(ctx, &ids, r.db.Rebind(
		`SELECT user_id FROM channel_members WHERE channel_id = ? ORDER BY user_id`), channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to list channel members: %w", err)
	}
	return ids, nil
}

// requireAffected, hiç satır etkilenmediyse ErrNotFound döner.
func requireAffected(result sql.Result, entity string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", pkg.ErrNotFound, entity)
	}
	return nil
}

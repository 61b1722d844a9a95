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

type sqlReadStateRepo struct {
	db database.TxQuerier
}

// NewSQLReadStateRepo, constructor. Interface döner.
func NewSQLReadStateRepo(db database.TxQuerier) ReadStateRepository {
	return &sqlReadStateRepo{db: db}
}

const readStateColumns = `user_id, channel_id, unread_count, last_read_seq, last_read_message_id, last_read_at`

// IncrementUnread, INSERT ... SELECT ile üye listesinden upsert yapar.
// SQLite'ta SELECT'teki WHERE, ON CONFLICT'in JOIN olarak parse edilmesini önler.
func (r *sqlReadStateRepo) IncrementUnread(ctx context.Context, channelID, authorID string) error {
	query := r.db.Rebind(`
		INSERT INTO channel_reads (user_id, channel_id, unread_count, last_read_seq)
		SELECT cm.user_id, cm.channel_id, 1, 0
		FROM channel_members cm
		WHERE cm.channel_id = ? AND cm.user_id <> ?
		ON CONFLICT (user_id, channel_id)
		DO UPDATE SET unread_count = channel_reads.unread_count + 1`)

	if _, err := r.db.ExecContext(ctx, query, channelID, authorID); err != nil {
		return fmt.Errorf("failed to increment unread counters: %w", err)
	}
	return nil
}

func (r *sqlReadStateRepo) MarkRead(ctx context.Context, userID string, msg *models.Message) (bool, error) {
	query := r.db.Rebind(`
		INSERT INTO channel_reads (user_id, channel_id, unread_count, last_read_seq, last_read_message_id, last_read_at)
		VALUES (?, ?,
			(SELECT COUNT(*) FROM messages WHERE channel_id = ? AND seq > ? AND user_id <> ?),
			?, ?, ?)
		ON CONFLICT (user_id, channel_id) DO UPDATE SET
			unread_count = excluded.unread_count,
			last_read_seq = excluded.last_read_seq,
			last_read_message_id = excluded.last_read_message_id,
			last_read_at = excluded.last_read_at
		WHERE excluded.last_read_seq > channel_reads.last_read_seq`)

	result, err := r.db.ExecContext(ctx, query,
		userID, msg.ChannelID,
		msg.ChannelID, msg.Seq, userID,
		msg.Seq, msg.ID, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("failed to mark channel read: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check affected rows: %w", err)
	}
	return affected > 0, nil
}

func (r *sqlReadStateRepo) Get(ctx context.Context, userID, channelID string) (*models.ReadState, error) {
	var rs models.ReadState
	err := r.db.GetContext(ctx, &rs, r.db.Rebind(
		`SELECT `+readStateColumns+` FROM channel_reads WHERE user_id = ? AND channel_id = ?`), userID, channelID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get read state: %w", err)
	}
	return &rs, nil
}

func (r *sqlReadStateRepo) ListByChannel(ctx context.Context, channelID string) ([]models.ReadState, error) {
	states := []models.ReadState{}
	err := r.db.SelectContext(ctx, &states, r.db.Rebind(
		`SELECT `+readStateColumns+` FROM channel_reads WHERE channel_id = ? ORDER BY user_id`), channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to list read states: %w", err)
	}
	return states, nil
}

// GetUnreadCounts, sadece okunmamışı olan kanalları döner.
func (r *sqlReadStateRepo) GetUnreadCounts(ctx context.Context, userID, workspaceID string) ([]models.UnreadInfo, error) {
	query := r.db.Rebind(`
		SELECT cr.channel_id, cr.unread_count
		FROM channel_reads cr
		INNER JOIN channels c ON c.id = cr.channel_id
		WHERE cr.user_id = ? AND c.workspace_id = ? AND cr.unread_count > 0
		ORDER BY cr.channel_id`)

	unreads := []models.UnreadInfo{}
	if err := r.db.SelectContext(ctx, &unreads, query, userID, workspaceID); err != nil {
		return nil, fmt.Errorf("failed to get unread counts: %w", err)
	}
	return unreads, nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/akinalp/ajans/database"
	"github.com/akinalp/ajans/models"
	"github.com/akinalp/ajans/pkg"
)

// appendAttempts, eşzamanlı append'lerde seq çakışması için deneme sayısı.
// Aynı instance'ta append'ler zaten sıralıdır; çakışma ancak birden fazla
// instance aynı kanala yazarken olur.
const appendAttempts = 3

type sqlMessageRepo struct {
	db *sqlx.DB
}

// NewSQLMessageRepo, constructor. Append kendi transaction'ını açtığı için *sqlx.DB alır.
func NewSQLMessageRepo(db *sqlx.DB) MessageRepository {
	return &sqlMessageRepo{db: db}
}

const messageSelect = `
	SELECT m.id, m.channel_id, m.user_id, m.seq, m.body, m.attachments, m.created_at,
	       u.id AS author_id, u.username AS author_username, u.display_name AS author_display_name,
	       u.avatar_url AS author_avatar_url
	FROM messages m
	LEFT JOIN users u ON u.id = m.user_id`

// messageRow, LEFT JOIN sonucu. Yazar silinmiş olabilir, o yüzden NullString.
type messageRow struct {
	models.Message
	AuthorID          sql.NullString `db:"author_id"`
	AuthorUsername    sql.NullString `db:"author_username"`
	AuthorDisplayName sql.NullString `db:"author_display_name"`
	AuthorAvatarURL   sql.NullString `db:"author_avatar_url"`
}

func (row messageRow) toModel() models.Message {
	msg := row.Message
	if row.AuthorID.Valid {
		msg.Author = &models.User{
			ID:          row.AuthorID.String,
			Username:    row.AuthorUsername.String,
			DisplayName: row.AuthorDisplayName.String,
			AvatarURL:   row.AuthorAvatarURL.String,
		}
	}
	return msg
}

func (r *sqlMessageRepo) Append(ctx context.Context, msg *models.Message, mentions []string) error {
	var err error
	for attempt := 0; attempt < appendAttempts; attempt++ {
		err = database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
			return r.appendTx(ctx, tx, msg, mentions)
		})
		if err == nil || !isUniqueViolation(err) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

func (r *sqlMessageRepo) appendTx(ctx context.Context, tx *sqlx.Tx, msg *models.Message, mentions []string) error {
	var maxSeq int64
	if err := tx.GetContext(ctx, &maxSeq,
		tx.Rebind(`SELECT COALESCE(MAX(seq), 0) FROM messages WHERE channel_id = ?`), msg.ChannelID); err != nil {
		return err
	}
	msg.Seq = maxSeq + 1

	if msg.Attachments == nil {
		msg.Attachments = models.Attachments{}
	}

	_, err := tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO messages (id, channel_id, user_id, seq, body, attachments, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		msg.ID, msg.ChannelID, msg.UserID, msg.Seq, msg.Body, msg.Attachments, msg.CreatedAt)
	if err != nil {
		return err
	}

	return NewSQLMentionRepo(tx).SaveMentions(ctx, msg.ID, mentions)
}

func (r *sqlMessageRepo) GetByID(ctx context.Context, id string) (*models.Message, error) {
	var row messageRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(messageSelect+` WHERE m.id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message by id: %w", err)
	}
	msg := row.toModel()
	return &msg, nil
}

func (r *sqlMessageRepo) ListLatest(ctx context.Context, channelID string, limit int) ([]models.Message, error) {
	return r.list(ctx, messageSelect+`
		WHERE m.channel_id = ?
		ORDER BY m.seq DESC
		LIMIT ?`, channelID, limit)
}

func (r *sqlMessageRepo) ListBefore(ctx context.Context, channelID string, beforeSeq int64, limit int) ([]models.Message, error) {
	return r.list(ctx, messageSelect+`
		WHERE m.channel_id = ? AND m.seq < ?
		ORDER BY m.seq DESC
		LIMIT ?`, channelID, beforeSeq, limit)
}

func (r *sqlMessageRepo) Latest(ctx context.Context, channelID string) (*models.Message, error) {
	msgs, err := r.ListLatest(ctx, channelID, 1)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, fmt.Errorf("%w: channel has no messages", pkg.ErrNotFound)
	}
	return &msgs[0], nil
}

// list, DESC okunan satırları artan sıraya çevirir.
func (r *sqlMessageRepo) list(ctx context.Context, query string, args ...any) ([]models.Message, error) {
	var rows []messageRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	messages := make([]models.Message, len(rows))
	for i, row := range rows {
		messages[len(rows)-1-i] = row.toModel()
	}
	return messages, nil
}

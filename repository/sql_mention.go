package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/akinalp/ajans/database"
)

type sqlMentionRepo struct {
	db database.TxQuerier
}

// NewSQLMentionRepo, constructor. Interface döner.
func NewSQLMentionRepo(db database.TxQuerier) MentionRepository {
	return &sqlMentionRepo{db: db}
}

// SaveMentions, tek multi-row INSERT ile yazar. userIDs sırası position
// olarak saklanır; tekrar eden çiftler atlanır.
func (r *sqlMentionRepo) SaveMentions(ctx context.Context, messageID string, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}

	placeholders := make([]string, len(userIDs))
	args := make([]any, 0, len(userIDs)*2)
	for i, uid := range userIDs {
		placeholders[i] = "(?, ?, ?)"
		args = append(args, messageID, uid, i)
	}

	query := fmt.Sprintf(
		"INSERT INTO message_mentions (message_id, user_id, position) VALUES %s ON CONFLICT (message_id, user_id) DO NOTHING",
		strings.Join(placeholders, ", "),
	)

	if _, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("failed to save mentions: %w", err)
	}
	return nil
}

func (r *sqlMentionRepo) GetByMessageIDs(ctx context.Context, messageIDs []string) (map[string][]string, error) {
	result := make(map[string][]string, len(messageIDs))
	if len(messageIDs) == 0 {
		return result, nil
	}

	query, args, err := sqlx.In(
		`SELECT message_id, user_id FROM message_mentions WHERE message_id IN (?) ORDER BY message_id, position`,
		messageIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build mention batch query: %w", err)
	}

	var rows []struct {
		MessageID string `db:"message_id"`
		UserID    string `db:"user_id"`
	}
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to get mentions by message ids: %w", err)
	}

	for _, row := range rows {
		result[row.MessageID] = append(result[row.MessageID], row.UserID)
	}
	return result, nil
}

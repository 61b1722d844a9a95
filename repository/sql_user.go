package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/akinalp/ajans/database"
	"github.com/akinalp/ajans/models"
	"github.com/akinalp/ajans/pkg"
)

type sqlUserRepo struct {
	db database.TxQuerier
}

// NewSQLUserRepo, constructor. Interface döner.
func NewSQLUserRepo(db database.TxQuerier) UserRepository {
	return &sqlUserRepo{db: db}
}

const userColumns = `id, username, display_name, email, avatar_url, language, created_at`

func (r *sqlUserRepo) Upsert(ctx context.Context, user *models.User) error {
	user.Username = strings.ToLower(user.Username)
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	if user.Language == "" {
		user.Language = "en"
	}

	query := r.db.Rebind(`
		INSERT INTO users (id, username, display_name, email, avatar_url, language, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			username = excluded.username,
			display_name = excluded.display_name,
			email = excluded.email,
			avatar_url = excluded.avatar_url,
			language = excluded.language`)

	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Username, user.DisplayName, user.Email, user.AvatarURL, user.Language, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: username already taken", pkg.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

func (r *sqlUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, r.db.Rebind(`SELECT `+userColumns+` FROM users WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return &user, nil
}

// GetByIDs, batch lookup (N+1 önleme). Bulunamayan ID'ler map'te yer almaz.
func (r *sqlUserRepo) GetByIDs(ctx context.Context, ids []string) (map[string]models.User, error) {
	result := make(map[string]models.User, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	query, args, err := sqlx.In(`SELECT `+userColumns+` FROM users WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build user batch query: %w", err)
	}

	var users []models.User
	if err := r.db.SelectContext(ctx, &users, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to get users by ids: %w", err)
	}
	for _, u := range users {
		result[u.ID] = u
	}
	return result, nil
}

func (r *sqlUserRepo) AddWorkspaceMember(ctx context.Context, member *models.WorkspaceMember) error {
	if member.JoinedAt.IsZero() {
		member.JoinedAt = time.Now().UTC()
	}
	if member.Role == "" {
		member.Role = "member"
	}

	query := r.db.Rebind(`
		INSERT INTO workspace_members (workspace_id, user_id, role, joined_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (workspace_id, user_id) DO UPDATE SET role = excluded.role`)

	if _, err := r.db.ExecContext(ctx, query, member.WorkspaceID, member.UserID, member.Role, member.JoinedAt); err != nil {
		return fmt.Errorf("failed to add workspace member: %w", err)
	}
	return nil
}

func (r *sqlUserRepo) IsWorkspaceMember(ctx context.Context, workspaceID, userID string) (bool, error) {
	var n int
	err := r.db.GetContext(ctx, &n, r.db.Rebind(
		`SELECT COUNT(*) FROM workspace_members WHERE workspace_id = ? AND user_id = ?`), workspaceID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to check workspace membership: %w", err)
	}
	return n > 0, nil
}

func (r *sqlUserRepo) ListWorkspaceMembers(ctx context.Context, workspaceID string) ([]models.User, error) {
	query := r.db.Rebind(`
		SELECT u.id, u.username, u.display_name, u.email, u.avatar_url, u.language, u.created_at
		FROM users u
		INNER JOIN workspace_members wm ON wm.user_id = u.id
		WHERE wm.workspace_id = ?
		ORDER BY u.username`)

	users := []models.User{}
	if err := r.db.SelectContext(ctx, &users, query, workspaceID); err != nil {
		return nil, fmt.Errorf("failed to list workspace members: %w", err)
	}
	return users, nil
}

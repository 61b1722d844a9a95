package repository

import (
	"context"

	"github.com/akinalp/ajans/models"
)

// UserRepository, kullanıcı ve workspace üyeliği erişimi.
//
// Kullanıcı kayıtları kimlik servisinden Upsert ile senkronlanır; bu servis
// kullanıcı oluşturmaz, şifre veya oturum tutmaz.
type UserRepository interface {
	Upsert(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]models.User, error)
	AddWorkspaceMember(ctx context.Context, member *models.WorkspaceMember) error
	IsWorkspaceMember(ctx context.Context, workspaceID, userID string) (bool, error)
	// ListWorkspaceMembers, mention çözümlemesinin dizinini oluşturur.
	ListWorkspaceMembers(ctx context.Context, workspaceID string) ([]models.User, error)
}

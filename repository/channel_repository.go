package repository

import (
	"context"

	"github.com/akinalp/ajans/models"
)

// ChannelRepository, kanal ve kanal üyeliği erişimi.
//
// Kanallar silinmez; Archive ile arşivlenir.
type ChannelRepository interface {
	Create(ctx context.Context, channel *models.Channel) error
	GetByID(ctx context.Context, id string) (*models.Channel, error)
	// ListVisible, kullanıcının görebildiği kanallar (public + üyesi olduğu private),
	// okunmamış sayılarıyla birlikte.
	ListVisible(ctx context.Context, workspaceID, userID string) ([]models.ChannelWithUnread, error)
	Update(ctx context.Context, channel *models.Channel) error
	Archive(ctx context.Context, id string) error
	AddMember(ctx context.Context, channelID, userID string) error
	IsMember(ctx context.Context, channelID, userID string) (bool, error)
	ListMemberIDs(ctx context.Context, channelID string) ([]string, error)
}

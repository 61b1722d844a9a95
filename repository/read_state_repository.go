package repository

import (
	"context"

	"github.com/akinalp/ajans/models"
)

// ReadStateRepository, kullanıcı × kanal okunmamış sayaçları.
//
// Watermark: last_read_seq hiçbir zaman geri gitmez, unread_count hiçbir
// zaman negatif olmaz.
type ReadStateRepository interface {
	// IncrementUnread, kanalın yazar dışındaki tüm üyelerinin sayacını tek
	// upsert ile bir artırır.
	IncrementUnread(ctx context.Context, channelID, authorID string) error
	// MarkRead, watermark'ı msg'ye ilerletir ve sayacı msg'den sonraki,
	// kullanıcının kendisinin yazmadığı mesaj sayısına eşitler. Watermark
	// zaten msg'de veya ilerideyse hiçbir şey yapmaz ve false döner.
	MarkRead(ctx context.Context, userID string, msg *models.Message) (bool, error)
	Get(ctx context.Context, userID, channelID string) (*models.ReadState, error)
	ListByChannel(ctx context.Context, channelID string) ([]models.ReadState, error)
	GetUnreadCounts(ctx context.Context, userID, workspaceID string) ([]models.UnreadInfo, error)
}

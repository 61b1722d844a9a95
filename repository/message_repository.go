package repository

import (
	"context"

	"github.com/akinalp/ajans/models"
)

// MessageRepository, kanal mesajlarının append ve aralık okuma erişimi.
//
// Mesajlar değişmezdir: güncelleme ve silme yoktur. Sıralama ve pencere
// cursor'ı kanal içi seq üzerinden yapılır.
type MessageRepository interface {
	// Append, mesaja sıradaki seq'i atar, mesajı ve mention kayıtlarını
	// tek transaction'da yazar. msg.Seq doldurulur.
	Append(ctx context.Context, msg *models.Message, mentions []string) error
	GetByID(ctx context.Context, id string) (*models.Message, error)
	// ListLatest, kanalın en yeni limit mesajını artan sırada döner.
	ListLatest(ctx context.Context, channelID string, limit int) ([]models.Message, error)
	// ListBefore, seq'i beforeSeq'ten küçük en yeni limit mesajı artan sırada döner.
	ListBefore(ctx context.Context, channelID string, beforeSeq int64, limit int) ([]models.Message, error)
	// Latest, kanalın son mesajı. Mesaj yoksa ErrNotFound.
	Latest(ctx context.Context, channelID string) (*models.Message, error)
}

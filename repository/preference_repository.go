package repository

import (
	"context"
	"time"

	"github.com/akinalp/ajans/models"
)

// PreferenceRepository, kullanıcı başına tek satırlık bildirim tercihleri.
// Kaydı olmayan kullanıcı için Get ErrNotFound döner; varsayılanlar servis katmanında uygulanır.
type PreferenceRepository interface {
	Get(ctx context.Context, userID string) (*models.NotificationPreference, error)
	Upsert(ctx context.Context, pref *models.NotificationPreference) error
	// ListDigestRecipients, kind özetine abone ve email şalteri açık kullanıcılar.
	ListDigestRecipients(ctx context.Context, kind models.DigestKind) ([]models.User, error)
}

// DigestRepository, özet email'lerinin son gönderim zamanları.
type DigestRepository interface {
	LastSent(ctx context.Context, userID string, kind models.DigestKind) (time.Time, error)
	MarkSent(ctx context.Context, userID string, kind models.DigestKind, at time.Time) error
}

package repository

import (
	"context"
	"time"

	"github.com/akinalp/ajans/models"
)

// NotificationRepository, alıcı bazlı kalıcı bildirim kayıtları.
//
// Okuma/güncelleme/silme her zaman userID ile kapsamlanır; başka bir
// kullanıcının bildirimi ErrNotFound döner.
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	GetByID(ctx context.Context, id, userID string) (*models.Notification, error)
	// List, en yeniden eskiye. params.Limit satırdan fazlası dönmez.
	List(ctx context.Context, userID string, params models.ListNotificationsParams) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	SetRead(ctx context.Context, id, userID string, read bool, at time.Time) error
	MarkAllRead(ctx context.Context, userID string, at time.Time) (int64, error)
	Delete(ctx context.Context, id, userID string) error
	// ListUnreadSince, özet email'i için since'ten sonra oluşmuş okunmamış bildirimler.
	ListUnreadSince(ctx context.Context, userID string, since time.Time, limit int) ([]models.Notification, error)
}

// Package main — Service katmanı başlatma.
//
// initServices, tüm service'leri ve arka plan bileşenlerini (email kuyruğu,
// özet zamanlayıcısı, rate limiter) oluşturur.
//
// Sıralama kritiktir:
//   - EmailDispatcher ve PreferenceService → NotificationService'den ÖNCE
//   - NotificationService ve ReadStateService → MessageService'den ÖNCE
//     (mesaj gönderimi unread sayaçlarını ve mention bildirimlerini tetikler)
package main

import (
	"fmt"
	"io/fs"

	"go.uber.org/zap"

	"github.com/akinalp/ajans/config"
	"github.com/akinalp/ajans/models"
	"github.com/akinalp/ajans/pkg/cache"
	"github.com/akinalp/ajans/pkg/email"
	"github.com/akinalp/ajans/pkg/i18n"
	"github.com/akinalp/ajans/pkg/ratelimit"
	"github.com/akinalp/ajans/services"
	"github.com/akinalp/ajans/ws"
)

// Services, tüm service instance'larını tutan container struct.
type Services struct {
	Auth         services.AuthService
	Channel      services.ChannelService
	Message      services.MessageService
	ReadState    services.ReadStateService
	Notification services.NotificationService
	Preference   services.PreferenceService
	Digest       services.DigestService
}

// Background, shutdown sırasında durdurulması gereken bileşenler.
type Background struct {
	Emails         *services.EmailDispatcher
	Digest         services.DigestService
	MessageLimiter *ratelimit.MessageRateLimiter
	// PrefCache, ttl 0 ise nil.
	PrefCache *cache.TTLCache[string, models.NotificationPreference]
}

// Close, özet döngülerini durdurur, email kuyruğunu boşaltır ve limiter ile
// cache'in temizleme goroutine'lerini kapatır.
func (b *Background) Close() {
	b.Digest.Stop()
	b.Emails.Close()
	b.MessageLimiter.Close()
	if b.PrefCache != nil {
		b.PrefCache.Close()
	}
}

// initServices, tüm service'leri oluşturur ve özet zamanlayıcısını başlatır.
func initServices(repos *Repositories, hub ws.EventPublisher, cfg *config.Config, log *zap.Logger) (*Services, *Background, error) {
	// ─── Email ───
	sender, err := email.NewSender(cfg.Email, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create email sender: %w", err)
	}
	log.Info("email transport ready", zap.String("provider", cfg.Email.Provider))

	localesFS, err := fs.Sub(i18n.EmbeddedLocales, "locales")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open embedded locales: %w", err)
	}
	bundle, err := i18n.Load(localesFS, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load translations: %w", err)
	}

	renderer, err := email.NewRenderer(bundle, cfg.Email.AppURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create email renderer: %w", err)
	}

	dispatcher := services.NewEmailDispatcher(sender, services.DispatcherConfig{
		Workers:    cfg.Notify.EmailWorkers,
		QueueSize:  cfg.Notify.EmailQueueSize,
		Timeout:    cfg.Notify.EmailTimeout,
		RatePerSec: cfg.Notify.EmailRatePerSec,
	}, log)

	// ─── Bildirimler ───
	prefCache := services.NewPreferenceCache(cfg.Notify.PrefCacheTTL)
	preferenceService := services.NewPreferenceService(repos.Preference, prefCache, log)

	notificationService := services.NewNotificationService(
		repos.Notification, repos.User, preferenceService, hub, dispatcher, renderer, log,
	)

	digestService, err := services.NewDigestService(
		repos.Preference, repos.Digest, repos.Notification, renderer, dispatcher,
		cfg.Notify.DigestDailyCron, cfg.Notify.DigestWeeklyCron, log,
	)
	if err != nil {
		dispatcher.Close()
		if prefCache != nil {
			prefCache.Close()
		}
		return nil, nil, err
	}

	// ─── Mesajlaşma ───
	readStateService := services.NewReadStateService(
		repos.ReadState, repos.Message, repos.Channel, repos.User, hub, log,
	)

	messageService := services.NewMessageService(
		repos.Message, repos.Mention, repos.Channel, repos.User,
		readStateService, notificationService, hub, cfg.Chat.GroupGap, log,
	)

	svcs := &Services{
		Auth:         services.NewAuthService(repos.User, cfg.JWT.Secret),
		Channel:      services.NewChannelService(repos.Channel, repos.User),
		Message:      messageService,
		ReadState:    readStateService,
		Notification: notificationService,
		Preference:   preferenceService,
		Digest:       digestService,
	}

	digestService.Start()

	bg := &Background{
		Emails:    dispatcher,
		Digest:    digestService,
		PrefCache: prefCache,
		MessageLimiter: ratelimit.NewMessageRateLimiter(ratelimit.Limits{
			Max:      cfg.Chat.MessageLimit,
			Window:   cfg.Chat.MessageWindow,
			Cooldown: cfg.Chat.MessageCooldown,
		}),
	}

	return svcs, bg, nil
}

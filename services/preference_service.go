package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/akinalp/ajans/models"
	"github.com/akinalp/ajans/pkg"
	"github.com/akinalp/ajans/pkg/cache"
	"github.com/akinalp/ajans/repository"
)

// PreferenceService, bildirim tercihlerinin okunması ve güncellenmesi.
type PreferenceService interface {
	// Get, kullanıcının tercihlerini döner. Kayıt yoksa varsayılanlar.
	Get(ctx context.Context, userID string) (*models.NotificationPreference, error)
	// Effective, fan-out için hiç hata dönmeyen okuma: depo hatasında da
	// varsayılanlara düşer ve loglar.
	Effective(ctx context.Context, userID string) models.NotificationPreference
	// Update, gönderilen alanları uygular. Eşzamanlı güncellemelerde son yazan kazanır.
	Update(ctx context.Context, userID string, req *models.UpdatePreferenceRequest) (*models.NotificationPreference, error)
}

type preferenceService struct {
	repo  repository.PreferenceRepository
	cache *cache.TTLCache[string, models.NotificationPreference]
	log   *zap.Logger
}

// NewPreferenceService, ttl süreli cache ile servis oluşturur. ttl 0 ise cache kapalıdır.
func NewPreferenceService(
	repo repository.PreferenceRepository,
	prefCache *cache.TTLCache[string, models.NotificationPreference],
	log *zap.Logger,
) PreferenceService {
	return &preferenceService{
		repo:  repo,
		cache: prefCache,
		log:   log.Named("preferences"),
	}
}

// NewPreferenceCache, servis için TTL cache oluşturur.
func NewPreferenceCache(ttl time.Duration) *cache.TTLCache[string, models.NotificationPreference] {
	if ttl <= 0 {
		return nil
	}
	return cache.New[string, models.NotificationPreference](ttl, 5*ttl)
}

func (s *preferenceService) Get(ctx context.Context, userID string) (*models.NotificationPreference, error) {
	if s.cache == nil {
		return s.load(ctx, userID)
	}

	pref, err := s.cache.GetOrLoad(userID, func() (models.NotificationPreference, error) {
		p, err := s.load(ctx, userID)
		if err != nil {
			return models.NotificationPreference{}, err
		}
		return *p, nil
	})
	if err != nil {
		return nil, err
	}
	return &pref, nil
}

// load, depodan okur; kayıt yoksa varsayılanlar.
func (s *preferenceService) load(ctx context.Context, userID string) (*models.NotificationPreference, error) {
	pref, err := s.repo.Get(ctx, userID)
	if errors.Is(err, pkg.ErrNotFound) {
		def := models.DefaultPreference(userID)
		return &def, nil
	}
	if err != nil {
		return nil, err
	}
	return pref, nil
}

func (s *preferenceService) Effective(ctx context.Context, userID string) models.NotificationPreference {
	pref, err := s.Get(ctx, userID)
	if err != nil {
		s.log.Warn("preference lookup failed, using defaults", zap.String("user_id", userID), zap.Error(err))
		return models.DefaultPreference(userID)
	}
	return *pref
}

func (s *preferenceService) Update(ctx context.Context, userID string, req *models.UpdatePreferenceRequest) (*models.NotificationPreference, error) {
	current, err := s.repo.Get(ctx, userID)
	if errors.Is(err, pkg.ErrNotFound) {
		def := models.DefaultPreference(userID)
		current = &def
	} else if err != nil {
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}

	req.Apply(current)
	if err := s.repo.Upsert(ctx, current); err != nil {
		return nil, err
	}

	// Yazılan değer cache'e konur; upsert'ten önce başlamış bir okuma
	// eski satırı geri yazamaz.
	if s.cache != nil {
		s.cache.Set(userID, *current)
	}
	return current, nil
}

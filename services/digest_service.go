// Package services — DigestService, günlük/haftalık özet email'leri.
//
// Tercihlerinde digest açık olan kullanıcılara, son özetten bu yana gelen
// okunmamış bildirimler tek email'de gönderilir. Hiç yeni bildirimi olmayan
// kullanıcı atlanır.
//
// Goroutine pattern: her digest türü için ayrı döngü. Bir sonraki çalışma
// zamanı cron ifadesinden gronx ile hesaplanır, timer + stopCh ile beklenir.
// Graceful shutdown: main.go'da digest.Stop() çağrılır.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/adhocore/gronx"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/akinalp/ajans/models"
	"github.com/akinalp/ajans/pkg"
	"github.com/akinalp/ajans/pkg/email"
	"github.com/akinalp/ajans/pkg/metrics"
	"github.com/akinalp/ajans/repository"
)

// maxDigestItems, tek özet email'inde listelenen en fazla bildirim.
const maxDigestItems = 50

// DigestRenderer, özet email'inin yerelleştirilmiş içeriğini üretir.
type DigestRenderer interface {
	Digest(lang, kind, recipientName string, items []email.DigestItem) (email.Message, error)
}

// DigestService, özet email zamanlayıcısı.
type DigestService interface {
	// Start, cron döngülerini başlatır.
	Start()
	// Stop, döngüleri durdurur ve çıkmalarını bekler.
	Stop()
	// RunOnce, verilen tür için tüm abonelere özet gönderir; kuyruğa alınan email sayısını döner.
	RunOnce(ctx context.Context, kind models.DigestKind) (int, error)
}

type digestService struct {
	prefRepo   repository.PreferenceRepository
	digestRepo repository.DigestRepository
	notifRepo  repository.NotificationRepository
	renderer   DigestRenderer
	emails     EmailQueue
	schedules  map[models.DigestKind]string
	log        *zap.Logger
	now        func() time.Time

	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
}

// NewDigestService, cron ifadelerini doğrular.
func NewDigestService(
	prefRepo repository.PreferenceRepository,
	digestRepo repository.DigestRepository,
	notifRepo repository.NotificationRepository,
	renderer DigestRenderer,
	emails EmailQueue,
	dailyCron, weeklyCron string,
	log *zap.Logger,
) (DigestService, error) {
	schedules := map[models.DigestKind]string{
		models.DigestDaily:  dailyCron,
		models.DigestWeekly: weeklyCron,
	}

	g := gronx.New()
	for kind, expr := range schedules {
		if expr == "" {
			delete(schedules, kind)
			continue
		}
		if !g.IsValid(expr) {
			return nil, fmt.Errorf("invalid %s digest cron expression %q", kind, expr)
		}
	}

	return &digestService{
		prefRepo:   prefRepo,
		digestRepo: digestRepo,
		notifRepo:  notifRepo,
		renderer:   renderer,
		emails:     emails,
		schedules:  schedules,
		log:        log.Named("digest"),
		now:        time.Now,
	}, nil
}

func (s *digestService) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return
	}
	s.started = true
	// Her Start yeni bir stop channel'ı alır; Stop'tan sonra tekrar başlatılabilir.
	s.stopCh = make(chan struct{})

	for kind, expr := range s.schedules {
		s.wg.Add(1)
		go s.loop(kind, expr, s.stopCh)
	}
}

func (s *digestService) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *digestService) loop(kind models.DigestKind, expr string, stopCh <-chan struct{}) {
	defer s.wg.Done()

	s.log.Info("digest schedule started", zap.String("kind", string(kind)), zap.String("cron", expr))

	for {
		next, err := gronx.NextTickAfter(expr, s.now(), false)
		if err != nil {
			s.log.Error("failed to compute next digest run", zap.String("kind", string(kind)), zap.Error(err))
			return
		}

		timer := time.NewTimer(time.Until(next))
		select {
		case <-timer.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			sent, err := s.RunOnce(ctx, kind)
			cancel()
			if err != nil {
				s.log.Error("digest run failed", zap.String("kind", string(kind)), zap.Error(err))
			} else {
				s.log.Info("digest run finished", zap.String("kind", string(kind)), zap.Int("queued", sent))
			}
		case <-stopCh:
			timer.Stop()
			s.log.Info("digest schedule stopped", zap.String("kind", string(kind)))
			return
		}
	}
}

// digestPeriod, daha önce özet almamış kullanıcı için geriye bakılacak süre.
func digestPeriod(kind models.DigestKind) time.Duration {
	if kind == models.DigestWeekly {
		return 7 * 24 * time.Hour
	}
	return 24 * time.Hour
}

func (s *digestService) RunOnce(ctx context.Context, kind models.DigestKind) (int, error) {
	users, err := s.prefRepo.ListDigestRecipients(ctx, kind)
	if err != nil {
		return 0, err
	}

	queued := 0
	for i := range users {
		if err := ctx.Err(); err != nil {
			return queued, err
		}

		ok, err := s.sendOne(ctx, kind, &users[i])
		if err != nil {
			// Tek kullanıcının hatası diğerlerini durdurmaz.
			s.log.Error("digest failed for user",
				zap.String("kind", string(kind)), zap.String("user_id", users[i].ID), zap.Error(err))
			continue
		}
		if ok {
			queued++
		}
	}
	return queued, nil
}

func (s *digestService) sendOne(ctx context.Context, kind models.DigestKind, user *models.User) (bool, error) {
	now := s.now().UTC()

	since, err := s.digestRepo.LastSent(ctx, user.ID, kind)
	if errors.Is(err, pkg.ErrNotFound) {
		since = now.Add(-digestPeriod(kind))
	} else if err != nil {
		return false, err
	}

	list, err := s.notifRepo.ListUnreadSince(ctx, user.ID, since, maxDigestItems)
	if err != nil {
		return false, err
	}
	if len(list) == 0 {
		return false, nil
	}

	items := make([]email.DigestItem, len(list))
	for i, n := range list {
		items[i] = email.DigestItem{
			Category: string(n.Category),
			Title:    n.Title,
			Body:     n.Message,
			When:     humanize.RelTime(n.CreatedAt, now, "ago", "from now"),
		}
		if n.ActionURL != nil {
			items[i].ActionURL = *n.ActionURL
		}
	}

	msg, err := s.renderer.Digest(user.Language, string(kind), user.Name(), items)
	if err != nil {
		return false, fmt.Errorf("failed to render digest: %w", err)
	}
	msg.To = user.Email

	if !s.emails.Enqueue(EmailJob{UserID: user.ID, Kind: "digest", Message: msg}) {
		return false, fmt.Errorf("%w: email queue rejected digest", pkg.ErrTransportFailure)
	}

	if err := s.digestRepo.MarkSent(ctx, user.ID, kind, now); err != nil {
		return false, err
	}
	metrics.DigestsSent.WithLabelValues(string(kind)).Inc()
	return true, nil
}

package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/akinalp/ajans/pkg"
	"github.com/akinalp/ajans/pkg/email"
	"github.com/akinalp/ajans/pkg/metrics"
)

// EmailJob, kuyruğa alınmış tek bir email.
type EmailJob struct {
	UserID  string
	Kind    string // "notification", "digest"
	Message email.Message
}

// EmailQueue, fire-and-forget email gönderimi. Enqueue bloklamaz; kuyruk
// doluysa ya da kapanmışsa false döner.
type EmailQueue interface {
	Enqueue(job EmailJob) bool
}

// DispatcherConfig, EmailDispatcher ayarları.
type DispatcherConfig struct {
	Workers    int
	QueueSize  int
	Timeout    time.Duration
	RatePerSec float64 // <= 0 ise sınırsız
}

// EmailDispatcher, sınırlı kuyruk + worker pool ile email gönderir.
//
// Her gönderim kendi timeout'uyla çalışır. Başarısız gönderimler
// pkg.ErrTransportFailure ile sarılıp loglanır ve sayılır; bildirimi
// tetikleyen işleme geri yansımaz.
type EmailDispatcher struct {
	sender  email.Sender
	jobs    chan EmailJob
	limiter *rate.Limiter
	timeout time.Duration
	log     *zap.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewEmailDispatcher, worker'ları başlatır.
func NewEmailDispatcher(sender email.Sender, cfg DispatcherConfig, log *zap.Logger) *EmailDispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	limit := rate.Inf
	if cfg.RatePerSec > 0 {
		limit = rate.Limit(cfg.RatePerSec)
	}

	d := &EmailDispatcher{
		sender:  sender,
		jobs:    make(chan EmailJob, cfg.QueueSize),
		limiter: rate.NewLimiter(limit, cfg.Workers),
		timeout: cfg.Timeout,
		log:     log.Named("email"),
	}

	for i := 0; i < cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// Enqueue, işi kuyruğa koyar.
func (d *EmailDispatcher) Enqueue(job EmailJob) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		metrics.NotificationEmails.WithLabelValues("dropped").Inc()
		return false
	}

	select {
	case d.jobs <- job:
		return true
	default:
		metrics.NotificationEmails.WithLabelValues("dropped").Inc()
		d.log.Warn("email queue full, dropping job",
			zap.String("user_id", job.UserID), zap.String("kind", job.Kind))
		return false
	}
}

// Close, yeni iş kabulünü durdurur ve kuyruktaki işler bitene kadar bekler.
func (d *EmailDispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.jobs)
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *EmailDispatcher) worker() {
	defer d.wg.Done()

	for job := range d.jobs {
		if err := d.send(job); err != nil {
			metrics.NotificationEmails.WithLabelValues("failed").Inc()
			d.log.Error("email delivery failed",
				zap.String("user_id", job.UserID),
				zap.String("kind", job.Kind),
				zap.Error(err))
			continue
		}
		metrics.NotificationEmails.WithLabelValues("sent").Inc()
	}
}

func (d *EmailDispatcher) send(job EmailJob) error {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limiter: %v", pkg.ErrTransportFailure, err)
	}
	if err := d.sender.Send(ctx, job.Message); err != nil {
		return fmt.Errorf("%w: %v", pkg.ErrTransportFailure, err)
	}
	return nil
}

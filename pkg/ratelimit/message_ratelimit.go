// Package ratelimit, kanal mesajı gönderimi için kullanıcı bazlı spam koruması.
//
// Kural: Window içinde en fazla Max mesaj. Limit aşılınca kullanıcı Cooldown
// süresince hiç mesaj gönderemez; ceza bitince sayaç sıfırdan başlar.
// Varsayılan: 5 saniyede 5 mesaj, aşımda 15 saniye bekleme.
//
// Neden token bucket (x/time/rate) değil: token bucket aşımda sadece bir
// sonraki token'a kadar bekletir, flood yapan kullanıcı saniyede bir mesajla
// devam edebilir. Burada aşım tam bir cooldown cezası getirir ve Retry-After
// bu cezanın kalanıdır.
package ratelimit

import (
	"sync"
	"time"
)

// Limits, limiter parametreleri.
type Limits struct {
	Max      int
	Window   time.Duration
	Cooldown time.Duration
}

// DefaultLimits, config verilmediğinde kullanılan değerler.
var DefaultLimits = Limits{Max: 5, Window: 5 * time.Second, Cooldown: 15 * time.Second}

func (l Limits) withDefaults() Limits {
	if l.Max <= 0 {
		l.Max = DefaultLimits.Max
	}
	if l.Window <= 0 {
		l.Window = DefaultLimits.Window
	}
	if l.Cooldown <= 0 {
		l.Cooldown = DefaultLimits.Cooldown
	}
	return l
}

// Decision, tek bir Allow çağrısının sonucu. Reddedildiyse RetryAfter
// cezanın kalanıdır.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// RetryAfterSeconds, Retry-After header'ı için saniye. Yukarı yuvarlanır,
// client erken denemesin.
func (d Decision) RetryAfterSeconds() int {
	if d.RetryAfter <= 0 {
		return 0
	}
	secs := int(d.RetryAfter / time.Second)
	if d.RetryAfter%time.Second != 0 {
		secs++
	}
	return secs
}

// bucket, bir kullanıcının sayaç durumu. penaltyUntil zero value ise
// kullanıcı cezalı değildir.
type bucket struct {
	sent         int
	windowStart  time.Time
	penaltyUntil time.Time
}

func (b *bucket) restart(now time.Time) {
	b.sent = 1
	b.windowStart = now
	b.penaltyUntil = time.Time{}
}

// take, bir mesaj hakkı düşer.
func (b *bucket) take(now time.Time, l Limits) Decision {
	if !b.penaltyUntil.IsZero() {
		if now.Before(b.penaltyUntil) {
			return Decision{RetryAfter: b.penaltyUntil.Sub(now)}
		}
		b.restart(now)
		return Decision{Allowed: true}
	}

	if now.Sub(b.windowStart) > l.Window {
		b.restart(now)
		return Decision{Allowed: true}
	}

	b.sent++
	if b.sent > l.Max {
		b.penaltyUntil = now.Add(l.Cooldown)
		return Decision{RetryAfter: l.Cooldown}
	}
	return Decision{Allowed: true}
}

// idle, pencere ve ceza bittiyse true; bucket silinebilir.
func (b *bucket) idle(now time.Time, l Limits) bool {
	return now.Sub(b.windowStart) > l.Window &&
		(b.penaltyUntil.IsZero() || now.After(b.penaltyUntil))
}

// MessageRateLimiter, kullanıcı bazlı window + cooldown limiter.
//
//	limiter := ratelimit.NewMessageRateLimiter(ratelimit.DefaultLimits)
//	if d := limiter.Allow(userID); !d.Allowed {
//	    w.Header().Set("Retry-After", strconv.Itoa(d.RetryAfterSeconds()))
//	    ...
//	}
type MessageRateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limits  Limits
	now     func() time.Time

	stopOnce sync.Once
	stop     chan struct{}
}

// NewMessageRateLimiter, limiter'ı oluşturur ve bucket temizleme goroutine'ini
// başlatır. Sıfır alanlar DefaultLimits'ten alınır.
func NewMessageRateLimiter(limits Limits) *MessageRateLimiter {
	rl := &MessageRateLimiter{
		buckets: make(map[string]*bucket),
		limits:  limits.withDefaults(),
		now:     time.Now,
		stop:    make(chan struct{}),
	}

	// Boşta kalan bucket en geç bu süre sonra silinebilir hale gelir.
	interval := rl.limits.Window
	if rl.limits.Cooldown > interval {
		interval = rl.limits.Cooldown
	}
	go rl.cleanupLoop(interval)

	return rl
}

// Allow, userID için bir mesaj hakkı düşer. Karar ve Retry-After aynı
// kilit altında hesaplanır.
func (rl *MessageRateLimiter) Allow(userID string) Decision {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[userID]
	if !ok {
		rl.buckets[userID] = &bucket{sent: 1, windowStart: now}
		return Decision{Allowed: true}
	}
	return b.take(now, rl.limits)
}

// Close, temizleme goroutine'ini durdurur. Birden fazla çağrı güvenlidir.
func (rl *MessageRateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *MessageRateLimiter) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stop:
			return
		}
	}
}

func (rl *MessageRateLimiter) cleanup() {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for userID, b := range rl.buckets {
		if b.idle(now, rl.limits) {
			delete(rl.buckets, userID)
		}
	}
}

// Package cache, süreli (TTL) generic in-memory read-through cache.
//
// Bildirim tercihleri her fan-out'ta her alıcı için okunur ama nadiren
// değişir. Okumalar GetOrLoad ile yapılır: miss olursa loader çağrılır ve
// sonuç TTL süresince tutulur.
//
// Yazma sırası: cache'e iki yoldan değer girer. Set/Delete bir güncellemenin
// sonucudur ve her zaman geçerlidir. GetOrLoad'un yüklediği değer ise loader
// çalışırken eskimiş olabilir; loader sürerken herhangi bir Set/Delete
// olduysa yüklenen değer cache'e yazılmaz, sadece çağırana döner. Böylece
// güncellemeden önce başlamış bir okuma, güncellenmiş değeri TTL boyunca
// gölgeleyemez.
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLCache, thread-safe generic TTL cache.
//
//	prefs := cache.New[string, models.NotificationPreference](time.Minute, 5*time.Minute)
//	pref, err := prefs.GetOrLoad(userID, func() (models.NotificationPreference, error) {
//	    return repo.Get(ctx, userID)
//	})
//	...
//	prefs.Set(userID, updated) // güncellemeden sonra
type TTLCache[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]entry[V]
	ttl     time.Duration
	now     func() time.Time

	// epoch, her Set/Delete'te artar. GetOrLoad yüklemeye başlarken okuduğu
	// epoch değişmediyse yazar. Key başına değil cache geneli tutulur:
	// süresi dolup silinen key'in sayacı sıfırlanıp eski bir yüklemeyi
	// geçerli gösteremez. Bedeli, eşzamanlı başka bir güncellemede yüklenen
	// değerin cache'lenmemesidir; sonraki okuma tekrar yükler.
	epoch uint64

	stopOnce    sync.Once
	stopCleanup chan struct{}
}

// New, cache oluşturur ve süresi dolan kayıtları cleanupInterval aralığıyla
// silen goroutine'i başlatır. cleanupInterval <= 0 ise ttl kullanılır.
// Close ile durdurulur.
func New[K comparable, V any](ttl, cleanupInterval time.Duration) *TTLCache[K, V] {
	if cleanupInterval <= 0 {
		cleanupInterval = ttl
	}

	c := &TTLCache[K, V]{
		entries:     make(map[K]entry[V]),
		ttl:         ttl,
		now:         time.Now,
		stopCleanup: make(chan struct{}),
	}
	go c.cleanupLoop(cleanupInterval)
	return c
}

// Get, süresi dolmamış değeri döner. Süresi dolmuş kayıt miss sayılır;
// fiziksel silme cleanup goroutine'inde yapılır.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lookupLocked(key)
}

// GetOrLoad, hit'te cache'teki değeri döner. Miss'te load'u lock dışında
// çağırır; load hata dönerse hiçbir şey yazılmaz.
//
// Aynı key için eşzamanlı miss'ler load'u birden fazla çağırabilir; tercih
// okumaları idempotent olduğundan tekilleştirilmez.
func (c *TTLCache[K, V]) GetOrLoad(key K, load func() (V, error)) (V, error) {
	c.mu.RLock()
	if v, ok := c.lookupLocked(key); ok {
		c.mu.RUnlock()
		return v, nil
	}
	started := c.epoch
	c.mu.RUnlock()

	v, err := load()
	if err != nil {
		return v, err
	}

	c.mu.Lock()
	if c.epoch == started {
		c.storeLocked(key, v)
	}
	c.mu.Unlock()
	return v, nil
}

// Set, güncellenmiş değeri TTL ile yazar ve süren yüklemeleri geçersiz kılar.
func (c *TTLCache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.epoch++
	c.storeLocked(key, value)
}

// Delete, key'i düşürür ve süren yüklemeleri geçersiz kılar.
func (c *TTLCache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.epoch++
	delete(c.entries, key)
}

// Len, toplam kayıt sayısı (henüz temizlenmemiş süresi dolmuşlar dahil).
func (c *TTLCache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close, cleanup goroutine'ini durdurur. Birden fazla çağrı güvenlidir.
func (c *TTLCache[K, V]) Close() {
	c.stopOnce.Do(func() { close(c.stopCleanup) })
}

func (c *TTLCache[K, V]) lookupLocked(key K) (V, bool) {
	e, ok := c.entries[key]
	if !ok || c.now().After(e.expiresAt) {
		var zero V
		return zero, false
	}
	return e.value, true
}

func (c *TTLCache[K, V]) storeLocked(key K, value V) {
	c.entries[key] = entry[V]{value: value, expiresAt: c.now().Add(c.ttl)}
}

func (c *TTLCache[K, V]) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.evictExpired()
		case <-c.stopCleanup:
			return
		}
	}
}

// evictExpired, süresi dolmuş kayıtları siler. epoch'a dokunmaz: süre
// dolması bir güncelleme değildir.
func (c *TTLCache[K, V]) evictExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
		}
	}
}

package cache

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeClock, testlerde zamanı elle ilerletmek için.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}

func newTestCache(t *testing.T, ttl time.Duration) (*TTLCache[string, int], *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := New[string, int](ttl, time.Hour)
	c.now = clock.Now
	t.Cleanup(c.Close)
	return c, clock
}

func TestTTLCache_GetSet(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)

	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Set("a", 1)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestTTLCache_Expiry(t *testing.T) {
	c, clock := newTestCache(t, time.Minute)

	c.Set("a", 1)
	clock.Advance(59 * time.Second)
	_, ok := c.Get("a")
	assert.True(t, ok)

	clock.Advance(2 * time.Second)
	_, ok = c.Get("a")
	assert.False(t, ok)

	assert.Equal(t, 1, c.Len())
	c.evictExpired()
	assert.Equal(t, 0, c.Len())
}

func TestTTLCache_Delete(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)

	c.Set("a", 1)
	c.Delete("a")
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestTTLCache_CloseTwice(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	assert.NotPanics(t, func() {
		c.Close()
		c.Close()
	})
}

func TestTTLCache_GetOrLoad(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)

	calls := 0
	load := func() (int, error) {
		calls++
		return 7, nil
	}

	v, err := c.GetOrLoad("a", load)
	assert.NoError(t, err)
	assert.Equal(t, 7, v)

	v, err = c.GetOrLoad("a", load)
	assert.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Equal(t, 1, calls, "second read served from cache")
}

func TestTTLCache_GetOrLoadErrorIsNotCached(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)

	_, err := c.GetOrLoad("a", func() (int, error) { return 0, errors.New("store down") })
	assert.Error(t, err)
	assert.Equal(t, 0, c.Len())
}

// Yükleme sürerken gelen Set, yüklenen eski değerle ezilmemeli.
func TestTTLCache_LoadStartedBeforeSetDoesNotOverwrite(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)

	v, err := c.GetOrLoad("a", func() (int, error) {
		c.Set("a", 2) // eşzamanlı güncelleme
		return 1, nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, v, "caller still gets what it loaded")

	cached, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 2, cached)

	_, err = c.GetOrLoad("b", func() (int, error) {
		c.Delete("b")
		return 1, nil
	})
	assert.NoError(t, err)
	_, ok = c.Get("b")
	assert.False(t, ok)
}

package presence

import (
	"context"
	"fmt"
	"hash/maphash"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/akinalp/ajans/pkg"
	"github.com/akinalp/ajans/pkg/metrics"
)

type sessionKey struct {
	channelID string
	userID    string
}

// keyStripes, (kanal, kullanıcı) yayın kilitlerinin sayısı. Farklı anahtarlar
// aynı kilidi paylaşabilir; bu sadece bekleme yaratır, sıralamayı bozmaz.
const keyStripes = 64

// Tracker, kanal katılımcılarının presence durumunu tutar.
//
// Aynı kullanıcının aynı kanala birden fazla bağlantısı (sekme) olabilir;
// refs her (kanal, kullanıcı) için yerel bağlantı sayısını tutar. Katılımcı
// son yerel bağlantısı ayrıldığında kanaldan düşer.
//
// Sıralama: bir (kanal, kullanıcı) için durum değişikliği ve yayını aynı
// anahtar kilidi altında yapılır. mu yayından önce bırakılır ki diğer
// kanalların okuma ve yazmaları broker'ı beklemesin; anahtar kilidi ise
// aynı katılımcının snapshot'larının broker'a durum değişikliği sırasıyla
// gitmesini sağlar. Aksi halde eşzamanlı bir Leave ve Join'de geç kalan
// offline snapshot, online katılımcıyı diğer instance'larda düşürürdü.
type Tracker struct {
	keyLocks [keyStripes]sync.Mutex
	seed     maphash.Seed

	mu       sync.RWMutex
	sessions map[string]map[string]State // channelID → userID → State
	refs     map[sessionKey]int

	broker      Broker
	origin      string
	unsubscribe func()
	log         *zap.Logger
	now         func() time.Time
}

// NewTracker, Tracker oluşturur ve broker'dan gelen uzak snapshot'lara abone olur.
func NewTracker(broker Broker, log *zap.Logger) *Tracker {
	t := &Tracker{
		sessions: make(map[string]map[string]State),
		refs:     make(map[sessionKey]int),
		seed:     maphash.MakeSeed(),
		broker:   broker,
		origin:   uuid.NewString(),
		log:      log.Named("presence"),
		now:      time.Now,
	}
	t.unsubscribe = broker.Subscribe(t.Apply)
	return t
}

// Origin, bu Tracker'ın snapshot'larda taşıdığı kimlik.
func (t *Tracker) Origin() string { return t.origin }

// lockKey, (kanal, kullanıcı) anahtarının yayın kilidini alır ve bırakma
// fonksiyonunu döner: defer t.lockKey(ch, u)()
func (t *Tracker) lockKey(channelID, userID string) func() {
	var h maphash.Hash
	h.SetSeed(t.seed)
	h.WriteString(channelID)
	h.WriteByte(0)
	h.WriteString(userID)
	m := &t.keyLocks[h.Sum64()%keyStripes]
	m.Lock()
	return m.Unlock
}

// Join, katılımcıyı kanala kaydeder, yeni durumu yayınlar ve kanaldaki
// diğer katılımcıların listesini döner.
func (t *Tracker) Join(ctx context.Context, channelID, userID string) []State {
	defer t.lockKey(channelID, userID)()
	now := t.now().UTC()

	t.mu.Lock()
	key := sessionKey{channelID, userID}
	t.refs[key]++

	st, ok := t.sessions[channelID][userID]
	if !ok {
		st = State{ChannelID: channelID, UserID: userID}
	}
	st.Online = true
	st.LastSeenAt = now
	t.setLocked(st)

	others := t.othersLocked(channelID, userID)
	t.mu.Unlock()

	t.publish(ctx, st)
	return others
}

// Update, sadece patch'te gelen alanları uygular ve yeni durumu yayınlar.
// Kanala katılmamış katılımcı için pkg.ErrNotFound döner.
func (t *Tracker) Update(ctx context.Context, channelID, userID string, patch Patch) (State, error) {
	defer t.lockKey(channelID, userID)()
	t.mu.Lock()
	st, ok := t.sessions[channelID][userID]
	if !ok || t.refs[sessionKey{channelID, userID}] == 0 {
		t.mu.Unlock()
		return State{}, fmt.Errorf("%w: user %s has not joined channel %s", pkg.ErrNotFound, userID, channelID)
	}

	if patch.Typing != nil {
		st.Typing = *patch.Typing
	}
	if patch.LastSeenAt != nil {
		st.LastSeenAt = patch.LastSeenAt.UTC()
	}
	t.setLocked(st)
	t.mu.Unlock()

	t.publish(ctx, st)
	return st, nil
}

// Leave, katılımcının bir yerel bağlantısını kanaldan çıkarır. Son bağlantı
// ise katılımcı düşer, offline durumu yayınlanır ve true döner.
func (t *Tracker) Leave(ctx context.Context, channelID, userID string) bool {
	defer t.lockKey(channelID, userID)()
	t.mu.Lock()
	key := sessionKey{channelID, userID}
	if t.refs[key] == 0 {
		t.mu.Unlock()
		return false
	}
	t.refs[key]--
	if t.refs[key] > 0 {
		t.mu.Unlock()
		return false
	}
	delete(t.refs, key)
	st := t.removeLocked(channelID, userID)
	t.mu.Unlock()

	t.publish(ctx, st)
	return true
}

// LeaveAll, kullanıcının tüm yerel oturumlarını düşürür. Kullanıcının son
// WebSocket bağlantısı kapandığında çağrılır; düşürülen kanal ID'lerini döner.
func (t *Tracker) LeaveAll(ctx context.Context, userID string) []string {
	t.mu.RLock()
	var candidates []string
	for key := range t.refs {
		if key.userID == userID {
			candidates = append(candidates, key.channelID)
		}
	}
	t.mu.RUnlock()

	channels := make([]string, 0, len(candidates))
	for _, channelID := range candidates {
		if t.leaveAll(ctx, channelID, userID) {
			channels = append(channels, channelID)
		}
	}
	sort.Strings(channels)
	return channels
}

// leaveAll, tek kanal için tüm referansları anahtar kilidi altında düşürür.
// Aradaki sürede başka bir Leave oturumu kapattıysa false döner.
func (t *Tracker) leaveAll(ctx context.Context, channelID, userID string) bool {
	defer t.lockKey(channelID, userID)()

	t.mu.Lock()
	key := sessionKey{channelID, userID}
	if t.refs[key] == 0 {
		t.mu.Unlock()
		return false
	}
	delete(t.refs, key)
	st := t.removeLocked(channelID, userID)
	t.mu.Unlock()

	t.publish(ctx, st)
	return true
}

// Others, kanaldaki userID dışındaki katılımcılar, user ID'ye göre sıralı.
func (t *Tracker) Others(channelID, userID string) []State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.othersLocked(channelID, userID)
}

// Apply, başka bir instance'tan gelen snapshot'ı yerel görünüme işler.
// Kendi snapshot'larımız atlanır. Yerel bağlantısı süren bir katılımcı için
// gelen offline snapshot görmezden gelinir.
func (t *Tracker) Apply(snap Snapshot) {
	if snap.Origin == t.origin {
		return
	}
	st := snap.State

	t.mu.Lock()
	defer t.mu.Unlock()

	if !st.Online {
		if t.refs[sessionKey{st.ChannelID, st.UserID}] > 0 {
			return
		}
		t.removeLocked(st.ChannelID, st.UserID)
		return
	}
	t.setLocked(st)
}

// Close, broker aboneliğini bırakır.
func (t *Tracker) Close() {
	if t.unsubscribe != nil {
		t.unsubscribe()
	}
}

func (t *Tracker) setLocked(st State) {
	users, ok := t.sessions[st.ChannelID]
	if !ok {
		users = make(map[string]State)
		t.sessions[st.ChannelID] = users
	}
	if _, exists := users[st.UserID]; !exists {
		metrics.PresenceSessions.Inc()
	}
	users[st.UserID] = st
}

// removeLocked, katılımcıyı siler ve yayınlanacak offline durumu döner.
func (t *Tracker) removeLocked(channelID, userID string) State {
	st := State{ChannelID: channelID, UserID: userID, LastSeenAt: t.now().UTC()}

	users := t.sessions[channelID]
	if prev, ok := users[userID]; ok {
		st.LastSeenAt = maxTime(prev.LastSeenAt, st.LastSeenAt)
		delete(users, userID)
		metrics.PresenceSessions.Dec()
		if len(users) == 0 {
			delete(t.sessions, channelID)
		}
	}
	return st
}

func (t *Tracker) othersLocked(channelID, userID string) []State {
	users := t.sessions[channelID]
	out := make([]State, 0, len(users))
	for id, st := range users {
		if id != userID {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

func (t *Tracker) publish(ctx context.Context, st State) {
	if err := t.broker.Publish(ctx, Snapshot{Origin: t.origin, State: st}); err != nil {
		t.log.Warn("presence broadcast dropped",
			zap.String("channel_id", st.ChannelID),
			zap.String("user_id", st.UserID),
			zap.Error(err))
	}
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

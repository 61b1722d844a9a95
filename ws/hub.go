package ws

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/akinalp/ajans/pkg/metrics"
	"github.com/akinalp/ajans/presence"
)

// presenceTimeout, bağlantı koparken yapılan presence yayınlarının üst sınırı.
const presenceTimeout = 5 * time.Second

// Hub, tüm WebSocket bağlantılarını ve kanal aboneliklerini yöneten merkezi yapı.
//
// İki index tutulur:
//   - clients:  userID → Client set (bir kullanıcının birden fazla tab'ı olabilir)
//   - channels: channelID → Client set (channel_join yapmış bağlantılar)
//
// Register/unregister tek bir goroutine'de (Run) işlenir; broadcast'ler RLock ile
// okur. Presence Tracker'a yapılan çağrılar hub kilidi DIŞINDA yapılır:
// LocalBroker snapshot'ı senkron teslim eder ve teslim Hub'ın kendisine döner.
type Hub struct {
	clients  map[string]map[*Client]bool
	channels map[string]map[*Client]bool
	mu       sync.RWMutex

	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once

	// seq: her outbound event'e verilen artan sayaç.
	seq atomic.Int64

	tracker     *presence.Tracker
	unsubscribe func()
	log         *zap.Logger
}

// NewHub, Hub oluşturur ve broker'daki presence snapshot'larına abone olur.
func NewHub(tracker *presence.Tracker, broker presence.Broker, log *zap.Logger) *Hub {
	h := &Hub{
		clients:    make(map[string]map[*Client]bool),
		channels:   make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		tracker:    tracker,
		log:        log.Named("ws"),
	}
	h.unsubscribe = broker.Subscribe(h.forwardPresence)
	return h
}

// Run, Hub'ın ana event loop'udur. main.go'da `go hub.Run()` ile başlatılır.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)

		case <-h.done:
			return
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	select {
	case <-h.done:
		// Shutdown client listesini zaten boşalttı
		close(client.send)
		h.mu.Unlock()
		return
	default:
	}
	if _, ok := h.clients[client.userID]; !ok {
		h.clients[client.userID] = make(map[*Client]bool)
	}
	h.clients[client.userID][client] = true
	total := len(h.clients[client.userID])
	h.mu.Unlock()
	close(client.registered)

	metrics.WSConnections.Inc()
	h.log.Debug("client connected", zap.String("user_id", client.userID), zap.Int("user_connections", total))
}

// removeClient, client'ı tüm index'lerden çıkarır, send channel'ını kapatır
// ve katıldığı kanallardaki presence referanslarını bırakır.
func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	clients, ok := h.clients[client.userID]
	if !ok || !clients[client] {
		h.mu.Unlock()
		return
	}

	delete(clients, client)
	if len(clients) == 0 {
		delete(h.clients, client.userID)
	}
	h.dropSubscriptionsLocked(client)
	close(client.send)
	h.mu.Unlock()

	// Devam eden bir channel_join bitene kadar bekler; sonrasında Join yapılmaz.
	joined := client.release()

	metrics.WSConnections.Dec()
	h.log.Debug("client disconnected", zap.String("user_id", client.userID), zap.Int("channels", len(joined)))

	h.leaveChannels(client.userID, joined)
}

func (h *Hub) dropSubscriptionsLocked(client *Client) {
	for channelID := range client.channels {
		if subs, ok := h.channels[channelID]; ok {
			delete(subs, client)
			if len(subs) == 0 {
				delete(h.channels, channelID)
			}
		}
	}
	client.channels = make(map[string]bool)
}

func (h *Hub) leaveChannels(userID string, channelIDs []string) {
	if len(channelIDs) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), presenceTimeout)
	defer cancel()
	for _, channelID := range channelIDs {
		h.tracker.Leave(ctx, channelID, userID)
	}
}

// subscribe, client'ı kanala abone yapar. Zaten aboneyse ya da client
// hub'dan çıkarılmışsa false döner; çıkarılmış client'ın send channel'ı
// kapalıdır ve kanal index'ine geri girmemelidir.
func (h *Hub) subscribe(client *Client, channelID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.clients[client.userID][client] || client.channels[channelID] {
		return false
	}
	client.channels[channelID] = true
	if _, ok := h.channels[channelID]; !ok {
		h.channels[channelID] = make(map[*Client]bool)
	}
	h.channels[channelID][client] = true
	return true
}

// unsubscribeChannel, aboneliği kaldırır. Abone değilse false döner.
func (h *Hub) unsubscribeChannel(client *Client, channelID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !client.channels[channelID] {
		return false
	}
	delete(client.channels, channelID)
	if subs, ok := h.channels[channelID]; ok {
		delete(subs, client)
		if len(subs) == 0 {
			delete(h.channels, channelID)
		}
	}
	return true
}

func (h *Hub) isSubscribed(client *Client, channelID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return client.channels[channelID]
}

func (h *Hub) encode(event Event) ([]byte, bool) {
	event.Seq = h.seq.Add(1)

	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error("failed to marshal event", zap.String("op", event.Op), zap.Error(err))
		return nil, false
	}
	return data, true
}

// deliverLocked, RLock altında çağrılır. Buffer'ı dolu client yavaştır, kapatılır.
func (h *Hub) deliverLocked(client *Client, data []byte) {
	select {
	case client.send <- data:
	default:
		h.log.Warn("send buffer full, dropping connection", zap.String("user_id", client.userID))
		go h.drop(client)
	}
}

// drop, client'ı Run loop'u üzerinden çıkarır. Hub kapandıysa bloklamaz.
func (h *Hub) drop(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// BroadcastToUser, belirli bir kullanıcının tüm bağlantılarına event gönderir.
func (h *Hub) BroadcastToUser(userID string, event Event) {
	data, ok := h.encode(event)
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[userID] {
		h.deliverLocked(client, data)
	}
}

// BroadcastToChannel, kanala abone tüm bağlantılara event gönderir.
func (h *Hub) BroadcastToChannel(channelID string, event Event) {
	h.broadcastToChannelExcept(channelID, "", event)
}

func (h *Hub) broadcastToChannelExcept(channelID, excludeUserID string, event Event) {
	data, ok := h.encode(event)
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.channels[channelID] {
		if client.userID == excludeUserID {
			continue
		}
		h.deliverLocked(client, data)
	}
}

// forwardPresence, broker'dan gelen her snapshot'ı kanalın abonelerine iletir.
// Durumun sahibi kendi değişikliğini geri almaz.
func (h *Hub) forwardPresence(snap presence.Snapshot) {
	h.broadcastToChannelExcept(snap.State.ChannelID, snap.State.UserID, Event{
		Op:   OpPresence,
		Data: snap.State,
	})
}

// IsOnline, kullanıcının bu instance'ta en az bir bağlantısı varsa true döner.
func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

// Shutdown, tüm client bağlantılarını kapatır ve kullanıcıların presence
// oturumlarını düşürür. done kapandıktan sonra yeni bağlantı kaydolmaz,
// bu yüzden LeaveAll güvenle kullanılabilir.
func (h *Hub) Shutdown() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.unsubscribe()

		h.mu.Lock()
		users := make([]string, 0, len(h.clients))
		var dropped []*Client
		for userID, clients := range h.clients {
			users = append(users, userID)
			for client := range clients {
				h.dropSubscriptionsLocked(client)
				close(client.send)
				metrics.WSConnections.Dec()
				dropped = append(dropped, client)
			}
		}
		h.clients = make(map[string]map[*Client]bool)
		h.channels = make(map[string]map[*Client]bool)
		h.mu.Unlock()

		// Süren channel_join'ler biter, yenileri Join yapmaz
		for _, client := range dropped {
			client.release()
		}

		ctx, cancel := context.WithTimeout(context.Background(), presenceTimeout)
		defer cancel()
		for _, userID := range users {
			h.tracker.LeaveAll(ctx, userID)
		}
		h.log.Info("hub shut down, all connections closed", zap.Int("users", len(users)))
	})
}

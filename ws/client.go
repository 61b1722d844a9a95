package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/akinalp/ajans/pkg"
	"github.com/akinalp/ajans/presence"
)

// WebSocket bağlantı sabitleri
const (
	// writeWait: bir mesajı yazmak için maksimum bekleme süresi.
	writeWait = 10 * time.Second

	// pongWait: client'ın heartbeat göndermesi için beklenen maksimum süre.
	// 3 heartbeat kaçırma = 30s × 3 = 90s.
	pongWait = 90 * time.Second

	// maxMessageSize: client'ın gönderebileceği maksimum mesaj boyutu (byte).
	// Mesaj gövdeleri HTTP ile gönderilir, WS üzerinden sadece kontrol op'ları gelir.
	maxMessageSize = 4096

	// sendBufferSize: buffer dolarsa client yavaş sayılır ve bağlantı kapatılır.
	sendBufferSize = 256

	// opTimeout: tek bir client op'unun (yetki kontrolü + presence yayını) üst sınırı.
	opTimeout = 5 * time.Second
)

// Client, tek bir WebSocket bağlantısı.
//
// Her bağlantı için iki goroutine çalışır: ReadPump client'tan gelen op'ları
// işler, WritePump send channel'ındaki event'leri yazar. gorilla/websocket
// aynı anda tek okuyucu ve tek yazıcı destekler.
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	userID     string
	authorizer ChannelAuthorizer
	log        *zap.Logger

	send chan []byte
	mu   sync.Mutex // conn.WriteMessage çağrılarını korur

	// registered: Hub addClient'ı bitirince kapanır. ReadPump op okumaya
	// ancak bundan sonra başlar, yoksa ilk cevaplar düşebilir.
	registered chan struct{}

	// channels: abone olunan kanallar. hub.mu ile korunur.
	channels map[string]bool

	// tracked: Tracker'a Join ile kaydedilmiş kanallar. presenceMu ile korunur.
	// Hub client'ı çıkarınca gone true olur; sonrasında yeni Join yapılmaz.
	// Her Join tam bir Leave ile eşleşir, aynı kullanıcının diğer tab'larının
	// referanslarına dokunulmaz.
	presenceMu sync.Mutex
	tracked    map[string]bool
	gone       bool
}

func newClient(hub *Hub, conn *websocket.Conn, userID string, authorizer ChannelAuthorizer) *Client {
	return &Client{
		hub:        hub,
		conn:       conn,
		userID:     userID,
		authorizer: authorizer,
		log:        hub.log.With(zap.String("user_id", userID)),
		send:       make(chan []byte, sendBufferSize),
		registered: make(chan struct{}),
		channels:   make(map[string]bool),
		tracked:    make(map[string]bool),
	}
}

// ReadPump, bağlantı kapanana kadar client op'larını okur ve işler.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.drop(c)
		c.conn.Close()
	}()

	select {
	case <-c.registered:
	case <-c.hub.done:
		return
	}

	c.conn.SetReadLimit(maxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.log.Warn("failed to set read deadline", zap.Error(err))
		return
	}

	for {
		_, rawMessage, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Info("unexpected close", zap.Error(err))
			}
			return
		}

		var event Event
		if err := json.Unmarshal(rawMessage, &event); err != nil {
			c.log.Debug("invalid message", zap.Error(err))
			c.sendError("", "invalid message")
			continue
		}

		c.handleEvent(event)
	}
}

// handleEvent, client'tan gelen event'leri türüne göre işler.
func (c *Client) handleEvent(event Event) {
	switch event.Op {
	case OpHeartbeat:
		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			c.log.Warn("failed to set read deadline", zap.Error(err))
			return
		}
		c.sendEvent(Event{Op: OpHeartbeatAck})

	case OpChannelJoin:
		c.handleChannelJoin(event)

	case OpChannelLeave:
		c.handleChannelLeave(event)

	case OpPresenceUpdate:
		c.handlePresenceUpdate(event)

	default:
		c.log.Debug("unknown op", zap.String("op", event.Op))
		c.sendError(event.Op, "unknown op")
	}
}

// decodeData, event.Data'yı (any) hedef payload struct'ına çevirir.
func decodeData(event Event, dst any) error {
	raw, err := json.Marshal(event.Data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

// handleChannelJoin, kanala abone olur ve katılımcının presence oturumunu açar.
// Client'a kanaldaki diğer katılımcıların listesi (presence_roster) döner.
func (c *Client) handleChannelJoin(event Event) {
	var data ChannelData
	if err := decodeData(event, &data); err != nil || data.ChannelID == "" {
		c.sendError(event.Op, "channel_id is required")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := c.authorizer.CanAccessChannel(ctx, data.ChannelID, c.userID); err != nil {
		msg := "channel not accessible"
		if !errors.Is(err, pkg.ErrNotFound) && !errors.Is(err, pkg.ErrForbidden) {
			c.log.Error("channel access check failed", zap.String("channel_id", data.ChannelID), zap.Error(err))
			msg = "internal error"
		}
		c.sendError(event.Op, msg)
		return
	}

	if !c.hub.subscribe(c, data.ChannelID) {
		if !c.hub.isSubscribed(c, data.ChannelID) {
			// Hub bağlantıyı bu arada düşürdü
			return
		}
		c.sendRoster(data.ChannelID, c.hub.tracker.Others(data.ChannelID, c.userID))
		return
	}

	roster, ok := c.trackJoin(ctx, data.ChannelID)
	if !ok {
		return
	}
	c.sendRoster(data.ChannelID, roster)
}

func (c *Client) sendRoster(channelID string, roster []presence.State) {
	c.sendEvent(Event{Op: OpPresenceRoster, Data: PresenceRosterData{
		ChannelID:    channelID,
		Participants: roster,
	}})
}

// trackJoin, kanalı Tracker'a kaydeder. Client hub'dan çıkarıldıysa Join
// yapılmaz ve false döner; aksi halde oturum kimsenin bırakmayacağı bir
// referans olarak kalırdı.
func (c *Client) trackJoin(ctx context.Context, channelID string) ([]presence.State, bool) {
	c.presenceMu.Lock()
	defer c.presenceMu.Unlock()

	if c.gone {
		return nil, false
	}
	roster := c.hub.tracker.Join(ctx, channelID, c.userID)
	c.tracked[channelID] = true
	return roster, true
}

// trackLeave, trackJoin ile açılmış oturumu bırakır.
func (c *Client) trackLeave(ctx context.Context, channelID string) {
	c.presenceMu.Lock()
	defer c.presenceMu.Unlock()

	if !c.tracked[channelID] {
		return
	}
	delete(c.tracked, channelID)
	c.hub.tracker.Leave(ctx, channelID, c.userID)
}

// release, client'ı kapalı işaretler ve Tracker'da açık kalan kanallarını döner.
// Hub client'ı index'lerden çıkardıktan sonra çağrılır.
func (c *Client) release() []string {
	c.presenceMu.Lock()
	defer c.presenceMu.Unlock()

	c.gone = true
	channels := make([]string, 0, len(c.tracked))
	for channelID := range c.tracked {
		channels = append(channels, channelID)
	}
	c.tracked = make(map[string]bool)
	return channels
}

func (c *Client) handleChannelLeave(event Event) {
	var data ChannelData
	if err := decodeData(event, &data); err != nil || data.ChannelID == "" {
		c.sendError(event.Op, "channel_id is required")
		return
	}

	if !c.hub.unsubscribeChannel(c, data.ChannelID) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	c.trackLeave(ctx, data.ChannelID)
}

// handlePresenceUpdate, typing / last_seen_at değişikliğini yayınlar.
// Sadece katılınmış (channel_join) kanallar için geçerlidir.
func (c *Client) handlePresenceUpdate(event Event) {
	var data PresenceUpdateData
	if err := decodeData(event, &data); err != nil || data.ChannelID == "" {
		c.sendError(event.Op, "channel_id is required")
		return
	}

	if !c.hub.isSubscribed(c, data.ChannelID) {
		c.sendError(event.Op, "channel not joined")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if _, err := c.hub.tracker.Update(ctx, data.ChannelID, c.userID, presence.Patch{
		Typing:     data.Typing,
		LastSeenAt: data.LastSeenAt,
	}); err != nil {
		c.sendError(event.Op, "channel not joined")
	}
}

func (c *Client) sendError(op, message string) {
	c.sendEvent(Event{Op: OpError, Data: ErrorData{Op: op, Message: message}})
}

// sendEvent, sadece bu client'a event gönderir.
func (c *Client) sendEvent(event Event) {
	data, ok := c.hub.encode(event)
	if !ok {
		return
	}

	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()

	// Hub client'ı çıkardıysa send kapalıdır.
	if !c.hub.clients[c.userID][c] {
		return
	}
	c.hub.deliverLocked(c, data)
}

// WritePump, send channel'ındaki event'leri WebSocket'e yazar.
func (c *Client) WritePump() {
	defer c.conn.Close()

	for {
		message, ok := <-c.send
		if !ok {
			// Hub client'ı çıkardı
			_ = c.writeMessage(websocket.CloseMessage, nil)
			return
		}

		if err := c.writeMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
}

// writeMessage, WebSocket'e mesaj yazar (mutex ile korunur).
func (c *Client) writeMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}

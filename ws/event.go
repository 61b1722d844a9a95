// Package ws, WebSocket bağlantı yönetimi ve gerçek zamanlı event dağıtımı.
//
//   - Hub: bağlantıları ve kanal aboneliklerini tutar, event'leri dağıtır
//   - Client: tek bir WebSocket bağlantısı (read/write pump)
//   - Event: client-server arası mesaj zarfı
//
// Akış: HTTP POST → service → DB → Hub.BroadcastToChannel / BroadcastToUser →
// client.send → writePump → WebSocket.
package ws

import (
	"time"

	"github.com/akinalp/ajans/presence"
)

// Event, WebSocket üzerinden iletilen mesaj zarfı.
// Seq, Hub'ın her outbound event'e verdiği artan sayaçtır; client kayıp
// event'i seq boşluğundan anlar.
type Event struct {
	Op   string `json:"op"`
	Data any    `json:"d,omitempty"`
	Seq  int64  `json:"seq,omitempty"`
}

// Client → Server
const (
	OpHeartbeat      = "heartbeat"
	OpChannelJoin    = "channel_join"
	OpChannelLeave   = "channel_leave"
	OpPresenceUpdate = "presence_update"
)

// Server → Client
const (
	OpReady              = "ready"
	OpHeartbeatAck       = "heartbeat_ack"
	OpPresenceRoster     = "presence_roster"
	OpPresence           = "presence_update"
	OpMessageCreate      = "message_create"
	OpChannelUnread      = "channel_unread"
	OpNotificationCreate = "notification_create"
	OpError              = "error"
)

// ChannelData, channel_join / channel_leave payload'u.
type ChannelData struct {
	ChannelID string `json:"channel_id"`
}

// PresenceUpdateData, client'tan gelen presence_update payload'u.
// Gönderilmeyen alanlar değişmez.
type PresenceUpdateData struct {
	ChannelID  string     `json:"channel_id"`
	Typing     *bool      `json:"typing,omitempty"`
	LastSeenAt *time.Time `json:"last_seen_at,omitempty"`
}

// ChannelUnreadData, channel_unread payload'u.
type ChannelUnreadData struct {
	ChannelID   string `json:"channel_id"`
	UnreadCount int    `json:"unread_count"`
}

// ErrorData, client isteği işlenemediğinde dönen payload.
type ErrorData struct {
	Op      string `json:"op"`
	Message string `json:"message"`
}

// EventPublisher, service katmanının Hub'a bağımlılığı. Testlerde fake'lenir.
type EventPublisher interface {
	// BroadcastToUser, kullanıcının tüm bağlantılarına gönderir.
	BroadcastToUser(userID string, event Event)
	// BroadcastToChannel, kanala abone (channel_join yapmış) tüm bağlantılara gönderir.
	BroadcastToChannel(channelID string, event Event)
}

// ReadyData, bağlantı kurulduğunda gönderilen ready payload'u.
type ReadyData struct {
	UserID string `json:"user_id"`
}

// PresenceRosterData, channel_join cevabı: kanaldaki diğer katılımcılar.
type PresenceRosterData struct {
	ChannelID    string           `json:"channel_id"`
	Participants []presence.State `json:"participants"`
}

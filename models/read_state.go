package models

import "time"

// ReadState, bir kullanıcının bir kanaldaki okuma durumu.
//
// Watermark pattern: her mesajı tek tek işaretlemek yerine "bu seq'e kadar
// okudum" bilgisi tutulur. LastReadSeq hiçbir zaman geri gitmez;
// UnreadCount hiçbir zaman negatif olmaz.
type ReadState struct {
	UserID            string     `json:"user_id" db:"user_id"`
	ChannelID         string     `json:"channel_id" db:"channel_id"`
	UnreadCount       int        `json:"unread_count" db:"unread_count"`
	LastReadSeq       int64      `json:"last_read_seq" db:"last_read_seq"`
	LastReadMessageID *string    `json:"last_read_message_id" db:"last_read_message_id"`
	LastReadAt        *time.Time `json:"last_read_at" db:"last_read_at"`
}

// UnreadInfo, bir kanalın okunmamış mesaj bilgisini taşır.
type UnreadInfo struct {
	ChannelID   string `json:"channel_id" db:"channel_id"`
	UnreadCount int    `json:"unread_count" db:"unread_count"`
}

// MarkReadRequest, POST /api/channels/{id}/read gövdesi.
// MessageID boşsa kanalın son mesajı okunmuş sayılır.
type MarkReadRequest struct {
	MessageID string `json:"message_id"`
}

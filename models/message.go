package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxMessageLength, mesaj gövdesinin rune cinsinden üst sınırı.
// Gövde rich-text JSON da olabileceği için düz metinden geniş tutulur.
const MaxMessageLength = 20000

// Message, kanala gönderilmiş değişmez bir mesaj.
//
// Seq, kanal içinde append sırasında atanan monoton artan sıra numarasıdır.
// Pencere (window) cursor'ı ve unread watermark'ı seq üzerinden çalışır;
// created_at eşitliklerinde bile sıra kararlıdır.
//
// Body serbest formattadır: ProseMirror/TipTap JSON, HTML veya düz metin.
type Message struct {
	ID          string      `json:"id" db:"id"`
	ChannelID   string      `json:"channel_id" db:"channel_id"`
	UserID      string      `json:"user_id" db:"user_id"`
	Seq         int64       `json:"seq" db:"seq"`
	Body        string      `json:"body" db:"body"`
	Attachments Attachments `json:"attachments" db:"attachments"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	Author      *User       `json:"author,omitempty" db:"-"`
	Mentions    []string    `json:"mentions" db:"-"`
}

// Attachment, mesaja eklenmiş dosyanın metadata'sı. Dosyanın kendisi
// platformun dosya servisinde durur; burada yalnızca referans tutulur.
type Attachment struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
}

// Attachments, messages.attachments kolonunda JSON olarak saklanır.
// driver.Valuer ve sql.Scanner implementasyonu sayesinde sqlx doğrudan okur/yazar.
type Attachments []Attachment

// Value, slice'ı JSON string'e çevirir.
func (a Attachments) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan, JSON kolonunu slice'a çevirir.
func (a *Attachments) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*a = Attachments{}
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("unsupported attachments type %T", src)
	}
	if len(data) == 0 {
		*a = Attachments{}
		return nil
	}
	return json.Unmarshal(data, a)
}

// MessagePage, pencere yüklemesinin sonucu.
//
// Messages artan sırada (en eski önce) döner. HasMore, daha eski mesaj
// olup olmadığını söyler. Groups sadece grouped=true istenirse doldurulur.
type MessagePage struct {
	Messages []Message      `json:"messages"`
	HasMore  bool           `json:"has_more"`
	Groups   []MessageGroup `json:"groups,omitempty"`
}

// MessageGroup, aynı göndericiden ardışık ve zaman olarak yakın mesajların
// tek blok halinde gösterimi.
type MessageGroup struct {
	SenderID   string    `json:"sender_id"`
	Timestamp  time.Time `json:"timestamp"`
	MessageIDs []string  `json:"message_ids"`
	Bodies     []string  `json:"bodies"`
}

// CreateMessageRequest, yeni mesaj gönderme isteği.
type CreateMessageRequest struct {
	Body        string       `json:"body"`
	Attachments []Attachment `json:"attachments"`
}

// Validate, gövde ya da en az bir ek zorunlu; gövde MaxMessageLength'i aşamaz.
func (r *CreateMessageRequest) Validate() error {
	r.Body = strings.TrimSpace(r.Body)
	if r.Body == "" && len(r.Attachments) == 0 {
		return fmt.Errorf("message body or attachment is required")
	}
	if utf8.RuneCountInString(r.Body) > MaxMessageLength {
		return fmt.Errorf("message body must be at most %d characters", MaxMessageLength)
	}
	for _, a := range r.Attachments {
		if a.URL == "" || a.Name == "" {
			return fmt.Errorf("attachment name and url are required")
		}
	}
	return nil
}

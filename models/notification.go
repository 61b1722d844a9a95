package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// NotificationCategory, bildirim kategorisi. Kapalı bir küme: bilinen
// değerler aşağıdaki sabitlerdir, ama bilinmeyen bir kategori de
// persist edilebilir (gelecekte eklenecek kategoriler için).
type NotificationCategory string

const (
	CategoryTaskAssigned       NotificationCategory = "TASK_ASSIGNED"
	CategoryTaskUpdated        NotificationCategory = "TASK_UPDATED"
	CategoryTaskCompleted      NotificationCategory = "TASK_COMPLETED"
	CategoryTaskComment        NotificationCategory = "TASK_COMMENT"
	CategoryTaskDueSoon        NotificationCategory = "TASK_DUE_SOON"
	CategoryProjectCreated     NotificationCategory = "PROJECT_CREATED"
	CategoryProjectUpdated     NotificationCategory = "PROJECT_UPDATED"
	CategoryProjectMemberAdded NotificationCategory = "PROJECT_MEMBER_ADDED"
	CategoryInvoiceCreated     NotificationCategory = "INVOICE_CREATED"
	CategoryInvoiceSent        NotificationCategory = "INVOICE_SENT"
	CategoryInvoicePaid        NotificationCategory = "INVOICE_PAID"
	CategoryInvoiceOverdue     NotificationCategory = "INVOICE_OVERDUE"
	CategoryFileUploaded       NotificationCategory = "FILE_UPLOADED"
	CategoryFileShared         NotificationCategory = "FILE_SHARED"
	CategoryApprovalRequested  NotificationCategory = "APPROVAL_REQUESTED"
	CategoryApprovalApproved   NotificationCategory = "APPROVAL_APPROVED"
	CategoryApprovalRejected   NotificationCategory = "APPROVAL_REJECTED"
	CategoryMention            NotificationCategory = "MENTION"
	CategoryChannelMessage     NotificationCategory = "CHANNEL_MESSAGE"
	CategorySystem             NotificationCategory = "SYSTEM"
)

// Notification, tek bir alıcıya ait kalıcı bildirim kaydı.
type Notification struct {
	ID        string               `json:"id" db:"id"`
	UserID    string               `json:"user_id" db:"user_id"`
	Category  NotificationCategory `json:"category" db:"category"`
	Title     string               `json:"title" db:"title"`
	Message   string               `json:"message" db:"message"`
	ActionURL *string              `json:"action_url" db:"action_url"`
	SenderID  *string              `json:"sender_id" db:"sender_id"`
	Metadata  Metadata             `json:"metadata" db:"metadata"`
	IsRead    bool                 `json:"is_read" db:"is_read"`
	ReadAt    *time.Time           `json:"read_at" db:"read_at"`
	CreatedAt time.Time            `json:"created_at" db:"created_at"`
}

// Metadata, bildirime eşlik eden serbest key-value verisi (task_id, invoice_no ...).
// notifications.metadata kolonunda JSON olarak saklanır.
type Metadata map[string]any

// Value, map'i JSON string'e çevirir.
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan, JSON kolonunu map'e çevirir.
func (m *Metadata) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*m = Metadata{}
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("unsupported metadata type %T", src)
	}
	if len(data) == 0 {
		*m = Metadata{}
		return nil
	}
	return json.Unmarshal(data, m)
}

// NotificationEvent, fan-out servisine giren domain olayı.
//
// Platformun diğer parçaları (task, invoice, approval ...) ve kanal
// mesajlaşmasının mention akışı bu yapıyla bildirim üretir.
type NotificationEvent struct {
	Category     NotificationCategory `json:"category"`
	RecipientIDs []string             `json:"recipient_ids"`
	Title        string               `json:"title"`
	Message      string               `json:"message"`
	ActionURL    *string              `json:"action_url"`
	SenderID     *string              `json:"sender_id"`
	Metadata     Metadata             `json:"metadata"`
}

// Validate, kategori, başlık ve en az bir alıcı zorunlu.
// Alıcı listesindeki boş ID'ler atılır, tekrarlar teke indirilir.
func (e *NotificationEvent) Validate() error {
	e.Title = strings.TrimSpace(e.Title)
	if e.Category == "" {
		return fmt.Errorf("category is required")
	}
	if e.Title == "" {
		return fmt.Errorf("title is required")
	}

	seen := make(map[string]bool, len(e.RecipientIDs))
	recipients := make([]string, 0, len(e.RecipientIDs))
	for _, id := range e.RecipientIDs {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		recipients = append(recipients, id)
	}
	e.RecipientIDs = recipients

	if len(e.RecipientIDs) == 0 {
		return fmt.Errorf("at least one recipient is required")
	}
	return nil
}

// ListNotificationsParams, GET /api/notifications sorgu parametreleri.
type ListNotificationsParams struct {
	UnreadOnly bool
	Before     *time.Time
	Limit      int
}

// NotificationPage, bildirim listesi sayfası.
type NotificationPage struct {
	Notifications []Notification `json:"notifications"`
	HasMore       bool           `json:"has_more"`
	UnreadCount   int            `json:"unread_count"`
}

// UpdateNotificationRequest, PATCH /api/notifications/{id} gövdesi.
type UpdateNotificationRequest struct {
	IsRead *bool `json:"is_read"`
}

// RecipientOutcome, fan-out sonucunda tek bir alıcının durumu.
type RecipientOutcome struct {
	UserID         string `json:"user_id"`
	NotificationID string `json:"notification_id,omitempty"`
	Persisted      bool   `json:"persisted"`
	Pushed         bool   `json:"pushed"`
	EmailQueued    bool   `json:"email_queued"`
	Error          string `json:"error,omitempty"`
}

// FanOutResult, Notify çağrısının alıcı bazında sonucu.
type FanOutResult struct {
	Outcomes []RecipientOutcome `json:"outcomes"`
}

// Persisted, başarıyla kaydedilen bildirim sayısını döner.
func (r *FanOutResult) Persisted() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Persisted {
			n++
		}
	}
	return n
}

// Outcome, verilen alıcının sonucunu döner.
func (r *FanOutResult) Outcome(userID string) (RecipientOutcome, bool) {
	for _, o := range r.Outcomes {
		if o.UserID == userID {
			return o, true
		}
	}
	return RecipientOutcome{}, false
}

package models

import "time"

// NotificationPreference, kullanıcının bildirim kanalları için tercihleri.
//
// EmailEnabled ana şalterdir: kapalıysa hiçbir kategori için email gitmez.
// Diğer email_* alanları kategori gruplarını ayrı ayrı açıp kapatır.
// InAppEnabled sadece realtime push'u etkiler; bildirim kaydı her durumda oluşur.
type NotificationPreference struct {
	UserID                string    `json:"user_id" db:"user_id"`
	EmailEnabled          bool      `json:"email_enabled" db:"email_enabled"`
	EmailTaskAssigned     bool      `json:"email_task_assigned" db:"email_task_assigned"`
	EmailProjectUpdates   bool      `json:"email_project_updates" db:"email_project_updates"`
	EmailInvoiceUpdates   bool      `json:"email_invoice_updates" db:"email_invoice_updates"`
	EmailFileShared       bool      `json:"email_file_shared" db:"email_file_shared"`
	EmailApprovalRequests bool      `json:"email_approval_requests" db:"email_approval_requests"`
	EmailMentions         bool      `json:"email_mentions" db:"email_mentions"`
	InAppEnabled          bool      `json:"in_app_enabled" db:"in_app_enabled"`
	DigestDaily           bool      `json:"digest_daily" db:"digest_daily"`
	DigestWeekly          bool      `json:"digest_weekly" db:"digest_weekly"`
	UpdatedAt             time.Time `json:"updated_at" db:"updated_at"`
}

// DefaultPreference, tercih kaydı olmayan kullanıcı için varsayılanlar:
// tüm email ve in-app şalterleri açık, digest'ler kapalı.
func DefaultPreference(userID string) NotificationPreference {
	return NotificationPreference{
		UserID:                userID,
		EmailEnabled:          true,
		EmailTaskAssigned:     true,
		EmailProjectUpdates:   true,
		EmailInvoiceUpdates:   true,
		EmailFileShared:       true,
		EmailApprovalRequests: true,
		EmailMentions:         true,
		InAppEnabled:          true,
	}
}

// UpdatePreferenceRequest, PATCH /api/notifications/preferences gövdesi.
// nil alanlar değişmez; gönderilen alanlar son yazan kazanır.
type UpdatePreferenceRequest struct {
	EmailEnabled          *bool `json:"email_enabled"`
	EmailTaskAssigned     *bool `json:"email_task_assigned"`
	EmailProjectUpdates   *bool `json:"email_project_updates"`
	EmailInvoiceUpdates   *bool `json:"email_invoice_updates"`
	EmailFileShared       *bool `json:"email_file_shared"`
	EmailApprovalRequests *bool `json:"email_approval_requests"`
	EmailMentions         *bool `json:"email_mentions"`
	InAppEnabled          *bool `json:"in_app_enabled"`
	DigestDaily           *bool `json:"digest_daily"`
	DigestWeekly          *bool `json:"digest_weekly"`
}

// Apply, gönderilen alanları pref üzerine yazar.
func (r *UpdatePreferenceRequest) Apply(pref *NotificationPreference) {
	set := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	set(&pref.EmailEnabled, r.EmailEnabled)
	set(&pref.EmailTaskAssigned, r.EmailTaskAssigned)
	set(&pref.EmailProjectUpdates, r.EmailProjectUpdates)
	set(&pref.EmailInvoiceUpdates, r.EmailInvoiceUpdates)
	set(&pref.EmailFileShared, r.EmailFileShared)
	set(&pref.EmailApprovalRequests, r.EmailApprovalRequests)
	set(&pref.EmailMentions, r.EmailMentions)
	set(&pref.InAppEnabled, r.InAppEnabled)
	set(&pref.DigestDaily, r.DigestDaily)
	set(&pref.DigestWeekly, r.DigestWeekly)
}

// DigestKind, özet email periyodu.
type DigestKind string

const (
	DigestDaily  DigestKind = "daily"
	DigestWeekly DigestKind = "weekly"
)

package services

import (
	"strings"

	"github.com/akinalp/ajans/models"
)

// preferenceFlag, kategori ailesini kontrol eden tercih alanını seçer.
// Tabloda olmayan kategoriler (CHANNEL_MESSAGE, SYSTEM, bilinmeyenler) nil döner.
func preferenceFlag(category models.NotificationCategory, prefs *models.NotificationPreference) *bool {
	c := string(category)
	switch {
	case strings.HasPrefix(c, "TASK_"):
		return &prefs.EmailTaskAssigned
	case strings.HasPrefix(c, "PROJECT_"):
		return &prefs.EmailProjectUpdates
	case strings.HasPrefix(c, "INVOICE_"):
		return &prefs.EmailInvoiceUpdates
	case strings.HasPrefix(c, "FILE_"):
		return &prefs.EmailFileShared
	case strings.HasPrefix(c, "APPROVAL_"):
		return &prefs.EmailApprovalRequests
	case category == models.CategoryMention:
		return &prefs.EmailMentions
	}
	return nil
}

// ShouldEmail, bildirim için email gönderilip gönderilmeyeceğine karar verir.
//
// Ana şalter kapalıysa hiçbir şey gitmez. Açıksa kategorinin ailesine ait
// bayrak belirleyicidir; ailesi olmayan kategoriler her zaman gönderilir.
func ShouldEmail(category models.NotificationCategory, prefs models.NotificationPreference) bool {
	if !prefs.EmailEnabled {
		return false
	}
	if flag := preferenceFlag(category, &prefs); flag != nil {
		return *flag
	}
	return true
}

// ShouldShowInApp, realtime push yapılıp yapılmayacağı. Bildirim kaydı
// bu karardan bağımsız olarak her zaman oluşur.
func ShouldShowInApp(_ models.NotificationCategory, prefs models.NotificationPreference) bool {
	return prefs.InAppEnabled
}

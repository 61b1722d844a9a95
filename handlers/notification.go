package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/akinalp/ajans/models"
	"github.com/akinalp/ajans/pkg"
	"github.com/akinalp/ajans/services"
)

// NotificationHandler, bildirim kutusu ve tercih endpoint'lerini yöneten struct.
type NotificationHandler struct {
	notificationService services.NotificationService
	preferenceService   services.PreferenceService
}

// NewNotificationHandler, constructor.
func NewNotificationHandler(
	notificationService services.NotificationService,
	preferenceService services.PreferenceService,
) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
		preferenceService:   preferenceService,
	}
}

// List godoc
// GET /api/notifications?unread=true&before=RFC3339&limit=20
// En yeniden eskiye sıralı bildirimler + toplam okunmamış sayısı.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	var params models.ListNotificationsParams

	if u := query.Get("unread"); u != "" {
		unread, err := strconv.ParseBool(u)
		if err != nil {
			pkg.ErrorWithMessage(w, http.StatusBadRequest, "unread must be a boolean")
			return
		}
		params.UnreadOnly = unread
	}

	if b := query.Get("before"); b != "" {
		before, err := time.Parse(time.RFC3339Nano, b)
		if err != nil {
			pkg.ErrorWithMessage(w, http.StatusBadRequest, "before must be an RFC3339 timestamp")
			return
		}
		params.Before = &before
	}

	if l := query.Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			params.Limit = parsed
		}
	}

	page, err := h.notificationService.List(r.Context(), user.ID, params)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, page)
}

// UnreadCount godoc
// GET /api/notifications/unread-count
func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	count, err := h.notificationService.UnreadCount(r.Context(), user.ID)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]int{"count": count})
}

// MarkAllRead godoc
// POST /api/notifications/read-all
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	updated, err := h.notificationService.MarkAllRead(r.Context(), user.ID)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]int64{"updated": updated})
}

// Get godoc
// GET /api/notifications/{id}
func (h *NotificationHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	notification, err := h.notificationService.Get(r.Context(), r.PathValue("id"), user.ID)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, notification)
}

// Update godoc
// PATCH /api/notifications/{id}
// Body: { "is_read": true }
func (h *NotificationHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req models.UpdateNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	notification, err := h.notificationService.Update(r.Context(), r.PathValue("id"), user.ID, &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, notification)
}

// Delete godoc
// DELETE /api/notifications/{id}
func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.notificationService.Delete(r.Context(), r.PathValue("id"), user.ID); err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]string{"message": "notification deleted"})
}

// GetPreferences godoc
// GET /api/notifications/preferences
// Kayıt yoksa varsayılanlar döner.
func (h *NotificationHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	prefs, err := h.preferenceService.Get(r.Context(), user.ID)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, prefs)
}

// UpdatePreferences godoc
// PATCH /api/notifications/preferences
// Sadece gönderilen alanlar değişir.
func (h *NotificationHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req models.UpdatePreferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	prefs, err := h.preferenceService.Update(r.Context(), user.ID, &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, prefs)
}

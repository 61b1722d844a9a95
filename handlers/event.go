package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/akinalp/ajans/models"
	"github.com/akinalp/ajans/pkg"
	"github.com/akinalp/ajans/services"
)

// EventHandler, platformun diğer modüllerinden (görev, fatura, onay ...)
// gelen domain olaylarını bildirim fan-out'una sokar.
type EventHandler struct {
	notificationService services.NotificationService
}

// NewEventHandler, constructor.
func NewEventHandler(notificationService services.NotificationService) *EventHandler {
	return &EventHandler{notificationService: notificationService}
}

// Publish godoc
// POST /api/events
// Body: models.NotificationEvent. Yanıt alıcı bazında sonuçları içerir;
// tek tek alıcı hataları isteği başarısız yapmaz.
func (h *EventHandler) Publish(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUser(w, r); !ok {
		return
	}

	var event models.NotificationEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.notificationService.Notify(r.Context(), event)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusAccepted, result)
}

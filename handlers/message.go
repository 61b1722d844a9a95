package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/akinalp/ajans/models"
	"github.com/akinalp/ajans/pkg"
	"github.com/akinalp/ajans/pkg/ratelimit"
	"github.com/akinalp/ajans/services"
)

// MessageHandler, kanal mesajı endpoint'lerini yöneten struct.
type MessageHandler struct {
	messageService services.MessageService
	limiter        *ratelimit.MessageRateLimiter
}

// NewMessageHandler, constructor. limiter nil ise gönderim sınırlanmaz.
func NewMessageHandler(messageService services.MessageService, limiter *ratelimit.MessageRateLimiter) *MessageHandler {
	return &MessageHandler{
		messageService: messageService,
		limiter:        limiter,
	}
}

// List godoc
// GET /api/channels/{id}/messages?before=ID&limit=20&grouped=true
// Mesajları seq cursor'ı ile sayfalar.
//
// Query parametreleri:
// - before: Bu mesajdan önceki mesajlar (boşsa en yeni pencere)
// - limit: Kaç mesaj dönsün (default 20, max 100)
// - grouped: true ise aynı göndericinin ardışık mesajları gruplanmış olarak da döner
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	channelID := r.PathValue("id")
	query := r.URL.Query()

	limit := 0
	if l := query.Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	var (
		page *models.MessagePage
		err  error
	)
	if before := query.Get("before"); before != "" {
		page, err = h.messageService.LoadOlder(r.Context(), channelID, user.ID, before, limit)
	} else {
		page, err = h.messageService.LoadWindow(r.Context(), channelID, user.ID, limit)
	}
	if err != nil {
		pkg.Error(w, err)
		return
	}

	if grouped, _ := strconv.ParseBool(query.Get("grouped")); grouped {
		page.Groups = h.messageService.Group(page.Messages)
	}

	pkg.JSON(w, http.StatusOK, page)
}

// Create godoc
// POST /api/channels/{id}/messages
// Body: { "body": "...", "attachments": [{name, url, size, mime_type}] }
//
// Spam koruması: limiter reddederse 429 + Retry-After.
func (h *MessageHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	if h.limiter != nil {
		if d := h.limiter.Allow(user.ID); !d.Allowed {
			retryAfter := d.RetryAfterSeconds()
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			pkg.ErrorWithMessage(w, http.StatusTooManyRequests,
				fmt.Sprintf("%s: slow down, try again in %d seconds", pkg.ErrRateLimited, retryAfter))
			return
		}
	}

	var req models.CreateMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	message, err := h.messageService.Send(r.Context(), r.PathValue("id"), user, &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusCreated, message)
}

package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/akinalp/ajans/models"
	"github.com/akinalp/ajans/pkg"
	"github.com/akinalp/ajans/services"
)

// ReadStateHandler, okunmamış mesaj takibi endpoint'lerini yöneten struct.
type ReadStateHandler struct {
	readStateService services.ReadStateService
}

// NewReadStateHandler, constructor.
func NewReadStateHandler(readStateService services.ReadStateService) *ReadStateHandler {
	return &ReadStateHandler{readStateService: readStateService}
}

// MarkRead godoc
// POST /api/channels/{id}/read
// Body (opsiyonel): { "message_id": "..." }. Boşsa kanalın son mesajı.
func (h *ReadStateHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req models.MarkReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	state, err := h.readStateService.MarkRead(r.Context(), r.PathValue("id"), user.ID, req.MessageID)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, state)
}

// GetUnreads godoc
// GET /api/workspaces/{workspaceId}/unread
// Kullanıcının bu workspace'teki kanallarındaki okunmamış mesaj sayıları.
func (h *ReadStateHandler) GetUnreads(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	workspaceID, ok := r.Context().Value(WorkspaceIDContextKey).(string)
	if !ok || workspaceID == "" {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "workspace context required")
		return
	}

	unreads, err := h.readStateService.GetUnreadCounts(r.Context(), user.ID, workspaceID)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, unreads)
}

package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/akinalp/ajans/models"
	"github.com/akinalp/ajans/pkg"
	"github.com/akinalp/ajans/services"
)

// ChannelHandler, kanal endpoint'lerini yöneten struct.
type ChannelHandler struct {
	channelService services.ChannelService
}

// NewChannelHandler, constructor.
func NewChannelHandler(channelService services.ChannelService) *ChannelHandler {
	return &ChannelHandler{channelService: channelService}
}

// List godoc
// GET /api/workspaces/{workspaceId}/channels
// Kullanıcının görebildiği kanalları okunmamış sayılarıyla döner.
func (h *ChannelHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	workspaceID, ok := r.Context().Value(WorkspaceIDContextKey).(string)
	if !ok || workspaceID == "" {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "workspace context required")
		return
	}

	channels, err := h.channelService.List(r.Context(), workspaceID, user.ID)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, channels)
}

// Create godoc
// POST /api/workspaces/{workspaceId}/channels
func (h *ChannelHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	workspaceID, ok := r.Context().Value(WorkspaceIDContextKey).(string)
	if !ok || workspaceID == "" {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "workspace context required")
		return
	}

	var req models.CreateChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	channel, err := h.channelService.Create(r.Context(), workspaceID, user.ID, &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusCreated, channel)
}

// Update godoc
// PATCH /api/channels/{id}
// Sadece gönderilen alanlar (name, description, is_private) güncellenir.
func (h *ChannelHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req models.UpdateChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	channel, err := h.channelService.Update(r.Context(), r.PathValue("id"), user.ID, &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, channel)
}

// Archive godoc
// POST /api/channels/{id}/archive
func (h *ChannelHandler) Archive(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	channel, err := h.channelService.Archive(r.Context(), r.PathValue("id"), user.ID)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, channel)
}

// AddMember godoc
// POST /api/channels/{id}/members
// Body: { "user_id": "..." }
func (h *ChannelHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req models.AddChannelMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "user_id is required")
		return
	}

	if err := h.channelService.AddMember(r.Context(), r.PathValue("id"), user.ID, req.UserID); err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]string{"message": "member added"})
}

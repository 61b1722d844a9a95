// Package main — HTTP route registration.
//
// initRoutes, tüm API endpoint'lerini mux'a bağlar.
// Middleware chain helper'ları:
//   - auth: JWT token doğrulaması + kullanıcıyı context'e yükleme
//   - authWorkspace: auth + workspace üyelik kontrolü
package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/akinalp/ajans/handlers"
	"github.com/akinalp/ajans/middleware"
	"github.com/akinalp/ajans/repository"
	"github.com/akinalp/ajans/services"
)

// initRoutes, middleware chain'i kurar ve tüm endpoint'leri mux'a bağlar.
//
// Literal path'ler ("/api/notifications/unread-count") Go 1.22 mux'ta
// parametrik path'lerden ("/api/notifications/{id}") daha spesifik sayılır
// ve önce eşleşir.
func initRoutes(
	mux *http.ServeMux,
	h *Handlers,
	authService services.AuthService,
	userRepo repository.UserRepository,
) {
	// ─── Middleware ───
	authMw := middleware.NewAuthMiddleware(authService)
	workspaceMw := middleware.NewWorkspaceMembershipMiddleware(userRepo)

	auth := func(handler http.HandlerFunc) http.Handler {
		return authMw.Require(handler)
	}
	authWorkspace := func(handler http.HandlerFunc) http.Handler {
		return authMw.Require(workspaceMw.Require(handler))
	}

	// ─── Public ───
	mux.HandleFunc("GET /api/health", handlers.HealthHandler)
	mux.Handle("GET /metrics", promhttp.Handler())

	// ─── Channels ───
	mux.Handle("GET /api/workspaces/{workspaceId}/channels", authWorkspace(h.Channel.List))
	mux.Handle("POST /api/workspaces/{workspaceId}/channels", authWorkspace(h.Channel.Create))
	mux.Handle("GET /api/workspaces/{workspaceId}/unread", authWorkspace(h.ReadState.GetUnreads))
	mux.Handle("PATCH /api/channels/{id}", auth(h.Channel.Update))
	mux.Handle("POST /api/channels/{id}/archive", auth(h.Channel.Archive))
	mux.Handle("POST /api/channels/{id}/members", auth(h.Channel.AddMember))

	// ─── Messages & read state ───
	mux.Handle("GET /api/channels/{id}/messages", auth(h.Message.List))
	mux.Handle("POST /api/channels/{id}/messages", auth(h.Message.Create))
	mux.Handle("POST /api/channels/{id}/read", auth(h.ReadState.MarkRead))

	// ─── Notifications ───
	mux.Handle("GET /api/notifications", auth(h.Notification.List))
	mux.Handle("GET /api/notifications/unread-count", auth(h.Notification.UnreadCount))
	mux.Handle("POST /api/notifications/read-all", auth(h.Notification.MarkAllRead))
	mux.Handle("GET /api/notifications/preferences", auth(h.Notification.GetPreferences))
	mux.Handle("PATCH /api/notifications/preferences", auth(h.Notification.UpdatePreferences))
	mux.Handle("GET /api/notifications/{id}", auth(h.Notification.Get))
	mux.Handle("PATCH /api/notifications/{id}", auth(h.Notification.Update))
	mux.Handle("DELETE /api/notifications/{id}", auth(h.Notification.Delete))

	// ─── Domain event ingress (platform içi) ───
	mux.Handle("POST /api/events", auth(h.Event.Publish))

	// ─── WebSocket ───
	// Tarayıcılar upgrade sırasında custom header gönderemez; token
	// ?token= query parametresiyle gelir ve ws.Handler kendi doğrular.
	mux.HandleFunc("GET /ws", h.WS.HandleConnection)
}

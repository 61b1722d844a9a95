package ws

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/akinalp/ajans/models"
)

// TokenValidator, WebSocket handler'ın JWT doğrulaması için kullandığı interface.
//
// services.AuthService yerine küçük bir interface: services paketi
// ws.EventPublisher'ı kullanıyor, ws → services import'u döngü oluştururdu.
type TokenValidator interface {
	ValidateAccessToken(tokenString string) (*models.TokenClaims, error)
}

// ChannelAuthorizer, channel_join sırasında kullanıcının kanala erişimini kontrol eder.
// services.ChannelService bu interface'i karşılar.
type ChannelAuthorizer interface {
	CanAccessChannel(ctx context.Context, channelID, userID string) error
}

// Handler, WebSocket bağlantı isteklerini işleyen HTTP handler'ı.
type Handler struct {
	hub            *Hub
	tokenValidator TokenValidator
	authorizer     ChannelAuthorizer
	upgrader       websocket.Upgrader
}

// NewHandler, yeni bir WebSocket handler oluşturur.
//
// allowedOrigins boşsa tüm origin'lere izin verilir (development).
func NewHandler(hub *Hub, tokenValidator TokenValidator, authorizer ChannelAuthorizer, allowedOrigins []string) *Handler {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}

	return &Handler{
		hub:            hub,
		tokenValidator: tokenValidator,
		authorizer:     authorizer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(origins) == 0 || origin == "" || origins[origin] || origins["*"]
			},
		},
	}
}

// HandleConnection, HTTP bağlantısını WebSocket'e yükseltir ve client'ı Hub'a kaydeder.
//
// Tarayıcı WebSocket isteğine header ekleyemediği için token query'den gelir:
//
//	ws://server/ws?token=JWT_TOKEN
func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	claims, err := h.tokenValidator.ValidateAccessToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.hub.log.Warn("upgrade failed", zap.String("user_id", claims.UserID), zap.Error(err))
		return
	}

	client := newClient(h.hub, conn, claims.UserID, h.authorizer)

	// ready, register'dan önce buffer'a konur: client Hub'a eklendiği an
	// gelen broadcast'lerden önce yazılır.
	if data, ok := h.hub.encode(Event{Op: OpReady, Data: ReadyData{UserID: claims.UserID}}); ok {
		client.send <- data
	}

	select {
	case h.hub.register <- client:
	case <-h.hub.done:
		conn.Close()
		return
	}

	// ReadPump bağlantı kapanana kadar bu goroutine'i bloklar.
	go client.WritePump()
	client.ReadPump()
}

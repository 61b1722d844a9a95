// Package main — Handler katmanı başlatma.
//
// initHandlers, tüm HTTP handler'larını oluşturur.
// Handler'lar "thin" dir: HTTP parse + service call + response write.
package main

import (
	"github.com/akinalp/ajans/config"
	"github.com/akinalp/ajans/handlers"
	"github.com/akinalp/ajans/ws"
)

// Handlers, tüm handler instance'larını tutan container struct.
type Handlers struct {
	Channel      *handlers.ChannelHandler
	Message      *handlers.MessageHandler
	ReadState    *handlers.ReadStateHandler
	Notification *handlers.NotificationHandler
	Event        *handlers.EventHandler
	WS           *ws.Handler
}

// initHandlers, tüm handler'ları service dependency'leri ile oluşturur.
func initHandlers(svcs *Services, bg *Background, hub *ws.Hub, cfg *config.Config) *Handlers {
	return &Handlers{
		Channel:      handlers.NewChannelHandler(svcs.Channel),
		Message:      handlers.NewMessageHandler(svcs.Message, bg.MessageLimiter),
		ReadState:    handlers.NewReadStateHandler(svcs.ReadState),
		Notification: handlers.NewNotificationHandler(svcs.Notification, svcs.Preference),
		Event:        handlers.NewEventHandler(svcs.Notification),
		// WebSocket token'ı query param ile gelir; kanal yetkisi ChannelService'te
		WS: ws.NewHandler(hub, svcs.Auth, svcs.Channel, cfg.Server.AllowedOrigins),
	}
}

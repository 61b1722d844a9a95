// Package main — Realtime katmanı başlatma.
//
// initRealtime, presence broker'ını, Tracker'ı ve WebSocket Hub'ını kurar.
// Redis açıksa presence snapshot'ları instance'lar arasında Pub/Sub ile
// yayılır; kapalıysa process içi LocalBroker kullanılır.
//
// Hub, broker'a abone olur ve gelen snapshot'ları kanala abone WebSocket
// client'larına iletir. Service'ler Hub'a ws.EventPublisher interface'i
// üzerinden erişir.
package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/akinalp/ajans/config"
	"github.com/akinalp/ajans/presence"
	"github.com/akinalp/ajans/ws"
)

// Realtime, presence + hub bileşenlerini bir arada tutar.
type Realtime struct {
	Broker  presence.Broker
	Tracker *presence.Tracker
	Hub     *ws.Hub
}

// initRealtime, broker'ı seçer, Tracker ve Hub'ı oluşturur ve hub event
// loop'unu başlatır.
func initRealtime(ctx context.Context, cfg config.RedisConfig, log *zap.Logger) (*Realtime, error) {
	var broker presence.Broker
	if cfg.Enabled {
		rb, err := presence.NewRedisBroker(ctx, cfg.URL, log)
		if err != nil {
			return nil, fmt.Errorf("failed to start redis presence broker: %w", err)
		}
		broker = rb
		log.Info("presence broker: redis")
	} else {
		broker = presence.NewLocalBroker()
		log.Info("presence broker: local")
	}

	tracker := presence.NewTracker(broker, log)
	hub := ws.NewHub(tracker, broker, log)
	go hub.Run()

	return &Realtime{Broker: broker, Tracker: tracker, Hub: hub}, nil
}

// Close, hub'ı kapatır; ardından Tracker ve broker'ı serbest bırakır.
// Sıra önemli: hub kapanırken client'ların presence Leave çağrıları
// broker'a hâlâ yayın yapabilmeli.
func (rt *Realtime) Close(log *zap.Logger) {
	rt.Hub.Shutdown()
	rt.Tracker.Close()
	if err := rt.Broker.Close(); err != nil {
		log.Warn("failed to close presence broker", zap.Error(err))
	}
}

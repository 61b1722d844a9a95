// Package main, ajans mesajlaşma ve bildirim servisinin giriş noktasıdır.
//
// Bu dosyanın görevi — Dependency Injection "wire-up":
//  1. Config'i yükle
//  2. Logger'ı oluştur
//  3. Database'i başlat (embedded migration'lar)
//  4. Prometheus metriklerini kaydet
//  5. Repository'leri oluştur
//  6. Presence broker + Tracker + WebSocket Hub
//  7. Service'leri oluştur (email kuyruğu, özet zamanlayıcısı dahil)
//  8. Handler'ları ve route'ları bağla
//  9. CORS + erişim logu
//  10. HTTP Server'ı başlat
//  11. Graceful shutdown
//
// Global değişken YOK — her şey burada oluşturulup birbirine bağlanıyor.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/akinalp/ajans/config"
	"github.com/akinalp/ajans/database"
	"github.com/akinalp/ajans/middleware"
	"github.com/akinalp/ajans/pkg/logger"
	"github.com/akinalp/ajans/pkg/metrics"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "ajans: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// ─── 1. Config ───
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─── 2. Logger ───
	baseLog, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer baseLog.Sync() //nolint:errcheck
	log := baseLog.Named("main")
	log.Info("ajans server starting", zap.Int("port", cfg.Server.Port))

	// ─── 3. Database ───
	migrationsFS, err := fs.Sub(database.EmbeddedMigrations, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	db, err := database.New(cfg.Database, migrationsFS, baseLog)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	// ─── 4. Metrics ───
	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	// ─── 5. Repository Layer ───
	repos := initRepositories(db.Conn)

	// ─── 6. Realtime ───
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := initRealtime(ctx, cfg.Redis, baseLog)
	if err != nil {
		return err
	}

	// ─── 7. Service Layer ───
	svcs, bg, err := initServices(repos, rt.Hub, cfg, baseLog)
	if err != nil {
		rt.Close(log)
		return err
	}

	// ─── 8. Handlers & Routes ───
	h := initHandlers(svcs, bg, rt.Hub, cfg)
	mux := http.NewServeMux()
	initRoutes(mux, h, svcs.Auth, repos.User)

	// ─── 9. CORS + erişim logu ───
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{"Retry-After", middleware.RequestIDHeader},
		AllowCredentials: true,
	})
	handler := middleware.RequestLogger(baseLog)(corsHandler.Handler(mux))

	// ─── 10. HTTP Server ───
	// WriteTimeout yok: WebSocket bağlantıları uzun ömürlü, yazma
	// deadline'larını ws.Client kendisi yönetir.
	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", cfg.Server.Addr()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			log.Error("server error", zap.Error(err))
		}
	}

	// ─── 11. Graceful Shutdown ───
	// Sıra: HTTP → hub → özet döngüleri + email kuyruğu → broker → DB (defer).
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("forced http shutdown", zap.Error(err))
	}

	rt.Hub.Shutdown()
	bg.Close()
	rt.Close(log)

	log.Info("server stopped gracefully")
	return nil
}

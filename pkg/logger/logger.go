// Package logger, uygulama genelinde kullanılan zap logger'ı oluşturur.
//
// Component'ler logger'ı constructor üzerinden alır ve kendi adıyla
// alt logger türetir: logger.Named("ws"), logger.Named("notify") ...
// Böylece her log satırı hangi bileşenden geldiğini "logger" alanında taşır.
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/akinalp/ajans/config"
)

// New, konfigürasyona göre zap logger oluşturur.
//
// Format "console" ise renkli development çıktısı, aksi halde JSON
// production çıktısı kullanılır.
func New(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	switch cfg.Format {
	case "console":
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	log, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	return log, nil
}

// Package email, bildirim ve özet email'lerinin gönderimi için soyutlama katmanı.
//
// Servis katmanı Sender interface'ine bağımlıdır. Sağlayıcı config'den seçilir:
//   - "resend": Resend HTTP API
//   - "smtp":   herhangi bir SMTP sunucusu (STARTTLS destekliyse kullanılır)
//   - "log":    gönderim yapmaz, sadece loglar (geliştirme ortamı)
package email

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/akinalp/ajans/config"
)

// Message, gönderilecek tek bir email. HTML ve düz metin birlikte taşınır.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Sender, email gönderimi için interface.
// Send ctx iptal edilir ya da deadline geçerse hata dönmelidir.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// NewSender, config'deki provider'a göre Sender oluşturur.
func NewSender(cfg config.EmailConfig, log *zap.Logger) (Sender, error) {
	switch cfg.Provider {
	case "resend":
		return NewResendSender(cfg.ResendAPIKey, cfg.From), nil
	case "smtp":
		return NewSMTPSender(SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.From,
		}), nil
	case "log", "":
		return NewLogSender(log), nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.Provider)
	}
}

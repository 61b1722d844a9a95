package email

import (
	"context"

	"go.uber.org/zap"
)

type logSender struct {
	log *zap.Logger
}

// NewLogSender, email göndermeyip sadece loglayan Sender. Provider "log"
// seçildiğinde (yerel geliştirme) kullanılır.
func NewLogSender(log *zap.Logger) Sender {
	return &logSender{log: log.Named("email")}
}

func (s *logSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.log.Info("email (log provider)",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Int("html_bytes", len(msg.HTML)))
	return nil
}

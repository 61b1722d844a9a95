package email

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v3"
)

type resendSender struct {
	client *resend.Client
	from   string
}

// NewResendSender, Resend API üzerinden gönderen Sender.
// from, Resend'de doğrulanmış bir domain altında olmalı.
func NewResendSender(apiKey, from string) Sender {
	return &resendSender{
		client: resend.NewClient(apiKey),
		from:   from,
	}
}

func (s *resendSender) Send(ctx context.Context, msg Message) error {
	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("Ajans <%s>", s.from),
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	}

	if _, err := s.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("resend: failed to send email: %w", err)
	}
	return nil
}

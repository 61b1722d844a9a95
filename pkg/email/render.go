package email

import (
	"bytes"
	"fmt"
	"html/template"
	"strconv"
	"strings"

	"github.com/akinalp/ajans/pkg/i18n"
)

// NotificationContent, tek bir bildirim email'inin içeriği.
// ActionURL "/" ile başlıyorsa uygulama URL'ine eklenir.
type NotificationContent struct {
	RecipientName string
	Category      string
	Title         string
	Body          string
	ActionURL     string
}

// DigestItem, özet email'indeki tek satır. When önceden biçimlenmiş gelir ("3 hours ago").
type DigestItem struct {
	Category  string
	Title     string
	Body      string
	When      string
	ActionURL string
}

// Renderer, email içeriklerini alıcının dilinde üretir.
type Renderer struct {
	bundle       *i18n.Bundle
	appURL       string
	notification *template.Template
	digest       *template.Template
}

// NewRenderer, template'leri bir kez parse eder.
func NewRenderer(bundle *i18n.Bundle, appURL string) (*Renderer, error) {
	notification, err := template.New("notification").Parse(notificationTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse notification template: %w", err)
	}
	digest, err := template.New("digest").Parse(digestTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse digest template: %w", err)
	}
	return &Renderer{
		bundle:       bundle,
		appURL:       strings.TrimRight(appURL, "/"),
		notification: notification,
		digest:       digest,
	}, nil
}

// Notification, bildirim email'ini üretir. Dönen Message'ın To alanı boştur.
func (r *Renderer) Notification(lang string, c NotificationContent) (Message, error) {
	l := r.bundle.Localizer(lang)
	app := l.T("app.name")

	data := map[string]any{
		"Lang":     l.Lang(),
		"App":      app,
		"Greeting": l.TWithParams("email.notification.greeting", map[string]string{"name": c.RecipientName}),
		"Category": r.categoryLabel(l, c.Category),
		"Title":    c.Title,
		"Body":     c.Body,
		"URL":      r.absoluteURL(c.ActionURL),
		"CTA":      l.TWithParams("email.notification.cta", map[string]string{"app": app}),
		"Footer":   l.T("email.notification.footer"),
	}

	var html bytes.Buffer
	if err := r.notification.Execute(&html, data); err != nil {
		return Message{}, fmt.Errorf("render notification email: %w", err)
	}

	var text strings.Builder
	fmt.Fprintf(&text, "%s\n\n%s: %s\n", data["Greeting"], data["Category"], c.Title)
	if c.Body != "" {
		fmt.Fprintf(&text, "\n%s\n", c.Body)
	}
	if url := data["URL"].(string); url != "" {
		fmt.Fprintf(&text, "\n%s\n", url)
	}
	fmt.Fprintf(&text, "\n--\n%s\n", data["Footer"])

	return Message{
		Subject: l.TWithParams("email.notification.subject", map[string]string{"title": c.Title, "app": app}),
		HTML:    html.String(),
		Text:    text.String(),
	}, nil
}

// Digest, özet email'ini üretir. kind "daily" veya "weekly".
func (r *Renderer) Digest(lang, kind, recipientName string, items []DigestItem) (Message, error) {
	l := r.bundle.Localizer(lang)
	app := l.T("app.name")

	rows := make([]map[string]string, 0, len(items))
	for _, it := range items {
		rows = append(rows, map[string]string{
			"Category": r.categoryLabel(l, it.Category),
			"Title":    it.Title,
			"Body":     it.Body,
			"When":     it.When,
			"URL":      r.absoluteURL(it.ActionURL),
		})
	}

	subject := l.TWithParams("email.digest.subject_"+kind, map[string]string{"count": strconv.Itoa(len(items))})
	data := map[string]any{
		"Lang":     l.Lang(),
		"App":      app,
		"Greeting": l.TWithParams("email.notification.greeting", map[string]string{"name": recipientName}),
		"Intro":    l.T("email.digest.intro"),
		"Items":    rows,
		"Footer":   l.T("email.digest.footer"),
	}

	var html bytes.Buffer
	if err := r.digest.Execute(&html, data); err != nil {
		return Message{}, fmt.Errorf("render digest email: %w", err)
	}

	var text strings.Builder
	fmt.Fprintf(&text, "%s\n\n%s\n\n", data["Greeting"], data["Intro"])
	for _, row := range rows {
		fmt.Fprintf(&text, "- [%s] %s (%s)\n", row["Category"], row["Title"], row["When"])
	}
	fmt.Fprintf(&text, "\n--\n%s\n", data["Footer"])

	return Message{Subject: subject, HTML: html.String(), Text: text.String()}, nil
}

// categoryLabel, bilinmeyen kategoride ham değeri gösterir.
func (r *Renderer) categoryLabel(l *i18n.Localizer, category string) string {
	key := "category." + category
	if label := l.T(key); label != key {
		return label
	}
	return category
}

func (r *Renderer) absoluteURL(u string) string {
	if strings.HasPrefix(u, "/") && r.appURL != "" {
		return r.appURL + u
	}
	return u
}

const notificationTemplate = `<!DOCTYPE html>
<html lang="{{.Lang}}">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="margin:0;padding:0;background-color:#f4f5f7;font-family:Arial,Helvetica,sans-serif;">
  <table width="100%" cellpadding="0" cellspacing="0" style="background-color:#f4f5f7;padding:32px 0;">
    <tr>
      <td align="center">
        <table width="520" cellpadding="0" cellspacing="0" style="background-color:#ffffff;border-radius:8px;padding:32px;">
          <tr>
            <td>
              <h1 style="color:#1f2937;font-size:20px;margin:0 0 16px 0;">{{.App}}</h1>
              <p style="color:#374151;font-size:15px;margin:0 0 16px 0;">{{.Greeting}}</p>
              <p style="color:#6b7280;font-size:12px;text-transform:uppercase;letter-spacing:0.5px;margin:0 0 4px 0;">{{.Category}}</p>
              <h2 style="color:#111827;font-size:17px;margin:0 0 12px 0;">{{.Title}}</h2>
              {{if .Body}}<p style="color:#374151;font-size:15px;line-height:1.6;margin:0 0 24px 0;">{{.Body}}</p>{{end}}
              {{if .URL}}
              <table cellpadding="0" cellspacing="0" style="margin:0 0 24px 0;">
                <tr>
                  <td style="background-color:#4f46e5;border-radius:6px;padding:10px 24px;">
                    <a href="{{.URL}}" style="color:#ffffff;text-decoration:none;font-size:14px;font-weight:600;">{{.CTA}}</a>
                  </td>
                </tr>
              </table>
              {{end}}
              <p style="color:#9ca3af;font-size:12px;line-height:1.5;margin:0;">{{.Footer}}</p>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`

const digestTemplate = `<!DOCTYPE html>
<html lang="{{.Lang}}">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="margin:0;padding:0;background-color:#f4f5f7;font-family:Arial,Helvetica,sans-serif;">
  <table width="100%" cellpadding="0" cellspacing="0" style="background-color:#f4f5f7;padding:32px 0;">
    <tr>
      <td align="center">
        <table width="560" cellpadding="0" cellspacing="0" style="background-color:#ffffff;border-radius:8px;padding:32px;">
          <tr>
            <td>
              <h1 style="color:#1f2937;font-size:20px;margin:0 0 16px 0;">{{.App}}</h1>
              <p style="color:#374151;font-size:15px;margin:0 0 8px 0;">{{.Greeting}}</p>
              <p style="color:#374151;font-size:15px;margin:0 0 24px 0;">{{.Intro}}</p>
              {{range .Items}}
              <div style="border-top:1px solid #e5e7eb;padding:12px 0;">
                <p style="color:#6b7280;font-size:12px;margin:0 0 4px 0;">{{.Category}} · {{.When}}</p>
                {{if .URL}}<a href="{{.URL}}" style="color:#111827;font-size:15px;font-weight:600;text-decoration:none;">{{.Title}}</a>{{else}}<span style="color:#111827;font-size:15px;font-weight:600;">{{.Title}}</span>{{end}}
                {{if .Body}}<p style="color:#4b5563;font-size:14px;margin:4px 0 0 0;">{{.Body}}</p>{{end}}
              </div>
              {{end}}
              <p style="color:#9ca3af;font-size:12px;line-height:1.5;margin:24px 0 0 0;">{{.Footer}}</p>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`

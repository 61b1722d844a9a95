// Package metrics, servisin Prometheus metriklerini tanımlar.
//
// Metrikler paket seviyesinde oluşturulur ve Register ile bir registry'ye
// kaydedilir. main.go varsayılan registry'yi kullanır; testler kendi
// registry'sini verebilir ya da hiç kaydetmeden sayaçları okuyabilir.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// MessagesAppended, kanallara eklenen mesaj sayısı.
	MessagesAppended = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ajans",
		Name:      "messages_appended_total",
		Help:      "Number of channel messages appended.",
	})

	// NotificationsCreated, kategori bazında persist edilen bildirim sayısı.
	NotificationsCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ajans",
		Name:      "notifications_created_total",
		Help:      "Number of notification rows persisted, by category.",
	}, []string{"category"})

	// NotificationPersistFailures, persist edilemeyen alıcı sayısı.
	NotificationPersistFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ajans",
		Name:      "notification_persist_failures_total",
		Help:      "Number of recipients whose notification row could not be persisted.",
	})

	// NotificationEmails, email teslim denemeleri. result: sent, failed, dropped, skipped.
	NotificationEmails = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ajans",
		Name:      "notification_emails_total",
		Help:      "Notification email dispatch attempts, by result.",
	}, []string{"result"})

	// DigestsSent, gönderilen özet email sayısı.
	DigestsSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ajans",
		Name:      "digests_sent_total",
		Help:      "Digest emails sent, by kind.",
	}, []string{"kind"})

	// PresenceSessions, bu instance'ta takip edilen (kanal, kullanıcı) oturumları.
	PresenceSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "ajans",
		Name:      "presence_sessions",
		Help:      "Live (channel, user) presence sessions tracked by this instance.",
	})

	// WSConnections, açık WebSocket bağlantı sayısı.
	WSConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "ajans",
		Name:      "ws_connections",
		Help:      "Open WebSocket connections.",
	})
)

// Register, tüm metrikleri verilen registry'ye kaydeder.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		MessagesAppended,
		NotificationsCreated,
		NotificationPersistFailures,
		NotificationEmails,
		DigestsSent,
		PresenceSessions,
		WSConnections,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

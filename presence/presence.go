// Package presence, kanal bazlı anlık katılımcı durumunu (online, yazıyor,
// son görülme) tutar ve her değişikliği bir Broker üzerinden yayınlar.
//
// Durum sadece bellektedir; bağlantı koptuğunda düşer. Birden fazla instance
// çalışıyorsa RedisBroker snapshot'ları instance'lar arasında taşır ve her
// Tracker diğerlerinin snapshot'larını Apply ile kendi görünümüne işler.
//
// Yayın best-effort'tur: Publish hatası loglanır, tekrar denenmez. Aynı
// katılımcı için aynı anda gelen güncellemelerde son yazan kazanır.
//
// Sıralama garantisi: bir (kanal, kullanıcı) çifti için Tracker snapshot'ları
// durum değişikliği sırasıyla yayınlar (bkz. Tracker). LocalBroker
// abonelere senkron iletir; RedisBroker tek bir Pub/Sub kanalı kullanır ve
// Redis aynı kanaldaki mesajları yayın sırasıyla teslim eder. Böylece
// abonelerin gördüğü son snapshot, yayınlayan Tracker'ın son durumudur.
// Farklı instance'ların aynı katılımcı hakkındaki snapshot'ları arasında
// sıra garantisi yoktur; Apply, yerel bağlantısı süren katılımcıyı uzak bir
// offline snapshot ile düşürmeyerek bunu telafi eder.
//
// Akış:
//
//	ws.Client channel_join  → Tracker.Join    → Broker.Publish → Hub.forwardPresence
//	ws.Client presence_update → Tracker.Update → ...
//	bağlantı kapanışı        → Tracker.Leave   → ...
//	Redis'ten gelen snapshot → Tracker.Apply (diğer instance'ın durumu)
package presence

import (
	"context"
	"time"
)

// State, bir katılımcının bir kanaldaki anlık durumu.
type State struct {
	ChannelID  string    `json:"channel_id"`
	UserID     string    `json:"user_id"`
	Online     bool      `json:"online"`
	Typing     bool      `json:"typing"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

// Patch, kısmi güncelleme. nil alanlar değişmez.
type Patch struct {
	Typing     *bool      `json:"typing,omitempty"`
	LastSeenAt *time.Time `json:"last_seen_at,omitempty"`
}

// Snapshot, broker üzerinden taşınan tek bir durum değişikliği.
// Origin, snapshot'ı üreten Tracker'ın kimliğidir; Tracker kendi
// snapshot'larını Apply'da atlar.
type Snapshot struct {
	Origin string `json:"origin"`
	State  State  `json:"state"`
}

// Broker, presence snapshot'larını abonelere dağıtır.
type Broker interface {
	// Publish, snapshot'ı tüm abonelere iletir.
	Publish(ctx context.Context, snap Snapshot) error

	// Subscribe, her snapshot için fn'i çağırır. fn bloklamamalıdır.
	// Dönen fonksiyon aboneliği kaldırır.
	Subscribe(fn func(Snapshot)) (unsubscribe func())

	Close() error
}

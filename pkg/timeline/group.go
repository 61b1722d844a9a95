// Package timeline, kanal geçmişinin görünür penceresini ve mesaj
// gruplamasını UI'dan bağımsız, saf fonksiyonlar olarak sağlar.
//
// İki parça var:
//   - Group: artan sıradaki mesajları "aynı gönderici, kısa aralık" kuralıyla
//     render gruplarına ayırır. MessageService.Group ve
//     GET /api/channels/{id}/messages?grouped=true bunu kullanır; istemci
//     aynı girdiyle aynı grupları kendisi de hesaplayabilir.
//   - Window: istemci tarafındaki "yukarı kaydırdıkça daha eskisini yükle"
//     akışının sunucudan bağımsız modeli. Sayfa okuyucusu (PageFunc) HTTP
//     istemcisi, test sahtesi veya doğrudan MessageService olabilir.
//
// Sıra seq'e göredir, created_at'e göre değil: aynı milisaniyede yazılan iki
// mesaj seq ile kesin sıralanır. created_at sadece grup sınırı için okunur.
package timeline

import (
	"time"

	"github.com/akinalp/ajans/models"
)

// DefaultGroupGap, aynı göndericinin ardışık mesajlarının aynı grupta
// kalabileceği en büyük zaman aralığı.
const DefaultGroupGap = 5 * time.Minute

// Group, artan sıradaki mesaj listesini render gruplarına ayırır.
//
// Tek geçişte çalışır: gönderici değiştiğinde veya önceki mesajla arasındaki
// süre gap'i aştığında (eşitlik aşmak sayılmaz) yeni grup başlar. Grubun
// zaman damgası ilk mesajınınkidir. Aynı girdi her zaman aynı çıktıyı verir.
func Group(messages []models.Message, gap time.Duration) []models.MessageGroup {
	if gap <= 0 {
		gap = DefaultGroupGap
	}

	groups := make([]models.MessageGroup, 0)
	var prev *models.Message

	for i := range messages {
		msg := &messages[i]

		if prev == nil || msg.UserID != prev.UserID || msg.CreatedAt.Sub(prev.CreatedAt) > gap {
			groups = append(groups, models.MessageGroup{
				SenderID:  msg.UserID,
				Timestamp: msg.CreatedAt,
			})
		}

		g := &groups[len(groups)-1]
		g.MessageIDs = append(g.MessageIDs, msg.ID)
		g.Bodies = append(g.Bodies, msg.Body)
		prev = msg
	}

	return groups
}

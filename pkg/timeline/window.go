package timeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/akinalp/ajans/models"
)

// DefaultPageSize, loadOlder çağrısının varsayılan büyüklüğü.
const DefaultPageSize = 20

// PageFunc, bir kanalın geçmişinden sayfa okuyan fonksiyon.
// beforeID boşsa en yeni mesajlar döner; aksi halde beforeID'den daha eski olanlar.
// Dönen mesajlar artan sırada olmalıdır.
type PageFunc func(ctx context.Context, beforeID string, size int) (*models.MessagePage, error)

// Window, kanal geçmişinin o an yüklenmiş, kesintisiz dilimi.
//
// Kullanım:
//
//	w := timeline.NewWindow(fetch)
//	if err := w.Load(ctx, 50); err != nil { ... }
//	for w.HasMore() {
//	    if _, err := w.LoadOlder(ctx, 50); err != nil { ... }
//	}
//
// Pencere yalnızca geriye doğru büyür. Yeni sayfa önce ayrı bir slice'a
// okunur, pencereye sadece okuma başarılıysa ve context iptal edilmemişse
// eklenir; iptal edilen bir LoadOlder mevcut pencereyi değiştirmez.
type Window struct {
	mu       sync.Mutex
	fetch    PageFunc
	messages []models.Message
	hasMore  bool
	loaded   bool
}

// NewWindow, verilen sayfa okuyucusu ile boş bir pencere oluşturur.
func NewWindow(fetch PageFunc) *Window {
	return &Window{fetch: fetch}
}

// Load, pencereyi en yeni size mesajla baştan kurar.
func (w *Window) Load(ctx context.Context, size int) error {
	if size <= 0 {
		size = DefaultPageSize
	}

	page, err := w.fetch(ctx, "", size)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.messages = append([]models.Message(nil), page.Messages...)
	w.hasMore = page.HasMore
	w.loaded = true
	return nil
}

// LoadOlder, pencereyi size kadar daha eski mesajla geriye doğru genişletir
// ve eklenen mesaj sayısını döner. Daha eski mesaj kalmadıysa 0 döner.
func (w *Window) LoadOlder(ctx context.Context, size int) (int, error) {
	if size <= 0 {
		size = DefaultPageSize
	}

	w.mu.Lock()
	if !w.loaded {
		w.mu.Unlock()
		if err := w.Load(ctx, size); err != nil {
			return 0, err
		}
		return len(w.Messages()), nil
	}
	if !w.hasMore || len(w.messages) == 0 {
		w.mu.Unlock()
		return 0, nil
	}
	oldest := w.messages[0]
	w.mu.Unlock()

	page, err := w.fetch(ctx, oldest.ID, size)
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	// Okuma sürerken pencere değiştiyse (eşzamanlı Load/LoadOlder) sayfa
	// artık bitişik değildir; eklemek boşluk veya tekrar üretir.
	if len(w.messages) == 0 || w.messages[0].ID != oldest.ID {
		return 0, fmt.Errorf("window changed during load")
	}

	// Sayfa sınırında çakışan satırlar (cursor'un kendisi dahil) atlanır.
	older := make([]models.Message, 0, len(page.Messages))
	for _, m := range page.Messages {
		if m.Seq < oldest.Seq {
			older = append(older, m)
		}
	}

	w.messages = append(older, w.messages...)
	w.hasMore = page.HasMore
	return len(older), nil
}

// Messages, penceredeki mesajların kopyasını artan sırada döner.
func (w *Window) Messages() []models.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]models.Message(nil), w.messages...)
}

// HasMore, pencerenin gerisinde hâlâ mesaj olup olmadığını söyler.
func (w *Window) HasMore() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.hasMore
}

// Groups, penceredeki mesajları gruplar.
func (w *Window) Groups(gap time.Duration) []models.MessageGroup {
	return Group(w.Messages(), gap)
}

package presence

import (
	"context"
	"sync"
)

// LocalBroker, tek instance için process içi broker. Publish abonelere
// senkron iletir.
type LocalBroker struct {
	mu     sync.RWMutex
	subs   map[int]func(Snapshot)
	nextID int
}

// NewLocalBroker, boş bir LocalBroker oluşturur.
func NewLocalBroker() *LocalBroker {
	return &LocalBroker{subs: make(map[int]func(Snapshot))}
}

// Publish, snapshot'ı abonelere iletir. Abone listesi kopyalanır;
// callback'ler lock dışında çalışır.
func (b *LocalBroker) Publish(_ context.Context, snap Snapshot) error {
	b.mu.RLock()
	subs := make([]func(Snapshot), 0, len(b.subs))
	for _, fn := range b.subs {
		subs = append(subs, fn)
	}
	b.mu.RUnlock()

	for _, fn := range subs {
		fn(snap)
	}
	return nil
}

// Subscribe, abone ekler.
func (b *LocalBroker) Subscribe(fn func(Snapshot)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// Close, tüm aboneleri bırakır.
func (b *LocalBroker) Close() error {
	b.mu.Lock()
	b.subs = make(map[int]func(Snapshot))
	b.mu.Unlock()
	return nil
}

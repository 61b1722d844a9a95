package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/akinalp/ajans/pkg"
)

// DefaultRedisChannel, snapshot'ların yayınlandığı Pub/Sub kanalı.
const DefaultRedisChannel = "ajans:presence"

// RedisBroker, snapshot'ları Redis Pub/Sub ile instance'lar arasında taşır.
// Kendi yayınladığı snapshot'lar da geri gelir; abonelere hepsi iletilir.
type RedisBroker struct {
	client     *redis.Client
	ownsClient bool
	channel    string
	pubsub     *redis.PubSub
	log        *zap.Logger

	mu     sync.RWMutex
	subs   map[int]func(Snapshot)
	nextID int

	done      chan struct{}
	closeOnce sync.Once
}

// NewRedisBroker, URL'den client açar, bağlantıyı doğrular ve abone olur.
func NewRedisBroker(ctx context.Context, redisURL string, log *zap.Logger) (*RedisBroker, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	b, err := NewRedisBrokerWithClient(ctx, client, log)
	if err != nil {
		client.Close()
		return nil, err
	}
	b.ownsClient = true
	return b, nil
}

// NewRedisBrokerWithClient, var olan client ile broker oluşturur (testler için).
// Client'ı Close kapatmaz.
func NewRedisBrokerWithClient(ctx context.Context, client *redis.Client, log *zap.Logger) (*RedisBroker, error) {
	b := &RedisBroker{
		client:  client,
		channel: DefaultRedisChannel,
		log:     log.Named("presence.redis"),
		subs:    make(map[int]func(Snapshot)),
		done:    make(chan struct{}),
	}

	b.pubsub = client.Subscribe(ctx, b.channel)
	// Abonelik onayı gelmeden dönersek ilk yayınlar kaçabilir
	if _, err := b.pubsub.Receive(ctx); err != nil {
		b.pubsub.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", b.channel, err)
	}

	go b.receiveLoop()
	return b, nil
}

// Publish, snapshot'ı JSON olarak yayınlar.
func (b *RedisBroker) Publish(ctx context.Context, snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal presence snapshot: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("%w: redis publish: %v", pkg.ErrTransportFailure, err)
	}
	return nil
}

// Subscribe, abone ekler. Callback'ler alıcı goroutine'den sırayla çağrılır.
func (b *RedisBroker) Subscribe(fn func(Snapshot)) func() {
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

// Close, aboneliği kapatır ve alıcı goroutine'in bitmesini bekler.
func (b *RedisBroker) Close() error {
	var err error
	b.closeOnce.Do(func() {
		err = b.pubsub.Close()
		<-b.done
		if b.ownsClient {
			if cerr := b.client.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}
	})
	return err
}

func (b *RedisBroker) receiveLoop() {
	defer close(b.done)

	for msg := range b.pubsub.Channel() {
		var snap Snapshot
		if err := json.Unmarshal([]byte(msg.Payload), &snap); err != nil {
			b.log.Warn("dropping malformed presence snapshot", zap.Error(err))
			continue
		}

		b.mu.RLock()
		subs := make([]func(Snapshot), 0, len(b.subs))
		for _, fn := range b.subs {
			subs = append(subs, fn)
		}
		b.mu.RUnlock()

		for _, fn := range subs {
			fn(snap)
		}
	}
}

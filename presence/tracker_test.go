package presence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/akinalp/ajans/pkg"
)

// recorder, broker'a düşen snapshot'ları toplar.
type recorder struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (r *recorder) add(s Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, s)
}

func (r *recorder) all() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Snapshot(nil), r.snaps...)
}

// failingBroker, her Publish'te hata döner.
type failingBroker struct{ *LocalBroker }

func (b *failingBroker) Publish(context.Context, Snapshot) error {
	return errors.New("broker down")
}

func newTestTracker(t *testing.T) (*Tracker, *recorder) {
	t.Helper()
	broker := NewLocalBroker()
	rec := &recorder{}
	broker.Subscribe(rec.add)
	tr := NewTracker(broker, zap.NewNop())
	t.Cleanup(tr.Close)
	return tr, rec
}

func boolPtr(b bool) *bool { return &b }

func TestTracker_JoinReturnsOthersAndBroadcasts(t *testing.T) {
	ctx := context.Background()
	tr, rec := newTestTracker(t)

	assert.Empty(t, tr.Join(ctx, "c1", "alice"))
	others := tr.Join(ctx, "c1", "bob")
	require.Len(t, others, 1)
	assert.Equal(t, "alice", others[0].UserID)
	assert.True(t, others[0].Online)

	snaps := rec.all()
	require.Len(t, snaps, 2)
	assert.Equal(t, "bob", snaps[1].State.UserID)
	assert.Equal(t, tr.Origin(), snaps[1].Origin)
}

func TestTracker_UpdateMergesOnlyProvidedFields(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTestTracker(t)
	tr.Join(ctx, "c1", "alice")

	seen := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	st, err := tr.Update(ctx, "c1", "alice", Patch{Typing: boolPtr(true)})
	require.NoError(t, err)
	assert.True(t, st.Typing)

	st, err = tr.Update(ctx, "c1", "alice", Patch{LastSeenAt: &seen})
	require.NoError(t, err)
	assert.True(t, st.Typing, "typing must survive a last_seen_at patch")
	assert.Equal(t, seen, st.LastSeenAt)
}

func TestTracker_UpdateUnknownParticipant(t *testing.T) {
	tr, _ := newTestTracker(t)

	_, err := tr.Update(context.Background(), "c1", "ghost", Patch{Typing: boolPtr(true)})
	assert.ErrorIs(t, err, pkg.ErrNotFound)
}

func TestTracker_LastWriteWins(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTestTracker(t)
	tr.Join(ctx, "c1", "alice")
	tr.Join(ctx, "c1", "bob")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = tr.Update(ctx, "c1", "alice", Patch{Typing: boolPtr(i%2 == 0)})
		}(i)
	}
	wg.Wait()

	_, err := tr.Update(ctx, "c1", "alice", Patch{Typing: boolPtr(false)})
	require.NoError(t, err)

	others := tr.Others("c1", "bob")
	require.Len(t, others, 1)
	assert.False(t, others[0].Typing)
}

func TestTracker_LeaveIsRefCounted(t *testing.T) {
	ctx := context.Background()
	tr, rec := newTestTracker(t)

	tr.Join(ctx, "c1", "alice")
	tr.Join(ctx, "c1", "alice") // ikinci sekme

	assert.False(t, tr.Leave(ctx, "c1", "alice"))
	assert.Len(t, tr.Others("c1", "bob"), 1)

	assert.True(t, tr.Leave(ctx, "c1", "alice"))
	assert.Empty(t, tr.Others("c1", "bob"))

	snaps := rec.all()
	last := snaps[len(snaps)-1]
	assert.False(t, last.State.Online)

	assert.False(t, tr.Leave(ctx, "c1", "alice"), "leaving twice is a no-op")
}

func TestTracker_LeaveAll(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTestTracker(t)

	tr.Join(ctx, "c2", "alice")
	tr.Join(ctx, "c1", "alice")
	tr.Join(ctx, "c1", "bob")

	assert.Equal(t, []string{"c1", "c2"}, tr.LeaveAll(ctx, "alice"))
	assert.Empty(t, tr.Others("c1", "bob"))
	assert.Empty(t, tr.Others("c2", "bob"))
}

func TestTracker_Apply(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTestTracker(t)
	tr.Join(ctx, "c1", "alice")

	// Kendi snapshot'ımız atlanır
	tr.Apply(Snapshot{Origin: tr.Origin(), State: State{ChannelID: "c1", UserID: "zed", Online: true}})
	assert.Len(t, tr.Others("c1", "alice"), 0)

	tr.Apply(Snapshot{Origin: "other", State: State{ChannelID: "c1", UserID: "bob", Online: true, Typing: true}})
	others := tr.Others("c1", "alice")
	require.Len(t, others, 1)
	assert.True(t, others[0].Typing)

	// Yerel bağlantısı olan kullanıcı için uzak offline yok sayılır
	tr.Apply(Snapshot{Origin: "other", State: State{ChannelID: "c1", UserID: "alice"}})
	assert.Len(t, tr.Others("c1", "bob"), 1)

	tr.Apply(Snapshot{Origin: "other", State: State{ChannelID: "c1", UserID: "bob"}})
	assert.Empty(t, tr.Others("c1", "alice"))
}

func TestTracker_BroadcastFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	broker := &failingBroker{LocalBroker: NewLocalBroker()}
	tr := NewTracker(broker, zap.NewNop())
	defer tr.Close()

	tr.Join(ctx, "c1", "alice")
	st, err := tr.Update(ctx, "c1", "alice", Patch{Typing: boolPtr(true)})
	require.NoError(t, err)
	assert.True(t, st.Typing)
}

// Eşzamanlı Join/Leave'lerde broker'a giden son snapshot tracker'ın son
// durumuyla aynı olmalı; diğer instance'lar bu sırayla Apply eder.
func TestTracker_ConcurrentJoinLeaveKeepsSnapshotOrder(t *testing.T) {
	ctx := context.Background()

	for round := 0; round < 20; round++ {
		broker := NewLocalBroker()
		tr := NewTracker(broker, zap.NewNop())

		remote := NewTracker(NewLocalBroker(), zap.NewNop())
		broker.Subscribe(remote.Apply)

		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 20; j++ {
					tr.Join(ctx, "c1", "alice")
					tr.Leave(ctx, "c1", "alice")
				}
			}()
		}
		wg.Wait()

		assert.Empty(t, tr.Others("c1", "observer"))
		assert.Empty(t, remote.Others("c1", "observer"), "round %d: remote view kept a stale online snapshot", round)

		// Son Join online kalır; uzak görünüm de online biter
		tr.Join(ctx, "c1", "alice")
		require.Len(t, remote.Others("c1", "observer"), 1)

		tr.Close()
		remote.Close()
	}
}

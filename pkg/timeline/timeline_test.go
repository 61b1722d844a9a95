package timeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/ajans/models"
)

var base = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// history, artan sırada n mesajlık sahte bir kanal geçmişi üretir.
func history(n int, sender func(i int) string, step time.Duration) []models.Message {
	msgs := make([]models.Message, n)
	for i := 0; i < n; i++ {
		msgs[i] = models.Message{
			ID:        fmt.Sprintf("m%02d", i+1),
			ChannelID: "c1",
			UserID:    sender(i),
			Seq:       int64(i + 1),
			Body:      fmt.Sprintf("body %d", i+1),
			CreatedAt: base.Add(time.Duration(i) * step),
		}
	}
	return msgs
}

// pager, geçmiş üzerinde sunucu tarafı sayfalamayı taklit eder.
func pager(all []models.Message) PageFunc {
	return func(ctx context.Context, beforeID string, size int) (*models.MessagePage, error) {
		end := len(all)
		if beforeID != "" {
			end = -1
			for i, m := range all {
				if m.ID == beforeID {
					end = i
				}
			}
			if end < 0 {
				return nil, fmt.Errorf("unknown cursor %s", beforeID)
			}
		}
		start := end - size
		if start < 0 {
			start = 0
		}
		page := append([]models.Message(nil), all[start:end]...)
		return &models.MessagePage{Messages: page, HasMore: start > 0}, nil
	}
}

func alternating(i int) string {
	if i%2 == 0 {
		return "A"
	}
	return "B"
}

func TestGroup_Boundaries(t *testing.T) {
	msgs := []models.Message{
		{ID: "1", UserID: "A", CreatedAt: base},
		{ID: "2", UserID: "A", CreatedAt: base.Add(time.Minute)},
		{ID: "3", UserID: "A", CreatedAt: base.Add(6 * time.Minute)}, // tam 5dk: aynı grup
		{ID: "4", UserID: "A", CreatedAt: base.Add(11*time.Minute + time.Second)},
		{ID: "5", UserID: "B", CreatedAt: base.Add(12 * time.Minute)},
		{ID: "6", UserID: "A", CreatedAt: base.Add(12 * time.Minute)},
	}

	groups := Group(msgs, DefaultGroupGap)
	require.Len(t, groups, 4)

	assert.Equal(t, []string{"1", "2", "3"}, groups[0].MessageIDs)
	assert.Equal(t, base, groups[0].Timestamp)
	assert.Equal(t, []string{"4"}, groups[1].MessageIDs)
	assert.Equal(t, "B", groups[2].SenderID)
	assert.Equal(t, []string{"6"}, groups[3].MessageIDs)
}

func TestGroup_DeterministicAndIdempotent(t *testing.T) {
	msgs := history(40, func(i int) string { return []string{"A", "A", "B"}[i%3] }, 2*time.Minute)

	first := Group(msgs, DefaultGroupGap)
	second := Group(msgs, DefaultGroupGap)
	assert.Equal(t, first, second)

	total := 0
	for _, g := range first {
		total += len(g.MessageIDs)
		assert.Len(t, g.Bodies, len(g.MessageIDs))
	}
	assert.Equal(t, len(msgs), total)
}

func TestGroup_Empty(t *testing.T) {
	assert.Empty(t, Group(nil, 0))
}

func TestWindow_ExhaustiveLoadOlder(t *testing.T) {
	all := history(53, alternating, time.Second)
	w := NewWindow(pager(all))
	ctx := context.Background()

	require.NoError(t, w.Load(ctx, 20))
	assert.Len(t, w.Messages(), 20)
	assert.True(t, w.HasMore())

	for w.HasMore() {
		_, err := w.LoadOlder(ctx, DefaultPageSize)
		require.NoError(t, err)
	}

	got := w.Messages()
	require.Len(t, got, len(all))
	seen := make(map[string]bool)
	for i, m := range got {
		assert.False(t, seen[m.ID], "duplicate %s", m.ID)
		seen[m.ID] = true
		assert.Equal(t, all[i].ID, m.ID)
		if i > 0 {
			assert.Greater(t, m.Seq, got[i-1].Seq)
			assert.False(t, m.CreatedAt.Before(got[i-1].CreatedAt))
		}
	}

	n, err := w.LoadOlder(ctx, DefaultPageSize)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestWindow_CancelledLoadOlderLeavesWindowUntouched(t *testing.T) {
	all := history(30, alternating, time.Second)
	inner := pager(all)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	w := NewWindow(func(c context.Context, beforeID string, size int) (*models.MessagePage, error) {
		calls++
		page, err := inner(c, beforeID, size)
		if calls == 2 {
			cancel() // kullanıcı okuma sürerken uzaklaştı
		}
		return page, err
	})

	require.NoError(t, w.Load(context.Background(), 20))
	before := w.Messages()

	_, err := w.LoadOlder(ctx, 20)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, before, w.Messages())
	assert.True(t, w.HasMore())

	n, err := w.LoadOlder(context.Background(), 20)
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	assert.False(t, w.HasMore())
}

func TestScenario_AlternatingSenders(t *testing.T) {
	all := history(25, alternating, time.Second)
	w := NewWindow(pager(all))

	require.NoError(t, w.Load(context.Background(), 20))
	msgs := w.Messages()
	require.Len(t, msgs, 20)
	assert.Equal(t, "m06", msgs[0].ID)
	assert.Equal(t, "m25", msgs[19].ID)

	groups := w.Groups(DefaultGroupGap)
	require.Len(t, groups, 20)
	for _, g := range groups {
		assert.Len(t, g.MessageIDs, 1)
	}
}

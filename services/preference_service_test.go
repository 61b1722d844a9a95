package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/akinalp/ajans/models"
)

func boolPtr(b bool) *bool { return &b }

func TestPreferenceService_MissingRowReturnsDefaults(t *testing.T) {
	svc := NewPreferenceService(newFakePreferenceRepo(), nil, zap.NewNop())

	pref, err := svc.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultPreference("u1"), *pref)
}

func TestPreferenceService_GetPropagatesStoreErrors(t *testing.T) {
	repo := newFakePreferenceRepo()
	repo.err = errors.New("connection refused")
	svc := NewPreferenceService(repo, nil, zap.NewNop())

	_, err := svc.Get(context.Background(), "u1")
	require.Error(t, err)

	// Fan-out yolu hata görmez, varsayılanlara düşer.
	assert.Equal(t, models.DefaultPreference("u1"), svc.Effective(context.Background(), "u1"))
}

func TestPreferenceService_UpdateInvalidatesCache(t *testing.T) {
	repo := newFakePreferenceRepo()
	prefCache := NewPreferenceCache(time.Minute)
	defer prefCache.Close()
	svc := NewPreferenceService(repo, prefCache, zap.NewNop())
	ctx := context.Background()

	_, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	_, err = svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.getCount(), "second read served from cache")

	updated, err := svc.Update(ctx, "u1", &models.UpdatePreferenceRequest{
		EmailTaskAssigned: boolPtr(false),
		DigestDaily:       boolPtr(true),
	})
	require.NoError(t, err)
	assert.False(t, updated.EmailTaskAssigned)
	assert.True(t, updated.DigestDaily)
	assert.True(t, updated.EmailMentions, "untouched fields keep defaults")

	pref, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, pref.EmailTaskAssigned)
}

// Update'ten önce başlamış bir okuma, güncellenen değeri cache'te ezmemeli.
func TestPreferenceService_ReadRacingUpdateDoesNotCacheStaleRow(t *testing.T) {
	repo := newFakePreferenceRepo()
	prefCache := NewPreferenceCache(time.Minute)
	defer prefCache.Close()
	svc := NewPreferenceService(repo, prefCache, zap.NewNop())
	ctx := context.Background()

	repo.afterGet = func() {
		_, err := svc.Update(ctx, "u1", &models.UpdatePreferenceRequest{EmailEnabled: boolPtr(false)})
		require.NoError(t, err)
	}

	stale, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, stale.EmailEnabled, "the racing read returns what it loaded")

	pref, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, pref.EmailEnabled)
	assert.False(t, svc.Effective(ctx, "u1").EmailEnabled)
}

func TestPreferenceService_LastWriteWins(t *testing.T) {
	svc := NewPreferenceService(newFakePreferenceRepo(), nil, zap.NewNop())
	ctx := context.Background()

	_, err := svc.Update(ctx, "u1", &models.UpdatePreferenceRequest{EmailEnabled: boolPtr(false)})
	require.NoError(t, err)
	_, err = svc.Update(ctx, "u1", &models.UpdatePreferenceRequest{EmailEnabled: boolPtr(true), InAppEnabled: boolPtr(false)})
	require.NoError(t, err)

	pref, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, pref.EmailEnabled)
	assert.False(t, pref.InAppEnabled)
}

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxtrail/internal/document/models"
	id "taxtrail/pkg/domain"
	"taxtrail/pkg/platform/sentinel"
)

func newRequirement(t *testing.T, clientID id.ClientID, docType models.DocumentType, required bool, now time.Time) *models.Requirement {
	t.Helper()
	r, err := models.NewRequirement(clientID, docType, "", required, now)
	require.NoError(t, err)
	return r
}

func TestInMemoryStorePutAndFind(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	store := NewInMemory()
	clientID := id.NewClientID()

	require.NoError(t, store.Put(ctx, newRequirement(t, clientID, "W-2", true, now)))

	r, err := store.Find(ctx, clientID, "W-2")
	require.NoError(t, err)
	assert.Equal(t, models.DocumentType("W-2"), r.Type)
	assert.Equal(t, 0, r.Position)

	_, err = store.Find(ctx, clientID, "1099-INT")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestInMemoryStoreReplaceKeepsPosition(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	store := NewInMemory()
	clientID := id.NewClientID()

	require.NoError(t, store.Put(ctx, newRequirement(t, clientID, "W-2", true, now)))
	require.NoError(t, store.Put(ctx, newRequirement(t, clientID, "1099-INT", false, now)))

	replacement := newRequirement(t, clientID, "W-2", false, now.Add(time.Hour))
	require.NoError(t, store.Put(ctx, replacement))

	reqs, err := store.ListByClient(ctx, clientID)
	require.NoError(t, err)
	require.Len(t, reqs, 2)
	assert.Equal(t, models.DocumentType("W-2"), reqs[0].Type)
	assert.False(t, reqs[0].Required)
	assert.Equal(t, models.DocumentType("1099-INT"), reqs[1].Type)
}

func TestInMemoryStoreListIsolatesClients(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	store := NewInMemory()
	first, second := id.NewClientID(), id.NewClientID()

	require.NoError(t, store.Put(ctx, newRequirement(t, first, "W-2", true, now)))
	require.NoError(t, store.Put(ctx, newRequirement(t, second, "1099-NEC", true, now)))

	reqs, err := store.ListByClient(ctx, first)
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, models.DocumentType("W-2"), reqs[0].Type)
}

func TestInMemoryStoreRemove(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	store := NewInMemory()
	clientID := id.NewClientID()

	require.NoError(t, store.Put(ctx, newRequirement(t, clientID, "W-2", true, now)))
	require.NoError(t, store.Remove(ctx, clientID, "W-2"))
	assert.ErrorIs(t, store.Remove(ctx, clientID, "W-2"), sentinel.ErrNotFound)
}

func TestInMemoryStoreMarkSatisfied(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	store := NewInMemory()
	clientID := id.NewClientID()

	require.NoError(t, store.Put(ctx, newRequirement(t, clientID, "W-2", true, now)))
	require.NoError(t, store.MarkSatisfied(ctx, clientID, "W-2", now))

	// Second satisfaction keeps the original timestamp.
	require.NoError(t, store.MarkSatisfied(ctx, clientID, "W-2", now.Add(time.Hour)))
	r, err := store.Find(ctx, clientID, "W-2")
	require.NoError(t, err)
	require.NotNil(t, r.SatisfiedAt)
	assert.Equal(t, now, *r.SatisfiedAt)

	assert.ErrorIs(t, store.MarkSatisfied(ctx, clientID, "1099-B", now), sentinel.ErrNotFound)
}

func TestInMemoryStoreTouchChecked(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	store := NewInMemory()
	clientID := id.NewClientID()

	require.NoError(t, store.Put(ctx, newRequirement(t, clientID, "W-2", true, now)))
	require.NoError(t, store.Put(ctx, newRequirement(t, clientID, "1099-INT", false, now)))

	checked := now.Add(time.Hour)
	require.NoError(t, store.TouchChecked(ctx, clientID, checked))

	reqs, err := store.ListByClient(ctx, clientID)
	require.NoError(t, err)
	for _, r := range reqs {
		require.NotNil(t, r.LastCheckedAt)
		assert.Equal(t, checked, *r.LastCheckedAt)
	}
}

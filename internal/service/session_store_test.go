package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"daily-tracker/internal/model"
)

func TestSessionStoreLoadMissingKey(t *testing.T) {
	store := NewSessionStore(newMemoryStorage(), "sessions")

	acts, err := store.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, acts)
	require.Empty(t, acts)
}

func TestSessionStoreLoadBlankValue(t *testing.T) {
	storage := newMemoryStorage()
	storage.values["sessions"] = "  "
	store := NewSessionStore(storage, "sessions")

	acts, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Empty(t, acts)
}

func TestSessionStoreLoadCorruptPayload(t *testing.T) {
	storage := newMemoryStorage()
	storage.values["sessions"] = `[{"id":"1","task":`
	store := NewSessionStore(storage, "sessions")

	_, err := store.Load(context.Background())
	require.ErrorIs(t, err, ErrCorruptSessions)
}

func TestSessionStoreLoadNonArrayPayload(t *testing.T) {
	storage := newMemoryStorage()
	storage.values["sessions"] = `{"id":"1"}`
	store := NewSessionStore(storage, "sessions")

	_, err := store.Load(context.Background())
	require.ErrorIs(t, err, ErrCorruptSessions)
}

func TestSessionStoreSaveRoundTrip(t *testing.T) {
	ctx := context.Background()
	storage := newMemoryStorage()
	store := NewSessionStore(storage, "sessions")

	acts := []model.Activity{
		{ID: "1", Task: "Read", Category: model.CategoryStudy, Duration: 90, Time: "26/09/2025 15:45"},
		{ID: "2", Task: "Run", Category: model.CategoryTraining, Duration: 30, Time: "27/09/2025 07:00", Done: true},
	}
	require.NoError(t, store.Save(ctx, acts))
	require.Equal(t, acts, store.Snapshot())

	reloaded, err := NewSessionStore(storage, "sessions").Load(ctx)
	require.NoError(t, err)
	require.Equal(t, acts, reloaded)
}

func TestSessionStoreSaveFailureKeepsMirror(t *testing.T) {
	ctx := context.Background()
	storage := newMemoryStorage()
	store := NewSessionStore(storage, "sessions")
	require.NoError(t, store.Save(ctx, []model.Activity{{ID: "1", Task: "Read", Duration: 10}}))

	storage.failSet = errDiskFull
	err := store.Save(ctx, nil)
	require.True(t, errors.Is(err, errDiskFull))
	require.Len(t, store.Snapshot(), 1)
}

func TestSessionStoreSnapshotIsCopy(t *testing.T) {
	store := NewSessionStore(newMemoryStorage(), "sessions")
	require.NoError(t, store.Save(context.Background(), []model.Activity{{ID: "1", Task: "Read", Duration: 10}}))

	snap := store.Snapshot()
	snap[0].Task = "changed"
	require.Equal(t, "Read", store.Snapshot()[0].Task)
}

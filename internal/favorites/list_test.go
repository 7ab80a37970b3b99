package favorites

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryStore keeps the list in memory and tracks counter mutations.
type memoryStore struct {
	entries    map[uuid.UUID][]Entry
	counters   map[uuid.UUID]int
	increments map[uuid.UUID]int
	decrements map[uuid.UUID]int
	err        error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		entries:    make(map[uuid.UUID][]Entry),
		counters:   make(map[uuid.UUID]int),
		increments: make(map[uuid.UUID]int),
		decrements: make(map[uuid.UUID]int),
	}
}

func (s *memoryStore) WithUserLock(ctx context.Context, userID uuid.UUID, fn func(ops Ops) error) error {
	return fn(s)
}

func (s *memoryStore) Ops() Ops { return s }

func (s *memoryStore) List(ctx context.Context, userID uuid.UUID) ([]Entry, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.entries[userID], nil
}

func (s *memoryStore) Append(ctx context.Context, userID, stickerID uuid.UUID) error {
	s.entries[userID] = append(s.entries[userID], Entry{StickerID: stickerID, AddedAt: time.Now()})
	return nil
}

func (s *memoryStore) Delete(ctx context.Context, userID, stickerID uuid.UUID) (bool, error) {
	list := s.entries[userID]
	for i, e := range list {
		if e.StickerID == stickerID {
			s.entries[userID] = append(list[:i:i], list[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (s *memoryStore) IncrementFavorites(ctx context.Context, stickerID uuid.UUID) error {
	s.counters[stickerID]++
	s.increments[stickerID]++
	return nil
}

func (s *memoryStore) DecrementFavorites(ctx context.Context, stickerID uuid.UUID) error {
	if s.counters[stickerID] > 0 {
		s.counters[stickerID]--
	}
	s.decrements[stickerID]++
	return nil
}

func (s *memoryStore) StickerFavorites(ctx context.Context, stickerID uuid.UUID) (int, error) {
	return s.counters[stickerID], nil
}

func TestToggleAddsAndRemoves(t *testing.T) {
	store := newMemoryStore()
	list := NewList(store, 30)
	userID := uuid.New()
	stickerID := uuid.New()

	result, err := list.Toggle(context.Background(), userID, stickerID)
	require.NoError(t, err)
	assert.True(t, result.Favorited)
	assert.Equal(t, 1, result.Favorites)
	assert.Equal(t, 1, result.ListSize)
	assert.False(t, result.Evicted)

	result, err = list.Toggle(context.Background(), userID, stickerID)
	require.NoError(t, err)
	assert.False(t, result.Favorited)
	assert.Equal(t, 0, result.Favorites)
	assert.Equal(t, 0, result.ListSize)
	assert.Empty(t, store.entries[userID])
}

func TestToggleEvictsOldestAtCapacity(t *testing.T) {
	store := newMemoryStore()
	list := NewList(store, 3)
	userID := uuid.New()

	first := uuid.New()
	ids := []uuid.UUID{first, uuid.New(), uuid.New()}
	for _, id := range ids {
		_, err := list.Toggle(context.Background(), userID, id)
		require.NoError(t, err)
	}

	newest := uuid.New()
	result, err := list.Toggle(context.Background(), userID, newest)
	require.NoError(t, err)

	assert.True(t, result.Favorited)
	assert.True(t, result.Evicted)
	require.NotNil(t, result.EvictedStickerID)
	assert.Equal(t, first, *result.EvictedStickerID)
	assert.Equal(t, 3, result.ListSize)

	// The evicted sticker got exactly one decrement and its counter dropped.
	assert.Equal(t, 1, store.decrements[first])
	assert.Equal(t, 0, store.counters[first])

	// FIFO order: second oldest is now the head.
	entries := store.entries[userID]
	require.Len(t, entries, 3)
	assert.Equal(t, ids[1], entries[0].StickerID)
	assert.Equal(t, newest, entries[2].StickerID)
}

func TestToggleNeverExceedsCapacity(t *testing.T) {
	store := newMemoryStore()
	list := NewList(store, 5)
	userID := uuid.New()

	for i := 0; i < 20; i++ {
		result, err := list.Toggle(context.Background(), userID, uuid.New())
		require.NoError(t, err)
		assert.LessOrEqual(t, result.ListSize, 5)
	}
	assert.Len(t, store.entries[userID], 5)
}

func TestToggleBelowCapacityDoesNotEvict(t *testing.T) {
	store := newMemoryStore()
	list := NewList(store, 30)
	userID := uuid.New()

	for i := 0; i < 10; i++ {
		result, err := list.Toggle(context.Background(), userID, uuid.New())
		require.NoError(t, err)
		assert.False(t, result.Evicted)
	}
	assert.Len(t, store.entries[userID], 10)
}

func TestRemoveIsIdempotent(t *testing.T) {
	store := newMemoryStore()
	list := NewList(store, 30)
	userID := uuid.New()
	stickerID := uuid.New()

	_, err := list.Toggle(context.Background(), userID, stickerID)
	require.NoError(t, err)

	require.NoError(t, list.Remove(context.Background(), userID, stickerID))
	assert.Equal(t, 1, store.decrements[stickerID])

	// Removing again is a no-op with no counter change.
	require.NoError(t, list.Remove(context.Background(), userID, stickerID))
	assert.Equal(t, 1, store.decrements[stickerID])
}

func TestEntriesReturnsFIFOOrder(t *testing.T) {
	store := newMemoryStore()
	list := NewList(store, 30)
	userID := uuid.New()

	a, b := uuid.New(), uuid.New()
	_, err := list.Toggle(context.Background(), userID, a)
	require.NoError(t, err)
	_, err = list.Toggle(context.Background(), userID, b)
	require.NoError(t, err)

	entries, err := list.Entries(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, a, entries[0].StickerID)
	assert.Equal(t, b, entries[1].StickerID)
}

func TestTogglePropagatesStoreErrors(t *testing.T) {
	store := newMemoryStore()
	store.err = errors.New("db down")
	list := NewList(store, 30)

	_, err := list.Toggle(context.Background(), uuid.New(), uuid.New())
	assert.Error(t, err)
}

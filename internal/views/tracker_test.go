package views

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type event struct {
	packID uuid.UUID
	userID *uuid.UUID
	at     time.Time
}

// memoryLog implements EventLog in memory with the same conditional-write
// semantics as the Postgres version.
type memoryLog struct {
	events []event
	err    error
}

func (m *memoryLog) RecordIfAbsent(ctx context.Context, packID, userID uuid.UUID, at, since time.Time) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	for _, e := range m.events {
		if e.packID == packID && e.userID != nil && *e.userID == userID && !e.at.Before(since) {
			return false, nil
		}
	}
	m.events = append(m.events, event{packID: packID, userID: &userID, at: at})
	return true, nil
}

func (m *memoryLog) RecentlyViewed(ctx context.Context, packIDs []uuid.UUID, userID uuid.UUID, since time.Time) (map[uuid.UUID]bool, error) {
	if m.err != nil {
		return nil, m.err
	}
	seen := make(map[uuid.UUID]bool)
	for _, id := range packIDs {
		for _, e := range m.events {
			if e.packID == id && e.userID != nil && *e.userID == userID && !e.at.Before(since) {
				seen[id] = true
			}
		}
	}
	return seen, nil
}

func (m *memoryLog) RecordAnonymous(ctx context.Context, packID uuid.UUID, at time.Time) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event{packID: packID, at: at})
	return nil
}

func (m *memoryLog) RecordBatch(ctx context.Context, packIDs []uuid.UUID, userID uuid.UUID, at time.Time) error {
	if m.err != nil {
		return m.err
	}
	for _, id := range packIDs {
		m.events = append(m.events, event{packID: id, userID: &userID, at: at})
	}
	return nil
}

func newTestTracker(t *testing.T, log EventLog, failClosed bool) (*Tracker, *time.Time) {
	t.Helper()
	tracker, err := NewTracker(log, 30*time.Minute, failClosed)
	require.NoError(t, err)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return now }
	return tracker, &now
}

func TestNewTrackerRejectsInvalidWindow(t *testing.T) {
	_, err := NewTracker(&memoryLog{}, 0, true)
	assert.ErrorIs(t, err, ErrInvalidWindow)

	_, err = NewTracker(&memoryLog{}, -time.Minute, true)
	assert.ErrorIs(t, err, ErrInvalidWindow)
}

func TestShouldCountDedupsWithinWindow(t *testing.T) {
	tracker, now := newTestTracker(t, &memoryLog{}, true)
	packID := uuid.New()
	userID := uuid.New()

	assert.True(t, tracker.ShouldCount(context.Background(), packID, &userID))
	assert.False(t, tracker.ShouldCount(context.Background(), packID, &userID))

	// A different pack is unaffected.
	other := uuid.New()
	assert.True(t, tracker.ShouldCount(context.Background(), other, &userID))

	// Past the window the view counts again.
	*now = now.Add(31 * time.Minute)
	assert.True(t, tracker.ShouldCount(context.Background(), packID, &userID))
}

func TestShouldCountDistinctUsersIndependent(t *testing.T) {
	tracker, _ := newTestTracker(t, &memoryLog{}, true)
	packID := uuid.New()
	alice := uuid.New()
	bob := uuid.New()

	assert.True(t, tracker.ShouldCount(context.Background(), packID, &alice))
	assert.True(t, tracker.ShouldCount(context.Background(), packID, &bob))
}

func TestShouldCountAnonymousAlwaysCounts(t *testing.T) {
	log := &memoryLog{}
	tracker, _ := newTestTracker(t, log, true)
	packID := uuid.New()

	assert.True(t, tracker.ShouldCount(context.Background(), packID, nil))
	assert.True(t, tracker.ShouldCount(context.Background(), packID, nil))
	assert.Len(t, log.events, 2)
}

func TestShouldCountFailClosed(t *testing.T) {
	log := &memoryLog{err: errors.New("log down")}
	tracker, _ := newTestTracker(t, log, true)
	userID := uuid.New()

	assert.False(t, tracker.ShouldCount(context.Background(), uuid.New(), &userID))
}

func TestShouldCountFailOpen(t *testing.T) {
	log := &memoryLog{err: errors.New("log down")}
	tracker, _ := newTestTracker(t, log, false)
	userID := uuid.New()

	assert.True(t, tracker.ShouldCount(context.Background(), uuid.New(), &userID))
}

func TestShouldCountBatchPartitionsAndPreservesOrder(t *testing.T) {
	tracker, _ := newTestTracker(t, &memoryLog{}, true)
	userID := uuid.New()

	a, b, c := uuid.New(), uuid.New(), uuid.New()

	// b was already viewed.
	require.True(t, tracker.ShouldCount(context.Background(), b, &userID))

	fresh := tracker.ShouldCountBatch(context.Background(), []uuid.UUID{a, b, c}, &userID)
	assert.Equal(t, []uuid.UUID{a, c}, fresh)

	// The batch recorded events, so nothing is fresh the second time.
	assert.Nil(t, tracker.ShouldCountBatch(context.Background(), []uuid.UUID{a, b, c}, &userID))
}

func TestShouldCountBatchAnonymous(t *testing.T) {
	tracker, _ := newTestTracker(t, &memoryLog{}, true)
	ids := []uuid.UUID{uuid.New(), uuid.New()}

	assert.Equal(t, ids, tracker.ShouldCountBatch(context.Background(), ids, nil))
}

func TestShouldCountBatchEmpty(t *testing.T) {
	tracker, _ := newTestTracker(t, &memoryLog{}, true)
	userID := uuid.New()
	assert.Nil(t, tracker.ShouldCountBatch(context.Background(), nil, &userID))
}

func TestShouldCountBatchFailurePolicies(t *testing.T) {
	ids := []uuid.UUID{uuid.New(), uuid.New()}
	userID := uuid.New()

	closed, _ := newTestTracker(t, &memoryLog{err: errors.New("log down")}, true)
	assert.Nil(t, closed.ShouldCountBatch(context.Background(), ids, &userID))

	open, _ := newTestTracker(t, &memoryLog{err: errors.New("log down")}, false)
	assert.Equal(t, ids, open.ShouldCountBatch(context.Background(), ids, &userID))
}

package views

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidWindow = errors.New("view dedup window must be positive")

// EventLog is the append-only store of view events. The single-pack path is
// a conditional write so check-and-record is one storage operation.
type EventLog interface {
	// RecordIfAbsent appends an event unless one exists for (packID, userID)
	// at or after since. Returns true if the event was recorded.
	RecordIfAbsent(ctx context.Context, packID, userID uuid.UUID, at, since time.Time) (bool, error)

	// RecentlyViewed reports which of packIDs have an event for userID at or
	// after since.
	RecentlyViewed(ctx context.Context, packIDs []uuid.UUID, userID uuid.UUID, since time.Time) (map[uuid.UUID]bool, error)

	// RecordAnonymous appends an event with no user.
	RecordAnonymous(ctx context.Context, packID uuid.UUID, at time.Time) error

	// RecordBatch appends one event per pack for userID.
	RecordBatch(ctx context.Context, packIDs []uuid.UUID, userID uuid.UUID, at time.Time) error
}

// Tracker decides whether a view should be counted. Anonymous views are
// always counted; known users are counted at most once per window. When the
// event log fails the tracker undercounts or overcounts depending on the
// failClosed policy, which is an explicit configuration choice.
type Tracker struct {
	log        EventLog
	window     time.Duration
	failClosed bool
	now        func() time.Time
}

func NewTracker(log EventLog, window time.Duration, failClosed bool) (*Tracker, error) {
	if window <= 0 {
		return nil, ErrInvalidWindow
	}
	return &Tracker{
		log:        log,
		window:     window,
		failClosed: failClosed,
		now:        time.Now,
	}, nil
}

// ShouldCount reports whether this view counts toward the pack's counter.
func (t *Tracker) ShouldCount(ctx context.Context, packID uuid.UUID, userID *uuid.UUID) bool {
	now := t.now()

	if userID == nil {
		// Anonymous views are uncapped; the event is still logged.
		_ = t.log.RecordAnonymous(ctx, packID, now)
		return true
	}

	recorded, err := t.log.RecordIfAbsent(ctx, packID, *userID, now, now.Add(-t.window))
	if err != nil {
		return !t.failClosed
	}
	return recorded
}

// ShouldCountBatch partitions packIDs into countable views in one pass and
// records events for the new set. The returned slice preserves input order.
func (t *Tracker) ShouldCountBatch(ctx context.Context, packIDs []uuid.UUID, userID *uuid.UUID) []uuid.UUID {
	if len(packIDs) == 0 {
		return nil
	}
	now := t.now()

	if userID == nil {
		for _, id := range packIDs {
			_ = t.log.RecordAnonymous(ctx, id, now)
		}
		return packIDs
	}

	seen, err := t.log.RecentlyViewed(ctx, packIDs, *userID, now.Add(-t.window))
	if err != nil {
		if t.failClosed {
			return nil
		}
		return packIDs
	}

	var fresh []uuid.UUID
	for _, id := range packIDs {
		if !seen[id] {
			fresh = append(fresh, id)
		}
	}
	if len(fresh) == 0 {
		return nil
	}

	if err := t.log.RecordBatch(ctx, fresh, *userID, now); err != nil && t.failClosed {
		return nil
	}
	return fresh
}

// Window returns the configured dedup window.
func (t *Tracker) Window() time.Duration {
	return t.window
}

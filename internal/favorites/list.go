package favorites

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Entry is one favorite, in FIFO order.
type Entry struct {
	StickerID uuid.UUID `json:"sticker_id"`
	AddedAt   time.Time `json:"added_at"`
}

// Ops are the primitive list operations, executed under a per-user lock.
type Ops interface {
	List(ctx context.Context, userID uuid.UUID) ([]Entry, error)
	Append(ctx context.Context, userID, stickerID uuid.UUID) error
	Delete(ctx context.Context, userID, stickerID uuid.UUID) (bool, error)
	IncrementFavorites(ctx context.Context, stickerID uuid.UUID) error
	DecrementFavorites(ctx context.Context, stickerID uuid.UUID) error
	StickerFavorites(ctx context.Context, stickerID uuid.UUID) (int, error)
}

// Store serializes list mutations per user.
type Store interface {
	WithUserLock(ctx context.Context, userID uuid.UUID, fn func(ops Ops) error) error
	Ops() Ops
}

// ToggleResult reports the new membership state, the sticker's updated
// counter, and whether making room evicted the oldest favorite.
type ToggleResult struct {
	Favorited        bool
	Favorites        int
	Evicted          bool
	EvictedStickerID *uuid.UUID
	ListSize         int
}

// List is a bounded, insertion-ordered favorites list per user. When a new
// entry would exceed capacity, the oldest entry is evicted and its counter
// decremented before the new one is appended.
type List struct {
	store    Store
	capacity int
}

func NewList(store Store, capacity int) *List {
	return &List{store: store, capacity: capacity}
}

// Toggle adds the sticker if absent, removes it if present.
func (l *List) Toggle(ctx context.Context, userID, stickerID uuid.UUID) (*ToggleResult, error) {
	result := &ToggleResult{}

	err := l.store.WithUserLock(ctx, userID, func(ops Ops) error {
		entries, err := ops.List(ctx, userID)
		if err != nil {
			return err
		}

		if contains(entries, stickerID) {
			if _, err := ops.Delete(ctx, userID, stickerID); err != nil {
				return err
			}
			if err := ops.DecrementFavorites(ctx, stickerID); err != nil {
				return err
			}
			result.Favorited = false
			result.ListSize = len(entries) - 1
		} else {
			size := len(entries)
			if size >= l.capacity {
				// FIFO eviction: the oldest entry silently makes room.
				oldest := entries[0]
				if _, err := ops.Delete(ctx, userID, oldest.StickerID); err != nil {
					return err
				}
				if err := ops.DecrementFavorites(ctx, oldest.StickerID); err != nil {
					return err
				}
				evicted := oldest.StickerID
				result.Evicted = true
				result.EvictedStickerID = &evicted
				size--
			}
			if err := ops.Append(ctx, userID, stickerID); err != nil {
				return err
			}
			if err := ops.IncrementFavorites(ctx, stickerID); err != nil {
				return err
			}
			result.Favorited = true
			result.ListSize = size + 1
		}

		result.Favorites, err = ops.StickerFavorites(ctx, stickerID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Remove drops the sticker from the list if present; no-op otherwise.
func (l *List) Remove(ctx context.Context, userID, stickerID uuid.UUID) error {
	return l.store.WithUserLock(ctx, userID, func(ops Ops) error {
		removed, err := ops.Delete(ctx, userID, stickerID)
		if err != nil || !removed {
			return err
		}
		return ops.DecrementFavorites(ctx, stickerID)
	})
}

// Entries returns the list in FIFO order.
func (l *List) Entries(ctx context.Context, userID uuid.UUID) ([]Entry, error) {
	return l.store.Ops().List(ctx, userID)
}

func contains(entries []Entry, stickerID uuid.UUID) bool {
	for _, e := range entries {
		if e.StickerID == stickerID {
			return true
		}
	}
	return false
}

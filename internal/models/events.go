package models

import "github.com/google/uuid"

// Realtime event payloads published to the per-user channel.

// ReadyEvent is the initial snapshot sent right after a user subscribes.
type ReadyEvent struct {
	User       *User          `json:"user"`
	SavedPacks []*StickerPack `json:"saved_packs"`
	Favorites  []*Sticker     `json:"favorites"`
}

// FavoritesUpdatedEvent syncs a favorite toggle across the user's devices.
type FavoritesUpdatedEvent struct {
	StickerID        uuid.UUID  `json:"sticker_id"`
	Favorited        bool       `json:"favorited"`
	Evicted          bool       `json:"evicted"`
	EvictedStickerID *uuid.UUID `json:"evicted_sticker_id,omitempty"`
	ListSize         int        `json:"list_size"`
}

// PackUpdatedEvent tells clients a pack's contents changed.
type PackUpdatedEvent struct {
	PackID uuid.UUID `json:"pack_id"`
	Action string    `json:"action"` // "saved", "unsaved", "stickers_changed", "deleted"
}

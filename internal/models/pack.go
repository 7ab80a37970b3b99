package models

import (
	"time"

	"github.com/google/uuid"
)

type StickerPack struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Name         string     `json:"name" db:"name"`
	Description  string     `json:"description" db:"description"`
	CoverURL     *string    `json:"cover_url" db:"cover_url"`
	CreatorID    *uuid.UUID `json:"creator_id" db:"creator_id"`
	IsPublic     bool       `json:"is_public" db:"is_public"`
	IsApproved   bool       `json:"is_approved" db:"is_approved"`
	IsAnimated   bool       `json:"is_animated" db:"is_animated"`
	StickerCount int        `json:"sticker_count" db:"sticker_count"`
	Downloads    int        `json:"downloads" db:"downloads"`
	Views        int        `json:"views" db:"views"`
	Favorites    int        `json:"favorites" db:"favorites"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`

	// Joined fields
	Stickers   []*Sticker  `json:"stickers,omitempty"`
	Categories []*Category `json:"categories,omitempty"`
}

type Sticker struct {
	ID         uuid.UUID `json:"id" db:"id"`
	PackID     uuid.UUID `json:"pack_id" db:"pack_id"`
	Name       string    `json:"name" db:"name"`
	Emojis     []string  `json:"emojis" db:"emojis"`
	Tags       []string  `json:"tags" db:"tags"`
	IsAnimated bool      `json:"is_animated" db:"is_animated"`
	FileURL    string    `json:"file_url" db:"file_url"`
	FileType   string    `json:"file_type" db:"file_type"` // "tgs", "webm", "webp", "png"
	FileSize   int64     `json:"file_size" db:"file_size"`
	Width      int       `json:"width" db:"width"`
	Height     int       `json:"height" db:"height"`
	Position   int       `json:"position" db:"position"`
	Favorites  int       `json:"favorites" db:"favorites"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

type Category struct {
	ID   uuid.UUID `json:"id" db:"id"`
	Name string    `json:"name" db:"name"`
}

// PackCandidate is a feed candidate: the pack plus the union of its
// stickers' tags, fetched in one query.
type PackCandidate struct {
	StickerPack
	Tags []string `json:"-"`
}

// Request DTOs
type CreatePackRequest struct {
	Name        string   `json:"name" validate:"required,max=64"`
	Description string   `json:"description" validate:"max=256"`
	CategoryIDs []string `json:"category_ids" validate:"required,min=1,dive,uuid"`
}

type MoveStickerRequest struct {
	Position int `json:"position"`
}

type ReorderStickersRequest struct {
	StickerIDs []string `json:"sticker_ids" validate:"required,min=1,dive,uuid"`
}

type BulkRemoveStickersRequest struct {
	StickerIDs []string `json:"sticker_ids" validate:"required,min=1,dive,uuid"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// PackSummary is a scored pack with its preview stickers, as returned by
// the feed endpoints.
type PackSummary struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	CoverURL     *string    `json:"cover_url"`
	CreatorID    *uuid.UUID `json:"creator_id"`
	IsAnimated   bool       `json:"is_animated"`
	StickerCount int        `json:"sticker_count"`
	Downloads    int        `json:"downloads"`
	Views        int        `json:"views"`
	Favorites    int        `json:"favorites"`
	Score        float64    `json:"score"`
	CreatedAt    time.Time  `json:"created_at"`
	Stickers     []*Sticker `json:"stickers"`
}

type Pagination struct {
	Page        int  `json:"page"`
	Limit       int  `json:"limit"`
	Total       int  `json:"total"`
	TotalPages  int  `json:"total_pages"`
	HasNextPage bool `json:"has_next_page"`
	HasPrevPage bool `json:"has_prev_page"`
}

type SuggestedFeed struct {
	Packs      []*PackSummary `json:"packs"`
	Pagination Pagination     `json:"pagination"`
}

type HomeFeed struct {
	Recommended []*PackSummary `json:"recommended"`
	Trending    []*PackSummary `json:"trending"`
	Suggested   *SuggestedFeed `json:"suggested"`
}

// ToggleFavoriteResponse tells the client the new membership state and
// whether making room evicted the oldest favorite.
type ToggleFavoriteResponse struct {
	Favorited        bool       `json:"favorited"`
	Favorites        int        `json:"favorites"`
	Evicted          bool       `json:"evicted"`
	EvictedStickerID *uuid.UUID `json:"evicted_sticker_id,omitempty"`
	ListSize         int        `json:"list_size"`
}

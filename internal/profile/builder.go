package profile

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var ErrUserNotFound = errors.New("user not found")

// Profile is a derived snapshot of a user's taste signals. It is never
// persisted; callers may cache it with a short TTL.
type Profile struct {
	FavoriteCreators   map[uuid.UUID]struct{} `json:"favorite_creators"`
	FavoriteTags       map[string]int         `json:"favorite_tags"`
	AnimatedPreference bool                   `json:"animated_preference"`
	FavoriteThemes     map[string]int         `json:"favorite_themes"`
}

// SavedPack is a favorited pack reduced to the fields the profile needs.
type SavedPack struct {
	CreatorID   *uuid.UUID
	Name        string
	Description string
}

// FavoriteSticker is a favorited sticker reduced to the fields the profile
// needs.
type FavoriteSticker struct {
	Tags          []string
	IsAnimated    bool
	PackCreatorID *uuid.UUID
}

// Source loads a user's favorites.
type Source interface {
	UserExists(ctx context.Context, userID uuid.UUID) (bool, error)
	SavedPacks(ctx context.Context, userID uuid.UUID) ([]*SavedPack, error)
	FavoriteStickers(ctx context.Context, userID uuid.UUID) ([]*FavoriteSticker, error)
}

// Builder derives preference profiles. Pure read-compute, safe for
// concurrent use.
type Builder struct {
	src Source
}

func NewBuilder(src Source) *Builder {
	return &Builder{src: src}
}

var themeToken = regexp.MustCompile(`\W+`)

// Build returns the user's profile, or ErrUserNotFound if the user does
// not exist.
func (b *Builder) Build(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	exists, err := b.src.UserExists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrUserNotFound
	}

	packs, err := b.src.SavedPacks(ctx, userID)
	if err != nil {
		return nil, err
	}
	stickers, err := b.src.FavoriteStickers(ctx, userID)
	if err != nil {
		return nil, err
	}

	p := &Profile{
		FavoriteCreators: make(map[uuid.UUID]struct{}),
		FavoriteTags:     make(map[string]int),
		FavoriteThemes:   make(map[string]int),
	}

	animated := 0
	for _, s := range stickers {
		if s.PackCreatorID != nil {
			p.FavoriteCreators[*s.PackCreatorID] = struct{}{}
		}
		for _, tag := range s.Tags {
			if tag == "" {
				continue
			}
			p.FavoriteTags[tag]++
		}
		if s.IsAnimated {
			animated++
		}
	}
	// Majority vote; no favorites means no animated preference.
	if len(stickers) > 0 && float64(animated)/float64(len(stickers)) > 0.5 {
		p.AnimatedPreference = true
	}

	for _, pack := range packs {
		if pack.CreatorID != nil {
			p.FavoriteCreators[*pack.CreatorID] = struct{}{}
		}
		for _, token := range themeToken.Split(strings.ToLower(pack.Name+" "+pack.Description), -1) {
			if len(token) > 3 {
				p.FavoriteThemes[token]++
			}
		}
	}

	return p, nil
}

package profile

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	exists   bool
	packs    []*SavedPack
	stickers []*FavoriteSticker
}

func (f *fakeSource) UserExists(ctx context.Context, userID uuid.UUID) (bool, error) {
	return f.exists, nil
}

func (f *fakeSource) SavedPacks(ctx context.Context, userID uuid.UUID) ([]*SavedPack, error) {
	return f.packs, nil
}

func (f *fakeSource) FavoriteStickers(ctx context.Context, userID uuid.UUID) ([]*FavoriteSticker, error) {
	return f.stickers, nil
}

func TestBuildUnknownUser(t *testing.T) {
	b := NewBuilder(&fakeSource{exists: false})

	_, err := b.Build(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestBuildEmptyFavorites(t *testing.T) {
	b := NewBuilder(&fakeSource{exists: true})

	p, err := b.Build(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, p.FavoriteCreators)
	assert.Empty(t, p.FavoriteTags)
	assert.Empty(t, p.FavoriteThemes)
	assert.False(t, p.AnimatedPreference)
}

func TestBuildCountsTags(t *testing.T) {
	b := NewBuilder(&fakeSource{
		exists: true,
		stickers: []*FavoriteSticker{
			{Tags: []string{"cat", "cute"}},
			{Tags: []string{"cat", ""}},
		},
	})

	p, err := b.Build(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 2, p.FavoriteTags["cat"])
	assert.Equal(t, 1, p.FavoriteTags["cute"])
	// Empty tags are dropped.
	assert.NotContains(t, p.FavoriteTags, "")
}

func TestBuildAnimatedPreferenceMajority(t *testing.T) {
	animated := &FavoriteSticker{IsAnimated: true}
	static := &FavoriteSticker{}

	cases := []struct {
		name     string
		stickers []*FavoriteSticker
		want     bool
	}{
		{"majority animated", []*FavoriteSticker{animated, animated, static}, true},
		{"exact half is not a majority", []*FavoriteSticker{animated, static}, false},
		{"majority static", []*FavoriteSticker{animated, static, static}, false},
		{"no favorites", nil, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := NewBuilder(&fakeSource{exists: true, stickers: tc.stickers})
			p, err := b.Build(context.Background(), uuid.New())
			require.NoError(t, err)
			assert.Equal(t, tc.want, p.AnimatedPreference)
		})
	}
}

func TestBuildCollectsCreators(t *testing.T) {
	packCreator := uuid.New()
	stickerCreator := uuid.New()

	b := NewBuilder(&fakeSource{
		exists:   true,
		packs:    []*SavedPack{{CreatorID: &packCreator}, {CreatorID: nil}},
		stickers: []*FavoriteSticker{{PackCreatorID: &stickerCreator}},
	})

	p, err := b.Build(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Contains(t, p.FavoriteCreators, packCreator)
	assert.Contains(t, p.FavoriteCreators, stickerCreator)
	assert.Len(t, p.FavoriteCreators, 2)
}

func TestBuildThemesFromPackText(t *testing.T) {
	b := NewBuilder(&fakeSource{
		exists: true,
		packs: []*SavedPack{
			{Name: "Cute Cats!", Description: "The best cats around"},
			{Name: "cats", Description: ""},
		},
	})

	p, err := b.Build(context.Background(), uuid.New())
	require.NoError(t, err)

	// Tokens are lowercased, split on non-word characters, and short words
	// are dropped.
	assert.Equal(t, 3, p.FavoriteThemes["cats"])
	assert.Equal(t, 1, p.FavoriteThemes["cute"])
	assert.Equal(t, 1, p.FavoriteThemes["best"])
	assert.Equal(t, 1, p.FavoriteThemes["around"])
	assert.NotContains(t, p.FavoriteThemes, "the")
}

package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/packhub-back/internal/models"
	"github.com/user/packhub-back/internal/profile"
)

type fakePackSource struct {
	recommended []*models.PackCandidate
	trending    []*models.PackCandidate
	suggested   []*models.PackCandidate
	total       int
	previews    map[uuid.UUID][]*models.Sticker

	trendingSince time.Time
}

func (f *fakePackSource) RecommendedCandidates(ctx context.Context, userID *uuid.UUID) ([]*models.PackCandidate, error) {
	return f.recommended, nil
}

func (f *fakePackSource) TrendingCandidates(ctx context.Context, userID *uuid.UUID, categoryID *uuid.UUID, since time.Time) ([]*models.PackCandidate, error) {
	f.trendingSince = since
	return f.trending, nil
}

func (f *fakePackSource) SuggestedCandidates(ctx context.Context, userID *uuid.UUID) ([]*models.PackCandidate, error) {
	return f.suggested, nil
}

func (f *fakePackSource) CountSuggested(ctx context.Context, userID *uuid.UUID) (int, error) {
	return f.total, nil
}

func (f *fakePackSource) PreviewStickers(ctx context.Context, packIDs []uuid.UUID, perPack int) (map[uuid.UUID][]*models.Sticker, error) {
	if f.previews == nil {
		return map[uuid.UUID][]*models.Sticker{}, nil
	}
	return f.previews, nil
}

type fakeProfileSource struct {
	profile *profile.Profile
	err     error
}

func (f *fakeProfileSource) Build(ctx context.Context, userID uuid.UUID) (*profile.Profile, error) {
	return f.profile, f.err
}

func testOptions() Options {
	return Options{
		RecommendedLimit:   5,
		TrendingLimit:      10,
		TrendingMaxAgeDays: 30,
		MaxPreviewStickers: 5,
		Seed:               42,
	}
}

func newTestEngine(packs *fakePackSource, profiles *fakeProfileSource, opts Options) *Engine {
	e := NewEngine(packs, profiles, nil, opts)
	e.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return e
}

func TestRecommendedOrdersByEngagement(t *testing.T) {
	strong := candidate(10, 0, 0)
	weak := candidate(0, 0, 0)

	packs := &fakePackSource{recommended: []*models.PackCandidate{weak, strong}}
	e := newTestEngine(packs, &fakeProfileSource{}, testOptions())

	result, err := e.Recommended(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, strong.ID, result[0].ID)
	assert.Equal(t, weak.ID, result[1].ID)
}

func TestRecommendedAppliesLimit(t *testing.T) {
	var cands []*models.PackCandidate
	for i := 0; i < 8; i++ {
		cands = append(cands, candidate(i, 0, 0))
	}
	packs := &fakePackSource{recommended: cands}
	e := newTestEngine(packs, &fakeProfileSource{}, testOptions())

	result, err := e.Recommended(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, result, 5)
}

func TestRecommendedPersonalizationLiftsCreatorPacks(t *testing.T) {
	creatorID := uuid.New()
	favored := candidate(0, 0, 0)
	favored.CreatorID = &creatorID
	popular := candidate(10, 0, 0)

	packs := &fakePackSource{recommended: []*models.PackCandidate{popular, favored}}
	profiles := &fakeProfileSource{profile: &profile.Profile{
		FavoriteCreators: map[uuid.UUID]struct{}{creatorID: {}},
	}}
	e := newTestEngine(packs, profiles, testOptions())

	userID := uuid.New()
	result, err := e.Recommended(context.Background(), &userID)
	require.NoError(t, err)
	require.Len(t, result, 2)
	// 500 creator bonus beats 100 points of downloads.
	assert.Equal(t, favored.ID, result[0].ID)
}

func TestRecommendedProfileFailureDegradesToBase(t *testing.T) {
	strong := candidate(10, 0, 0)
	packs := &fakePackSource{recommended: []*models.PackCandidate{strong}}
	profiles := &fakeProfileSource{err: errors.New("db down")}
	e := newTestEngine(packs, profiles, testOptions())

	userID := uuid.New()
	result, err := e.Recommended(context.Background(), &userID)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, strong.ID, result[0].ID)
}

func TestTrendingUsesMaxAgeCutoff(t *testing.T) {
	packs := &fakePackSource{}
	e := newTestEngine(packs, &fakeProfileSource{}, testOptions())

	_, err := e.Trending(context.Background(), nil, nil, 0)
	require.NoError(t, err)

	want := e.now().AddDate(0, 0, -30)
	assert.Equal(t, want, packs.trendingSince)
}

func TestTrendingStaysInsideExploreWindow(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// 40 candidates with strictly decreasing scores; the window is the top 30.
	var cands []*models.PackCandidate
	windowIDs := make(map[uuid.UUID]bool)
	for i := 0; i < 40; i++ {
		c := candidate(40-i, 0, 0)
		c.CreatedAt = now.AddDate(0, 0, -1)
		cands = append(cands, c)
		if i < 30 {
			windowIDs[c.ID] = true
		}
	}

	packs := &fakePackSource{trending: cands}
	e := newTestEngine(packs, &fakeProfileSource{}, testOptions())

	result, err := e.Trending(context.Background(), nil, nil, 0)
	require.NoError(t, err)
	require.Len(t, result, 10)
	for _, p := range result {
		assert.True(t, windowIDs[p.ID], "pack outside the explore window: %s", p.ID)
	}
}

func TestTrendingPageSkipsAndExhausts(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	var cands []*models.PackCandidate
	for i := 0; i < 25; i++ {
		c := candidate(25-i, 0, 0)
		c.CreatedAt = now.AddDate(0, 0, -1)
		cands = append(cands, c)
	}

	packs := &fakePackSource{trending: cands}
	e := newTestEngine(packs, &fakeProfileSource{}, testOptions())

	page2, err := e.Trending(context.Background(), nil, nil, 2)
	require.NoError(t, err)
	assert.Len(t, page2, 5) // 25 candidates, skip 20

	empty, err := e.Trending(context.Background(), nil, nil, 3)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestTrendingShuffleDeterministicPerSeed(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	var cands []*models.PackCandidate
	for i := 0; i < 20; i++ {
		c := candidate(20-i, 0, 0)
		c.CreatedAt = now.AddDate(0, 0, -1)
		cands = append(cands, c)
	}

	run := func() []uuid.UUID {
		packs := &fakePackSource{trending: cands}
		e := newTestEngine(packs, &fakeProfileSource{}, testOptions())
		result, err := e.Trending(context.Background(), nil, nil, 0)
		require.NoError(t, err)
		ids := make([]uuid.UUID, len(result))
		for i, p := range result {
			ids[i] = p.ID
		}
		return ids
	}

	assert.Equal(t, run(), run())
}

func TestSuggestedPagination(t *testing.T) {
	var cands []*models.PackCandidate
	for i := 0; i < 25; i++ {
		cands = append(cands, candidate(25-i, 0, 0))
	}
	packs := &fakePackSource{suggested: cands, total: 25}
	e := newTestEngine(packs, &fakeProfileSource{}, testOptions())

	feed, err := e.Suggested(context.Background(), nil, 2, 10)
	require.NoError(t, err)

	assert.Equal(t, 2, feed.Pagination.Page)
	assert.Equal(t, 10, feed.Pagination.Limit)
	assert.Equal(t, 25, feed.Pagination.Total)
	assert.Equal(t, 3, feed.Pagination.TotalPages)
	assert.True(t, feed.Pagination.HasNextPage)
	assert.True(t, feed.Pagination.HasPrevPage)

	// Page 2 holds ranks 11-20.
	require.Len(t, feed.Packs, 10)
	assert.Equal(t, cands[10].ID, feed.Packs[0].ID)
	assert.Equal(t, cands[19].ID, feed.Packs[9].ID)
}

func TestSuggestedPageBeyondEnd(t *testing.T) {
	packs := &fakePackSource{suggested: []*models.PackCandidate{candidate(1, 0, 0)}, total: 1}
	e := newTestEngine(packs, &fakeProfileSource{}, testOptions())

	feed, err := e.Suggested(context.Background(), nil, 5, 10)
	require.NoError(t, err)
	assert.Empty(t, feed.Packs)
	assert.False(t, feed.Pagination.HasNextPage)
	assert.True(t, feed.Pagination.HasPrevPage)
}

func TestSuggestedNormalizesPage(t *testing.T) {
	packs := &fakePackSource{suggested: []*models.PackCandidate{candidate(1, 0, 0)}, total: 1}
	e := newTestEngine(packs, &fakeProfileSource{}, testOptions())

	feed, err := e.Suggested(context.Background(), nil, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, feed.Pagination.Page)
	assert.Len(t, feed.Packs, 1)
}

func TestHomeCombinesAllFeeds(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rec := candidate(5, 0, 0)
	trend := candidate(3, 0, 0)
	trend.CreatedAt = now.AddDate(0, 0, -1)
	sug := candidate(1, 0, 0)

	packs := &fakePackSource{
		recommended: []*models.PackCandidate{rec},
		trending:    []*models.PackCandidate{trend},
		suggested:   []*models.PackCandidate{sug},
		total:       1,
	}
	e := newTestEngine(packs, &fakeProfileSource{}, testOptions())

	home, err := e.Home(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, home.Recommended, 1)
	require.Len(t, home.Trending, 1)
	require.NotNil(t, home.Suggested)
	assert.Equal(t, 1, home.Suggested.Pagination.Page)
	assert.Len(t, home.Suggested.Packs, 1)
}

func TestSummarizeAttachesPreviews(t *testing.T) {
	c := candidate(1, 0, 0)
	sticker := &models.Sticker{ID: uuid.New(), PackID: c.ID}

	packs := &fakePackSource{
		recommended: []*models.PackCandidate{c},
		previews:    map[uuid.UUID][]*models.Sticker{c.ID: {sticker}},
	}
	e := newTestEngine(packs, &fakeProfileSource{}, testOptions())

	result, err := e.Recommended(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, result, 1)
	require.Len(t, result[0].Stickers, 1)
	assert.Equal(t, sticker.ID, result[0].Stickers[0].ID)
}

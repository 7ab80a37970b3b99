package feed

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/user/packhub-back/internal/cache"
	"github.com/user/packhub-back/internal/models"
	"github.com/user/packhub-back/internal/profile"
)

// PackSource supplies feed candidates. Every method already applies the
// feed's structural filter (public, approved, exclusions for the given
// user) so the engine only scores and orders.
type PackSource interface {
	RecommendedCandidates(ctx context.Context, userID *uuid.UUID) ([]*models.PackCandidate, error)
	TrendingCandidates(ctx context.Context, userID *uuid.UUID, categoryID *uuid.UUID, since time.Time) ([]*models.PackCandidate, error)
	SuggestedCandidates(ctx context.Context, userID *uuid.UUID) ([]*models.PackCandidate, error)
	CountSuggested(ctx context.Context, userID *uuid.UUID) (int, error)
	PreviewStickers(ctx context.Context, packIDs []uuid.UUID, perPack int) (map[uuid.UUID][]*models.Sticker, error)
}

// ProfileSource builds preference profiles.
type ProfileSource interface {
	Build(ctx context.Context, userID uuid.UUID) (*profile.Profile, error)
}

type Options struct {
	RecommendedLimit   int
	TrendingLimit      int
	TrendingMaxAgeDays int
	MaxPreviewStickers int
	ProfileCacheTTL    time.Duration
	Seed               int64 // 0 => seeded from the clock
}

// Engine computes the three ranked feeds. Safe for concurrent use.
type Engine struct {
	packs    PackSource
	profiles ProfileSource
	cache    *cache.RedisCache // optional
	opts     Options

	now func() time.Time

	rng   *rand.Rand
	rngMu sync.Mutex
}

func NewEngine(packs PackSource, profiles ProfileSource, redis *cache.RedisCache, opts Options) *Engine {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Engine{
		packs:    packs,
		profiles: profiles,
		cache:    redis,
		opts:     opts,
		now:      time.Now,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

// Recommended returns the top packs for the user, personalized when a
// profile is available.
func (e *Engine) Recommended(ctx context.Context, userID *uuid.UUID) ([]*models.PackSummary, error) {
	cands, err := e.packs.RecommendedCandidates(ctx, userID)
	if err != nil {
		return nil, err
	}

	prof := e.profileFor(ctx, userID)
	items := make([]scored, len(cands))
	for i, c := range cands {
		items[i] = scored{
			candidate: c,
			score:     baseRecommendedScore(c) + personalizationBonus(c, prof, recBonusCreator, recBonusAnimated, recBonusPerTag),
		}
	}
	sortByScore(items)

	if len(items) > e.opts.RecommendedLimit {
		items = items[:e.opts.RecommendedLimit]
	}
	return e.summarize(ctx, items)
}

// Trending returns recently created packs ranked by engagement plus a
// time-decay boost, then shuffled inside the explore window. page is
// 0-based: it skips page*limit entries of the window.
func (e *Engine) Trending(ctx context.Context, userID *uuid.UUID, categoryID *uuid.UUID, page int) ([]*models.PackSummary, error) {
	if page < 0 {
		page = 0
	}
	limit := e.opts.TrendingLimit
	now := e.now()
	since := now.AddDate(0, 0, -e.opts.TrendingMaxAgeDays)

	cands, err := e.packs.TrendingCandidates(ctx, userID, categoryID, since)
	if err != nil {
		return nil, err
	}

	items := make([]scored, len(cands))
	for i, c := range cands {
		ageDays := now.Sub(c.CreatedAt).Hours() / 24
		items[i] = scored{candidate: c, score: baseTrendingScore(c, ageDays)}
	}
	sortByScore(items)

	// Explore window: top 3x limit, skip the page, shuffle what is left.
	if len(items) > exploreWindowFactor*limit {
		items = items[:exploreWindowFactor*limit]
	}
	skip := page * limit
	if skip >= len(items) {
		return []*models.PackSummary{}, nil
	}
	items = items[skip:]

	e.rngMu.Lock()
	e.rng.Shuffle(len(items), func(i, j int) {
		items[i], items[j] = items[j], items[i]
	})
	e.rngMu.Unlock()

	if len(items) > limit {
		items = items[:limit]
	}
	return e.summarize(ctx, items)
}

// Suggested returns paginated discovery results. page is 1-based; the total
// is counted independently of scoring for the pagination metadata.
func (e *Engine) Suggested(ctx context.Context, userID *uuid.UUID, page, limit int) (*models.SuggestedFeed, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = e.opts.TrendingLimit
	}

	cands, err := e.packs.SuggestedCandidates(ctx, userID)
	if err != nil {
		return nil, err
	}
	total, err := e.packs.CountSuggested(ctx, userID)
	if err != nil {
		return nil, err
	}

	prof := e.profileFor(ctx, userID)
	items := make([]scored, len(cands))
	for i, c := range cands {
		items[i] = scored{
			candidate: c,
			score:     baseSuggestedScore(c) + personalizationBonus(c, prof, sugBonusCreator, sugBonusAnimated, sugBonusPerTag),
		}
	}
	sortByScore(items)

	offset := (page - 1) * limit
	if offset > len(items) {
		offset = len(items)
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	items = items[offset:end]

	packs, err := e.summarize(ctx, items)
	if err != nil {
		return nil, err
	}

	totalPages := int(math.Ceil(float64(total) / float64(limit)))
	return &models.SuggestedFeed{
		Packs: packs,
		Pagination: models.Pagination{
			Page:        page,
			Limit:       limit,
			Total:       total,
			TotalPages:  totalPages,
			HasNextPage: page < totalPages,
			HasPrevPage: page > 1,
		},
	}, nil
}

// Home computes all three feeds concurrently and joins the results. No
// feed blocks on another; the first error wins.
func (e *Engine) Home(ctx context.Context, userID *uuid.UUID) (*models.HomeFeed, error) {
	var (
		wg   sync.WaitGroup
		home models.HomeFeed

		recErr, trendErr, sugErr error
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		home.Recommended, recErr = e.Recommended(ctx, userID)
	}()
	go func() {
		defer wg.Done()
		home.Trending, trendErr = e.Trending(ctx, userID, nil, 0)
	}()
	go func() {
		defer wg.Done()
		home.Suggested, sugErr = e.Suggested(ctx, userID, 1, e.opts.TrendingLimit)
	}()
	wg.Wait()

	for _, err := range []error{recErr, trendErr, sugErr} {
		if err != nil {
			return nil, err
		}
	}
	return &home, nil
}

// profileFor resolves the user's profile through the Redis TTL cache.
// Personalization is additive: any failure here degrades the feed to its
// base scoring instead of failing it.
func (e *Engine) profileFor(ctx context.Context, userID *uuid.UUID) *profile.Profile {
	if userID == nil {
		return nil
	}

	key := cache.ProfileKey(userID.String())
	if e.cache != nil {
		var cached profile.Profile
		if err := e.cache.GetJSON(ctx, key, &cached); err == nil {
			return &cached
		}
	}

	prof, err := e.profiles.Build(ctx, *userID)
	if err != nil {
		return nil
	}
	if e.cache != nil {
		_ = e.cache.SetJSON(ctx, key, prof, e.opts.ProfileCacheTTL)
	}
	return prof
}

// summarize converts scored candidates into summaries with their preview
// stickers attached, preserving order.
func (e *Engine) summarize(ctx context.Context, items []scored) ([]*models.PackSummary, error) {
	if len(items) == 0 {
		return []*models.PackSummary{}, nil
	}

	ids := make([]uuid.UUID, len(items))
	for i, it := range items {
		ids[i] = it.candidate.ID
	}
	previews, err := e.packs.PreviewStickers(ctx, ids, e.opts.MaxPreviewStickers)
	if err != nil {
		return nil, err
	}

	summaries := make([]*models.PackSummary, len(items))
	for i, it := range items {
		c := it.candidate
		stickers := previews[c.ID]
		if stickers == nil {
			stickers = []*models.Sticker{}
		}
		summaries[i] = &models.PackSummary{
			ID:           c.ID,
			Name:         c.Name,
			Description:  c.Description,
			CoverURL:     c.CoverURL,
			CreatorID:    c.CreatorID,
			IsAnimated:   c.IsAnimated,
			StickerCount: c.StickerCount,
			Downloads:    c.Downloads,
			Views:        c.Views,
			Favorites:    c.Favorites,
			Score:        it.score,
			CreatedAt:    c.CreatedAt,
			Stickers:     stickers,
		}
	}
	return summaries, nil
}

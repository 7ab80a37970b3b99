package feed

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/user/packhub-back/internal/models"
	"github.com/user/packhub-back/internal/profile"
)

func candidate(downloads, views, favorites int) *models.PackCandidate {
	c := &models.PackCandidate{}
	c.ID = uuid.New()
	c.Downloads = downloads
	c.Views = views
	c.Favorites = favorites
	return c
}

func TestBaseRecommendedScore(t *testing.T) {
	c := candidate(2, 3, 4)
	assert.Equal(t, 10.0*2+5.0*3+15.0*4, baseRecommendedScore(c))
}

func TestBaseTrendingScoreDecay(t *testing.T) {
	c := candidate(0, 0, 0)

	assert.Equal(t, 100.0, baseTrendingScore(c, 0))
	assert.InDelta(t, 100.0/30.0, baseTrendingScore(c, 29), 0.001)

	// Clock skew can make age slightly negative; treated as brand new.
	assert.Equal(t, 100.0, baseTrendingScore(c, -1))
}

func TestBaseTrendingScoreFreshBeatsStale(t *testing.T) {
	c := candidate(1, 10, 2)
	assert.Greater(t, baseTrendingScore(c, 0.5), baseTrendingScore(c, 20))
}

func TestBaseSuggestedScoreCountsStickers(t *testing.T) {
	c := candidate(1, 1, 1)
	c.StickerCount = 10
	assert.Equal(t, 5.0+3.0+7.0+2.0*10, baseSuggestedScore(c))
}

func TestPersonalizationBonusNilProfile(t *testing.T) {
	c := candidate(0, 0, 0)
	assert.Zero(t, personalizationBonus(c, nil, recBonusCreator, recBonusAnimated, recBonusPerTag))
}

func TestPersonalizationBonusCreatorMatch(t *testing.T) {
	creatorID := uuid.New()
	c := candidate(0, 0, 0)
	c.CreatorID = &creatorID
	c.IsAnimated = true

	p := &profile.Profile{
		FavoriteCreators:   map[uuid.UUID]struct{}{creatorID: {}},
		AnimatedPreference: true,
	}

	assert.Equal(t, recBonusCreator+recBonusAnimated,
		personalizationBonus(c, p, recBonusCreator, recBonusAnimated, recBonusPerTag))
}

func TestPersonalizationBonusTagOverlap(t *testing.T) {
	c := candidate(0, 0, 0)
	c.IsAnimated = true // profile prefers static, no animated bonus
	c.Tags = []string{"cat", "cat", "dog", "bird"}

	p := &profile.Profile{
		FavoriteTags: map[string]int{"cat": 5, "dog": 3, "fish": 1},
	}

	// cat and dog overlap; the duplicate cat tag counts once.
	assert.Equal(t, 2*recBonusPerTag,
		personalizationBonus(c, p, recBonusCreator, recBonusAnimated, recBonusPerTag))
}

func TestTopTagsLimitAndStableTies(t *testing.T) {
	freq := map[string]int{
		"a": 1, "b": 1, "c": 1, "d": 1, "e": 1, "f": 1,
		"g": 1, "h": 1, "i": 1, "j": 1, "k": 1,
	}

	top := topTags(freq, topTagCount)
	assert.Len(t, top, topTagCount)
	// Equal frequencies break ties by name, so "k" is the one cut.
	assert.NotContains(t, top, "k")
	assert.Contains(t, top, "a")
}

func TestTopTagsEmpty(t *testing.T) {
	assert.Nil(t, topTags(nil, topTagCount))
}

func TestSortByScoreStable(t *testing.T) {
	a := candidate(0, 0, 0)
	b := candidate(0, 0, 0)
	c := candidate(0, 0, 0)

	items := []scored{{a, 1}, {b, 5}, {c, 1}}
	sortByScore(items)

	assert.Equal(t, b.ID, items[0].candidate.ID)
	// Equal scores keep their input order.
	assert.Equal(t, a.ID, items[1].candidate.ID)
	assert.Equal(t, c.ID, items[2].candidate.ID)
}

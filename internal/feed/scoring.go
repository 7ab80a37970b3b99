package feed

import (
	"sort"

	"github.com/user/packhub-back/internal/models"
	"github.com/user/packhub-back/internal/profile"
)

// Feed scoring weights. Personalization bonuses are additive on top of the
// counter-based base score, so every feed works without a profile.
const (
	recWeightDownloads = 10.0
	recWeightViews     = 5.0
	recWeightFavorites = 15.0
	recBonusCreator    = 500.0
	recBonusAnimated   = 200.0
	recBonusPerTag     = 50.0

	trendWeightDownloads = 10.0
	trendWeightViews     = 5.0
	trendWeightFavorites = 8.0
	trendRecencyBoost    = 100.0

	sugWeightDownloads = 5.0
	sugWeightViews     = 3.0
	sugWeightFavorites = 7.0
	sugWeightStickers  = 2.0
	sugBonusCreator    = 300.0
	sugBonusAnimated   = 150.0
	sugBonusPerTag     = 30.0

	// Only the user's most frequent tags participate in the overlap bonus.
	topTagCount = 10

	// Trending draws from a window of the top 3x limit candidates and
	// shuffles inside it. Intentional noise for feed diversity, not a bug.
	exploreWindowFactor = 3
)

func baseRecommendedScore(c *models.PackCandidate) float64 {
	return recWeightDownloads*float64(c.Downloads) +
		recWeightViews*float64(c.Views) +
		recWeightFavorites*float64(c.Favorites)
}

func baseTrendingScore(c *models.PackCandidate, ageDays float64) float64 {
	if ageDays < 0 {
		ageDays = 0
	}
	return trendWeightDownloads*float64(c.Downloads) +
		trendWeightViews*float64(c.Views) +
		trendWeightFavorites*float64(c.Favorites) +
		trendRecencyBoost/(1+ageDays)
}

func baseSuggestedScore(c *models.PackCandidate) float64 {
	return sugWeightDownloads*float64(c.Downloads) +
		sugWeightViews*float64(c.Views) +
		sugWeightFavorites*float64(c.Favorites) +
		sugWeightStickers*float64(c.StickerCount)
}

// personalizationBonus scores a candidate against a profile. A nil profile
// contributes nothing.
func personalizationBonus(c *models.PackCandidate, p *profile.Profile, creatorBonus, animatedBonus, perTagBonus float64) float64 {
	if p == nil {
		return 0
	}

	var bonus float64
	if c.CreatorID != nil {
		if _, ok := p.FavoriteCreators[*c.CreatorID]; ok {
			bonus += creatorBonus
		}
	}
	if c.IsAnimated == p.AnimatedPreference {
		bonus += animatedBonus
	}
	bonus += perTagBonus * float64(tagOverlap(c.Tags, topTags(p.FavoriteTags, topTagCount)))
	return bonus
}

// topTags returns the n most frequent tags; ties break on tag name so the
// selection is stable.
func topTags(freq map[string]int, n int) map[string]struct{} {
	if len(freq) == 0 {
		return nil
	}

	tags := make([]string, 0, len(freq))
	for tag := range freq {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool {
		if freq[tags[i]] != freq[tags[j]] {
			return freq[tags[i]] > freq[tags[j]]
		}
		return tags[i] < tags[j]
	})

	if len(tags) > n {
		tags = tags[:n]
	}
	top := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		top[tag] = struct{}{}
	}
	return top
}

// tagOverlap counts distinct tags present in top.
func tagOverlap(tags []string, top map[string]struct{}) int {
	if len(top) == 0 {
		return 0
	}
	seen := make(map[string]struct{}, len(tags))
	count := 0
	for _, tag := range tags {
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		if _, ok := top[tag]; ok {
			count++
		}
	}
	return count
}

type scored struct {
	candidate *models.PackCandidate
	score     float64
}

func sortByScore(items []scored) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].score > items[j].score
	})
}

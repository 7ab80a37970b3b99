package packs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/user/packhub-back/internal/models"
)

// candidateFilter is the structural filter shared by the feed queries.
// Public + approved is always on; the rest varies per feed.
type candidateFilter struct {
	createdSince     *time.Time
	categoryID       *uuid.UUID
	excludeSavedOf   *uuid.UUID
	excludeHiddenOf  *uuid.UUID
	excludeCreatedBy *uuid.UUID
}

func (f candidateFilter) where() (string, []any) {
	clause := ` WHERE p.is_public AND p.is_approved`
	var args []any
	argNum := 1

	if f.createdSince != nil {
		clause += fmt.Sprintf(" AND p.created_at >= $%d", argNum)
		args = append(args, *f.createdSince)
		argNum++
	}
	if f.categoryID != nil {
		clause += fmt.Sprintf(` AND EXISTS (
			SELECT 1 FROM pack_categories pc WHERE pc.pack_id = p.id AND pc.category_id = $%d
		)`, argNum)
		args = append(args, *f.categoryID)
		argNum++
	}
	if f.excludeSavedOf != nil {
		clause += fmt.Sprintf(` AND NOT EXISTS (
			SELECT 1 FROM user_pack_saves ups WHERE ups.pack_id = p.id AND ups.user_id = $%d
		)`, argNum)
		args = append(args, *f.excludeSavedOf)
		argNum++
	}
	if f.excludeHiddenOf != nil {
		clause += fmt.Sprintf(` AND NOT EXISTS (
			SELECT 1 FROM user_hidden_packs uhp WHERE uhp.pack_id = p.id AND uhp.user_id = $%d
		)`, argNum)
		args = append(args, *f.excludeHiddenOf)
		argNum++
	}
	if f.excludeCreatedBy != nil {
		clause += fmt.Sprintf(" AND p.creator_id IS DISTINCT FROM $%d", argNum)
		args = append(args, *f.excludeCreatedBy)
	}

	return clause, args
}

// RecommendedCandidates: public, approved, minus the user's saved packs.
func (r *Repository) RecommendedCandidates(ctx context.Context, userID *uuid.UUID) ([]*models.PackCandidate, error) {
	return r.candidates(ctx, candidateFilter{excludeSavedOf: userID})
}

// TrendingCandidates: public, approved, created since the cutoff, minus the
// user's hidden packs, optionally category-filtered.
func (r *Repository) TrendingCandidates(ctx context.Context, userID *uuid.UUID, categoryID *uuid.UUID, since time.Time) ([]*models.PackCandidate, error) {
	return r.candidates(ctx, candidateFilter{
		createdSince:    &since,
		categoryID:      categoryID,
		excludeHiddenOf: userID,
	})
}

// SuggestedCandidates: public, approved, minus the user's own and saved
// packs.
func (r *Repository) SuggestedCandidates(ctx context.Context, userID *uuid.UUID) ([]*models.PackCandidate, error) {
	return r.candidates(ctx, candidateFilter{
		excludeSavedOf:   userID,
		excludeCreatedBy: userID,
	})
}

// CountSuggested counts suggested candidates with the same filter and no
// scoring, for pagination metadata.
func (r *Repository) CountSuggested(ctx context.Context, userID *uuid.UUID) (int, error) {
	where, args := candidateFilter{
		excludeSavedOf:   userID,
		excludeCreatedBy: userID,
	}.where()

	var total int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM sticker_packs p`+where, args...).Scan(&total)
	return total, err
}

func (r *Repository) candidates(ctx context.Context, filter candidateFilter) ([]*models.PackCandidate, error) {
	where, args := filter.where()

	// Tag union per pack rides along so scoring needs no second round trip.
	rows, err := r.db.Query(ctx, `
		SELECT `+prefixedPackColumns("p")+`, COALESCE(t.tags, '{}')
		FROM sticker_packs p
		LEFT JOIN LATERAL (
			SELECT array_agg(DISTINCT tag) AS tags
			FROM stickers s
			CROSS JOIN LATERAL unnest(s.tags) AS tag
			WHERE s.pack_id = p.id
		) t ON true
	`+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cands []*models.PackCandidate
	for rows.Next() {
		c := &models.PackCandidate{}
		err := rows.Scan(
			&c.ID, &c.Name, &c.Description, &c.CoverURL, &c.CreatorID,
			&c.IsPublic, &c.IsApproved, &c.IsAnimated, &c.StickerCount,
			&c.Downloads, &c.Views, &c.Favorites, &c.CreatedAt, &c.UpdatedAt,
			&c.Tags,
		)
		if err != nil {
			return nil, err
		}
		cands = append(cands, c)
	}
	return cands, rows.Err()
}

// PreviewStickers returns the first perPack stickers of each pack by
// position.
func (r *Repository) PreviewStickers(ctx context.Context, packIDs []uuid.UUID, perPack int) (map[uuid.UUID][]*models.Sticker, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+prefixedStickerColumns("s")+`
		FROM (
			SELECT *, row_number() OVER (PARTITION BY pack_id ORDER BY position) AS rn
			FROM stickers
			WHERE pack_id = ANY($1)
		) s
		WHERE s.rn <= $2
		ORDER BY s.pack_id, s.position
	`, packIDs, perPack)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stickers, err := collectStickers(rows)
	if err != nil {
		return nil, err
	}

	previews := make(map[uuid.UUID][]*models.Sticker, len(packIDs))
	for _, s := range stickers {
		previews[s.PackID] = append(previews[s.PackID], s)
	}
	return previews, nil
}

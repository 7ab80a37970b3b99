package packs

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/user/packhub-back/internal/models"
)

var (
	ErrPackNotFound         = errors.New("sticker pack not found")
	ErrStickerNotFound      = errors.New("sticker not found")
	ErrNotOwner             = errors.New("not the pack owner")
	ErrPackFull             = errors.New("sticker pack is full")
	ErrInvalidPosition      = errors.New("invalid sticker position")
	ErrIncompleteSet        = errors.New("reorder must include every sticker exactly once")
	ErrAnimatedMismatch     = errors.New("sticker animation type does not match the pack")
	ErrDuplicateStickerName = errors.New("sticker name already used in this pack")
	ErrCategoryRequired     = errors.New("a pack needs at least one category")
	ErrTooManyCategories    = errors.New("too many categories")
	ErrCategoryNotFound     = errors.New("category not found")
	ErrTooManyTags          = errors.New("too many tags")
	ErrTooManyEmojis        = errors.New("too many emoji associations")
)

// Limits bounds pack contents. Each is configured independently.
type Limits struct {
	MaxStickers   int
	MaxCategories int
	MaxTags       int
	MaxEmojis     int
}

type Repository struct {
	db     *pgxpool.Pool
	limits Limits
}

func NewRepository(db *pgxpool.Pool, limits Limits) *Repository {
	return &Repository{db: db, limits: limits}
}

const packColumns = `id, name, COALESCE(description, ''), cover_url, creator_id, is_public, is_approved,
	is_animated, sticker_count, downloads, views, favorites, created_at, updated_at`

func scanPack(row pgx.Row) (*models.StickerPack, error) {
	pack := &models.StickerPack{}
	err := row.Scan(
		&pack.ID, &pack.Name, &pack.Description, &pack.CoverURL, &pack.CreatorID,
		&pack.IsPublic, &pack.IsApproved, &pack.IsAnimated, &pack.StickerCount,
		&pack.Downloads, &pack.Views, &pack.Favorites, &pack.CreatedAt, &pack.UpdatedAt,
	)
	return pack, err
}

// CreatePack creates a pack with its category set. At least one category is
// required; the set is bounded.
func (r *Repository) CreatePack(ctx context.Context, creatorID uuid.UUID, name, description string, categoryIDs []uuid.UUID) (*models.StickerPack, error) {
	if len(categoryIDs) == 0 {
		return nil, ErrCategoryRequired
	}
	if len(categoryIDs) > r.limits.MaxCategories {
		return nil, ErrTooManyCategories
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	pack, err := scanPack(tx.QueryRow(ctx, `
		INSERT INTO sticker_packs (name, description, creator_id)
		VALUES ($1, $2, $3)
		RETURNING `+packColumns+`
	`, name, description, creatorID))
	if err != nil {
		return nil, err
	}

	tag, err := tx.Exec(ctx, `
		INSERT INTO pack_categories (pack_id, category_id)
		SELECT $1, c.id FROM categories c WHERE c.id = ANY($2)
	`, pack.ID, dedupe(categoryIDs))
	if err != nil {
		return nil, err
	}
	if int(tag.RowsAffected()) != len(dedupe(categoryIDs)) {
		return nil, ErrCategoryNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	pack.Categories, _ = r.packCategories(ctx, pack.ID)
	return pack, nil
}

// GetPack returns a pack with its stickers in position order.
func (r *Repository) GetPack(ctx context.Context, packID uuid.UUID) (*models.StickerPack, error) {
	pack, err := scanPack(r.db.QueryRow(ctx, `
		SELECT `+packColumns+` FROM sticker_packs WHERE id = $1
	`, packID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPackNotFound
		}
		return nil, err
	}

	pack.Stickers, err = r.packStickers(ctx, packID)
	if err != nil {
		return nil, err
	}
	pack.Categories, _ = r.packCategories(ctx, packID)

	return pack, nil
}

// PublishPack makes a pack visible. Only the owner may publish.
func (r *Repository) PublishPack(ctx context.Context, packID, userID uuid.UUID) error {
	if err := r.checkOwner(ctx, packID, userID); err != nil {
		return err
	}
	_, err := r.db.Exec(ctx, `
		UPDATE sticker_packs SET is_public = true, updated_at = NOW() WHERE id = $1
	`, packID)
	return err
}

// DeletePack deletes a pack. Only the owner may delete.
func (r *Repository) DeletePack(ctx context.Context, packID, userID uuid.UUID) error {
	if err := r.checkOwner(ctx, packID, userID); err != nil {
		return err
	}
	_, err := r.db.Exec(ctx, `DELETE FROM sticker_packs WHERE id = $1`, packID)
	return err
}

func (r *Repository) checkOwner(ctx context.Context, packID, userID uuid.UUID) error {
	var creatorID *uuid.UUID
	err := r.db.QueryRow(ctx, `SELECT creator_id FROM sticker_packs WHERE id = $1`, packID).Scan(&creatorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrPackNotFound
		}
		return err
	}
	if creatorID == nil || *creatorID != userID {
		return ErrNotOwner
	}
	return nil
}

// SavePack adds a pack to the user's collection. Returns whether a new save
// happened (callers bump the favorites counter only then).
func (r *Repository) SavePack(ctx context.Context, userID, packID uuid.UUID) (bool, error) {
	if _, err := r.requirePack(ctx, packID); err != nil {
		return false, err
	}
	tag, err := r.db.Exec(ctx, `
		INSERT INTO user_pack_saves (user_id, pack_id) VALUES ($1, $2) ON CONFLICT DO NOTHING
	`, userID, packID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// UnsavePack removes a pack from the user's collection. Returns whether an
// entry was removed.
func (r *Repository) UnsavePack(ctx context.Context, userID, packID uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM user_pack_saves WHERE user_id = $1 AND pack_id = $2
	`, userID, packID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// HidePack hides a pack from the user's trending feed.
func (r *Repository) HidePack(ctx context.Context, userID, packID uuid.UUID) error {
	if _, err := r.requirePack(ctx, packID); err != nil {
		return err
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO user_hidden_packs (user_id, pack_id) VALUES ($1, $2) ON CONFLICT DO NOTHING
	`, userID, packID)
	return err
}

func (r *Repository) UnhidePack(ctx context.Context, userID, packID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `
		DELETE FROM user_hidden_packs WHERE user_id = $1 AND pack_id = $2
	`, userID, packID)
	return err
}

// GetSavedPacks returns the user's collection with stickers loaded, newest
// save first.
func (r *Repository) GetSavedPacks(ctx context.Context, userID uuid.UUID) ([]*models.StickerPack, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+prefixedPackColumns("p")+`
		FROM sticker_packs p
		JOIN user_pack_saves ups ON p.id = ups.pack_id
		WHERE ups.user_id = $1
		ORDER BY ups.added_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var packs []*models.StickerPack
	for rows.Next() {
		pack, err := scanPack(rows)
		if err != nil {
			return nil, err
		}
		packs = append(packs, pack)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, pack := range packs {
		pack.Stickers, _ = r.packStickers(ctx, pack.ID)
	}
	return packs, nil
}

// GetSticker returns a single sticker by ID.
func (r *Repository) GetSticker(ctx context.Context, stickerID uuid.UUID) (*models.Sticker, error) {
	s := &models.Sticker{}
	err := r.db.QueryRow(ctx, `
		SELECT `+stickerColumns+` FROM stickers WHERE id = $1
	`, stickerID).Scan(
		&s.ID, &s.PackID, &s.Name, &s.Emojis, &s.Tags, &s.IsAnimated,
		&s.FileURL, &s.FileType, &s.FileSize, &s.Width, &s.Height,
		&s.Position, &s.Favorites, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStickerNotFound
		}
		return nil, err
	}
	return s, nil
}

// GetFavoriteStickers returns the user's favorite stickers, oldest first
// (FIFO order).
func (r *Repository) GetFavoriteStickers(ctx context.Context, userID uuid.UUID) ([]*models.Sticker, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+prefixedStickerColumns("s")+`
		FROM stickers s
		JOIN user_favorite_stickers ufs ON s.id = ufs.sticker_id
		WHERE ufs.user_id = $1
		ORDER BY ufs.seq
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectStickers(rows)
}

// ListCategories returns every category.
func (r *Repository) ListCategories(ctx context.Context) ([]*models.Category, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cats []*models.Category
	for rows.Next() {
		c := &models.Category{}
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

const stickerColumns = `id, pack_id, name, emojis, tags, is_animated, file_url, file_type,
	file_size, width, height, position, favorites, created_at`

func prefixedStickerColumns(alias string) string {
	return fmt.Sprintf(`%[1]s.id, %[1]s.pack_id, %[1]s.name, %[1]s.emojis, %[1]s.tags, %[1]s.is_animated,
		%[1]s.file_url, %[1]s.file_type, %[1]s.file_size, %[1]s.width, %[1]s.height,
		%[1]s.position, %[1]s.favorites, %[1]s.created_at`, alias)
}

func prefixedPackColumns(alias string) string {
	return fmt.Sprintf(`%[1]s.id, %[1]s.name, COALESCE(%[1]s.description, ''), %[1]s.cover_url, %[1]s.creator_id,
		%[1]s.is_public, %[1]s.is_approved, %[1]s.is_animated, %[1]s.sticker_count,
		%[1]s.downloads, %[1]s.views, %[1]s.favorites, %[1]s.created_at, %[1]s.updated_at`, alias)
}

func collectStickers(rows pgx.Rows) ([]*models.Sticker, error) {
	var stickers []*models.Sticker
	for rows.Next() {
		s := &models.Sticker{}
		err := rows.Scan(
			&s.ID, &s.PackID, &s.Name, &s.Emojis, &s.Tags, &s.IsAnimated,
			&s.FileURL, &s.FileType, &s.FileSize, &s.Width, &s.Height,
			&s.Position, &s.Favorites, &s.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		stickers = append(stickers, s)
	}
	return stickers, rows.Err()
}

func (r *Repository) packStickers(ctx context.Context, packID uuid.UUID) ([]*models.Sticker, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+stickerColumns+` FROM stickers WHERE pack_id = $1 ORDER BY position
	`, packID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectStickers(rows)
}

func (r *Repository) packCategories(ctx context.Context, packID uuid.UUID) ([]*models.Category, error) {
	rows, err := r.db.Query(ctx, `
		SELECT c.id, c.name FROM categories c
		JOIN pack_categories pc ON c.id = pc.category_id
		WHERE pc.pack_id = $1 ORDER BY c.name
	`, packID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cats []*models.Category
	for rows.Next() {
		c := &models.Category{}
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

func (r *Repository) requirePack(ctx context.Context, packID uuid.UUID) (*models.StickerPack, error) {
	pack, err := scanPack(r.db.QueryRow(ctx, `
		SELECT `+packColumns+` FROM sticker_packs WHERE id = $1
	`, packID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPackNotFound
		}
		return nil, err
	}
	return pack, nil
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

package profile

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSource loads favorites straight from the catalog tables.
type PostgresSource struct {
	db *pgxpool.Pool
}

func NewPostgresSource(db *pgxpool.Pool) *PostgresSource {
	return &PostgresSource{db: db}
}

func (s *PostgresSource) UserExists(ctx context.Context, userID uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)
	`, userID).Scan(&exists)
	return exists, err
}

func (s *PostgresSource) SavedPacks(ctx context.Context, userID uuid.UUID) ([]*SavedPack, error) {
	rows, err := s.db.Query(ctx, `
		SELECT p.creator_id, p.name, COALESCE(p.description, '')
		FROM sticker_packs p
		JOIN user_pack_saves ups ON p.id = ups.pack_id
		WHERE ups.user_id = $1
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var packs []*SavedPack
	for rows.Next() {
		p := &SavedPack{}
		if err := rows.Scan(&p.CreatorID, &p.Name, &p.Description); err != nil {
			return nil, err
		}
		packs = append(packs, p)
	}
	return packs, rows.Err()
}

func (s *PostgresSource) FavoriteStickers(ctx context.Context, userID uuid.UUID) ([]*FavoriteSticker, error) {
	rows, err := s.db.Query(ctx, `
		SELECT s.tags, s.is_animated, p.creator_id
		FROM stickers s
		JOIN user_favorite_stickers ufs ON s.id = ufs.sticker_id
		JOIN sticker_packs p ON s.pack_id = p.id
		WHERE ufs.user_id = $1
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stickers []*FavoriteSticker
	for rows.Next() {
		fs := &FavoriteSticker{}
		if err := rows.Scan(&fs.Tags, &fs.IsAnimated, &fs.PackCreatorID); err != nil {
			return nil, err
		}
		stickers = append(stickers, fs)
	}
	return stickers, rows.Err()
}

package engagement

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrUnknownField = errors.New("unknown engagement field")

// Field names a pack counter. Values are whitelisted before being spliced
// into SQL.
type Field string

const (
	FieldDownloads Field = "downloads"
	FieldViews     Field = "views"
	FieldFavorites Field = "favorites"
)

var packFields = map[Field]bool{
	FieldDownloads: true,
	FieldViews:     true,
	FieldFavorites: true,
}

// Execer is the slice of pgx both pgxpool.Pool and pgx.Tx satisfy, so the
// store can run inside a caller's transaction.
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// Store is the only mutator of engagement counters. Increments and
// decrements are independent single-field operations; decrement is a no-op
// at zero and never drives a counter negative.
type Store struct {
	db Execer
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// WithTx returns a store bound to tx, for callers that need the counter
// mutation inside their own transaction (e.g. favorites eviction).
func (s *Store) WithTx(tx pgx.Tx) *Store {
	return &Store{db: tx}
}

func (s *Store) IncrementPack(ctx context.Context, packID uuid.UUID, field Field) error {
	if !packFields[field] {
		return ErrUnknownField
	}
	_, err := s.db.Exec(ctx, fmt.Sprintf(`
		UPDATE sticker_packs SET %s = %s + 1 WHERE id = $1
	`, field, field), packID)
	return err
}

func (s *Store) DecrementPack(ctx context.Context, packID uuid.UUID, field Field) error {
	if !packFields[field] {
		return ErrUnknownField
	}
	// Conditional: rows with a zero counter are left untouched.
	_, err := s.db.Exec(ctx, fmt.Sprintf(`
		UPDATE sticker_packs SET %s = %s - 1 WHERE id = $1 AND %s > 0
	`, field, field, field), packID)
	return err
}

func (s *Store) IncrementStickerFavorites(ctx context.Context, stickerID uuid.UUID) error {
	_, err := s.db.Exec(ctx, `
		UPDATE stickers SET favorites = favorites + 1 WHERE id = $1
	`, stickerID)
	return err
}

func (s *Store) DecrementStickerFavorites(ctx context.Context, stickerID uuid.UUID) error {
	_, err := s.db.Exec(ctx, `
		UPDATE stickers SET favorites = favorites - 1 WHERE id = $1 AND favorites > 0
	`, stickerID)
	return err
}

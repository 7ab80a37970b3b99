package favorites

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/user/packhub-back/internal/engagement"
)

// PostgresStore keeps favorites in user_favorite_stickers; seq preserves
// insertion order. Mutations run in a transaction holding a per-user
// advisory lock so eviction and append are one atomic step. Counter
// mutations go through the engagement store, the only sanctioned mutator.
type PostgresStore struct {
	db       *pgxpool.Pool
	counters *engagement.Store
}

func NewPostgresStore(db *pgxpool.Pool, counters *engagement.Store) *PostgresStore {
	return &PostgresStore{db: db, counters: counters}
}

func (s *PostgresStore) WithUserLock(ctx context.Context, userID uuid.UUID, fn func(ops Ops) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1::text, 1))`, userID); err != nil {
		return err
	}
	if err := fn(&pgOps{q: tx, counters: s.counters.WithTx(tx)}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) Ops() Ops {
	return &pgOps{q: s.db, counters: s.counters}
}

// querier is satisfied by both pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgOps struct {
	q        querier
	counters *engagement.Store
}

func (o *pgOps) List(ctx context.Context, userID uuid.UUID) ([]Entry, error) {
	rows, err := o.q.Query(ctx, `
		SELECT sticker_id, added_at FROM user_favorite_stickers
		WHERE user_id = $1 ORDER BY seq
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.StickerID, &e.AddedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (o *pgOps) Append(ctx context.Context, userID, stickerID uuid.UUID) error {
	_, err := o.q.Exec(ctx, `
		INSERT INTO user_favorite_stickers (user_id, sticker_id) VALUES ($1, $2)
	`, userID, stickerID)
	return err
}

func (o *pgOps) Delete(ctx context.Context, userID, stickerID uuid.UUID) (bool, error) {
	tag, err := o.q.Exec(ctx, `
		DELETE FROM user_favorite_stickers WHERE user_id = $1 AND sticker_id = $2
	`, userID, stickerID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (o *pgOps) IncrementFavorites(ctx context.Context, stickerID uuid.UUID) error {
	return o.counters.IncrementStickerFavorites(ctx, stickerID)
}

func (o *pgOps) DecrementFavorites(ctx context.Context, stickerID uuid.UUID) error {
	return o.counters.DecrementStickerFavorites(ctx, stickerID)
}

func (o *pgOps) StickerFavorites(ctx context.Context, stickerID uuid.UUID) (int, error) {
	var favorites int
	err := o.q.QueryRow(ctx, `
		SELECT favorites FROM stickers WHERE id = $1
	`, stickerID).Scan(&favorites)
	return favorites, err
}

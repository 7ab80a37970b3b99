package packs

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/user/packhub-back/internal/models"
)

// Structural operations on a pack's stickers. Positions form a contiguous
// permutation of [0, n) at all times; every operation here runs in a
// transaction holding the per-pack advisory lock, so concurrent structural
// changes to one pack serialize while different packs stay independent.

// NewSticker is the payload for appending a sticker.
type NewSticker struct {
	Name       string
	Emojis     []string
	Tags       []string
	IsAnimated bool
	FileURL    string
	FileType   string
	FileSize   int64
	Width      int
	Height     int
}

// AddSticker appends a sticker at position n. The first sticker pins the
// pack's animated flag; later ones must match it.
func (r *Repository) AddSticker(ctx context.Context, packID uuid.UUID, ns NewSticker) (*models.Sticker, error) {
	if len(ns.Tags) > r.limits.MaxTags {
		return nil, ErrTooManyTags
	}
	if len(ns.Emojis) > r.limits.MaxEmojis {
		return nil, ErrTooManyEmojis
	}

	var sticker *models.Sticker
	err := r.withPackLock(ctx, packID, func(tx pgx.Tx) error {
		var count int
		var packAnimated bool
		err := tx.QueryRow(ctx, `
			SELECT sticker_count, is_animated FROM sticker_packs WHERE id = $1
		`, packID).Scan(&count, &packAnimated)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrPackNotFound
			}
			return err
		}

		if count >= r.limits.MaxStickers {
			return ErrPackFull
		}
		if count > 0 && ns.IsAnimated != packAnimated {
			return ErrAnimatedMismatch
		}

		s := &models.Sticker{}
		err = tx.QueryRow(ctx, `
			INSERT INTO stickers (pack_id, name, emojis, tags, is_animated, file_url, file_type, file_size, width, height, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING `+stickerColumns+`
		`, packID, ns.Name, ns.Emojis, ns.Tags, ns.IsAnimated, ns.FileURL, ns.FileType, ns.FileSize, ns.Width, ns.Height, count).Scan(
			&s.ID, &s.PackID, &s.Name, &s.Emojis, &s.Tags, &s.IsAnimated,
			&s.FileURL, &s.FileType, &s.FileSize, &s.Width, &s.Height,
			&s.Position, &s.Favorites, &s.CreatedAt,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return ErrDuplicateStickerName
			}
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE sticker_packs
			SET sticker_count = $2,
				is_animated = CASE WHEN $3 = 0 THEN $4 ELSE is_animated END,
				cover_url = COALESCE(cover_url, $5),
				updated_at = NOW()
			WHERE id = $1
		`, packID, count+1, count, ns.IsAnimated, ns.FileURL)
		if err != nil {
			return err
		}

		sticker = s
		return nil
	})
	return sticker, err
}

// RemoveSticker deletes a sticker and closes the gap: every sticker past
// the removed position shifts down by one. One transaction, so a partially
// shifted pack is never observable.
func (r *Repository) RemoveSticker(ctx context.Context, packID, stickerID uuid.UUID) error {
	return r.withPackLock(ctx, packID, func(tx pgx.Tx) error {
		var position int
		err := tx.QueryRow(ctx, `
			DELETE FROM stickers WHERE id = $1 AND pack_id = $2 RETURNING position
		`, stickerID, packID).Scan(&position)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrStickerNotFound
			}
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE stickers SET position = position - 1 WHERE pack_id = $1 AND position > $2
		`, packID, position)
		if err != nil {
			return err
		}

		return r.refreshPackMeta(ctx, tx, packID)
	})
}

// RemoveStickers deletes a set of stickers and renumbers the survivors to
// their rank order, which yields the same numbering as removing them one by
// one.
func (r *Repository) RemoveStickers(ctx context.Context, packID uuid.UUID, stickerIDs []uuid.UUID) error {
	ids := dedupe(stickerIDs)
	if len(ids) == 0 {
		return nil
	}

	return r.withPackLock(ctx, packID, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			DELETE FROM stickers WHERE pack_id = $1 AND id = ANY($2)
		`, packID, ids)
		if err != nil {
			return err
		}
		if int(tag.RowsAffected()) != len(ids) {
			return ErrStickerNotFound
		}

		_, err = tx.Exec(ctx, `
			UPDATE stickers s SET position = ranked.rn - 1
			FROM (
				SELECT id, row_number() OVER (ORDER BY position) AS rn
				FROM stickers WHERE pack_id = $1
			) ranked
			WHERE s.id = ranked.id
		`, packID)
		if err != nil {
			return err
		}

		return r.refreshPackMeta(ctx, tx, packID)
	})
}

// MoveSticker moves a sticker to newPosition and renumbers the sequence.
func (r *Repository) MoveSticker(ctx context.Context, packID, stickerID uuid.UUID, newPosition int) error {
	return r.withPackLock(ctx, packID, func(tx pgx.Tx) error {
		ids, err := orderedStickerIDs(ctx, tx, packID)
		if err != nil {
			return err
		}

		current := indexOf(ids, stickerID)
		if current < 0 || newPosition < 0 || newPosition >= len(ids) {
			return ErrInvalidPosition
		}
		if current == newPosition {
			return nil
		}

		return applyOrder(ctx, tx, packID, moveIndex(ids, current, newPosition))
	})
}

// ReorderStickers replaces the pack's ordering with the given sequence,
// which must be exactly a permutation of the current stickers. Partial
// reorders are rejected, never partially applied.
func (r *Repository) ReorderStickers(ctx context.Context, packID uuid.UUID, sequence []uuid.UUID) error {
	return r.withPackLock(ctx, packID, func(tx pgx.Tx) error {
		current, err := orderedStickerIDs(ctx, tx, packID)
		if err != nil {
			return err
		}
		if err := validateReorder(current, sequence); err != nil {
			return err
		}
		return applyOrder(ctx, tx, packID, sequence)
	})
}

// withPackLock runs fn in a transaction holding the pack's advisory lock.
func (r *Repository) withPackLock(ctx context.Context, packID uuid.UUID, fn func(tx pgx.Tx) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))`, packID); err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repository) refreshPackMeta(ctx context.Context, tx pgx.Tx, packID uuid.UUID) error {
	_, err := tx.Exec(ctx, `
		UPDATE sticker_packs p SET
			sticker_count = (SELECT COUNT(*) FROM stickers WHERE pack_id = p.id),
			cover_url = (SELECT file_url FROM stickers WHERE pack_id = p.id ORDER BY position LIMIT 1),
			updated_at = NOW()
		WHERE p.id = $1
	`, packID)
	return err
}

func orderedStickerIDs(ctx context.Context, tx pgx.Tx, packID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := tx.Query(ctx, `
		SELECT id FROM stickers WHERE pack_id = $1 ORDER BY position
	`, packID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// applyOrder renumbers every sticker to its index in sequence.
func applyOrder(ctx context.Context, tx pgx.Tx, packID uuid.UUID, sequence []uuid.UUID) error {
	_, err := tx.Exec(ctx, `
		UPDATE stickers s SET position = u.ord - 1
		FROM unnest($2::uuid[]) WITH ORDINALITY AS u(id, ord)
		WHERE s.id = u.id AND s.pack_id = $1
	`, packID, sequence)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `UPDATE sticker_packs SET updated_at = NOW() WHERE id = $1`, packID)
	return err
}

// moveIndex removes the element at from and reinserts it at to; the result
// is the new position order.
func moveIndex(ids []uuid.UUID, from, to int) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	out = append(out, ids[:from]...)
	out = append(out, ids[from+1:]...)
	out = append(out[:to], append([]uuid.UUID{ids[from]}, out[to:]...)...)
	return out
}

// validateReorder checks that proposed is exactly a permutation of current:
// same size, same membership, no duplicates.
func validateReorder(current, proposed []uuid.UUID) error {
	if len(proposed) != len(current) {
		return ErrIncompleteSet
	}
	members := make(map[uuid.UUID]struct{}, len(current))
	for _, id := range current {
		members[id] = struct{}{}
	}
	seen := make(map[uuid.UUID]struct{}, len(proposed))
	for _, id := range proposed {
		if _, ok := members[id]; !ok {
			return ErrIncompleteSet
		}
		if _, dup := seen[id]; dup {
			return ErrIncompleteSet
		}
		seen[id] = struct{}{}
	}
	return nil
}

func indexOf(ids []uuid.UUID, id uuid.UUID) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

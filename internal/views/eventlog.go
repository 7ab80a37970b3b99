package views

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresEventLog stores view events in pack_view_events.
type PostgresEventLog struct {
	db *pgxpool.Pool
}

func NewPostgresEventLog(db *pgxpool.Pool) *PostgresEventLog {
	return &PostgresEventLog{db: db}
}

func (l *PostgresEventLog) RecordIfAbsent(ctx context.Context, packID, userID uuid.UUID, at, since time.Time) (bool, error) {
	// Single statement: under concurrent identical requests a rare double
	// count is possible, but a legitimate first view is never skipped.
	tag, err := l.db.Exec(ctx, `
		INSERT INTO pack_view_events (pack_id, user_id, viewed_at)
		SELECT $1, $2, $3
		WHERE NOT EXISTS (
			SELECT 1 FROM pack_view_events
			WHERE pack_id = $1 AND user_id = $2 AND viewed_at >= $4
		)
	`, packID, userID, at, since)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (l *PostgresEventLog) RecentlyViewed(ctx context.Context, packIDs []uuid.UUID, userID uuid.UUID, since time.Time) (map[uuid.UUID]bool, error) {
	rows, err := l.db.Query(ctx, `
		SELECT DISTINCT pack_id FROM pack_view_events
		WHERE pack_id = ANY($1) AND user_id = $2 AND viewed_at >= $3
	`, packIDs, userID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seen := make(map[uuid.UUID]bool, len(packIDs))
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		seen[id] = true
	}
	return seen, rows.Err()
}

func (l *PostgresEventLog) RecordAnonymous(ctx context.Context, packID uuid.UUID, at time.Time) error {
	_, err := l.db.Exec(ctx, `
		INSERT INTO pack_view_events (pack_id, viewed_at) VALUES ($1, $2)
	`, packID, at)
	return err
}

func (l *PostgresEventLog) RecordBatch(ctx context.Context, packIDs []uuid.UUID, userID uuid.UUID, at time.Time) error {
	rows := make([][]any, len(packIDs))
	for i, id := range packIDs {
		rows[i] = []any{id, userID, at}
	}
	_, err := l.db.CopyFrom(ctx,
		pgx.Identifier{"pack_view_events"},
		[]string{"pack_id", "user_id", "viewed_at"},
		pgx.CopyFromRows(rows),
	)
	return err
}

package engagement

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingExecer struct {
	queries []string
	args    [][]any
}

func (r *recordingExecer) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	r.queries = append(r.queries, sql)
	r.args = append(r.args, arguments)
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

func TestIncrementPackRejectsUnknownField(t *testing.T) {
	s := &Store{db: &recordingExecer{}}

	err := s.IncrementPack(context.Background(), uuid.New(), Field("id; DROP TABLE sticker_packs"))
	assert.ErrorIs(t, err, ErrUnknownField)

	err = s.DecrementPack(context.Background(), uuid.New(), Field("name"))
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestIncrementPackKnownFields(t *testing.T) {
	for _, field := range []Field{FieldDownloads, FieldViews, FieldFavorites} {
		exec := &recordingExecer{}
		s := &Store{db: exec}

		require.NoError(t, s.IncrementPack(context.Background(), uuid.New(), field))
		require.Len(t, exec.queries, 1)
		assert.Contains(t, exec.queries[0], string(field)+" = "+string(field)+" + 1")
	}
}

func TestDecrementPackGuardsZero(t *testing.T) {
	exec := &recordingExecer{}
	s := &Store{db: exec}

	require.NoError(t, s.DecrementPack(context.Background(), uuid.New(), FieldViews))
	require.Len(t, exec.queries, 1)
	assert.Contains(t, exec.queries[0], "views > 0")
}

func TestDecrementStickerFavoritesGuardsZero(t *testing.T) {
	exec := &recordingExecer{}
	s := &Store{db: exec}

	require.NoError(t, s.DecrementStickerFavorites(context.Background(), uuid.New()))
	require.Len(t, exec.queries, 1)
	assert.Contains(t, exec.queries[0], "favorites > 0")
}

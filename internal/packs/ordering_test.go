package packs

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeIDs(n int) []uuid.UUID {
	ids := make([]uuid.UUID, n)
	for i := range ids {
		ids[i] = uuid.New()
	}
	return ids
}

func TestMoveIndexToFront(t *testing.T) {
	ids := makeIDs(3)

	got := moveIndex(ids, 2, 0)
	assert.Equal(t, []uuid.UUID{ids[2], ids[0], ids[1]}, got)
}

func TestMoveIndexToBack(t *testing.T) {
	ids := makeIDs(4)

	got := moveIndex(ids, 0, 3)
	assert.Equal(t, []uuid.UUID{ids[1], ids[2], ids[3], ids[0]}, got)
}

func TestMoveIndexMiddle(t *testing.T) {
	ids := makeIDs(5)

	got := moveIndex(ids, 1, 3)
	assert.Equal(t, []uuid.UUID{ids[0], ids[2], ids[3], ids[1], ids[4]}, got)
}

func TestMoveIndexDoesNotMutateInput(t *testing.T) {
	ids := makeIDs(4)
	original := append([]uuid.UUID(nil), ids...)

	moveIndex(ids, 0, 2)
	assert.Equal(t, original, ids)
}

func TestMoveIndexIsPermutation(t *testing.T) {
	ids := makeIDs(6)

	got := moveIndex(ids, 4, 1)
	require.Len(t, got, len(ids))
	seen := make(map[uuid.UUID]bool)
	for _, id := range got {
		assert.False(t, seen[id])
		seen[id] = true
	}
	for _, id := range ids {
		assert.True(t, seen[id])
	}
}

func TestValidateReorderAccepts(t *testing.T) {
	ids := makeIDs(3)
	proposed := []uuid.UUID{ids[2], ids[0], ids[1]}

	assert.NoError(t, validateReorder(ids, proposed))
}

func TestValidateReorderRejectsMissing(t *testing.T) {
	ids := makeIDs(3)

	err := validateReorder(ids, ids[:2])
	assert.ErrorIs(t, err, ErrIncompleteSet)
}

func TestValidateReorderRejectsDuplicate(t *testing.T) {
	ids := makeIDs(3)
	proposed := []uuid.UUID{ids[0], ids[1], ids[1]}

	err := validateReorder(ids, proposed)
	assert.ErrorIs(t, err, ErrIncompleteSet)
}

func TestValidateReorderRejectsForeignSticker(t *testing.T) {
	ids := makeIDs(3)
	proposed := []uuid.UUID{ids[0], ids[1], uuid.New()}

	err := validateReorder(ids, proposed)
	assert.ErrorIs(t, err, ErrIncompleteSet)
}

func TestValidateReorderRejectsSuperset(t *testing.T) {
	ids := makeIDs(2)
	proposed := []uuid.UUID{ids[0], ids[1], uuid.New()}

	err := validateReorder(ids, proposed)
	assert.ErrorIs(t, err, ErrIncompleteSet)
}

func TestValidateReorderEmpty(t *testing.T) {
	assert.NoError(t, validateReorder(nil, nil))
}

func TestIndexOf(t *testing.T) {
	ids := makeIDs(3)

	assert.Equal(t, 1, indexOf(ids, ids[1]))
	assert.Equal(t, -1, indexOf(ids, uuid.New()))
}

func TestDedupePreservesOrder(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	got := dedupe([]uuid.UUID{a, b, a, b, a})
	assert.Equal(t, []uuid.UUID{a, b}, got)
}

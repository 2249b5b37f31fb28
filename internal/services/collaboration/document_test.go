package collaboration

import (
	"errors"
	"testing"

	"quantum-collab/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func insert(pos int, content string) models.Edit {
	return models.Edit{Operation: models.EditInsert, Position: pos, Content: content, AuthorID: "u1"}
}

func deletion(pos int, content string) models.Edit {
	return models.Edit{Operation: models.EditDelete, Position: pos, Content: content, AuthorID: "u1"}
}

func TestDocumentStoreNewProject(t *testing.T) {
	store := NewDocumentStore()
	assert.False(t, store.Has("p1"))

	state := store.GetOrCreate("p1")
	assert.Equal(t, "", state.Content)
	assert.Equal(t, 0, state.Version)
	assert.Empty(t, state.Edits)
	assert.True(t, store.Has("p1"))
}

func TestTryApplyEdit(t *testing.T) {
	store := NewDocumentStore()

	v, err := store.TryApplyEdit("p1", insert(0, "H q0;"), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	v, err = store.TryApplyEdit("p1", insert(5, " CX q0,q1;"), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	v, err = store.TryApplyEdit("p1", deletion(0, "H q0;"), 2)
	require.NoError(t, err)
	assert.Equal(t, 3, v)

	state := store.GetOrCreate("p1")
	assert.Equal(t, " CX q0,q1;", state.Content)
	assert.Equal(t, 3, state.Version)
	assert.Len(t, state.Edits, 3)
}

func TestTryApplyEditStaleVersion(t *testing.T) {
	store := NewDocumentStore()
	_, err := store.TryApplyEdit("p1", insert(0, "X"), 0)
	require.NoError(t, err)

	v, err := store.TryApplyEdit("p1", insert(0, "Y"), 0)
	var syncErr *SyncRequiredError
	require.True(t, errors.As(err, &syncErr))
	assert.Equal(t, 1, v)
	assert.Equal(t, 1, syncErr.CurrentVersion)
	assert.Equal(t, models.DocumentSnapshot{Content: "X", Version: 1}, syncErr.State)

	// a version from the future is just as stale
	_, err = store.TryApplyEdit("p1", insert(0, "Y"), 7)
	require.True(t, errors.As(err, &syncErr))

	assert.Equal(t, models.DocumentSnapshot{Content: "X", Version: 1}, store.Snapshot("p1"))
}

func TestTryApplyEditRejections(t *testing.T) {
	tests := []struct {
		name string
		edit models.Edit
		want error
	}{
		{"replace", models.Edit{Operation: models.EditReplace, Position: 0, Content: "Z"}, ErrUnsupportedOperation},
		{"replace out of range", models.Edit{Operation: models.EditReplace, Position: 99, Content: "Z"}, ErrUnsupportedOperation},
		{"unknown operation", models.Edit{Operation: "rotate", Position: 0}, ErrUnsupportedOperation},
		{"negative position", insert(-1, "Z"), ErrInvalidPosition},
		{"insert past end", insert(4, "Z"), ErrInvalidPosition},
		{"delete past end", deletion(2, "abc"), ErrInvalidPosition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewDocumentStore()
			_, err := store.TryApplyEdit("p1", insert(0, "abc"), 0)
			require.NoError(t, err)

			v, err := store.TryApplyEdit("p1", tt.edit, 1)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, 1, v)
			assert.Equal(t, models.DocumentSnapshot{Content: "abc", Version: 1}, store.Snapshot("p1"))
		})
	}
}

func TestTryApplyEditAtBoundaries(t *testing.T) {
	store := NewDocumentStore()
	_, err := store.TryApplyEdit("p1", insert(0, "ab"), 0)
	require.NoError(t, err)

	_, err = store.TryApplyEdit("p1", insert(2, "c"), 1)
	require.NoError(t, err, "inserting at the end is allowed")

	_, err = store.TryApplyEdit("p1", deletion(0, "abc"), 2)
	require.NoError(t, err, "deleting the whole buffer is allowed")

	assert.Equal(t, "", store.Snapshot("p1").Content)
}

func TestTryApplyEditCountsRunes(t *testing.T) {
	store := NewDocumentStore()
	_, err := store.TryApplyEdit("p1", insert(0, "|0⟩|1⟩"), 0)
	require.NoError(t, err)

	_, err = store.TryApplyEdit("p1", insert(3, "ψ"), 1)
	require.NoError(t, err)
	assert.Equal(t, "|0⟩ψ|1⟩", store.Snapshot("p1").Content)

	_, err = store.TryApplyEdit("p1", deletion(3, "ψ"), 2)
	require.NoError(t, err)
	assert.Equal(t, "|0⟩|1⟩", store.Snapshot("p1").Content)
}

func TestProjectsAreIndependent(t *testing.T) {
	store := NewDocumentStore()
	_, err := store.TryApplyEdit("p1", insert(0, "one"), 0)
	require.NoError(t, err)
	_, err = store.TryApplyEdit("p2", insert(0, "two"), 0)
	require.NoError(t, err)

	assert.Equal(t, "one", store.Snapshot("p1").Content)
	assert.Equal(t, "two", store.Snapshot("p2").Content)
	assert.ElementsMatch(t, []string{"p1", "p2"}, store.Projects())
}

func TestSeed(t *testing.T) {
	store := NewDocumentStore()

	_, err := store.Seed(models.DocumentState{ProjectID: "p1", Content: "x", Version: 2, Edits: []models.Edit{insert(0, "x")}})
	assert.Error(t, err)
	assert.False(t, store.Has("p1"))

	seeded, err := store.Seed(models.DocumentState{ProjectID: "p1", Content: "x", Version: 1, Edits: []models.Edit{insert(0, "x")}})
	require.NoError(t, err)
	assert.True(t, seeded)
	assert.Equal(t, models.DocumentSnapshot{Content: "x", Version: 1}, store.Snapshot("p1"))

	// live state wins over a late seed
	seeded, err = store.Seed(models.DocumentState{ProjectID: "p1"})
	require.NoError(t, err)
	assert.False(t, seeded)
	assert.Equal(t, 1, store.Snapshot("p1").Version)

	v, err := store.TryApplyEdit("p1", insert(1, "y"), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestEditsSince(t *testing.T) {
	store := NewDocumentStore()

	snap, edits := store.EditsSince("missing", 0)
	assert.Equal(t, models.DocumentSnapshot{}, snap)
	assert.Nil(t, edits)

	for i, c := range []string{"a", "b", "c"} {
		_, err := store.TryApplyEdit("p1", insert(i, c), i)
		require.NoError(t, err)
	}

	snap, edits = store.EditsSince("p1", 1)
	assert.Equal(t, models.DocumentSnapshot{Content: "abc", Version: 3}, snap)
	require.Len(t, edits, 2)
	assert.Equal(t, "b", edits[0].Content)
	assert.Equal(t, "c", edits[1].Content)

	_, edits = store.EditsSince("p1", 3)
	assert.Empty(t, edits)

	_, edits = store.EditsSince("p1", -5)
	assert.Len(t, edits, 3)
}

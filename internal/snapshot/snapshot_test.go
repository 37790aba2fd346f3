package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/traceguide/internal/model"
)

func TestIndexRoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "build", "spec-index.json")

	idx := &model.Index{
		Items:        []model.Item{{ID: "REQ-F-001", Title: "Login", Source: "a.md", References: []string{}, Fingerprint: "abc"}},
		DuplicateIDs: []string{},
	}
	require.NoError(t, WriteIndex(path, idx))

	got, err := ReadIndex(path)
	require.NoError(t, err)
	assert.Equal(t, idx, got)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")
}

func TestEmptyListsSerializeAsArrays(t *testing.T) {
	t.Parallel()

	data, err := Marshal(&model.Index{Items: []model.Item{}, DuplicateIDs: []string{}})
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"items\": [],\n  \"duplicateIds\": []\n}\n", string(data))
}

func TestReadMissing(t *testing.T) {
	t.Parallel()

	_, err := ReadGraph(filepath.Join(t.TempDir(), "traceability.json"))
	assert.ErrorIs(t, err, ErrMissing)
}

func TestReadMalformed(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "traceability.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := ReadGraph(path)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMissing)
}

func TestWriteOverwrites(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "out.json")

	require.NoError(t, WriteFileAtomic(path, []byte("one")))
	require.NoError(t, WriteFileAtomic(path, []byte("two")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))
}

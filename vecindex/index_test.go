package vecindex

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/recall/canon"
	"github.com/poiesic/recall/core"
)

// writeHeader writes an index file containing only a header, with the
// given dimension and row count.
func writeHeader(t *testing.T, dim, count int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "crafted.vri")

	bs := make([]byte, 64)
	n := raw.Byte.Marshal(formatVersion, bs)
	n += ord.String.Marshal("fnv1a-3", bs[n:])
	n += varint.Int.Marshal(dim, bs[n:])
	n += varint.Int.Marshal(count, bs[n:])
	require.NoError(t, os.WriteFile(path, bs[:n], 0o644))
	return path
}

func testRow(id core.ID, content string, chunk byte) Row {
	return Row{
		RecordID:    id,
		ContentHash: canon.ContentHash(content),
		RoleCode:    core.RoleUser,
		ChunkIdx:    chunk,
		Embedding:   []float32{0.1, 0.2, 0.3},
	}
}

func testIndex() *Index {
	idx := New("fnv1a-3", 3)
	idx.Rows = []Row{
		testRow(1, "first message", 0),
		testRow(2, "second message", 0),
		testRow(2, "second message", 1),
	}
	return idx
}

func TestPath(t *testing.T) {
	assert.Equal(t,
		filepath.Join("idx", "vector_index", "index-fnv1a-384.vri"),
		Path("idx", "fnv1a-384"))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := Path(t.TempDir(), "fnv1a-3")
	idx := testIndex()

	require.NoError(t, Save(idx, path))
	require.True(t, Exists(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, idx.EmbedderID, loaded.EmbedderID)
	assert.Equal(t, idx.Dimension, loaded.Dimension)
	assert.Equal(t, idx.Rows, loaded.Rows)
}

func TestSaveEmptyIndex(t *testing.T) {
	path := Path(t.TempDir(), "fnv1a-384")

	require.NoError(t, Save(New("fnv1a-384", 384), path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, loaded.Rows)
	assert.Equal(t, 384, loaded.Dimension)
}

func TestSaveRejectsDimensionMismatch(t *testing.T) {
	path := Path(t.TempDir(), "fnv1a-3")
	idx := New("fnv1a-3", 3)
	idx.Rows = []Row{{RecordID: 1, Embedding: []float32{0.1}}}

	assert.Error(t, Save(idx, path))
	assert.False(t, Exists(path))
}

func TestSaveOverwritesAtomically(t *testing.T) {
	path := Path(t.TempDir(), "fnv1a-3")
	require.NoError(t, Save(testIndex(), path))

	replacement := New("fnv1a-3", 3)
	replacement.Rows = []Row{testRow(9, "only row", 0)}
	require.NoError(t, Save(replacement, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Len(t, loaded.Rows, 1)
	assert.Equal(t, core.ID(9), loaded.Rows[0].RecordID)

	// No temp file left behind.
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.vri"))
	assert.Error(t, err)
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.vri")
	require.NoError(t, os.WriteFile(path, []byte{formatVersion, 0xFF, 0xFF}, 0o644))

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestLoadUnsupportedVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "future.vri")
	require.NoError(t, os.WriteFile(path, []byte{formatVersion + 1}, 0o644))

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestLoadTruncatedFile(t *testing.T) {
	path := Path(t.TempDir(), "fnv1a-3")
	require.NoError(t, Save(testIndex(), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data[:len(data)-5], 0o644))

	_, err = Load(path)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestLoadRejectsOversizedRowCount(t *testing.T) {
	// A corrupt header must not drive the row allocation.
	path := writeHeader(t, 3, 1<<60)

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrCorrupt)
	assert.Empty(t, LoadRows(path))
	assert.Empty(t, LoadHashes(path))
}

func TestLoadRejectsOversizedDimension(t *testing.T) {
	path := writeHeader(t, 1<<40, 1)

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrCorrupt)
	assert.Empty(t, LoadRows(path))
}

func TestLoadHashes(t *testing.T) {
	path := Path(t.TempDir(), "fnv1a-3")
	require.NoError(t, Save(testIndex(), path))

	hashes := LoadHashes(path)
	require.Len(t, hashes, 2)
	assert.Equal(t, canon.ContentHash("first message"), hashes[1])
	assert.Equal(t, canon.ContentHash("second message"), hashes[2])
}

func TestLoadHashesMissingFile(t *testing.T) {
	hashes := LoadHashes(filepath.Join(t.TempDir(), "nope.vri"))
	assert.NotNil(t, hashes)
	assert.Empty(t, hashes)
}

func TestLoadHashesCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.vri")
	require.NoError(t, os.WriteFile(path, []byte("not an index"), 0o644))

	assert.Empty(t, LoadHashes(path))
}

func TestLoadRows(t *testing.T) {
	path := Path(t.TempDir(), "fnv1a-3")
	require.NoError(t, Save(testIndex(), path))

	rows := LoadRows(path)
	require.Len(t, rows, 2)
	assert.Len(t, rows[1], 1)
	assert.Len(t, rows[2], 2)
	assert.Equal(t, byte(1), rows[2][1].ChunkIdx)
}

package history

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openWithLegacy writes a legacy JSON dump next to a fresh database path and
// opens the store over it.
func openWithLegacy(t *testing.T, legacyJSON string) *Store {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "upload_history.json"), []byte(legacyJSON), 0o600))

	s, err := NewStore(filepath.Join(dir, "uploads.db"), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func TestLegacyMigration_TinyDBShape(t *testing.T) {
	s := openWithLegacy(t, `{
		"uploads": {
			"1": {"file_path": "/v/a.mp4", "file_hash": "hash-a", "video_id": "vid-1", "timestamp": 1700000000, "file_size": 100},
			"2": {"file_path": "/v/b.mp4", "file_hash": "hash-b", "error": "HTTP 500", "timestamp": 1700000100}
		}
	}`)

	ctx := context.Background()

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// Status is inferred from the presence of a video id.
	rec, err := s.GetByHash(ctx, "hash-a")
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, rec.Status)

	rec, err = s.GetByHash(ctx, "hash-b")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, rec.Status)
	assert.Equal(t, "HTTP 500", rec.Error)
}

func TestLegacyMigration_DefaultTableShape(t *testing.T) {
	s := openWithLegacy(t, `{
		"_default": {
			"1": {"file_path": "/v/a.mp4", "file_hash": "hash-a", "video_id": "vid-1", "timestamp": 1700000000}
		}
	}`)

	count, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestLegacyMigration_BareList(t *testing.T) {
	s := openWithLegacy(t, `[
		{"file_path": "/v/a.mp4", "file_hash": "hash-a", "video_id": "vid-1", "timestamp": 1700000000}
	]`)

	count, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestLegacyMigration_SkipsEmptyFile(t *testing.T) {
	s := openWithLegacy(t, `{}`)

	count, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestLegacyMigration_SkipsHashlessRecords(t *testing.T) {
	s := openWithLegacy(t, `{
		"uploads": {
			"1": {"file_path": "/v/a.mp4", "video_id": "vid-1", "timestamp": 1700000000},
			"2": {"file_path": "/v/b.mp4", "file_hash": "hash-b", "video_id": "vid-2", "timestamp": 1700000000}
		}
	}`)

	count, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestLegacyMigration_OneShot(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "uploads.db")
	jsonPath := filepath.Join(dir, "upload_history.json")

	require.NoError(t, os.WriteFile(jsonPath, []byte(`{
		"uploads": {"1": {"file_path": "/v/a.mp4", "file_hash": "hash-a", "video_id": "vid-1", "timestamp": 1700000000}}
	}`), 0o600))

	ctx := context.Background()

	s, err := NewStore(dbPath, testLogger())
	require.NoError(t, err)

	// The ledger has rows now; delete the migrated one and reopen. A second
	// migration pass must not resurrect it from the JSON file.
	deleted, err := s.DeleteByHash(ctx, "hash-a")
	require.NoError(t, err)
	require.True(t, deleted)

	require.NoError(t, s.RecordSuccess(ctx, "/v/other.mp4", "hash-x", "vid-x", "", "", 1))
	require.NoError(t, s.Close())

	s2, err := NewStore(dbPath, testLogger())
	require.NoError(t, err)
	defer s2.Close()

	rec, err := s2.GetByHash(ctx, "hash-a")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

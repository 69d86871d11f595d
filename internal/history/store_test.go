package history

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testLogger returns a logger that discards output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestStore opens an in-memory ledger.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := NewStore(":memory:", testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func TestRecordSuccess_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.RecordSuccess(ctx, "/videos/trip/a.mp4", "hash-a", "vid-1", `{"t":"a"}`, "trip", 4096)
	require.NoError(t, err)

	rec, err := s.GetByHash(ctx, "hash-a")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "/videos/trip/a.mp4", rec.FilePath)
	assert.Equal(t, "vid-1", rec.VideoID)
	assert.Equal(t, StatusSuccess, rec.Status)
	assert.Equal(t, "trip", rec.PlaylistName)
	assert.Equal(t, int64(4096), rec.FileSize)
	assert.Empty(t, rec.Error)
	assert.NotZero(t, rec.Timestamp)
}

func TestRecordFailure_ThenSuccess(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordFailure(ctx, "/v/a.mp4", "hash-a", "HTTP 503", "pl", 10))

	rec, err := s.GetByHash(ctx, "hash-a")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, rec.Status)
	assert.Equal(t, "HTTP 503", rec.Error)
	assert.Empty(t, rec.VideoID)

	// A later success replaces the failure row and clears the error.
	require.NoError(t, s.RecordSuccess(ctx, "/v/a.mp4", "hash-a", "vid-1", "", "pl", 10))

	rec, err = s.GetByHash(ctx, "hash-a")
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, rec.Status)
	assert.Empty(t, rec.Error)
	assert.Equal(t, "vid-1", rec.VideoID)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestUpsert_TimestampNeverMovesBackwards(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now().Unix()

	require.NoError(t, s.Upsert(ctx, &UploadRecord{
		FilePath: "/v/a.mp4", FileHash: "hash-a", VideoID: "vid-1",
		Timestamp: now, Status: StatusSuccess,
	}))

	// Re-importing an older dump must not rewind the row's time.
	require.NoError(t, s.Upsert(ctx, &UploadRecord{
		FilePath: "/v/a.mp4", FileHash: "hash-a", VideoID: "vid-1",
		Timestamp: now - 3600, Status: StatusSuccess,
	}))

	rec, err := s.GetByHash(ctx, "hash-a")
	require.NoError(t, err)
	assert.Equal(t, now, rec.Timestamp)
}

func TestIsUploaded(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	uploaded, err := s.IsUploaded(ctx, "hash-a")
	require.NoError(t, err)
	assert.False(t, uploaded)

	require.NoError(t, s.RecordFailure(ctx, "/v/a.mp4", "hash-a", "oops", "", 10))

	// A failure row does not count as uploaded.
	uploaded, err = s.IsUploaded(ctx, "hash-a")
	require.NoError(t, err)
	assert.False(t, uploaded)

	require.NoError(t, s.RecordSuccess(ctx, "/v/a.mp4", "hash-a", "vid-1", "", "", 10))

	uploaded, err = s.IsUploaded(ctx, "hash-a")
	require.NoError(t, err)
	assert.True(t, uploaded)
}

func TestIsUploadedByPath(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordSuccess(ctx, "/v/a.mp4", "hash-a", "vid-1", "", "", 10))

	uploaded, err := s.IsUploadedByPath(ctx, "/v/a.mp4")
	require.NoError(t, err)
	assert.True(t, uploaded)

	uploaded, err = s.IsUploadedByPath(ctx, "/v/renamed.mp4")
	require.NoError(t, err)
	assert.False(t, uploaded)
}

func TestAll_NewestFirstWithLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now().Unix()
	for i, hash := range []string{"h1", "h2", "h3"} {
		require.NoError(t, s.Upsert(ctx, &UploadRecord{
			FilePath: "/v/" + hash + ".mp4", FileHash: hash,
			Timestamp: base + int64(i), Status: StatusSuccess,
		}))
	}

	recs, err := s.All(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "h3", recs[0].FileHash)
	assert.Equal(t, "h1", recs[2].FileHash)

	limited, err := s.All(ctx, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "h3", limited[0].FileHash)
}

func TestFailedAndAllSuccess(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordSuccess(ctx, "/v/ok.mp4", "h-ok", "vid-1", "", "", 1))
	require.NoError(t, s.RecordFailure(ctx, "/v/bad.mp4", "h-bad", "boom", "", 1))

	failed, err := s.Failed(ctx)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "h-bad", failed[0].FileHash)

	success, err := s.AllSuccess(ctx)
	require.NoError(t, err)
	require.Len(t, success, 1)
	assert.Equal(t, "h-ok", success[0].FileHash)
}

func TestCountSuccessSince(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now().Unix()

	require.NoError(t, s.Upsert(ctx, &UploadRecord{FileHash: "h-old", FilePath: "/v/old.mp4", Timestamp: now - 7200, Status: StatusSuccess}))
	require.NoError(t, s.Upsert(ctx, &UploadRecord{FileHash: "h-new", FilePath: "/v/new.mp4", Timestamp: now, Status: StatusSuccess}))
	require.NoError(t, s.Upsert(ctx, &UploadRecord{FileHash: "h-fail", FilePath: "/v/fail.mp4", Timestamp: now, Status: StatusFailed}))

	count, err := s.CountSuccessSince(ctx, now-3600)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordSuccess(ctx, "/v/a.mp4", "hash-a", "vid-1", "", "", 1))

	deleted, err := s.DeleteByVideoID(ctx, "vid-1")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = s.DeleteByVideoID(ctx, "vid-1")
	require.NoError(t, err)
	assert.False(t, deleted)

	require.NoError(t, s.RecordSuccess(ctx, "/v/b.mp4", "hash-b", "vid-2", "", "", 1))

	deleted, err = s.DeleteByHash(ctx, "hash-b")
	require.NoError(t, err)
	assert.True(t, deleted)

	require.NoError(t, s.RecordSuccess(ctx, "/v/c.mp4", "hash-c", "vid-3", "", "", 1))

	deleted, err = s.DeleteByPath(ctx, "/v/c.mp4")
	require.NoError(t, err)
	assert.True(t, deleted)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestGetByVideoID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordSuccess(ctx, "/v/a.mp4", "hash-a", "vid-1", "", "", 1))

	rec, err := s.GetByVideoID(ctx, "vid-1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "hash-a", rec.FileHash)

	rec, err = s.GetByVideoID(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestNewStore_PersistsAcrossReopens(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "uploads.db")
	ctx := context.Background()

	s, err := NewStore(dbPath, testLogger())
	require.NoError(t, err)
	require.NoError(t, s.RecordSuccess(ctx, "/v/a.mp4", "hash-a", "vid-1", "", "", 1))
	require.NoError(t, s.Close())

	s2, err := NewStore(dbPath, testLogger())
	require.NoError(t, err)
	defer s2.Close()

	uploaded, err := s2.IsUploaded(ctx, "hash-a")
	require.NoError(t, err)
	assert.True(t, uploaded)
}

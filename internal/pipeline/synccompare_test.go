package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bulktube/bulktube/internal/youtube"
)

type fakeRemote struct {
	uploadsID  string
	uploadsErr error
	items      []youtube.PlaylistItem
	itemsErr   error
}

func (r *fakeRemote) UploadsPlaylistID(context.Context) (string, error) {
	return r.uploadsID, r.uploadsErr
}

func (r *fakeRemote) ListPlaylistItems(_ context.Context, playlistID string) ([]youtube.PlaylistItem, error) {
	if r.itemsErr != nil {
		return nil, r.itemsErr
	}

	if playlistID != r.uploadsID {
		return nil, nil
	}

	return r.items, nil
}

func TestCompare_Partitions(t *testing.T) {
	ctx := context.Background()

	ledger := newTestLedger(t)
	require.NoError(t, ledger.RecordSuccess(ctx, "/videos/a.mp4", "hash-a", "vid-a", "", "Trip", 1))
	require.NoError(t, ledger.RecordSuccess(ctx, "/videos/b.mp4", "hash-b", "vid-b", "", "Trip", 1))
	require.NoError(t, ledger.RecordFailure(ctx, "/videos/c.mp4", "hash-c", "connection reset", "Trip", 1))

	remote := &fakeRemote{
		uploadsID: "UUchan",
		items: []youtube.PlaylistItem{
			{ID: "pi-1", VideoID: "vid-a", Title: "a"},
			{ID: "pi-2", VideoID: "vid-stranger", Title: "uploaded elsewhere"},
		},
	}

	c := NewSyncComparer(remote, ledger, testLogger())

	report, err := c.Compare(ctx)
	require.NoError(t, err)

	require.Len(t, report.InBoth, 1)
	assert.Equal(t, "vid-a", report.InBoth[0].VideoID)

	require.Len(t, report.MissingRemote, 1)
	assert.Equal(t, "vid-b", report.MissingRemote[0].VideoID)

	require.Len(t, report.RemoteOnly, 1)
	assert.Equal(t, "vid-stranger", report.RemoteOnly[0].VideoID)
}

func TestCompare_EmptyLedger(t *testing.T) {
	remote := &fakeRemote{
		uploadsID: "UUchan",
		items:     []youtube.PlaylistItem{{ID: "pi-1", VideoID: "vid-x"}},
	}

	c := NewSyncComparer(remote, newTestLedger(t), testLogger())

	report, err := c.Compare(context.Background())
	require.NoError(t, err)

	assert.Empty(t, report.InBoth)
	assert.Empty(t, report.MissingRemote)
	assert.Len(t, report.RemoteOnly, 1)
}

func TestCompare_RemoteErrors(t *testing.T) {
	ledger := newTestLedger(t)

	c := NewSyncComparer(&fakeRemote{uploadsErr: youtube.ErrSignupRequired}, ledger, testLogger())
	_, err := c.Compare(context.Background())
	assert.ErrorIs(t, err, youtube.ErrSignupRequired)

	c = NewSyncComparer(&fakeRemote{uploadsID: "UUchan", itemsErr: errors.New("boom")}, ledger, testLogger())
	_, err = c.Compare(context.Background())
	assert.Error(t, err)
}

func TestFixMissingRemote(t *testing.T) {
	ctx := context.Background()

	ledger := newTestLedger(t)
	require.NoError(t, ledger.RecordSuccess(ctx, "/videos/a.mp4", "hash-a", "vid-a", "", "Trip", 1))
	require.NoError(t, ledger.RecordSuccess(ctx, "/videos/b.mp4", "hash-b", "vid-b", "", "Trip", 1))

	remote := &fakeRemote{uploadsID: "UUchan", items: []youtube.PlaylistItem{{ID: "pi-1", VideoID: "vid-a"}}}
	c := NewSyncComparer(remote, ledger, testLogger())

	report, err := c.Compare(ctx)
	require.NoError(t, err)
	require.Len(t, report.MissingRemote, 1)

	deleted, failed := c.FixMissingRemote(ctx, report.MissingRemote)
	assert.Equal(t, 1, deleted)
	assert.Zero(t, failed)

	// The file is uploadable again.
	uploaded, err := ledger.IsUploaded(ctx, "hash-b")
	require.NoError(t, err)
	assert.False(t, uploaded)

	// Fixing an already-fixed set deletes nothing.
	deleted, failed = c.FixMissingRemote(ctx, report.MissingRemote)
	assert.Zero(t, deleted)
	assert.Zero(t, failed)
}

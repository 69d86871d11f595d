package pipeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bulktube/bulktube/internal/history"
)

// seedSuccess inserts a success row with the given timestamp.
func seedSuccess(t *testing.T, ledger *history.Store, n int, ts time.Time) {
	t.Helper()

	for i := range n {
		require.NoError(t, ledger.Upsert(context.Background(), &history.UploadRecord{
			FilePath:  fmt.Sprintf("/videos/%d-%d.mp4", ts.Unix(), i),
			FileHash:  fmt.Sprintf("hash-%d-%d", ts.Unix(), i),
			VideoID:   fmt.Sprintf("vid-%d-%d", ts.Unix(), i),
			Timestamp: ts.Unix(),
			Status:    history.StatusSuccess,
		}))
	}
}

func TestEstimate_Verdicts(t *testing.T) {
	noon := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		usedToday     int
		dailyLimit    int
		batch         int
		wantVerdict   Verdict
		wantRemaining int
		wantMax       int
	}{
		{
			name:          "empty day fits everything",
			usedToday:     0,
			dailyLimit:    10000,
			batch:         6,
			wantVerdict:   VerdictOK,
			wantRemaining: 10000,
			wantMax:       6,
		},
		{
			name:          "partial day still fits",
			usedToday:     2,
			dailyLimit:    10000,
			batch:         4,
			wantVerdict:   VerdictOK,
			wantRemaining: 6800,
			wantMax:       4,
		},
		{
			name:          "batch larger than remainder",
			usedToday:     4,
			dailyLimit:    10000,
			batch:         5,
			wantVerdict:   VerdictWarn,
			wantRemaining: 3600,
			wantMax:       2,
		},
		{
			name:          "nothing fits",
			usedToday:     6,
			dailyLimit:    10000,
			batch:         1,
			wantVerdict:   VerdictHalt,
			wantRemaining: 400,
			wantMax:       0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := newTestLedger(t)
			seedSuccess(t, ledger, tt.usedToday, noon.Add(-3*time.Hour))

			q := NewQuotaEstimator(ledger, tt.dailyLimit)
			q.nowFunc = func() time.Time { return noon }

			est, err := q.Estimate(context.Background(), tt.batch)
			require.NoError(t, err)

			assert.Equal(t, tt.wantVerdict, est.Verdict)
			assert.Equal(t, tt.usedToday, est.UsedToday)
			assert.Equal(t, tt.wantRemaining, est.Remaining)
			assert.Equal(t, tt.wantMax, est.MaxUploadable)
		})
	}
}

func TestEstimate_CountsFromLocalMidnight(t *testing.T) {
	noon := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	ledger := newTestLedger(t)
	seedSuccess(t, ledger, 3, noon.Add(-13*time.Hour)) // yesterday evening
	seedSuccess(t, ledger, 2, noon.Add(-2*time.Hour))  // today

	q := NewQuotaEstimator(ledger, 10000)
	q.nowFunc = func() time.Time { return noon }

	est, err := q.Estimate(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, 2, est.UsedToday)
	assert.Equal(t, VerdictOK, est.Verdict)
}

func TestEstimate_IgnoresFailures(t *testing.T) {
	noon := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	ledger := newTestLedger(t)
	require.NoError(t, ledger.Upsert(context.Background(), &history.UploadRecord{
		FilePath:  "/videos/broken.mp4",
		FileHash:  "hash-broken",
		Timestamp: noon.Add(-time.Hour).Unix(),
		Status:    history.StatusFailed,
		Error:     "connection reset",
	}))

	q := NewQuotaEstimator(ledger, 10000)
	q.nowFunc = func() time.Time { return noon }

	est, err := q.Estimate(context.Background(), 1)
	require.NoError(t, err)

	assert.Zero(t, est.UsedToday)
	assert.Equal(t, 10000, est.Remaining)
}

func TestEstimate_RemainingClampsAtZero(t *testing.T) {
	noon := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	ledger := newTestLedger(t)
	seedSuccess(t, ledger, 2, noon.Add(-time.Hour))

	q := NewQuotaEstimator(ledger, UploadCost) // one upload per day
	q.nowFunc = func() time.Time { return noon }

	est, err := q.Estimate(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, VerdictHalt, est.Verdict)
	assert.Zero(t, est.Remaining)
	assert.Zero(t, est.MaxUploadable)
}

package pipeline

import (
	"context"
	"fmt"
	"time"
)

// UploadCost is the API quota cost of one video insertion.
const UploadCost = 1600

// Verdict is the quota estimator's pre-flight answer.
type Verdict int

const (
	// VerdictOK means the whole batch fits in today's remaining quota.
	VerdictOK Verdict = iota
	// VerdictWarn means some but not all of the batch fits.
	VerdictWarn
	// VerdictHalt means not even one upload fits.
	VerdictHalt
)

// QuotaEstimate is the full pre-flight answer, including how many uploads
// remain possible today.
type QuotaEstimate struct {
	Verdict       Verdict
	UsedToday     int // successful uploads recorded since local midnight
	Remaining     int // quota units left
	MaxUploadable int // uploads that still fit today
}

// QuotaEstimator predicts whether a batch fits in the daily API quota. It is
// conservative by design: it counts only this tool's recorded successes, so
// other consumers of the same API project make the estimate optimistic.
type QuotaEstimator struct {
	ledger     Ledger
	dailyLimit int

	// nowFunc supplies the current time. Tests override it to pin midnight.
	nowFunc func() time.Time
}

// NewQuotaEstimator creates an estimator against the given ledger and daily
// unit limit.
func NewQuotaEstimator(ledger Ledger, dailyLimit int) *QuotaEstimator {
	return &QuotaEstimator{
		ledger:     ledger,
		dailyLimit: dailyLimit,
		nowFunc:    time.Now,
	}
}

// Estimate answers whether batchSize uploads fit in today's remaining quota.
// "Today" is the local calendar day: the platform resets quota daily, and
// counting from local midnight is the conservative approximation.
func (q *QuotaEstimator) Estimate(ctx context.Context, batchSize int) (*QuotaEstimate, error) {
	now := q.nowFunc()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	used, err := q.ledger.CountSuccessSince(ctx, midnight.Unix())
	if err != nil {
		return nil, fmt.Errorf("pipeline: counting today's uploads: %w", err)
	}

	remaining := q.dailyLimit - used*UploadCost
	if remaining < 0 {
		remaining = 0
	}

	est := &QuotaEstimate{
		UsedToday:     used,
		Remaining:     remaining,
		MaxUploadable: remaining / UploadCost,
	}

	switch {
	case est.MaxUploadable == 0:
		est.Verdict = VerdictHalt
	case est.MaxUploadable < batchSize:
		est.Verdict = VerdictWarn
	default:
		est.Verdict = VerdictOK
	}

	return est, nil
}

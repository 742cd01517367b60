package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/ganttshare/internal/pkg/timeutil"
)

type inactiveShareDeleter interface {
	DeleteInactiveBefore(ctx context.Context, cutoff int64) (int64, error)
}

// ShareRetentionJob hard-deletes share links that were revoked or expired
// longer than keep ago. The share core itself only soft-deletes.
type ShareRetentionJob struct {
	tokens inactiveShareDeleter
	keep   time.Duration
	clock  timeutil.Clock
}

func NewShareRetentionJob(tokens inactiveShareDeleter, keep time.Duration, clock timeutil.Clock) *ShareRetentionJob {
	if clock == nil {
		clock = timeutil.SystemClock()
	}
	return &ShareRetentionJob{tokens: tokens, keep: keep, clock: clock}
}

func (j *ShareRetentionJob) Name() string {
	return "share_retention"
}

func (j *ShareRetentionJob) Run(ctx context.Context) error {
	if j.tokens == nil || j.keep <= 0 {
		return nil
	}
	cutoff := j.clock.Now().Add(-j.keep).Unix()
	deleted, err := j.tokens.DeleteInactiveBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("share retention applied",
		zap.Int64("cutoff", cutoff),
		zap.Int64("deleted", deleted),
	)
	return nil
}

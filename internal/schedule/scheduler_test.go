package schedule

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type countingJob struct {
	runs int
	err  error
}

func (j *countingJob) Name() string {
	return "counting"
}

func (j *countingJob) Run(ctx context.Context) error {
	j.runs++
	return j.err
}

func TestCronSchedulerRunNow(t *testing.T) {
	scheduler := NewCronScheduler()
	job := &countingJob{}
	require.NoError(t, scheduler.AddJob(job, "30 3 * * *"))
	require.Error(t, scheduler.AddJob(job, "30 3 * * *"))

	require.NoError(t, scheduler.RunNow(context.Background(), "counting"))
	require.Equal(t, 1, job.runs)

	job.err = errors.New("boom")
	require.ErrorIs(t, scheduler.RunNow(context.Background(), "counting"), job.err)
	require.Error(t, scheduler.RunNow(context.Background(), "missing"))
}

func TestCronSchedulerRejectsBadSpec(t *testing.T) {
	scheduler := NewCronScheduler()
	require.Error(t, scheduler.AddJob(&countingJob{}, "not a cron"))
}

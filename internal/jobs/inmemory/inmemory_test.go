package inmemory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dvloznov/smart-finance/internal/domain"
	"github.com/dvloznov/smart-finance/internal/jobs"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForStatus(t *testing.T, s *Store, id string, want jobs.JobStatus) *jobs.ParseImageJob {
	t.Helper()
	var job *jobs.ParseImageJob
	require.Eventually(t, func() bool {
		var err error
		job, err = s.GetJob(context.Background(), id)
		return err == nil && job.Status == want
	}, 2*time.Second, 10*time.Millisecond)
	return job
}

func TestQueue_CompletesJob(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewStore()
	q := NewQueue(4, store)
	amt := decimal.NewFromInt(99)
	require.NoError(t, q.Start(ctx, func(ctx context.Context, job jobs.Job) error {
		j := job.(*jobs.ParseImageJob)
		assert.Equal(t, []byte("png"), j.Image)
		j.Drafts = []domain.Draft{{Amount: &amt, Description: "tea"}}
		return nil
	}))
	defer q.Close()

	job := &jobs.ParseImageJob{MIMEType: "image/png", Image: []byte("png")}
	require.NoError(t, q.PublishParseImage(ctx, job))
	require.NotEmpty(t, job.JobID)

	done := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	assert.Len(t, done.Drafts, 1)
	assert.Nil(t, done.Image)
	assert.NotNil(t, done.CompletedAt)
	assert.True(t, done.Confirmable())
}

func TestQueue_FailedJobRunsOnce(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewStore()
	q := NewQueue(4, store)
	calls := make(chan struct{}, 4)
	require.NoError(t, q.Start(ctx, func(ctx context.Context, job jobs.Job) error {
		calls <- struct{}{}
		return errors.New("model unavailable")
	}))
	defer q.Close()

	job := &jobs.ParseImageJob{Image: []byte("x")}
	require.NoError(t, q.PublishParseImage(ctx, job))

	failed := waitForStatus(t, store, job.JobID, jobs.JobStatusFailed)
	assert.Equal(t, "model unavailable", failed.Error)
	assert.Nil(t, failed.Image)
	assert.False(t, failed.Confirmable())
	assert.Never(t, func() bool { return len(calls) > 1 }, 200*time.Millisecond, 20*time.Millisecond)
	assert.Len(t, calls, 1)
}

func TestQueue_PublishAfterClose(t *testing.T) {
	q := NewQueue(1, NewStore())
	require.NoError(t, q.Close())
	err := q.PublishParseImage(context.Background(), &jobs.ParseImageJob{})
	assert.Error(t, err)
	assert.Error(t, q.Start(context.Background(), nil))
}

func TestStore_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.SaveJob(ctx, &jobs.ParseImageJob{
			JobID:     id,
			Status:    jobs.JobStatusCompleted,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, s.UpdateJobStatus(ctx, "b", jobs.JobStatusFailed, "boom"))

	all, err := s.ListJobs(ctx, jobs.JobFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].JobID)
	assert.Equal(t, "a", all[2].JobID)

	completed, err := s.ListJobs(ctx, jobs.JobFilter{Status: jobs.JobStatusCompleted, Limit: 1})
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, "c", completed[0].JobID)

	_, err = s.GetJob(ctx, "missing")
	assert.ErrorIs(t, err, jobs.ErrJobNotFound)
}

func TestStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	amt := decimal.NewFromInt(1)
	require.NoError(t, s.SaveJob(ctx, &jobs.ParseImageJob{JobID: "a", Drafts: []domain.Draft{{Amount: &amt}}}))

	got, err := s.GetJob(ctx, "a")
	require.NoError(t, err)
	got.Drafts[0].Description = "changed"
	got.Status = jobs.JobStatusFailed

	again, err := s.GetJob(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, again.Drafts[0].Description)
	assert.Empty(t, again.Status)
}

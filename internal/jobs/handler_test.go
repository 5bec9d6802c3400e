package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/dvloznov/smart-finance/internal/domain"
	"github.com/dvloznov/smart-finance/internal/gateway"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type parserFunc func(ctx context.Context, img gateway.Image) ([]domain.Draft, error)

func (f parserFunc) ParseImage(ctx context.Context, img gateway.Image) ([]domain.Draft, error) {
	return f(ctx, img)
}

type otherJob struct{}

func (otherJob) GetID() string        { return "x" }
func (otherJob) GetType() JobType     { return "other" }
func (otherJob) GetStatus() JobStatus { return JobStatusPending }

func TestParseImageHandler(t *testing.T) {
	amt := decimal.NewFromInt(42)
	h := NewParseImageHandler(parserFunc(func(ctx context.Context, img gateway.Image) ([]domain.Draft, error) {
		assert.Equal(t, "image/png", img.MIMEType)
		assert.Equal(t, []byte{1, 2}, img.Data)
		return []domain.Draft{{Amount: &amt}}, nil
	}))

	job := &ParseImageJob{JobID: "j1", MIMEType: "image/png", Image: []byte{1, 2}}
	require.NoError(t, h(context.Background(), job))
	assert.Len(t, job.Drafts, 1)
}

func TestParseImageHandler_Errors(t *testing.T) {
	boom := errors.New("boom")
	h := NewParseImageHandler(parserFunc(func(ctx context.Context, img gateway.Image) ([]domain.Draft, error) {
		return nil, boom
	}))

	job := &ParseImageJob{JobID: "j1"}
	assert.ErrorIs(t, h(context.Background(), job), boom)
	assert.Empty(t, job.Drafts)

	assert.Error(t, h(context.Background(), otherJob{}))
}

func TestConfirmable(t *testing.T) {
	amt := decimal.NewFromInt(1)
	assert.False(t, (&ParseImageJob{Status: JobStatusCompleted}).Confirmable())
	assert.False(t, (&ParseImageJob{Status: JobStatusRunning, Drafts: []domain.Draft{{Amount: &amt}}}).Confirmable())
	assert.True(t, (&ParseImageJob{Status: JobStatusCompleted, Drafts: []domain.Draft{{Amount: &amt}}}).Confirmable())
}

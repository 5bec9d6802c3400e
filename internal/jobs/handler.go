package jobs

import (
	"context"
	"fmt"

	"github.com/dvloznov/smart-finance/internal/domain"
	"github.com/dvloznov/smart-finance/internal/gateway"
	"github.com/dvloznov/smart-finance/internal/logger"
)

// ImageParser extracts drafts from a screenshot.
type ImageParser interface {
	ParseImage(ctx context.Context, img gateway.Image) ([]domain.Draft, error)
}

// NewParseImageHandler returns a JobHandler that fills ParseImageJob.Drafts.
func NewParseImageHandler(parser ImageParser) JobHandler {
	return func(ctx context.Context, job Job) error {
		parseJob, ok := job.(*ParseImageJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log := logger.FromContext(ctx)
		log.Info().
			Str("job_id", parseJob.JobID).
			Str("mime_type", parseJob.MIMEType).
			Int("bytes", len(parseJob.Image)).
			Msg("Processing screenshot job")

		drafts, err := parser.ParseImage(ctx, gateway.Image{MIMEType: parseJob.MIMEType, Data: parseJob.Image})
		if err != nil {
			return err
		}
		parseJob.Drafts = drafts
		return nil
	}
}

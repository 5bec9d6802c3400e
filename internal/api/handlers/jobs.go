package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/dvloznov/smart-finance/internal/api/middleware"
	"github.com/dvloznov/smart-finance/internal/flow"
	"github.com/dvloznov/smart-finance/internal/gateway"
	"github.com/dvloznov/smart-finance/internal/jobs"
	"github.com/dvloznov/smart-finance/internal/ledger"
	"github.com/rs/zerolog"
)

// MaxImageBytes caps uploaded screenshots.
const MaxImageBytes = 10 << 20

// JobsHandler handles screenshot import and job endpoints.
type JobsHandler struct {
	publisher jobs.Publisher
	store     jobs.JobStore
	ledger    *ledger.Ledger
	clock     flow.Clock
	log       zerolog.Logger

	// confirmMu serialises confirmations so a job is saved at most once.
	confirmMu sync.Mutex
}

// NewJobsHandler creates a new jobs handler. publisher may be nil when AI
// features are disabled.
func NewJobsHandler(publisher jobs.Publisher, store jobs.JobStore, l *ledger.Ledger, clock flow.Clock, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		publisher: publisher,
		store:     store,
		ledger:    l,
		clock:     clock,
		log:       log,
	}
}

// EnqueueImport handles POST /api/import. The body is either raw image bytes
// with an image/* Content-Type or JSON {"image": "data:image/png;base64,..."}.
func (h *JobsHandler) EnqueueImport(w http.ResponseWriter, r *http.Request) {
	if h.publisher == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "AI features are not configured")
		return
	}

	img, err := readImage(r)
	if err != nil {
		writeErr(w, h.log, err, "Invalid image")
		return
	}

	job := &jobs.ParseImageJob{MIMEType: img.MIMEType, Image: img.Data}
	if err := h.publisher.PublishParseImage(r.Context(), job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue import job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue import job")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Int("bytes", len(img.Data)).Msg("Import job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"status": string(jobs.JobStatusPending),
	})
}

func readImage(r *http.Request) (gateway.Image, error) {
	body := http.MaxBytesReader(nil, r.Body, MaxImageBytes*2)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if strings.HasPrefix(mediaType, "image/") {
		data, err := io.ReadAll(body)
		if err != nil {
			return gateway.Image{}, errors.Join(gateway.ErrInvalidImage, err)
		}
		if len(data) == 0 {
			return gateway.Image{}, gateway.ErrInvalidImage
		}
		if len(data) > MaxImageBytes {
			return gateway.Image{}, errors.Join(gateway.ErrInvalidImage, errors.New("image too large"))
		}
		return gateway.Image{MIMEType: mediaType, Data: data}, nil
	}

	var req struct {
		Image string `json:"image"`
	}
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		return gateway.Image{}, errors.Join(gateway.ErrInvalidImage, err)
	}
	img, err := gateway.ParseDataURL(req.Image)
	if err != nil {
		return gateway.Image{}, err
	}
	if len(img.Data) > MaxImageBytes {
		return gateway.Image{}, errors.Join(gateway.ErrInvalidImage, errors.New("image too large"))
	}
	return img, nil
}

// GetJob handles GET /api/jobs/{id}. Completed jobs include a preview with
// category hints.
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")

	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		h.log.Warn().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"job":         job,
		"preview":     flow.Preview(job.Drafts),
		"confirmable": job.Confirmable(),
	})
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := jobs.JobFilter{
		Status: jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}

// ConfirmJob handles POST /api/jobs/{id}/confirm. Only a completed job with
// at least one draft can be confirmed, and only once.
func (h *JobsHandler) ConfirmJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID := r.PathValue("id")

	h.confirmMu.Lock()
	defer h.confirmMu.Unlock()

	job, err := h.store.GetJob(ctx, jobID)
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	if !job.Confirmable() {
		middleware.WriteError(w, http.StatusConflict, "Job has nothing to confirm")
		return
	}

	saved, err := flow.SaveDrafts(ctx, h.ledger, h.clock, job.Drafts)
	if uerr := h.store.UpdateJobStatus(ctx, jobID, jobs.JobStatusConfirmed, ""); uerr != nil {
		h.log.Error().Err(uerr).Str("job_id", jobID).Msg("Failed to mark job confirmed")
	}
	if err != nil && len(saved) == 0 {
		writeErr(w, h.log, err, "Failed to save imported transactions")
		return
	}

	resp := map[string]interface{}{
		"transactions": saved,
		"count":        len(saved),
	}
	if err != nil {
		resp["error"] = err.Error()
	}
	middleware.WriteJSON(w, http.StatusOK, resp)
}

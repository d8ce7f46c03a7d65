package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"fileforge-backend/internal/engine"
	"fileforge-backend/internal/files"
	"fileforge-backend/internal/inspect"
	"fileforge-backend/internal/queue"
	"fileforge-backend/internal/shared/metrics"
	"fileforge-backend/internal/shared/storage/object"
	"fileforge-backend/internal/shared/telemetry"
	"fileforge-backend/internal/staging"
	"fileforge-backend/internal/tools"
	"fileforge-backend/internal/usage"
)

const (
	StatusQueued     = "queued"
	StatusStaging    = "staging"
	StatusConverting = "converting"
	StatusSucceeded  = "succeeded"
	StatusFailed     = "failed"
)

const (
	// stagingShare is where overall progress lands once every file is staged.
	stagingShare = 70
	// rampCap keeps the synthetic convert ramp below completion until the
	// engine actually returns.
	rampCap             = 99
	defaultRampInterval = 500 * time.Millisecond
)

// Service orchestrates conversion jobs: staging, the remote engine call, the
// usage gate, and every status transition in between.
type Service struct {
	Repo   Repo
	Files  files.FilesRepo
	Store  object.ObjectStore
	Stager staging.Stager
	Engine engine.Invoker
	Usage  *usage.Service
	Queue  queue.Client

	// RampInterval overrides the synthetic progress tick, for tests.
	RampInterval time.Duration
}

// CreateInput is the caller's job request.
type CreateInput struct {
	Selection tools.Selection
	FileIDs   []string
}

// Create validates the request, resolves the remote operation, persists the
// job as queued, and hands it off for asynchronous processing. The usage gate
// is consulted here; the counter is incremented only on success.
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (Job, error) {
	if userID == "" {
		return Job{}, errors.New("userID is required")
	}
	if s.Usage != nil && !s.Usage.Allowed(ctx, userID) {
		metrics.IncUsageBlocked()
		return Job{}, usage.ErrLimitReached
	}
	if len(in.FileIDs) == 0 {
		return Job{}, ErrNoFile
	}

	sel := in.Selection
	if sel.SubTool == "" {
		sel.SubTool = tools.DefaultSubTool(sel.View)
	}
	if sel.View != tools.ViewMerge && len(in.FileIDs) != 1 {
		return Job{}, ErrTooManyFiles
	}

	fs, err := s.Files.GetByIDs(ctx, userID, in.FileIDs)
	if err != nil {
		return Job{}, err
	}

	if sel.View == tools.ViewMerge {
		for _, f := range fs {
			if err := s.validateMergeInput(ctx, f); err != nil {
				return Job{}, err
			}
		}
	}

	info := tools.FileInfo{Name: fs[0].FileName}
	if tools.NeedsDimensions(sel) {
		dims, err := inspect.ImageDimensions(ctx, s.Store, fs[0].StorageKey)
		if err != nil {
			return Job{}, fmt.Errorf("read image dimensions: %w", err)
		}
		info.Width = dims.Width
		info.Height = dims.Height
	}

	op, err := tools.Resolve(sel, info)
	if err != nil {
		return Job{}, err
	}

	job := Job{
		ID:         uuid.NewString(),
		UserID:     userID,
		View:       string(sel.View),
		SubTool:    sel.SubTool,
		Operation:  op.Name,
		Parameters: op.Parameters,
		FileIDs:    in.FileIDs,
		Status:     StatusQueued,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.Repo.Create(ctx, job); err != nil {
		return Job{}, err
	}

	if s.Queue != nil {
		msg := queue.Message{
			JobID:      job.ID,
			RequestID:  requestIDFromContext(ctx),
			EnqueuedAt: time.Now().UTC().Format(time.RFC3339),
			Version:    1,
		}
		if err := s.Queue.Send(ctx, msg); err != nil {
			s.failJob(ctx, job.ID, userID, fmt.Errorf("enqueue job: %w", err), nil)
			return Job{}, err
		}
		return job, nil
	}

	go s.Process(backgroundWithRequestID(ctx), job.ID)

	return job, nil
}

// validateMergeInput confirms a merge input is a parsable PDF before the job
// touches the network. A page count recorded at upload time is trusted;
// otherwise the stored object is parsed here.
func (s *Service) validateMergeInput(ctx context.Context, f files.File) error {
	if f.PageCount > 0 {
		return nil
	}
	if _, err := inspect.PDFPageCount(ctx, s.Store, f.StorageKey); err != nil {
		if errors.Is(err, inspect.ErrNotAPDF) {
			return fmt.Errorf("%s: %w", f.FileName, ErrNotMergeable)
		}
		return err
	}
	return nil
}

// Get returns a job by ID, scoped to its owner.
func (s *Service) Get(ctx context.Context, userID, jobID string) (Job, error) {
	if jobID == "" {
		return Job{}, errors.New("jobID is required")
	}
	job, err := s.Repo.GetByID(ctx, jobID)
	if err != nil {
		return Job{}, err
	}
	if job.UserID != userID {
		return Job{}, ErrNotFound
	}
	return job, nil
}

// List returns jobs for a user ordered newest-first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Job, error) {
	if userID == "" {
		return nil, errors.New("userID is required")
	}
	return s.Repo.ListByUser(ctx, userID, limit, offset)
}

// ProcessJob is the queue-consumer entrypoint. A missing job is returned as
// an error so the caller can drop the message instead of redriving it; any
// processing failure is recorded on the job itself.
func (s *Service) ProcessJob(ctx context.Context, jobID string) error {
	if _, err := s.Repo.GetByID(ctx, jobID); err != nil {
		return fmt.Errorf("job lookup id=%s: %w", jobID, err)
	}
	s.Process(ctx, jobID)
	return nil
}

// Process drives one job from queued to its terminal state. It is called from
// the in-process goroutine or from the queue worker; both paths are identical
// from here on.
func (s *Service) Process(ctx context.Context, jobID string) {
	defer func() {
		if r := recover(); r != nil {
			s.failJob(ctx, jobID, "", fmt.Errorf("panic: %v", r), nil)
		}
	}()

	startedAt := time.Now().UTC()
	if err := s.Repo.UpdateStatus(ctx, jobID, StatusStaging, &startedAt); err != nil {
		s.failJob(ctx, jobID, "", fmt.Errorf("set staging failed: %w", err), &startedAt)
		return
	}

	job, err := s.Repo.GetByID(ctx, jobID)
	if err != nil {
		s.failJob(ctx, jobID, "", fmt.Errorf("job lookup: %w", err), &startedAt)
		return
	}
	metrics.IncJobStarted()
	s.logTransition(ctx, job, StatusStaging, "queued->staging", 0)

	if s.Files == nil || s.Stager == nil || s.Engine == nil {
		s.failJob(ctx, jobID, job.UserID, errors.New("missing processing dependencies"), &startedAt)
		return
	}

	fs, err := s.Files.GetByIDs(ctx, job.UserID, job.FileIDs)
	if err != nil {
		s.failJob(ctx, jobID, job.UserID, fmt.Errorf("file lookup: %w", err), &startedAt)
		return
	}
	if len(fs) == 0 {
		s.failJob(ctx, jobID, job.UserID, ErrNoFile, &startedAt)
		return
	}

	// Stage sequentially. The staged share of overall progress ends at 70,
	// apportioned evenly across the file set.
	sourceURLs := make([]string, 0, len(fs))
	for i, f := range fs {
		base := stagingShare * i / len(fs)
		span := stagingShare*(i+1)/len(fs) - base
		src := staging.Source{Key: f.StorageKey, Name: f.FileName, Size: f.SizeBytes}
		url, err := s.Stager.Stage(ctx, src, func(transferred, total int64) {
			if total <= 0 {
				return
			}
			if transferred > total {
				transferred = total
			}
			p := base + int(int64(span)*transferred/total)
			_ = s.Repo.UpdateProgress(ctx, jobID, p)
		})
		if err != nil {
			s.failJob(ctx, jobID, job.UserID, fmt.Errorf("stage %s: %w", f.FileName, err), &startedAt)
			return
		}
		metrics.ObserveStagedBytes(float64(f.SizeBytes))
		sourceURLs = append(sourceURLs, url)
	}

	if err := s.Repo.UpdateStatus(ctx, jobID, StatusConverting, nil); err != nil {
		s.failJob(ctx, jobID, job.UserID, fmt.Errorf("set converting failed: %w", err), &startedAt)
		return
	}
	_ = s.Repo.UpdateProgress(ctx, jobID, stagingShare)
	s.logTransition(ctx, job, StatusConverting, "staging->converting", 0)

	op := tools.Operation{
		Name:        job.Operation,
		Parameters:  job.Parameters,
		MultiSource: job.View == string(tools.ViewMerge),
	}

	// The engine does not stream progress, so a synthetic ramp keeps the
	// reported value moving until the response lands.
	stopRamp := s.startRamp(ctx, jobID)
	result, err := s.Engine.Convert(ctx, op, sourceURLs)
	stopRamp()
	if err != nil {
		s.failJob(ctx, jobID, job.UserID, fmt.Errorf("convert %s: %w", job.Operation, err), &startedAt)
		return
	}

	completedAt := time.Now().UTC()
	if err := s.Repo.MarkSucceeded(ctx, jobID, result.URL, result.FileName, result.Size, completedAt); err != nil {
		s.failJob(ctx, jobID, job.UserID, fmt.Errorf("set job result failed: %w", err), &startedAt)
		return
	}

	if s.Usage != nil {
		if _, err := s.Usage.Increment(ctx, job.UserID); err != nil {
			telemetry.Warn("usage increment failed", map[string]any{
				"job_id":  jobID,
				"user_id": job.UserID,
				"error":   err.Error(),
			})
		}
	}

	metrics.IncJobSucceeded()
	metrics.ObserveJobDurationMs(durationMs(&startedAt, &completedAt))
	s.logTransition(ctx, job, StatusSucceeded, "converting->succeeded", durationMs(&startedAt, &completedAt))
}

func (s *Service) startRamp(ctx context.Context, jobID string) func() {
	interval := s.RampInterval
	if interval <= 0 {
		interval = defaultRampInterval
	}
	done := make(chan struct{})
	var once sync.Once
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		p := stagingShare
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if p < rampCap {
					p++
					_ = s.Repo.UpdateProgress(ctx, jobID, p)
				}
			}
		}
	}()
	return func() { once.Do(func() { close(done) }) }
}

func (s *Service) failJob(ctx context.Context, jobID, userID string, err error, startedAt *time.Time) {
	code := classifyFailure(err)
	msg := sanitizeError(err)
	completedAt := time.Now().UTC()
	if updateErr := s.Repo.MarkFailed(context.Background(), jobID, code, msg, completedAt); updateErr != nil {
		telemetry.Error("failJob: update failed", map[string]any{
			"job_id": jobID,
			"error":  updateErr.Error(),
			"orig":   msg,
		})
	}
	metrics.IncJobFailed()
	if startedAt != nil {
		metrics.ObserveJobDurationMs(durationMs(startedAt, &completedAt))
	}
	telemetry.Info("job.status", map[string]any{
		"request_id":  requestIDFromContext(ctx),
		"user_id":     userID,
		"job_id":      jobID,
		"status":      StatusFailed,
		"error_code":  code,
		"duration_ms": durationMs(startedAt, &completedAt),
	})
}

func (s *Service) logTransition(ctx context.Context, job Job, status, transition string, durationMs float64) {
	fields := map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"user_id":           job.UserID,
		"job_id":            job.ID,
		"operation":         job.Operation,
		"status":            status,
		"status_transition": transition,
	}
	if durationMs > 0 {
		fields["duration_ms"] = durationMs
	}
	telemetry.Info("job.status", fields)
}

func durationMs(startedAt, completedAt *time.Time) float64 {
	if startedAt == nil || completedAt == nil {
		return 0
	}
	return float64(completedAt.Sub(*startedAt).Microseconds()) / 1000.0
}

func classifyFailure(err error) string {
	if err == nil {
		return ErrorCodeInternal
	}

	var remoteErr *engine.RemoteError
	switch {
	case errors.Is(err, ErrNoFile):
		return ErrorCodeNoFile
	case errors.Is(err, tools.ErrUnrecognizedOperation):
		return ErrorCodeUnrecognizedOp
	case errors.Is(err, staging.ErrTimeout):
		return ErrorCodeUploadTimeout
	case errors.Is(err, staging.ErrFileTooLarge):
		return ErrorCodeUploadFailed
	case errors.Is(err, engine.ErrTimeout):
		return ErrorCodeConvertTimeout
	case errors.As(err, &remoteErr):
		return ErrorCodeRemoteRejected
	case errors.Is(err, engine.ErrMalformedResponse), errors.Is(err, engine.ErrNoOutput):
		return ErrorCodeMalformedResponse
	case errors.Is(err, files.ErrNotFound):
		return ErrorCodeStorage
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "stage ") || strings.Contains(msg, "upload") {
		return ErrorCodeUploadFailed
	}
	if strings.Contains(msg, "file lookup") || strings.Contains(msg, "job lookup") ||
		strings.Contains(msg, "set staging") || strings.Contains(msg, "set converting") ||
		strings.Contains(msg, "set job result") || strings.Contains(msg, "storage") ||
		strings.Contains(msg, "enqueue") {
		return ErrorCodeStorage
	}
	return ErrorCodeInternal
}

// UserMessage maps an error code to the message shown to end users. Timeouts
// read differently from generic failures on purpose.
func UserMessage(code string) string {
	switch code {
	case ErrorCodeNoFile:
		return "No file selected."
	case ErrorCodeUnrecognizedOp:
		return "This file type is not supported for the selected tool."
	case ErrorCodeUploadFailed:
		return "Uploading your file failed. Please try again."
	case ErrorCodeUploadTimeout, ErrorCodeConvertTimeout:
		return "The operation timed out. Please try again."
	case ErrorCodeRemoteRejected:
		return "The conversion service rejected this file."
	case ErrorCodeMalformedResponse:
		return "The conversion produced no usable output."
	default:
		return "Processing failed. Please try again."
	}
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}

package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sync"

	"github.com/maauso/concepto-video-api/internal/generator"
)

// Service errors.
var (
	// ErrJobNotRunning is returned when cancelling a job that has no active pipeline.
	ErrJobNotRunning = errors.New("job is not running")
	// ErrInvalidEpisodeID is returned when the episode ID is missing or unusable in a storage key.
	ErrInvalidEpisodeID = fmt.Errorf("%w: episodeId is required and may only contain letters, digits, '-' and '_'", generator.ErrInvalidRequest)
)

var episodeIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// Result is the outcome of a completed generation.
type Result struct {
	JobID     string
	Vendor    generator.Vendor
	TaskID    string
	VideoURL  string
	BackupURL string
}

// GenerationService runs generation requests through validate, submit,
// poll, download and upload, recording every step on a Job.
type GenerationService struct {
	registry     *generator.Registry
	repo         Repository
	poller       *Poller
	materializer *Materializer
	logger       *slog.Logger

	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup

	mu      sync.Mutex
	running map[string]context.CancelFunc
}

// NewGenerationService creates a new GenerationService.
func NewGenerationService(registry *generator.Registry, repo Repository, poller *Poller, materializer *Materializer, logger *slog.Logger) *GenerationService {
	if logger == nil {
		logger = slog.Default()
	}
	baseCtx, stop := context.WithCancel(context.Background())
	return &GenerationService{
		registry:     registry,
		repo:         repo,
		poller:       poller,
		materializer: materializer,
		logger:       logger,
		baseCtx:      baseCtx,
		stop:         stop,
		running:      make(map[string]context.CancelFunc),
	}
}

// Generate runs a request to completion and returns the stored video.
// Invalid requests fail before any vendor call.
func (s *GenerationService) Generate(ctx context.Context, req generator.Request) (*Result, error) {
	job, gen, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.track(job.ID, cancel)
	defer s.untrack(job.ID)

	return s.run(runCtx, job, gen)
}

// Start validates and persists a request, then runs it in the background.
// The returned job is in CREATED status; poll GetJob for progress.
func (s *GenerationService) Start(ctx context.Context, req generator.Request) (*Job, error) {
	job, gen, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(s.baseCtx)
	s.track(job.ID, cancel)
	snapshot := job.Clone()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		defer s.untrack(job.ID)

		if _, err := s.run(runCtx, job, gen); err != nil {
			s.logger.Warn("background generation ended with error",
				slog.String("job_id", job.ID),
				slog.String("error", err.Error()),
			)
		}
	}()

	return snapshot, nil
}

// GetJob retrieves a job by ID.
func (s *GenerationService) GetJob(ctx context.Context, id string) (*Job, error) {
	return s.repo.FindByID(ctx, id)
}

// ListJobs returns all jobs, newest first.
func (s *GenerationService) ListJobs(ctx context.Context) ([]*Job, error) {
	return s.repo.List(ctx)
}

// Cancel stops local work on a running job. The vendor task itself is not
// cancelled; none of the vendor APIs used here expose that.
func (s *GenerationService) Cancel(ctx context.Context, id string) error {
	s.mu.Lock()
	cancel, ok := s.running[id]
	s.mu.Unlock()

	if !ok {
		if _, err := s.repo.FindByID(ctx, id); err != nil {
			return err
		}
		return ErrJobNotRunning
	}

	s.logger.Info("cancelling job", slog.String("job_id", id))
	cancel()
	return nil
}

// Shutdown cancels every running job and waits for the pipelines to record
// their final status, or for ctx to expire.
func (s *GenerationService) Shutdown(ctx context.Context) error {
	s.stop()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// prepare normalizes and validates req, then persists a CREATED job.
func (s *GenerationService) prepare(ctx context.Context, req generator.Request) (*Job, generator.Generator, error) {
	req = req.Normalize()

	if !episodeIDPattern.MatchString(req.EpisodeID) {
		return nil, nil, ErrInvalidEpisodeID
	}

	gen, vendor, err := s.registry.Resolve(req.Model)
	if err != nil {
		return nil, nil, err
	}
	req.Vendor = vendor

	if err := gen.Validate(req); err != nil {
		return nil, nil, err
	}

	job := New(req)
	if err := s.repo.Save(ctx, job); err != nil {
		s.logger.Error("failed to save job",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
		return nil, nil, fmt.Errorf("save job: %w", err)
	}

	s.logger.Info("job created",
		slog.String("job_id", job.ID),
		slog.String("vendor", string(vendor)),
		slog.String("model", req.Model),
		slog.String("type", string(req.Type)),
		slog.String("episode_id", req.EpisodeID),
	)

	return job, gen, nil
}

// run drives job from CREATED to a terminal status.
func (s *GenerationService) run(ctx context.Context, job *Job, gen generator.Generator) (*Result, error) {
	log := s.logger.With(slog.String("job_id", job.ID), slog.String("vendor", string(job.Vendor)))

	taskID, err := gen.Submit(ctx, job.Request)
	if err != nil {
		return nil, s.abort(ctx, job, fmt.Errorf("submit: %w", err))
	}
	if err := job.MarkSubmitted(taskID); err != nil {
		return nil, err
	}
	s.save(ctx, job)
	log.Info("vendor task submitted", slog.String("task_id", taskID))

	if err := job.StartPolling(); err != nil {
		return nil, err
	}
	s.save(ctx, job)

	res, err := s.poller.Run(ctx, taskID, gen.Poll, gen.PollPolicy(), func(attempt int, pr generator.PollResult) {
		job.RecordPoll(attempt, pr)
		s.save(ctx, job)
	})
	if err != nil {
		return nil, s.abort(ctx, job, err)
	}
	log.Info("vendor task succeeded", slog.String("task_id", taskID), slog.String("vendor_url", res.VideoURL))

	if err := job.StartDownloading(res.VideoURL); err != nil {
		return nil, err
	}
	s.save(ctx, job)

	staged, err := s.materializer.Fetch(ctx, gen, res)
	if err != nil {
		return nil, s.unmaterialized(ctx, job, err)
	}
	defer s.materializer.Release(ctx, staged)

	if err := job.StartUploading(); err != nil {
		return nil, err
	}
	s.save(ctx, job)

	art, err := s.materializer.Store(ctx, staged, job.Vendor, job.Request.EpisodeID)
	if err != nil {
		return nil, s.unmaterialized(ctx, job, err)
	}

	if err := job.Complete(art.VideoURL, art.BackupURL); err != nil {
		return nil, err
	}
	s.save(ctx, job)
	log.Info("job completed", slog.String("video_url", art.VideoURL))

	return &Result{
		JobID:     job.ID,
		Vendor:    job.Vendor,
		TaskID:    taskID,
		VideoURL:  art.VideoURL,
		BackupURL: art.BackupURL,
	}, nil
}

// abort moves a job that failed before its video was produced to the
// matching terminal status and returns err.
func (s *GenerationService) abort(ctx context.Context, job *Job, err error) error {
	var timeout *TimeoutError
	var transErr error
	switch {
	case errors.As(err, &timeout):
		transErr = job.Timeout(err.Error())
	case errors.Is(err, ErrTaskCancelled):
		transErr = job.Cancel(err.Error())
	case errors.Is(err, context.Canceled):
		transErr = job.Cancel("cancelled before completion")
	default:
		transErr = job.Fail(err.Error())
	}
	if transErr != nil {
		s.logger.Error("failed to record job outcome",
			slog.String("job_id", job.ID),
			slog.String("status", string(job.GetStatus())),
			slog.String("error", transErr.Error()),
		)
	}
	s.save(ctx, job)

	s.logger.Warn("job ended without a video",
		slog.String("job_id", job.ID),
		slog.String("status", string(job.GetStatus())),
		slog.String("error", err.Error()),
	)
	return err
}

// unmaterialized records a produced video that could not be stored.
func (s *GenerationService) unmaterialized(ctx context.Context, job *Job, err error) error {
	if transErr := job.Unmaterialize(err.Error()); transErr != nil {
		return transErr
	}
	s.save(ctx, job)

	s.logger.Error("video produced but not stored",
		slog.String("job_id", job.ID),
		slog.String("vendor_url", job.Clone().VendorVideoURL),
		slog.String("error", err.Error()),
	)
	return err
}

// save persists job even when ctx was cancelled, so cancelled and
// failed jobs still record their final status.
func (s *GenerationService) save(ctx context.Context, job *Job) {
	if err := s.repo.Save(context.WithoutCancel(ctx), job); err != nil {
		s.logger.Error("failed to save job",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *GenerationService) track(id string, cancel context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running[id] = cancel
}

func (s *GenerationService) untrack(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, id)
}

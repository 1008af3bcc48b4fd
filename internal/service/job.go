package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/leadforge/automation/internal/data"
	"github.com/leadforge/automation/internal/domain/model"
	apperrors "github.com/leadforge/automation/internal/errors"
)

// JobService provides operator visibility and control over the job queue.
type JobService struct {
	jobs   JobStore
	logger *slog.Logger
}

// JobServiceOptions holds the dependencies for creating a JobService.
type JobServiceOptions struct {
	Jobs   JobStore
	Logger *slog.Logger
}

// NewJobService creates a new JobService with the given dependencies.
func NewJobService(opts JobServiceOptions) *JobService {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &JobService{
		jobs:   opts.Jobs,
		logger: opts.Logger.With("component", "job_service"),
	}
}

// Get retrieves a job by ID.
func (s *JobService) Get(ctx context.Context, id string) (*model.Job, error) {
	job, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, data.ErrJobNotFound) {
			return nil, apperrors.NotFound("job not found")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "get job")
	}
	return job, nil
}

// List retrieves jobs matching the filter options, newest first.
func (s *JobService) List(ctx context.Context, opts model.JobListOptions) ([]model.Job, error) {
	if opts.Status != nil && !opts.Status.Valid() {
		return nil, apperrors.Validationf("invalid job status: %q", *opts.Status)
	}

	jobs, err := s.jobs.List(ctx, opts)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "list jobs")
	}
	return jobs, nil
}

// Stats aggregates job counts by status.
func (s *JobService) Stats(ctx context.Context) (*model.JobStats, error) {
	stats, err := s.jobs.Stats(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "job stats")
	}
	return stats, nil
}

// Cancel cancels a single pending job on operator request. Jobs already
// claimed or terminal cannot be cancelled this way.
func (s *JobService) Cancel(ctx context.Context, id string) error {
	err := s.jobs.Cancel(ctx, id, "cancelled by operator")
	if err != nil {
		if errors.Is(err, data.ErrJobNotFound) {
			return apperrors.NotFound("no pending job with that id")
		}
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "cancel job")
	}

	s.logger.Info("job cancelled by operator", "job_id", id)
	return nil
}

// CancelPendingForAutomation cancels every pending job of one automation and
// returns how many were cancelled.
func (s *JobService) CancelPendingForAutomation(ctx context.Context, automationID string) (int, error) {
	cancelled, err := s.jobs.CancelPendingByAutomation(ctx, automationID, "cancelled by operator")
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrCodeInternal, "cancel pending jobs")
	}

	s.logger.Info("pending jobs cancelled for automation",
		"automation_id", automationID,
		"count", cancelled,
	)
	return cancelled, nil
}

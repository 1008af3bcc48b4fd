package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leadforge/automation/internal/data"
	"github.com/leadforge/automation/internal/domain/model"
	apperrors "github.com/leadforge/automation/internal/errors"
	"github.com/leadforge/automation/internal/observability/metrics"
)

// Recipient identifies who a scheduled message goes to, plus the contextual
// values snapshotted into the job for template rendering.
type Recipient struct {
	Email string
	Name  *string
	Data  map[string]string
}

// ScheduleResult reports what Schedule did. Skipped means the idempotency
// gate suppressed a duplicate; it is a normal outcome, not a failure.
type ScheduleResult struct {
	JobID   string
	Skipped bool
}

// SchedulerService creates jobs for matched automations. It owns the delay
// computation and the duplicate-suppression contract.
type SchedulerService struct {
	jobs         JobStore
	registry     *Registry
	evaluator    *Evaluator
	maxAttempts  int
	timeProvider data.TimeProvider
	metrics      *metrics.JobMetrics
	logger       *slog.Logger
}

// SchedulerServiceOptions holds the dependencies for creating a SchedulerService.
type SchedulerServiceOptions struct {
	Jobs         JobStore
	Registry     *Registry
	Evaluator    *Evaluator
	MaxAttempts  int
	TimeProvider data.TimeProvider
	Metrics      *metrics.JobMetrics
	Logger       *slog.Logger
}

// NewSchedulerService creates a new SchedulerService with the given dependencies.
func NewSchedulerService(opts SchedulerServiceOptions) *SchedulerService {
	if opts.TimeProvider == nil {
		opts.TimeProvider = &data.RealTimeProvider{}
	}
	if opts.Evaluator == nil {
		opts.Evaluator = NewEvaluator()
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &SchedulerService{
		jobs:         opts.Jobs,
		registry:     opts.Registry,
		evaluator:    opts.Evaluator,
		maxAttempts:  opts.MaxAttempts,
		timeProvider: opts.TimeProvider,
		metrics:      opts.Metrics,
		logger:       opts.Logger.With("component", "scheduler"),
	}
}

// Schedule creates one pending job for the automation and recipient, due
// after the automation's delay. A recipient without an email cannot be
// scheduled. Duplicate active jobs yield a Skipped result.
func (s *SchedulerService) Schedule(
	ctx context.Context,
	automation *model.Automation,
	recipient Recipient,
) (*ScheduleResult, error) {
	email := strings.TrimSpace(recipient.Email)
	if email == "" {
		return nil, errors.New("recipient email is required and cannot be empty")
	}

	// Cheap pre-check; the unique index is the authoritative gate when two
	// schedulers race past it.
	exists, err := s.jobs.HasActiveJob(ctx, automation.ID, email)
	if err != nil {
		return nil, fmt.Errorf("check active job: %w", err)
	}
	if exists {
		s.metrics.JobSkipped()
		return &ScheduleResult{Skipped: true}, nil
	}

	scheduledFor := s.timeProvider.Now().UTC().Add(automation.Delay())
	job, err := s.jobs.Insert(ctx, model.NewJobParams{
		AutomationID:   automation.ID,
		RecipientEmail: email,
		RecipientName:  recipient.Name,
		RecipientData:  recipient.Data,
		ScheduledFor:   scheduledFor,
		MaxAttempts:    s.maxAttempts,
	})
	if err != nil {
		if errors.Is(err, data.ErrDuplicateActiveJob) {
			s.metrics.JobSkipped()
			return &ScheduleResult{Skipped: true}, nil
		}
		return nil, fmt.Errorf("insert job: %w", err)
	}

	s.metrics.JobScheduled(string(automation.TriggerType))
	s.logger.Info("job scheduled",
		"job_id", job.ID,
		"automation_id", automation.ID,
		"trigger_type", automation.TriggerType,
		"scheduled_for", scheduledFor,
	)
	return &ScheduleResult{JobID: job.ID}, nil
}

// EventOutcome reports how one behavioral event was handled.
type EventOutcome struct {
	Matched   int `json:"matched"`
	Scheduled int `json:"scheduled"`
	Skipped   int `json:"skipped"`
}

// HandleEvent evaluates the event against every enabled automation and
// schedules a job for each match. A failure to schedule against one
// automation does not block the others.
func (s *SchedulerService) HandleEvent(
	ctx context.Context,
	event *model.BehavioralEvent,
) (*EventOutcome, error) {
	if err := event.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	automations, err := s.registry.Enabled(ctx)
	if err != nil {
		return nil, err
	}

	matched, evalErrs := s.evaluator.Evaluate(automations, event)
	for _, evalErr := range evalErrs {
		s.logger.Warn("skipping automation with invalid trigger config", "error", evalErr)
	}

	outcome := &EventOutcome{Matched: len(matched)}
	recipient := Recipient{
		Email: event.Email,
		Name:  event.Name,
		Data: map[string]string{
			"pagina": event.PageSlug,
			"url":    event.PageURL,
		},
	}

	for i := range matched {
		result, err := s.Schedule(ctx, &matched[i], recipient)
		if err != nil {
			s.logger.Error("failed to schedule job for event",
				"automation_id", matched[i].ID,
				"visitor_id", event.VisitorID,
				"error", err,
			)
			continue
		}
		if result.Skipped {
			outcome.Skipped++
		} else {
			outcome.Scheduled++
		}
	}
	return outcome, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leadforge/automation/internal/data"
	"github.com/leadforge/automation/internal/domain/model"
	"github.com/leadforge/automation/internal/mail"
	"github.com/leadforge/automation/internal/observability/metrics"
	"github.com/leadforge/automation/internal/template"
)

// WorkerService executes due jobs. One Tick claims a batch, renders and sends
// each message, and records the outcome on the job row. Safe under concurrent
// replicas: the claim uses FOR UPDATE SKIP LOCKED so two workers never hold
// the same job.
type WorkerService struct {
	jobs         JobStore
	automations  AutomationStore
	scanner      *ScannerService
	sender       mail.Sender
	batchSize    int
	storeRetry   data.BackoffConfig
	stuckAfter   time.Duration
	timeProvider data.TimeProvider
	metrics      *metrics.JobMetrics
	logger       *slog.Logger
}

// WorkerServiceOptions holds the dependencies for creating a WorkerService.
type WorkerServiceOptions struct {
	Jobs        JobStore
	Automations AutomationStore
	Scanner     *ScannerService
	// Sender may be nil when no mail provider is configured; claimed jobs
	// then fail permanently instead of burning their retry budget.
	Sender    mail.Sender
	BatchSize int
	// StoreRetry bounds the retry loop around the claim query so a brief
	// database blip does not abort the whole tick.
	StoreRetry data.BackoffConfig
	// StuckAfter is how long a processing job may sit untouched before a
	// tick considers its worker dead and releases the row.
	StuckAfter   time.Duration
	TimeProvider data.TimeProvider
	Metrics      *metrics.JobMetrics
	Logger       *slog.Logger
}

// NewWorkerService creates a new WorkerService with the given dependencies.
func NewWorkerService(opts WorkerServiceOptions) *WorkerService {
	if opts.TimeProvider == nil {
		opts.TimeProvider = &data.RealTimeProvider{}
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	if opts.StoreRetry.MaxAttempts <= 0 {
		opts.StoreRetry = data.BackoffConfig{MaxAttempts: 3, BaseDelay: 200 * time.Millisecond}
	}
	if opts.StuckAfter <= 0 {
		opts.StuckAfter = 10 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &WorkerService{
		jobs:         opts.Jobs,
		automations:  opts.Automations,
		scanner:      opts.Scanner,
		sender:       opts.Sender,
		batchSize:    opts.BatchSize,
		storeRetry:   opts.StoreRetry,
		stuckAfter:   opts.StuckAfter,
		timeProvider: opts.TimeProvider,
		metrics:      opts.Metrics,
		logger:       opts.Logger.With("component", "worker"),
	}
}

// Tick runs one worker cycle: scan for abandoned checkouts, claim due jobs,
// process each. A single job's failure is recorded on its row and in the
// summary, never raised to the invoker; only claim-level failures abort the
// tick.
func (w *WorkerService) Tick(ctx context.Context) (*model.TickSummary, error) {
	start := w.timeProvider.Now()
	summary := &model.TickSummary{}

	if w.scanner != nil {
		flagged, err := w.scanner.Scan(ctx)
		summary.IntentsFlagged = flagged
		if err != nil {
			// Scanner trouble must not stop due jobs from going out.
			w.logger.Error("abandoned checkout scan failed", "error", err)
		}
	}

	if released, err := w.jobs.ReleaseStuck(ctx, w.stuckAfter); err != nil {
		w.logger.Error("failed to release stuck jobs", "error", err)
	} else if released > 0 {
		w.logger.Warn("released stuck jobs", "count", released)
	}

	var claimed []model.Job
	err := data.WithBackoff(ctx, w.storeRetry, func(ctx context.Context) error {
		jobs, err := w.jobs.ClaimDue(ctx, w.batchSize)
		if err != nil {
			if errors.Is(err, model.ErrNoJobsDue) {
				claimed = nil
				return nil
			}
			return err
		}
		claimed = jobs
		return nil
	})
	if err != nil {
		return summary, fmt.Errorf("claim due jobs: %w", err)
	}

	for i := range claimed {
		w.processJob(ctx, &claimed[i], summary)
	}
	summary.Seen = len(claimed)

	w.metrics.TickObserved(w.timeProvider.Now().Sub(start))
	w.logger.Info("tick finished",
		"seen", summary.Seen,
		"completed", summary.Completed,
		"failed", summary.Failed,
		"retried", summary.Retried,
		"cancelled", summary.Cancelled,
		"intents_flagged", summary.IntentsFlagged,
	)
	return summary, nil
}

// processJob runs one claimed job to a terminal or retryable outcome. Every
// branch ends in exactly one store transition; a failed transition is logged
// and the row is left in processing for a later tick's stuck-job release.
func (w *WorkerService) processJob(ctx context.Context, job *model.Job, summary *model.TickSummary) {
	logger := w.logger.With("job_id", job.ID, "automation_id", job.AutomationID)

	automation, err := w.automations.GetByID(ctx, job.AutomationID)
	if err != nil {
		if errors.Is(err, data.ErrAutomationNotFound) {
			w.cancelJob(ctx, job, "automation deleted", summary, logger)
			return
		}
		w.failJob(ctx, job, fmt.Sprintf("load automation: %v", err), summary, logger)
		return
	}
	if !automation.Enabled {
		w.cancelJob(ctx, job, "automation disabled", summary, logger)
		return
	}

	if w.sender == nil {
		// Not retryable: attempts would burn without any chance of success.
		if err := w.jobs.FailPermanent(ctx, job.ID, "mail transport not configured"); err != nil {
			logger.Error("failed to record permanent failure", "error", err)
			return
		}
		summary.Failed++
		w.metrics.JobProcessed(metrics.OutcomeFailed)
		logger.Error("job failed permanently", "reason", "mail transport not configured")
		return
	}

	msg := w.renderMessage(automation, job)
	if err := w.sender.Send(ctx, msg); err != nil {
		w.failJob(ctx, job, err.Error(), summary, logger)
		return
	}

	if err := w.jobs.Complete(ctx, job.ID); err != nil {
		logger.Error("failed to mark job completed", "error", err)
		return
	}
	summary.Completed++
	w.metrics.JobProcessed(metrics.OutcomeCompleted)
	logger.Info("job completed", "attempt", job.Attempts)
}

// renderMessage builds the outbound message from the automation templates and
// the recipient snapshot. The snapshot entries override nothing; the
// recipient identity keys are layered on top so a stray "email" key in the
// data cannot reroute the send.
func (w *WorkerService) renderMessage(automation *model.Automation, job *model.Job) mail.Message {
	vars := template.Vars(nil, job.RecipientData)
	vars["nome"] = job.RecipientName
	vars["email"] = &job.RecipientEmail

	toName := ""
	if job.RecipientName != nil {
		toName = *job.RecipientName
	}

	return mail.Message{
		ToEmail: job.RecipientEmail,
		ToName:  toName,
		Subject: template.Render(automation.SubjectTemplate, vars),
		Body:    template.Render(automation.BodyTemplate, vars),
	}
}

// failJob records a failed attempt. The job reverts to pending while budget
// remains; the claim already incremented the attempt counter, so a job whose
// counter has reached its limit is failed for good.
func (w *WorkerService) failJob(
	ctx context.Context,
	job *model.Job,
	reason string,
	summary *model.TickSummary,
	logger *slog.Logger,
) {
	if err := w.jobs.Fail(ctx, job.ID, reason); err != nil {
		logger.Error("failed to record job failure", "error", err)
		return
	}

	if job.Attempts >= job.MaxAttempts {
		summary.Failed++
		w.metrics.JobProcessed(metrics.OutcomeFailed)
		logger.Error("job failed permanently", "attempt", job.Attempts, "reason", reason)
		return
	}
	summary.Retried++
	w.metrics.JobProcessed(metrics.OutcomeRetried)
	logger.Warn("job attempt failed, will retry",
		"attempt", job.Attempts,
		"max_attempts", job.MaxAttempts,
		"reason", reason,
	)
}

func (w *WorkerService) cancelJob(
	ctx context.Context,
	job *model.Job,
	reason string,
	summary *model.TickSummary,
	logger *slog.Logger,
) {
	if err := w.jobs.CancelProcessing(ctx, job.ID, reason); err != nil {
		logger.Error("failed to cancel job", "error", err)
		return
	}
	summary.Cancelled++
	w.metrics.JobProcessed(metrics.OutcomeCancelled)
	logger.Info("job cancelled", "reason", reason)
}

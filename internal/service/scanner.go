package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/leadforge/automation/internal/data"
	"github.com/leadforge/automation/internal/domain/model"
	"github.com/leadforge/automation/internal/observability/metrics"
)

// ScannerService turns stale checkout intents into scheduled jobs. It is the
// only evaluation path for checkout_abandoned automations; the synchronous
// evaluator never sees them.
type ScannerService struct {
	intents      IntentStore
	registry     *Registry
	scheduler    *SchedulerService
	batchSize    int
	defaultDelay time.Duration
	timeProvider data.TimeProvider
	metrics      *metrics.JobMetrics
	logger       *slog.Logger
}

// ScannerServiceOptions holds the dependencies for creating a ScannerService.
type ScannerServiceOptions struct {
	Intents   IntentStore
	Registry  *Registry
	Scheduler *SchedulerService
	// IntentBatchSize caps how many stale intents one scan inspects per
	// automation.
	IntentBatchSize int
	// DefaultAbandonmentDelay applies when the automation's trigger config
	// does not set its own threshold.
	DefaultAbandonmentDelay time.Duration
	TimeProvider            data.TimeProvider
	Metrics                 *metrics.JobMetrics
	Logger                  *slog.Logger
}

// NewScannerService creates a new ScannerService with the given dependencies.
func NewScannerService(opts ScannerServiceOptions) *ScannerService {
	if opts.TimeProvider == nil {
		opts.TimeProvider = &data.RealTimeProvider{}
	}
	if opts.IntentBatchSize <= 0 {
		opts.IntentBatchSize = 100
	}
	if opts.DefaultAbandonmentDelay <= 0 {
		opts.DefaultAbandonmentDelay = 30 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &ScannerService{
		intents:      opts.Intents,
		registry:     opts.Registry,
		scheduler:    opts.Scheduler,
		batchSize:    opts.IntentBatchSize,
		defaultDelay: opts.DefaultAbandonmentDelay,
		timeProvider: opts.TimeProvider,
		metrics:      opts.Metrics,
		logger:       opts.Logger.With("component", "scanner"),
	}
}

// Scan finds pending intents that have sat past each checkout_abandoned
// automation's threshold and schedules a recovery job for each. An intent is
// flipped to automation_sent only after a job was actually created; a Skipped
// schedule leaves it pending for a later scan once the active job clears.
// Returns how many intents were flagged.
func (s *ScannerService) Scan(ctx context.Context) (int, error) {
	automations, err := s.registry.Enabled(ctx)
	if err != nil {
		return 0, err
	}

	flagged := 0
	for i := range automations {
		automation := &automations[i]
		if automation.TriggerType != model.TriggerCheckoutAbandoned {
			continue
		}

		n, err := s.scanAutomation(ctx, automation)
		flagged += n
		if err != nil {
			s.logger.Error("abandoned checkout scan failed",
				"automation_id", automation.ID,
				"error", err,
			)
		}
	}
	return flagged, nil
}

func (s *ScannerService) scanAutomation(ctx context.Context, automation *model.Automation) (int, error) {
	trigger, err := automation.Trigger()
	if err != nil {
		return 0, err
	}
	cfg, ok := trigger.(*model.CheckoutAbandonedConfig)
	if !ok {
		return 0, fmt.Errorf("automation %s: unexpected trigger config type", automation.ID)
	}

	delay := s.defaultDelay
	if cfg.AbandonmentDelayMinutes > 0 {
		delay = time.Duration(cfg.AbandonmentDelayMinutes) * time.Minute
	}

	query := model.StaleIntentQuery{
		Threshold: s.timeProvider.Now().UTC().Add(-delay),
		Limit:     s.batchSize,
	}
	if cfg.PageSlug != "" {
		slug := cfg.PageSlug
		query.PageSlug = &slug
	}

	stale, err := s.intents.FindStale(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("find stale intents: %w", err)
	}

	flagged := 0
	for i := range stale {
		intent := &stale[i]
		if intent.Email == nil || *intent.Email == "" {
			// Anonymous checkout; nothing to send to.
			continue
		}

		result, err := s.scheduler.Schedule(ctx, automation, recipientFromIntent(intent))
		if err != nil {
			s.logger.Error("failed to schedule recovery job",
				"automation_id", automation.ID,
				"intent_id", intent.ID,
				"error", err,
			)
			continue
		}
		if result.Skipped {
			continue
		}

		if err := s.intents.MarkAutomationSent(ctx, intent.ID); err != nil {
			// The job exists but the intent stayed pending; the duplicate
			// gate stops the next scan from double-sending.
			s.logger.Error("failed to flag intent",
				"intent_id", intent.ID,
				"job_id", result.JobID,
				"error", err,
			)
			continue
		}

		s.metrics.IntentFlagged()
		flagged++
	}
	return flagged, nil
}

func recipientFromIntent(intent *model.CommerceIntent) Recipient {
	recipient := Recipient{
		Name: intent.Name,
		Data: map[string]string{
			"checkout_url": intent.CheckoutURL,
		},
	}
	if intent.Email != nil {
		recipient.Email = *intent.Email
	}
	if intent.ProductName != nil {
		recipient.Data["produto"] = *intent.ProductName
	}
	if intent.ProductPrice != nil {
		recipient.Data["preco"] = *intent.ProductPrice
	}
	if intent.PageSlug != nil {
		recipient.Data["pagina"] = *intent.PageSlug
	}
	return recipient
}

package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/leadforge/automation/internal/data"
	"github.com/leadforge/automation/internal/domain/model"
)

func abandonedAutomation(t *testing.T, delayMinutes int) model.Automation {
	t.Helper()
	raw, err := model.EncodeTriggerConfig(model.CheckoutAbandonedConfig{
		AbandonmentDelayMinutes: delayMinutes,
	})
	require.NoError(t, err)
	return model.Automation{
		ID:               "auto-cart",
		Name:             "cart recovery",
		Enabled:          true,
		TriggerType:      model.TriggerCheckoutAbandoned,
		RawTriggerConfig: raw,
	}
}

func newTestScanner(
	t *testing.T,
	intents IntentStore,
	jobs JobStore,
	automations AutomationStore,
) (*ScannerService, *data.FixedTimeProvider) {
	t.Helper()
	tp := data.NewFixedTimeProvider(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	registry := NewRegistry(automations, nil, nil)
	scheduler := NewSchedulerService(SchedulerServiceOptions{
		Jobs:         jobs,
		Registry:     registry,
		TimeProvider: tp,
	})
	scanner := NewScannerService(ScannerServiceOptions{
		Intents:                 intents,
		Registry:                registry,
		Scheduler:               scheduler,
		IntentBatchSize:         50,
		DefaultAbandonmentDelay: 30 * time.Minute,
		TimeProvider:            tp,
	})
	return scanner, tp
}

func staleIntent(id string, email *string) model.CommerceIntent {
	name := "Maria"
	product := "Course"
	return model.CommerceIntent{
		ID:          id,
		VisitorID:   "v1",
		Email:       email,
		Name:        &name,
		CheckoutURL: "https://shop.example/checkout/abc",
		ProductName: &product,
		Status:      model.IntentStatusPending,
	}
}

func TestScanSchedulesRecoveryJobAndFlagsIntent(t *testing.T) {
	intents := &mockIntentStore{}
	jobs := &mockJobStore{}
	automations := &mockAutomationStore{}
	scanner, tp := newTestScanner(t, intents, jobs, automations)

	email := "shopper@example.com"
	automations.On("ListEnabled", mock.Anything).
		Return([]model.Automation{abandonedAutomation(t, 45)}, nil)
	intents.On("FindStale", mock.Anything, mock.MatchedBy(func(q model.StaleIntentQuery) bool {
		// 45 minutes from the trigger config, not the engine default.
		return q.Threshold.Equal(tp.Now().Add(-45 * time.Minute))
	})).Return([]model.CommerceIntent{staleIntent("intent-1", &email)}, nil)
	jobs.On("HasActiveJob", mock.Anything, "auto-cart", email).Return(false, nil)
	jobs.On("Insert", mock.Anything, mock.MatchedBy(func(p model.NewJobParams) bool {
		return p.RecipientEmail == email && p.RecipientData["checkout_url"] != ""
	})).Return(&model.Job{ID: "job-1"}, nil)
	intents.On("MarkAutomationSent", mock.Anything, "intent-1").Return(nil)

	flagged, err := scanner.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, flagged)
	intents.AssertExpectations(t)
	jobs.AssertExpectations(t)
}

func TestScanLeavesIntentPendingOnSkip(t *testing.T) {
	intents := &mockIntentStore{}
	jobs := &mockJobStore{}
	automations := &mockAutomationStore{}
	scanner, _ := newTestScanner(t, intents, jobs, automations)

	email := "shopper@example.com"
	automations.On("ListEnabled", mock.Anything).
		Return([]model.Automation{abandonedAutomation(t, 0)}, nil)
	intents.On("FindStale", mock.Anything, mock.Anything).
		Return([]model.CommerceIntent{staleIntent("intent-1", &email)}, nil)
	jobs.On("HasActiveJob", mock.Anything, "auto-cart", email).Return(true, nil)

	flagged, err := scanner.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, flagged)
	intents.AssertNotCalled(t, "MarkAutomationSent", mock.Anything, mock.Anything)
}

func TestScanSkipsAnonymousIntents(t *testing.T) {
	intents := &mockIntentStore{}
	jobs := &mockJobStore{}
	automations := &mockAutomationStore{}
	scanner, _ := newTestScanner(t, intents, jobs, automations)

	automations.On("ListEnabled", mock.Anything).
		Return([]model.Automation{abandonedAutomation(t, 0)}, nil)
	intents.On("FindStale", mock.Anything, mock.Anything).
		Return([]model.CommerceIntent{staleIntent("intent-1", nil)}, nil)

	flagged, err := scanner.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, flagged)
	jobs.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestScanIgnoresBehavioralAutomations(t *testing.T) {
	intents := &mockIntentStore{}
	automations := &mockAutomationStore{}
	scanner, _ := newTestScanner(t, intents, &mockJobStore{}, automations)

	automations.On("ListEnabled", mock.Anything).Return([]model.Automation{
		{ID: "auto-exit", Enabled: true, TriggerType: model.TriggerPageExit},
	}, nil)

	flagged, err := scanner.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, flagged)
	intents.AssertNotCalled(t, "FindStale", mock.Anything, mock.Anything)
}

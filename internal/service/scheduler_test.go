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
	apperrors "github.com/leadforge/automation/internal/errors"
)

func newTestScheduler(jobs JobStore, automations AutomationStore) (*SchedulerService, *data.FixedTimeProvider) {
	tp := data.NewFixedTimeProvider(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	registry := NewRegistry(automations, nil, nil)
	return NewSchedulerService(SchedulerServiceOptions{
		Jobs:         jobs,
		Registry:     registry,
		MaxAttempts:  3,
		TimeProvider: tp,
	}), tp
}

func TestScheduleAppliesAutomationDelay(t *testing.T) {
	jobs := &mockJobStore{}
	scheduler, tp := newTestScheduler(jobs, &mockAutomationStore{})

	automation := model.Automation{ID: "auto-1", DelaySeconds: 600}
	wantDue := tp.Now().Add(10 * time.Minute)

	jobs.On("HasActiveJob", mock.Anything, "auto-1", "lead@example.com").Return(false, nil)
	jobs.On("Insert", mock.Anything, mock.MatchedBy(func(p model.NewJobParams) bool {
		return p.ScheduledFor.Equal(wantDue) && p.MaxAttempts == 3
	})).Return(&model.Job{ID: "job-1", ScheduledFor: wantDue}, nil)

	result, err := scheduler.Schedule(context.Background(), &automation,
		Recipient{Email: "lead@example.com"})
	require.NoError(t, err)
	assert.False(t, result.Skipped)
	assert.Equal(t, "job-1", result.JobID)
	jobs.AssertExpectations(t)
}

func TestScheduleSkipsWhenActiveJobExists(t *testing.T) {
	jobs := &mockJobStore{}
	scheduler, _ := newTestScheduler(jobs, &mockAutomationStore{})

	jobs.On("HasActiveJob", mock.Anything, "auto-1", "lead@example.com").Return(true, nil)

	result, err := scheduler.Schedule(context.Background(), &model.Automation{ID: "auto-1"},
		Recipient{Email: "lead@example.com"})
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	jobs.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestScheduleTreatsUniqueViolationAsSkip(t *testing.T) {
	jobs := &mockJobStore{}
	scheduler, _ := newTestScheduler(jobs, &mockAutomationStore{})

	// Two schedulers raced past the pre-check; the index caught the loser.
	jobs.On("HasActiveJob", mock.Anything, "auto-1", "lead@example.com").Return(false, nil)
	jobs.On("Insert", mock.Anything, mock.Anything).Return(nil, data.ErrDuplicateActiveJob)

	result, err := scheduler.Schedule(context.Background(), &model.Automation{ID: "auto-1"},
		Recipient{Email: "lead@example.com"})
	require.NoError(t, err)
	assert.True(t, result.Skipped)
}

func TestScheduleRejectsMissingEmail(t *testing.T) {
	scheduler, _ := newTestScheduler(&mockJobStore{}, &mockAutomationStore{})

	_, err := scheduler.Schedule(context.Background(), &model.Automation{ID: "auto-1"},
		Recipient{Email: "   "})
	require.Error(t, err)
}

func TestHandleEventSchedulesForEachMatch(t *testing.T) {
	jobs := &mockJobStore{}
	automations := &mockAutomationStore{}
	scheduler, _ := newTestScheduler(jobs, automations)

	exitCfg, err := model.EncodeTriggerConfig(model.PageExitConfig{})
	require.NoError(t, err)
	dwellCfg, err := model.EncodeTriggerConfig(model.TimeOnPageConfig{MinSeconds: 300})
	require.NoError(t, err)

	automations.On("ListEnabled", mock.Anything).Return([]model.Automation{
		{ID: "auto-exit", TriggerType: model.TriggerPageExit, RawTriggerConfig: exitCfg},
		{ID: "auto-dwell", TriggerType: model.TriggerTimeOnPage, RawTriggerConfig: dwellCfg},
	}, nil)
	jobs.On("HasActiveJob", mock.Anything, "auto-exit", "lead@example.com").Return(false, nil)
	jobs.On("Insert", mock.Anything, mock.MatchedBy(func(p model.NewJobParams) bool {
		return p.AutomationID == "auto-exit"
	})).Return(&model.Job{ID: "job-1"}, nil)

	outcome, err := scheduler.HandleEvent(context.Background(), &model.BehavioralEvent{
		VisitorID:  "v1",
		Email:      "lead@example.com",
		ExitIntent: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.Matched)
	assert.Equal(t, 1, outcome.Scheduled)
	assert.Equal(t, 0, outcome.Skipped)
	jobs.AssertExpectations(t)
}

func TestHandleEventRejectsInvalidEvent(t *testing.T) {
	scheduler, _ := newTestScheduler(&mockJobStore{}, &mockAutomationStore{})

	_, err := scheduler.HandleEvent(context.Background(), &model.BehavioralEvent{VisitorID: "v1"})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

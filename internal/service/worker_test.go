package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/leadforge/automation/internal/data"
	"github.com/leadforge/automation/internal/domain/model"
	"github.com/leadforge/automation/internal/mail"
)

func newTestWorker(jobs JobStore, automations AutomationStore, sender mail.Sender) *WorkerService {
	return NewWorkerService(WorkerServiceOptions{
		Jobs:         jobs,
		Automations:  automations,
		Sender:       sender,
		BatchSize:    10,
		StoreRetry:   data.BackoffConfig{MaxAttempts: 1, BaseDelay: time.Millisecond},
		TimeProvider: data.NewFixedTimeProvider(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
	})
}

func claimedJob(id string, attempts int) model.Job {
	name := "Maria"
	return model.Job{
		ID:             id,
		AutomationID:   "auto-1",
		RecipientEmail: "lead@example.com",
		RecipientName:  &name,
		RecipientData:  map[string]string{"produto": "Course"},
		Status:         model.JobStatusProcessing,
		Attempts:       attempts,
		MaxAttempts:    3,
		ScheduledFor:   time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC),
	}
}

func enabledAutomation() *model.Automation {
	return &model.Automation{
		ID:              "auto-1",
		Enabled:         true,
		SubjectTemplate: "Olá {{nome}}",
		BodyTemplate:    "Sobre {{produto}}, {{nome}} <{{email}}>",
	}
}

func TestTickCompletesJob(t *testing.T) {
	jobs := &mockJobStore{}
	automations := &mockAutomationStore{}
	sender := &mockSender{}
	worker := newTestWorker(jobs, automations, sender)

	jobs.On("ReleaseStuck", mock.Anything, mock.Anything).Return(0, nil)
	jobs.On("ClaimDue", mock.Anything, 10).Return([]model.Job{claimedJob("job-1", 1)}, nil)
	automations.On("GetByID", mock.Anything, "auto-1").Return(enabledAutomation(), nil)
	sender.On("Send", mock.Anything, mock.MatchedBy(func(msg mail.Message) bool {
		return msg.ToEmail == "lead@example.com" &&
			msg.Subject == "Olá Maria" &&
			msg.Body == "Sobre Course, Maria <lead@example.com>"
	})).Return(nil)
	jobs.On("Complete", mock.Anything, "job-1").Return(nil)

	summary, err := worker.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Seen)
	assert.Equal(t, 1, summary.Completed)
	jobs.AssertExpectations(t)
	sender.AssertExpectations(t)
}

func TestTickRetriesFailedSendWhileBudgetRemains(t *testing.T) {
	jobs := &mockJobStore{}
	automations := &mockAutomationStore{}
	sender := &mockSender{}
	worker := newTestWorker(jobs, automations, sender)

	jobs.On("ReleaseStuck", mock.Anything, mock.Anything).Return(0, nil)
	jobs.On("ClaimDue", mock.Anything, 10).Return([]model.Job{claimedJob("job-1", 1)}, nil)
	automations.On("GetByID", mock.Anything, "auto-1").Return(enabledAutomation(), nil)
	sender.On("Send", mock.Anything, mock.Anything).Return(errors.New("provider 500"))
	jobs.On("Fail", mock.Anything, "job-1", "provider 500").Return(nil)

	summary, err := worker.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Retried)
	assert.Equal(t, 0, summary.Failed)
}

func TestTickFailsJobOnFinalAttempt(t *testing.T) {
	jobs := &mockJobStore{}
	automations := &mockAutomationStore{}
	sender := &mockSender{}
	worker := newTestWorker(jobs, automations, sender)

	// Third claim of a three-attempt job.
	jobs.On("ReleaseStuck", mock.Anything, mock.Anything).Return(0, nil)
	jobs.On("ClaimDue", mock.Anything, 10).Return([]model.Job{claimedJob("job-1", 3)}, nil)
	automations.On("GetByID", mock.Anything, "auto-1").Return(enabledAutomation(), nil)
	sender.On("Send", mock.Anything, mock.Anything).Return(errors.New("provider 500"))
	jobs.On("Fail", mock.Anything, "job-1", "provider 500").Return(nil)

	summary, err := worker.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 0, summary.Retried)
}

func TestTickCancelsJobWhenAutomationDisabled(t *testing.T) {
	jobs := &mockJobStore{}
	automations := &mockAutomationStore{}
	sender := &mockSender{}
	worker := newTestWorker(jobs, automations, sender)

	disabled := enabledAutomation()
	disabled.Enabled = false

	jobs.On("ReleaseStuck", mock.Anything, mock.Anything).Return(0, nil)
	jobs.On("ClaimDue", mock.Anything, 10).Return([]model.Job{claimedJob("job-1", 1)}, nil)
	automations.On("GetByID", mock.Anything, "auto-1").Return(disabled, nil)
	jobs.On("CancelProcessing", mock.Anything, "job-1", "automation disabled").Return(nil)

	summary, err := worker.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Cancelled)
	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestTickCancelsJobWhenAutomationDeleted(t *testing.T) {
	jobs := &mockJobStore{}
	automations := &mockAutomationStore{}
	worker := newTestWorker(jobs, automations, &mockSender{})

	jobs.On("ReleaseStuck", mock.Anything, mock.Anything).Return(0, nil)
	jobs.On("ClaimDue", mock.Anything, 10).Return([]model.Job{claimedJob("job-1", 1)}, nil)
	automations.On("GetByID", mock.Anything, "auto-1").Return(nil, data.ErrAutomationNotFound)
	jobs.On("CancelProcessing", mock.Anything, "job-1", "automation deleted").Return(nil)

	summary, err := worker.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Cancelled)
}

func TestTickFailsPermanentlyWithoutTransport(t *testing.T) {
	jobs := &mockJobStore{}
	automations := &mockAutomationStore{}
	worker := newTestWorker(jobs, automations, nil)

	jobs.On("ReleaseStuck", mock.Anything, mock.Anything).Return(0, nil)
	jobs.On("ClaimDue", mock.Anything, 10).Return([]model.Job{claimedJob("job-1", 1)}, nil)
	automations.On("GetByID", mock.Anything, "auto-1").Return(enabledAutomation(), nil)
	jobs.On("FailPermanent", mock.Anything, "job-1", "mail transport not configured").Return(nil)

	summary, err := worker.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	jobs.AssertNotCalled(t, "Fail", mock.Anything, mock.Anything, mock.Anything)
}

func TestTickIsolatesJobFailures(t *testing.T) {
	jobs := &mockJobStore{}
	automations := &mockAutomationStore{}
	sender := &mockSender{}
	worker := newTestWorker(jobs, automations, sender)

	bad := claimedJob("job-bad", 1)
	good := claimedJob("job-good", 1)

	jobs.On("ReleaseStuck", mock.Anything, mock.Anything).Return(0, nil)
	jobs.On("ClaimDue", mock.Anything, 10).Return([]model.Job{bad, good}, nil)
	automations.On("GetByID", mock.Anything, "auto-1").Return(enabledAutomation(), nil)
	sender.On("Send", mock.Anything, mock.MatchedBy(func(msg mail.Message) bool {
		return msg.ToEmail == bad.RecipientEmail
	})).Return(errors.New("boom")).Once()
	sender.On("Send", mock.Anything, mock.Anything).Return(nil)
	jobs.On("Fail", mock.Anything, "job-bad", "boom").Return(nil)
	jobs.On("Complete", mock.Anything, "job-good").Return(nil)

	summary, err := worker.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Seen)
	assert.Equal(t, 1, summary.Completed)
	assert.Equal(t, 1, summary.Retried)
}

func TestTickWithNothingDue(t *testing.T) {
	jobs := &mockJobStore{}
	worker := newTestWorker(jobs, &mockAutomationStore{}, &mockSender{})

	jobs.On("ReleaseStuck", mock.Anything, mock.Anything).Return(0, nil)
	jobs.On("ClaimDue", mock.Anything, 10).Return(nil, model.ErrNoJobsDue)

	summary, err := worker.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Seen)
}

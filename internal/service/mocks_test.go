package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/leadforge/automation/internal/domain/model"
	"github.com/leadforge/automation/internal/mail"
)

// Mock implementations for testing.

type mockJobStore struct {
	mock.Mock
}

func (m *mockJobStore) Insert(ctx context.Context, params model.NewJobParams) (*model.Job, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Job), args.Error(1)
}

func (m *mockJobStore) HasActiveJob(ctx context.Context, automationID, recipientEmail string) (bool, error) {
	args := m.Called(ctx, automationID, recipientEmail)
	return args.Bool(0), args.Error(1)
}

func (m *mockJobStore) ClaimDue(ctx context.Context, limit int) ([]model.Job, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Job), args.Error(1)
}

func (m *mockJobStore) ReleaseStuck(ctx context.Context, olderThan time.Duration) (int, error) {
	args := m.Called(ctx, olderThan)
	return args.Int(0), args.Error(1)
}

func (m *mockJobStore) Complete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockJobStore) Fail(ctx context.Context, id, errorMessage string) error {
	return m.Called(ctx, id, errorMessage).Error(0)
}

func (m *mockJobStore) FailPermanent(ctx context.Context, id, errorMessage string) error {
	return m.Called(ctx, id, errorMessage).Error(0)
}

func (m *mockJobStore) CancelProcessing(ctx context.Context, id, reason string) error {
	return m.Called(ctx, id, reason).Error(0)
}

func (m *mockJobStore) Cancel(ctx context.Context, id, reason string) error {
	return m.Called(ctx, id, reason).Error(0)
}

func (m *mockJobStore) CancelPendingByAutomation(ctx context.Context, automationID, reason string) (int, error) {
	args := m.Called(ctx, automationID, reason)
	return args.Int(0), args.Error(1)
}

func (m *mockJobStore) GetByID(ctx context.Context, id string) (*model.Job, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Job), args.Error(1)
}

func (m *mockJobStore) List(ctx context.Context, opts model.JobListOptions) ([]model.Job, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Job), args.Error(1)
}

func (m *mockJobStore) Stats(ctx context.Context) (*model.JobStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.JobStats), args.Error(1)
}

type mockAutomationStore struct {
	mock.Mock
}

func (m *mockAutomationStore) Create(ctx context.Context, req *model.CreateAutomationRequest) (*model.Automation, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Automation), args.Error(1)
}

func (m *mockAutomationStore) GetByID(ctx context.Context, id string) (*model.Automation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Automation), args.Error(1)
}

func (m *mockAutomationStore) List(ctx context.Context, limit, offset int) ([]model.Automation, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Automation), args.Error(1)
}

func (m *mockAutomationStore) ListEnabled(ctx context.Context) ([]model.Automation, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Automation), args.Error(1)
}

func (m *mockAutomationStore) Update(ctx context.Context, id string, req model.UpdateAutomationRequest) (*model.Automation, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Automation), args.Error(1)
}

func (m *mockAutomationStore) Delete(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

type mockIntentStore struct {
	mock.Mock
}

func (m *mockIntentStore) Create(ctx context.Context, req *model.CreateIntentRequest) (*model.CommerceIntent, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CommerceIntent), args.Error(1)
}

func (m *mockIntentStore) GetByID(ctx context.Context, id string) (*model.CommerceIntent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CommerceIntent), args.Error(1)
}

func (m *mockIntentStore) FindStale(ctx context.Context, q model.StaleIntentQuery) ([]model.CommerceIntent, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CommerceIntent), args.Error(1)
}

func (m *mockIntentStore) MarkAutomationSent(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockIntentStore) MarkConverted(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(ctx context.Context, msg mail.Message) error {
	return m.Called(ctx, msg).Error(0)
}

type mockRegistryCache struct {
	mock.Mock
}

func (m *mockRegistryCache) GetEnabled(ctx context.Context) ([]model.Automation, bool) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).([]model.Automation), args.Bool(1)
}

func (m *mockRegistryCache) SetEnabled(ctx context.Context, automations []model.Automation) error {
	return m.Called(ctx, automations).Error(0)
}

func (m *mockRegistryCache) Invalidate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

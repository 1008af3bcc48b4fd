// Package service provides business logic services for the automation engine.
package service

import (
	"context"
	"time"

	"github.com/leadforge/automation/internal/domain/model"
)

// AutomationStore is the persistence surface for automation definitions.
type AutomationStore interface {
	Create(ctx context.Context, req *model.CreateAutomationRequest) (*model.Automation, error)
	GetByID(ctx context.Context, id string) (*model.Automation, error)
	List(ctx context.Context, limit, offset int) ([]model.Automation, error)
	ListEnabled(ctx context.Context) ([]model.Automation, error)
	Update(ctx context.Context, id string, req model.UpdateAutomationRequest) (*model.Automation, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// JobStore is the persistence surface for scheduled send jobs.
type JobStore interface {
	Insert(ctx context.Context, params model.NewJobParams) (*model.Job, error)
	HasActiveJob(ctx context.Context, automationID, recipientEmail string) (bool, error)
	ClaimDue(ctx context.Context, limit int) ([]model.Job, error)
	ReleaseStuck(ctx context.Context, olderThan time.Duration) (int, error)
	Complete(ctx context.Context, id string) error
	Fail(ctx context.Context, id, errorMessage string) error
	FailPermanent(ctx context.Context, id, errorMessage string) error
	CancelProcessing(ctx context.Context, id, reason string) error
	Cancel(ctx context.Context, id, reason string) error
	CancelPendingByAutomation(ctx context.Context, automationID, reason string) (int, error)
	GetByID(ctx context.Context, id string) (*model.Job, error)
	List(ctx context.Context, opts model.JobListOptions) ([]model.Job, error)
	Stats(ctx context.Context) (*model.JobStats, error)
}

// IntentStore is the persistence surface for checkout intents.
type IntentStore interface {
	Create(ctx context.Context, req *model.CreateIntentRequest) (*model.CommerceIntent, error)
	GetByID(ctx context.Context, id string) (*model.CommerceIntent, error)
	FindStale(ctx context.Context, q model.StaleIntentQuery) ([]model.CommerceIntent, error)
	MarkAutomationSent(ctx context.Context, id string) error
	MarkConverted(ctx context.Context, id string) error
}

// RegistryCacheStore caches the enabled-automation registry.
type RegistryCacheStore interface {
	GetEnabled(ctx context.Context) ([]model.Automation, bool)
	SetEnabled(ctx context.Context, automations []model.Automation) error
	Invalidate(ctx context.Context) error
}

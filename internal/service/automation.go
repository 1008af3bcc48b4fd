package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/leadforge/automation/internal/data"
	"github.com/leadforge/automation/internal/domain/model"
	apperrors "github.com/leadforge/automation/internal/errors"
)

// AutomationService provides operator CRUD over automation definitions.
// Every write invalidates the registry cache so the evaluator and scanner
// see the change on their next read.
type AutomationService struct {
	store    AutomationStore
	registry *Registry
	logger   *slog.Logger
}

// AutomationServiceOptions holds the dependencies for creating an AutomationService.
type AutomationServiceOptions struct {
	Store    AutomationStore
	Registry *Registry
	Logger   *slog.Logger
}

// NewAutomationService creates a new AutomationService with the given dependencies.
func NewAutomationService(opts AutomationServiceOptions) *AutomationService {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &AutomationService{
		store:    opts.Store,
		registry: opts.Registry,
		logger:   opts.Logger.With("component", "automation_service"),
	}
}

// Create creates a new automation definition.
func (s *AutomationService) Create(
	ctx context.Context,
	req *model.CreateAutomationRequest,
) (*model.Automation, error) {
	if req == nil {
		return nil, apperrors.Validation("request body is required")
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	automation, err := s.store.Create(ctx, req)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "create automation")
	}

	s.registry.Invalidate(ctx)
	s.logger.Info("automation created",
		"automation_id", automation.ID,
		"trigger_type", automation.TriggerType,
	)
	return automation, nil
}

// Get retrieves an automation by ID.
func (s *AutomationService) Get(ctx context.Context, id string) (*model.Automation, error) {
	automation, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, data.ErrAutomationNotFound) {
			return nil, apperrors.NotFound("automation not found")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "get automation")
	}
	return automation, nil
}

// List retrieves automations, newest first.
func (s *AutomationService) List(ctx context.Context, limit, offset int) ([]model.Automation, error) {
	automations, err := s.store.List(ctx, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "list automations")
	}
	return automations, nil
}

// Update updates an automation. Nil request fields are unchanged.
func (s *AutomationService) Update(
	ctx context.Context,
	id string,
	req model.UpdateAutomationRequest,
) (*model.Automation, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	automation, err := s.store.Update(ctx, id, req)
	if err != nil {
		if errors.Is(err, data.ErrAutomationNotFound) {
			return nil, apperrors.NotFound("automation not found")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "update automation")
	}

	s.registry.Invalidate(ctx)
	s.logger.Info("automation updated", "automation_id", id, "enabled", automation.Enabled)
	return automation, nil
}

// Delete removes an automation. Its jobs survive for audit; the worker
// cancels pending ones at claim time.
func (s *AutomationService) Delete(ctx context.Context, id string) error {
	deleted, err := s.store.Delete(ctx, id)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "delete automation")
	}
	if !deleted {
		return apperrors.NotFound("automation not found")
	}

	s.registry.Invalidate(ctx)
	s.logger.Info("automation deleted", "automation_id", id)
	return nil
}

package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/leadforge/automation/internal/data"
	"github.com/leadforge/automation/internal/domain/model"
	apperrors "github.com/leadforge/automation/internal/errors"
)

// IntentService records checkout intents and conversions reported by the
// commerce collaborator.
type IntentService struct {
	intents IntentStore
	logger  *slog.Logger
}

// IntentServiceOptions holds the dependencies for creating an IntentService.
type IntentServiceOptions struct {
	Intents IntentStore
	Logger  *slog.Logger
}

// NewIntentService creates a new IntentService with the given dependencies.
func NewIntentService(opts IntentServiceOptions) *IntentService {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &IntentService{
		intents: opts.Intents,
		logger:  opts.Logger.With("component", "intent_service"),
	}
}

// Record stores a new pending checkout intent.
func (s *IntentService) Record(
	ctx context.Context,
	req *model.CreateIntentRequest,
) (*model.CommerceIntent, error) {
	if req == nil {
		return nil, apperrors.Validation("request body is required")
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	intent, err := s.intents.Create(ctx, req)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "record checkout intent")
	}

	s.logger.Info("checkout intent recorded",
		"intent_id", intent.ID,
		"visitor_id", intent.VisitorID,
	)
	return intent, nil
}

// Convert marks an intent as converted once the checkout completed. Both
// pending and automation_sent intents may convert; anything else conflicts.
func (s *IntentService) Convert(ctx context.Context, id string) error {
	err := s.intents.MarkConverted(ctx, id)
	if err == nil {
		s.logger.Info("checkout intent converted", "intent_id", id)
		return nil
	}

	if errors.Is(err, data.ErrIntentNotFound) {
		// Distinguish a missing row from one already converted.
		if _, getErr := s.intents.GetByID(ctx, id); getErr == nil {
			return apperrors.Conflict("intent already converted")
		}
		return apperrors.NotFound("checkout intent not found")
	}
	return apperrors.Wrap(err, apperrors.ErrCodeInternal, "convert checkout intent")
}

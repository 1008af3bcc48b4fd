package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leadforge/automation/internal/domain/model"
)

// Registry serves the enabled-automation list with a read-through cache in
// front of the store. Cache failures degrade to store reads, never to errors.
type Registry struct {
	store  AutomationStore
	cache  RegistryCacheStore
	logger *slog.Logger
}

// NewRegistry creates a Registry. cache may be nil to disable caching.
func NewRegistry(store AutomationStore, cache RegistryCacheStore, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{store: store, cache: cache, logger: logger.With("component", "registry")}
}

// Enabled returns all enabled automations, from cache when fresh.
func (r *Registry) Enabled(ctx context.Context) ([]model.Automation, error) {
	if r.cache != nil {
		if automations, ok := r.cache.GetEnabled(ctx); ok {
			return automations, nil
		}
	}

	automations, err := r.store.ListEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("load enabled automations: %w", err)
	}

	if r.cache != nil {
		if err := r.cache.SetEnabled(ctx, automations); err != nil {
			r.logger.Warn("failed to populate registry cache", "error", err)
		}
	}
	return automations, nil
}

// Invalidate drops the cached registry after an automation write.
func (r *Registry) Invalidate(ctx context.Context) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Invalidate(ctx); err != nil {
		r.logger.Warn("failed to invalidate registry cache", "error", err)
	}
}

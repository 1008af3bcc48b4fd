// Package devseed populates a development database with sample automations
// so the engine has something to evaluate out of the box. Never run in
// production mode.
package devseed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/leadforge/automation/internal/domain/model"
	"github.com/leadforge/automation/internal/service"
)

// Seed creates the sample automations when they do not exist yet. Existing
// definitions are left alone; seeding is keyed on automation name.
func Seed(ctx context.Context, automations *service.AutomationService, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "devseed")

	existing, err := automations.List(ctx, 100, 0)
	if err != nil {
		return fmt.Errorf("list automations: %w", err)
	}
	byName := make(map[string]bool, len(existing))
	for _, a := range existing {
		byName[a.Name] = true
	}

	for _, req := range sampleAutomations() {
		if byName[req.Name] {
			continue
		}
		created, err := automations.Create(ctx, &req)
		if err != nil {
			return fmt.Errorf("seed automation %q: %w", req.Name, err)
		}
		logger.Info("seeded automation",
			"automation_id", created.ID,
			"name", created.Name,
			"trigger_type", created.TriggerType,
		)
	}
	return nil
}

func sampleAutomations() []model.CreateAutomationRequest {
	return []model.CreateAutomationRequest{
		{
			Name:            "Welcome after signup form",
			SubjectTemplate: "Bem-vindo, {{nome}}!",
			BodyTemplate:    "<p>Olá {{nome}}, obrigado por se cadastrar.</p>",
			TriggerType:     model.TriggerFormSubmit,
			TriggerConfig:   mustConfig(model.FormSubmitConfig{FormID: "signup"}),
			DelaySeconds:    60,
		},
		{
			Name:            "Abandoned checkout recovery",
			SubjectTemplate: "Você esqueceu algo no carrinho",
			BodyTemplate:    "<p>Olá {{nome}}, finalize sua compra de {{produto}}: {{checkout_url}}</p>",
			TriggerType:     model.TriggerCheckoutAbandoned,
			TriggerConfig:   mustConfig(model.CheckoutAbandonedConfig{AbandonmentDelayMinutes: 30}),
			DelaySeconds:    0,
		},
		{
			Name:            "Exit intent on pricing page",
			SubjectTemplate: "Ainda com dúvidas?",
			BodyTemplate:    "<p>Olá {{nome}}, vimos que você visitou {{pagina}}. Podemos ajudar?</p>",
			TriggerType:     model.TriggerPageExit,
			TriggerConfig:   mustConfig(model.PageExitConfig{PageSlug: "pricing"}),
			DelaySeconds:    300,
		},
	}
}

func mustConfig(cfg model.TriggerConfig) json.RawMessage {
	raw, err := model.EncodeTriggerConfig(cfg)
	if err != nil {
		panic(err)
	}
	return raw
}

package service

import (
	"fmt"

	"github.com/leadforge/automation/internal/domain/model"
)

// Evaluator matches behavioral events against automation trigger conditions.
// It is pure: no clock, no storage, no side effects, which keeps trigger
// matching trivially testable.
type Evaluator struct{}

// NewEvaluator creates an Evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Matches reports whether the event satisfies the automation's trigger.
// Time-based triggers never match behavioral events; they belong to the
// scanner. An undecodable trigger config is an error so a misconfigured
// automation is surfaced instead of silently never firing.
func (e *Evaluator) Matches(automation *model.Automation, event *model.BehavioralEvent) (bool, error) {
	if !automation.TriggerType.Behavioral() {
		return false, nil
	}

	trigger, err := automation.Trigger()
	if err != nil {
		return false, fmt.Errorf("automation %s: %w", automation.ID, err)
	}

	switch cfg := trigger.(type) {
	case *model.FormSubmitConfig:
		return matchesFormSubmit(cfg, event), nil
	case *model.PageExitConfig:
		return pageMatches(cfg.PageSlug, event.PageSlug) && event.ExitIntent, nil
	case *model.TimeOnPageConfig:
		return matchesTimeOnPage(cfg, event), nil
	case *model.ExitWithoutConversionConfig:
		return matchesExitWithoutConversion(cfg, event), nil
	default:
		return false, nil
	}
}

// Evaluate returns the subset of automations whose trigger the event
// satisfies. Automations with broken trigger configs are skipped and
// collected into errs so one bad row cannot block the rest.
func (e *Evaluator) Evaluate(
	automations []model.Automation,
	event *model.BehavioralEvent,
) (matched []model.Automation, errs []error) {
	for i := range automations {
		ok, err := e.Matches(&automations[i], event)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			matched = append(matched, automations[i])
		}
	}
	return matched, errs
}

func matchesFormSubmit(cfg *model.FormSubmitConfig, event *model.BehavioralEvent) bool {
	if event.ConvertedTo == "" {
		return false
	}
	if cfg.FormID != "" && event.ConvertedTo != cfg.FormID {
		return false
	}
	return pageMatches(cfg.PageSlug, event.PageSlug)
}

func matchesTimeOnPage(cfg *model.TimeOnPageConfig, event *model.BehavioralEvent) bool {
	if cfg.MinSeconds <= 0 {
		return false
	}
	if event.TimeOnPageSeconds < cfg.MinSeconds {
		return false
	}
	return pageMatches(cfg.PageSlug, event.PageSlug)
}

func matchesExitWithoutConversion(cfg *model.ExitWithoutConversionConfig, event *model.BehavioralEvent) bool {
	// Fires only on the leave signal; a not-yet-converted visitor still on
	// the page is not an abandonment.
	if !event.ExitIntent {
		return false
	}
	if event.ConvertedTo != "" &&
		(cfg.ConversionTarget == "" || event.ConvertedTo == cfg.ConversionTarget) {
		// The visitor did convert; nothing to recover.
		return false
	}
	if cfg.MinSeconds > 0 && event.TimeOnPageSeconds < cfg.MinSeconds {
		return false
	}
	return pageMatches(cfg.PageSlug, event.PageSlug)
}

// pageMatches applies the optional page restriction. An empty restriction
// matches every page.
func pageMatches(restriction, slug string) bool {
	return restriction == "" || restriction == slug
}

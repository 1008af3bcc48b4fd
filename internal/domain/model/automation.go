// Package model defines the core data types used throughout the automation engine.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// TriggerType identifies the condition class that causes jobs to be created.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type TriggerType string

// ChannelType identifies the delivery channel for an automation's message.
type ChannelType string

const (
	// TriggerFormSubmit fires when a visitor submits a tracked form.
	TriggerFormSubmit TriggerType = "form_submit"
	// TriggerCheckoutAbandoned fires when a checkout intent goes stale.
	// It is evaluated by the scanner over elapsed time, never by the
	// synchronous evaluator.
	TriggerCheckoutAbandoned TriggerType = "checkout_abandoned"
	// TriggerPageExit fires on an exit-intent signal.
	TriggerPageExit TriggerType = "page_exit"
	// TriggerTimeOnPage fires once a visitor has dwelled long enough.
	TriggerTimeOnPage TriggerType = "time_on_page"
	// TriggerExitWithoutConversion fires when a visitor leaves without
	// reaching the configured conversion target.
	TriggerExitWithoutConversion TriggerType = "exit_without_conversion"

	// ChannelEmail is the only delivery channel currently supported.
	ChannelEmail ChannelType = "email"
)

// UnmarshalText implements encoding.TextUnmarshaler for TriggerType.
func (t *TriggerType) UnmarshalText(text []byte) error {
	v := TriggerType(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid trigger type: %q", v)
	}
	*t = v
	return nil
}

// Valid returns true if the TriggerType is a known trigger.
func (t TriggerType) Valid() bool {
	switch t {
	case TriggerFormSubmit, TriggerCheckoutAbandoned, TriggerPageExit,
		TriggerTimeOnPage, TriggerExitWithoutConversion:
		return true
	default:
		return false
	}
}

// Behavioral returns true if the trigger is evaluated synchronously against
// live behavioral events. checkout_abandoned is time-based and only reached
// through the scanner.
func (t TriggerType) Behavioral() bool {
	return t.Valid() && t != TriggerCheckoutAbandoned
}

// Valid returns true if the ChannelType is supported.
func (c ChannelType) Valid() bool {
	return c == ChannelEmail
}

// TriggerConfig is the tagged union of per-trigger configuration. Each
// variant carries only the fields its evaluator branch reads, so matching
// logic gets compile-time-checked fields instead of dynamic map lookups.
type TriggerConfig interface {
	// TriggerType reports which trigger variant this config belongs to.
	TriggerType() TriggerType
}

// FormSubmitConfig configures form_submit automations.
type FormSubmitConfig struct {
	// FormID matches the event's conversion target. Empty matches any form.
	FormID string `json:"formId,omitempty"`
	// PageSlug restricts the trigger to one page. Empty means unrestricted.
	PageSlug string `json:"pageSlug,omitempty"`
}

// PageExitConfig configures page_exit automations.
type PageExitConfig struct {
	// PageSlug restricts the trigger to one page. Empty means unrestricted.
	PageSlug string `json:"pageSlug,omitempty"`
}

// TimeOnPageConfig configures time_on_page automations.
type TimeOnPageConfig struct {
	PageSlug string `json:"pageSlug,omitempty"`
	// MinSeconds is the dwell threshold that must be reached.
	MinSeconds int `json:"minSeconds"`
}

// ExitWithoutConversionConfig configures exit_without_conversion automations.
type ExitWithoutConversionConfig struct {
	PageSlug string `json:"pageSlug,omitempty"`
	// ConversionTarget is the conversion the visitor was expected to reach.
	ConversionTarget string `json:"conversionTarget"`
	// MinSeconds optionally requires a dwell threshold on top of the
	// missed conversion. Zero disables the check.
	MinSeconds int `json:"minSeconds,omitempty"`
}

// CheckoutAbandonedConfig configures checkout_abandoned automations.
type CheckoutAbandonedConfig struct {
	// PageSlug restricts the scan to intents from one page. Empty means all.
	PageSlug string `json:"pageSlug,omitempty"`
	// AbandonmentDelayMinutes is how long an intent must sit pending before
	// it counts as abandoned. Zero falls back to the engine default.
	AbandonmentDelayMinutes int `json:"abandonmentDelayMinutes,omitempty"`
}

// TriggerType implementations for each variant.
func (FormSubmitConfig) TriggerType() TriggerType            { return TriggerFormSubmit }
func (PageExitConfig) TriggerType() TriggerType              { return TriggerPageExit }
func (TimeOnPageConfig) TriggerType() TriggerType            { return TriggerTimeOnPage }
func (ExitWithoutConversionConfig) TriggerType() TriggerType { return TriggerExitWithoutConversion }
func (CheckoutAbandonedConfig) TriggerType() TriggerType     { return TriggerCheckoutAbandoned }

// DecodeTriggerConfig decodes the stored JSON config into the typed variant
// for the given trigger type. A nil/empty raw config decodes to the variant's
// zero value so optional restrictions default to "unrestricted".
func DecodeTriggerConfig(t TriggerType, raw json.RawMessage) (TriggerConfig, error) {
	decode := func(dst TriggerConfig) (TriggerConfig, error) {
		if len(raw) == 0 {
			return dst, nil
		}
		if err := json.Unmarshal(raw, dst); err != nil {
			return nil, fmt.Errorf("decode %s trigger config: %w", t, err)
		}
		return dst, nil
	}

	switch t {
	case TriggerFormSubmit:
		return decode(&FormSubmitConfig{})
	case TriggerPageExit:
		return decode(&PageExitConfig{})
	case TriggerTimeOnPage:
		return decode(&TimeOnPageConfig{})
	case TriggerExitWithoutConversion:
		return decode(&ExitWithoutConversionConfig{})
	case TriggerCheckoutAbandoned:
		return decode(&CheckoutAbandonedConfig{})
	default:
		return nil, fmt.Errorf("invalid trigger type: %q", t)
	}
}

// EncodeTriggerConfig marshals a typed trigger config back to JSON for storage.
func EncodeTriggerConfig(cfg TriggerConfig) (json.RawMessage, error) {
	if cfg == nil {
		return json.RawMessage(`{}`), nil
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode trigger config: %w", err)
	}
	return raw, nil
}

// Automation is an operator-defined rule pairing a trigger condition with a
// message template and a delay. The automation core only ever reads these;
// they are created and edited through the operator API.
type Automation struct {
	ID               string          `json:"id"                db:"id"`
	Name             string          `json:"name"              db:"name"`
	Channel          ChannelType     `json:"channel"           db:"channel"`
	SubjectTemplate  string          `json:"subject_template"  db:"subject_template"`
	BodyTemplate     string          `json:"body_template"     db:"body_template"`
	Enabled          bool            `json:"enabled"           db:"enabled"`
	TriggerType      TriggerType     `json:"trigger_type"      db:"trigger_type"`
	RawTriggerConfig json.RawMessage `json:"trigger_config"    db:"trigger_config"`
	DelaySeconds     int             `json:"delay_seconds"     db:"delay_seconds"`
	CreatedAt        time.Time       `json:"created_at"        db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"        db:"updated_at"`
}

// Trigger decodes the stored trigger config into its typed variant.
func (a *Automation) Trigger() (TriggerConfig, error) {
	return DecodeTriggerConfig(a.TriggerType, a.RawTriggerConfig)
}

// Delay returns the delay-before-send as a duration.
func (a *Automation) Delay() time.Duration {
	return time.Duration(a.DelaySeconds) * time.Second
}

// CreateAutomationRequest is the payload for creating an automation.
type CreateAutomationRequest struct {
	Name            string          `json:"name"`
	Channel         ChannelType     `json:"channel,omitempty"`
	SubjectTemplate string          `json:"subject_template"`
	BodyTemplate    string          `json:"body_template"`
	Enabled         *bool           `json:"enabled,omitempty"`
	TriggerType     TriggerType     `json:"trigger_type"`
	TriggerConfig   json.RawMessage `json:"trigger_config,omitempty"`
	DelaySeconds    int             `json:"delay_seconds"`
}

// Validate validates the CreateAutomationRequest fields.
func (r *CreateAutomationRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required and cannot be empty")
	}
	if r.Channel != "" && !r.Channel.Valid() {
		return fmt.Errorf("channel must be one of: %s", ChannelEmail)
	}
	if strings.TrimSpace(r.SubjectTemplate) == "" {
		return errors.New("subject template is required and cannot be empty")
	}
	if strings.TrimSpace(r.BodyTemplate) == "" {
		return errors.New("body template is required and cannot be empty")
	}
	if !r.TriggerType.Valid() {
		return fmt.Errorf("invalid trigger type: %q", r.TriggerType)
	}
	if r.DelaySeconds < 0 {
		return errors.New("delay seconds must be non-negative")
	}
	if _, err := DecodeTriggerConfig(r.TriggerType, r.TriggerConfig); err != nil {
		return err
	}
	return nil
}

// UpdateAutomationRequest is the payload for updating an automation.
// Nil fields are left unchanged.
type UpdateAutomationRequest struct {
	Name            *string         `json:"name,omitempty"`
	SubjectTemplate *string         `json:"subject_template,omitempty"`
	BodyTemplate    *string         `json:"body_template,omitempty"`
	Enabled         *bool           `json:"enabled,omitempty"`
	TriggerType     *TriggerType    `json:"trigger_type,omitempty"`
	TriggerConfig   json.RawMessage `json:"trigger_config,omitempty"`
	DelaySeconds    *int            `json:"delay_seconds,omitempty"`
}

// Validate validates the UpdateAutomationRequest fields.
func (r *UpdateAutomationRequest) Validate() error {
	if r.Name == nil && r.SubjectTemplate == nil && r.BodyTemplate == nil &&
		r.Enabled == nil && r.TriggerType == nil && r.TriggerConfig == nil &&
		r.DelaySeconds == nil {
		return errors.New("at least one field must be updated")
	}
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return errors.New("name cannot be empty")
	}
	if r.SubjectTemplate != nil && strings.TrimSpace(*r.SubjectTemplate) == "" {
		return errors.New("subject template cannot be empty")
	}
	if r.BodyTemplate != nil && strings.TrimSpace(*r.BodyTemplate) == "" {
		return errors.New("body template cannot be empty")
	}
	if r.TriggerType != nil && !r.TriggerType.Valid() {
		return fmt.Errorf("invalid trigger type: %q", *r.TriggerType)
	}
	if r.DelaySeconds != nil && *r.DelaySeconds < 0 {
		return errors.New("delay seconds must be non-negative")
	}
	return nil
}

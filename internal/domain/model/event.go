package model

import (
	"errors"
	"strings"
)

// BehavioralEvent is a transient payload describing a visitor action,
// delivered by the behavior-tracking collaborator. Events are consumed
// synchronously by the trigger evaluator and never stored standalone.
type BehavioralEvent struct {
	VisitorID         string  `json:"visitor_id"`
	Email             string  `json:"email"`
	Name              *string `json:"name,omitempty"`
	PageSlug          string  `json:"page_slug,omitempty"`
	PageURL           string  `json:"page_url"`
	TimeOnPageSeconds int     `json:"time_on_page_seconds"`
	ExitIntent        bool    `json:"exit_intent"`
	// ConvertedTo names the conversion the visitor reached, if any
	// (a form id, a checkout, ...). Empty means no conversion.
	ConvertedTo string `json:"converted_to,omitempty"`
}

// Validate rejects malformed events before any evaluation happens. Events
// without a recipient email can never produce a send, so they are rejected
// at the boundary rather than deep in the scheduler.
func (e *BehavioralEvent) Validate() error {
	if strings.TrimSpace(e.VisitorID) == "" {
		return errors.New("visitor id is required and cannot be empty")
	}
	if strings.TrimSpace(e.Email) == "" {
		return errors.New("email is required and cannot be empty")
	}
	return nil
}

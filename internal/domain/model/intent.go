package model

import (
	"errors"
	"strings"
	"time"
)

// IntentStatus represents the lifecycle of a checkout intent.
type IntentStatus string

const (
	// IntentStatusPending indicates the checkout has not completed yet.
	IntentStatusPending IntentStatus = "pending"
	// IntentStatusAutomationSent indicates the scanner already scheduled a
	// job for this intent; it will not be scanned again.
	IntentStatusAutomationSent IntentStatus = "automation_sent"
	// IntentStatusConverted indicates the visitor completed the checkout.
	IntentStatusConverted IntentStatus = "converted"
)

// Valid returns true if the IntentStatus is a known status.
func (s IntentStatus) Valid() bool {
	switch s {
	case IntentStatusPending, IntentStatusAutomationSent, IntentStatusConverted:
		return true
	default:
		return false
	}
}

// CommerceIntent is an abandoned-checkout candidate written by the commerce
// collaborator. The scanner reads stale pending rows and flips them to
// automation_sent once a job has been scheduled for them.
type CommerceIntent struct {
	ID           string       `json:"id"`
	VisitorID    string       `json:"visitor_id"`
	Email        *string      `json:"email,omitempty"`
	Name         *string      `json:"name,omitempty"`
	PageSlug     *string      `json:"page_slug,omitempty"`
	CheckoutURL  string       `json:"checkout_url"`
	ProductName  *string      `json:"product_name,omitempty"`
	ProductPrice *string      `json:"product_price,omitempty"`
	Status       IntentStatus `json:"status"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// CreateIntentRequest is the payload for recording a checkout intent.
type CreateIntentRequest struct {
	VisitorID    string  `json:"visitor_id"`
	Email        *string `json:"email,omitempty"`
	Name         *string `json:"name,omitempty"`
	PageSlug     *string `json:"page_slug,omitempty"`
	CheckoutURL  string  `json:"checkout_url"`
	ProductName  *string `json:"product_name,omitempty"`
	ProductPrice *string `json:"product_price,omitempty"`
}

// Validate validates the CreateIntentRequest fields.
func (r *CreateIntentRequest) Validate() error {
	if strings.TrimSpace(r.VisitorID) == "" {
		return errors.New("visitor id is required and cannot be empty")
	}
	if strings.TrimSpace(r.CheckoutURL) == "" {
		return errors.New("checkout url is required and cannot be empty")
	}
	return nil
}

// StaleIntentQuery selects pending intents older than the threshold,
// optionally restricted to one page.
type StaleIntentQuery struct {
	Threshold time.Time
	PageSlug  *string
	Limit     int
}

package data

import "errors"

var (
	// ErrJobNotFound is returned when a job is not found.
	ErrJobNotFound = errors.New("job not found")
	// ErrDuplicateActiveJob is returned when inserting a job would violate
	// the one-active-job-per-automation-and-recipient invariant. Callers
	// treat this as a normal skip, not a failure.
	ErrDuplicateActiveJob = errors.New("active job already exists for automation and recipient")
	// ErrAutomationNotFound is returned when an automation is not found.
	ErrAutomationNotFound = errors.New("automation not found")
	// ErrIntentNotFound is returned when a checkout intent is not found.
	ErrIntentNotFound = errors.New("checkout intent not found")
)

package model

import (
	"errors"
	"strings"
	"time"
)

// JobStatus represents the current status of a scheduled send.
type JobStatus string

const (
	// JobStatusPending indicates a job is waiting for its scheduled time.
	JobStatusPending JobStatus = "pending"
	// JobStatusProcessing indicates a worker has claimed the job.
	JobStatusProcessing JobStatus = "processing"
	// JobStatusCompleted indicates the send succeeded. Terminal.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job exhausted its retry budget or hit a
	// configuration failure. Terminal.
	JobStatusFailed JobStatus = "failed"
	// JobStatusCancelled indicates the job was cancelled, either by an
	// operator or because its automation was disabled mid-flight. Terminal.
	JobStatusCancelled JobStatus = "cancelled"
)

// Valid returns true if the JobStatus is a known status.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusPending, JobStatusProcessing, JobStatusCompleted,
		JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal returns true if no further transitions are possible from s.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// ErrNoJobsDue is returned by claim operations when nothing is ready to run.
var ErrNoJobsDue = errors.New("no jobs due")

// Job is one scheduled instance of sending a message to one recipient on
// behalf of one automation. Jobs are created by the scheduler, mutated only
// through the documented state transitions, and never deleted: terminal rows
// stay behind for audit and stats.
//
// Invariant: at most one job with status pending or processing exists per
// (automation_id, recipient_email) pair. The store enforces this with a
// partial unique index; the scheduler treats the resulting conflict as a
// normal Skipped outcome.
type Job struct {
	ID             string            `json:"id"`
	AutomationID   string            `json:"automation_id"`
	RecipientEmail string            `json:"recipient_email"`
	RecipientName  *string           `json:"recipient_name,omitempty"`
	// RecipientData is a snapshot of contextual values captured when the job
	// was scheduled. Later changes to the source record never alter it.
	RecipientData map[string]string `json:"recipient_data,omitempty"`
	Status        JobStatus         `json:"status"`
	Attempts      int               `json:"attempts"`
	MaxAttempts   int               `json:"max_attempts"`
	ScheduledFor  time.Time         `json:"scheduled_for"`
	ErrorMessage  *string           `json:"error_message,omitempty"`
	ProcessedAt   *time.Time        `json:"processed_at,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// NewJobParams groups the values needed to insert a job.
type NewJobParams struct {
	AutomationID   string
	RecipientEmail string
	RecipientName  *string
	RecipientData  map[string]string
	ScheduledFor   time.Time
	MaxAttempts    int
}

// Validate validates the NewJobParams fields.
func (p *NewJobParams) Validate() error {
	if strings.TrimSpace(p.AutomationID) == "" {
		return errors.New("automation id is required and cannot be empty")
	}
	if strings.TrimSpace(p.RecipientEmail) == "" {
		return errors.New("recipient email is required and cannot be empty")
	}
	if p.ScheduledFor.IsZero() {
		return errors.New("scheduled for is required")
	}
	if p.MaxAttempts <= 0 {
		return errors.New("max attempts must be at least 1")
	}
	return nil
}

// JobStats aggregates job counts by status.
type JobStats struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Cancelled  int `json:"cancelled"`
}

// JobListOptions filters job listings.
type JobListOptions struct {
	AutomationID *string
	Status       *JobStatus
	Limit        int
	Offset       int
}

// TickSummary reports what one worker tick did. A single job's failure is
// recorded here and on the job row, never raised to the invoker.
type TickSummary struct {
	Seen           int `json:"seen"`
	Completed      int `json:"completed"`
	Failed         int `json:"failed"`
	Retried        int `json:"retried"`
	Cancelled      int `json:"cancelled"`
	IntentsFlagged int `json:"intents_flagged"`
}

package config

import "time"

// WorkerConfig contains worker loop configuration.
type WorkerConfig struct {
	// BatchSize caps how many due jobs a single tick will claim.
	BatchSize int `env:"WORKER_BATCH_SIZE" envDefault:"50"`
	// MaxAttempts is the per-job retry budget. A job that has been claimed
	// MaxAttempts times without completing is failed terminally.
	MaxAttempts int `env:"WORKER_MAX_ATTEMPTS" envDefault:"3"`
	// TickToken is the shared secret the external scheduler must present on
	// the tick endpoint. Empty means the tick endpoint rejects all callers.
	TickToken string `env:"WORKER_TICK_TOKEN"`
	// StoreRetryAttempts bounds the reconnect-and-retry loop around claim
	// reads when the job store is briefly unreachable. This is infrastructure
	// retry, distinct from the per-job attempt counter.
	StoreRetryAttempts int `env:"WORKER_STORE_RETRY_ATTEMPTS" envDefault:"3"`
	// StoreRetryBaseDelay is the initial backoff delay for store retries;
	// it doubles on each subsequent attempt.
	StoreRetryBaseDelay time.Duration `env:"WORKER_STORE_RETRY_BASE_DELAY" envDefault:"200ms"`
	// StuckAfter is how long a processing job may go untouched before a tick
	// treats its worker as dead and releases the row.
	StuckAfter time.Duration `env:"WORKER_STUCK_AFTER" envDefault:"10m"`
	// InternalTickInterval enables a built-in tick loop when positive. Zero
	// leaves ticking entirely to the external scheduler calling the tick
	// endpoint.
	InternalTickInterval time.Duration `env:"WORKER_INTERNAL_TICK_INTERVAL" envDefault:"0"`
}

// Sanitize applies guardrails to worker configuration.
func (c *WorkerConfig) Sanitize() {
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.StoreRetryAttempts <= 0 {
		c.StoreRetryAttempts = 3
	}
	if c.StoreRetryBaseDelay <= 0 {
		c.StoreRetryBaseDelay = 200 * time.Millisecond
	}
	if c.StuckAfter <= 0 {
		c.StuckAfter = 10 * time.Minute
	}
	if c.InternalTickInterval < 0 {
		c.InternalTickInterval = 0
	}
}

// ScannerConfig contains abandoned-checkout scanner configuration.
type ScannerConfig struct {
	// IntentBatchSize caps how many stale intents one scan considers per
	// automation.
	IntentBatchSize int `env:"SCANNER_INTENT_BATCH_SIZE" envDefault:"100"`
	// DefaultAbandonmentDelay is used when an automation's trigger config
	// does not set its own abandonment delay.
	DefaultAbandonmentDelay time.Duration `env:"SCANNER_DEFAULT_ABANDONMENT_DELAY" envDefault:"30m"`
}

// Sanitize applies guardrails to scanner configuration.
func (c *ScannerConfig) Sanitize() {
	if c.IntentBatchSize <= 0 {
		c.IntentBatchSize = 100
	}
	if c.DefaultAbandonmentDelay <= 0 {
		c.DefaultAbandonmentDelay = 30 * time.Minute
	}
}

// MailerConfig contains outbound mail provider configuration.
// An empty APIURL means no transport is configured; jobs claimed while the
// transport is absent fail terminally rather than burning retries.
type MailerConfig struct {
	APIURL      string        `env:"MAILER_API_URL"`
	APIKey      string        `env:"MAILER_API_KEY"`
	FromAddress string        `env:"MAILER_FROM_ADDRESS" envDefault:"no-reply@localhost"`
	FromName    string        `env:"MAILER_FROM_NAME"    envDefault:"LeadForge"`
	Timeout     time.Duration `env:"MAILER_TIMEOUT"      envDefault:"10s"`
	RetryLimit  int           `env:"MAILER_RETRY_LIMIT"  envDefault:"2"`
}

// Sanitize applies guardrails to mailer configuration.
func (c *MailerConfig) Sanitize() {
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.RetryLimit < 0 {
		c.RetryLimit = 0
	}
}

// Configured reports whether an outbound transport is configured at all.
func (c *MailerConfig) Configured() bool {
	return c.APIURL != ""
}

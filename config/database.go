package config

import "time"

// DBConfig contains PostgreSQL database configuration.
type DBConfig struct {
	Host     string `env:"HOST"     envDefault:"localhost"`
	Port     int    `env:"PORT"     envDefault:"5432"`
	User     string `env:"USER"     envDefault:"automation"`
	Password string `env:"PASSWORD" envDefault:"automation"`
	Name     string `env:"NAME"     envDefault:"automation"`
	SSLMode  string `env:"SSL_MODE" envDefault:"disable"` // Use 'disable' for local dev, 'require' for production
	// RunMigrationsOnStart controls whether the application automatically
	// applies migrations during startup.
	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`
}

// RedisConfig contains Redis configuration for the automation registry cache.
type RedisConfig struct {
	// URI accepts either a host:port pair or a redis:// / rediss:// URL.
	URI      string `env:"URI"      envDefault:"localhost:6379"`
	Password string `env:"PASSWORD" envDefault:""`
	DB       int    `env:"DB"       envDefault:"0"`
	// Enabled toggles the registry cache entirely. When false the engine
	// reads automation definitions straight from Postgres on every use.
	Enabled bool `env:"ENABLED" envDefault:"true"`
}

// CacheConfig contains cache tuning for the automation registry.
type CacheConfig struct {
	// RegistryTTL is how long the enabled-automation list may be served
	// from Redis before it is re-read from the database.
	RegistryTTL time.Duration `env:"CACHE_REGISTRY_TTL" envDefault:"30s"`
}

// Sanitize applies guardrails to cache configuration.
func (c *CacheConfig) Sanitize() {
	if c.RegistryTTL <= 0 {
		c.RegistryTTL = 30 * time.Second
	}
}

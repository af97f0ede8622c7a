package redis

import "time"

// Config holds Redis connection settings. Redis backs the quiz cache and
// focus sessions, so the service treats it as required at startup.
type Config struct {
	// ConnectionURL in the "redis://:password@host:6379/0" form accepted
	// by go-redis ParseURL.
	ConnectionURL string `env:"REDIS_URL,required" envDefault:"redis://localhost:6379/0"`

	// Startup retries, matching the Postgres connect behavior; the timeout
	// bounds the whole connection phase, not a single attempt.
	RetryAttempts  int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"5s"`
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30s"`
}

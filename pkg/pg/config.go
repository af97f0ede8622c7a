package pg

import "time"

// Config holds pool sizing, startup retry, and migration settings for the
// PostgreSQL connection. All of it comes from the environment; only the
// connection string has no default.
type Config struct {
	ConnectionString string `env:"PG_CONN_URL,required"`

	// Pool sizing. The service is read-light (subscription lookups per
	// request) with short bursts of writes on webhook delivery, so a small
	// pool is plenty.
	MaxOpenConns      int32         `env:"PG_MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns      int32         `env:"PG_MAX_IDLE_CONNS" envDefault:"5"`
	HealthCheckPeriod time.Duration `env:"PG_HEALTHCHECK_PERIOD" envDefault:"1m"`
	MaxConnIdleTime   time.Duration `env:"PG_MAX_CONN_IDLE_TIME" envDefault:"10m"`
	MaxConnLifetime   time.Duration `env:"PG_MAX_CONN_LIFETIME" envDefault:"30m"`

	// Startup retries ride out the database coming up alongside the service
	// in compose or CI environments.
	RetryAttempts int           `env:"PG_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval time.Duration `env:"PG_RETRY_INTERVAL" envDefault:"5s"`

	// Goose migration settings; the path is relative to the working
	// directory of the server binary.
	MigrationsPath  string `env:"PG_MIGRATIONS_PATH" envDefault:"migrations"`
	MigrationsTable string `env:"PG_MIGRATIONS_TABLE" envDefault:"schema_migrations"`
}

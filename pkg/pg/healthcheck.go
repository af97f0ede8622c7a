package pg

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Healthcheck returns a probe for the /health endpoint. It pings through
// the pool, so a saturated pool reports unhealthy the same way a dead
// database does.
func Healthcheck(pool *pgxpool.Pool) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			return errors.Join(ErrDBNotReady, err)
		}
		return nil
	}
}

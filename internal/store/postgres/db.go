package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"payrelay/internal/store/repositories"
)

const uniqueViolation = "23505"

// MustOpen connects the pool and waits for the database to answer a ping,
// backing off exponentially for up to maxWait.
func MustOpen(ctx context.Context, dsn string, maxWait time.Duration) *pgxpool.Pool {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect fail")
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = maxWait
	err = backoff.RetryNotify(func() error {
		return pool.Ping(ctx)
	}, backoff.WithContext(b, ctx), func(err error, next time.Duration) {
		log.Warn().Err(err).Dur("retry_in", next).Msg("db ping failed, retrying")
	})
	if err != nil {
		log.Fatal().Err(err).Msg("db ping fail")
	}
	return pool
}

// translate maps driver errors onto the repository sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repositories.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		switch pgErr.ConstraintName {
		case idxOnePendingPerOrder:
			return repositories.ErrDuplicatePending
		case idxTransactionReference:
			return repositories.ErrDuplicateReference
		}
	}
	return err
}

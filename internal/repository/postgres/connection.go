package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the subset of *pgxpool.Pool used by repositories.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// Observer records the outcome of a logical database operation.
type Observer interface {
	ObserveDB(op string, fn func() error) error
}

// RetryPolicy bounds how transient failures are retried.
type RetryPolicy struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxDelay        time.Duration
}

// DefaultRetryPolicy retries up to five times with delays capped at 30 seconds.
var DefaultRetryPolicy = RetryPolicy{
	MaxRetries:      5,
	InitialInterval: 100 * time.Millisecond,
	MaxDelay:        30 * time.Second,
}

// Option configures a Connection.
type Option func(*Connection)

// WithRetryPolicy overrides DefaultRetryPolicy.
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(c *Connection) {
		c.retry = policy
	}
}

// WithObserver reports every operation to o.
func WithObserver(o Observer) Option {
	return func(c *Connection) {
		if o != nil {
			c.observer = o
		}
	}
}

type Connection struct {
	DB
	retry    RetryPolicy
	observer Observer
}

// NewConnection opens a pool and verifies it is reachable.
func NewConnection(ctx context.Context, dsn string, maxConns int32, opts ...Option) (*Connection, error) {
	conf, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres dsn: %w", err)
	}
	if maxConns > 0 {
		conf.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, conf)
	if err != nil {
		return nil, fmt.Errorf("failed to open connection pool: %w", err)
	}

	conn := NewConnectionWithDB(pool, opts...)
	if err := conn.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	return conn, nil
}

// NewConnectionWithDB wraps an existing pool or a test double.
func NewConnectionWithDB(db DB, opts ...Option) *Connection {
	c := &Connection{
		DB:       db,
		retry:    DefaultRetryPolicy,
		observer: noopObserver{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Connection) Close() error {
	if c.DB != nil {
		c.DB.Close()
	}
	return nil
}

// Ping checks the database is reachable, retrying transient failures.
func (c *Connection) Ping(ctx context.Context) error {
	if c.DB == nil {
		return fmt.Errorf("connection pool is nil")
	}
	return c.run(ctx, "ping", c.DB.Ping)
}

// run executes fn as the logical operation op, retrying it while it fails
// with a transient error and the retry budget allows.
func (c *Connection) run(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	return c.observer.ObserveDB(op, func() error {
		b := backoff.NewExponentialBackOff()
		if c.retry.InitialInterval > 0 {
			b.InitialInterval = c.retry.InitialInterval
		}
		if c.retry.MaxDelay > 0 {
			b.MaxInterval = c.retry.MaxDelay
		}
		b.MaxElapsedTime = 0

		policy := backoff.WithContext(backoff.WithMaxRetries(b, c.retry.MaxRetries), ctx)

		return backoff.Retry(func() error {
			err := fn(ctx)
			if err != nil && !IsTransient(err) {
				return backoff.Permanent(err)
			}
			return err
		}, policy)
	})
}

// IsTransient reports whether err is worth retrying: serialization failures,
// deadlocks, server shutdowns and connection-level failures.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "57P01", "57P02", "57P03", "53300":
			return true
		}
		return len(pgErr.Code) == 5 && pgErr.Code[:2] == "08"
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}

	return pgconn.SafeToRetry(err)
}

// IsUniqueViolation reports whether err comes from a unique index.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

type noopObserver struct{}

func (noopObserver) ObserveDB(_ string, fn func() error) error {
	return fn()
}

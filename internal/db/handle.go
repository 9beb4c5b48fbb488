package db

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Handle is one live session. Execute runs all statements of a transaction
// template inside a single database transaction and returns a classified
// error, never a raw backend one.
type Handle interface {
	Execute(ctx context.Context, stmts []string) error
	Release()
}

// Factory hands out handles. A job either acquires one handle for its whole
// life (single-session mode) or calls ExecutePooled per transaction and lets
// the pool manage acquisition and transient retry behind the scenes.
type Factory interface {
	Acquire(ctx context.Context) (Handle, error)
	ExecutePooled(ctx context.Context, stmts []string) error
	Close()
}

// pooledRetries bounds transparent retries of serialization failures and
// deadlocks in pooled mode before the failure surfaces to the job.
const pooledRetries = 3

// PgFactory is the pgxpool-backed Factory.
type PgFactory struct {
	pool      *pgxpool.Pool
	txTimeout time.Duration
}

// Open connects to the target and verifies the connection with a ping.
// maxConns is sized to the job count so jobs never queue on the pool.
func Open(ctx context.Context, target string, maxConns int, txTimeout time.Duration) (*PgFactory, error) {
	cfg, err := pgxpool.ParseConfig(target)
	if err != nil {
		return nil, fmt.Errorf("parsing target %q: %w", target, err)
	}
	if maxConns > int(cfg.MaxConns) {
		cfg.MaxConns = int32(maxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &PgFactory{pool: pool, txTimeout: txTimeout}, nil
}

func (f *PgFactory) Acquire(ctx context.Context) (Handle, error) {
	conn, err := f.pool.Acquire(ctx)
	if err != nil {
		return nil, Classify(err)
	}
	return &pgHandle{conn: conn, txTimeout: f.txTimeout}, nil
}

// ExecutePooled runs one transaction on a freshly acquired connection,
// retrying transient failures transparently. From the job's perspective this
// is one opaque call.
func (f *PgFactory) ExecutePooled(ctx context.Context, stmts []string) error {
	return retry.Do(
		func() error {
			conn, err := f.pool.Acquire(ctx)
			if err != nil {
				return Classify(err)
			}
			defer conn.Release()
			return execTx(ctx, conn, f.txTimeout, stmts)
		},
		retry.Context(ctx),
		retry.Attempts(pooledRetries),
		retry.RetryIf(IsRetryable),
		retry.LastErrorOnly(true),
		retry.Delay(10*time.Millisecond),
	)
}

func (f *PgFactory) Close() {
	f.pool.Close()
}

type pgHandle struct {
	conn      *pgxpool.Conn
	txTimeout time.Duration
}

func (h *pgHandle) Execute(ctx context.Context, stmts []string) error {
	return execTx(ctx, h.conn, h.txTimeout, stmts)
}

func (h *pgHandle) Release() {
	h.conn.Release()
}

func execTx(ctx context.Context, conn *pgxpool.Conn, timeout time.Duration, stmts []string) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return Classify(err)
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			_ = tx.Rollback(ctx)
			return Classify(err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		_ = tx.Rollback(ctx)
		return Classify(err)
	}
	return nil
}

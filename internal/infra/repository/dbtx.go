package repository

import (
	"context"
	"errors"
	"hash/fnv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx so repositories can run
// against the pool or inside a caller-owned transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Tx is a caller-owned transaction handed out by DB.Begin.
type Tx interface {
	DBTX
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// DB is the root database handle: queryable like any DBTX, and the only
// place transactions start. Usecases depend on this interface so their
// transactional paths run against fakes in tests.
type DB interface {
	DBTX
	Begin(ctx context.Context) (Tx, error)
}

type pgxDB struct {
	*pgxpool.Pool
}

// NewDB adapts a pgxpool.Pool to DB. The wrapper exists because the pool's
// Begin returns pgx.Tx, which satisfies Tx but is not assignable to it.
func NewDB(pool *pgxpool.Pool) DB {
	return pgxDB{pool}
}

func (d pgxDB) Begin(ctx context.Context) (Tx, error) {
	tx, err := d.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// AdvisoryLockKey folds an arbitrary identifier into the 64-bit keyspace of
// pg_advisory_xact_lock.
func AdvisoryLockKey(id string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(id))
	return int64(h.Sum64())
}

// AcquireAdvisoryLock serializes the read-then-write critical sections
// (dedup check, single-active replacement check) on the given key. The lock
// is transaction-scoped and released automatically at commit or rollback.
func AcquireAdvisoryLock(ctx context.Context, tx DBTX, key int64) error {
	_, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", key)
	return err
}

package data

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"
	"math"

	"github.com/unevent/unevent-api/internal/data/pgxutil"
)

// lockKey is a two-part pg_advisory_xact_lock key. Major 1000 belongs to the
// reaper and 1001 to lease recovery.
type lockKey struct {
	major, minor int32
}

const (
	lockMajorReaper  int32 = 1000
	lockMajorRequeue int32 = 1001
)

var (
	lockFailPending = lockKey{lockMajorReaper, 1}
	lockDeleteJobs  = lockKey{lockMajorReaper, 2}
	lockListings    = lockKey{lockMajorReaper, 3}
	lockMedia       = lockKey{lockMajorReaper, 4}
)

// requeueLock gives each job type its own minor key.
func requeueLock(name string) lockKey {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	return lockKey{lockMajorRequeue, int32(h.Sum32() & math.MaxInt32)} //nolint:gosec // masked to 31 bits
}

// execLocked runs query in a transaction holding key and returns the rows it
// touched. When another session holds key the query is skipped and 0 returned.
func execLocked(ctx context.Context, db *sql.DB, key lockKey, query string, args ...any) (int64, error) {
	var n int64
	err := pgxutil.WithSQLTx(ctx, db, pgxutil.SQLTxConfig{Fn: func(tx *sql.Tx) error {
		var held bool
		if err := tx.QueryRowContext(ctx, "SELECT pg_try_advisory_xact_lock($1, $2)", key.major, key.minor).Scan(&held); err != nil {
			return fmt.Errorf("acquire advisory lock: %w", err)
		}
		if !held {
			return nil
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	}})
	return n, err
}

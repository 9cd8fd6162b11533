// Package lock provides the mutual exclusion used by the scheduled-campaign sweep so that
// only one replica starts due campaigns at a time.
package lock

import (
	"context"
	"database/sql"
	"hash/fnv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Locker is a non-blocking, named lock.
type Locker interface {
	// TryAcquire returns true if the lock was taken.
	TryAcquire(ctx context.Context) (bool, error)
	// Release frees the lock if this holder still owns it.
	Release(ctx context.Context) error
}

// New returns a Redis lock when client is non-nil, otherwise a Postgres advisory lock.
func New(client *redis.Client, db *sql.DB, key string, ttl time.Duration) Locker {
	if client != nil {
		return NewRedisLock(client, key, ttl)
	}
	return NewAdvisoryLock(db, key)
}

// AdvisoryLock uses pg_try_advisory_lock. The lock belongs to the session, so the
// connection that took it is held until Release and the lock is dropped if it dies.
type AdvisoryLock struct {
	db     *sql.DB
	lockID int64

	mu   sync.Mutex
	conn *sql.Conn
}

// NewAdvisoryLock derives a stable lock id from key.
func NewAdvisoryLock(db *sql.DB, key string) *AdvisoryLock {
	h := fnv.New64a()
	h.Write([]byte(key))
	return &AdvisoryLock{db: db, lockID: int64(h.Sum64())}
}

func (l *AdvisoryLock) TryAcquire(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn != nil {
		return false, nil
	}

	conn, err := l.db.Conn(ctx)
	if err != nil {
		return false, err
	}
	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", l.lockID).Scan(&acquired); err != nil {
		conn.Close()
		return false, err
	}
	if !acquired {
		conn.Close()
		return false, nil
	}
	l.conn = conn
	return true, nil
}

func (l *AdvisoryLock) Release(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn == nil {
		return nil
	}
	conn := l.conn
	l.conn = nil
	defer conn.Close()
	_, err := conn.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", l.lockID)
	return err
}

package session

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"
)

// MySQLStore keeps session values in the session_values table.
type MySQLStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db, now: time.Now}
}

// farFuture marks values stored without a ttl.
var farFuture = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

const createSessionValues = `
CREATE TABLE IF NOT EXISTS session_values (
	skey       VARCHAR(191) NOT NULL PRIMARY KEY,
	svalue     TEXT         NOT NULL,
	expires_at DATETIME     NOT NULL,
	INDEX idx_session_values_expires (expires_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

// EnsureSchema creates the session_values table if it does not exist.
func (s *MySQLStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, createSessionValues)
	return err
}

func (s *MySQLStore) Get(ctx context.Context, key string) (string, error) {
	const q = `SELECT svalue FROM session_values WHERE skey = ? AND expires_at > ?`
	var v string
	err := s.db.QueryRowContext(ctx, q, key, s.now().UTC()).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoValue
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

func (s *MySQLStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	exp := farFuture
	if ttl > 0 {
		exp = s.now().UTC().Add(ttl)
	}
	const q = `INSERT INTO session_values (skey, svalue, expires_at) VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE svalue = VALUES(svalue), expires_at = VALUES(expires_at)`
	_, err := s.db.ExecContext(ctx, q, key, value, exp)
	return err
}

func (s *MySQLStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	q := `DELETE FROM session_values WHERE skey IN (?` + strings.Repeat(",?", len(keys)-1) + `)`
	_, err := s.db.ExecContext(ctx, q, args...)
	return err
}

// Sweep removes expired rows and returns how many were deleted.
func (s *MySQLStore) Sweep(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM session_values WHERE expires_at <= ?`, s.now().UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// RunSweeper deletes expired rows every interval until ctx is done.
func (s *MySQLStore) RunSweeper(ctx context.Context, every time.Duration, logger *slog.Logger) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := s.Sweep(ctx)
			if err != nil {
				if ctx.Err() == nil {
					logger.Warn("sweep sessions", "err", err)
				}
				continue
			}
			if n > 0 {
				logger.Debug("swept sessions", "rows", n)
			}
		}
	}
}

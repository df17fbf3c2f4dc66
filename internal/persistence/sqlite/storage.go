// Package sqlite implements the persistence repositories on top of
// modernc.org/sqlite, building statements with squirrel.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/YoussefMachkour/Reservation-room-sub001/internal/persistence/sqlite/migration"
)

// timeLayout is fixed width so that stored timestamps compare lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Storage implements persistence.ResourceRepository and
// persistence.ReservationRepository.
type Storage struct {
	pool    *ConnectionPool
	builder sq.StatementBuilderType
	retry   RetryConfig
	logger  *slog.Logger
}

// Open connects to the database at dsn with the default settings.
func Open(dsn string) (*Storage, error) {
	return OpenWithConfig(DefaultConfig(dsn), nil)
}

// OpenWithConfig connects using config. A nil logger falls back to
// slog.Default().
func OpenWithConfig(config Config, logger *slog.Logger) (*Storage, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pool, err := NewConnectionPool(config)
	if err != nil {
		return nil, err
	}
	return &Storage{
		pool:    pool,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Question),
		retry:   DefaultRetryConfig(),
		logger:  logger,
	}, nil
}

// Close releases the connection pool.
func (s *Storage) Close() error {
	return s.pool.Close()
}

// Ping verifies the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.DB().PingContext(ctx)
}

// Migrate applies the embedded schema.
func (s *Storage) Migrate(ctx context.Context) error {
	migrations, err := migration.Embedded()
	if err != nil {
		return fmt.Errorf("sqlite: load migrations: %w", err)
	}
	return migration.NewRunner(s.pool.DB(), migrations, s.logger).Run(ctx)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite: parse timestamp %q: %w", value, err)
	}
	return t, nil
}

// DB exposes the underlying pool for instrumentation.
func (s *Storage) DB() *sql.DB {
	return s.pool.DB()
}

package audit

import (
	"context"
	"time"

	"authkit/cmd/internal/migrations"
)

// Logger stores and queries audit entries.
type Logger interface {
	// Log stores e and returns its id. A zero LoggedAt is set to the current time.
	Log(ctx context.Context, e LogEntry) (int64, error)
	// GetLog returns the entry with id, or ErrNotFound.
	GetLog(ctx context.Context, id int64) (LogEntry, error)
	// LogsOfUser returns the entries of userID matching f, newest first.
	LogsOfUser(ctx context.Context, userID int64, f Filter) ([]LogEntry, error)
}

type config struct {
	conv   DataConverter
	now    func() time.Time
	schema string
}

// Option configures a logger.
type Option func(*config)

// WithConverter sets the converter applied to raw data. The default stores it unchanged.
func WithConverter(c DataConverter) Option {
	return func(cfg *config) {
		if c != nil {
			cfg.conv = c
		}
	}
}

// WithClock overrides the time source used for entries without LoggedAt.
func WithClock(fn func() time.Time) Option {
	return func(cfg *config) {
		if fn != nil {
			cfg.now = fn
		}
	}
}

// WithSchema sets the Postgres schema of the log tables (default migrations.Schema).
// migrations.Up only creates migrations.Schema; any other schema must be migrated by the caller.
func WithSchema(schema string) Option {
	return func(cfg *config) { cfg.schema = schema }
}

func newConfig(opts []Option) config {
	cfg := config{conv: NopConverter{}, now: time.Now, schema: migrations.Schema}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

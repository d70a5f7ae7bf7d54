package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var schemaRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PostgresLogger stores entries in the logs, logs_resource_identifiers and
// logs_raw_data tables. The *sql.DB is owned by the caller.
type PostgresLogger struct {
	db  *sql.DB
	cfg config
}

// NewPostgresLogger wraps db, which should be opened with the pgx driver.
func NewPostgresLogger(db *sql.DB, opts ...Option) (*PostgresLogger, error) {
	if db == nil {
		return nil, errors.New("audit: nil db")
	}
	cfg := newConfig(opts)
	if !schemaRe.MatchString(cfg.schema) {
		return nil, fmt.Errorf("audit: invalid schema identifier %q", cfg.schema)
	}
	return &PostgresLogger{db: db, cfg: cfg}, nil
}

func (p *PostgresLogger) table(name string) string { return p.cfg.schema + "." + name }

// Log writes the entry, its resource ids and its raw data in one transaction.
func (p *PostgresLogger) Log(ctx context.Context, e LogEntry) (int64, error) {
	before, err := p.cfg.conv.Convert(e.RawDataBefore)
	if err != nil {
		return 0, fmt.Errorf("audit: convert raw data: %w", err)
	}
	after, err := p.cfg.conv.Convert(e.RawDataAfter)
	if err != nil {
		return 0, fmt.Errorf("audit: convert raw data: %w", err)
	}
	if e.LoggedAt.IsZero() {
		e.LoggedAt = p.cfg.now()
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var id int64
	err = tx.QueryRowContext(ctx, `INSERT INTO `+p.table("logs")+`
		(logged_at, user_id, user_name, user_email, user_username, user_phone_number, resource, action)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING log_id`,
		e.LoggedAt.UTC(), e.UserID, e.UserName, e.UserEmail, e.UserUsername, e.UserPhoneNumber, e.Resource, string(e.Action),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	for _, resID := range normalizeIDs(e.ResIDs) {
		if _, err := tx.ExecContext(ctx, `INSERT INTO `+p.table("logs_resource_identifiers")+` (log_id, res_id) VALUES ($1, $2)`, id, resID); err != nil {
			return 0, fmt.Errorf("db error: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO `+p.table("logs_raw_data")+` (log_id, raw_data_before, raw_data_after) VALUES ($1, $2, $3)`, id, before, after); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return id, nil
}

func (p *PostgresLogger) selectEntries() string {
	return `SELECT l.log_id, l.logged_at, l.user_id, l.user_name, l.user_email, l.user_username,
		l.user_phone_number, l.resource, l.action,
		(SELECT string_agg(i.res_id::text, ',' ORDER BY i.res_id)
		   FROM ` + p.table("logs_resource_identifiers") + ` i WHERE i.log_id = l.log_id),
		COALESCE(r.raw_data_before, ''), COALESCE(r.raw_data_after, '')
	FROM ` + p.table("logs") + ` l
	LEFT JOIN ` + p.table("logs_raw_data") + ` r ON r.log_id = l.log_id`
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (p *PostgresLogger) scan(row rowScanner) (LogEntry, error) {
	var (
		e      LogEntry
		action string
		resIDs sql.NullString
	)
	err := row.Scan(&e.LogID, &e.LoggedAt, &e.UserID, &e.UserName, &e.UserEmail, &e.UserUsername,
		&e.UserPhoneNumber, &e.Resource, &action, &resIDs, &e.RawDataBefore, &e.RawDataAfter)
	if err != nil {
		return LogEntry{}, err
	}
	e.LoggedAt = e.LoggedAt.UTC()

	if e.Action, err = ParseAction(action); err != nil {
		return LogEntry{}, err
	}
	if resIDs.Valid && resIDs.String != "" {
		for _, s := range strings.Split(resIDs.String, ",") {
			id, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return LogEntry{}, fmt.Errorf("audit: resource id %q: %w", s, err)
			}
			e.ResIDs = append(e.ResIDs, id)
		}
	}

	if e.RawDataBefore, err = p.cfg.conv.Unconvert(e.RawDataBefore); err != nil {
		return LogEntry{}, fmt.Errorf("audit: unconvert raw data: %w", err)
	}
	if e.RawDataAfter, err = p.cfg.conv.Unconvert(e.RawDataAfter); err != nil {
		return LogEntry{}, fmt.Errorf("audit: unconvert raw data: %w", err)
	}
	return e, nil
}

func (p *PostgresLogger) GetLog(ctx context.Context, id int64) (LogEntry, error) {
	e, err := p.scan(p.db.QueryRowContext(ctx, p.selectEntries()+` WHERE l.log_id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return LogEntry{}, ErrNotFound
	}
	if err != nil {
		return LogEntry{}, fmt.Errorf("db error: %w", err)
	}
	return e, nil
}

// LogsOfUser filters by user, identity, action, resource and time in SQL; resource ids
// are matched after loading since they are scoped per resource.
func (p *PostgresLogger) LogsOfUser(ctx context.Context, userID int64, f Filter) ([]LogEntry, error) {
	var (
		where = []string{"l.user_id = $1"}
		args  = []any{userID}
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	for _, c := range []struct {
		column string
		value  *string
	}{
		{"l.user_name", f.UserName},
		{"l.user_email", f.UserEmail},
		{"l.user_phone_number", f.UserPhoneNumber},
		{"l.user_username", f.UserUsername},
	} {
		if c.value != nil {
			where = append(where, c.column+" = "+arg(*c.value))
		}
	}

	if len(f.Actions) > 0 {
		ph := make([]string, len(f.Actions))
		for i, a := range f.Actions {
			ph[i] = arg(string(a))
		}
		where = append(where, "l.action IN ("+strings.Join(ph, ", ")+")")
	}
	if len(f.Resources) > 0 {
		ph := make([]string, len(f.Resources))
		for i, r := range f.Resources {
			ph[i] = arg(r)
		}
		where = append(where, "l.resource IN ("+strings.Join(ph, ", ")+")")
	}
	if f.Before != nil {
		where = append(where, "l.logged_at <= "+arg(f.Before.UTC()))
	}
	if f.After != nil {
		where = append(where, "l.logged_at >= "+arg(f.After.UTC()))
	}

	q := p.selectEntries() + ` WHERE ` + strings.Join(where, " AND ") + ` ORDER BY l.logged_at DESC, l.log_id DESC`
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []LogEntry
	for rows.Next() {
		e, err := p.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if f.matchResourceIDs(e) {
			out = append(out, e)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

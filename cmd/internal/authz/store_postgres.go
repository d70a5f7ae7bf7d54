package authz

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"authkit/cmd/authz/privilege"
	"authkit/cmd/internal/migrations"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PostgresStore implements Store over the user_privileges table. The pool is owned by
// the caller.
type PostgresStore struct {
	pool  *pgxpool.Pool
	table string
}

// NewPostgresStore uses the given schema, or migrations.Schema when empty.
// migrations.Up only creates migrations.Schema; any other schema must be migrated by the caller.
func NewPostgresStore(pool *pgxpool.Pool, schema string) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("authz: nil pool")
	}
	schema = strings.TrimSpace(schema)
	if schema == "" {
		schema = migrations.Schema
	}
	if !pgIdentRe.MatchString(schema) {
		return nil, fmt.Errorf("authz: invalid schema identifier %q", schema)
	}
	return &PostgresStore{pool: pool, table: pgx.Identifier{schema, "user_privileges"}.Sanitize()}, nil
}

func (s *PostgresStore) List(ctx context.Context, userID int64, f Filter) ([]privilege.Privilege, error) {
	var (
		where = []string{"user_id = $1"}
		args  = []any{userID}
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if f.Action != "" {
		where = append(where, "(action = '' OR action = "+arg(f.Action)+")")
	}
	if f.Resource != "" {
		where = append(where, "(resource = '' OR resource = "+arg(f.Resource)+")")
	}
	if f.ResID != nil {
		where = append(where, "(res_id IS NULL OR res_id = "+arg(*f.ResID)+")")
	}
	if f.ExpireAfter != nil {
		where = append(where, "(expire_at IS NULL OR expire_at > "+arg(f.ExpireAfter.UTC())+")")
	}
	if f.ExpireBefore != nil {
		where = append(where, "expire_at < "+arg(f.ExpireBefore.UTC()))
	}

	rows, err := s.pool.Query(ctx, `
		SELECT action, resource, res_id, expire_at
		FROM `+s.table+`
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY action, resource, res_id NULLS FIRST
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("authz.List: %w", err)
	}
	defer rows.Close()

	var out []privilege.Privilege
	for rows.Next() {
		var (
			p        privilege.Privilege
			resID    *int64
			expireAt *time.Time
		)
		if err := rows.Scan(&p.Action, &p.Resource, &resID, &expireAt); err != nil {
			return nil, fmt.Errorf("authz.List: %w", err)
		}
		if resID != nil {
			p = p.WithResID(*resID)
		}
		if expireAt != nil {
			p = p.WithExpiry(*expireAt)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("authz.List: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Add(ctx context.Context, userID int64, p privilege.Privilege) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO `+s.table+` (user_id, action, resource, res_id, expire_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT DO NOTHING
	`, userID, p.Action, p.Resource, p.ResID, utcPtr(p.ExpireAt))
	if err != nil {
		return false, fmt.Errorf("authz.Add: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) Delete(ctx context.Context, userID int64, p privilege.Privilege) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM `+s.table+`
		WHERE user_id = $1 AND action = $2 AND resource = $3 AND res_id IS NOT DISTINCT FROM $4
	`, userID, p.Action, p.Resource, p.ResID)
	if err != nil {
		return false, fmt.Errorf("authz.Delete: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) Expire(ctx context.Context, userID int64, p privilege.Privilege, at time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE `+s.table+`
		SET expire_at = $5
		WHERE user_id = $1 AND action = $2 AND resource = $3 AND res_id IS NOT DISTINCT FROM $4
	`, userID, p.Action, p.Resource, p.ResID, at.UTC())
	if err != nil {
		return false, fmt.Errorf("authz.Expire: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

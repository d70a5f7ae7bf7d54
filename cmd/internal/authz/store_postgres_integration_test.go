package authz

import (
	"context"
	"errors"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"authkit/cmd/authz/privilege"
	"authkit/cmd/internal/audit"
	"authkit/cmd/internal/migrations"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

// Integration tests are enabled when AUTHKIT_DATABASE_URL is set.

func TestPostgresStore_GrantCheckRevoke(t *testing.T) {
	ctx := context.Background()
	store, logs := mustPostgresStore(ctx, t)

	userID := time.Now().UnixNano()
	t.Cleanup(func() {
		_, _ = store.pool.Exec(context.Background(), `DELETE FROM `+store.table+` WHERE user_id = $1`, userID)
	})

	svc, err := NewService(store, WithAuditLogger(logs))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	for _, s := range []string{"read:article", "edit:comment@3", ":user"} {
		ok, err := svc.Grant(ctx, userID, privilege.MustDecode(s))
		if err != nil || !ok {
			t.Fatalf("Grant(%s): ok=%v err=%v", s, ok, err)
		}
	}
	if ok, err := svc.Grant(ctx, userID, privilege.MustDecode("edit:comment@3")); err != nil || ok {
		t.Fatalf("duplicate Grant: ok=%v err=%v", ok, err)
	}
	if ok, err := svc.Grant(ctx, userID, privilege.MustDecode("read:article")); err != nil || ok {
		t.Fatalf("duplicate wildcard Grant: ok=%v err=%v", ok, err)
	}

	checks := map[string]bool{
		"read:article@10": true,
		"edit:comment@3":  true,
		"edit:comment@4":  false,
		"delete:user@1":   true,
		"delete:article":  false,
	}
	for s, want := range checks {
		got, err := svc.HasPrivilege(ctx, userID, privilege.MustDecode(s), nil)
		if err != nil {
			t.Fatalf("HasPrivilege(%s): %v", s, err)
		}
		if got != want {
			t.Fatalf("HasPrivilege(%s) = %v, want %v", s, got, want)
		}
	}

	at := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	if ok, err := svc.Expire(ctx, userID, privilege.New("read", "article"), at); err != nil || !ok {
		t.Fatalf("Expire: ok=%v err=%v", ok, err)
	}
	if got, _ := svc.HasPrivilege(ctx, userID, privilege.New("read", "article"), nil); got {
		t.Fatalf("expiring grant must not cover a permanent requirement")
	}
	soon := privilege.New("read", "article").WithExpiry(at.Add(-time.Minute))
	if got, _ := svc.HasPrivilege(ctx, userID, soon, nil); !got {
		t.Fatalf("expected grant to outlive %v", soon)
	}

	if ok, err := svc.Delete(ctx, userID, privilege.New("edit", "comment").WithResID(3)); err != nil || !ok {
		t.Fatalf("Delete: ok=%v err=%v", ok, err)
	}

	set, err := svc.GetPrivileges(ctx, userID)
	if err != nil {
		t.Fatalf("GetPrivileges: %v", err)
	}
	want := privilege.NewSet(privilege.New("", "user"), privilege.New("read", "article").WithExpiry(at))
	if set.Encode() != want.Encode() {
		t.Fatalf("GetPrivileges = %q, want %q", set.Encode(), want.Encode())
	}

	entries, err := logs.LogsOfUser(ctx, userID, audit.Filter{Resources: []string{AuditResource}})
	if err != nil {
		t.Fatalf("LogsOfUser: %v", err)
	}
	if len(entries) != 5 {
		t.Fatalf("audit entries = %d, want 5", len(entries))
	}
}

func mustPostgresStore(ctx context.Context, t *testing.T) (*PostgresStore, *audit.PostgresLogger) {
	t.Helper()

	dbURL := os.Getenv("AUTHKIT_DATABASE_URL")
	if dbURL == "" {
		t.Skip("AUTHKIT_DATABASE_URL is not set; skipping Postgres integration test")
	}

	cfg, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		t.Fatalf("pgxpool.ParseConfig: %v", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("pgxpool.NewWithConfig: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		if shouldSkipIntegration(err) {
			t.Skipf("integration test skipped: Postgres unreachable (AUTHKIT_DATABASE_URL set): %v", err)
		}
		t.Fatalf("pool.Ping: %v", err)
	}
	t.Cleanup(pool.Close)

	db := stdlib.OpenDBFromPool(pool)
	t.Cleanup(func() { _ = db.Close() })
	if err := migrations.Up(ctx, db); err != nil {
		t.Fatalf("migrations.Up: %v", err)
	}

	store, err := NewPostgresStore(pool, "")
	if err != nil {
		t.Fatalf("NewPostgresStore: %v", err)
	}
	logs, err := audit.NewPostgresLogger(db)
	if err != nil {
		t.Fatalf("NewPostgresLogger: %v", err)
	}
	return store, logs
}

func shouldSkipIntegration(err error) bool {
	if os.Getenv("CI") != "" {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection refused", "timeout", "dial tcp", "no such host"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

package app

import (
	"fmt"
	"log/slog"

	"authkit/cmd/identity"
	"authkit/cmd/internal/audit"
	"authkit/cmd/internal/auth/session"
	"authkit/cmd/internal/authz"
	"authkit/cmd/security/password"
	sectoken "authkit/cmd/security/token"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
)

// NewSessionService wires the account and session service over Postgres. The host app
// works with identity.User directly.
func NewSessionService(cfg Config, pool *pgxpool.Pool, reg prometheus.Registerer, log *slog.Logger) (*session.Service[identity.User], error) {
	scfg, err := session.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	store, err := session.NewPostgresStore(pool)
	if err != nil {
		return nil, err
	}
	codec, err := NewCodec(cfg)
	if err != nil {
		return nil, err
	}

	pcfg, err := password.FromEnv()
	if err != nil {
		return nil, err
	}
	passwords, err := password.NewHasher(pcfg)
	if err != nil {
		return nil, err
	}
	tokens, err := sectoken.NewHasherFromEnv(cfg.RequireTokenHMAC)
	if err != nil {
		return nil, err
	}

	opts := []session.Option{session.WithLogger(log)}
	if reg != nil {
		m, err := session.NewMetrics(reg)
		if err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		opts = append(opts, session.WithMetrics(m))
	}

	same := func(u identity.User) identity.User { return u }
	return session.NewService(scfg, store, codec, passwords, tokens, same, same, opts...)
}

// NewAuthzService wires the privilege service over Postgres, audited into the same
// database.
func NewAuthzService(cfg Config, pool *pgxpool.Pool, log *slog.Logger) (*authz.Service, error) {
	store, err := authz.NewPostgresStore(pool, "")
	if err != nil {
		return nil, err
	}
	conv, err := NewAuditConverter(cfg)
	if err != nil {
		return nil, err
	}
	logs, err := audit.NewPostgresLogger(stdlib.OpenDBFromPool(pool), audit.WithConverter(conv))
	if err != nil {
		return nil, err
	}
	return authz.NewService(store, authz.WithAuditLogger(logs), authz.WithLogger(log))
}

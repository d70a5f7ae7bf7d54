package authz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"authkit/cmd/authz/privilege"
	"authkit/cmd/internal/audit"
)

// AuditResource is the resource name of privilege audit entries.
const AuditResource = "privilege"

// Service grants, revokes and checks privileges.
type Service struct {
	store Store
	audit audit.Logger
	log   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithAuditLogger records every effective mutation in l.
func WithAuditLogger(l audit.Logger) Option {
	return func(s *Service) { s.audit = l }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

func NewService(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("authz: nil store")
	}
	s := &Service{store: store, log: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// HasPrivilege reports whether userID holds a privilege satisfying required.
//
// A non-nil expireBefore additionally restricts the check to privileges expiring before
// it; permanent privileges are then excluded.
func (s *Service) HasPrivilege(ctx context.Context, userID int64, required privilege.Privilege, expireBefore *time.Time) (bool, error) {
	held, err := s.store.List(ctx, userID, Filter{
		Action:       required.Action,
		Resource:     required.Resource,
		ResID:        required.ResID,
		ExpireAfter:  required.ExpireAt,
		ExpireBefore: expireBefore,
	})
	if err != nil {
		return false, err
	}
	for _, p := range held {
		if privilege.Satisfy(p, required) {
			return true, nil
		}
	}
	return false, nil
}

// GetPrivileges returns every privilege of userID, expired ones included.
func (s *Service) GetPrivileges(ctx context.Context, userID int64) (privilege.Set, error) {
	held, err := s.store.List(ctx, userID, Filter{})
	if err != nil {
		return privilege.Set{}, err
	}
	return privilege.NewSet(held...), nil
}

// Grant adds p to userID. It reports false when the grant already exists; use Expire
// to change the expiry of an existing grant.
func (s *Service) Grant(ctx context.Context, userID int64, p privilege.Privilege) (bool, error) {
	if err := validate(p); err != nil {
		return false, err
	}
	ok, err := s.store.Add(ctx, userID, p)
	if err != nil || !ok {
		return false, err
	}
	s.log.InfoContext(ctx, "privilege granted", "user_id", userID, "privilege", privilege.Encode(p))
	s.record(ctx, userID, audit.ActionGrant, p, "", privilege.Encode(p))
	return true, nil
}

// Delete removes the grant matching p, ignoring its expiry.
func (s *Service) Delete(ctx context.Context, userID int64, p privilege.Privilege) (bool, error) {
	ok, err := s.store.Delete(ctx, userID, p)
	if err != nil || !ok {
		return false, err
	}
	s.log.InfoContext(ctx, "privilege revoked", "user_id", userID, "privilege", privilege.Encode(p))
	s.record(ctx, userID, audit.ActionRevoke, p, privilege.Encode(p), "")
	return true, nil
}

// Expire sets the expiry of the grant matching p to at.
func (s *Service) Expire(ctx context.Context, userID int64, p privilege.Privilege, at time.Time) (bool, error) {
	ok, err := s.store.Expire(ctx, userID, p, at)
	if err != nil || !ok {
		return false, err
	}
	after := p.WithExpiry(at)
	s.log.InfoContext(ctx, "privilege expiry changed", "user_id", userID, "privilege", privilege.Encode(after))
	s.record(ctx, userID, audit.ActionUpdate, p, privilege.Encode(p), privilege.Encode(after))
	return true, nil
}

// record writes an audit entry. The mutation is already committed, so a failure is
// logged and not returned.
func (s *Service) record(ctx context.Context, userID int64, action audit.Action, p privilege.Privilege, before, after string) {
	if s.audit == nil {
		return
	}
	e := audit.LogEntry{
		UserID:        userID,
		Resource:      AuditResource,
		Action:        action,
		RawDataBefore: before,
		RawDataAfter:  after,
	}
	if p.ResID != nil {
		e.ResIDs = []int64{*p.ResID}
	}
	if _, err := s.audit.Log(ctx, e); err != nil {
		s.log.ErrorContext(ctx, "audit log failed", "user_id", userID, "op", string(action), "err", err)
	}
}

// validate rejects privileges whose fields cannot be written in wire form.
func validate(p privilege.Privilege) error {
	got, err := privilege.Decode(privilege.Encode(p))
	if err != nil {
		return err
	}
	if !got.Equal(p) {
		return fmt.Errorf("%w: %q", privilege.ErrInvalidFormat, privilege.Encode(p))
	}
	return nil
}

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"authkit/cmd/identity"
	"authkit/cmd/internal/auth/token"
)

type options struct {
	now     func() time.Time
	log     *slog.Logger
	metrics *Metrics
	limiter *RefreshLimiter
}

// Option configures a Service.
type Option func(*options)

// WithClock overrides the time source for login instants and token issuance.
func WithClock(fn func() time.Time) Option {
	return func(o *options) {
		if fn != nil {
			o.now = fn
		}
	}
}

// WithLogger sets the logger for lifecycle events.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithMetrics records lifecycle counters on m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithRefreshLimiter overrides the limiter built from Config.RefreshMinInterval.
func WithRefreshLimiter(l *RefreshLimiter) Option {
	return func(o *options) { o.limiter = l }
}

// Service implements account and session operations over a Store.
//
// U is the caller's user type; the mapping functions convert between U and the
// storage representation.
type Service[U any] struct {
	cfg       Config
	store     Store
	codec     token.Codec
	passwords Hasher
	tokens    Hasher
	fromUser  func(identity.User) U
	toUser    func(U) identity.User

	options
}

// NewService wires a Service. All dependencies are required.
func NewService[U any](
	cfg Config,
	store Store,
	codec token.Codec,
	passwords Hasher,
	tokens Hasher,
	mapper func(identity.User) U,
	unmapper func(U) identity.User,
	opts ...Option,
) (*Service[U], error) {
	if store == nil || codec == nil || passwords == nil || tokens == nil || mapper == nil || unmapper == nil {
		return nil, fmt.Errorf("%w: missing dependency", ErrConfig)
	}

	s := &Service[U]{
		cfg:       cfg,
		store:     store,
		codec:     codec,
		passwords: passwords,
		tokens:    tokens,
		fromUser:  mapper,
		toUser:    unmapper,
		options: options{
			now:     time.Now,
			log:     slog.New(slog.DiscardHandler),
			limiter: NewRefreshLimiter(cfg.RefreshMinInterval),
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&s.options)
		}
	}
	return s, nil
}

type identifierRule struct {
	field  string
	value  *string
	status EntryStatus
	find   func(context.Context, string) ([]identity.User, error)
}

// CreateAccount persists user with the digest of password.
//
// Requiredness of every identifier is checked before any uniqueness lookup.
// Failures are identity.FieldError values of kind ErrMissingRequiredField or
// ErrDuplicateEntry.
func (s *Service[U]) CreateAccount(ctx context.Context, user U, password string) (U, error) {
	const op = "session.CreateAccount"
	var zero U

	u := s.toUser(user).Normalized()
	u.ID = 0

	rules := []identifierRule{
		{identity.FieldEmail, u.Email, s.cfg.Email, s.store.FindUsersByEmail},
		{identity.FieldUsername, u.Username, s.cfg.Username, s.store.FindUsersByUsername},
		{identity.FieldPhoneNumber, u.PhoneNumber, s.cfg.PhoneNumber, s.store.FindUsersByPhoneNumber},
	}

	for _, r := range rules {
		if r.status.Required && r.value == nil {
			return zero, identity.Missing(op, r.field)
		}
	}

	for _, r := range rules {
		if !r.status.Unique || r.value == nil {
			continue
		}
		found, err := r.find(ctx, *r.value)
		if err != nil {
			return zero, fmt.Errorf("%s: find by %s: %w", op, r.field, err)
		}
		if len(found) > 0 {
			return zero, identity.Duplicate(op, r.field)
		}
	}

	if p, ok := s.passwords.(passwordPolicy); ok {
		if err := p.Validate(password); err != nil {
			return zero, identity.OpError{Op: op, Kind: identity.ErrInvalidInput, Msg: err.Error()}
		}
	}

	created, err := s.store.CreateUser(ctx, u, s.passwords.Hash(password))
	if err != nil {
		return zero, fmt.Errorf("%s: %w", op, err)
	}

	s.metrics.accountCreated()
	s.log.InfoContext(ctx, "account created", "op", op, "user_id", created.ID)

	return s.fromUser(created), nil
}

// LoginByEmail opens a session for the account with email and password.
func (s *Service[U]) LoginByEmail(ctx context.Context, email, password string, dev Device) (token.Pair, error) {
	return s.login(ctx, CredentialEmail, identity.NormalizeEmail(email), password, dev)
}

// LoginByUsername opens a session for the account with username and password.
func (s *Service[U]) LoginByUsername(ctx context.Context, username, password string, dev Device) (token.Pair, error) {
	return s.login(ctx, CredentialUsername, identity.NormalizeUsername(username), password, dev)
}

// LoginByPhoneNumber opens a session for the account with phone and password.
func (s *Service[U]) LoginByPhoneNumber(ctx context.Context, phone, password string, dev Device) (token.Pair, error) {
	return s.login(ctx, CredentialPhoneNumber, identity.NormalizePhoneNumber(phone), password, dev)
}

func (s *Service[U]) login(ctx context.Context, kind Credential, identifier, password string, dev Device) (token.Pair, error) {
	if identifier == "" {
		s.metrics.login(kind, outcomeBadCredential)
		return token.Pair{}, ErrInvalidCredentials
	}

	u, err := s.store.GetUserByCredentials(ctx, kind, identifier, s.passwords.Hash(password))
	if err != nil {
		if identity.IsNotFound(err) {
			s.metrics.login(kind, outcomeBadCredential)
			s.log.DebugContext(ctx, "login rejected", "op", "session.Login", "method", string(kind))
			return token.Pair{}, ErrInvalidCredentials
		}
		s.metrics.login(kind, outcomeError)
		return token.Pair{}, fmt.Errorf("session.Login: %w", err)
	}

	ds := DeviceSession{
		ID:         NewSessionID,
		UserID:     u.ID,
		LoginAt:    s.now().UTC().Truncate(time.Microsecond),
		DeviceType: dev.Type,
		DeviceName: dev.Name,
	}

	pair, err := s.issue(ctx, ds, "")
	if err != nil {
		s.metrics.login(kind, outcomeError)
		return token.Pair{}, err
	}

	s.metrics.login(kind, outcomeSuccess)
	s.log.InfoContext(ctx, "login", "op", "session.Login", "method", string(kind), "user_id", u.ID)
	return pair, nil
}

// issue is the only path that mints tokens. A session with NewSessionID is persisted
// first. With an empty oldRefreshHash the digests are overwritten; otherwise they are
// swapped only if the stored refresh digest still equals oldRefreshHash.
func (s *Service[U]) issue(ctx context.Context, ds DeviceSession, oldRefreshHash string) (token.Pair, error) {
	const op = "session.issue"

	if ds.ID == NewSessionID {
		created, err := s.store.CreateSession(ctx, ds)
		if err != nil {
			return token.Pair{}, fmt.Errorf("%s: create session: %w", op, err)
		}
		ds = created
	}

	at := s.now()
	ts := ds.tokenSession()

	access, err := s.codec.Encode(s.codec.Build(ts, token.TypeAccess, at))
	if err != nil {
		return token.Pair{}, fmt.Errorf("%s: %w", op, err)
	}
	refresh, err := s.codec.Encode(s.codec.Build(ts, token.TypeRefresh, at))
	if err != nil {
		return token.Pair{}, fmt.Errorf("%s: %w", op, err)
	}

	accessHash := s.tokens.Hash(access.Value)
	refreshHash := s.tokens.Hash(refresh.Value)

	if oldRefreshHash == "" {
		if err := s.store.UpdateSessionTokens(ctx, ds.ID, accessHash, refreshHash, at.UTC()); err != nil {
			return token.Pair{}, fmt.Errorf("%s: store tokens: %w", op, err)
		}
	} else {
		ok, err := s.store.SwapSessionTokens(ctx, ds.ID, oldRefreshHash, accessHash, refreshHash, at.UTC())
		if err != nil {
			return token.Pair{}, fmt.Errorf("%s: swap tokens: %w", op, err)
		}
		if !ok {
			return token.Pair{}, errLostRace
		}
	}

	return token.Pair{Access: access, Refresh: refresh}, nil
}

var errLostRace = fmt.Errorf("%w: refresh token already rotated", ErrUnknownSession)

// RefreshToken rotates the pair of the session the refresh token belongs to.
//
// Tokens failing verification are rejected before any store access. A verified token
// that is not the current refresh token of a session yields ErrUnknownSession.
func (s *Service[U]) RefreshToken(ctx context.Context, refresh token.Encoded) (token.Pair, error) {
	const op = "session.RefreshToken"

	if refresh.Type != token.TypeRefresh {
		s.metrics.refresh(outcomeInvalid)
		return token.Pair{}, fmt.Errorf("%w: expected a refresh token", token.ErrInvalidToken)
	}

	decoded, err := s.codec.Decode(refresh)
	if err != nil {
		s.metrics.refresh(outcomeInvalid)
		return token.Pair{}, err
	}

	hash := s.tokens.Hash(strings.TrimSpace(refresh.Value))
	ds, err := s.store.GetSessionByRefreshHash(ctx, hash)
	if err != nil {
		if errors.Is(err, ErrUnknownSession) {
			s.metrics.refresh(outcomeUnknown)
			s.log.WarnContext(ctx, "refresh with unknown session", "op", op, "session_id", decoded.SessionID)
			return token.Pair{}, ErrUnknownSession
		}
		s.metrics.refresh(outcomeError)
		return token.Pair{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.limiter.Allow(ds.ID, s.now()); err != nil {
		s.metrics.refresh(outcomeRateLimited)
		return token.Pair{}, err
	}

	pair, err := s.issue(ctx, ds, hash)
	if err != nil {
		if errors.Is(err, errLostRace) {
			s.metrics.refresh(outcomeLostRace)
			s.log.WarnContext(ctx, "concurrent refresh lost", "op", op, "session_id", ds.ID)
			return token.Pair{}, ErrUnknownSession
		}
		s.metrics.refresh(outcomeError)
		return token.Pair{}, err
	}

	s.metrics.refresh(outcomeSuccess)
	s.log.DebugContext(ctx, "refreshed", "op", op, "user_id", ds.UserID, "session_id", ds.ID)
	return pair, nil
}

// Authenticate verifies an access token and requires it to be the current access token
// of a live session.
func (s *Service[U]) Authenticate(ctx context.Context, access token.Encoded) (token.Decoded, error) {
	if access.Type != token.TypeAccess {
		return token.Decoded{}, fmt.Errorf("%w: expected an access token", token.ErrInvalidToken)
	}

	decoded, err := s.codec.Decode(access)
	if err != nil {
		return token.Decoded{}, err
	}
	uid, err := decoded.UserID()
	if err != nil {
		return token.Decoded{}, fmt.Errorf("%w: subject is not a user id", token.ErrInvalidToken)
	}

	stored, err := s.store.GetSessionTokens(ctx, decoded.SessionID)
	if err != nil {
		if errors.Is(err, ErrUnknownSession) {
			return token.Decoded{}, ErrUnknownSession
		}
		return token.Decoded{}, fmt.Errorf("session.Authenticate: %w", err)
	}
	if stored.UserID != uid || stored.AccessHash == "" || !s.tokens.Match(strings.TrimSpace(access.Value), stored.AccessHash) {
		return token.Decoded{}, ErrUnknownSession
	}
	return decoded, nil
}

// LogoutSession deletes one session of userID and reports whether it existed.
func (s *Service[U]) LogoutSession(ctx context.Context, userID, sessionID int64) (bool, error) {
	ok, err := s.store.DeleteSession(ctx, userID, sessionID)
	if err != nil {
		return false, fmt.Errorf("session.LogoutSession: %w", err)
	}
	if ok {
		s.limiter.Forget(sessionID)
		s.metrics.logout(1)
		s.log.InfoContext(ctx, "logout", "op", "session.LogoutSession", "user_id", userID, "session_id", sessionID)
	}
	return ok, nil
}

// LogoutAllSessions deletes every session of userID and reports whether any existed.
func (s *Service[U]) LogoutAllSessions(ctx context.Context, userID int64) (bool, error) {
	ok, err := s.store.DeleteSessions(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("session.LogoutAllSessions: %w", err)
	}
	if ok {
		s.metrics.logout(1)
		s.log.InfoContext(ctx, "logout all", "op", "session.LogoutAllSessions", "user_id", userID)
	}
	return ok, nil
}

// DeleteAccount deletes the user and, through the store, all of its sessions.
func (s *Service[U]) DeleteAccount(ctx context.Context, userID int64) (bool, error) {
	ok, err := s.store.DeleteUser(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("session.DeleteAccount: %w", err)
	}
	if ok {
		s.log.InfoContext(ctx, "account deleted", "op", "session.DeleteAccount", "user_id", userID)
	}
	return ok, nil
}

// GetUser returns the mapped user or identity.ErrNotFound.
func (s *Service[U]) GetUser(ctx context.Context, userID int64) (U, error) {
	var zero U
	u, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return zero, err
	}
	return s.fromUser(u), nil
}

// UpdateUserData overwrites the stored profile of user.
func (s *Service[U]) UpdateUserData(ctx context.Context, user U) (U, error) {
	var zero U
	updated, err := s.store.UpdateUser(ctx, s.toUser(user).Normalized())
	if err != nil {
		return zero, err
	}
	return s.fromUser(updated), nil
}

// PurgeStaleSessions removes sessions that can no longer yield a valid token: those that
// never received tokens within an access lifetime, and those whose refresh token has
// expired.
func (s *Service[U]) PurgeStaleSessions(ctx context.Context) (int64, error) {
	now := s.now().UTC()
	n, err := s.store.PurgeSessions(ctx,
		now.Add(-s.codec.Lifetime(token.TypeAccess)),
		now.Add(-s.codec.Lifetime(token.TypeRefresh)),
	)
	if err != nil {
		return 0, fmt.Errorf("session.PurgeStaleSessions: %w", err)
	}
	s.metrics.purged(n)
	s.log.InfoContext(ctx, "stale sessions purged", "op", "session.PurgeStaleSessions", "count", n)
	return n, nil
}

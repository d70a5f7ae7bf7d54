package session

import (
	"context"
	"sync"
	"time"

	"authkit/cmd/identity"
)

type memUser struct {
	user         identity.User
	passwordHash string
}

type memSession struct {
	session DeviceSession
	tokens  Tokens
}

// MemoryStore is an in-process Store for tests and single-node tools.
type MemoryStore struct {
	mu       sync.Mutex
	users    map[int64]*memUser
	sessions map[int64]*memSession
	nextUser int64
	nextSess int64
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[int64]*memUser),
		sessions: make(map[int64]*memSession),
	}
}

func (m *MemoryStore) GetUserByID(ctx context.Context, id int64) (identity.User, error) {
	if err := ctx.Err(); err != nil {
		return identity.User{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return identity.User{}, identity.NotFoundError{Op: "session.GetUserByID", Resource: "user"}
	}
	return u.user, nil
}

func (m *MemoryStore) FindUsersByEmail(ctx context.Context, email string) ([]identity.User, error) {
	return m.findBy(ctx, func(u identity.User) *string { return u.Email }, email)
}

func (m *MemoryStore) FindUsersByPhoneNumber(ctx context.Context, phone string) ([]identity.User, error) {
	return m.findBy(ctx, func(u identity.User) *string { return u.PhoneNumber }, phone)
}

func (m *MemoryStore) FindUsersByUsername(ctx context.Context, username string) ([]identity.User, error) {
	return m.findBy(ctx, func(u identity.User) *string { return u.Username }, username)
}

func (m *MemoryStore) findBy(ctx context.Context, field func(identity.User) *string, value string) ([]identity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []identity.User
	for _, u := range m.users {
		if v := field(u.user); v != nil && *v == value {
			out = append(out, u.user)
		}
	}
	return out, nil
}

func (m *MemoryStore) CreateUser(ctx context.Context, u identity.User, passwordHash string) (identity.User, error) {
	if err := ctx.Err(); err != nil {
		return identity.User{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextUser++
	u.ID = m.nextUser
	m.users[u.ID] = &memUser{user: u, passwordHash: passwordHash}
	return u, nil
}

func (m *MemoryStore) GetUserByCredentials(ctx context.Context, kind Credential, identifier, passwordHash string) (identity.User, error) {
	if err := ctx.Err(); err != nil {
		return identity.User{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		var v *string
		switch kind {
		case CredentialEmail:
			v = u.user.Email
		case CredentialUsername:
			v = u.user.Username
		case CredentialPhoneNumber:
			v = u.user.PhoneNumber
		}
		if v != nil && *v == identifier && u.passwordHash == passwordHash {
			return u.user, nil
		}
	}
	return identity.User{}, identity.NotFoundError{Op: "session.GetUserByCredentials", Resource: "user"}
}

func (m *MemoryStore) UpdateUser(ctx context.Context, u identity.User) (identity.User, error) {
	if err := ctx.Err(); err != nil {
		return identity.User{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.users[u.ID]
	if !ok {
		return identity.User{}, identity.NotFoundError{Op: "session.UpdateUser", Resource: "user"}
	}
	cur.user = u
	return u, nil
}

func (m *MemoryStore) DeleteUser(ctx context.Context, id int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[id]; !ok {
		return false, nil
	}
	delete(m.users, id)
	for sid, s := range m.sessions {
		if s.session.UserID == id {
			delete(m.sessions, sid)
		}
	}
	return true, nil
}

func (m *MemoryStore) CreateSession(ctx context.Context, s DeviceSession) (DeviceSession, error) {
	if err := ctx.Err(); err != nil {
		return DeviceSession{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[s.UserID]; !ok {
		return DeviceSession{}, identity.NotFoundError{Op: "session.CreateSession", Resource: "user"}
	}
	m.nextSess++
	s.ID = m.nextSess
	m.sessions[s.ID] = &memSession{session: s, tokens: Tokens{SessionID: s.ID, UserID: s.UserID}}
	return s, nil
}

func (m *MemoryStore) GetSessionByRefreshHash(ctx context.Context, hash string) (DeviceSession, error) {
	if err := ctx.Err(); err != nil {
		return DeviceSession{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if hash == "" {
		return DeviceSession{}, ErrUnknownSession
	}
	for _, s := range m.sessions {
		if s.tokens.RefreshHash == hash {
			return s.session, nil
		}
	}
	return DeviceSession{}, ErrUnknownSession
}

func (m *MemoryStore) GetSessionTokens(ctx context.Context, sessionID int64) (Tokens, error) {
	if err := ctx.Err(); err != nil {
		return Tokens{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return Tokens{}, ErrUnknownSession
	}
	return s.tokens, nil
}

func (m *MemoryStore) UpdateSessionTokens(ctx context.Context, sessionID int64, accessHash, refreshHash string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return ErrUnknownSession
	}
	s.tokens.AccessHash = accessHash
	s.tokens.RefreshHash = refreshHash
	s.tokens.IssuedAt = &at
	return nil
}

func (m *MemoryStore) SwapSessionTokens(ctx context.Context, sessionID int64, oldRefreshHash, accessHash, refreshHash string, at time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok || s.tokens.RefreshHash != oldRefreshHash {
		return false, nil
	}
	s.tokens.AccessHash = accessHash
	s.tokens.RefreshHash = refreshHash
	s.tokens.IssuedAt = &at
	return true, nil
}

func (m *MemoryStore) DeleteSession(ctx context.Context, userID, sessionID int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok || s.session.UserID != userID {
		return false, nil
	}
	delete(m.sessions, sessionID)
	return true, nil
}

func (m *MemoryStore) DeleteSessions(ctx context.Context, userID int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	deleted := false
	for sid, s := range m.sessions {
		if s.session.UserID == userID {
			delete(m.sessions, sid)
			deleted = true
		}
	}
	return deleted, nil
}

func (m *MemoryStore) PurgeSessions(ctx context.Context, unissuedBefore, issuedBefore time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for sid, s := range m.sessions {
		issued := s.tokens.IssuedAt
		if (issued == nil && s.session.LoginAt.Before(unissuedBefore)) ||
			(issued != nil && issued.Before(issuedBefore)) {
			delete(m.sessions, sid)
			n++
		}
	}
	return n, nil
}

package authz

import (
	"context"
	"sort"
	"sync"
	"time"

	"authkit/cmd/authz/privilege"
)

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu     sync.Mutex
	grants map[int64][]privilege.Privilege
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{grants: make(map[int64][]privilege.Privilege)}
}

func (m *MemoryStore) List(ctx context.Context, userID int64, f Filter) ([]privilege.Privilege, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []privilege.Privilege
	for _, p := range m.grants[userID] {
		if f.Match(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return privilege.Encode(out[i]) < privilege.Encode(out[j]) })
	return out, nil
}

func (m *MemoryStore) Add(ctx context.Context, userID int64, p privilege.Privilege) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, held := range m.grants[userID] {
		if sameGrant(held, p) {
			return false, nil
		}
	}
	m.grants[userID] = append(m.grants[userID], clone(p))
	return true, nil
}

func (m *MemoryStore) Delete(ctx context.Context, userID int64, p privilege.Privilege) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	held := m.grants[userID]
	for i := range held {
		if sameGrant(held[i], p) {
			m.grants[userID] = append(held[:i], held[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStore) Expire(ctx context.Context, userID int64, p privilege.Privilege, at time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	held := m.grants[userID]
	for i := range held {
		if sameGrant(held[i], p) {
			held[i] = held[i].WithExpiry(at)
			return true, nil
		}
	}
	return false, nil
}

// clone detaches the pointer fields of p from the caller.
func clone(p privilege.Privilege) privilege.Privilege {
	if p.ResID != nil {
		p = p.WithResID(*p.ResID)
	}
	if p.ExpireAt != nil {
		p = p.WithExpiry(*p.ExpireAt)
	}
	return p
}

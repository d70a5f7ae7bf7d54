package authz

import (
	"context"
	"time"

	"authkit/cmd/authz/privilege"
)

// Filter narrows Store.List. The zero value lists everything.
//
// Action and Resource match held privileges with an equal or empty field. ResID matches
// held privileges without a resource id or with the same one. ExpireAfter keeps
// privileges that never expire or expire after it; ExpireBefore keeps only privileges
// that expire before it.
type Filter struct {
	Action       string
	Resource     string
	ResID        *int64
	ExpireAfter  *time.Time
	ExpireBefore *time.Time
}

// Match reports whether held passes f.
func (f Filter) Match(held privilege.Privilege) bool {
	if f.Action != "" && held.Action != "" && held.Action != f.Action {
		return false
	}
	if f.Resource != "" && held.Resource != "" && held.Resource != f.Resource {
		return false
	}
	if f.ResID != nil && held.ResID != nil && *held.ResID != *f.ResID {
		return false
	}
	if f.ExpireAfter != nil && held.ExpireAt != nil && !held.ExpireAt.After(*f.ExpireAfter) {
		return false
	}
	if f.ExpireBefore != nil && (held.ExpireAt == nil || !held.ExpireAt.Before(*f.ExpireBefore)) {
		return false
	}
	return true
}

// Store persists privileges. A grant is identified by user, action, resource and
// resource id; the expiry is an attribute of the grant.
type Store interface {
	List(ctx context.Context, userID int64, f Filter) ([]privilege.Privilege, error)
	// Add stores p and reports false when the grant already exists.
	Add(ctx context.Context, userID int64, p privilege.Privilege) (bool, error)
	// Delete removes the grant matching p and reports whether one existed.
	Delete(ctx context.Context, userID int64, p privilege.Privilege) (bool, error)
	// Expire sets the expiry of the grant matching p and reports whether one existed.
	Expire(ctx context.Context, userID int64, p privilege.Privilege, at time.Time) (bool, error)
}

func sameGrant(a, b privilege.Privilege) bool {
	if a.Action != b.Action || a.Resource != b.Resource {
		return false
	}
	if a.ResID == nil || b.ResID == nil {
		return a.ResID == nil && b.ResID == nil
	}
	return *a.ResID == *b.ResID
}

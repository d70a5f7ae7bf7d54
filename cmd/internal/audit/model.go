package audit

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// ErrNotFound is returned by GetLog for an unknown id.
var ErrNotFound = errors.New("audit log not found")

// Action is the kind of change an entry records.
type Action string

const (
	ActionCreate Action = "CREATE"
	ActionRead   Action = "READ"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
	ActionGrant  Action = "GRANT"
	ActionRevoke Action = "REVOKE"
	ActionLogin  Action = "LOGIN"
	ActionLogout Action = "LOGOUT"
)

var actions = []Action{
	ActionCreate, ActionRead, ActionUpdate, ActionDelete,
	ActionGrant, ActionRevoke, ActionLogin, ActionLogout,
}

// ParseAction parses a stored action name.
func ParseAction(s string) (Action, error) {
	a := Action(s)
	if !slices.Contains(actions, a) {
		return "", fmt.Errorf("unknown audit action %q", s)
	}
	return a, nil
}

// LogEntry is one audit record. ResIDs has set semantics.
type LogEntry struct {
	LogID    int64
	LoggedAt time.Time

	UserID          int64
	UserName        string
	UserEmail       *string
	UserUsername    *string
	UserPhoneNumber *string

	Resource string
	ResIDs   []int64
	Action   Action

	RawDataBefore string
	RawDataAfter  string
}

// Filter narrows LogsOfUser. Nil and empty fields are ignored.
//
// ResourceIDs is keyed by resource and only consulted for resources listed in
// Resources; an entry passes when it shares at least one id with the list of its own
// resource. Before and After are inclusive.
type Filter struct {
	UserName        *string
	UserEmail       *string
	UserPhoneNumber *string
	UserUsername    *string

	Actions     []Action
	Resources   []string
	ResourceIDs map[string][]int64

	Before *time.Time
	After  *time.Time
}

// Match reports whether e passes every filter field. The user id is not checked.
func (f Filter) Match(e LogEntry) bool {
	if !eqPtr(f.UserName, &e.UserName) ||
		!eqPtr(f.UserEmail, e.UserEmail) ||
		!eqPtr(f.UserPhoneNumber, e.UserPhoneNumber) ||
		!eqPtr(f.UserUsername, e.UserUsername) {
		return false
	}
	if len(f.Actions) > 0 && !slices.Contains(f.Actions, e.Action) {
		return false
	}
	if len(f.Resources) > 0 && !slices.Contains(f.Resources, e.Resource) {
		return false
	}
	if !f.matchResourceIDs(e) {
		return false
	}
	if f.Before != nil && e.LoggedAt.After(*f.Before) {
		return false
	}
	if f.After != nil && e.LoggedAt.Before(*f.After) {
		return false
	}
	return true
}

func (f Filter) matchResourceIDs(e LogEntry) bool {
	if len(f.Resources) == 0 || !slices.Contains(f.Resources, e.Resource) {
		return true
	}
	want := f.ResourceIDs[e.Resource]
	if len(want) == 0 {
		return true
	}
	for _, id := range e.ResIDs {
		if slices.Contains(want, id) {
			return true
		}
	}
	return false
}

// eqPtr treats a nil want as "any".
func eqPtr(want, got *string) bool {
	if want == nil {
		return true
	}
	return got != nil && *got == *want
}

// newestFirst orders by LoggedAt then LogID, both descending.
func newestFirst(a, b LogEntry) int {
	if c := b.LoggedAt.Compare(a.LoggedAt); c != 0 {
		return c
	}
	switch {
	case a.LogID > b.LogID:
		return -1
	case a.LogID < b.LogID:
		return 1
	}
	return 0
}

// normalizeIDs sorts and de-duplicates ids.
func normalizeIDs(ids []int64) []int64 {
	if len(ids) == 0 {
		return nil
	}
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}

package privilege

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	actionResourceSep = ":"
	resIDPrefix       = "@"
	expireAtPrefix    = "T"
)

var grammar = regexp.MustCompile(`^([a-z]*):([a-z]*)(?:@(-?[0-9]*))?(?:T(.+))?$`)

// Privilege is an immutable grant descriptor.
//
// An empty Action or Resource and a nil ResID are wildcards. A nil ExpireAt never expires.
type Privilege struct {
	Action   string
	Resource string
	ResID    *int64
	ExpireAt *time.Time
}

// New returns a privilege without resource id or expiry.
func New(action, resource string) Privilege {
	return Privilege{Action: action, Resource: resource}
}

// WithResID returns a copy of p bound to a single resource id.
func (p Privilege) WithResID(id int64) Privilege {
	p.ResID = &id
	return p
}

// WithExpiry returns a copy of p expiring at t.
func (p Privilege) WithExpiry(t time.Time) Privilege {
	t = t.UTC()
	p.ExpireAt = &t
	return p
}

// Encode renders p in wire form.
func Encode(p Privilege) string {
	var b strings.Builder
	b.WriteString(p.Action)
	b.WriteString(actionResourceSep)
	b.WriteString(p.Resource)
	if p.ResID != nil {
		b.WriteString(resIDPrefix)
		b.WriteString(strconv.FormatInt(*p.ResID, 10))
	}
	if p.ExpireAt != nil {
		b.WriteString(expireAtPrefix)
		b.WriteString(p.ExpireAt.UTC().Format(time.RFC3339Nano))
	}
	return b.String()
}

// String implements fmt.Stringer using the wire form.
func (p Privilege) String() string { return Encode(p) }

// Decode parses a privilege from its wire form.
func Decode(s string) (Privilege, error) {
	m := grammar.FindStringSubmatch(s)
	if m == nil {
		return Privilege{}, &FormatError{Input: s}
	}

	p := Privilege{Action: m[1], Resource: m[2]}

	if m[3] != "" {
		id, err := strconv.ParseInt(m[3], 10, 64)
		if err != nil {
			return Privilege{}, &FormatError{Input: s, Reason: "invalid resource id"}
		}
		p.ResID = &id
	}

	if m[4] != "" {
		t, err := time.Parse(time.RFC3339Nano, m[4])
		if err != nil {
			return Privilege{}, &FormatError{Input: s, Reason: "expiry is not RFC 3339"}
		}
		t = t.UTC()
		p.ExpireAt = &t
	}

	return p, nil
}

// MustDecode is like Decode but panics on malformed input. Intended for literals.
func MustDecode(s string) Privilege {
	p, err := Decode(s)
	if err != nil {
		panic(err)
	}
	return p
}

// Satisfy reports whether held covers required.
//
// Wildcards only widen the held side. Expiry is strict: a held expiry must be after the
// required one, and a held privilege that expires cannot cover a permanent requirement.
func Satisfy(held, required Privilege) bool {
	if held.Action != "" && held.Action != required.Action {
		return false
	}
	if held.Resource != "" && held.Resource != required.Resource {
		return false
	}
	if held.ResID != nil && (required.ResID == nil || *held.ResID != *required.ResID) {
		return false
	}
	if held.ExpireAt == nil {
		return true
	}
	return required.ExpireAt != nil && held.ExpireAt.After(*required.ExpireAt)
}

// Satisfies is the method form of Satisfy.
func (p Privilege) Satisfies(required Privilege) bool { return Satisfy(p, required) }

// Equal reports value equality. Expiries are compared as instants.
func (p Privilege) Equal(o Privilege) bool {
	if p.Action != o.Action || p.Resource != o.Resource {
		return false
	}
	switch {
	case p.ResID == nil && o.ResID == nil:
	case p.ResID == nil || o.ResID == nil || *p.ResID != *o.ResID:
		return false
	}
	switch {
	case p.ExpireAt == nil && o.ExpireAt == nil:
		return true
	case p.ExpireAt == nil || o.ExpireAt == nil:
		return false
	default:
		return p.ExpireAt.Equal(*o.ExpireAt)
	}
}

package privilege

import (
	"sort"
	"strings"
)

const setSep = ";"

// Set is a collection of privileges, unique by value.
// The zero value is an empty set ready to use.
type Set struct {
	items map[string]Privilege
}

// NewSet builds a set from ps, dropping duplicates.
func NewSet(ps ...Privilege) Set {
	s := Set{}
	for _, p := range ps {
		s.Add(p)
	}
	return s
}

// Add inserts p and reports whether it was not already present.
func (s *Set) Add(p Privilege) bool {
	if s.items == nil {
		s.items = make(map[string]Privilege)
	}
	key := Encode(p)
	if _, ok := s.items[key]; ok {
		return false
	}
	s.items[key] = p
	return true
}

// Contains reports whether an equal privilege is in the set.
func (s Set) Contains(p Privilege) bool {
	_, ok := s.items[Encode(p)]
	return ok
}

// Len returns the number of distinct privileges.
func (s Set) Len() int { return len(s.items) }

// Items returns the privileges ordered by their wire form.
func (s Set) Items() []Privilege {
	keys := s.keys()
	out := make([]Privilege, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.items[k])
	}
	return out
}

// Satisfy reports whether any privilege in the set satisfies required.
func (s Set) Satisfy(required Privilege) bool {
	for _, p := range s.items {
		if Satisfy(p, required) {
			return true
		}
	}
	return false
}

// Encode joins the wire forms with ";". The empty set encodes to "".
func (s Set) Encode() string {
	return strings.Join(s.keys(), setSep)
}

// String implements fmt.Stringer.
func (s Set) String() string { return s.Encode() }

// DecodeSet parses a ";"-joined list. Blank input yields an empty set.
func DecodeSet(str string) (Set, error) {
	s := Set{}
	if strings.TrimSpace(str) == "" {
		return s, nil
	}
	for _, part := range strings.Split(str, setSep) {
		p, err := Decode(part)
		if err != nil {
			return Set{}, err
		}
		s.Add(p)
	}
	return s, nil
}

func (s Set) keys() []string {
	keys := make([]string, 0, len(s.items))
	for k := range s.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

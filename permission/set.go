package permission

// Wildcard grants every permission.
const Wildcard = "*"

// Set is an immutable lookup over a user's permission names. The zero value
// is an empty set that denies everything.
type Set struct {
	names    map[string]struct{}
	wildcard bool
}

// NewSet builds a Set from names. Empty names are ignored.
func NewSet(names []string) Set {
	s := Set{names: make(map[string]struct{}, len(names))}
	for _, name := range names {
		if name == "" {
			continue
		}
		if name == Wildcard {
			s.wildcard = true
		}
		s.names[name] = struct{}{}
	}
	return s
}

// Has reports whether p is granted, directly or through the wildcard.
func (s Set) Has(p string) bool {
	if s.wildcard {
		return true
	}
	if p == "" {
		return false
	}
	_, ok := s.names[p]
	return ok
}

// HasAny reports whether at least one of perms is granted. An empty list
// grants nothing.
func (s Set) HasAny(perms []string) bool {
	for _, p := range perms {
		if s.Has(p) {
			return true
		}
	}
	return false
}

// HasAll reports whether every one of perms is granted. An empty list is
// vacuously satisfied.
func (s Set) HasAll(perms []string) bool {
	for _, p := range perms {
		if !s.Has(p) {
			return false
		}
	}
	return true
}

// Len returns the number of distinct names in the set, the wildcard included.
func (s Set) Len() int {
	return len(s.names)
}

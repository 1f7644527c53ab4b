package permission

import "testing"

func TestSetHasExactName(t *testing.T) {
	s := NewSet([]string{"slips.read", "invoices.read"})

	if !s.Has("slips.read") {
		t.Fatal("expected slips.read to be granted")
	}
	if s.Has("slips.write") {
		t.Fatal("expected slips.write to be denied")
	}
	if s.Has("") {
		t.Fatal("expected empty permission to be denied")
	}
}

func TestSetWildcardGrantsEverything(t *testing.T) {
	s := NewSet([]string{Wildcard})

	for _, p := range []string{"slips.read", "roles.manage", "anything"} {
		if !s.Has(p) {
			t.Fatalf("expected wildcard to grant %q", p)
		}
	}
	if !s.HasAll([]string{"a", "b", "c"}) {
		t.Fatal("expected wildcard to satisfy HasAll")
	}
}

func TestSetQuantifiers(t *testing.T) {
	s := NewSet([]string{"a", "b"})

	if !s.HasAny([]string{"x", "b"}) {
		t.Fatal("expected HasAny to match b")
	}
	if s.HasAny([]string{"x", "y"}) {
		t.Fatal("expected HasAny to fail without a match")
	}
	if s.HasAny(nil) {
		t.Fatal("expected HasAny on empty list to be false")
	}
	if !s.HasAll([]string{"a", "b"}) {
		t.Fatal("expected HasAll to pass")
	}
	if s.HasAll([]string{"a", "c"}) {
		t.Fatal("expected HasAll to fail on missing c")
	}
	if !s.HasAll(nil) {
		t.Fatal("expected HasAll on empty list to be true")
	}
}

func TestZeroSetDeniesEverything(t *testing.T) {
	var s Set
	if s.Has("a") || s.HasAny([]string{"a"}) {
		t.Fatal("expected zero set to deny")
	}
	if s.Len() != 0 {
		t.Fatalf("expected zero length, got %d", s.Len())
	}
}

func TestNewSetSkipsEmptyAndDuplicates(t *testing.T) {
	s := NewSet([]string{"", "a", "a", "b"})
	if got := s.Len(); got != 2 {
		t.Fatalf("expected 2 names, got %d", got)
	}
}

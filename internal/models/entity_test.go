package models

import (
	"testing"
)

func TestNewEntityNormalizesType(t *testing.T) {
	e, err := NewEntity("wjriehl", "User")
	if err != nil {
		t.Fatalf("NewEntity failed: %v", err)
	}
	if e.Type != EntityUser {
		t.Errorf("Expected type %q, got %q", EntityUser, e.Type)
	}
	if e.String() != "user::wjriehl" {
		t.Errorf("Expected compact form user::wjriehl, got %s", e.String())
	}
}

func TestNewEntityRejectsBadInput(t *testing.T) {
	if _, err := NewEntity("", EntityUser); err == nil {
		t.Error("Expected error for empty id")
	}
	if _, err := NewEntity("x", "starship"); err == nil {
		t.Error("Expected error for unknown type")
	}
}

func TestParseEntityRoundTrip(t *testing.T) {
	original, _ := NewEntity("12345", EntityWorkspace)
	parsed, err := ParseEntity(original.String())
	if err != nil {
		t.Fatalf("ParseEntity failed: %v", err)
	}
	if !parsed.Equal(original) {
		t.Errorf("Round trip changed identity: %v != %v", parsed, original)
	}
}

func TestParseEntityRejectsMalformed(t *testing.T) {
	for _, s := range []string{"", "user", "::id", "user::", "nosep-id"} {
		if _, err := ParseEntity(s); err == nil {
			t.Errorf("Expected error parsing %q", s)
		}
	}
}

func TestParseEntityIdWithSeparator(t *testing.T) {
	// Only the first separator splits; ids may contain "::" themselves.
	e, err := ParseEntity("job::abc::def")
	if err != nil {
		t.Fatalf("ParseEntity failed: %v", err)
	}
	if e.ID != "abc::def" {
		t.Errorf("Expected id abc::def, got %s", e.ID)
	}
}

func TestDedupeEntitiesKeepsFirstSeenOrder(t *testing.T) {
	a, _ := NewEntity("a", EntityUser)
	b, _ := NewEntity("b", EntityUser)
	c, _ := NewEntity("a", EntityGroup) // same id, different type

	deduped := DedupeEntities([]Entity{a, b, a, c, b})
	if len(deduped) != 3 {
		t.Fatalf("Expected 3 entities, got %d", len(deduped))
	}
	if !deduped[0].Equal(a) || !deduped[1].Equal(b) || !deduped[2].Equal(c) {
		t.Errorf("Dedupe broke first-seen order: %v", deduped)
	}
}

func TestEqualIgnoresName(t *testing.T) {
	a, _ := NewEntity("a", EntityUser)
	b := a
	b.Name = "Arnold"
	if !a.Equal(b) {
		t.Error("Name should not affect identity")
	}
}

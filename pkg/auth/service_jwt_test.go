package auth

import (
	"testing"
	"time"
)

func TestGenerateValidateRoundTrip(t *testing.T) {
	authority, err := NewServiceJWT("test-secret", 0)
	if err != nil {
		t.Fatalf("NewServiceJWT failed: %v", err)
	}

	token, err := authority.Generate("groups")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	identity, err := authority.Validate(token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if identity.Service != "groups" {
		t.Errorf("Expected service 'groups', got %s", identity.Service)
	}
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	signer, _ := NewServiceJWT("secret-a", 0)
	verifier, _ := NewServiceJWT("secret-b", 0)

	token, err := signer.Generate("workspace")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if _, err := verifier.Validate(token); err == nil {
		t.Error("Expected validation to fail for a token signed with a different secret")
	}
}

func TestValidateRejectsExpired(t *testing.T) {
	authority, _ := NewServiceJWT("test-secret", -time.Minute)

	token, err := authority.Generate("jobs")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if _, err := authority.Validate(token); err == nil {
		t.Error("Expected validation to fail for an expired token")
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	authority, _ := NewServiceJWT("test-secret", 0)

	for _, bad := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := authority.Validate(bad); err == nil {
			t.Errorf("Expected validation to fail for %q", bad)
		}
	}
}

func TestNewServiceJWTRequiresSecret(t *testing.T) {
	if _, err := NewServiceJWT("", 0); err == nil {
		t.Error("Expected an error for an empty secret")
	}
}

func TestExtractToken(t *testing.T) {
	tests := []struct {
		header  string
		want    string
		wantErr bool
	}{
		{"Bearer abc123", "abc123", false},
		{"bearer abc123", "abc123", false},
		{"abc123", "abc123", false},
		{"", "", true},
		{"Bearer ", "", true},
	}
	for _, tc := range tests {
		got, err := ExtractToken(tc.header)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ExtractToken(%q): expected error", tc.header)
			}
			continue
		}
		if err != nil {
			t.Errorf("ExtractToken(%q) failed: %v", tc.header, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ExtractToken(%q) = %q, want %q", tc.header, got, tc.want)
		}
	}
}

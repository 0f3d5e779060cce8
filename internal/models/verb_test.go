package models

import (
	"errors"
	"testing"

	"feedhub/internal/apperrors"
)

func TestTranslateVerbForms(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
	}{
		{"int id", 4},
		{"numeric string", "4"},
		{"json float", float64(4)},
		{"infinitive", "share"},
		{"infinitive mixed case", "ShArE"},
		{"past tense", "shared"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := TranslateVerb(tt.in)
			if err != nil {
				t.Fatalf("TranslateVerb(%v) failed: %v", tt.in, err)
			}
			if v.Infinitive != "share" {
				t.Errorf("Expected share, got %s", v.Infinitive)
			}
		})
	}
}

func TestTranslateVerbReturnsCanonicalInstance(t *testing.T) {
	byID, err := TranslateVerb(1)
	if err != nil {
		t.Fatalf("TranslateVerb failed: %v", err)
	}
	byName, err := TranslateVerb("invited")
	if err != nil {
		t.Fatalf("TranslateVerb failed: %v", err)
	}
	if byID != byName {
		t.Error("Expected the same canonical *Verb from both lookups")
	}
}

func TestTranslateVerbUnknown(t *testing.T) {
	_, err := TranslateVerb("defenestrate")
	var missing *apperrors.MissingVerbError
	if !errors.As(err, &missing) {
		t.Fatalf("Expected MissingVerbError, got %v", err)
	}
	if missing.Key != "defenestrate" {
		t.Errorf("Expected key in error, got %q", missing.Key)
	}
}

func TestTranslateVerbBadType(t *testing.T) {
	if _, err := TranslateVerb([]string{"share"}); err == nil {
		t.Error("Expected error for unsupported type")
	}
	if _, err := TranslateVerb((*Verb)(nil)); err == nil {
		t.Error("Expected error for nil verb")
	}
}

func TestVerbRegisterRejectsDuplicates(t *testing.T) {
	r := NewVerbRegistry()

	var dup *apperrors.DuplicateRegistrationError
	if err := r.Register(Verb{ID: 1, Infinitive: "poke", PastTense: "poked"}); !errors.As(err, &dup) {
		t.Errorf("Expected DuplicateRegistrationError for taken id, got %v", err)
	}
	if err := r.Register(Verb{ID: 100, Infinitive: "share", PastTense: "shared again"}); !errors.As(err, &dup) {
		t.Errorf("Expected DuplicateRegistrationError for taken infinitive, got %v", err)
	}
	if err := r.Register(Verb{ID: 100, Infinitive: "reshare", PastTense: "shared"}); !errors.As(err, &dup) {
		t.Errorf("Expected DuplicateRegistrationError for taken past tense, got %v", err)
	}
	if err := r.Register(Verb{ID: 100, Infinitive: "poke", PastTense: "poked"}); err != nil {
		t.Errorf("Expected fresh verb to register, got %v", err)
	}
}

func TestVerbRegisterValidates(t *testing.T) {
	r := NewVerbRegistry()
	if err := r.Register(Verb{Infinitive: "poke", PastTense: "poked"}); err == nil {
		t.Error("Expected error for missing id")
	}
	if err := r.Register(Verb{ID: 100, PastTense: "poked"}); err == nil {
		t.Error("Expected error for missing infinitive")
	}
	if err := r.Register(Verb{ID: 100, Infinitive: "poke"}); err == nil {
		t.Error("Expected error for missing past tense")
	}
}

func TestTranslateLevelForms(t *testing.T) {
	for _, in := range []interface{}{2, "2", float64(2), "warning", "WARNING"} {
		l, err := TranslateLevel(in)
		if err != nil {
			t.Fatalf("TranslateLevel(%v) failed: %v", in, err)
		}
		if l.Name != "warning" {
			t.Errorf("Expected warning, got %s", l.Name)
		}
	}
}

func TestTranslateLevelUnknown(t *testing.T) {
	_, err := TranslateLevel("catastrophic")
	var missing *apperrors.MissingLevelError
	if !errors.As(err, &missing) {
		t.Fatalf("Expected MissingLevelError, got %v", err)
	}
}

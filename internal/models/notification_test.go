package models

import (
	"errors"
	"strings"
	"testing"

	"feedhub/internal/apperrors"
)

func testInput() NotificationInput {
	actor, _ := NewEntity("wjriehl", EntityUser)
	object, _ := NewEntity("12345", EntityWorkspace)
	return NotificationInput{
		Actor:  actor,
		Verb:   "share",
		Object: object,
		Source: "workspace",
		NowMs:  1_700_000_000_000,
	}
}

func TestNewNotificationDefaults(t *testing.T) {
	note, err := NewNotification(testInput())
	if err != nil {
		t.Fatalf("NewNotification failed: %v", err)
	}
	if note.ID == "" {
		t.Error("Expected a generated id")
	}
	if note.Level.Name != "alert" {
		t.Errorf("Expected default level alert, got %s", note.Level.Name)
	}
	if note.Created != 1_700_000_000_000 {
		t.Errorf("Expected creation stamped from NowMs, got %d", note.Created)
	}
	wantExpires := note.Created + int64(DefaultLifespanDays)*24*60*60*1000
	if note.Expires != wantExpires {
		t.Errorf("Expected default expiration %d, got %d", wantExpires, note.Expires)
	}
	if note.Target == nil || note.Users == nil || note.Context == nil {
		t.Error("Expected empty defaults, got nil")
	}
}

func TestNewNotificationCustomLifespan(t *testing.T) {
	in := testInput()
	in.LifespanDays = 7
	note, err := NewNotification(in)
	if err != nil {
		t.Fatalf("NewNotification failed: %v", err)
	}
	if note.Expires != note.Created+7*24*60*60*1000 {
		t.Errorf("Expected 7-day lifespan, got expires %d", note.Expires)
	}
}

func TestNewNotificationRequiredFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*NotificationInput)
	}{
		{"missing actor", func(in *NotificationInput) { in.Actor = Entity{} }},
		{"missing object", func(in *NotificationInput) { in.Object = Entity{} }},
		{"missing source", func(in *NotificationInput) { in.Source = "" }},
		{"missing verb", func(in *NotificationInput) { in.Verb = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := testInput()
			tt.mutate(&in)
			if _, err := NewNotification(in); err == nil {
				t.Error("Expected a validation error")
			}
		})
	}
}

func TestNewNotificationRejectsPastExpiration(t *testing.T) {
	in := testInput()
	in.Expires = in.NowMs - 1
	_, err := NewNotification(in)
	var invalid *apperrors.InvalidExpirationError
	if !errors.As(err, &invalid) {
		t.Fatalf("Expected InvalidExpirationError, got %v", err)
	}

	in.Expires = in.NowMs
	if _, err := NewNotification(in); !errors.As(err, &invalid) {
		t.Fatalf("Expected InvalidExpirationError for expires == created, got %v", err)
	}
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	in := testInput()
	target, _ := NewEntity("g1", EntityGroup)
	user, _ := NewEntity("alice", EntityUser)
	in.Target = []Entity{target}
	in.Users = []Entity{user}
	in.Context = map[string]interface{}{"text": "hello"}
	in.ExternalKey = "upstream-1"

	note, err := NewNotification(in)
	if err != nil {
		t.Fatalf("NewNotification failed: %v", err)
	}
	data, err := note.Serialize()
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}

	back, err := Deserialize(data)
	if err != nil {
		t.Fatalf("Deserialize failed: %v", err)
	}
	if back.ID != note.ID {
		t.Errorf("ID changed: %s != %s", back.ID, note.ID)
	}
	if back.Verb != note.Verb {
		t.Error("Expected the canonical verb instance back")
	}
	if back.Level != note.Level {
		t.Error("Expected the canonical level instance back")
	}
	if !back.Actor.Equal(note.Actor) || !back.Object.Equal(note.Object) {
		t.Error("Actor or object changed in round trip")
	}
	if len(back.Target) != 1 || !back.Target[0].Equal(target) {
		t.Errorf("Target changed: %v", back.Target)
	}
	if len(back.Users) != 1 || !back.Users[0].Equal(user) {
		t.Errorf("Users changed: %v", back.Users)
	}
	if back.ExternalKey != "upstream-1" {
		t.Errorf("ExternalKey changed: %s", back.ExternalKey)
	}
	if back.Created != note.Created || back.Expires != note.Expires {
		t.Error("Timestamps changed in round trip")
	}
}

func TestDeserializeReportsMissingKeys(t *testing.T) {
	_, err := Deserialize([]byte(`{"i": "some-id", "v": 1}`))
	var invalid *apperrors.InvalidNotificationError
	if !errors.As(err, &invalid) {
		t.Fatalf("Expected InvalidNotificationError, got %v", err)
	}
	for _, key := range []string{"a", "o", "s", "l", "c", "e"} {
		if !strings.Contains(invalid.Msg, key) {
			t.Errorf("Expected missing key %q named in %q", key, invalid.Msg)
		}
	}
}

func TestDeserializeRejectsGarbage(t *testing.T) {
	var invalid *apperrors.InvalidNotificationError
	if _, err := Deserialize([]byte("not json")); !errors.As(err, &invalid) {
		t.Fatalf("Expected InvalidNotificationError, got %v", err)
	}
}

func TestToDocFromDocRoundTrip(t *testing.T) {
	in := testInput()
	target, _ := NewEntity("g1", EntityGroup)
	in.Target = []Entity{target}
	note, err := NewNotification(in)
	if err != nil {
		t.Fatalf("NewNotification failed: %v", err)
	}

	doc := note.ToDoc()
	if doc.Actor != "user::wjriehl" {
		t.Errorf("Expected compact actor, got %s", doc.Actor)
	}
	if doc.Verb != note.Verb.ID || doc.Level != note.Level.ID {
		t.Error("Expected numeric verb and level in document")
	}

	back, err := FromDoc(doc)
	if err != nil {
		t.Fatalf("FromDoc failed: %v", err)
	}
	if back.ID != note.ID || !back.Actor.Equal(note.Actor) || back.Verb != note.Verb {
		t.Error("Document round trip changed the notification")
	}
}

func TestUserViewProjection(t *testing.T) {
	in := testInput()
	user, _ := NewEntity("alice", EntityUser)
	in.Users = []Entity{user}
	in.ExternalKey = "secret-key"
	note, err := NewNotification(in)
	if err != nil {
		t.Fatalf("NewNotification failed: %v", err)
	}
	note.Seen = true
	note.Actor.Name = "Bill Riehl"

	view := note.UserView()
	if view.Verb != "shared" {
		t.Errorf("Expected past tense verb, got %s", view.Verb)
	}
	if view.Level != "alert" {
		t.Errorf("Expected level name, got %s", view.Level)
	}
	if !view.Seen {
		t.Error("Expected seen flag carried into view")
	}
	if view.Actor.Name != "Bill Riehl" {
		t.Errorf("Expected resolved actor name, got %q", view.Actor.Name)
	}
}

func TestSeenByDocument(t *testing.T) {
	doc := &FeedDocument{
		Users:  []string{"user::alice", "user::bob"},
		Unseen: []string{"user::bob"},
	}
	if !doc.SeenBy("user::alice") {
		t.Error("alice is not in unseen, should read as seen")
	}
	if doc.SeenBy("user::bob") {
		t.Error("bob is in unseen, should read as unseen")
	}
	if !doc.HasRecipient("user::alice") || doc.HasRecipient("user::carol") {
		t.Error("HasRecipient membership wrong")
	}
}

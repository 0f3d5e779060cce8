package services

import (
	"context"
	"errors"
	"testing"

	"feedhub/internal/apperrors"
	"feedhub/internal/models"
)

type recordingPublisher struct {
	notes     []*models.Notification
	audiences [][]models.Entity
	fail      error
}

func (p *recordingPublisher) PublishFanout(_ context.Context, note *models.Notification, audience []models.Entity) error {
	if p.fail != nil {
		return p.fail
	}
	p.notes = append(p.notes, note)
	p.audiences = append(p.audiences, audience)
	return nil
}

func TestCreateNotificationStampsClockAndLifespan(t *testing.T) {
	svc := NewNotificationService(newFakeStore(), NewFanoutService(testGlobalFeed(t)), nil, fakeClock{testNow}, 14)

	note, err := svc.CreateNotification(models.NotificationInput{
		Actor:  mustEntity(t, "actor", models.EntityUser),
		Verb:   "invite",
		Object: mustEntity(t, "obj", models.EntityGroup),
		Source: "groups",
	})
	if err != nil {
		t.Fatalf("CreateNotification failed: %v", err)
	}
	if note.Created != testNow {
		t.Errorf("Expected created %d, got %d", testNow, note.Created)
	}
	wantExpires := testNow + 14*24*60*60*1000
	if note.Expires != wantExpires {
		t.Errorf("Expected expires %d, got %d", wantExpires, note.Expires)
	}
}

func TestRouteAndStoreInsertsOnceAndPublishes(t *testing.T) {
	store := newFakeStore()
	publisher := &recordingPublisher{}
	svc := NewNotificationService(store, NewFanoutService(testGlobalFeed(t)), publisher, fakeClock{testNow}, 30)

	alice := mustEntity(t, "alice", models.EntityUser)
	bob := mustEntity(t, "bob", models.EntityUser)
	note := testNote(t, "groups", nil, []models.Entity{alice, bob})

	if err := svc.RouteAndStore(context.Background(), note); err != nil {
		t.Fatalf("RouteAndStore failed: %v", err)
	}

	if len(store.docs) != 1 {
		t.Fatalf("Expected exactly one stored document, got %d", len(store.docs))
	}
	doc := store.docs[0]
	if len(doc.Users) != 2 || !doc.HasRecipient(alice.String()) || !doc.HasRecipient(bob.String()) {
		t.Errorf("Expected routed audience persisted, got %v", doc.Users)
	}
	if len(publisher.notes) != 1 || publisher.notes[0].ID != note.ID {
		t.Fatalf("Expected one publish for the stored note, got %d", len(publisher.notes))
	}
	if len(publisher.audiences[0]) != 2 {
		t.Errorf("Expected published audience of 2, got %v", publisher.audiences[0])
	}
}

func TestRouteAndStorePublishFailureIsNotFatal(t *testing.T) {
	store := newFakeStore()
	publisher := &recordingPublisher{fail: errors.New("redis down")}
	svc := NewNotificationService(store, NewFanoutService(testGlobalFeed(t)), publisher, fakeClock{testNow}, 30)

	alice := mustEntity(t, "alice", models.EntityUser)
	note := testNote(t, "groups", nil, []models.Entity{alice})

	if err := svc.RouteAndStore(context.Background(), note); err != nil {
		t.Fatalf("Expected the note stored despite a publish failure, got %v", err)
	}
	if len(store.docs) != 1 {
		t.Errorf("Expected the document persisted, got %d", len(store.docs))
	}
}

func TestRouteAndStoreRejectsInvalid(t *testing.T) {
	store := newFakeStore()
	svc := NewNotificationService(store, NewFanoutService(testGlobalFeed(t)), nil, fakeClock{testNow}, 30)

	alice := mustEntity(t, "alice", models.EntityUser)
	note := testNote(t, "groups", nil, []models.Entity{alice})
	note.Expires = note.Created

	err := svc.RouteAndStore(context.Background(), note)
	var expiration *apperrors.InvalidExpirationError
	if !errors.As(err, &expiration) {
		t.Fatalf("Expected InvalidExpirationError, got %v", err)
	}
	if len(store.docs) != 0 {
		t.Errorf("Expected nothing persisted, got %d", len(store.docs))
	}
}

func TestExpireByIdsSourceScoped(t *testing.T) {
	store := newFakeStore()
	svc := NewNotificationService(store, NewFanoutService(testGlobalFeed(t)), nil, fakeClock{testNow + 500}, 30)

	alice := mustEntity(t, "alice", models.EntityUser)
	mine := seedNote(t, store, "groups", 0, alice)
	other := seedNote(t, store, "workspace", 0, alice)

	result, err := svc.ExpireByIdsOrKeys(context.Background(), []string{mine.ID, other.ID, "missing"}, nil, "groups", false)
	if err != nil {
		t.Fatalf("ExpireByIdsOrKeys failed: %v", err)
	}
	if len(result.Expired.IDs) != 1 || result.Expired.IDs[0] != mine.ID {
		t.Errorf("Expected only the groups note expired, got %v", result.Expired.IDs)
	}
	if len(result.Unauthorized.IDs) != 2 {
		t.Errorf("Expected the foreign and missing ids rejected, got %v", result.Unauthorized.IDs)
	}
	if store.byID[mine.ID].Expires != testNow+500 {
		t.Errorf("Expected the store stamped with the expiry time, got %d", store.byID[mine.ID].Expires)
	}
	if store.byID[other.ID].Expires == testNow+500 {
		t.Error("Expected the foreign note left alone")
	}
}

func TestExpireByIdsAdminBypassesSource(t *testing.T) {
	store := newFakeStore()
	svc := NewNotificationService(store, NewFanoutService(testGlobalFeed(t)), nil, fakeClock{testNow + 500}, 30)

	alice := mustEntity(t, "alice", models.EntityUser)
	a := seedNote(t, store, "groups", 0, alice)
	b := seedNote(t, store, "workspace", 0, alice)

	result, err := svc.ExpireByIdsOrKeys(context.Background(), []string{a.ID, b.ID}, nil, "", true)
	if err != nil {
		t.Fatalf("ExpireByIdsOrKeys failed: %v", err)
	}
	if len(result.Expired.IDs) != 2 {
		t.Errorf("Expected both notes expired for admin, got %v", result.Expired.IDs)
	}
	if len(result.Unauthorized.IDs) != 0 {
		t.Errorf("Expected no rejections, got %v", result.Unauthorized.IDs)
	}
}

func TestExpireByExternalKeys(t *testing.T) {
	store := newFakeStore()
	svc := NewNotificationService(store, NewFanoutService(testGlobalFeed(t)), nil, fakeClock{testNow + 500}, 30)

	alice := mustEntity(t, "alice", models.EntityUser)
	note, err := models.NewNotification(models.NotificationInput{
		Actor:       mustEntity(t, "actor", models.EntityUser),
		Verb:        "update",
		Object:      mustEntity(t, "obj", models.EntityWorkspace),
		Source:      "workspace",
		ExternalKey: "run-42",
		NowMs:       testNow,
	})
	if err != nil {
		t.Fatalf("NewNotification failed: %v", err)
	}
	if err := store.Insert(context.Background(), note, []models.Entity{alice}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	result, err := svc.ExpireByIdsOrKeys(context.Background(), nil, []string{"run-42", "run-43"}, "workspace", false)
	if err != nil {
		t.Fatalf("ExpireByIdsOrKeys failed: %v", err)
	}
	if len(result.Expired.ExternalKeys) != 1 || result.Expired.ExternalKeys[0] != "run-42" {
		t.Errorf("Expected run-42 expired, got %v", result.Expired.ExternalKeys)
	}
	if len(result.Unauthorized.ExternalKeys) != 1 || result.Unauthorized.ExternalKeys[0] != "run-43" {
		t.Errorf("Expected run-43 rejected, got %v", result.Unauthorized.ExternalKeys)
	}
	if store.byID[note.ID].Expires != testNow+500 {
		t.Errorf("Expected the note stamped expired, got %d", store.byID[note.ID].Expires)
	}
}

func TestExpireByExternalKeysRequiresSource(t *testing.T) {
	svc := NewNotificationService(newFakeStore(), NewFanoutService(testGlobalFeed(t)), nil, fakeClock{testNow}, 30)

	_, err := svc.ExpireByIdsOrKeys(context.Background(), nil, []string{"run-42"}, "", false)
	var validation *apperrors.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("Expected ValidationError without a source, got %v", err)
	}
}

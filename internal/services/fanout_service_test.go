package services

import (
	"context"
	"errors"
	"testing"

	"feedhub/internal/models"
)

func mustEntity(t *testing.T, id string, typ models.EntityType) models.Entity {
	t.Helper()
	e, err := models.NewEntity(id, typ)
	if err != nil {
		t.Fatalf("NewEntity(%s, %s) failed: %v", id, typ, err)
	}
	return e
}

func testNote(t *testing.T, source string, target, users []models.Entity) *models.Notification {
	t.Helper()
	note, err := models.NewNotification(models.NotificationInput{
		Actor:  mustEntity(t, "actor", models.EntityUser),
		Verb:   "share",
		Object: mustEntity(t, "obj", models.EntityWorkspace),
		Source: source,
		Target: target,
		Users:  users,
		NowMs:  1_700_000_000_000,
	})
	if err != nil {
		t.Fatalf("NewNotification failed: %v", err)
	}
	return note
}

func testGlobalFeed(t *testing.T) models.Entity {
	return mustEntity(t, "global", models.EntityUser)
}

func TestRouteExplicitUsersWin(t *testing.T) {
	fanout := NewFanoutService(testGlobalFeed(t))
	alice := mustEntity(t, "alice", models.EntityUser)
	bob := mustEntity(t, "bob", models.EntityUser)
	group := mustEntity(t, "g1", models.EntityGroup)

	note := testNote(t, SourceGroups, []models.Entity{group}, []models.Entity{alice, bob})
	audience, err := fanout.Route(context.Background(), note)
	if err != nil {
		t.Fatalf("Route failed: %v", err)
	}
	if len(audience) != 2 || !audience[0].Equal(alice) || !audience[1].Equal(bob) {
		t.Errorf("Expected explicit users only, got %v", audience)
	}
}

func TestRouteFallsBackToTarget(t *testing.T) {
	fanout := NewFanoutService(testGlobalFeed(t))
	group := mustEntity(t, "g1", models.EntityGroup)

	note := testNote(t, SourceGroups, []models.Entity{group}, nil)
	audience, err := fanout.Route(context.Background(), note)
	if err != nil {
		t.Fatalf("Route failed: %v", err)
	}
	if len(audience) != 1 || !audience[0].Equal(group) {
		t.Errorf("Expected target fallback, got %v", audience)
	}
}

func TestRouteAdminGoesToGlobalFeed(t *testing.T) {
	global := testGlobalFeed(t)
	fanout := NewFanoutService(global)
	alice := mustEntity(t, "alice", models.EntityUser)

	note := testNote(t, SourceAdmin, nil, []models.Entity{alice})
	audience, err := fanout.Route(context.Background(), note)
	if err != nil {
		t.Fatalf("Route failed: %v", err)
	}
	if len(audience) != 1 || !audience[0].Equal(global) {
		t.Errorf("Expected the global feed alone, got %v", audience)
	}
}

func TestRouteUnknownSourceUnionsAndDedupes(t *testing.T) {
	fanout := NewFanoutService(testGlobalFeed(t))
	alice := mustEntity(t, "alice", models.EntityUser)
	bob := mustEntity(t, "bob", models.EntityUser)

	note := testNote(t, "somewhere-new", []models.Entity{bob, alice}, []models.Entity{alice})
	audience, err := fanout.Route(context.Background(), note)
	if err != nil {
		t.Fatalf("Route failed: %v", err)
	}
	if len(audience) != 2 {
		t.Fatalf("Expected deduplicated union of 2, got %v", audience)
	}
	// first-seen order: users before target
	if !audience[0].Equal(alice) || !audience[1].Equal(bob) {
		t.Errorf("Expected [alice bob], got %v", audience)
	}
}

func TestRouteIsDeterministic(t *testing.T) {
	fanout := NewFanoutService(testGlobalFeed(t))
	alice := mustEntity(t, "alice", models.EntityUser)
	bob := mustEntity(t, "bob", models.EntityUser)
	note := testNote(t, "anywhere", []models.Entity{bob}, []models.Entity{alice})

	first, err := fanout.Route(context.Background(), note)
	if err != nil {
		t.Fatalf("Route failed: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := fanout.Route(context.Background(), note)
		if err != nil {
			t.Fatalf("Route failed: %v", err)
		}
		if len(again) != len(first) {
			t.Fatalf("Audience size changed between runs")
		}
		for j := range again {
			if !again[j].Equal(first[j]) {
				t.Fatalf("Audience order changed between runs: %v vs %v", again, first)
			}
		}
	}
}

type fakeExpander struct {
	add []models.Entity
	err error
}

func (f *fakeExpander) ExpandAudience(_ context.Context, _ *models.Notification) ([]models.Entity, error) {
	return f.add, f.err
}

func TestRegisterExpanderUnionsWithBase(t *testing.T) {
	fanout := NewFanoutService(testGlobalFeed(t))
	alice := mustEntity(t, "alice", models.EntityUser)
	bob := mustEntity(t, "bob", models.EntityUser)
	ws := mustEntity(t, "123", models.EntityWorkspace)

	fanout.RegisterExpander(SourceWorkspace, &fakeExpander{add: []models.Entity{bob, alice}})

	note := testNote(t, SourceWorkspace, []models.Entity{ws}, []models.Entity{alice})
	audience, err := fanout.Route(context.Background(), note)
	if err != nil {
		t.Fatalf("Route failed: %v", err)
	}
	// explicit users (alice) unioned with expansion (bob, alice), deduped
	if len(audience) != 2 {
		t.Fatalf("Expected 2 recipients, got %v", audience)
	}
	if !models.ContainsEntity(audience, alice) || !models.ContainsEntity(audience, bob) {
		t.Errorf("Expected alice and bob, got %v", audience)
	}
}

func TestRegisterExpanderPropagatesFailure(t *testing.T) {
	fanout := NewFanoutService(testGlobalFeed(t))
	fanout.RegisterExpander(SourceWorkspace, &fakeExpander{err: errors.New("workspace down")})

	ws := mustEntity(t, "123", models.EntityWorkspace)
	note := testNote(t, SourceWorkspace, []models.Entity{ws}, nil)
	if _, err := fanout.Route(context.Background(), note); err == nil {
		t.Error("Expected expander failure to propagate")
	}
}

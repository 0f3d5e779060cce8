package services

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"

	"feedhub/internal/models"
)

func TestMarkFilterScopesToAudience(t *testing.T) {
	alice := mustEntity(t, "alice", models.EntityUser)
	filter := markFilter([]string{"n1", "n2"}, alice)

	if filter["users"] != "user::alice" {
		t.Errorf("Expected audience predicate, got %v", filter["users"])
	}
	in, ok := filter["_id"].(bson.M)
	if !ok {
		t.Fatalf("Expected $in clause, got %v", filter["_id"])
	}
	ids := in["$in"].([]string)
	if len(ids) != 2 || ids[0] != "n1" || ids[1] != "n2" {
		t.Errorf("Expected [n1 n2], got %v", ids)
	}
}

func TestSeenUpdatePullsFromUnseen(t *testing.T) {
	alice := mustEntity(t, "alice", models.EntityUser)
	update := seenUpdate(alice)
	pull, ok := update["$pull"].(bson.M)
	if !ok || pull["unseen"] != "user::alice" {
		t.Errorf("Expected $pull on unseen, got %v", update)
	}
}

func TestUnseenUpdateAddsToSet(t *testing.T) {
	alice := mustEntity(t, "alice", models.EntityUser)
	update := unseenUpdate(alice)
	add, ok := update["$addToSet"].(bson.M)
	if !ok || add["unseen"] != "user::alice" {
		t.Errorf("Expected $addToSet on unseen, got %v", update)
	}
}

func TestTimelineFilterDefaults(t *testing.T) {
	alice := mustEntity(t, "alice", models.EntityUser)
	filter := timelineFilter(TimelineQuery{Recipient: alice, Now: 1000})

	if filter["users"] != "user::alice" {
		t.Errorf("Expected recipient scope, got %v", filter["users"])
	}
	expires, ok := filter["expires"].(bson.M)
	if !ok || expires["$gt"] != int64(1000) {
		t.Errorf("Expected live-only predicate, got %v", filter["expires"])
	}
	// default excludes seen notes
	if filter["unseen"] != "user::alice" {
		t.Errorf("Expected unseen predicate by default, got %v", filter["unseen"])
	}
	if _, ok := filter["level"]; ok {
		t.Error("Did not expect a level filter")
	}
}

func TestTimelineFilterIncludeSeenAndFilters(t *testing.T) {
	alice := mustEntity(t, "alice", models.EntityUser)
	level, _ := models.TranslateLevel("warning")
	verb, _ := models.TranslateVerb("share")

	filter := timelineFilter(TimelineQuery{
		Recipient:   alice,
		IncludeSeen: true,
		Level:       level,
		Verb:        verb,
		Now:         1000,
	})

	if _, ok := filter["unseen"]; ok {
		t.Error("IncludeSeen should drop the unseen predicate")
	}
	if filter["level"] != level.ID {
		t.Errorf("Expected numeric level filter, got %v", filter["level"])
	}
	if filter["verb"] != verb.ID {
		t.Errorf("Expected numeric verb filter, got %v", filter["verb"])
	}
}

func TestTimelineSortOrder(t *testing.T) {
	newest := timelineSort(false)
	if newest[0].Key != "created" || newest[0].Value != -1 {
		t.Errorf("Expected newest-first default, got %v", newest)
	}
	oldest := timelineSort(true)
	if oldest[0].Value != 1 {
		t.Errorf("Expected oldest-first when reversed, got %v", oldest)
	}
}

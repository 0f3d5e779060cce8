package services

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"feedhub/internal/apperrors"
	"feedhub/internal/database"
	"feedhub/internal/models"
)

// TimelineQuery describes one recipient-scoped feed page.
type TimelineQuery struct {
	Recipient   models.Entity
	Count       int
	IncludeSeen bool
	Level       *models.Level
	Verb        *models.Verb
	Reverse     bool
	Now         int64
}

// ActivityStore is the persistence contract the feed façade and the
// notification manager consume. Satisfied by ActivityStorageService and by
// test fakes.
type ActivityStore interface {
	Insert(ctx context.Context, note *models.Notification, audience []models.Entity) error
	MarkSeen(ctx context.Context, ids []string, recipient models.Entity) error
	MarkUnseen(ctx context.Context, ids []string, recipient models.Entity) error
	Timeline(ctx context.Context, q TimelineQuery) ([]*models.Notification, error)
	GetOne(ctx context.Context, id string, recipient models.Entity) (*models.Notification, error)
	GetByExternalKey(ctx context.Context, key, source string) (*models.FeedDocument, error)
	GetByIDs(ctx context.Context, ids []string, source string) ([]*models.FeedDocument, error)
	UnseenCount(ctx context.Context, recipient models.Entity, now int64) (int64, error)
	Expire(ctx context.Context, ids []string, now int64) error
}

// ActivityStorageService is the single source of truth for notification
// documents and per-recipient read state, backed by one Mongo collection.
//
// Seen-state toggles are $pull/$addToSet under a query predicate, so
// concurrent requests converge without read-modify-write races. Expiration
// is an idempotent $set on a separate field.
type ActivityStorageService struct {
	mongodb    *database.MongoDB
	collection *mongo.Collection
}

// NewActivityStorageService creates the Mongo-backed activity store.
func NewActivityStorageService(mongodb *database.MongoDB) *ActivityStorageService {
	return &ActivityStorageService{
		mongodb:    mongodb,
		collection: mongodb.Collection(database.CollectionNotifications),
	}
}

// Insert writes one document with the full audience as users and a copy as
// unseen. At most one write attempt; the caller owns retry policy, since a
// blind retry without idempotency keying could double-fanout.
func (s *ActivityStorageService) Insert(ctx context.Context, note *models.Notification, audience []models.Entity) error {
	if err := note.Validate(); err != nil {
		return err
	}
	doc := note.ToDoc()
	users := models.EntityList(audience).Strings()
	doc.Users = users
	doc.Unseen = append([]string{}, users...)

	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		if m := GetMetrics(); m != nil {
			m.RecordStorageError("insert")
		}
		return &apperrors.StorageError{Op: "insert", Err: err}
	}
	return nil
}

// markFilter scopes a seen-state mutation to documents the recipient is
// actually an audience member of. Ids outside that set are silent no-ops.
func markFilter(ids []string, recipient models.Entity) bson.M {
	return bson.M{
		"_id":   bson.M{"$in": ids},
		"users": recipient.String(),
	}
}

func seenUpdate(recipient models.Entity) bson.M {
	return bson.M{"$pull": bson.M{"unseen": recipient.String()}}
}

func unseenUpdate(recipient models.Entity) bson.M {
	return bson.M{"$addToSet": bson.M{"unseen": recipient.String()}}
}

// MarkSeen removes the recipient from unseen on every listed document that
// has the recipient in its audience.
func (s *ActivityStorageService) MarkSeen(ctx context.Context, ids []string, recipient models.Entity) error {
	_, err := s.collection.UpdateMany(ctx, markFilter(ids, recipient), seenUpdate(recipient))
	if err != nil {
		if m := GetMetrics(); m != nil {
			m.RecordStorageError("mark_seen")
		}
		return &apperrors.StorageError{Op: "mark seen", Err: err}
	}
	return nil
}

// MarkUnseen adds the recipient back to unseen on every listed document that
// has the recipient in its audience.
func (s *ActivityStorageService) MarkUnseen(ctx context.Context, ids []string, recipient models.Entity) error {
	_, err := s.collection.UpdateMany(ctx, markFilter(ids, recipient), unseenUpdate(recipient))
	if err != nil {
		if m := GetMetrics(); m != nil {
			m.RecordStorageError("mark_unseen")
		}
		return &apperrors.StorageError{Op: "mark unseen", Err: err}
	}
	return nil
}

// timelineFilter builds the recipient-scoped query. Expired documents are
// excluded here, never deleted.
func timelineFilter(q TimelineQuery) bson.M {
	recipient := q.Recipient.String()
	filter := bson.M{
		"users":   recipient,
		"expires": bson.M{"$gt": q.Now},
	}
	if !q.IncludeSeen {
		filter["unseen"] = recipient
	}
	if q.Level != nil {
		filter["level"] = q.Level.ID
	}
	if q.Verb != nil {
		filter["verb"] = q.Verb.ID
	}
	return filter
}

func timelineSort(reverse bool) bson.D {
	order := -1
	if reverse {
		order = 1
	}
	return bson.D{{Key: "created", Value: order}}
}

// Timeline returns up to Count notifications for the recipient, newest first
// (oldest first when Reverse), with per-recipient Seen computed.
func (s *ActivityStorageService) Timeline(ctx context.Context, q TimelineQuery) ([]*models.Notification, error) {
	opts := options.Find().
		SetSort(timelineSort(q.Reverse)).
		SetLimit(int64(q.Count))

	cursor, err := s.collection.Find(ctx, timelineFilter(q), opts)
	if err != nil {
		if m := GetMetrics(); m != nil {
			m.RecordStorageError("timeline")
		}
		return nil, &apperrors.StorageError{Op: "timeline", Err: err}
	}
	defer cursor.Close(ctx)

	var docs []*models.FeedDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, &apperrors.StorageError{Op: "timeline decode", Err: err}
	}

	notes := make([]*models.Notification, 0, len(docs))
	for _, doc := range docs {
		note, err := models.FromDoc(doc)
		if err != nil {
			return nil, err
		}
		note.Seen = doc.SeenBy(q.Recipient.String())
		notes = append(notes, note)
	}
	return notes, nil
}

// GetOne returns the notification if the recipient is in its audience.
// Anything else is a NotFoundError: a notification a recipient cannot see
// does not exist from their perspective.
func (s *ActivityStorageService) GetOne(ctx context.Context, id string, recipient models.Entity) (*models.Notification, error) {
	filter := bson.M{"_id": id, "users": recipient.String()}

	var doc models.FeedDocument
	if err := s.collection.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NewNotFound("cannot find notification with id %s", id)
		}
		return nil, &apperrors.StorageError{Op: "get", Err: err}
	}
	note, err := models.FromDoc(&doc)
	if err != nil {
		return nil, err
	}
	note.Seen = doc.SeenBy(recipient.String())
	return note, nil
}

// GetByExternalKey looks a document up by the upstream service's own id.
// The source is part of the key's namespace and is always required here.
func (s *ActivityStorageService) GetByExternalKey(ctx context.Context, key, source string) (*models.FeedDocument, error) {
	if source == "" {
		return nil, apperrors.NewValidation("source is required for an external key lookup")
	}
	filter := bson.M{"external_key": key, "source": source}

	var doc models.FeedDocument
	if err := s.collection.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NewNotFound("cannot find notification with external key %s", key)
		}
		return nil, &apperrors.StorageError{Op: "get by external key", Err: err}
	}
	return &doc, nil
}

// GetByIDs fetches documents by id for expiration workflows. A non-empty
// source restricts matches to that source; admins pass "" to match any.
func (s *ActivityStorageService) GetByIDs(ctx context.Context, ids []string, source string) ([]*models.FeedDocument, error) {
	filter := bson.M{"_id": bson.M{"$in": ids}}
	if source != "" {
		filter["source"] = source
	}
	cursor, err := s.collection.Find(ctx, filter)
	if err != nil {
		return nil, &apperrors.StorageError{Op: "get by ids", Err: err}
	}
	defer cursor.Close(ctx)

	var docs []*models.FeedDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, &apperrors.StorageError{Op: "get by ids decode", Err: err}
	}
	return docs, nil
}

// UnseenCount counts live documents the recipient has not yet seen.
func (s *ActivityStorageService) UnseenCount(ctx context.Context, recipient models.Entity, now int64) (int64, error) {
	filter := bson.M{
		"users":   recipient.String(),
		"unseen":  recipient.String(),
		"expires": bson.M{"$gt": now},
	}
	count, err := s.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, &apperrors.StorageError{Op: "unseen count", Err: err}
	}
	return count, nil
}

// Expire lowers expires to now for every listed id. Idempotent; absent ids
// are not an error. Races cleanly against seen toggles since the fields
// never alias.
func (s *ActivityStorageService) Expire(ctx context.Context, ids []string, now int64) error {
	if len(ids) == 0 {
		return nil
	}
	filter := bson.M{"_id": bson.M{"$in": ids}}
	update := bson.M{"$set": bson.M{"expires": now}}
	if _, err := s.collection.UpdateMany(ctx, filter, update); err != nil {
		if m := GetMetrics(); m != nil {
			m.RecordStorageError("expire")
		}
		return &apperrors.StorageError{Op: "expire", Err: err}
	}
	if m := GetMetrics(); m != nil {
		m.RecordExpire(len(ids))
	}
	return nil
}

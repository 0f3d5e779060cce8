package services

import (
	"context"
	"errors"
	"log/slog"

	"feedhub/internal/apperrors"
	"feedhub/internal/models"
)

// FanoutPublisher is notified after a successful fanout insert so connected
// clients can be pushed to. Best-effort; failures are logged, not returned.
type FanoutPublisher interface {
	PublishFanout(ctx context.Context, note *models.Notification, audience []models.Entity) error
}

// NotificationService is the manager the ingress paths (HTTP and Kafka) hand
// parsed events to: it validates, routes, and persists exactly once.
type NotificationService struct {
	store        ActivityStore
	fanout       *FanoutService
	publisher    FanoutPublisher
	clock        Clock
	lifespanDays int
}

// NewNotificationService wires the manager. publisher may be nil.
func NewNotificationService(store ActivityStore, fanout *FanoutService, publisher FanoutPublisher, clock Clock, lifespanDays int) *NotificationService {
	if clock == nil {
		clock = SystemClock{}
	}
	return &NotificationService{
		store:        store,
		fanout:       fanout,
		publisher:    publisher,
		clock:        clock,
		lifespanDays: lifespanDays,
	}
}

// CreateNotification builds a validated Notification stamped with this
// service's clock and configured lifespan.
func (s *NotificationService) CreateNotification(in models.NotificationInput) (*models.Notification, error) {
	in.NowMs = s.clock.NowMs()
	if in.LifespanDays == 0 {
		in.LifespanDays = s.lifespanDays
	}
	return models.NewNotification(in)
}

// RouteAndStore computes the audience and persists the notification exactly
// once, with every audience member initially unseen. No internal retry: a
// second attempt without idempotency keying could double-fanout.
func (s *NotificationService) RouteAndStore(ctx context.Context, note *models.Notification) error {
	if err := note.Validate(); err != nil {
		return err
	}
	audience, err := s.fanout.Route(ctx, note)
	if err != nil {
		return err
	}
	if err := s.store.Insert(ctx, note, audience); err != nil {
		return err
	}
	if m := GetMetrics(); m != nil {
		m.RecordIngested(note.Source, len(audience))
	}
	if s.publisher != nil {
		if err := s.publisher.PublishFanout(ctx, note, audience); err != nil {
			slog.Warn("fanout publish failed", "id", note.ID, "error", err)
		}
	}
	return nil
}

// ExpireTargets names notifications by id and/or upstream external key.
type ExpireTargets struct {
	IDs          []string `json:"note_ids"`
	ExternalKeys []string `json:"external_keys"`
}

// ExpireResult partitions the requested targets into those actually expired
// and those the caller was not entitled to touch (or that do not exist).
// "Not found" is never an error here; expiration is bulk and best-effort.
type ExpireResult struct {
	Expired      ExpireTargets `json:"expired"`
	Unauthorized ExpireTargets `json:"unauthorized"`
}

// ExpireByIdsOrKeys force-expires notifications. Services may only expire
// what they created (matched by source); admins may expire anything by id.
// External-key lookups always need a source, since the key is namespaced
// by it.
func (s *NotificationService) ExpireByIdsOrKeys(ctx context.Context, ids, externalKeys []string, source string, isAdmin bool) (*ExpireResult, error) {
	result := &ExpireResult{
		Expired:      ExpireTargets{IDs: []string{}, ExternalKeys: []string{}},
		Unauthorized: ExpireTargets{IDs: []string{}, ExternalKeys: []string{}},
	}
	var toExpire []string

	if len(ids) > 0 {
		lookupSource := source
		if isAdmin {
			lookupSource = ""
		}
		docs, err := s.store.GetByIDs(ctx, ids, lookupSource)
		if err != nil {
			return nil, err
		}
		found := make(map[string]bool, len(docs))
		for _, doc := range docs {
			found[doc.ID] = true
		}
		for _, id := range ids {
			if found[id] {
				result.Expired.IDs = append(result.Expired.IDs, id)
				toExpire = append(toExpire, id)
			} else {
				result.Unauthorized.IDs = append(result.Unauthorized.IDs, id)
			}
		}
	}

	if len(externalKeys) > 0 {
		if source == "" {
			return nil, apperrors.NewValidation("source is required to expire notifications by external key")
		}
		for _, key := range externalKeys {
			doc, err := s.store.GetByExternalKey(ctx, key, source)
			if err != nil {
				var notFound *apperrors.NotFoundError
				if errors.As(err, &notFound) {
					result.Unauthorized.ExternalKeys = append(result.Unauthorized.ExternalKeys, key)
					continue
				}
				return nil, err
			}
			result.Expired.ExternalKeys = append(result.Expired.ExternalKeys, key)
			toExpire = append(toExpire, doc.ID)
		}
	}

	if err := s.store.Expire(ctx, toExpire, s.clock.NowMs()); err != nil {
		return nil, err
	}
	return result, nil
}

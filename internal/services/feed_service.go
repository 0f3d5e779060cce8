package services

import (
	"context"
	"time"

	"feedhub/internal/apperrors"
	"feedhub/internal/models"
)

// FeedService hands out per-recipient NotificationFeed views over the shared
// activity store.
type FeedService struct {
	store    ActivityStore
	resolver *ResolverService
	clock    Clock
}

// NewFeedService creates the feed façade factory.
func NewFeedService(store ActivityStore, resolver *ResolverService, clock Clock) *FeedService {
	if clock == nil {
		clock = SystemClock{}
	}
	return &FeedService{store: store, resolver: resolver, clock: clock}
}

// ForRecipient binds a recipient entity to the store.
func (s *FeedService) ForRecipient(recipient models.Entity) *NotificationFeed {
	return &NotificationFeed{
		recipient: recipient,
		store:     s.store,
		resolver:  s.resolver,
		clock:     s.clock,
	}
}

// NotificationFeed is one recipient's filtered, paginated, read-state-aware
// view over the shared notification store.
type NotificationFeed struct {
	recipient models.Entity
	store     ActivityStore
	resolver  *ResolverService
	clock     Clock
}

// FeedOptions are the query knobs for one feed page.
type FeedOptions struct {
	Count       int
	IncludeSeen bool
	Level       *models.Level
	Verb        *models.Verb
	Reverse     bool
	UserView    bool
}

// FeedPage is the request-shaped result for one feed query.
type FeedPage struct {
	Unseen int64         `json:"unseen"`
	Name   string        `json:"name"`
	Feed   []interface{} `json:"feed"`
}

// Recipient returns the entity this feed is bound to.
func (f *NotificationFeed) Recipient() models.Entity { return f.recipient }

// GetNotifications returns one page of this recipient's timeline plus the
// live unseen count. With UserView set, entity names are resolved in bulk
// before projection.
func (f *NotificationFeed) GetNotifications(ctx context.Context, opts FeedOptions) (*FeedPage, error) {
	if opts.Count < 1 {
		return nil, apperrors.NewValidation("count must be an integer > 0")
	}
	start := time.Now()
	now := f.clock.NowMs()

	notes, err := f.store.Timeline(ctx, TimelineQuery{
		Recipient:   f.recipient,
		Count:       opts.Count,
		IncludeSeen: opts.IncludeSeen,
		Level:       opts.Level,
		Verb:        opts.Verb,
		Reverse:     opts.Reverse,
		Now:         now,
	})
	if err != nil {
		return nil, err
	}

	unseen, err := f.store.UnseenCount(ctx, f.recipient, now)
	if err != nil {
		return nil, err
	}

	page := &FeedPage{
		Unseen: unseen,
		Name:   f.recipient.String(),
		Feed:   make([]interface{}, 0, len(notes)),
	}
	if opts.UserView {
		if f.resolver != nil {
			if err := f.resolver.ResolveNotificationNames(ctx, notes); err != nil {
				return nil, err
			}
		}
		for _, n := range notes {
			page.Feed = append(page.Feed, n.UserView())
		}
	} else {
		for _, n := range notes {
			page.Feed = append(page.Feed, n)
		}
	}

	if m := GetMetrics(); m != nil {
		m.RecordFeedQuery(time.Since(start).Seconds())
	}
	return page, nil
}

// UnseenCount returns the number of live unseen notifications in this feed.
func (f *NotificationFeed) UnseenCount(ctx context.Context) (int64, error) {
	return f.store.UnseenCount(ctx, f.recipient, f.clock.NowMs())
}

// GetNotification returns a single notification, or a NotFoundError when it
// is absent or not visible to this recipient.
func (f *NotificationFeed) GetNotification(ctx context.Context, id string) (*models.Notification, error) {
	return f.store.GetOne(ctx, id, f.recipient)
}

// partitionVisible splits ids into those this recipient is an audience
// member of and those that are unknown or belong to someone else.
func (f *NotificationFeed) partitionVisible(ctx context.Context, ids []string) (visible, unauthorized []string, err error) {
	visible = []string{}
	unauthorized = []string{}
	if len(ids) == 0 {
		return visible, unauthorized, nil
	}
	docs, err := f.store.GetByIDs(ctx, ids, "")
	if err != nil {
		return nil, nil, err
	}
	mine := make(map[string]bool, len(docs))
	for _, doc := range docs {
		if doc.HasRecipient(f.recipient.String()) {
			mine[doc.ID] = true
		}
	}
	for _, id := range ids {
		if mine[id] {
			visible = append(visible, id)
		} else {
			unauthorized = append(unauthorized, id)
		}
	}
	return visible, unauthorized, nil
}

// MarkSeen marks the given notifications seen for this recipient and
// reports which ids were actually marked versus not visible to them.
func (f *NotificationFeed) MarkSeen(ctx context.Context, ids []string) (seen, unauthorized []string, err error) {
	seen, unauthorized, err = f.partitionVisible(ctx, ids)
	if err != nil {
		return nil, nil, err
	}
	if err := f.store.MarkSeen(ctx, seen, f.recipient); err != nil {
		return nil, nil, err
	}
	if m := GetMetrics(); m != nil {
		m.RecordMark("seen")
	}
	return seen, unauthorized, nil
}

// MarkUnseen marks the given notifications unseen again for this recipient.
func (f *NotificationFeed) MarkUnseen(ctx context.Context, ids []string) (unseen, unauthorized []string, err error) {
	unseen, unauthorized, err = f.partitionVisible(ctx, ids)
	if err != nil {
		return nil, nil, err
	}
	if err := f.store.MarkUnseen(ctx, unseen, f.recipient); err != nil {
		return nil, nil, err
	}
	if m := GetMetrics(); m != nil {
		m.RecordMark("unseen")
	}
	return unseen, unauthorized, nil
}

// Add inserts a notification addressed to this recipient alone, bypassing
// the general fanout path. Used for global-feed posts and direct adds.
func (f *NotificationFeed) Add(ctx context.Context, note *models.Notification) error {
	return f.store.Insert(ctx, note, []models.Entity{f.recipient})
}

package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"feedhub/internal/apperrors"
)

// DefaultLifespanDays is used when a notification is built without an
// explicit expiration and no lifespan was configured.
const DefaultLifespanDays = 30

const msPerDay = 24 * 60 * 60 * 1000

// Notification is the immutable-after-creation activity record. The only
// post-construction mutations happen in storage: per-recipient seen toggles
// and expiration, neither of which touches the fields here.
type Notification struct {
	ID          string
	Actor       Entity
	Verb        *Verb
	Object      Entity
	Source      string
	Level       *Level
	Target      []Entity
	Users       []Entity
	Context     map[string]interface{}
	Created     int64 // epoch ms
	Expires     int64 // epoch ms, always > Created
	ExternalKey string

	// Seen is a per-recipient view flag computed at query time.
	// It is not part of the notification itself and is never serialized.
	Seen bool
}

// NotificationInput carries the construction parameters for a Notification.
// Verb and Level go through the registries and accept any translatable form.
type NotificationInput struct {
	Actor       Entity
	Verb        interface{}
	Object      Entity
	Source      string
	Level       interface{} // nil means "alert"
	Target      []Entity
	Users       []Entity
	Context     map[string]interface{}
	Expires     int64 // 0 means "created + lifespan"
	ExternalKey string

	NowMs        int64 // 0 means system clock
	LifespanDays int   // 0 means DefaultLifespanDays
}

// NewNotification validates the input, stamps creation time and computes the
// expiration. Target, Users and Context are never nil afterwards.
func NewNotification(in NotificationInput) (*Notification, error) {
	if in.Actor.IsZero() {
		return nil, apperrors.NewValidation("a notification requires an actor")
	}
	if in.Object.IsZero() {
		return nil, apperrors.NewValidation("a notification requires an object")
	}
	if in.Source == "" {
		return nil, apperrors.NewValidation("a notification requires a source")
	}
	if in.Verb == nil {
		return nil, apperrors.NewValidation("a notification requires a verb")
	}
	verb, err := TranslateVerb(in.Verb)
	if err != nil {
		return nil, err
	}
	levelKey := in.Level
	if levelKey == nil {
		levelKey = "alert"
	}
	level, err := TranslateLevel(levelKey)
	if err != nil {
		return nil, err
	}

	created := in.NowMs
	if created == 0 {
		created = time.Now().UnixMilli()
	}
	expires := in.Expires
	if expires == 0 {
		days := in.LifespanDays
		if days <= 0 {
			days = DefaultLifespanDays
		}
		expires = created + int64(days)*msPerDay
	}

	note := &Notification{
		ID:          uuid.NewString(),
		Actor:       in.Actor,
		Verb:        verb,
		Object:      in.Object,
		Source:      in.Source,
		Level:       level,
		Target:      in.Target,
		Users:       in.Users,
		Context:     in.Context,
		Created:     created,
		Expires:     expires,
		ExternalKey: in.ExternalKey,
	}
	if note.Target == nil {
		note.Target = []Entity{}
	}
	if note.Users == nil {
		note.Users = []Entity{}
	}
	if note.Context == nil {
		note.Context = map[string]interface{}{}
	}
	if err := note.Validate(); err != nil {
		return nil, err
	}
	return note, nil
}

// Validate re-checks the expiration invariant. Run immediately before
// persistence to catch constructed-then-mutated instances.
func (n *Notification) Validate() error {
	if n.Expires <= n.Created {
		return &apperrors.InvalidExpirationError{
			Msg: fmt.Sprintf("expiration %d must be after creation %d", n.Expires, n.Created),
		}
	}
	return nil
}

// denseNote is the single-letter wire form used by the cache/transport path
// and the Kafka ingress.
type denseNote struct {
	ID          *string                `json:"i"`
	Actor       *string                `json:"a"`
	Verb        *int                   `json:"v"`
	Object      *string                `json:"o"`
	Source      *string                `json:"s"`
	Target      []string               `json:"t"`
	Level       *int                   `json:"l"`
	Created     *int64                 `json:"c"`
	Expires     *int64                 `json:"e"`
	Context     map[string]interface{} `json:"n,omitempty"`
	ExternalKey string                 `json:"x,omitempty"`
	Users       []string               `json:"u"`
}

// Serialize renders the dense single-letter JSON form.
func (n *Notification) Serialize() ([]byte, error) {
	verbID := n.Verb.ID
	levelID := n.Level.ID
	actor := n.Actor.String()
	object := n.Object.String()
	dense := denseNote{
		ID:          &n.ID,
		Actor:       &actor,
		Verb:        &verbID,
		Object:      &object,
		Source:      &n.Source,
		Target:      EntityList(n.Target).Strings(),
		Level:       &levelID,
		Created:     &n.Created,
		Expires:     &n.Expires,
		Context:     n.Context,
		ExternalKey: n.ExternalKey,
		Users:       EntityList(n.Users).Strings(),
	}
	return json.Marshal(dense)
}

// Deserialize rebuilds a Notification from its dense form. Missing required
// keys or non-JSON input yield an InvalidNotificationError.
func Deserialize(data []byte) (*Notification, error) {
	var dense denseNote
	if err := json.Unmarshal(data, &dense); err != nil {
		return nil, &apperrors.InvalidNotificationError{
			Msg: fmt.Sprintf("can not unpack notification: %v", err),
		}
	}
	missing := []string{}
	if dense.ID == nil {
		missing = append(missing, "i")
	}
	if dense.Actor == nil {
		missing = append(missing, "a")
	}
	if dense.Verb == nil {
		missing = append(missing, "v")
	}
	if dense.Object == nil {
		missing = append(missing, "o")
	}
	if dense.Source == nil {
		missing = append(missing, "s")
	}
	if dense.Level == nil {
		missing = append(missing, "l")
	}
	if dense.Created == nil {
		missing = append(missing, "c")
	}
	if dense.Expires == nil {
		missing = append(missing, "e")
	}
	if len(missing) > 0 {
		return nil, &apperrors.InvalidNotificationError{
			Msg: fmt.Sprintf("missing keys in serialized notification: %v", missing),
		}
	}

	actor, err := ParseEntity(*dense.Actor)
	if err != nil {
		return nil, &apperrors.InvalidNotificationError{Msg: err.Error()}
	}
	object, err := ParseEntity(*dense.Object)
	if err != nil {
		return nil, &apperrors.InvalidNotificationError{Msg: err.Error()}
	}
	verb, err := TranslateVerb(*dense.Verb)
	if err != nil {
		return nil, &apperrors.InvalidNotificationError{Msg: err.Error()}
	}
	level, err := TranslateLevel(*dense.Level)
	if err != nil {
		return nil, &apperrors.InvalidNotificationError{Msg: err.Error()}
	}
	target, err := ParseEntities(dense.Target)
	if err != nil {
		return nil, &apperrors.InvalidNotificationError{Msg: err.Error()}
	}
	users, err := ParseEntities(dense.Users)
	if err != nil {
		return nil, &apperrors.InvalidNotificationError{Msg: err.Error()}
	}

	note := &Notification{
		ID:          *dense.ID,
		Actor:       actor,
		Verb:        verb,
		Object:      object,
		Source:      *dense.Source,
		Level:       level,
		Target:      target,
		Users:       users,
		Context:     dense.Context,
		Created:     *dense.Created,
		Expires:     *dense.Expires,
		ExternalKey: dense.ExternalKey,
	}
	if note.Context == nil {
		note.Context = map[string]interface{}{}
	}
	return note, nil
}

// ToDoc projects the notification into its persisted document form.
// The audience fields (Users, Unseen) are stamped by storage at insert time;
// here Users carries the notification's own explicit user list.
func (n *Notification) ToDoc() *FeedDocument {
	return &FeedDocument{
		ID:          n.ID,
		Actor:       n.Actor.String(),
		Verb:        n.Verb.ID,
		Object:      n.Object.String(),
		Source:      n.Source,
		Level:       n.Level.ID,
		Target:      EntityList(n.Target).Strings(),
		Users:       EntityList(n.Users).Strings(),
		Context:     n.Context,
		Created:     n.Created,
		Expires:     n.Expires,
		ExternalKey: n.ExternalKey,
	}
}

// FromDoc rebuilds a Notification from its persisted form. The document's
// audience becomes Users; Seen is derived from unseen membership by the
// caller, which knows the recipient.
func FromDoc(doc *FeedDocument) (*Notification, error) {
	actor, err := ParseEntity(doc.Actor)
	if err != nil {
		return nil, &apperrors.InvalidNotificationError{Msg: err.Error()}
	}
	object, err := ParseEntity(doc.Object)
	if err != nil {
		return nil, &apperrors.InvalidNotificationError{Msg: err.Error()}
	}
	verb, err := TranslateVerb(doc.Verb)
	if err != nil {
		return nil, &apperrors.InvalidNotificationError{Msg: err.Error()}
	}
	level, err := TranslateLevel(doc.Level)
	if err != nil {
		return nil, &apperrors.InvalidNotificationError{Msg: err.Error()}
	}
	target, err := ParseEntities(doc.Target)
	if err != nil {
		return nil, &apperrors.InvalidNotificationError{Msg: err.Error()}
	}
	users, err := ParseEntities(doc.Users)
	if err != nil {
		return nil, &apperrors.InvalidNotificationError{Msg: err.Error()}
	}
	note := &Notification{
		ID:          doc.ID,
		Actor:       actor,
		Verb:        verb,
		Object:      object,
		Source:      doc.Source,
		Level:       level,
		Target:      target,
		Users:       users,
		Context:     doc.Context,
		Created:     doc.Created,
		Expires:     doc.Expires,
		ExternalKey: doc.ExternalKey,
	}
	if note.Context == nil {
		note.Context = map[string]interface{}{}
	}
	return note, nil
}

// entityView is the user-facing projection of an Entity.
type entityView struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

func toEntityView(e Entity) entityView {
	return entityView{ID: e.ID, Type: string(e.Type), Name: e.Name}
}

// UserView is the display projection returned to feed consumers. The verb is
// the past-tense display string, the level its name; the audience list and
// the external key are hidden.
type UserView struct {
	ID      string                 `json:"id"`
	Actor   entityView             `json:"actor"`
	Verb    string                 `json:"verb"`
	Object  entityView             `json:"object"`
	Source  string                 `json:"source"`
	Level   string                 `json:"level"`
	Target  []entityView           `json:"target"`
	Context map[string]interface{} `json:"context"`
	Created int64                  `json:"created"`
	Expires int64                  `json:"expires"`
	Seen    bool                   `json:"seen"`
}

// UserView builds the display projection. Entity names are expected to be
// resolved beforehand (in bulk) by the caller.
func (n *Notification) UserView() *UserView {
	targets := make([]entityView, len(n.Target))
	for i, t := range n.Target {
		targets[i] = toEntityView(t)
	}
	return &UserView{
		ID:      n.ID,
		Actor:   toEntityView(n.Actor),
		Verb:    n.Verb.PastTense,
		Object:  toEntityView(n.Object),
		Source:  n.Source,
		Level:   n.Level.Name,
		Target:  targets,
		Context: n.Context,
		Created: n.Created,
		Expires: n.Expires,
		Seen:    n.Seen,
	}
}

// Entities returns every entity referenced by the notification, for bulk
// name resolution before a user-view projection.
func (n *Notification) Entities() []*Entity {
	out := []*Entity{&n.Actor, &n.Object}
	for i := range n.Target {
		out = append(out, &n.Target[i])
	}
	return out
}

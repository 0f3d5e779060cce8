package models

import (
	"fmt"
	"strings"

	"feedhub/internal/apperrors"
)

// EntityType tags the platform service that owns an entity id.
type EntityType string

const (
	EntityUser      EntityType = "user"
	EntityGroup     EntityType = "group"
	EntityNarrative EntityType = "narrative"
	EntityWorkspace EntityType = "workspace"
	EntityJob       EntityType = "job"
	EntityApp       EntityType = "app"
	EntityService   EntityType = "service"
	EntityAdmin     EntityType = "admin"
)

// EntitySeparator joins type and id in the compact string form.
const EntitySeparator = "::"

var entityTypes = map[EntityType]bool{
	EntityUser:      true,
	EntityGroup:     true,
	EntityNarrative: true,
	EntityWorkspace: true,
	EntityJob:       true,
	EntityApp:       true,
	EntityService:   true,
	EntityAdmin:     true,
}

// AllEntityTypes returns the closed set of entity types.
func AllEntityTypes() []EntityType {
	return []EntityType{
		EntityUser, EntityGroup, EntityNarrative, EntityWorkspace,
		EntityJob, EntityApp, EntityService, EntityAdmin,
	}
}

// ValidEntityType reports whether t names a known entity type.
func ValidEntityType(t EntityType) bool {
	return entityTypes[t]
}

// Entity is a typed reference to a platform object owned by another service.
// Identity is (ID, Type); Name is resolved lazily and never persisted.
type Entity struct {
	ID   string     `bson:"id" json:"id"`
	Type EntityType `bson:"type" json:"type"`
	Name string     `bson:"-" json:"name,omitempty"`
}

// NewEntity builds an Entity, lowercasing and validating the type.
func NewEntity(id string, entityType EntityType) (Entity, error) {
	if id == "" {
		return Entity{}, apperrors.NewValidation("an entity must have an id")
	}
	t := EntityType(strings.ToLower(string(entityType)))
	if !ValidEntityType(t) {
		return Entity{}, apperrors.NewValidation("'%s' is not a valid entity type", entityType)
	}
	return Entity{ID: id, Type: t}, nil
}

// String returns the compact form "type::id". Round-trips through
// ParseEntity losslessly, except for Name.
func (e Entity) String() string {
	return string(e.Type) + EntitySeparator + e.ID
}

// Equal compares by identity: (ID, Type). Name is ignored.
func (e Entity) Equal(other Entity) bool {
	return e.ID == other.ID && e.Type == other.Type
}

// Key returns the identity an Entity dedupes under.
func (e Entity) Key() string { return e.String() }

// IsZero reports whether the entity is unset.
func (e Entity) IsZero() bool { return e.ID == "" && e.Type == "" }

// ParseEntity rebuilds an Entity from its compact string form.
func ParseEntity(s string) (Entity, error) {
	parts := strings.SplitN(s, EntitySeparator, 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Entity{}, apperrors.NewValidation("'%s' could not be resolved into an entity", s)
	}
	return NewEntity(parts[1], EntityType(parts[0]))
}

// EntityList is a helper for the compact persisted form of entity slices.
type EntityList []Entity

// Strings returns the compact form of every entity, in order.
func (l EntityList) Strings() []string {
	out := make([]string, len(l))
	for i, e := range l {
		out[i] = e.String()
	}
	return out
}

// ParseEntities rebuilds a slice of entities from compact strings.
func ParseEntities(ss []string) ([]Entity, error) {
	out := make([]Entity, 0, len(ss))
	for _, s := range ss {
		e, err := ParseEntity(s)
		if err != nil {
			return nil, fmt.Errorf("invalid entity %q: %w", s, err)
		}
		out = append(out, e)
	}
	return out, nil
}

// DedupeEntities drops duplicate identities, keeping first-seen order.
func DedupeEntities(entities []Entity) []Entity {
	seen := make(map[string]bool, len(entities))
	out := make([]Entity, 0, len(entities))
	for _, e := range entities {
		if seen[e.Key()] {
			continue
		}
		seen[e.Key()] = true
		out = append(out, e)
	}
	return out
}

// ContainsEntity reports whether the slice holds an entity with the same identity.
func ContainsEntity(entities []Entity, e Entity) bool {
	for _, other := range entities {
		if other.Equal(e) {
			return true
		}
	}
	return false
}

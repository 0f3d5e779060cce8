package models

import (
	"strconv"
	"strings"

	"feedhub/internal/apperrors"
)

// Level is a notification severity. Instances are canonical, like verbs.
type Level struct {
	ID   int    `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

func (l *Level) String() string { return l.Name }

// LevelRegistry maps ids and names to canonical levels. Populated once at
// startup, read-only afterwards.
type LevelRegistry struct {
	byKey map[string]*Level
}

// NewLevelRegistry returns a registry preloaded with the builtin levels.
func NewLevelRegistry() *LevelRegistry {
	r := &LevelRegistry{byKey: make(map[string]*Level)}
	builtins := []Level{
		{ID: 1, Name: "alert"},
		{ID: 2, Name: "warning"},
		{ID: 3, Name: "error"},
		{ID: 4, Name: "request"},
	}
	for i := range builtins {
		if err := r.Register(builtins[i]); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds a level. Id and name must each be unique across the registry.
func (r *LevelRegistry) Register(l Level) error {
	if l.ID == 0 {
		return apperrors.NewValidation("a level must have an id")
	}
	if l.Name == "" {
		return apperrors.NewValidation("a level must have a name")
	}
	idKey := strconv.Itoa(l.ID)
	nameKey := strings.ToLower(l.Name)
	if existing, ok := r.byKey[idKey]; ok {
		return &apperrors.DuplicateRegistrationError{
			Msg: "level id " + idKey + " is already taken by '" + existing.Name + "'",
		}
	}
	if _, ok := r.byKey[nameKey]; ok {
		return &apperrors.DuplicateRegistrationError{Msg: "level '" + l.Name + "' is already registered"}
	}
	canonical := &Level{ID: l.ID, Name: l.Name}
	r.byKey[idKey] = canonical
	r.byKey[nameKey] = canonical
	return nil
}

// Get looks a level up by id or name, case-insensitively.
func (r *LevelRegistry) Get(key string) (*Level, error) {
	if l, ok := r.byKey[strings.ToLower(key)]; ok {
		return l, nil
	}
	return nil, &apperrors.MissingLevelError{Key: key}
}

// Translate resolves an int id, a numeric string, a name, or an
// already-resolved Level into the canonical registered instance.
func (r *LevelRegistry) Translate(level interface{}) (*Level, error) {
	switch l := level.(type) {
	case int:
		return r.Get(strconv.Itoa(l))
	case float64:
		// JSON numbers decode as float64
		return r.Get(strconv.Itoa(int(l)))
	case string:
		return r.Get(l)
	case *Level:
		if l == nil {
			return nil, apperrors.NewValidation("level must not be nil")
		}
		return r.Get(l.Name)
	case Level:
		return r.Get(l.Name)
	default:
		return nil, apperrors.NewValidation("level must be a Level, an id, or a name")
	}
}

var defaultLevels = NewLevelRegistry()

// Levels returns the process-wide level registry.
func Levels() *LevelRegistry { return defaultLevels }

// TranslateLevel resolves against the process-wide registry.
func TranslateLevel(level interface{}) (*Level, error) {
	return defaultLevels.Translate(level)
}

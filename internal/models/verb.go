package models

import (
	"strconv"
	"strings"

	"feedhub/internal/apperrors"
)

// Verb is an action in the notification catalog. Instances are canonical:
// every translation of the same key returns the same *Verb.
type Verb struct {
	ID         int    `json:"id" yaml:"id"`
	Infinitive string `json:"infinitive" yaml:"infinitive"`
	PastTense  string `json:"past_tense" yaml:"past_tense"`
}

func (v *Verb) String() string { return v.Infinitive }

// VerbRegistry maps ids, infinitives and past-tense forms to canonical verbs.
// It is populated once at startup and read-only afterwards; no registration
// path is reachable from request handlers.
type VerbRegistry struct {
	byKey map[string]*Verb
}

// NewVerbRegistry returns a registry preloaded with the builtin catalog.
func NewVerbRegistry() *VerbRegistry {
	r := &VerbRegistry{byKey: make(map[string]*Verb)}
	builtins := []Verb{
		{ID: 1, Infinitive: "invite", PastTense: "invited"},
		{ID: 2, Infinitive: "accept", PastTense: "accepted"},
		{ID: 3, Infinitive: "reject", PastTense: "rejected"},
		{ID: 4, Infinitive: "share", PastTense: "shared"},
		{ID: 5, Infinitive: "unshare", PastTense: "unshared"},
		{ID: 6, Infinitive: "join", PastTense: "joined"},
		{ID: 7, Infinitive: "leave", PastTense: "left"},
		{ID: 8, Infinitive: "request", PastTense: "requested"},
		{ID: 9, Infinitive: "update", PastTense: "updated"},
	}
	for i := range builtins {
		// builtin catalog is known-good; a failure here is a programmer error
		if err := r.Register(builtins[i]); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds a verb to the registry. The id, infinitive and past-tense
// must each be globally unique across the registry.
func (r *VerbRegistry) Register(v Verb) error {
	if v.ID == 0 {
		return apperrors.NewValidation("a verb must have an id")
	}
	if v.Infinitive == "" {
		return apperrors.NewValidation("a verb must have an infinitive form")
	}
	if v.PastTense == "" {
		return apperrors.NewValidation("a verb must have a past tense form")
	}
	idKey := strconv.Itoa(v.ID)
	infKey := strings.ToLower(v.Infinitive)
	pastKey := strings.ToLower(v.PastTense)
	if existing, ok := r.byKey[idKey]; ok {
		return &apperrors.DuplicateRegistrationError{
			Msg: "verb id " + idKey + " is already taken by '" + existing.Infinitive + "'",
		}
	}
	if _, ok := r.byKey[infKey]; ok {
		return &apperrors.DuplicateRegistrationError{Msg: "verb '" + v.Infinitive + "' is already registered"}
	}
	if _, ok := r.byKey[pastKey]; ok {
		return &apperrors.DuplicateRegistrationError{Msg: "verb '" + v.PastTense + "' is already registered"}
	}
	canonical := &Verb{ID: v.ID, Infinitive: v.Infinitive, PastTense: v.PastTense}
	r.byKey[idKey] = canonical
	r.byKey[infKey] = canonical
	r.byKey[pastKey] = canonical
	return nil
}

// Get looks a verb up by id, infinitive or past tense, case-insensitively.
func (r *VerbRegistry) Get(key string) (*Verb, error) {
	if v, ok := r.byKey[strings.ToLower(key)]; ok {
		return v, nil
	}
	return nil, &apperrors.MissingVerbError{Key: key}
}

// Translate resolves an int id, a numeric string, either string form, or an
// already-resolved Verb into the canonical registered instance.
func (r *VerbRegistry) Translate(verb interface{}) (*Verb, error) {
	switch v := verb.(type) {
	case int:
		return r.Get(strconv.Itoa(v))
	case float64:
		// JSON numbers decode as float64
		return r.Get(strconv.Itoa(int(v)))
	case string:
		return r.Get(v)
	case *Verb:
		if v == nil {
			return nil, apperrors.NewValidation("verb must not be nil")
		}
		return r.Get(v.Infinitive)
	case Verb:
		return r.Get(v.Infinitive)
	default:
		return nil, apperrors.NewValidation("verb must be a Verb, an id, or a string form")
	}
}

var defaultVerbs = NewVerbRegistry()

// Verbs returns the process-wide verb registry.
func Verbs() *VerbRegistry { return defaultVerbs }

// TranslateVerb resolves against the process-wide registry.
func TranslateVerb(verb interface{}) (*Verb, error) {
	return defaultVerbs.Translate(verb)
}

package services

import (
	"context"
	"fmt"

	"feedhub/internal/models"
)

// AudienceExpander widens a notification's audience using an external
// service (workspace collaborators, job owners). Failures propagate; an
// expander never degrades to an empty audience silently.
type AudienceExpander interface {
	ExpandAudience(ctx context.Context, note *models.Notification) ([]models.Entity, error)
}

// FanoutPolicy computes the audience for one ingress source.
type FanoutPolicy func(ctx context.Context, note *models.Notification) ([]models.Entity, error)

// FanoutService routes a notification to its audience by dispatching on the
// notification source. Unknown sources fall through to the default policy:
// the deduplicated union of the explicit user list and the target list.
type FanoutService struct {
	policies   map[string]FanoutPolicy
	globalFeed models.Entity
}

// Sources with dedicated builtin policies.
const (
	SourceGroups    = "groups"
	SourceWorkspace = "workspace"
	SourceNarrative = "narrative"
	SourceJobs      = "jobs"
	SourceAdmin     = "admin"
)

// NewFanoutService builds the router with the builtin source policies.
// globalFeed is the well-known broadcast entity every user's feed includes.
func NewFanoutService(globalFeed models.Entity) *FanoutService {
	f := &FanoutService{
		policies:   make(map[string]FanoutPolicy),
		globalFeed: globalFeed,
	}
	// explicit-recipient sources: the declared users win, else the targets
	for _, source := range []string{SourceGroups, SourceWorkspace, SourceNarrative, SourceJobs} {
		f.policies[source] = explicitUsersPolicy
	}
	f.policies[SourceAdmin] = f.globalPolicy
	return f
}

// RegisterPolicy installs or replaces the policy for a source. Bootstrap
// only; the policy table is read-only once requests flow.
func (f *FanoutService) RegisterPolicy(source string, policy FanoutPolicy) {
	f.policies[source] = policy
}

// RegisterExpander layers an audience expander over a source's policy: the
// expanded set is unioned with whatever the base policy produced.
func (f *FanoutService) RegisterExpander(source string, expander AudienceExpander) {
	base, ok := f.policies[source]
	if !ok {
		base = defaultPolicy
	}
	f.policies[source] = func(ctx context.Context, note *models.Notification) ([]models.Entity, error) {
		audience, err := base(ctx, note)
		if err != nil {
			return nil, err
		}
		expanded, err := expander.ExpandAudience(ctx, note)
		if err != nil {
			return nil, fmt.Errorf("audience expansion for source %q: %w", note.Source, err)
		}
		return append(audience, expanded...), nil
	}
}

// Route computes the deduplicated audience for a notification. Given fixed
// collaborator responses it is a pure function of source, target and users.
func (f *FanoutService) Route(ctx context.Context, note *models.Notification) ([]models.Entity, error) {
	policy, ok := f.policies[note.Source]
	if !ok {
		policy = defaultPolicy
	}
	audience, err := policy(ctx, note)
	if err != nil {
		return nil, err
	}
	return models.DedupeEntities(audience), nil
}

// GlobalFeed returns the broadcast feed entity.
func (f *FanoutService) GlobalFeed() models.Entity { return f.globalFeed }

func explicitUsersPolicy(_ context.Context, note *models.Notification) ([]models.Entity, error) {
	if len(note.Users) > 0 {
		return note.Users, nil
	}
	return note.Target, nil
}

func defaultPolicy(_ context.Context, note *models.Notification) ([]models.Entity, error) {
	audience := make([]models.Entity, 0, len(note.Users)+len(note.Target))
	audience = append(audience, note.Users...)
	audience = append(audience, note.Target...)
	return audience, nil
}

func (f *FanoutService) globalPolicy(_ context.Context, _ *models.Notification) ([]models.Entity, error) {
	return []models.Entity{f.globalFeed}, nil
}

package services

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"feedhub/internal/apperrors"
	"feedhub/internal/models"
)

// NameResolver looks up display names for one entity type. Implementations
// live in internal/external; failures surface as NameResolutionError
// upstream, never as a silently wrong name.
type NameResolver interface {
	ResolveName(ctx context.Context, id string) (string, error)
	ResolveNames(ctx context.Context, ids []string) (map[string]string, error)
}

// ResolverService resolves entity display names in bulk: entities are binned
// by type, so a result set costs at most one collaborator call per distinct
// type present, not one per entity. Results sit in a short-TTL cache, which
// is safe because name lookups are idempotent.
type ResolverService struct {
	resolvers map[models.EntityType]NameResolver
	cache     *cache.Cache
}

// NewResolverService builds a resolver with the per-type dispatch table.
func NewResolverService(resolvers map[models.EntityType]NameResolver) *ResolverService {
	return &ResolverService{
		resolvers: resolvers,
		cache:     cache.New(nameCacheTTL, nameCachePurge),
	}
}

const (
	nameCacheTTL   = 10 * time.Minute
	nameCachePurge = time.Minute
)

// FetchEntityNames fills in Name on every entity, in place. One bulk call
// per entity type not fully served from cache. Any resolver failure aborts
// the whole fetch so a user view is never partially resolved.
func (r *ResolverService) FetchEntityNames(ctx context.Context, entities []*models.Entity) error {
	bins := make(map[models.EntityType][]*models.Entity)
	for _, e := range entities {
		if e.Name != "" {
			continue
		}
		if name, found := r.cache.Get(e.String()); found {
			e.Name = name.(string)
			continue
		}
		bins[e.Type] = append(bins[e.Type], e)
	}

	for entityType, bin := range bins {
		resolver, ok := r.resolvers[entityType]
		if !ok {
			// types with no resolver keep their id as the display name
			for _, e := range bin {
				e.Name = e.ID
			}
			continue
		}
		ids := make([]string, 0, len(bin))
		seen := make(map[string]bool, len(bin))
		for _, e := range bin {
			if !seen[e.ID] {
				seen[e.ID] = true
				ids = append(ids, e.ID)
			}
		}
		names, err := resolver.ResolveNames(ctx, ids)
		if err != nil {
			return &apperrors.NameResolutionError{
				Msg: "failed to resolve names for type " + string(entityType),
				Err: err,
			}
		}
		for _, e := range bin {
			if name, ok := names[e.ID]; ok && name != "" {
				e.Name = name
				r.cache.Set(e.String(), name, cache.DefaultExpiration)
			}
		}
	}
	return nil
}

// ResolveNotificationNames resolves every entity referenced by the given
// notifications, as one binned batch across the whole result set.
func (r *ResolverService) ResolveNotificationNames(ctx context.Context, notes []*models.Notification) error {
	var all []*models.Entity
	for _, n := range notes {
		all = append(all, n.Entities()...)
	}
	return r.FetchEntityNames(ctx, all)
}

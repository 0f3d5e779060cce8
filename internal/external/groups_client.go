package external

import (
	"context"
	"fmt"
)

// GroupsClient talks to the groups service and resolves group display names.
type GroupsClient struct {
	client *Client
}

// NewGroupsClient creates a groups service client.
func NewGroupsClient(baseURL string, token TokenProvider) *GroupsClient {
	return &GroupsClient{client: NewClient(baseURL, token)}
}

type groupInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ResolveName resolves one group's display name.
func (g *GroupsClient) ResolveName(ctx context.Context, id string) (string, error) {
	names, err := g.ResolveNames(ctx, []string{id})
	if err != nil {
		return "", err
	}
	return names[id], nil
}

// ResolveNames resolves group display names in bulk.
func (g *GroupsClient) ResolveNames(ctx context.Context, ids []string) (map[string]string, error) {
	if len(ids) == 0 {
		return map[string]string{}, nil
	}
	req := struct {
		IDs []string `json:"ids"`
	}{IDs: ids}

	var resp []groupInfo
	if err := g.client.PostJSON(ctx, "/api/V1/groups/names", req, &resp); err != nil {
		return nil, fmt.Errorf("group name lookup failed: %w", err)
	}
	names := make(map[string]string, len(resp))
	for _, group := range resp {
		names[group.ID] = group.Name
	}
	return names, nil
}

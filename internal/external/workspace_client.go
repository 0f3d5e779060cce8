package external

import (
	"context"
	"fmt"
	"strconv"

	"feedhub/internal/models"
)

// WorkspaceClient talks to the workspace service. It resolves workspace and
// narrative display names and expands workspace notifications out to every
// user with access to the workspace.
type WorkspaceClient struct {
	client *Client
}

// NewWorkspaceClient creates a workspace service client.
func NewWorkspaceClient(baseURL string, token TokenProvider) *WorkspaceClient {
	return &WorkspaceClient{client: NewClient(baseURL, token)}
}

type workspaceInfo struct {
	ID       int64             `json:"id"`
	Name     string            `json:"name"`
	Metadata map[string]string `json:"meta"`
}

type workspacePermissions struct {
	Perms map[string]string `json:"perms"`
}

// ResolveName resolves one workspace display name.
func (w *WorkspaceClient) ResolveName(ctx context.Context, id string) (string, error) {
	names, err := w.ResolveNames(ctx, []string{id})
	if err != nil {
		return "", err
	}
	return names[id], nil
}

// ResolveNames resolves workspace display names in bulk. A narrative
// workspace reports its narrative title from the workspace metadata; a
// plain workspace reports its name.
func (w *WorkspaceClient) ResolveNames(ctx context.Context, ids []string) (map[string]string, error) {
	if len(ids) == 0 {
		return map[string]string{}, nil
	}
	req := struct {
		IDs []string `json:"ids"`
	}{IDs: ids}

	var resp struct {
		Workspaces []workspaceInfo `json:"workspaces"`
	}
	if err := w.client.PostJSON(ctx, "/api/V1/workspaces/info", req, &resp); err != nil {
		return nil, fmt.Errorf("workspace info lookup failed: %w", err)
	}

	names := make(map[string]string, len(resp.Workspaces))
	for _, ws := range resp.Workspaces {
		name := ws.Name
		if title, ok := ws.Metadata["narrative_nice_name"]; ok && title != "" {
			name = title
		}
		names[strconv.FormatInt(ws.ID, 10)] = name
	}
	return names, nil
}

// ExpandAudience widens a workspace or narrative notification to every user
// with read access on the target workspace. Implements AudienceExpander.
func (w *WorkspaceClient) ExpandAudience(ctx context.Context, note *models.Notification) ([]models.Entity, error) {
	var expanded []models.Entity
	for _, target := range note.Target {
		if target.Type != models.EntityWorkspace && target.Type != models.EntityNarrative {
			continue
		}
		var resp workspacePermissions
		path := "/api/V1/workspaces/" + target.ID + "/permissions"
		if err := w.client.GetJSON(ctx, path, &resp); err != nil {
			return nil, fmt.Errorf("workspace permission lookup for %s failed: %w", target.ID, err)
		}
		for user, perm := range resp.Perms {
			if perm == "n" || user == "*" {
				continue
			}
			entity, err := models.NewEntity(user, models.EntityUser)
			if err != nil {
				continue
			}
			expanded = append(expanded, entity)
		}
	}
	return expanded, nil
}

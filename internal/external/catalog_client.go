package external

import (
	"context"
	"fmt"
	"strings"
)

// CatalogClient talks to the app catalog and resolves app display names.
// App ids come in "module/app" or "module.app" form; the catalog wants the
// dotted form.
type CatalogClient struct {
	client *Client
}

// NewCatalogClient creates a catalog service client.
func NewCatalogClient(baseURL string, token TokenProvider) *CatalogClient {
	return &CatalogClient{client: NewClient(baseURL, token)}
}

// ResolveName resolves one app's display name.
func (c *CatalogClient) ResolveName(ctx context.Context, id string) (string, error) {
	names, err := c.ResolveNames(ctx, []string{id})
	if err != nil {
		return "", err
	}
	return names[id], nil
}

// ResolveNames resolves app display names in bulk. The result is keyed by
// the caller's original id form.
func (c *CatalogClient) ResolveNames(ctx context.Context, ids []string) (map[string]string, error) {
	if len(ids) == 0 {
		return map[string]string{}, nil
	}

	dotted := make([]string, len(ids))
	for i, id := range ids {
		dotted[i] = strings.ReplaceAll(id, "/", ".")
	}
	req := struct {
		IDs []string `json:"ids"`
	}{IDs: dotted}

	var resp map[string]string
	if err := c.client.PostJSON(ctx, "/api/V1/apps/names", req, &resp); err != nil {
		return nil, fmt.Errorf("app name lookup failed: %w", err)
	}

	names := make(map[string]string, len(ids))
	for i, id := range ids {
		if name, ok := resp[dotted[i]]; ok {
			names[id] = name
		}
	}
	return names, nil
}

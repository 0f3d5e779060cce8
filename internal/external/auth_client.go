package external

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"feedhub/internal/apperrors"
)

// UserInfo is the identity attached to a validated login token.
type UserInfo struct {
	ID          string   `json:"user"`
	DisplayName string   `json:"display"`
	Roles       []string `json:"customroles"`
}

// HasRole reports whether the user carries the given custom role.
func (u *UserInfo) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// AuthClient talks to the auth service. It validates login tokens and
// resolves user display names, so it doubles as the NameResolver for
// user and admin entities.
type AuthClient struct {
	client *Client
}

// NewAuthClient creates an auth service client.
func NewAuthClient(baseURL string, token TokenProvider) *AuthClient {
	return &AuthClient{client: NewClient(baseURL, token)}
}

// ValidateToken checks a login token and returns the identity behind it.
func (a *AuthClient) ValidateToken(ctx context.Context, token string) (*UserInfo, error) {
	if token == "" {
		return nil, &apperrors.MissingTokenError{}
	}

	// Token validation carries the caller's token, not the service token.
	bearer := a.client.WithToken(func() (string, error) { return token, nil })
	var info UserInfo
	if err := bearer.GetJSON(ctx, "/api/V2/me", &info); err != nil {
		if IsUnauthorized(err) {
			return nil, &apperrors.InvalidTokenError{}
		}
		return nil, fmt.Errorf("token validation failed: %w", err)
	}
	return &info, nil
}

// ResolveName resolves a single user's display name.
func (a *AuthClient) ResolveName(ctx context.Context, id string) (string, error) {
	names, err := a.ResolveNames(ctx, []string{id})
	if err != nil {
		return "", err
	}
	return names[id], nil
}

// ResolveNames resolves user display names in one bulk call. Unknown
// usernames are simply absent from the result.
func (a *AuthClient) ResolveNames(ctx context.Context, ids []string) (map[string]string, error) {
	if len(ids) == 0 {
		return map[string]string{}, nil
	}
	names := make(map[string]string, len(ids))
	path := "/api/V2/users?list=" + url.QueryEscape(strings.Join(ids, ","))
	if err := a.client.GetJSON(ctx, path, &names); err != nil {
		return nil, fmt.Errorf("user name lookup failed: %w", err)
	}
	return names, nil
}

// Package collaborators adapts the audit core's four external dependencies
// (auth, location, inventory, notifications) as small client structs,
// each backed by a pkg/resiliency.Client with the collaborator's fixed
// contractual timeout.
package collaborators

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/djsadd/inventory-audit-service/pkg/auditerr"
	"github.com/djsadd/inventory-audit-service/pkg/resiliency"
)

// User is the principal returned by the auth collaborator's /auth/me.
type User struct {
	ID    int64    `json:"id"`
	Roles []string `json:"roles"`
}

// HasRole reports whether u carries role exactly.
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// AuthClient validates a bearer token against the auth service.
type AuthClient struct {
	baseURL string
	client  *resiliency.Client
}

func NewAuthClient(baseURL string) *AuthClient {
	return &AuthClient{baseURL: baseURL, client: resiliency.New("auth", 10*time.Second)}
}

// Me exchanges token for the caller's identity and roles. Any non-200
// response or transport failure is reported as unauthorised, matching the
// collaborator contract: the audit core never distinguishes "auth service
// down" from "token rejected" at this boundary.
func (c *AuthClient) Me(ctx context.Context, token string) (*User, error) {
	if tokenObviouslyExpired(token) {
		return nil, auditerr.New(auditerr.Unauthorised, "invalid_token", "token is expired")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/me", nil)
	if err != nil {
		return nil, auditerr.Wrap(auditerr.Unauthorised, "invalid_token", "could not build auth request", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, auditerr.New(auditerr.Unauthorised, "invalid_token", "auth service unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, auditerr.New(auditerr.Unauthorised, "invalid_token", "auth service rejected the token")
	}

	var u User
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return nil, auditerr.New(auditerr.Unauthorised, "invalid_token", "auth service returned a malformed body")
	}
	return &u, nil
}

// tokenObviouslyExpired reads the exp claim without verifying the token's
// signature: the audit core never validates a token itself, it only wants a
// fast path to reject tokens it can already tell are stale before spending a
// round trip on the auth collaborator. A token this cannot parse is left to
// the auth service to judge.
func tokenObviouslyExpired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(time.Now())
}

const (
	RoleSystemAdmin = "system_admin"
)

// RequireRole enforces that user carries role, with system_admin implicitly
// satisfying every subordinate role check.
func RequireRole(user *User, systemAdminRole, role string) error {
	if user.HasRole(systemAdminRole) {
		return nil
	}
	if !user.HasRole(role) {
		return auditerr.New(auditerr.Forbidden, fmt.Sprintf("%s_required", role), "caller is missing the required role")
	}
	return nil
}

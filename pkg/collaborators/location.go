package collaborators

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/djsadd/inventory-audit-service/pkg/auditerr"
	"github.com/djsadd/inventory-audit-service/pkg/resiliency"
)

// LocationClient checks whether a caller may act on a given room.
type LocationClient struct {
	baseURL string
	client  *resiliency.Client
}

func NewLocationClient(baseURL string) *LocationClient {
	return &LocationClient{baseURL: baseURL, client: resiliency.New("location", 5*time.Second)}
}

// AssertRoomAccess fails with forbidden unless the collaborator answers
// exactly 200; every other status (including its own 403/404) collapses to
// room_forbidden, and transport failure maps to upstream_unavailable.
func (c *LocationClient) AssertRoomAccess(ctx context.Context, token string, roomID int64) error {
	url := fmt.Sprintf("%s/rooms/my/%d", c.baseURL, roomID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return auditerr.Wrap(auditerr.UpstreamUnavailable, "location_service_unavailable", "could not build location request", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return auditerr.New(auditerr.UpstreamUnavailable, "location_service_unavailable", "location service unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return auditerr.New(auditerr.Forbidden, "room_forbidden", "caller may not act on this room")
	}
	return nil
}

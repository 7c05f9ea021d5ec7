package collaborators

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/djsadd/inventory-audit-service/pkg/auditerr"
	"github.com/djsadd/inventory-audit-service/pkg/resiliency"
)

// InventoryItem is the shape the inventory collaborator returns for both
// resolve-by-barcode and list-by-room.
type InventoryItem struct {
	ID            int64  `json:"id"`
	LocationID    *int64 `json:"location_id"`
	ResponsibleID *int64 `json:"responsible_id"`
	BarcodeID     *int64 `json:"barcode_id"`
}

// InventoryClient wraps the inventory service's item-resolution, room
// listing, and bulk-move endpoints.
type InventoryClient struct {
	baseURL      string
	readClient   *resiliency.Client
	moveClient   *resiliency.Client
}

func NewInventoryClient(baseURL string) *InventoryClient {
	return &InventoryClient{
		baseURL:    baseURL,
		readClient: resiliency.New("inventory-read", 10*time.Second),
		moveClient: resiliency.New("inventory-move", 20*time.Second),
	}
}

// ResolveByBarcode returns the item matching barcodeValue, or nil if the
// collaborator has no match (a 404). A 403 is forbidden; any other non-200
// is upstream_error.
func (c *InventoryClient) ResolveByBarcode(ctx context.Context, token, barcodeValue string) (*InventoryItem, error) {
	body, _ := json.Marshal(map[string]string{"barcode_value": barcodeValue})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/items/resolve", bytes.NewReader(body))
	if err != nil {
		return nil, auditerr.Wrap(auditerr.UpstreamUnavailable, "inventory_service_unavailable", "could not build inventory request", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.readClient.Do(req)
	if err != nil {
		return nil, auditerr.New(auditerr.UpstreamUnavailable, "inventory_service_unavailable", "inventory service unreachable")
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusForbidden:
		return nil, auditerr.New(auditerr.Forbidden, "inventory_forbidden", "caller may not resolve items")
	case http.StatusNotFound:
		return nil, nil
	case http.StatusOK:
	default:
		return nil, auditerr.New(auditerr.UpstreamError, "inventory_service_error", "inventory service returned an unexpected status")
	}

	var item InventoryItem
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		return nil, auditerr.New(auditerr.UpstreamError, "inventory_service_invalid_response", "inventory service returned a malformed body")
	}
	return &item, nil
}

// ListByRoom returns every item the inventory service currently believes is
// in roomID.
func (c *InventoryClient) ListByRoom(ctx context.Context, token string, roomID int64) ([]InventoryItem, error) {
	url := fmt.Sprintf("%s/items/room/%d", c.baseURL, roomID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, auditerr.Wrap(auditerr.UpstreamUnavailable, "inventory_service_unavailable", "could not build inventory request", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.readClient.Do(req)
	if err != nil {
		return nil, auditerr.New(auditerr.UpstreamUnavailable, "inventory_service_unavailable", "inventory service unreachable")
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusForbidden:
		return nil, auditerr.New(auditerr.Forbidden, "room_forbidden", "caller may not read this room")
	case http.StatusOK:
	default:
		return nil, auditerr.New(auditerr.UpstreamError, "inventory_service_error", "inventory service returned an unexpected status")
	}

	var items []InventoryItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, auditerr.New(auditerr.UpstreamError, "inventory_service_invalid_response", "inventory service returned a malformed body")
	}
	return items, nil
}

// BulkMoveRequest groups one batch of actions sharing a destination and
// responsible-id disposition.
type BulkMoveRequest struct {
	ItemIDs            []int64
	LocationID         int64
	ResponsibleIDIsSet bool
	ResponsibleID      *int64
}

// BulkMove applies req atomically at the inventory service. The service is
// expected to serialise conflicting moves itself (row locks on the affected
// items); this adapter only carries the request across the wire.
func (c *InventoryClient) BulkMove(ctx context.Context, token string, req BulkMoveRequest) error {
	body := map[string]any{"item_ids": req.ItemIDs, "location_id": req.LocationID}
	if req.ResponsibleIDIsSet {
		body["responsible_id"] = req.ResponsibleID
	}
	payload, _ := json.Marshal(body)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/items/bulk-move", bytes.NewReader(payload))
	if err != nil {
		return auditerr.Wrap(auditerr.UpstreamUnavailable, "inventory_service_unavailable", "could not build inventory request", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.moveClient.Do(httpReq)
	if err != nil {
		return auditerr.New(auditerr.UpstreamUnavailable, "inventory_service_unavailable", "inventory service unreachable")
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusForbidden:
		return auditerr.New(auditerr.Forbidden, "inventory_forbidden", "caller may not move these items")
	case http.StatusNotFound:
		return auditerr.New(auditerr.NotFound, "location_not_found", "destination location does not exist")
	case http.StatusOK:
		return nil
	default:
		return auditerr.New(auditerr.UpstreamError, "inventory_service_error", "inventory service returned an unexpected status")
	}
}

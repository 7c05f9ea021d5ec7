package collaborators

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/djsadd/inventory-audit-service/pkg/resiliency"
)

const notificationDedupTTL = 10 * time.Minute

// NotificationClient fans out best-effort internal notifications. Every
// failure mode — empty secret, transport error, non-2xx — is swallowed and
// reported back as a plain bool so callers never let a notification failure
// affect a committed state transition.
type NotificationClient struct {
	baseURL string
	secret  string
	client  *resiliency.Client
	dedup   *redis.Client
}

func NewNotificationClient(baseURL, secret string) *NotificationClient {
	return &NotificationClient{baseURL: baseURL, secret: secret, client: resiliency.New("notification", 5*time.Second)}
}

// WithDedupCache attaches a best-effort Redis-backed de-duplication cache:
// when set, CreateInternal skips the round trip for an idempotency key it
// already sent within notificationDedupTTL. A nil or unreachable cache never
// blocks delivery — it is purely an optimisation against a flapping
// notification collaborator re-sending the same session-transition notice.
func (c *NotificationClient) WithDedupCache(client *redis.Client) *NotificationClient {
	c.dedup = client
	return c
}

func (c *NotificationClient) alreadySent(ctx context.Context, idempotencyKey string) bool {
	if c.dedup == nil || idempotencyKey == "" {
		return false
	}
	ok, err := c.dedup.SetNX(ctx, "audit:notif:"+idempotencyKey, 1, notificationDedupTTL).Result()
	if err != nil {
		return false
	}
	return !ok
}

type notificationRequest struct {
	UserIDs        []int64        `json:"user_ids"`
	Type           string         `json:"type"`
	Title          string         `json:"title"`
	Message        string         `json:"message"`
	Payload        map[string]any `json:"payload,omitempty"`
	SourceService  string         `json:"source_service,omitempty"`
	SourceEvent    string         `json:"source_event,omitempty"`
	IdempotencyKey string         `json:"idempotency_key,omitempty"`
}

// CreateInternal sends one internal notification to every user in userIDs.
// It never returns an error: the bool result exists for logging only.
func (c *NotificationClient) CreateInternal(ctx context.Context, userIDs []int64, notifType, title, message string, payload map[string]any, sourceEvent, idempotencyKey string) bool {
	token := strings.TrimSpace(c.secret)
	if token == "" {
		return false
	}
	if c.alreadySent(ctx, idempotencyKey) {
		return true
	}

	body, err := json.Marshal(notificationRequest{
		UserIDs: userIDs, Type: notifType, Title: title, Message: message,
		Payload: payload, SourceService: "audit", SourceEvent: sourceEvent, IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/internal/notifications", bytes.NewReader(body))
	if err != nil {
		return false
	}
	req.Header.Set("X-Internal-Token", token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

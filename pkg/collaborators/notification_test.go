package collaborators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestNotificationClient_CreateInternal_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret-1", r.Header.Get("X-Internal-Token"))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := NewNotificationClient(srv.URL, "secret-1")
	ok := c.CreateInternal(context.Background(), []int64{1}, "audit.move", "title", "msg", nil, "session.closed", "idem-1")
	assert.True(t, ok)
}

func TestNotificationClient_CreateInternal_EmptySecret(t *testing.T) {
	c := NewNotificationClient("http://unused.invalid", "  ")
	ok := c.CreateInternal(context.Background(), []int64{1}, "audit.move", "title", "msg", nil, "session.closed", "idem-1")
	assert.False(t, ok)
}

func TestNotificationClient_CreateInternal_DedupCacheFailsOpen(t *testing.T) {
	called := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called++
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	// An unreachable Redis must never block delivery: SetNX errors and
	// alreadySent reports false, so the notification still goes out.
	dedup := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	c := NewNotificationClient(srv.URL, "secret-1").WithDedupCache(dedup)

	ok := c.CreateInternal(context.Background(), []int64{1}, "audit.move", "title", "msg", nil, "session.closed", "idem-1")
	assert.True(t, ok)
	assert.Equal(t, 1, called)
}

func TestNotificationClient_CreateInternal_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewNotificationClient(srv.URL, "secret-1")
	ok := c.CreateInternal(context.Background(), []int64{1}, "audit.move", "title", "msg", nil, "session.closed", "idem-1")
	assert.False(t, ok)
}

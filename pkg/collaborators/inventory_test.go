package collaborators

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInventoryClient_ResolveByBarcode_Found(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/items/resolve", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ABC123", body["barcode_value"])
		_ = json.NewEncoder(w).Encode(InventoryItem{ID: 5})
	}))
	defer srv.Close()

	c := NewInventoryClient(srv.URL)
	item, err := c.ResolveByBarcode(context.Background(), "tok-1", "ABC123")
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, int64(5), item.ID)
}

func TestInventoryClient_ResolveByBarcode_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewInventoryClient(srv.URL)
	item, err := c.ResolveByBarcode(context.Background(), "tok-1", "UNKNOWN")
	require.NoError(t, err)
	assert.Nil(t, item)
}

func TestInventoryClient_BulkMove_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/items/bulk-move", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewInventoryClient(srv.URL)
	err := c.BulkMove(context.Background(), "tok-1", BulkMoveRequest{ItemIDs: []int64{1, 2}, LocationID: 9})
	require.NoError(t, err)
}

func TestInventoryClient_BulkMove_LocationNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewInventoryClient(srv.URL)
	err := c.BulkMove(context.Background(), "tok-1", BulkMoveRequest{ItemIDs: []int64{1}, LocationID: 999})
	require.Error(t, err)
}

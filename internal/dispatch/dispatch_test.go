//go:build unit

package dispatch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"orderflow/internal/domain/provider"
	"orderflow/internal/pkg/config"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapStatus(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want State
	}{
		{"success: completed", "Completed", StateCompleted},
		{"success: done", "done", StateCompleted},
		{"success: finished", "FINISHED", StateCompleted},
		{"success: failed", "failed", StateFailed},
		{"success: error", "Error", StateFailed},
		{"success: cancelled", "cancelled", StateFailed},
		{"success: canceled spelling", "canceled", StateFailed},
		{"success: in progress keeps polling", "In progress", StateProcessing},
		{"success: partial keeps polling", "Partial", StateProcessing},
		{"success: empty keeps polling", "", StateProcessing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MapStatus(tt.raw))
		})
	}
}

func testProvider(slug, apiURL string) *provider.Provider {
	return &provider.Provider{
		Name:   "test provider",
		Slug:   slug,
		APIKey: "secret-key",
		APIURL: apiURL,
		Active: true,
	}
}

func TestRegistry_ClientFor(t *testing.T) {
	reg := NewRegistry(config.DispatchConfig{RequestTimeout: time.Second})

	t.Run("success: known slug resolves", func(t *testing.T) {
		c, err := reg.ClientFor(testProvider(SlugPanelV2, "http://example.invalid"))
		require.NoError(t, err)
		assert.NotNil(t, c)
	})

	t.Run("success: slug match is case insensitive", func(t *testing.T) {
		c, err := reg.ClientFor(testProvider("Panel-V2", "http://example.invalid"))
		require.NoError(t, err)
		assert.NotNil(t, c)
	})

	t.Run("error: unknown slug fails closed", func(t *testing.T) {
		_, err := reg.ClientFor(testProvider("mystery-panel", "http://example.invalid"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnsupportedProvider))
	})
}

func TestPanelV2Client_Submit(t *testing.T) {
	t.Run("success: numeric order id is normalized", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "secret-key", body["key"])
			assert.Equal(t, "add", body["action"])
			assert.Equal(t, "1001", body["service"])
			_ = json.NewEncoder(w).Encode(map[string]any{"order": 987654})
		}))
		defer srv.Close()

		c := NewPanelV2Client(testProvider(SlugPanelV2, srv.URL), srv.Client())
		res, err := c.Submit(context.Background(), SubmitRequest{
			Service:  "1001",
			Link:     "https://instagram.com/someone",
			Quantity: 500,
		})
		require.NoError(t, err)
		assert.Equal(t, "987654", res.ExternalOrderID)
	})

	t.Run("error: error body on HTTP 200", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"error": "not enough funds"})
		}))
		defer srv.Close()

		c := NewPanelV2Client(testProvider(SlugPanelV2, srv.URL), srv.Client())
		_, err := c.Submit(context.Background(), SubmitRequest{Service: "1", Link: "x", Quantity: 1})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not enough funds")
	})

	t.Run("error: missing order id", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
		}))
		defer srv.Close()

		c := NewPanelV2Client(testProvider(SlugPanelV2, srv.URL), srv.Client())
		_, err := c.Submit(context.Background(), SubmitRequest{Service: "1", Link: "x", Quantity: 1})
		require.Error(t, err)
	})

	t.Run("error: timeout is a dispatch failure", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer srv.Close()

		c := NewPanelV2Client(testProvider(SlugPanelV2, srv.URL), &http.Client{Timeout: 20 * time.Millisecond})
		_, err := c.Submit(context.Background(), SubmitRequest{Service: "1", Link: "x", Quantity: 1})
		require.Error(t, err)
	})
}

func TestPanelV2Client_RefillAndStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		switch body["action"] {
		case "refill":
			assert.Equal(t, "987654", body["order"])
			_ = json.NewEncoder(w).Encode(map[string]any{"refill": "R-1"})
		case "status":
			_ = json.NewEncoder(w).Encode(map[string]any{"status": "Completed", "remains": 12})
		default:
			t.Fatalf("unexpected action %v", body["action"])
		}
	}))
	defer srv.Close()

	c := NewPanelV2Client(testProvider(SlugPanelV2, srv.URL), srv.Client())

	t.Run("success: refill returns refill id", func(t *testing.T) {
		res, err := c.Refill(context.Background(), RefillRequest{ExternalOrderID: "987654"})
		require.NoError(t, err)
		assert.Equal(t, "R-1", res.RefillID)
	})

	t.Run("success: status maps vocabulary and remains", func(t *testing.T) {
		res, err := c.Status(context.Background(), StatusRequest{ExternalOrderID: "987654"})
		require.NoError(t, err)
		assert.Equal(t, StateCompleted, res.State)
		assert.Equal(t, 12, res.Remains)
	})
}

func TestSocialBoostClient(t *testing.T) {
	t.Run("success: submit unwraps envelope", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/orders", r.URL.Path)
			assert.Equal(t, "Bearer secret-key", r.Header.Get("Authorization"))
			_ = json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"data":    map[string]any{"order_id": "SB-42"},
			})
		}))
		defer srv.Close()

		c := NewSocialBoostClient(testProvider(SlugSocialBoost, srv.URL), srv.Client())
		res, err := c.Submit(context.Background(), SubmitRequest{Service: "9", Link: "x", Quantity: 100})
		require.NoError(t, err)
		assert.Equal(t, "SB-42", res.ExternalOrderID)
	})

	t.Run("error: success=false surfaces the error message", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"success": false,
				"error":   "invalid service",
			})
		}))
		defer srv.Close()

		c := NewSocialBoostClient(testProvider(SlugSocialBoost, srv.URL), srv.Client())
		_, err := c.Submit(context.Background(), SubmitRequest{Service: "9", Link: "x", Quantity: 100})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid service")
	})

	t.Run("success: status maps envelope payload", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/orders/status", r.URL.Path)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"data":    map[string]any{"status": "cancelled", "remains": 3},
			})
		}))
		defer srv.Close()

		c := NewSocialBoostClient(testProvider(SlugSocialBoost, srv.URL), srv.Client())
		res, err := c.Status(context.Background(), StatusRequest{ExternalOrderID: "SB-42"})
		require.NoError(t, err)
		assert.Equal(t, StateFailed, res.State)
		assert.Equal(t, 3, res.Remains)
	})
}

package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completionBody(content string) string {
	resp := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}, "finish_reason": "stop"},
		},
		"usage": map[string]any{"total_tokens": 100},
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL
	return NewClient(cfg, "test-key", WithRetryConfig(RetryConfig{
		MaxAttempts:       3,
		BackoffBase:       time.Millisecond,
		BackoffMultiplier: 1.0,
		MaxBackoff:        time.Millisecond,
	}))
}

func TestExtractFromMarkdown(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req.Model)

		w.Write([]byte(completionBody("```json\n" + `[
			{"name": "Köttbullar", "price": 125, "category": "Kött"},
			{"name": "Pad Thai", "price": "135 kr", "category": "Thai"}
		]` + "\n```")))
	})

	items, err := client.ExtractFromMarkdown(context.Background(), "Restaurang S", "# Dagens lunch")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Köttbullar", items[0].Name)
	assert.Equal(t, "125", items[0].PriceText)
	assert.Equal(t, "135 kr", items[1].PriceText, "textual prices are kept verbatim")
}

func TestExtractProseResponseIsZeroItems(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completionBody("I could not find a lunch menu on this page.")))
	})

	items, err := client.ExtractFromMarkdown(context.Background(), "Parma", "nothing here")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestExtractRetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(completionBody(`[{"name": "Lax", "price": 149}]`)))
	})

	items, err := client.ExtractFromMarkdown(context.Background(), "Fisk & Co", "meny")
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, int32(2), calls.Load())
}

func TestExtractDoesNotRetryFatalErrors(t *testing.T) {
	var calls atomic.Int32
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.ExtractFromMarkdown(context.Background(), "Parma", "meny")
	require.Error(t, err)
	assert.True(t, IsFatal(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestExtractFromScreenshotSendsImage(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Content []struct {
					Type     string `json:"type"`
					ImageURL *struct {
						URL    string `json:"url"`
						Detail string `json:"detail"`
					} `json:"image_url"`
				} `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o", req.Model)
		require.Len(t, req.Messages, 1)
		require.Len(t, req.Messages[0].Content, 2)
		require.NotNil(t, req.Messages[0].Content[1].ImageURL)
		assert.Contains(t, req.Messages[0].Content[1].ImageURL.URL, "data:image/png;base64,")
		assert.Equal(t, "high", req.Messages[0].Content[1].ImageURL.Detail)

		w.Write([]byte(completionBody(`[{"name": "Wok med kyckling", "price": 139, "category": "Asiatiskt"}]`)))
	})

	items, err := client.ExtractFromScreenshot(context.Background(), "ChopChop", []byte{0x89, 0x50, 0x4e, 0x47})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Wok med kyckling", items[0].Name)
}

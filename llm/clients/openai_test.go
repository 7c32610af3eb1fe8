package clients

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stardustagi/BlendGPT/libs/errors"
	"github.com/stardustagi/BlendGPT/llm/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRequest() *models.ChatRequest {
	return &models.ChatRequest{
		Model:       models.GPT35Turbo,
		Messages:    []models.ChatMessage{{Role: "system", Content: "s"}, {Role: "user", Content: "u"}},
		MaxTokens:   100,
		N:           1,
		Temperature: 0.8,
	}
}

func TestDispatchSendsRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var got map[string]any
		require.NoError(t, json.Unmarshal(body, &got))
		assert.Equal(t, "gpt-3.5-turbo", got["model"])
		assert.Equal(t, float64(1), got["n"])
		assert.InDelta(t, 0.8, got["temperature"], 1e-6)
		assert.Equal(t, float64(100), got["max_tokens"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	d, err := NewDispatcher(Config{Endpoint: srv.URL})
	require.NoError(t, err)

	raw, err := d.Dispatch(context.Background(), "sk-test", newRequest())
	require.NoError(t, err)
	assert.JSONEq(t, `{"choices":[{"message":{"content":"ok"}}]}`, string(raw))
}

func TestDispatchFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"server error", 500, `oops`, "HTTP 500 Internal Server Error"},
		{"provider error", 401, `{"error":{"message":"Incorrect API key provided"}}`, "Incorrect API key provided"},
		{"not json", 200, `<html>`, "not JSON"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			d, err := NewDispatcher(Config{Endpoint: srv.URL})
			require.NoError(t, err)

			_, err = d.Dispatch(context.Background(), "k", newRequest())
			require.Error(t, err)
			assert.True(t, stderrors.Is(err, errors.ErrDispatch))
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "no retry")
		})
	}
}

func TestDispatchTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	d, err := NewDispatcher(Config{Endpoint: srv.URL, Timeout: "50ms"})
	require.NoError(t, err)

	start := time.Now()
	_, err = d.Dispatch(context.Background(), "k", newRequest())
	assert.True(t, stderrors.Is(err, errors.ErrDispatch))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestDispatchConnectionRefused(t *testing.T) {
	d, err := NewDispatcher(Config{Endpoint: "http://127.0.0.1:1/v1/chat/completions"})
	require.NoError(t, err)

	_, err = d.Dispatch(context.Background(), "k", newRequest())
	assert.True(t, stderrors.Is(err, errors.ErrDispatch))
}

func TestNewDispatcherBadTimeout(t *testing.T) {
	_, err := NewDispatcher(Config{Timeout: "soon"})
	assert.Error(t, err)

	d, err := NewDispatcher(Config{})
	require.NoError(t, err)
	assert.Equal(t, DefaultEndpoint, d.Endpoint())
}

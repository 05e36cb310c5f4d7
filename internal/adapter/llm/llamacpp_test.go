package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLlamaCppClient_Generate(t *testing.T) {
	var got completionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/completion", r.URL.Path)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&got)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Write([]byte(`{"content": "  {\"title\": \"T\", \"summary\": \"S\"}\n"}`))
	}))
	defer srv.Close()

	c := NewLlamaCppClient(Options{
		BaseURL:     srv.URL + "/",
		APIKey:      "k",
		Model:       "qwen",
		Temperature: 0.3,
		JSONSchema:  SummarySchema,
	})

	out, err := c.GenerateWithSystem(context.Background(), "sys", "hello")
	require.NoError(t, err)

	assert.Equal(t, `{"title": "T", "summary": "S"}`, out)
	assert.Equal(t, "<|im_start|>system\nsys<|im_end|>\n<|im_start|>user\nhello<|im_end|>\n<|im_start|>assistant\n", got.Prompt)
	assert.Equal(t, 768, got.NPredict)
	assert.Equal(t, 0.3, got.Temperature)
	assert.Equal(t, 42, got.Seed)
	assert.NotNil(t, got.JSONSchema)
	assert.Equal(t, "qwen", c.ModelName())
	assert.Equal(t, 1, c.GetStats().TotalCalls)
}

func TestLlamaCppClient_RetriesOverload(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"content": "ok"}`))
	}))
	defer srv.Close()

	c := NewLlamaCppClient(Options{BaseURL: srv.URL, MaxRetries: 2, Backoff: time.Millisecond})

	out, err := c.Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, int32(2), calls.Load())
}

func TestLlamaCppClient_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "loading model"}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error": {"message": "bad grammar"}}`))
		}
	}))
	defer srv.Close()

	c := NewLlamaCppClient(Options{BaseURL: srv.URL})
	_, err := c.Generate(context.Background(), "p")
	assert.ErrorContains(t, err, "status 400")

	err = c.Ping(context.Background())
	assert.Error(t, err)
}

func TestLlamaCppClient_Ping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "ok"}`))
	}))
	defer srv.Close()

	assert.NoError(t, NewLlamaCppClient(Options{BaseURL: srv.URL}).Ping(context.Background()))
}

func TestChatML_NoSystem(t *testing.T) {
	assert.Equal(t, "<|im_start|>user\nq<|im_end|>\n<|im_start|>assistant\n", ChatML("", "q"))
}

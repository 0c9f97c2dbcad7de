package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/adamw/article-rag-assistant/internal/core/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New("test-key", server.URL+"/v1", "text-embedding-ada-002")
}

func TestCompleteSendsModelAndPrompt(t *testing.T) {
	var captured map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hello"}}]}`))
	})

	got, err := client.Complete(context.Background(), "say hello", domain.CompletionOptions{
		Model:       "gpt-3.5-turbo",
		Temperature: 0,
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != "hello" {
		t.Fatalf("answer = %q", got)
	}
	if captured["model"] != "gpt-3.5-turbo" {
		t.Fatalf("model = %v", captured["model"])
	}
	// Temperature 0 must survive serialization instead of being omitted.
	temp, ok := captured["temperature"].(float64)
	if !ok || temp >= 0.001 {
		t.Fatalf("temperature = %v, want near-zero", captured["temperature"])
	}
	messages := captured["messages"].([]any)
	first := messages[0].(map[string]any)
	if first["content"] != "say hello" {
		t.Fatalf("prompt = %v", first["content"])
	}
}

func TestCompleteEmptyChoices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})
	if _, err := client.Complete(context.Background(), "p", domain.CompletionOptions{Model: "m"}); err == nil {
		t.Fatalf("expected error for empty choices")
	}
}

func TestEmbedOrdersVectorsByIndex(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			http.NotFound(w, r)
			return
		}
		// Deliberately out of order.
		_, _ = w.Write([]byte(`{"data":[
			{"index":1,"embedding":[0.2]},
			{"index":0,"embedding":[0.1]}
		]}`))
	})

	vectors, err := client.Embed(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if vectors[0][0] != 0.1 || vectors[1][0] != 0.2 {
		t.Fatalf("vectors = %v, want index order restored", vectors)
	}
}

func TestEmbedCountMismatch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[0.1]}]}`))
	})
	if _, err := client.Embed(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatalf("expected error for vector count mismatch")
	}
}

func TestEmbedEmptyInput(t *testing.T) {
	client := New("key", "", "model")
	vectors, err := client.Embed(context.Background(), nil)
	if err != nil || vectors != nil {
		t.Fatalf("Embed(nil) = %v, %v", vectors, err)
	}
}

package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/adamw/article-rag-assistant/internal/core/domain"
)

func TestIndexChunksEnsuresCollectionOncePerVectorSize(t *testing.T) {
	var ensureCalls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/collections/articles":
			atomic.AddInt32(&ensureCalls, 1)
			w.WriteHeader(http.StatusCreated)
		case r.Method == http.MethodPut && r.URL.Path == "/collections/articles/points":
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := New(server.URL, "articles")
	article := domain.Article{Name: "openai.md", Title: "OpenAI"}
	chunks := []string{"a", "b"}
	vectors := [][]float32{{0.1, 0.2}, {0.3, 0.4}}

	if err := client.IndexChunks(context.Background(), article, chunks, vectors); err != nil {
		t.Fatalf("first IndexChunks() error = %v", err)
	}
	if err := client.IndexChunks(context.Background(), article, chunks, vectors); err != nil {
		t.Fatalf("second IndexChunks() error = %v", err)
	}
	if got := atomic.LoadInt32(&ensureCalls); got != 1 {
		t.Fatalf("expected ensure collection called once, got %d", got)
	}
}

func TestIndexChunksPayloadCarriesSourceAndText(t *testing.T) {
	var upsert struct {
		Points []struct {
			Payload map[string]any `json:"payload"`
		} `json:"points"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/collections/articles":
			w.WriteHeader(http.StatusCreated)
		case r.Method == http.MethodPut && r.URL.Path == "/collections/articles/points":
			if err := json.NewDecoder(r.Body).Decode(&upsert); err != nil {
				t.Fatalf("decode upsert: %v", err)
			}
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := New(server.URL, "articles")
	article := domain.Article{Name: "openai.md", Title: "OpenAI"}
	if err := client.IndexChunks(context.Background(), article, []string{"chunk text"}, [][]float32{{0.1}}); err != nil {
		t.Fatalf("IndexChunks() error = %v", err)
	}

	if len(upsert.Points) != 1 {
		t.Fatalf("points = %d, want 1", len(upsert.Points))
	}
	payload := upsert.Points[0].Payload
	if payload["source"] != "openai.md" || payload["text"] != "chunk text" {
		t.Fatalf("payload = %v", payload)
	}
}

func TestQueryTextFilterAndMatches(t *testing.T) {
	var searchBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/collections/articles/points/search" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&searchBody); err != nil {
			t.Fatalf("decode search: %v", err)
		}
		_, _ = w.Write([]byte(`{"result":[
			{"id":"p1","score":0.92,"payload":{"text":"OpenAI was founded in 2015.","source":"openai.md"}},
			{"id":7,"score":0.4,"payload":{"text":"other","source":"b.md"}}
		]}`))
	}))
	defer server.Close()

	client := New(server.URL, "articles")
	matches, err := client.Query(context.Background(), []float32{0, 0}, 5, domain.SearchFilter{TextContains: "founded"})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}

	if searchBody["limit"].(float64) != 5 {
		t.Fatalf("limit = %v", searchBody["limit"])
	}
	filter := searchBody["filter"].(map[string]any)
	must := filter["must"].([]any)
	clause := must[0].(map[string]any)
	if clause["key"] != "text" {
		t.Fatalf("filter clause = %v", clause)
	}
	match := clause["match"].(map[string]any)
	if match["text"] != "founded" {
		t.Fatalf("full-text match = %v", match)
	}

	if len(matches) != 2 {
		t.Fatalf("matches = %d, want 2", len(matches))
	}
	if matches[0].ID != "p1" || matches[0].Score != 0.92 {
		t.Fatalf("match = %+v", matches[0])
	}
	// Numeric point ids come back as strings for stable fusion keys.
	if matches[1].ID != "7" {
		t.Fatalf("numeric id = %q", matches[1].ID)
	}
}

func TestQueryWithoutFilterOmitsFilterField(t *testing.T) {
	var searchBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&searchBody); err != nil {
			t.Fatalf("decode search: %v", err)
		}
		_, _ = w.Write([]byte(`{"result":[]}`))
	}))
	defer server.Close()

	client := New(server.URL, "articles")
	if _, err := client.Query(context.Background(), []float32{0.1}, 3, domain.SearchFilter{}); err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if _, ok := searchBody["filter"]; ok {
		t.Fatalf("unfiltered query must not send a filter")
	}
}

func TestQuerySearchErrorPropagates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := New(server.URL, "articles")
	if _, err := client.Query(context.Background(), []float32{0.1}, 3, domain.SearchFilter{}); err == nil {
		t.Fatalf("expected error, got none")
	}
}

func TestEnsureCollectionIncludesResponseBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut && r.URL.Path == "/collections/articles" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := New(server.URL, "articles")
	err := client.IndexChunks(context.Background(), domain.Article{Name: "a.md"}, []string{"a"}, [][]float32{{0.1, 0.2}})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected error to include body, got %v", err)
	}
}

func TestPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"result":{"collections":[]}}`))
	}))
	defer server.Close()

	if err := New(server.URL, "articles").Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	server.Close()
	if err := New(server.URL, "articles").Ping(context.Background()); err == nil {
		t.Fatalf("expected error after server shutdown")
	}
}

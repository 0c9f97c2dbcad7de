package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/adamw/article-rag-assistant/internal/core/domain"
)

type fakeArticleSource struct {
	articles map[string]domain.Article
}

func (f *fakeArticleSource) List(_ context.Context) ([]string, error) {
	out := make([]string, 0, len(f.articles))
	for name := range f.articles {
		out = append(out, name)
	}
	return out, nil
}

func (f *fakeArticleSource) Read(_ context.Context, name string) (domain.Article, error) {
	article, ok := f.articles[name]
	if !ok {
		return domain.Article{}, errors.New("article not found: " + name)
	}
	return article, nil
}

type fixedChunker struct {
	size int
}

func (c *fixedChunker) Split(content string) []string {
	if content == "" {
		return nil
	}
	var out []string
	for start := 0; start < len(content); start += c.size {
		end := start + c.size
		if end > len(content) {
			end = len(content)
		}
		out = append(out, content[start:end])
	}
	return out
}

type countingRetrier struct {
	attempts int
	failures int
}

func (r *countingRetrier) Run(ctx context.Context, _ string, fn func(context.Context) error) error {
	var err error
	for i := 0; i < 3; i++ {
		r.attempts++
		if err = fn(ctx); err == nil {
			return nil
		}
	}
	return err
}

type indexingStore struct {
	fakeStore
	indexed  [][]string
	failures int
}

func (s *indexingStore) IndexChunks(_ context.Context, _ domain.Article, chunks []string, vectors [][]float32) error {
	if s.failures > 0 {
		s.failures--
		return errors.New("qdrant unavailable")
	}
	if len(chunks) != len(vectors) {
		return errors.New("chunk/vector length mismatch")
	}
	s.indexed = append(s.indexed, chunks)
	return nil
}

func TestIndexByNameBatchesChunks(t *testing.T) {
	source := &fakeArticleSource{articles: map[string]domain.Article{
		"openai.md": {Name: "openai.md", Content: strings.Repeat("a", 50)},
	}}
	store := &indexingStore{}
	uc := NewIndexArticleUseCase(source, &fixedChunker{size: 10}, &fakeEmbedder{vec: []float32{0.1}}, store, nil, 2)

	if err := uc.IndexByName(context.Background(), "openai.md"); err != nil {
		t.Fatalf("IndexByName() error = %v", err)
	}
	// 5 chunks in batches of 2: sizes 2, 2, 1.
	if len(store.indexed) != 3 {
		t.Fatalf("indexed %d batches, want 3", len(store.indexed))
	}
	if len(store.indexed[2]) != 1 {
		t.Fatalf("final batch size %d, want 1", len(store.indexed[2]))
	}
}

func TestIndexByNameRetriesFailedBatch(t *testing.T) {
	source := &fakeArticleSource{articles: map[string]domain.Article{
		"openai.md": {Name: "openai.md", Content: strings.Repeat("a", 10)},
	}}
	store := &indexingStore{failures: 2}
	retrier := &countingRetrier{}
	uc := NewIndexArticleUseCase(source, &fixedChunker{size: 10}, &fakeEmbedder{vec: []float32{0.1}}, store, retrier, 0)

	if err := uc.IndexByName(context.Background(), "openai.md"); err != nil {
		t.Fatalf("IndexByName() error = %v", err)
	}
	if retrier.attempts != 3 {
		t.Fatalf("attempts = %d, want 3 (two failures then success)", retrier.attempts)
	}
	if len(store.indexed) != 1 {
		t.Fatalf("indexed %d batches, want 1", len(store.indexed))
	}
}

func TestIndexByNameExhaustedRetriesSurface(t *testing.T) {
	source := &fakeArticleSource{articles: map[string]domain.Article{
		"openai.md": {Name: "openai.md", Content: strings.Repeat("a", 10)},
	}}
	store := &indexingStore{failures: 10}
	uc := NewIndexArticleUseCase(source, &fixedChunker{size: 10}, &fakeEmbedder{vec: []float32{0.1}}, store, &countingRetrier{}, 0)

	err := uc.IndexByName(context.Background(), "openai.md")
	if err == nil {
		t.Fatalf("expected error after exhausted retries")
	}
	if !strings.Contains(err.Error(), "index batch [0:1]") {
		t.Fatalf("error missing batch range: %v", err)
	}
}

func TestIndexByNameZeroChunks(t *testing.T) {
	source := &fakeArticleSource{articles: map[string]domain.Article{
		"empty.md": {Name: "empty.md", Content: ""},
	}}
	uc := NewIndexArticleUseCase(source, &fixedChunker{size: 10}, &fakeEmbedder{vec: []float32{0.1}}, &indexingStore{}, nil, 0)

	err := uc.IndexByName(context.Background(), "empty.md")
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("error = %v, want ErrInvalidInput", err)
	}
}

func TestIndexByNameUnknownArticle(t *testing.T) {
	uc := NewIndexArticleUseCase(&fakeArticleSource{}, &fixedChunker{size: 10}, &fakeEmbedder{vec: []float32{0.1}}, &indexingStore{}, nil, 0)

	if err := uc.IndexByName(context.Background(), "missing.md"); err == nil {
		t.Fatalf("expected error for unknown article")
	}
}

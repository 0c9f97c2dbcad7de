package corpus

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/adamw/article-rag-assistant/internal/core/domain"
)

func newTestSource(t *testing.T, files map[string]string) *Source {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	source, err := New(dir)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return source
}

func TestListReturnsMarkdownFilesSorted(t *testing.T) {
	source := newTestSource(t, map[string]string{
		"zebra.md":      "z",
		"alpha.md":      "a",
		"notes.txt":     "skip",
		"img.png":       "skip",
		"deep.markdown": "ok",
	})

	names, err := source.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := []string{"alpha.md", "deep.markdown", "zebra.md"}
	if len(names) != len(want) {
		t.Fatalf("names = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names = %v, want %v", names, want)
		}
	}
}

func TestReadStripsFrontMatter(t *testing.T) {
	source := newTestSource(t, map[string]string{
		"openai.md": "---\ntitle: \"OpenAI\"\ndate: 2024-01-01\n---\n\nOpenAI was founded in 2015.",
	})

	article, err := source.Read(context.Background(), "openai.md")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if article.Title != "OpenAI" {
		t.Fatalf("title = %q", article.Title)
	}
	if article.Content != "OpenAI was founded in 2015." {
		t.Fatalf("content = %q", article.Content)
	}
}

func TestReadTitleFallsBackToHeading(t *testing.T) {
	source := newTestSource(t, map[string]string{
		"agi.md": "# What is AGI?\n\nBody text.",
	})
	article, err := source.Read(context.Background(), "agi.md")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if article.Title != "What is AGI?" {
		t.Fatalf("title = %q", article.Title)
	}
}

func TestReadRejectsPathTraversal(t *testing.T) {
	source := newTestSource(t, map[string]string{"a.md": "x"})
	_, err := source.Read(context.Background(), "../secrets.md")
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("error = %v, want ErrInvalidInput", err)
	}
}

func TestReadMissingArticle(t *testing.T) {
	source := newTestSource(t, map[string]string{"a.md": "x"})
	_, err := source.Read(context.Background(), "missing.md")
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("error = %v, want ErrInvalidInput", err)
	}
}

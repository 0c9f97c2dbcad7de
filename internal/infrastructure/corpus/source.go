package corpus

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/adamw/article-rag-assistant/internal/core/domain"
)

// Source reads Markdown articles from a flat directory. Article names are
// the file names relative to the directory; front matter is stripped before
// the body reaches the chunker.
type Source struct {
	dir string
}

func New(dir string) (*Source, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("stat corpus dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("corpus path %s is not a directory", dir)
	}
	return &Source{dir: dir}, nil
}

func (s *Source) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read corpus dir: %w", err)
	}

	var out []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		switch strings.ToLower(filepath.Ext(name)) {
		case ".md", ".markdown":
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *Source) Read(_ context.Context, name string) (domain.Article, error) {
	// Article names never carry path separators; reject traversal outright.
	if name != filepath.Base(name) || name == "." || name == ".." {
		return domain.Article{}, domain.WrapError(
			domain.ErrInvalidInput,
			"read article",
			fmt.Errorf("invalid article name %q", name),
		)
	}

	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.Article{}, domain.WrapError(domain.ErrInvalidInput, "read article", err)
		}
		return domain.Article{}, fmt.Errorf("read article %s: %w", name, err)
	}

	front, body := splitFrontMatter(string(data))
	title := frontMatterTitle(front)
	if title == "" {
		title = firstHeading(body)
	}
	if title == "" {
		title = strings.TrimSuffix(name, filepath.Ext(name))
	}

	return domain.Article{
		Name:    name,
		Title:   title,
		Content: strings.TrimSpace(body),
	}, nil
}

// splitFrontMatter separates a leading YAML front-matter block delimited by
// "---" lines from the article body.
func splitFrontMatter(text string) (front, body string) {
	const delim = "---"
	trimmed := strings.TrimLeft(text, "\uFEFF\n\r")
	if !strings.HasPrefix(trimmed, delim) {
		return "", text
	}
	rest := trimmed[len(delim):]
	idx := strings.Index(rest, "\n"+delim)
	if idx < 0 {
		return "", text
	}
	front = strings.TrimSpace(rest[:idx])
	body = rest[idx+len(delim)+1:]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	} else {
		body = ""
	}
	return front, body
}

func frontMatterTitle(front string) string {
	for _, line := range strings.Split(front, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok || strings.TrimSpace(key) != "title" {
			continue
		}
		return strings.Trim(strings.TrimSpace(value), `"'`)
	}
	return ""
}

func firstHeading(body string) string {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}
	}
	return ""
}

package chunking

import (
	"strings"
	"testing"
)

func TestSplitOverlappingWindows(t *testing.T) {
	s := NewSplitter(10, 4)
	chunks := s.Split(strings.Repeat("abcdefghij", 2))
	if len(chunks) < 3 {
		t.Fatalf("chunks = %d, want overlapping windows", len(chunks))
	}
	if chunks[0] != "abcdefghij" {
		t.Fatalf("first chunk = %q", chunks[0])
	}
	// Step is chunkSize-overlap, so the second window starts at rune 6.
	if chunks[1][:4] != "ghij" {
		t.Fatalf("second chunk = %q, want overlap carried over", chunks[1])
	}
}

func TestNewSplitterDefaults(t *testing.T) {
	s := NewSplitter(0, -1)
	if s.ChunkSize != 1000 {
		t.Fatalf("chunk size = %d, want 1000", s.ChunkSize)
	}
	if s.Overlap != 200 {
		t.Fatalf("overlap = %d, want 200", s.Overlap)
	}
}

func TestSplitEmptyText(t *testing.T) {
	if chunks := NewSplitter(10, 2).Split(""); chunks != nil {
		t.Fatalf("chunks = %v, want nil", chunks)
	}
}

func TestSplitTrimsBlankChunks(t *testing.T) {
	chunks := NewSplitter(4, 0).Split("ab      cd")
	for _, c := range chunks {
		if strings.TrimSpace(c) == "" {
			t.Fatalf("blank chunk survived: %q", chunks)
		}
	}
}

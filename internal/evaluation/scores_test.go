package evaluation

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/adamw/article-rag-assistant/internal/core/domain"
)

type scriptedJudge struct {
	response string
	err      error
	prompts  []string
}

func (j *scriptedJudge) Complete(_ context.Context, prompt string, _ domain.CompletionOptions) (string, error) {
	j.prompts = append(j.prompts, prompt)
	if j.err != nil {
		return "", j.err
	}
	return j.response, nil
}

func TestCosineSimilarity(t *testing.T) {
	cases := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero left", []float32{0, 0, 0}, []float32{1, 2, 3}, 0},
		{"zero right", []float32{1, 2, 3}, []float32{0, 0, 0}, 0},
		{"both zero", []float32{0, 0}, []float32{0, 0}, 0},
		{"mismatched lengths", []float32{1, 2, 3}, []float32{1, 2}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CosineSimilarity(tc.a, tc.b)
			if math.IsNaN(got) {
				t.Fatalf("similarity is NaN")
			}
			if math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("similarity = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSourceOverlap(t *testing.T) {
	cases := []struct {
		name     string
		system   []string
		expected []string
		want     float64
	}{
		{"empty expected scores full", []string{"a", "b"}, nil, 1},
		{"two of three", []string{"a", "b", "c"}, []string{"a", "b", "x"}, 2.0 / 3.0},
		{"no system sources", nil, []string{"a"}, 0},
		{"disjoint", []string{"a"}, []string{"b"}, 0},
		{"longer system list dilutes", []string{"a", "b", "c", "d"}, []string{"a"}, 0.25},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := SourceOverlap(tc.system, tc.expected)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("overlap = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestConceptCoverageParsesJudgeFloat(t *testing.T) {
	judge := &scriptedJudge{response: " 0.75\n"}
	got, err := ConceptCoverage(context.Background(), judge, "gpt-4o", "answer", []string{"founding", "mission"})
	if err != nil {
		t.Fatalf("ConceptCoverage() error = %v", err)
	}
	if got != 0.75 {
		t.Fatalf("coverage = %v, want 0.75", got)
	}
	if len(judge.prompts) != 1 {
		t.Fatalf("judge called %d times, want 1", len(judge.prompts))
	}
}

func TestConceptCoverageClampsOutOfRange(t *testing.T) {
	for raw, want := range map[string]float64{"1.4": 1, "-0.2": 0} {
		judge := &scriptedJudge{response: raw}
		got, err := ConceptCoverage(context.Background(), judge, "gpt-4o", "answer", []string{"c"})
		if err != nil {
			t.Fatalf("ConceptCoverage(%q) error = %v", raw, err)
		}
		if got != want {
			t.Fatalf("ConceptCoverage(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestConceptCoverageNonNumericIsContractError(t *testing.T) {
	judge := &scriptedJudge{response: "most concepts are covered"}
	_, err := ConceptCoverage(context.Background(), judge, "gpt-4o", "answer", []string{"c"})
	if !errors.Is(err, domain.ErrJudgeContract) {
		t.Fatalf("error = %v, want ErrJudgeContract", err)
	}
}

func TestConceptCoverageEmptyConceptsSkipsJudge(t *testing.T) {
	judge := &scriptedJudge{response: "0.1"}
	got, err := ConceptCoverage(context.Background(), judge, "gpt-4o", "answer", nil)
	if err != nil {
		t.Fatalf("ConceptCoverage() error = %v", err)
	}
	if got != 1 {
		t.Fatalf("coverage = %v, want 1 for empty concept list", got)
	}
	if len(judge.prompts) != 0 {
		t.Fatalf("judge must not be called without concepts")
	}
}

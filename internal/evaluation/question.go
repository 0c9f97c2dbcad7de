package evaluation

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/adamw/article-rag-assistant/internal/core/domain"
)

// Question is one labeled item of the evaluation set. ExpectedAnswer is
// optional; questions without one still run but are excluded from the
// relevance mean.
type Question struct {
	ID             string           `json:"id" yaml:"id"`
	Question       string           `json:"question" yaml:"question"`
	ExpectedAnswer string           `json:"expectedAnswer,omitempty" yaml:"expectedAnswer,omitempty"`
	Metadata       QuestionMetadata `json:"metadata" yaml:"metadata"`
}

type QuestionMetadata struct {
	SourceFiles []string `json:"sourceFiles,omitempty" yaml:"sourceFiles,omitempty"`
	Concepts    []string `json:"concepts,omitempty" yaml:"concepts,omitempty"`
}

// Result holds the full trace of one evaluated question. Score fields are
// pointers: nil means "not applicable", which is different from 0.
type Result struct {
	QuestionID     string         `json:"questionId"`
	Question       string         `json:"question"`
	SystemAnswer   string         `json:"systemAnswer"`
	ExpectedAnswer string         `json:"expectedAnswer,omitempty"`
	References     []string       `json:"references"`
	Metadata       ResultMetadata `json:"metadata"`
}

type ResultMetadata struct {
	ResponseTimeMs  int64    `json:"responseTimeMs"`
	RelevanceScore  *float64 `json:"relevanceScore,omitempty"`
	SourceOverlap   *float64 `json:"sourceOverlap,omitempty"`
	ConceptCoverage *float64 `json:"conceptCoverage,omitempty"`
}

// Metrics is the per-run aggregate, computed once and persisted.
type Metrics struct {
	TotalQuestions         int      `json:"totalQuestions"`
	Evaluated              int      `json:"evaluated"`
	AverageResponseTimeMs  float64  `json:"averageResponseTimeMs"`
	AverageRelevanceScore  *float64 `json:"averageRelevanceScore,omitempty"`
	Coverage               float64  `json:"coverage"`
	AverageSourceOverlap   float64  `json:"averageSourceOverlap"`
	AverageConceptCoverage float64  `json:"averageConceptCoverage"`
}

// LoadQuestions reads a question-set file. The format follows the file
// extension: .yaml/.yml parse as YAML, everything else as JSON.
func LoadQuestions(path string) ([]Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read question set: %w", err)
	}

	var questions []Question
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &questions); err != nil {
			return nil, fmt.Errorf("parse yaml question set: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &questions); err != nil {
			return nil, fmt.Errorf("parse json question set: %w", err)
		}
	}

	if err := validateQuestions(questions); err != nil {
		return nil, err
	}
	return questions, nil
}

func validateQuestions(questions []Question) error {
	if len(questions) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "load questions", errors.New("empty question set"))
	}
	seen := make(map[string]struct{}, len(questions))
	for i, q := range questions {
		if strings.TrimSpace(q.ID) == "" {
			return domain.WrapError(domain.ErrInvalidInput, "load questions", fmt.Errorf("question %d has no id", i))
		}
		if strings.TrimSpace(q.Question) == "" {
			return domain.WrapError(domain.ErrInvalidInput, "load questions", fmt.Errorf("question %q has no text", q.ID))
		}
		if _, ok := seen[q.ID]; ok {
			return domain.WrapError(domain.ErrInvalidInput, "load questions", fmt.Errorf("duplicate question id %q", q.ID))
		}
		seen[q.ID] = struct{}{}
	}
	return nil
}

package evaluation

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adamw/article-rag-assistant/internal/core/domain"
	"github.com/adamw/article-rag-assistant/internal/core/ports"
)

// State is the evaluator lifecycle position. Transitions are strictly
// forward: Idle -> Loaded -> Running -> Aggregated -> Persisted, and
// Persisted is terminal.
type State int

const (
	StateIdle State = iota
	StateLoaded
	StateRunning
	StateAggregated
	StatePersisted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoaded:
		return "loaded"
	case StateRunning:
		return "running"
	case StateAggregated:
		return "aggregated"
	case StatePersisted:
		return "persisted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

const (
	resultsFileName = "evaluation_results.csv"
	metricsFileName = "metrics.json"
)

// Evaluator replays a labeled question set through the answer pipeline and
// scores every reply. Questions run strictly sequentially so per-question
// latency is not contaminated by cross-question contention.
type Evaluator struct {
	answerer   ports.Answerer
	embedder   ports.Embedder
	judge      ports.CompletionProvider
	store      ports.VectorStore
	judgeModel string
	logger     *slog.Logger

	now func() time.Time

	state     State
	questions []Question
	results   []Result
	metrics   Metrics
}

func NewEvaluator(
	answerer ports.Answerer,
	embedder ports.Embedder,
	judge ports.CompletionProvider,
	store ports.VectorStore,
	judgeModel string,
	logger *slog.Logger,
) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{
		answerer:   answerer,
		embedder:   embedder,
		judge:      judge,
		store:      store,
		judgeModel: judgeModel,
		logger:     logger,
		now:        time.Now,
		state:      StateIdle,
	}
}

func (e *Evaluator) State() State { return e.state }

func (e *Evaluator) requireState(op string, want State) error {
	if e.state != want {
		return domain.WrapError(
			domain.ErrInvalidInput,
			op,
			fmt.Errorf("evaluator is %s, needs %s", e.state, want),
		)
	}
	return nil
}

// Load validates the question set and verifies the retriever connection.
func (e *Evaluator) Load(ctx context.Context, questions []Question) error {
	if err := e.requireState("load", StateIdle); err != nil {
		return err
	}
	if err := validateQuestions(questions); err != nil {
		return err
	}
	if err := e.store.Ping(ctx); err != nil {
		return fmt.Errorf("vector store ping: %w", err)
	}
	e.questions = questions
	e.state = StateLoaded
	return nil
}

// Run evaluates every loaded question in order. One question's failure,
// panics included, is logged and that question dropped from the result set;
// the run itself always completes.
func (e *Evaluator) Run(ctx context.Context) error {
	if err := e.requireState("run", StateLoaded); err != nil {
		return err
	}
	e.state = StateRunning

	for _, q := range e.questions {
		e.logger.Info("evaluating_question", "id", q.ID)
		result, err := e.evaluateQuestion(ctx, q)
		if err != nil {
			e.logger.Error("question_evaluation_failed", "id", q.ID, "error", err)
			continue
		}
		e.results = append(e.results, result)
	}
	return nil
}

func (e *Evaluator) evaluateQuestion(ctx context.Context, q Question) (result Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("evaluate question %s: panic: %v", q.ID, r)
		}
	}()

	start := e.now()
	chat, err := e.answerer.Answer(ctx, []domain.ConversationTurn{
		{ID: "1", Role: domain.RoleUser, Content: q.Question},
	})
	if err != nil {
		return Result{}, fmt.Errorf("answer question %s: %w", q.ID, err)
	}
	elapsed := e.now().Sub(start)

	result = Result{
		QuestionID:     q.ID,
		Question:       q.Question,
		SystemAnswer:   chat.Reply.Content,
		ExpectedAnswer: q.ExpectedAnswer,
		References:     chat.References,
		Metadata:       ResultMetadata{ResponseTimeMs: elapsed.Milliseconds()},
	}

	if q.ExpectedAnswer != "" {
		relevance, err := e.relevanceScore(ctx, chat.Reply.Content, q.ExpectedAnswer)
		if err != nil {
			return Result{}, fmt.Errorf("relevance score for %s: %w", q.ID, err)
		}
		result.Metadata.RelevanceScore = &relevance
	}

	overlap := SourceOverlap(chat.References, q.Metadata.SourceFiles)
	result.Metadata.SourceOverlap = &overlap

	coverage, err := ConceptCoverage(ctx, e.judge, e.judgeModel, chat.Reply.Content, q.Metadata.Concepts)
	if err != nil {
		return Result{}, fmt.Errorf("concept coverage for %s: %w", q.ID, err)
	}
	result.Metadata.ConceptCoverage = &coverage

	return result, nil
}

// relevanceScore embeds both answers with the same provider and compares the
// vectors by cosine similarity.
func (e *Evaluator) relevanceScore(ctx context.Context, systemAnswer, expectedAnswer string) (float64, error) {
	vectors, err := e.embedder.Embed(ctx, []string{systemAnswer, expectedAnswer})
	if err != nil {
		return 0, fmt.Errorf("embed answers: %w", err)
	}
	if len(vectors) != 2 {
		return 0, fmt.Errorf("embed answers: got %d vectors, want 2", len(vectors))
	}
	return CosineSimilarity(vectors[0], vectors[1]), nil
}

// Aggregate computes the run summary. Means divide by the number of
// evaluated questions only; failed questions never dilute a denominator, and
// the relevance mean covers just the questions that carried an expected
// answer.
func (e *Evaluator) Aggregate() (Metrics, error) {
	if err := e.requireState("aggregate", StateRunning); err != nil {
		return Metrics{}, err
	}

	m := Metrics{
		TotalQuestions: len(e.questions),
		Evaluated:      len(e.results),
	}

	var (
		totalTime     int64
		withReference int
		relevanceSum  float64
		relevanceN    int
		overlapSum    float64
		coverageSum   float64
	)
	for _, r := range e.results {
		totalTime += r.Metadata.ResponseTimeMs
		if len(r.References) > 0 {
			withReference++
		}
		if r.Metadata.RelevanceScore != nil {
			relevanceSum += *r.Metadata.RelevanceScore
			relevanceN++
		}
		if r.Metadata.SourceOverlap != nil {
			overlapSum += *r.Metadata.SourceOverlap
		}
		if r.Metadata.ConceptCoverage != nil {
			coverageSum += *r.Metadata.ConceptCoverage
		}
	}

	if m.Evaluated > 0 {
		n := float64(m.Evaluated)
		m.AverageResponseTimeMs = float64(totalTime) / n
		m.Coverage = float64(withReference) / n
		m.AverageSourceOverlap = overlapSum / n
		m.AverageConceptCoverage = coverageSum / n
	}
	if relevanceN > 0 {
		mean := relevanceSum / float64(relevanceN)
		m.AverageRelevanceScore = &mean
	}

	e.metrics = m
	e.state = StateAggregated
	return m, nil
}

// Persist writes the per-question CSV and the metrics JSON into dir and
// moves the evaluator to its terminal state.
func (e *Evaluator) Persist(dir string) error {
	if err := e.requireState("persist", StateAggregated); err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create results dir: %w", err)
	}
	if err := e.writeResultsCSV(filepath.Join(dir, resultsFileName)); err != nil {
		return err
	}
	if err := e.writeMetricsJSON(filepath.Join(dir, metricsFileName)); err != nil {
		return err
	}
	e.state = StatePersisted
	return nil
}

func (e *Evaluator) writeResultsCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create results csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{
		"question_id", "question", "system_answer", "expected_answer",
		"references", "response_time_ms", "relevance_score",
		"source_overlap", "concept_coverage",
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range e.results {
		row := []string{
			r.QuestionID,
			r.Question,
			r.SystemAnswer,
			r.ExpectedAnswer,
			strings.Join(r.References, ";"),
			strconv.FormatInt(r.Metadata.ResponseTimeMs, 10),
			formatScore(r.Metadata.RelevanceScore),
			formatScore(r.Metadata.SourceOverlap),
			formatScore(r.Metadata.ConceptCoverage),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write csv row %s: %w", r.QuestionID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush results csv: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close results csv: %w", err)
	}
	return nil
}

func (e *Evaluator) writeMetricsJSON(path string) error {
	data, err := json.MarshalIndent(e.metrics, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write metrics json: %w", err)
	}
	return nil
}

func formatScore(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// ErrNoResults reports a run in which every question failed.
var ErrNoResults = errors.New("no questions evaluated successfully")

// Check returns ErrNoResults when the aggregated run produced nothing
// worth persisting. Callers decide whether that fails the process.
func (e *Evaluator) Check() error {
	if e.state != StateAggregated && e.state != StatePersisted {
		return nil
	}
	if e.metrics.Evaluated == 0 {
		return ErrNoResults
	}
	return nil
}

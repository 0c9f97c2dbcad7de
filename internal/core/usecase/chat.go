package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/adamw/article-rag-assistant/internal/core/domain"
	"github.com/adamw/article-rag-assistant/internal/core/ports"
)

const (
	ModeSemantic = "semantic"
	ModeHybrid   = "hybrid"
)

// ChatConfig tunes the retrieval pipeline. The fusion weights are deliberate
// configuration constants: the 0.6/0.4 split between dense and keyword
// contributions is a tuning artifact, kept overridable instead of re-derived.
type ChatConfig struct {
	Mode          string
	TopK          int
	HybridTopK    int
	KeywordTopK   int
	VectorWeight  float64
	KeywordWeight float64
	ContextDocs   int
	HistoryWindow int
	RerankSnippet int
	EmbeddingDim  int
	GenModel      string
	RerankModel   string
}

func (c ChatConfig) normalize() ChatConfig {
	out := c
	if out.Mode != ModeSemantic && out.Mode != ModeHybrid {
		out.Mode = ModeHybrid
	}
	if out.TopK <= 0 {
		out.TopK = 3
	}
	if out.HybridTopK <= 0 {
		out.HybridTopK = 12
	}
	if out.KeywordTopK <= 0 {
		out.KeywordTopK = 5
	}
	if out.VectorWeight <= 0 {
		out.VectorWeight = 0.6
	}
	if out.KeywordWeight <= 0 {
		out.KeywordWeight = 0.4
	}
	if out.ContextDocs <= 0 {
		out.ContextDocs = 3
	}
	if out.HistoryWindow <= 0 {
		out.HistoryWindow = 4
	}
	if out.RerankSnippet <= 0 {
		out.RerankSnippet = 1000
	}
	if out.EmbeddingDim <= 0 {
		out.EmbeddingDim = 1536
	}
	return out
}

// ChatUseCase runs the retrieval-augmented answer pipeline. Each invocation
// works on its own state; the use case itself holds no mutable data, so
// concurrent requests are isolated.
type ChatUseCase struct {
	embedder ports.Embedder
	store    ports.VectorStore
	provider ports.CompletionProvider
	cfg      ChatConfig
	logger   *slog.Logger
	observer ports.PipelineObserver
}

func NewChatUseCase(
	embedder ports.Embedder,
	store ports.VectorStore,
	provider ports.CompletionProvider,
	cfg ChatConfig,
	logger *slog.Logger,
) *ChatUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatUseCase{
		embedder: embedder,
		store:    store,
		provider: provider,
		cfg:      cfg.normalize(),
		logger:   logger,
	}
}

// pipelineState flows through the stages of one answer request.
type pipelineState struct {
	conversation []domain.ConversationTurn

	question string
	history  string
	query    string

	vectorMatches  []domain.Match
	keywordMatches []domain.Match

	fused       []fusedCandidate
	ranked      []domain.RankedDocument
	contextDocs []domain.Document

	prompt string
	answer string
}

type pipelineStage struct {
	name string
	run  func(ctx context.Context, st *pipelineState) error
}

// stages returns the ordered stage list for the configured mode. Semantic
// mode goes straight from vector retrieval to composition; hybrid mode adds
// keyword retrieval, weighted fusion and LLM reranking in between.
// SetObserver attaches a metrics sink. Optional; nil means no observation.
func (uc *ChatUseCase) SetObserver(observer ports.PipelineObserver) {
	uc.observer = observer
}

func (uc *ChatUseCase) stages() []pipelineStage {
	out := []pipelineStage{{"augment", uc.stageAugment}}
	if uc.cfg.Mode == ModeHybrid {
		out = append(out,
			pipelineStage{"retrieve", uc.stageRetrieveHybrid},
			pipelineStage{"fuse", uc.stageFuse},
			pipelineStage{"rerank", uc.stageRerank},
		)
	} else {
		out = append(out, pipelineStage{"retrieve", uc.stageRetrieveSemantic})
	}
	return append(out,
		pipelineStage{"compose", uc.stageCompose},
		pipelineStage{"generate", uc.stageGenerate},
	)
}

// Answer appends exactly one assistant turn to the conversation. Any stage
// failure is logged with full detail and surfaced to the caller as the single
// opaque ErrAnswerFailed.
func (uc *ChatUseCase) Answer(ctx context.Context, conversation []domain.ConversationTurn) (domain.ChatResult, error) {
	if err := validateConversation(conversation); err != nil {
		return domain.ChatResult{}, err
	}

	start := time.Now()
	st := &pipelineState{conversation: conversation}
	for _, stage := range uc.stages() {
		if err := stage.run(ctx, st); err != nil {
			if domain.IsKind(err, domain.ErrInvalidInput) {
				return domain.ChatResult{}, err
			}
			uc.logger.Error("pipeline_stage_failed",
				"stage", stage.name,
				"mode", uc.cfg.Mode,
				"error", err,
			)
			return domain.ChatResult{}, domain.ErrAnswerFailed
		}
	}

	reply := domain.ConversationTurn{
		ID:      uuid.NewString(),
		Role:    domain.RoleAssistant,
		Content: st.answer,
	}

	out := make([]domain.ConversationTurn, 0, len(conversation)+1)
	out = append(out, conversation...)
	out = append(out, reply)

	references := documentReferences(st.contextDocs)
	if uc.observer != nil {
		uc.observer.AnswerGenerated(uc.cfg.Mode, len(references), time.Since(start).Seconds())
	}

	return domain.ChatResult{
		Conversation: out,
		Reply:        reply,
		References:   references,
	}, nil
}

func validateConversation(conversation []domain.ConversationTurn) error {
	if len(conversation) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "answer", errors.New("empty conversation"))
	}
	last := conversation[len(conversation)-1]
	if last.Role != domain.RoleUser {
		return domain.WrapError(domain.ErrInvalidInput, "answer", errors.New("conversation must end with a user turn"))
	}
	if strings.TrimSpace(last.Content) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "answer", errors.New("empty question"))
	}
	return nil
}

// documentReferences collects unique source names in context order.
func documentReferences(docs []domain.Document) []string {
	out := make([]string, 0, len(docs))
	seen := make(map[string]struct{}, len(docs))
	for _, doc := range docs {
		src := doc.Source()
		if src == "" {
			continue
		}
		if _, ok := seen[src]; ok {
			continue
		}
		seen[src] = struct{}{}
		out = append(out, src)
	}
	return out
}

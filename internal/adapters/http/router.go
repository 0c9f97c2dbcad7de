package httpadapter

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/adamw/article-rag-assistant/internal/core/domain"
	"github.com/adamw/article-rag-assistant/internal/core/ports"
)

const defaultTranscriptLimit = 50

type Router struct {
	chat        ports.Answerer
	transcripts ports.TranscriptStore
	queue       ports.MessageQueue
	corpus      ports.ArticleSource
	metrics     MetricsHandler
	logger      Logger
}

// MetricsHandler is satisfied by the prometheus server metrics; kept as a
// small interface so tests can run the router without a registry.
type MetricsHandler interface {
	Handler() http.Handler
	Middleware(service string, next http.Handler) http.Handler
}

type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

func NewRouter(
	chat ports.Answerer,
	transcripts ports.TranscriptStore,
	queue ports.MessageQueue,
	corpus ports.ArticleSource,
	m MetricsHandler,
	logger Logger,
) *Router {
	return &Router{
		chat:        chat,
		transcripts: transcripts,
		queue:       queue,
		corpus:      corpus,
		metrics:     m,
		logger:      logger,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/chat", rt.postChat)
	mux.HandleFunc("/v1/conversations/", rt.getConversation)
	mux.HandleFunc("/v1/articles/index", rt.postArticleIndex)
	mux.HandleFunc("/v1/articles/reindex", rt.postArticleReindex)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
		return requestIDMiddleware(accessLogMiddleware(rt.metrics.Middleware("api", mux)))
	}
	return requestIDMiddleware(accessLogMiddleware(mux))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type chatMessage struct {
	ID      string `json:"id,omitempty"`
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	ConversationID string        `json:"conversation_id"`
	Messages       []chatMessage `json:"messages"`
}

type chatResponse struct {
	ConversationID string      `json:"conversation_id"`
	Reply          chatMessage `json:"reply"`
	References     []string    `json:"references"`
}

func (rt *Router) postChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	conversation := make([]domain.ConversationTurn, 0, len(req.Messages))
	for _, msg := range req.Messages {
		conversation = append(conversation, domain.ConversationTurn{
			ID:      msg.ID,
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	result, err := rt.chat.Answer(r.Context(), conversation)
	if err != nil {
		status := mapErrorToHTTPStatus(err)
		if status >= 500 {
			// Details stay in the server log; the caller sees one generic
			// failure message.
			writeJSON(w, status, map[string]string{"error": domain.ErrAnswerFailed.Error()})
			return
		}
		writeJSON(w, status, map[string]string{"error": "conversation must end with a non-empty user message"})
		return
	}

	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = uuid.NewString()
	}
	rt.persistTurns(r, conversationID, conversation, result.Reply)

	writeJSON(w, http.StatusOK, chatResponse{
		ConversationID: conversationID,
		Reply: chatMessage{
			ID:      result.Reply.ID,
			Role:    result.Reply.Role,
			Content: result.Reply.Content,
		},
		References: result.References,
	})
}

// persistTurns stores the asked question and the generated reply. Transcript
// storage is best effort: a failure is logged and the response still served.
func (rt *Router) persistTurns(r *http.Request, conversationID string, conversation []domain.ConversationTurn, reply domain.ConversationTurn) {
	if rt.transcripts == nil {
		return
	}
	now := time.Now().UTC()
	question := conversation[len(conversation)-1]
	if question.ID == "" {
		question.ID = uuid.NewString()
	}
	for _, turn := range []domain.ConversationTurn{question, reply} {
		err := rt.transcripts.AppendMessage(r.Context(), domain.TranscriptMessage{
			ID:             turn.ID,
			ConversationID: conversationID,
			Role:           turn.Role,
			Content:        turn.Content,
			CreatedAt:      now,
		})
		if err != nil {
			rt.logger.Warn("transcript_append_failed",
				"request_id", requestIDFromContext(r.Context()),
				"conversation_id", conversationID,
				"error", err,
			)
			return
		}
	}
}

// getConversation serves the stored transcript of one conversation, oldest
// turn first.
func (rt *Router) getConversation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if rt.transcripts == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "transcript store is not configured"})
		return
	}

	conversationID := strings.TrimPrefix(r.URL.Path, "/v1/conversations/")
	if conversationID == "" || strings.Contains(conversationID, "/") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "conversation id is required"})
		return
	}

	limit := defaultTranscriptLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	messages, err := rt.transcripts.ListRecentMessages(r.Context(), conversationID, limit)
	if err != nil {
		rt.logger.Error("transcript_list_failed",
			"request_id", requestIDFromContext(r.Context()),
			"conversation_id", conversationID,
			"error", err,
		)
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": "failed to load transcript"})
		return
	}

	turns := make([]chatMessage, 0, len(messages))
	for _, msg := range messages {
		turns = append(turns, chatMessage{ID: msg.ID, Role: msg.Role, Content: msg.Content})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"conversation_id": conversationID,
		"messages":        turns,
	})
}

// postArticleIndex queues an article for (re)indexing by the worker.
func (rt *Router) postArticleIndex(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if rt.queue == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "indexing queue is not configured"})
		return
	}

	var req struct {
		Article string `json:"article"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Article) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "article is required"})
		return
	}

	if err := rt.queue.PublishArticleQueued(r.Context(), req.Article); err != nil {
		rt.logger.Error("article_queue_publish_failed",
			"request_id", requestIDFromContext(r.Context()),
			"article", req.Article,
			"error", err,
		)
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": "failed to queue article"})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued", "article": req.Article})
}

// postArticleReindex queues every article in the corpus for reindexing.
func (rt *Router) postArticleReindex(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if rt.queue == nil || rt.corpus == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "indexing is not configured"})
		return
	}

	names, err := rt.corpus.List(r.Context())
	if err != nil {
		rt.logger.Error("corpus_list_failed",
			"request_id", requestIDFromContext(r.Context()),
			"error", err,
		)
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": "failed to list corpus"})
		return
	}

	for _, name := range names {
		if err := rt.queue.PublishArticleQueued(r.Context(), name); err != nil {
			rt.logger.Error("article_queue_publish_failed",
				"request_id", requestIDFromContext(r.Context()),
				"article", name,
				"error", err,
			)
			writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": "failed to queue article"})
			return
		}
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"status": "queued", "articles": len(names)})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

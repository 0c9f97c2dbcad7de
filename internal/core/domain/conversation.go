package domain

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ConversationTurn is one message in a chat transcript.
type ConversationTurn struct {
	ID      string `json:"id"`
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResult is the outcome of one pipeline invocation: the conversation with
// the freshly generated assistant turn appended, plus the source references
// the answer was grounded on.
type ChatResult struct {
	Conversation []ConversationTurn `json:"conversation"`
	Reply        ConversationTurn   `json:"reply"`
	References   []string           `json:"references"`
}

// TranscriptMessage is a persisted conversation turn.
type TranscriptMessage struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// LastTurns returns the trailing window of a conversation, most recent last.
func LastTurns(turns []ConversationTurn, window int) []ConversationTurn {
	if window <= 0 || len(turns) <= window {
		return turns
	}
	return turns[len(turns)-window:]
}

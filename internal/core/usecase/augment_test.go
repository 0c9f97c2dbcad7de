package usecase

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/adamw/article-rag-assistant/internal/core/domain"
)

func TestStageAugmentWindowsHistory(t *testing.T) {
	uc := NewChatUseCase(nil, nil, nil, ChatConfig{HistoryWindow: 4}, nil)

	st := &pipelineState{conversation: []domain.ConversationTurn{
		{Role: domain.RoleUser, Content: "one"},
		{Role: domain.RoleAssistant, Content: "two"},
		{Role: domain.RoleUser, Content: "three"},
		{Role: domain.RoleAssistant, Content: "four"},
		{Role: domain.RoleUser, Content: "what now?"},
	}}
	if err := uc.stageAugment(context.Background(), st); err != nil {
		t.Fatalf("stageAugment() error = %v", err)
	}

	if st.question != "what now?" {
		t.Fatalf("question = %q", st.question)
	}
	wantHistory := "assistant: two\nuser: three\nassistant: four"
	if st.history != wantHistory {
		t.Fatalf("history = %q, want %q", st.history, wantHistory)
	}
	if st.query != wantHistory+"\nwhat now?" {
		t.Fatalf("query = %q", st.query)
	}
}

func TestStageAugmentSingleTurnHasNoHistory(t *testing.T) {
	uc := NewChatUseCase(nil, nil, nil, ChatConfig{}, nil)

	st := &pipelineState{conversation: []domain.ConversationTurn{
		{Role: domain.RoleUser, Content: "  hello  "},
	}}
	if err := uc.stageAugment(context.Background(), st); err != nil {
		t.Fatalf("stageAugment() error = %v", err)
	}
	if st.question != "hello" {
		t.Fatalf("question = %q, want trimmed content", st.question)
	}
	if st.history != "" {
		t.Fatalf("history = %q, want empty", st.history)
	}
	if st.query != "hello" {
		t.Fatalf("query = %q, want bare question", st.query)
	}
}

func TestStageAugmentBlankQuestion(t *testing.T) {
	uc := NewChatUseCase(nil, nil, nil, ChatConfig{}, nil)

	st := &pipelineState{conversation: []domain.ConversationTurn{
		{Role: domain.RoleUser, Content: "   "},
	}}
	err := uc.stageAugment(context.Background(), st)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("error = %v, want ErrInvalidInput", err)
	}
}

func TestSplitKeywords(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"When was OpenAI founded?", []string{"when", "was", "openai", "founded?"}},
		{"  spaced\tout\nwords  ", []string{"spaced", "out", "words"}},
		{"", nil},
	}
	for _, tc := range cases {
		got := splitKeywords(tc.in)
		if len(got) == 0 && len(tc.want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("splitKeywords(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

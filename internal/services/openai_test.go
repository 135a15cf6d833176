package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
)

type stubChatCompleter struct {
	resp openai.ChatCompletionResponse
	err  error
	req  openai.ChatCompletionRequest
}

func (s *stubChatCompleter) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	s.req = req
	return s.resp, s.err
}

func newStubOpenAIPlanner(stub *stubChatCompleter) *OpenAIPlanner {
	p := NewOpenAIPlanner("", "gpt-4o-mini", 1, time.UTC)
	p.client = stub
	p.now = func() time.Time { return time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC) }
	return p
}

func TestOpenAIPlanner_MissingKey(t *testing.T) {
	p := NewOpenAIPlanner("", "gpt-4o-mini", 1, time.UTC)

	_, err := p.Plan(context.Background(), "anything")
	if err == nil || err.Error() != "OPENAI_API_KEY is not set" {
		t.Fatalf("expected missing key error, got %v", err)
	}
}

func TestOpenAIPlanner_Plan(t *testing.T) {
	stub := &stubChatCompleter{
		resp: openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{
					Role:    openai.ChatMessageRoleAssistant,
					Content: `{"date": "2026-10-20", "tasks": [{"title": "Write report", "category": "Deep Work", "due_at": "2026-10-20T10:00:00Z"}]}`,
				}},
			},
		},
	}
	p := newStubOpenAIPlanner(stub)

	plan, err := p.Plan(context.Background(), "Report tomorrow at 10")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.Tasks) != 1 || plan.Tasks[0].Color != "#6366F1" {
		t.Fatalf("unexpected plan: %+v", plan)
	}

	if stub.req.Model != "gpt-4o-mini" {
		t.Errorf("expected model gpt-4o-mini, got %q", stub.req.Model)
	}
	if len(stub.req.Messages) != 2 {
		t.Fatalf("expected system and user messages, got %d", len(stub.req.Messages))
	}
	if stub.req.Messages[0].Role != openai.ChatMessageRoleSystem || !strings.Contains(stub.req.Messages[0].Content, "Today is 2026-10-19.") {
		t.Errorf("unexpected system message: %+v", stub.req.Messages[0])
	}
	if stub.req.Messages[1].Content != "Report tomorrow at 10" {
		t.Errorf("expected user prompt to be forwarded verbatim, got %q", stub.req.Messages[1].Content)
	}
}

func TestOpenAIPlanner_Errors(t *testing.T) {
	p := newStubOpenAIPlanner(&stubChatCompleter{err: errors.New("quota exceeded")})
	if _, err := p.Plan(context.Background(), "x"); err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("expected wrapped API error, got %v", err)
	}

	p = newStubOpenAIPlanner(&stubChatCompleter{})
	if _, err := p.Plan(context.Background(), "x"); err == nil {
		t.Fatalf("expected error for empty choices")
	}
}

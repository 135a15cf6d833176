package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"

	"planpal-backend/internal/models"
)

// chatCompleter is the subset of *openai.Client the planner needs.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type OpenAIPlanner struct {
	client chatCompleter
	model  string
	loc    *time.Location
	now    func() time.Time
	slots  rateSlots
}

func NewOpenAIPlanner(apiKey, model string, concurrentReqs int, loc *time.Location) *OpenAIPlanner {
	p := &OpenAIPlanner{
		model: model,
		loc:   loc,
		now:   time.Now,
		slots: newRateSlots(concurrentReqs),
	}
	if apiKey != "" {
		p.client = openai.NewClient(apiKey)
	}
	return p
}

func (p *OpenAIPlanner) Plan(ctx context.Context, prompt string) (*models.Plan, error) {
	if p.client == nil {
		return nil, fmt.Errorf("OPENAI_API_KEY is not set")
	}

	if err := p.slots.acquire(ctx); err != nil {
		return nil, err
	}
	defer p.slots.release()

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: buildSystemPrompt(p.now().In(p.loc))},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("OpenAI returned no choices")
	}

	return parsePlan(resp.Choices[0].Message.Content)
}

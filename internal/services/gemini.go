package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/option"

	"planpal-backend/internal/models"
)

type GeminiPlanner struct {
	client    *genai.Client
	modelName string
	loc       *time.Location
	now       func() time.Time
	slots     rateSlots
}

// NewGeminiPlanner without an API key still succeeds; every Plan call then
// fails, the same way the OpenAI planner does.
func NewGeminiPlanner(apiKey, modelName string, concurrentReqs int, loc *time.Location) (*GeminiPlanner, error) {
	p := &GeminiPlanner{
		modelName: modelName,
		loc:       loc,
		now:       time.Now,
		slots:     newRateSlots(concurrentReqs),
	}
	if apiKey == "" {
		log.Println("⚠ GEMINI_API_KEY is not set, plan-day requests will fail")
		return p, nil
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	p.client = client
	return p, nil
}

func (p *GeminiPlanner) Close() error {
	if p.client == nil {
		return nil
	}
	return p.client.Close()
}

func (p *GeminiPlanner) Plan(ctx context.Context, prompt string) (*models.Plan, error) {
	if p.client == nil {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set")
	}

	if err := p.slots.acquire(ctx); err != nil {
		return nil, err
	}
	defer p.slots.release()

	// The system instruction carries today's date, so the model is built per call.
	model := p.client.GenerativeModel(p.modelName)
	model.SetTemperature(0.3)
	model.SetTopP(0.95)
	model.ResponseMIMEType = "application/json"
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(buildSystemPrompt(p.now().In(p.loc)))},
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("Gemini API error: %w", err)
	}

	for i, cand := range resp.Candidates {
		if cand.FinishReason != genai.FinishReasonStop {
			log.Printf("WARNING: Gemini candidate %d stopped due to %s", i, cand.FinishReason)
		}
	}

	return parsePlan(extractText(resp))
}

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}

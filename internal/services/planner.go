package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"planpal-backend/internal/config"
	"planpal-backend/internal/models"
)

const DefaultRemindMinutesBefore = 30

// Planner turns a free-text prompt into a structured day plan.
type Planner interface {
	Plan(ctx context.Context, prompt string) (*models.Plan, error)
}

var Categories = []string{
	"Deep Work",
	"Errands",
	"Fitness",
	"Admin",
	"Family",
	"Learning",
	"Rest",
	"Other",
}

var CategoryColors = map[string]string{
	"Deep Work": "#6366F1",
	"Errands":   "#10B981",
	"Fitness":   "#F43F5E",
	"Admin":     "#F59E0B",
	"Family":    "#8B5CF6",
	"Learning":  "#06B6D4",
	"Rest":      "#64748B",
	"Other":     "#94A3B8",
}

// NewPlanner builds the provider selected by LLM_PROVIDER.
func NewPlanner(cfg *config.Config) (Planner, error) {
	loc := cfg.Location()
	switch cfg.LLMProvider {
	case "openai", "":
		return NewOpenAIPlanner(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.LLMConcurrentRequests, loc), nil
	case "gemini":
		return NewGeminiPlanner(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.LLMConcurrentRequests, loc)
	case "ollama":
		return NewOllamaPlanner(cfg.OllamaHost, cfg.OllamaModel, cfg.LLMConcurrentRequests, loc)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.LLMProvider)
	}
}

func buildSystemPrompt(now time.Time) string {
	today := now.Format("2006-01-02")
	tomorrow := now.AddDate(0, 0, 1).Format("2006-01-02")

	var b strings.Builder
	b.WriteString("You are PlanPal, an everyday planning agent.\n")
	fmt.Fprintf(&b, "Today is %s.\n", today)
	fmt.Fprintf(&b, "When the user says 'tomorrow', use date %s.\n\n", tomorrow)
	b.WriteString("Return ONLY valid JSON (no markdown, no backticks).\n")
	b.WriteString("JSON shape:\n")
	b.WriteString("{\n")
	b.WriteString(`  "date": "YYYY-MM-DD",` + "\n")
	b.WriteString(`  "tasks": [` + "\n")
	b.WriteString("    {\n")
	b.WriteString(`      "title": "string",` + "\n")
	fmt.Fprintf(&b, `      "category": "one of: %s",`+"\n", strings.Join(Categories, ", "))
	b.WriteString(`      "due_at": "ISO8601 datetime",` + "\n")
	b.WriteString(`      "remind_minutes_before": number` + "\n")
	b.WriteString("    }\n")
	b.WriteString("  ]\n")
	b.WriteString("}\n\n")
	b.WriteString("Rules:\n")
	fmt.Fprintf(&b, "- If remind_minutes_before is missing, default to %d.\n", DefaultRemindMinutesBefore)
	b.WriteString("- Do not add extra keys.\n")
	return b.String()
}

// parsePlan decodes raw model output, tolerating a surrounding code fence.
func parsePlan(raw string) (*models.Plan, error) {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	if text == "" {
		return nil, fmt.Errorf("model returned an empty response")
	}

	var plan models.Plan
	if err := json.Unmarshal([]byte(text), &plan); err != nil {
		return nil, fmt.Errorf("model returned invalid JSON: %w", err)
	}

	NormalizePlan(&plan)
	return &plan, nil
}

// NormalizePlan maps unknown categories to "Other", assigns colors and fills
// in the default reminder offset.
func NormalizePlan(plan *models.Plan) {
	for i := range plan.Tasks {
		t := &plan.Tasks[i]

		category := strings.TrimSpace(t.Category)
		if _, ok := CategoryColors[category]; !ok {
			category = "Other"
		}
		t.Category = category
		t.Color = CategoryColors[category]

		if t.RemindMinutesBefore == nil {
			v := float64(DefaultRemindMinutesBefore)
			t.RemindMinutesBefore = &v
		}
	}
}

// rateSlots bounds the number of in-flight model calls.
type rateSlots chan struct{}

func newRateSlots(n int) rateSlots {
	if n <= 0 {
		n = 1
	}
	slots := make(rateSlots, n)
	for i := 0; i < n; i++ {
		slots <- struct{}{}
	}
	return slots
}

func (s rateSlots) acquire(ctx context.Context) error {
	select {
	case <-s:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(2 * time.Minute):
		return fmt.Errorf("timeout waiting for LLM rate slot")
	}
}

func (s rateSlots) release() {
	s <- struct{}{}
}

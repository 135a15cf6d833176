package services

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/JexSrs/go-ollama"
	log "github.com/sirupsen/logrus"

	"planpal-backend/internal/models"
)

type OllamaPlanner struct {
	client *ollama.Ollama
	model  string
	loc    *time.Location
	now    func() time.Time
	slots  rateSlots
}

func NewOllamaPlanner(host, model string, concurrentReqs int, loc *time.Location) (*OllamaPlanner, error) {
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama host: %w", err)
	}

	log.WithFields(log.Fields{"host": host, "model": model}).Info("Using Ollama planner")

	return &OllamaPlanner{
		client: ollama.New(*u),
		model:  model,
		loc:    loc,
		now:    time.Now,
		slots:  newRateSlots(concurrentReqs),
	}, nil
}

func (p *OllamaPlanner) Plan(ctx context.Context, prompt string) (*models.Plan, error) {
	if err := p.slots.acquire(ctx); err != nil {
		return nil, err
	}
	defer p.slots.release()

	// go-ollama takes no context; the slot still bounds concurrency.
	res, err := p.client.Generate(
		p.client.Generate.WithModel(p.model),
		p.client.Generate.WithSystem(buildSystemPrompt(p.now().In(p.loc))),
		p.client.Generate.WithPrompt(prompt),
	)
	if err != nil {
		return nil, fmt.Errorf("Ollama API error: %w", err)
	}
	if !res.Done {
		return nil, fmt.Errorf("Ollama response was not complete")
	}

	return parsePlan(res.Response)
}

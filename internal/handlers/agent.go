package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"planpal-backend/internal/models"
)

const maxPlanDayBody = 64 << 10

type dayPlanner interface {
	PlanDay(ctx context.Context, prompt string) (*models.PlanDayResponse, error)
}

type AgentHandler struct {
	agent dayPlanner
}

func NewAgentHandler(agent dayPlanner) *AgentHandler {
	return &AgentHandler{agent: agent}
}

// PlanDay handles POST /api/agent/plan-day/.
func (h *AgentHandler) PlanDay(w http.ResponseWriter, r *http.Request) {
	var req models.PlanDayRequest

	// A body that is not a JSON object with a string prompt counts as a missing prompt.
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPlanDayBody))
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResp("PAYLOAD_TOO_LARGE", "Prompt is too large (max 64 KB)", r))
		return
	}
	if err == nil && len(body) > 0 {
		if json.Unmarshal(body, &req) != nil {
			req = models.PlanDayRequest{}
		}
	}

	res, err := h.agent.PlanDay(r.Context(), req.Prompt)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// Package planpal is the client side of the PlanPal agent API.
package planpal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"planpal-backend/internal/config"
	"planpal-backend/internal/models"
)

const PlanDayPath = "/api/agent/plan-day/"

const defaultErrorMessage = "Request failed"

// Client posts prompts to a PlanPal server. It holds no per-call state and is
// safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func NewClient(cfg config.ClientConfig, opts ...Option) *Client {
	c := &Client{
		baseURL:    cfg.BaseURL,
		httpClient: http.DefaultClient,
	}
	if cfg.HTTPTimeout > 0 {
		c.httpClient = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// APIError is returned for any non-2xx response whose body parsed as JSON.
// Error() is the body's "error" string, or "Request failed" when there is none.
type APIError struct {
	StatusCode int
	Message    string
	Body       interface{}
}

func (e *APIError) Error() string {
	return e.Message
}

// DecodeError is returned when the response body is not valid JSON,
// whatever the status code.
type DecodeError struct {
	StatusCode int
	Err        error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("invalid JSON in plan-day response (status %d): %v", e.StatusCode, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// PlanDay sends prompt to the plan-day endpoint and returns the decoded JSON body.
func (c *Client) PlanDay(ctx context.Context, prompt string) (interface{}, error) {
	var data interface{}
	if err := c.do(ctx, prompt, &data); err != nil {
		return nil, err
	}
	return data, nil
}

// PlanDayResult is PlanDay decoded into the server's response shape.
func (c *Client) PlanDayResult(ctx context.Context, prompt string) (*models.PlanDayResponse, error) {
	var out models.PlanDayResponse
	if err := c.do(ctx, prompt, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, prompt string, out interface{}) error {
	body, err := json.Marshal(models.PlanDayRequest{Prompt: prompt})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+PlanDayPath, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	// The body is parsed before the status is looked at.
	var data interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return &DecodeError{StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(data),
			Body:       data,
		}
	}

	if p, ok := out.(*interface{}); ok {
		*p = data
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &DecodeError{StatusCode: resp.StatusCode, Err: err}
	}
	return nil
}

func errorMessage(data interface{}) string {
	obj, ok := data.(map[string]interface{})
	if !ok {
		return defaultErrorMessage
	}
	msg, ok := obj["error"].(string)
	if !ok || msg == "" {
		return defaultErrorMessage
	}
	return msg
}

package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// InferenceConfig holds configuration for the analysis API client
type InferenceConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// InferenceClient calls the analysis API shared by all agents. The inference
// models themselves are opaque: each agent names a task and gets a JSON
// object back.
type InferenceClient struct {
	client *resty.Client
	model  string
}

// NewInferenceClient creates a new inference client
func NewInferenceClient(cfg *InferenceConfig) *InferenceClient {
	client := resty.New()
	client.SetBaseURL(cfg.BaseURL)
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	return &InferenceClient{
		client: client,
		model:  cfg.Model,
	}
}

// Model returns the model name being used
func (c *InferenceClient) Model() string {
	return c.model
}

// Analysis API request/response structures
type analyzeRequest struct {
	Task     string                 `json:"task"`
	Model    string                 `json:"model"`
	Text     string                 `json:"text"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

type analyzeResponse struct {
	Result map[string]interface{} `json:"result"`
	Detail string                 `json:"detail,omitempty"`
}

// Analyze runs one named analysis task against the given text
func (c *InferenceClient) Analyze(ctx context.Context, task, text string, metadata map[string]interface{}) (map[string]interface{}, error) {
	req := analyzeRequest{
		Task:     task,
		Model:    c.model,
		Text:     text,
		Metadata: metadata,
	}

	var resp analyzeResponse
	httpResp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		Post("/analyze")

	if err != nil {
		return nil, fmt.Errorf("failed to call analysis API: %w", err)
	}

	if httpResp.StatusCode() != 200 {
		if resp.Detail != "" {
			return nil, fmt.Errorf("analysis API error: %s", resp.Detail)
		}
		return nil, fmt.Errorf("analysis API error: status %d", httpResp.StatusCode())
	}

	if resp.Result == nil {
		return nil, fmt.Errorf("analysis API returned no result for task %s", task)
	}

	return resp.Result, nil
}

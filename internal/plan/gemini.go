package plan

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"letivo/internal/config"
	appLog "letivo/internal/log"
)

// ErrNoAPIKey is returned before any network traffic when generation is not
// configured.
var ErrNoAPIKey = errors.New("generative API key not configured")

// Client is a single-shot client for the generative-language REST API. One
// user action maps to exactly one request: no streaming, no retry, no
// concurrent de-duplication.
type Client struct {
	endpoint string
	model    string
	apiKey   string
	client   *http.Client
}

// NewClient builds a Client from configuration.
func NewClient(cfg config.PlanConfig) *Client {
	return &Client{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		model:    cfg.Model,
		apiKey:   cfg.APIKey,
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
	}
}

// generateContent request/response wire shapes, reduced to the fields used.
type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate sends the assembled prompt and returns the model's prose.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", ErrNoAPIKey
	}

	payload, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.endpoint, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	appLog.Info("plan generation request", "model", c.model, "prompt_bytes", len(prompt))

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	defer resp.Body.Close()

	var body generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("generate: decode response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if body.Error != nil && body.Error.Message != "" {
			return "", fmt.Errorf("generate: %s", body.Error.Message)
		}
		return "", fmt.Errorf("generate: %s", resp.Status)
	}

	if len(body.Candidates) == 0 {
		return "", errors.New("generate: empty response")
	}

	var b strings.Builder
	for _, p := range body.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", errors.New("generate: candidate carried no text")
	}

	appLog.Info("plan generation completed", "model", c.model, "text_bytes", len(text))
	return text, nil
}

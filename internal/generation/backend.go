package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/wordgarden/gateway/internal/config"
)

const maxResponseBytes = 1 << 20

// Backend produces text for a prompt.
type Backend interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// WorkersAI calls a text-generation model through the Cloudflare Workers AI
// REST API.
type WorkersAI struct {
	endpoint string
	token    string
	client   *http.Client
}

func NewWorkersAI(cfg config.AIConfig) *WorkersAI {
	base := strings.TrimRight(cfg.BaseURL, "/")
	return &WorkersAI{
		endpoint: fmt.Sprintf("%s/accounts/%s/ai/run/%s", base, cfg.AccountID, cfg.Model),
		token:    cfg.APIToken,
		client:   &http.Client{Timeout: cfg.Timeout},
	}
}

type runRequest struct {
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

type runResponse struct {
	Result struct {
		Response string `json:"response"`
	} `json:"result"`
	Success bool `json:"success"`
	Errors  []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

func (b *WorkersAI) Generate(ctx context.Context, req Request) (string, error) {
	payload, err := json.Marshal(runRequest{
		Prompt:      req.Prompt,
		MaxTokens:   req.maxTokens(),
		Temperature: req.temperature(),
	})
	if err != nil {
		return "", fmt.Errorf("encoding run request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("building run request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+b.token)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("calling model: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("reading model response: %w", err)
	}

	var out runResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decoding model response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || !out.Success {
		msg := http.StatusText(resp.StatusCode)
		if len(out.Errors) > 0 {
			msg = out.Errors[0].Message
		}
		return "", fmt.Errorf("model returned status %d: %s", resp.StatusCode, msg)
	}
	return out.Result.Response, nil
}

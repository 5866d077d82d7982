package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/craftled/contentops/internal/config"
)

const anthropicVersion = "2023-06-01"

// Client talks to an Anthropic-compatible messages API and its batch
// endpoint. It implements both Provider and BatchAPI.
type Client struct {
	endpoint      string
	batchEndpoint string
	apiKey        string
	model         string
	maxTokens     int
	maxRetries    int
	maxRetryDelay time.Duration
	httpClient    *http.Client
}

var (
	_ Provider = (*Client)(nil)
	_ BatchAPI = (*Client)(nil)
)

func NewClient(env config.AIEnv) *Client {
	return &Client{
		endpoint:      env.Endpoint,
		batchEndpoint: env.BatchEndpoint,
		apiKey:        env.APIKey,
		model:         env.Model,
		maxTokens:     4096,
		maxRetries:    env.MaxRetries,
		maxRetryDelay: env.MaxRetryDelay,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

type messageParams struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type messageResponse struct {
	Content []contentBlock `json:"content"`
}

func (c *Client) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("ai client misconfigured: missing api key")
	}
	body, err := json.Marshal(c.params(systemPrompt, userPrompt))
	if err != nil {
		return "", fmt.Errorf("marshal message params: %w", err)
	}
	raw, err := c.do(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return "", err
	}
	var resp messageResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("unmarshal message response: %w", err)
	}
	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}

func (c *Client) params(systemPrompt, userPrompt string) messageParams {
	return messageParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    systemPrompt,
		Messages:  []message{{Role: "user", Content: userPrompt}},
	}
}

type batchRequestEntry struct {
	CustomID string        `json:"custom_id"`
	Params   messageParams `json:"params"`
}

type batchEnvelope struct {
	ID               string        `json:"id"`
	ProcessingStatus string        `json:"processing_status"`
	RequestCounts    RequestCounts `json:"request_counts"`
	ResultsURL       string        `json:"results_url"`
}

func (e batchEnvelope) toStatus() BatchStatus {
	return BatchStatus{
		BatchID:       e.ID,
		Status:        e.ProcessingStatus,
		RequestCounts: e.RequestCounts,
		ResultsURL:    e.ResultsURL,
	}
}

func (c *Client) SubmitBatch(ctx context.Context, requests []BatchRequest) (string, error) {
	if len(requests) == 0 {
		return "", fmt.Errorf("empty batch")
	}
	entries := make([]batchRequestEntry, len(requests))
	for i, req := range requests {
		entries[i] = batchRequestEntry{
			CustomID: req.CustomID,
			Params:   c.params(req.SystemPrompt, req.UserPrompt),
		}
	}
	body, err := json.Marshal(map[string]any{"requests": entries})
	if err != nil {
		return "", fmt.Errorf("marshal batch: %w", err)
	}
	raw, err := c.do(ctx, http.MethodPost, c.batchEndpoint, body)
	if err != nil {
		return "", err
	}
	var env batchEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", fmt.Errorf("unmarshal batch response: %w", err)
	}
	return env.ID, nil
}

func (c *Client) GetBatchStatus(ctx context.Context, batchID string) (*BatchStatus, error) {
	raw, err := c.do(ctx, http.MethodGet, c.batchEndpoint+"/"+batchID, nil)
	if err != nil {
		return nil, err
	}
	var env batchEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("unmarshal batch status: %w", err)
	}
	status := env.toStatus()
	return &status, nil
}

type resultLine struct {
	CustomID string `json:"custom_id"`
	Result   struct {
		Type    string `json:"type"`
		Message struct {
			Content []contentBlock `json:"content"`
		} `json:"message"`
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	} `json:"result"`
}

// FetchResults downloads the results payload, one JSON object per line.
func (c *Client) FetchResults(ctx context.Context, resultsURL string) ([]BatchResult, error) {
	raw, err := c.do(ctx, http.MethodGet, resultsURL, nil)
	if err != nil {
		return nil, err
	}
	var out []BatchResult
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var rl resultLine
		if err := json.Unmarshal([]byte(line), &rl); err != nil {
			return nil, fmt.Errorf("unmarshal result line: %w", err)
		}
		res := BatchResult{
			CustomID: rl.CustomID,
			Type:     rl.Result.Type,
			Error:    rl.Result.Error.Message,
		}
		var sb strings.Builder
		for _, block := range rl.Result.Message.Content {
			if block.Type == "text" {
				sb.WriteString(block.Text)
			}
		}
		res.Text = sb.String()
		out = append(out, res)
	}
	return out, nil
}

func (c *Client) CancelBatch(ctx context.Context, batchID string) error {
	_, err := c.do(ctx, http.MethodPost, c.batchEndpoint+"/"+batchID+"/cancel", nil)
	return err
}

func (c *Client) ListBatches(ctx context.Context, limit int) ([]BatchStatus, error) {
	url := c.batchEndpoint
	if limit > 0 {
		url = fmt.Sprintf("%s?limit=%d", url, limit)
	}
	raw, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	var listing struct {
		Data []batchEnvelope `json:"data"`
	}
	if err := json.Unmarshal(raw, &listing); err != nil {
		return nil, fmt.Errorf("unmarshal batch listing: %w", err)
	}
	out := make([]BatchStatus, len(listing.Data))
	for i, env := range listing.Data {
		out[i] = env.toStatus()
	}
	return out, nil
}

// do issues one request, retrying with exponential backoff and jitter only on
// rate-limit responses. Other failures propagate immediately.
func (c *Client) do(ctx context.Context, method, url string, body []byte) ([]byte, error) {
	bo := backoff.NewExponentialBackOff()
	bo.MaxInterval = c.maxRetryDelay
	bo.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(c.maxRetries)), ctx)

	return backoff.RetryWithData(func() ([]byte, error) {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("new request: %w", err))
		}
		req.Header.Set("x-api-key", c.apiKey)
		req.Header.Set("anthropic-version", anthropicVersion)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("ai request: %w", err))
		}
		defer resp.Body.Close()

		payload, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("read ai response: %w", err))
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			slog.WarnContext(ctx, "ai provider rate limited, backing off", "url", url)
			return nil, fmt.Errorf("ai rate limited: %s", resp.Status)
		}
		if resp.StatusCode >= http.StatusBadRequest {
			msg := strings.TrimSpace(string(payload))
			if len(msg) > 512 {
				msg = msg[:512]
			}
			return nil, backoff.Permanent(fmt.Errorf("ai error %s: %s", resp.Status, msg))
		}
		return payload, nil
	}, policy)
}

// Package shield implements review.Shield against an external
// "prompt shields" HTTP classifier.
package shield

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sentineltrace/guardctl/internal/domain/review"
)

const (
	requestTimeout      = 10 * time.Second
	maxResponseBodySize = 1 * 1024 * 1024
	dryRunProbeText     = "ping"
)

// Client is a thin HTTP client for a vendor-specific prompt-shield
// classifier. The wire contract is treated as a black box: POST a JSON
// body carrying the text to check, expect a JSON body carrying the
// verdict.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// New builds a Client bound to endpoint, authenticating with apiKey as a
// bearer token. An empty endpoint makes Configured report false.
func New(endpoint, apiKey string) *Client {
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: requestTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
			},
		},
	}
}

// Configured reports whether a shield endpoint has been set.
func (c *Client) Configured() bool {
	return c.endpoint != ""
}

type checkRequest struct {
	Text string `json:"text"`
}

type checkResponse struct {
	AttackDetected bool   `json:"attackDetected"`
	Detail         string `json:"detail"`
}

// Check sends text to the shield endpoint. It never returns an error: a
// network failure, non-2xx status, timeout, or malformed response is
// reported as ShieldResult{Failed: true}, carrying the failure description
// in Detail so the caller can decide between fail-open and fail-closed
// handling.
func (c *Client) Check(ctx context.Context, text string) review.ShieldResult {
	if !c.Configured() {
		return review.ShieldResult{Detail: "shield not configured"}
	}

	body, err := json.Marshal(checkRequest{Text: text})
	if err != nil {
		return review.ShieldResult{Failed: true, Detail: fmt.Sprintf("encode request: %v", err)}
	}

	result, err := c.call(ctx, body)
	if err != nil {
		if ctx.Err() != nil {
			return review.ShieldResult{Failed: true, Detail: "timeout"}
		}
		return review.ShieldResult{Failed: true, Detail: err.Error()}
	}
	return result
}

// DryRun sends a benign probe, used by admin tooling to verify the
// endpoint and credentials before relying on the shield for real traffic.
func (c *Client) DryRun(ctx context.Context) review.ShieldResult {
	return c.Check(ctx, dryRunProbeText)
}

func (c *Client) call(ctx context.Context, body []byte) (review.ShieldResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return review.ShieldResult{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return review.ShieldResult{}, fmt.Errorf("request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return review.ShieldResult{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return review.ShieldResult{}, fmt.Errorf("shield returned status %d", resp.StatusCode)
	}

	var parsed checkResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return review.ShieldResult{}, fmt.Errorf("decode response: %w", err)
	}
	return review.ShieldResult{AttackDetected: parsed.AttackDetected, Detail: parsed.Detail}, nil
}

var _ review.Shield = (*Client)(nil)

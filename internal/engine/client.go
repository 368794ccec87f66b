// Package engine is the client for the external evaluation engine: an opaque
// HTTP endpoint taking a prompt and answering in one of several JSON shapes.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Request is the engine's evaluation request.
type Request struct {
	Prompt string `json:"prompt"`
	Mem    bool   `json:"mem,omitempty"`
	Ast    bool   `json:"ast,omitempty"`
}

// Client calls the evaluation engine endpoint.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates an engine client. apiKey may be empty; when set it is
// sent as a Bearer token.
func NewClient(endpoint, apiKey string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Evaluate posts the request and renders the engine's answer as text. The
// response body is decoded exactly once here; downstream code only ever sees
// the rendered string.
func (c *Client) Evaluate(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("call engine: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read engine response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("engine returned status %d", resp.StatusCode)
	}

	return Render(data), nil
}

// preferredKeys is the ordered key set rendered as "key: value" lines when no
// direct text field is present.
var preferredKeys = [...]string{"rc", "phase", "value", "ast", "text"}

// Render turns an engine response body into display text. The known shapes
// are tried in order: {"text": ...}, {"result": {"text": ...}}, {"output":
// ...}, then a key:value rendering of the preferred keys over the result
// object (or the top-level object), and finally the raw JSON value.
func Render(data []byte) string {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return string(data)
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return stringify(v)
	}

	if t, ok := obj["text"]; ok && t != nil {
		return stringify(t)
	}
	if res, ok := obj["result"].(map[string]any); ok {
		if t, ok := res["text"]; ok && t != nil {
			return stringify(t)
		}
	}
	if out, ok := obj["output"]; ok && out != nil {
		return stringify(out)
	}

	view := obj
	if res, ok := obj["result"].(map[string]any); ok {
		view = res
	}
	var buf bytes.Buffer
	for _, k := range preferredKeys {
		if val, ok := view[k]; ok && val != nil {
			if buf.Len() > 0 {
				buf.WriteByte('\n')
			}
			fmt.Fprintf(&buf, "%s: %s", k, stringify(val))
		}
	}
	if buf.Len() > 0 {
		return buf.String()
	}

	return stringify(v)
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

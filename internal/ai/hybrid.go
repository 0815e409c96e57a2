package ai

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// HybridClient talks to the structured hybrid endpoint, which combines
// retrieval over the case data with a structured query before composing the
// answer remotely. Its successful answers are shown to the operator
// verbatim.
type HybridClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewHybridClient constructs a HybridClient with a default transport timeout
// when hc is nil.
func NewHybridClient(baseURL string, hc *http.Client) *HybridClient {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &HybridClient{BaseURL: baseURL, HTTPClient: hc}
}

// Ask submits the question and returns the remote answer. Any transport
// failure, non-2xx status, or non-success envelope is an error; the
// resolution controller treats it as a signal to advance the chain.
func (c *HybridClient) Ask(ctx context.Context, question, apiKey string) (string, error) {
	env, err := postJSON(ctx, c.HTTPClient, c.BaseURL+"/v1/ask", apiKey, map[string]string{
		"question": question,
	})
	if err != nil {
		return "", err
	}
	if !env.Success || env.Response == "" {
		return "", fmt.Errorf("%w: %s", ErrRemoteDeclined, env.Error)
	}
	return env.Response, nil
}

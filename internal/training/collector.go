// Package training implements the client for the external training-data
// collaborator. Feedback verdicts are forwarded fire-and-forget: the engine
// records them locally first and a forwarding failure is logged, never
// surfaced to the operator.
package training

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Collector posts rated question/answer pairs to the training endpoint.
type Collector struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewCollector constructs a Collector with a default transport timeout when
// hc is nil.
func NewCollector(baseURL string, hc *http.Client) *Collector {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Collector{BaseURL: baseURL, HTTPClient: hc}
}

type feedbackPayload struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Verdict  string `json:"verdict"`
}

// SaveFeedback forwards one verdict. Callers treat the error as advisory:
// the verdict is already persisted locally by the time this runs.
func (c *Collector) SaveFeedback(ctx context.Context, question, answer, verdict string) error {
	if c.BaseURL == "" {
		return nil
	}
	body, err := json.Marshal(feedbackPayload{Question: question, Answer: answer, Verdict: verdict})
	if err != nil {
		return fmt.Errorf("encode feedback: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/feedback", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("training collaborator status %d", resp.StatusCode)
	}
	return nil
}

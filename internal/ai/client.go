package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/visaflow/crm-backend/internal/snapshot"
)

// envelope is the wire result shared by both remote collaborators.
type envelope struct {
	Success  bool   `json:"success"`
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
}

// ErrRemoteDeclined is returned when the collaborator answered with a
// well-formed non-success envelope.
var ErrRemoteDeclined = errors.New("remote analysis declined")

// retryableStatus reports whether an HTTP status is worth retrying.
func retryableStatus(code int) bool {
	return code >= 500 || code == http.StatusTooManyRequests
}

// newRetryPolicy bounds retries for one remote call: short exponential
// backoff, a few seconds in total, so a flapping collaborator cannot stall
// the resolution chain past the transport timeout.
func newRetryPolicy(ctx context.Context) backoff.BackOffContext {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxInterval = 2 * time.Second
	bo.MaxElapsedTime = 6 * time.Second
	return backoff.WithContext(bo, ctx)
}

// postJSON posts body to url with the API key header and decodes the result
// envelope, retrying transport errors and retryable statuses.
func postJSON(ctx context.Context, hc *http.Client, url, apiKey string, body any) (envelope, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return envelope{}, fmt.Errorf("encode request: %w", err)
	}

	var env envelope
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		if apiKey != "" {
			req.Header.Set("X-AI-Key", apiKey)
		}

		resp, err := hc.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if retryableStatus(resp.StatusCode) {
			io.Copy(io.Discard, resp.Body)
			return fmt.Errorf("remote status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			io.Copy(io.Discard, resp.Body)
			return backoff.Permanent(fmt.Errorf("remote status %d", resp.StatusCode))
		}
		if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
			return backoff.Permanent(fmt.Errorf("decode response: %w", err))
		}
		return nil
	}

	if err := backoff.Retry(op, newRetryPolicy(ctx)); err != nil {
		return envelope{}, err
	}
	return env, nil
}

// ClassicClient talks to the general-purpose remote model endpoint.
type ClassicClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClassicClient constructs a ClassicClient with a sane default transport
// timeout when hc is nil.
func NewClassicClient(baseURL string, hc *http.Client) *ClassicClient {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &ClassicClient{BaseURL: baseURL, HTTPClient: hc}
}

// analyzeRequest is the classic strategy's wire payload: the raw question
// plus a compact serialization of the snapshot.
type analyzeRequest struct {
	Question string           `json:"question"`
	Provider Provider         `json:"provider"`
	Summary  snapshot.Summary `json:"summary"`
	Cases    int              `json:"cases"`
	Staff    int              `json:"staff"`
}

// Analyze sends the question and serialized snapshot to the remote model and
// returns its answer. Non-success envelopes and transport failures are
// returned as errors; the caller treats any error as a fallback signal.
func (c *ClassicClient) Analyze(ctx context.Context, question string, snap *snapshot.Snapshot, cfg Config) (string, error) {
	if snap == nil {
		snap = &snapshot.Snapshot{}
	}
	env, err := postJSON(ctx, c.HTTPClient, c.BaseURL+"/v1/analyze", cfg.APIKey, analyzeRequest{
		Question: question,
		Provider: cfg.Provider,
		Summary:  snap.Summary,
		Cases:    len(snap.Cases),
		Staff:    len(snap.Staff),
	})
	if err != nil {
		return "", err
	}
	if !env.Success || env.Response == "" {
		return "", fmt.Errorf("%w: %s", ErrRemoteDeclined, env.Error)
	}
	return env.Response, nil
}

// TestConnection verifies the provider credentials. Used only by the
// settings UI, never by the resolution path.
func (c *ClassicClient) TestConnection(ctx context.Context, apiKey string, provider Provider) error {
	env, err := postJSON(ctx, c.HTTPClient, c.BaseURL+"/v1/test", apiKey, map[string]string{
		"provider": string(provider),
	})
	if err != nil {
		return err
	}
	if !env.Success {
		return fmt.Errorf("%w: %s", ErrRemoteDeclined, env.Error)
	}
	return nil
}

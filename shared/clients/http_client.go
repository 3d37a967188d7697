package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"meetdesk-backend/shared/metrics"
)

const maxErrorBody = 4 << 10

// ProviderError is a non-2xx answer from an external provider
type ProviderError struct {
	Provider   string
	Operation  string
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s %s returned status %d: %s", e.Provider, e.Operation, e.StatusCode, e.Body)
}

// NewHTTPClient returns an http.Client whose transport is traced with otelhttp
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// apiCaller sends JSON requests to one provider and records their outcome
type apiCaller struct {
	provider   string
	httpClient *http.Client
	metrics    *metrics.Metrics
}

// do sends payload (if non-nil) as JSON and decodes a 2xx body into out (if non-nil)
func (a *apiCaller) do(ctx context.Context, operation, method, url string, payload interface{}, out interface{}, prepare func(*http.Request)) error {
	start := time.Now()
	status := "error"
	defer func() {
		a.metrics.ObserveExternal(a.provider, operation, status, time.Since(start))
	}()

	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal %s request: %w", operation, err)
		}
		body = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", operation, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if prepare != nil {
		prepare(req)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &ProviderError{
			Provider:   a.provider,
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Body:       string(raw),
		}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode %s response: %w", operation, err)
		}
	}

	status = "ok"
	return nil
}

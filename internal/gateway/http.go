package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/tildaslashalef/incidentdeck/internal/config"
	"github.com/tildaslashalef/incidentdeck/internal/loggy"
)

// HTTPTransport delivers commands to a remote core service as JSON POSTs
// against /v1/command/<op>. A success body is returned verbatim; an error
// body is handed to Normalize untouched, whatever shape it arrived in.
type HTTPTransport struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *loggy.Logger
}

// NewHTTPTransport creates a transport for a remote core service
func NewHTTPTransport(cfg config.GatewayConfig, logger *loggy.Logger) *HTTPTransport {
	httpClient := &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	return &HTTPTransport{
		baseURL:    cfg.Endpoint,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.RateBurst),
		logger:     logger,
	}
}

// Roundtrip implements Transport.
func (t *HTTPTransport) Roundtrip(ctx context.Context, op string, req any) (json.RawMessage, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	var bodyReader io.Reader
	if req != nil {
		body, err := json.Marshal(req)
		if err != nil {
			return nil, fmt.Errorf("marshaling request for %s: %w", op, err)
		}
		bodyReader = bytes.NewReader(body)
	}

	url := fmt.Sprintf("%s/v1/command/%s", t.baseURL, op)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating request for %s: %w", op, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if requestID := loggy.GetRequestID(ctx); requestID != "" {
		httpReq.Header.Set("X-Request-ID", requestID)
	}

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", op, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response for %s: %w", op, err)
	}

	if resp.StatusCode != http.StatusOK {
		// The body may be a structured error in any of the wire shapes
		// Normalize understands. Pass it through untouched.
		return nil, Normalize(payload)
	}

	return payload, nil
}

// WaitReady probes the core service until it answers or the configured
// ready timeout elapses. Used once at startup; command calls themselves
// are never retried.
func (t *HTTPTransport) WaitReady(ctx context.Context, readyTimeout time.Duration) error {
	probe := func() error {
		probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()

		req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, t.baseURL+"/v1/health", nil)
		if err != nil {
			return backoff.Permanent(err)
		}

		resp, err := t.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("core service not ready: status %d", resp.StatusCode)
		}
		return nil
	}

	expo := backoff.NewExponentialBackOff()
	expo.MaxElapsedTime = readyTimeout

	if err := backoff.Retry(probe, backoff.WithContext(expo, ctx)); err != nil {
		return fmt.Errorf("core service did not become ready within %s: %w", readyTimeout, err)
	}

	t.logger.Info("Core service ready", "endpoint", t.baseURL)
	return nil
}

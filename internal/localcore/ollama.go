package localcore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/cenkalti/backoff/v4"

	"github.com/tildaslashalef/incidentdeck/internal/config"
	"github.com/tildaslashalef/incidentdeck/internal/gateway"
	"github.com/tildaslashalef/incidentdeck/internal/loggy"
)

// OllamaClient talks to a local Ollama server for the evidence index:
// health probing and embedding generation.
type OllamaClient struct {
	cfg        config.OllamaConfig
	logger     *loggy.Logger
	httpClient *http.Client
}

// NewOllamaClient creates an Ollama client from config
func NewOllamaClient(cfg config.OllamaConfig, logger *loggy.Logger) *OllamaClient {
	return &OllamaClient{
		cfg:    cfg,
		logger: logger,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type ollamaVersionResponse struct {
	Version string `json:"version"`
}

type ollamaEmbeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbeddingResponse struct {
	Embedding []float64 `json:"embedding"`
	Error     string    `json:"error,omitempty"`
}

// Health probes the server version endpoint, retrying transient failures
// with exponential backoff up to the configured retry count.
func (c *OllamaClient) Health(ctx context.Context) (*gateway.HealthStatus, error) {
	var version ollamaVersionResponse

	probe := func() error {
		return c.makeRequest(ctx, http.MethodGet, "/api/version", nil, &version)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(c.cfg.MaxRetries)),
		ctx,
	)
	if err := backoff.Retry(probe, policy); err != nil {
		return nil, gateway.NewCommandError("AI_OLLAMA_UNHEALTHY", "Failed to reach Ollama").
			WithDetails(err.Error()).
			WithRetryable(true)
	}

	return &gateway.HealthStatus{
		OK:      true,
		Message: fmt.Sprintf("ollama %s, embedding model %s", version.Version, c.cfg.EmbeddingModel),
	}, nil
}

// Embed generates an embedding vector for text using the configured
// embedding model.
func (c *OllamaClient) Embed(ctx context.Context, text string) ([]float64, error) {
	req := ollamaEmbeddingRequest{Model: c.cfg.EmbeddingModel, Prompt: text}
	var resp ollamaEmbeddingResponse
	if err := c.makeRequest(ctx, http.MethodPost, "/api/embeddings", req, &resp); err != nil {
		return nil, fmt.Errorf("generating embedding: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("model error: %s", resp.Error)
	}
	return resp.Embedding, nil
}

func (c *OllamaClient) makeRequest(ctx context.Context, method, path string, reqBody any, respBody any) error {
	url := c.cfg.Endpoint + path

	var bodyReader io.Reader
	if reqBody != nil {
		bodyBytes, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewBuffer(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(data))
	}
	if respBody != nil {
		if err := json.Unmarshal(data, respBody); err != nil {
			return fmt.Errorf("unmarshaling response: %w", err)
		}
	}
	return nil
}

package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultRequestTimeout = 30 * time.Second

// OpenAIConfig configures the OpenAI-compatible embeddings client
type OpenAIConfig struct {
	Endpoint   string
	APIKey     string
	Model      string
	Dimensions int
	Timeout    time.Duration
	UserAgent  string
}

// OpenAIProvider generates embeddings through an OpenAI-compatible HTTP API
type OpenAIProvider struct {
	client *http.Client
	config OpenAIConfig
}

var _ Provider = (*OpenAIProvider)(nil)

type embeddingRequest struct {
	Input      []string `json:"input"`
	Model      string   `json:"model"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// NewOpenAIProvider creates a new provider client
func NewOpenAIProvider(config OpenAIConfig) *OpenAIProvider {
	if config.Timeout <= 0 {
		config.Timeout = defaultRequestTimeout
	}

	return &OpenAIProvider{
		client: &http.Client{Timeout: config.Timeout},
		config: config,
	}
}

// Embed generates an embedding for a single text
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	reqBody := embeddingRequest{
		Input: []string{text},
		Model: p.config.Model,
	}
	if p.config.Dimensions > 0 {
		reqBody.Dimensions = p.config.Dimensions
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.config.APIKey)
	if p.config.UserAgent != "" {
		req.Header.Set("User-Agent", p.config.UserAgent)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call embedding provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("embedding provider returned status %d: %s", resp.StatusCode, string(data))
	}

	var result embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode embedding response: %w", err)
	}

	if len(result.Data) == 0 || len(result.Data[0].Embedding) == 0 {
		return nil, ErrEmptyEmbedding
	}

	return result.Data[0].Embedding, nil
}

// Dimensions returns the configured embedding dimension
func (p *OpenAIProvider) Dimensions() int {
	return p.config.Dimensions
}

// ModelName returns the model identifier
func (p *OpenAIProvider) ModelName() string {
	return p.config.Model
}

package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/upb/insight-rag/services"
)

const (
	DefaultModel     = "sentence-transformers/all-MiniLM-L6-v2"
	DefaultDimension = 384
)

// Config holds API settings for an OpenAI-compatible /embeddings endpoint.
type Config struct {
	BaseURL   string
	APIKey    string
	Model     string
	Dimension int
	Timeout   time.Duration
}

// Client turns text into fixed-dimension vectors.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// New creates an embedding client
func New(cfg Config) *Client {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = DefaultDimension
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Dimension returns the configured vector length
func (c *Client) Dimension() int {
	return c.cfg.Dimension
}

// Model returns the embedding model name
func (c *Client) Model() string {
	return c.cfg.Model
}

// Embed returns the embedding vector for the given text. Empty text is
// sent as-is; the model decides what it means.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.request(ctx, text, 1)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch returns one embedding per input text, in input order.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return c.request(ctx, texts, len(texts))
}

func (c *Client) request(ctx context.Context, input any, want int) ([][]float32, error) {
	bodyBytes, err := json.Marshal(map[string]any{
		"model": c.cfg.Model,
		"input": input,
	})
	if err != nil {
		return nil, services.WrapEmbedding("marshal embedding request failed", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/embeddings", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, services.WrapEmbedding("build embedding request failed", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.WrapEmbedding("embedding request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.WrapEmbedding("read embedding response failed", err)
	}
	if resp.StatusCode >= 300 {
		return nil, services.WrapEmbedding("embedding request rejected",
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))))
	}

	var parsed struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, services.WrapEmbedding("parse embedding json failed", err)
	}
	if len(parsed.Data) != want {
		return nil, services.WrapEmbedding("unexpected embedding count",
			fmt.Errorf("got %d embeddings for %d inputs", len(parsed.Data), want))
	}

	out := make([][]float32, want)
	for i, d := range parsed.Data {
		pos := d.Index
		if pos < 0 || pos >= want || out[pos] != nil {
			pos = i
		}
		if len(d.Embedding) != c.cfg.Dimension {
			return nil, services.NewDomainError(services.ErrorTypeEmbedding, "embedding dimension mismatch",
				fmt.Errorf("expected %d dimensions, got %d", c.cfg.Dimension, len(d.Embedding))).
				WithDetail("expected", c.cfg.Dimension).
				WithDetail("got", len(d.Embedding))
		}
		out[pos] = d.Embedding
	}

	return out, nil
}

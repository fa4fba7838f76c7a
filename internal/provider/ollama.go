package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultOllamaBaseURL is the standard local Ollama endpoint.
const DefaultOllamaBaseURL = "http://localhost:11434"

// Ollama talks to a local Ollama server. It implements both TextGenerator
// and EmbeddingGenerator; embedding dimension depends on the model.
type Ollama struct {
	baseURL string
	client  *http.Client
}

// NewOllama creates an Ollama adapter. An empty baseURL uses the default
// local endpoint.
func NewOllama(baseURL string) *Ollama {
	if baseURL == "" {
		baseURL = DefaultOllamaBaseURL
	}
	return &Ollama{
		baseURL: baseURL,
		// Per-call deadlines come from ctx; this is a hard safety ceiling.
		client: &http.Client{Timeout: 5 * time.Minute},
	}
}

type ollamaGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// GenerateText produces a completion via /api/generate.
func (o *Ollama) GenerateText(ctx context.Context, prompt, model string) (string, error) {
	var resp ollamaGenerateResponse
	err := o.post(ctx, "/api/generate", ollamaGenerateRequest{
		Model:  model,
		Prompt: prompt,
		Stream: false,
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.Response == "" {
		return "", fmt.Errorf("ollama returned an empty response")
	}
	return resp.Response, nil
}

// GenerateEmbedding produces an embedding via /api/embeddings.
func (o *Ollama) GenerateEmbedding(ctx context.Context, text, model string) ([]float32, error) {
	var resp ollamaEmbedResponse
	err := o.post(ctx, "/api/embeddings", ollamaEmbedRequest{
		Model:  model,
		Prompt: text,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("ollama returned an empty embedding")
	}
	return resp.Embedding, nil
}

func (o *Ollama) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("ollama %s returned %d: %s", path, resp.StatusCode, bytes.TrimSpace(snippet))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

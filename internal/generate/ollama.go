package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/starford/ansuz/internal/models"
)

// OllamaOptions configures the local HTTP model backend.
type OllamaOptions struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Ollama posts the prompt to a local /api/generate endpoint.
type Ollama struct {
	baseURL string
	model   string
	http    *http.Client
}

// NewOllama creates the local HTTP backend.
func NewOllama(opts OllamaOptions) *Ollama {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "http://127.0.0.1:11434"
	}
	model := opts.Model
	if model == "" {
		model = "qwen2.5:3b"
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Ollama{baseURL: base, model: model, http: &http.Client{Timeout: timeout}}
}

type ollamaRequest struct {
	Model   string         `json:"model"`
	Stream  bool           `json:"stream"`
	Format  string         `json:"format"`
	Prompt  string         `json:"prompt"`
	Options map[string]any `json:"options"`
}

type ollamaResponse struct {
	Response json.RawMessage `json:"response"`
}

// Generate implements Generator.
func (o *Ollama) Generate(ctx context.Context, req Request) ([]models.CardFields, error) {
	body, err := json.Marshal(ollamaRequest{
		Model:   o.model,
		Stream:  false,
		Format:  "json",
		Prompt:  PromptWithInput(req),
		Options: map[string]any{"temperature": 0.2},
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ollama: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("ollama: read body: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("ollama: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out ollamaResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("ollama: decode envelope: %w", err)
	}
	return decodeOllamaPayload(out.Response)
}

// The response field is either a JSON-encoded string or an object.
func decodeOllamaPayload(field json.RawMessage) ([]models.CardFields, error) {
	trimmed := bytes.TrimSpace(field)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, errors.New("ollama: empty response")
	}
	if trimmed[0] == '{' {
		return DecodeNotes(trimmed)
	}
	var text string
	if err := json.Unmarshal(trimmed, &text); err != nil {
		return nil, fmt.Errorf("ollama: decode response: %w", err)
	}
	payload, ok := ExtractJSON(text)
	if !ok {
		return nil, errors.New("ollama: response carried no JSON object")
	}
	return DecodeNotes(payload)
}

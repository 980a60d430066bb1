package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultOllamaURL   = "http://localhost:11434"
	defaultHTTPTimeout = 5 * time.Minute
)

// Ollama talks to an Ollama-compatible server's generate and tags endpoints.
type Ollama struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

var _ Backend = (*Ollama)(nil)

type OllamaOption func(*Ollama)

// NewOllama targets a local server unless WithBaseURL says otherwise.
// Settings come from options only; the environment is read by config.
func NewOllama(opts ...OllamaOption) *Ollama {
	o := &Ollama{
		BaseURL:    defaultOllamaURL,
		HTTPClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

func WithBaseURL(baseURL string) OllamaOption {
	return func(o *Ollama) {
		if strings.TrimSpace(baseURL) != "" {
			o.BaseURL = strings.TrimSpace(baseURL)
		}
	}
}

func WithAPIKey(key string) OllamaOption {
	return func(o *Ollama) {
		if strings.TrimSpace(key) != "" {
			o.APIKey = strings.TrimSpace(key)
		}
	}
}

func WithHTTPClient(c *http.Client) OllamaOption {
	return func(o *Ollama) {
		if c != nil {
			o.HTTPClient = c
		}
	}
}

// WithTimeout sets the timeout on the HTTP client.
func WithTimeout(d time.Duration) OllamaOption {
	return func(o *Ollama) {
		if d <= 0 {
			return
		}
		if o.HTTPClient == nil {
			o.HTTPClient = &http.Client{}
		}
		o.HTTPClient.Timeout = d
	}
}

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	System  string         `json:"system,omitempty"`
	Audio   string         `json:"audio,omitempty"`
	Format  string         `json:"format,omitempty"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

type tagsResponse struct {
	Models []struct {
		Name  string `json:"name"`
		Model string `json:"model"`
	} `json:"models"`
}

func (o *Ollama) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error) {
	if strings.TrimSpace(req.Model) == "" {
		return GenerateResponse{}, errors.New("ollama: model is required")
	}
	body := generateRequest{
		Model:  req.Model,
		Prompt: req.Prompt,
		System: req.System,
		Stream: false,
	}
	if len(req.Audio) > 0 {
		body.Audio = base64.StdEncoding.EncodeToString(req.Audio)
	}
	if req.JSON {
		body.Format = "json"
	}
	if req.Temperature != nil {
		body.Options = map[string]any{"temperature": *req.Temperature}
	}

	var out generateResponse
	if err := o.do(ctx, http.MethodPost, "/api/generate", body, &out); err != nil {
		return GenerateResponse{}, err
	}
	return GenerateResponse{Text: out.Response, Model: out.Model}, nil
}

func (o *Ollama) ListModels(ctx context.Context) ([]string, error) {
	var out tagsResponse
	if err := o.do(ctx, http.MethodGet, "/api/tags", nil, &out); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(out.Models))
	for _, m := range out.Models {
		if m.Name != "" {
			names = append(names, m.Name)
		} else if m.Model != "" {
			names = append(names, m.Model)
		}
	}
	return names, nil
}

func (o *Ollama) do(ctx context.Context, method, path string, in, out any) error {
	var reader io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("ollama: marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	url := strings.TrimRight(o.BaseURL, "/") + path
	httpReq, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("ollama: build request: %w", err)
	}
	if in != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")
	if o.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+o.APIKey)
	}

	client := o.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("ollama: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeAPIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("ollama: decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	body, readErr := io.ReadAll(io.LimitReader(resp.Body, 2*1024*1024))
	if readErr != nil {
		return &APIError{Provider: "ollama", StatusCode: resp.StatusCode, Message: "failed to read error body: " + readErr.Error()}
	}

	var envelope struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &envelope); err == nil && strings.TrimSpace(envelope.Error) != "" {
		msg = strings.TrimSpace(envelope.Error)
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &APIError{Provider: "ollama", StatusCode: resp.StatusCode, Message: msg}
}

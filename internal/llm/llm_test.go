package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOllamaGenerate(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" || r.Method != http.MethodPost {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("missing auth header")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		_, _ = w.Write([]byte(`{"model":"whisper:latest","response":"hello there","done":true}`))
	}))
	defer srv.Close()

	o := NewOllama(WithBaseURL(srv.URL), WithAPIKey("secret"))
	resp, err := o.Generate(context.Background(), GenerateRequest{
		Model:       "whisper",
		Prompt:      "transcribe",
		Audio:       []byte("RIFF"),
		Temperature: Float(0.2),
		JSON:        true,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.Text != "hello there" || resp.Model != "whisper:latest" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if got.Audio != base64.StdEncoding.EncodeToString([]byte("RIFF")) || got.Stream || got.Format != "json" {
		t.Fatalf("unexpected request %+v", got)
	}
	if got.Options["temperature"] != 0.2 {
		t.Fatalf("temperature = %v", got.Options["temperature"])
	}
}

func TestOllamaAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model 'whisper' not found"}`))
	}))
	defer srv.Close()

	_, err := NewOllama(WithBaseURL(srv.URL)).Generate(context.Background(), GenerateRequest{Model: "whisper"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 404 {
		t.Fatalf("expected APIError 404, got %v", err)
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Fatalf("message lost: %v", err)
	}
}

func TestOllamaListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"models":[{"name":"whisper:latest"},{"model":"llama3.2:3b"}]}`))
	}))
	defer srv.Close()

	models, err := NewOllama(WithBaseURL(srv.URL)).ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	if len(models) != 2 || models[1] != "llama3.2:3b" {
		t.Fatalf("models = %v", models)
	}
}

func TestNewOllamaIgnoresEnvironment(t *testing.T) {
	t.Setenv("OLLAMA_HOST", "http://gpu-box:11434")
	t.Setenv("OLLAMA_API_KEY", "from-env")

	o := NewOllama()
	if o.BaseURL != "http://localhost:11434" || o.APIKey != "" {
		t.Fatalf("defaults picked up environment: %+v", o)
	}

	o = NewOllama(WithBaseURL(" http://gpu-box:11434 "), WithAPIKey("secret"))
	if o.BaseURL != "http://gpu-box:11434" || o.APIKey != "secret" {
		t.Fatalf("options not applied: %+v", o)
	}
}

func TestHasModel(t *testing.T) {
	installed := []string{"whisper:latest", "llama3.2:3b"}
	cases := map[string]bool{
		"whisper":        true,
		"Whisper:latest": true,
		"llama3.2":       false,
		"llama3.2:3b":    true,
		"mistral":        false,
	}
	for name, want := range cases {
		if got := HasModel(installed, name); got != want {
			t.Errorf("HasModel(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestOpenAIGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("path = %s", r.URL.Path)
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["model"] != "gpt-4o-mini" {
			t.Errorf("model = %v", body["model"])
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","model":"gpt-4o-mini","choices":[{"index":0,"message":{"role":"assistant","content":"{\"title\":\"Cake\"}"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	o := NewOpenAI("key", srv.URL+"/v1", srv.Client())
	resp, err := o.Generate(context.Background(), GenerateRequest{Model: "gpt-4o-mini", System: "json only", Prompt: "recipe", JSON: true})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.Text != `{"title":"Cake"}` {
		t.Fatalf("text = %q", resp.Text)
	}
}

func TestOpenAIRejectsAudio(t *testing.T) {
	o := NewOpenAI("key", "http://127.0.0.1:1", nil)
	if _, err := o.Generate(context.Background(), GenerateRequest{Model: "m", Audio: []byte{1}}); err == nil {
		t.Fatal("expected error")
	}
}

// Package llm holds the inference backends used for speech and text.
package llm

import (
	"context"
	"fmt"
	"strings"
)

type GenerateRequest struct {
	Model  string
	System string
	Prompt string
	// Audio is raw audio bytes; backends send it base64-encoded.
	Audio       []byte
	Temperature *float64
	// JSON asks the backend to constrain output to a JSON object when it can.
	JSON bool
}

type GenerateResponse struct {
	Text  string
	Model string
}

type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error)
}

type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}

// Backend is a generator that can also report its installed models.
type Backend interface {
	Generator
	ModelLister
}

// APIError is a non-2xx response from a backend.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: API status %d: %s", e.Provider, e.StatusCode, e.Message)
}

// HasModel reports whether want is among installed, treating a missing tag as
// ":latest".
func HasModel(installed []string, want string) bool {
	w := normalizeModel(want)
	for _, m := range installed {
		if normalizeModel(m) == w {
			return true
		}
	}
	return false
}

func normalizeModel(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name != "" && !strings.Contains(name, ":") {
		name += ":latest"
	}
	return name
}

// Float returns a pointer to f.
func Float(f float64) *float64 { return &f }

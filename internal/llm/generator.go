// Package llm provides the text-generation capability used by the
// narrative layer. Callers receive a TextGenerator and never check
// ambient state; when no API key is configured they get the Disabled
// implementation, whose errors route every caller onto its
// deterministic fallback.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

// ErrUnavailable signals that no live text generator is configured.
var ErrUnavailable = errors.New("text generator unavailable")

// TextGenerator turns a prompt into free text, or fails.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Available() bool
}

// Gemini is the live implementation over Google's GenAI API.
type Gemini struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGemini builds a Gemini-backed generator. The timeout bounds every
// outbound call so a hung request cannot hang a sync or analysis.
func NewGemini(ctx context.Context, apiKey, model string, timeout time.Duration) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}
	return &Gemini{client: client, model: model, timeout: timeout}, nil
}

func (g *Gemini) Available() bool { return true }

func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(0.2)),
	})
	if err != nil {
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}
	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", errors.New("empty gemini response")
	}
	return text, nil
}

// Disabled is the explicit no-generator implementation.
type Disabled struct{}

func (Disabled) Available() bool { return false }

func (Disabled) Generate(ctx context.Context, prompt string) (string, error) {
	return "", ErrUnavailable
}

// Package llm wraps the Gemini client behind the narrow generate surface
// the rest of the system consumes, and owns the defensive parsing of model
// output. Model text is never trusted to be well-formed JSON: callers
// bracket-slice and decode, degrading to an empty result on failure.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// ErrOverloaded marks 503-class upstream failures that are worth retrying.
var ErrOverloaded = errors.New("model overloaded")

// Client calls the Gemini API. One client serves all models; the model name
// is chosen per call.
type Client struct {
	client *genai.Client
}

// NewClient creates a Gemini client authenticated with apiKey.
func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Gemini client: %w", err)
	}
	return &Client{client: c}, nil
}

// Generate runs a single synchronous completion. systemInstruction may be
// empty.
func (c *Client) Generate(ctx context.Context, model, prompt, systemInstruction string) (string, error) {
	var cfg *genai.GenerateContentConfig
	if systemInstruction != "" {
		cfg = &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{
				Parts: []*genai.Part{{Text: systemInstruction}},
			},
		}
	}
	resp, err := c.client.Models.GenerateContent(ctx, model, genai.Text(prompt), cfg)
	if err != nil {
		return "", classify(err)
	}
	return resp.Text(), nil
}

// GenerateWithSearch runs a completion with the Google Search tool enabled,
// used for finding live learning resources.
func (c *Client) GenerateWithSearch(ctx context.Context, model, prompt string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Tools: []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
	}
	resp, err := c.client.Models.GenerateContent(ctx, model, genai.Text(prompt), cfg)
	if err != nil {
		return "", classify(err)
	}
	return resp.Text(), nil
}

// classify maps transient capacity errors onto ErrOverloaded so callers can
// apply their retry budget, and passes everything else through.
func classify(err error) error {
	msg := err.Error()
	if strings.Contains(msg, "503") || strings.Contains(msg, "UNAVAILABLE") ||
		strings.Contains(msg, "429") || strings.Contains(msg, "RESOURCE_EXHAUSTED") {
		return fmt.Errorf("%w: %v", ErrOverloaded, err)
	}
	return err
}

// ExtractJSONObject slices the first '{' through the last '}' out of model
// output. Returns false when no object-shaped region exists.
func ExtractJSONObject(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// ExtractJSONArray slices the first '[' through the last ']' out of model
// output. Returns false when no array-shaped region exists.
func ExtractJSONArray(text string) (string, bool) {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start == -1 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// Package extract turns a chat transcript into a best-effort structured
// profile fragment.
package extract

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/dishaguide/disha/internal/llm"
	"github.com/dishaguide/disha/internal/profile"
	"github.com/dishaguide/disha/internal/prompts"
)

const extractionTimeout = 30 * time.Second

// Generator is the model call the extractor needs.
type Generator interface {
	Generate(ctx context.Context, model, prompt, systemInstruction string) (string, error)
}

// Extractor asks the model to pull structured profile facts out of the
// user's side of the conversation.
type Extractor struct {
	gen   Generator
	model string
}

// NewExtractor creates an Extractor using the given generator and model name.
func NewExtractor(gen Generator, model string) *Extractor {
	return &Extractor{gen: gen, model: model}
}

// Extract builds a transcript of user utterances only and asks the model for
// a profile fragment. On any failure (empty transcript, model error,
// unparseable output) it returns an empty fragment: extraction must never
// break the conversation flow. Single attempt, no retry.
func (e *Extractor) Extract(ctx context.Context, turns []profile.ChatTurn) profile.Fragment {
	transcript := prompts.UserTranscript(turns)
	if transcript == "" {
		return profile.Fragment{}
	}

	ctx, cancel := context.WithTimeout(ctx, extractionTimeout)
	defer cancel()

	raw, err := e.gen.Generate(ctx, e.model, prompts.Extraction(transcript), prompts.ExtractionInstruction)
	if err != nil {
		slog.Warn("profile extraction failed", "error", err)
		return profile.Fragment{}
	}

	sliced, ok := llm.ExtractJSONObject(raw)
	if !ok {
		slog.Warn("no JSON object in extraction response", "response", raw)
		return profile.Fragment{}
	}

	var frag profile.Fragment
	if err := json.Unmarshal([]byte(sliced), &frag); err != nil {
		slog.Warn("failed to unmarshal profile fragment", "error", err, "response", sliced)
		return profile.Fragment{}
	}
	return frag
}

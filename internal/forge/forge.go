// Package forge generates skill assessments, study feedback, and curated
// learning resources for the skills inside a saved career path.
package forge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dishaguide/disha/internal/llm"
	"github.com/dishaguide/disha/internal/prompts"
)

// ErrNoResources means every attempt to fetch live resources failed; the
// upstream model was overloaded or returned nothing usable.
var ErrNoResources = errors.New("resource service unavailable")

// Generator is the model surface the forge needs: plain generation for
// quizzes and feedback, search-grounded generation for resources.
type Generator interface {
	Generate(ctx context.Context, model, prompt, systemInstruction string) (string, error)
	GenerateWithSearch(ctx context.Context, model, prompt string) (string, error)
}

// Question is one multiple-choice quiz question.
type Question struct {
	QuestionText  string   `json:"question_text"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
}

// Quiz is a generated skill assessment.
type Quiz struct {
	QuizTitle string     `json:"quiz_title"`
	Questions []Question `json:"questions"`
}

// Resource is one validated learning resource.
type Resource struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Type  string `json:"type"`
}

// Forge holds the model handles and the HTTP client used to validate
// resource URLs before they reach the user.
type Forge struct {
	gen           Generator
	quizModel     string
	resourceModel string

	httpClient *http.Client
	sleep      func(time.Duration)
}

// New creates a Forge. quizModel backs assessments and feedback,
// resourceModel backs search-grounded resource lookup.
func New(gen Generator, quizModel, resourceModel string) *Forge {
	return &Forge{
		gen:           gen,
		quizModel:     quizModel,
		resourceModel: resourceModel,
		httpClient:    &http.Client{Timeout: 5 * time.Second},
		sleep:         time.Sleep,
	}
}

// Assessment generates a multiple-choice quiz for one skill in the context
// of a career. A response without questions is an error, not an empty quiz.
func (f *Forge) Assessment(ctx context.Context, skill, career string) (Quiz, error) {
	raw, err := f.gen.Generate(ctx, f.quizModel, prompts.Assessment(skill, career), "")
	if err != nil {
		return Quiz{}, fmt.Errorf("generating assessment: %w", err)
	}

	sliced, ok := llm.ExtractJSONObject(raw)
	if !ok {
		return Quiz{}, fmt.Errorf("no JSON object in assessment response")
	}
	var quiz Quiz
	if err := json.Unmarshal([]byte(sliced), &quiz); err != nil {
		return Quiz{}, fmt.Errorf("unmarshaling quiz: %w", err)
	}
	if len(quiz.Questions) == 0 {
		return Quiz{}, fmt.Errorf("assessment response contained no questions")
	}
	return quiz, nil
}

// fallbackTopics is returned when feedback generation fails. The user still
// has per-question explanations to fall back on.
var fallbackTopics = []string{
	"Review the explanations for the questions you answered incorrectly.",
	"Revisit the core concepts behind those questions before retaking the assessment.",
}

// Feedback turns the questions a user got wrong into a short list of study
// topics. No incorrect answers means no topics. Model or parse failures
// degrade to a canned topic list rather than an error.
func (f *Forge) Feedback(ctx context.Context, incorrect []prompts.IncorrectQuestion) []string {
	if len(incorrect) == 0 {
		return []string{}
	}

	raw, err := f.gen.Generate(ctx, f.quizModel, prompts.Feedback(incorrect), "")
	if err != nil {
		slog.Warn("feedback generation failed", "error", err)
		return fallbackTopics
	}

	sliced, ok := llm.ExtractJSONObject(raw)
	if !ok {
		slog.Warn("no JSON object in feedback response")
		return fallbackTopics
	}
	var parsed struct {
		Topics []string `json:"topics"`
	}
	if err := json.Unmarshal([]byte(sliced), &parsed); err != nil || len(parsed.Topics) == 0 {
		slog.Warn("failed to parse feedback topics", "error", err)
		return fallbackTopics
	}
	return parsed.Topics
}

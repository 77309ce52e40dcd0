// Package recommend keeps the user's career recommendations in sync with
// their evolving profile. A refresh extracts fresh profile facts from the
// chat history, reconciles them into the stored profile, and, once the
// profile is complete enough, regenerates the recommendation list.
package recommend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dishaguide/disha/internal/docstore"
	"github.com/dishaguide/disha/internal/llm"
	"github.com/dishaguide/disha/internal/profile"
	"github.com/dishaguide/disha/internal/prompts"
)

// refreshTimeout bounds one full background refresh, extraction included.
const refreshTimeout = 2 * time.Minute

// Generator is the model call used to produce recommendations.
type Generator interface {
	Generate(ctx context.Context, model, prompt, systemInstruction string) (string, error)
}

// ProfileExtractor pulls a profile fragment out of a chat history.
type ProfileExtractor interface {
	Extract(ctx context.Context, turns []profile.ChatTurn) profile.Fragment
}

// RecordStore is the document access a refresh needs.
type RecordStore interface {
	Get(ctx context.Context, userID string) ([]byte, error)
	Mutate(ctx context.Context, userID string, fn docstore.MutateFunc) error
	UpdateFields(ctx context.Context, userID string, fields map[string]any) error
}

// Orchestrator runs profile extraction and recommendation refreshes, both
// inline and as supervised background tasks.
type Orchestrator struct {
	store     RecordStore
	extractor ProfileExtractor
	gen       Generator
	model     string

	wg sync.WaitGroup
}

// NewOrchestrator creates an Orchestrator generating with the given model.
func NewOrchestrator(store RecordStore, extractor ProfileExtractor, gen Generator, model string) *Orchestrator {
	return &Orchestrator{store: store, extractor: extractor, gen: gen, model: model}
}

// EnqueueRefresh starts a refresh in the background. Callers enqueue only
// after the triggering chat turn is durably saved. Failures are logged, not
// surfaced: a refresh that misses one turn is corrected by the next.
func (o *Orchestrator) EnqueueRefresh(userID, email string, history []profile.ChatTurn) {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		if err := o.Refresh(ctx, userID, email, history); err != nil {
			slog.Error("background recommendation refresh failed", "user", userID, "error", err)
		}
	}()
}

// Wait blocks until all enqueued background refreshes finish. Called during
// shutdown so in-flight refreshes are not cut off mid-write.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Refresh extracts profile facts from history, reconciles them into the
// stored profile, and regenerates recommendations if the profile is ready.
// The reconciled profile is persisted even when generation is skipped or
// fails afterwards.
func (o *Orchestrator) Refresh(ctx context.Context, userID, email string, history []profile.ChatTurn) error {
	frag := o.extractor.Extract(ctx, history)

	var merged profile.Profile
	err := o.store.Mutate(ctx, userID, func(raw []byte) (any, error) {
		rec, err := profile.DecodeRecord(raw, email)
		if err != nil {
			return nil, fmt.Errorf("decoding user record: %w", err)
		}
		rec.Profile = profile.Reconcile(rec.Profile, frag)
		merged = rec.Profile
		return rec, nil
	})
	if err != nil {
		return fmt.Errorf("persisting reconciled profile: %w", err)
	}

	if !profile.IsReady(merged) {
		slog.Debug("profile not ready for recommendations", "user", userID)
		return nil
	}
	return o.generate(ctx, userID, merged)
}

// RefreshFromStored regenerates recommendations from the profile as
// currently stored, without a fresh extraction pass. Backs the synchronous
// refresh route; a not-ready profile is a no-op, not an error.
func (o *Orchestrator) RefreshFromStored(ctx context.Context, userID, email string) error {
	raw, err := o.store.Get(ctx, userID)
	if err != nil && !errors.Is(err, docstore.ErrNotFound) {
		return fmt.Errorf("loading user record: %w", err)
	}
	rec, err := profile.DecodeRecord(raw, email)
	if err != nil {
		return fmt.Errorf("decoding user record: %w", err)
	}
	if !profile.IsReady(rec.Profile) {
		slog.Debug("profile not ready for recommendations", "user", userID)
		return nil
	}
	return o.generate(ctx, userID, rec.Profile)
}

// generate asks the model for career options and fully replaces the stored
// recommendation list. Unparseable or empty model output leaves the previous
// recommendations in place.
func (o *Orchestrator) generate(ctx context.Context, userID string, p profile.Profile) error {
	raw, err := o.gen.Generate(ctx, o.model, prompts.Recommendation(p), prompts.RecommendationInstruction)
	if err != nil {
		return fmt.Errorf("generating recommendations: %w", err)
	}

	sliced, ok := llm.ExtractJSONArray(raw)
	if !ok {
		slog.Warn("no JSON array in recommendation response", "user", userID)
		return nil
	}
	var options []profile.CareerOption
	if err := json.Unmarshal([]byte(sliced), &options); err != nil {
		slog.Warn("failed to unmarshal recommendations", "user", userID, "error", err)
		return nil
	}
	if len(options) == 0 {
		return nil
	}

	return o.store.UpdateFields(ctx, userID, map[string]any{
		"compass.recommendations": options,
		"compass.lastUpdated":     time.Now().UTC().Format(time.RFC3339),
	})
}

package forge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dishaguide/disha/internal/llm"
	"github.com/dishaguide/disha/internal/prompts"
)

const resourceAttempts = 3

// Resources asks the search-grounded model for learning resources and
// returns only those whose URLs respond. Overloaded-model errors back off
// linearly before the next attempt; unparseable and all-links-dead rounds
// retry immediately. Every failure counts against the retry budget, and
// exhausting it returns ErrNoResources.
func (f *Forge) Resources(ctx context.Context, skill, career string) ([]Resource, error) {
	prompt := prompts.Resources(skill, career)

	for attempt := 0; attempt < resourceAttempts; attempt++ {
		raw, err := f.gen.GenerateWithSearch(ctx, f.resourceModel, prompt)
		if err != nil {
			if errors.Is(err, llm.ErrOverloaded) {
				slog.Warn("resource model overloaded, retrying", "attempt", attempt+1)
				f.sleep(time.Duration(attempt+1) * time.Second)
				continue
			}
			return nil, fmt.Errorf("finding resources: %w", err)
		}

		candidates, err := parseResources(raw)
		if err != nil {
			slog.Warn("unparseable resource response, retrying", "attempt", attempt+1, "error", err)
			continue
		}

		valid := f.validateURLs(ctx, candidates)
		if len(valid) == 0 {
			slog.Warn("no resource URLs validated, retrying", "attempt", attempt+1, "candidates", len(candidates))
			continue
		}
		return valid, nil
	}
	return nil, ErrNoResources
}

func parseResources(raw string) ([]Resource, error) {
	sliced, ok := llm.ExtractJSONObject(raw)
	if !ok {
		return nil, fmt.Errorf("no JSON object in response")
	}
	var parsed struct {
		Resources []Resource `json:"resources"`
	}
	if err := json.Unmarshal([]byte(sliced), &parsed); err != nil {
		return nil, fmt.Errorf("unmarshaling resources: %w", err)
	}
	if len(parsed.Resources) == 0 {
		return nil, fmt.Errorf("empty resource list")
	}
	return parsed.Resources, nil
}

// validateURLs probes every candidate URL concurrently and keeps, in their
// original order, only those answering below 400.
func (f *Forge) validateURLs(ctx context.Context, candidates []Resource) []Resource {
	alive := make([]bool, len(candidates))

	g, ctx := errgroup.WithContext(ctx)
	for i, r := range candidates {
		g.Go(func() error {
			alive[i] = f.urlAlive(ctx, r.URL)
			return nil
		})
	}
	g.Wait()

	valid := make([]Resource, 0, len(candidates))
	for i, r := range candidates {
		if alive[i] {
			valid = append(valid, r)
		} else {
			slog.Debug("dropping dead resource URL", "url", r.URL)
		}
	}
	return valid
}

func (f *Forge) urlAlive(ctx context.Context, url string) bool {
	if url == "" {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 400
}

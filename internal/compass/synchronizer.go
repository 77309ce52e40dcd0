// Package compass owns the user's saved career paths: adding and removing
// paths, toggling per-skill completion, recording assessment scores, and
// keeping the derived progress percentage consistent. Every operation is a
// serialized read-modify-write on the whole user document.
package compass

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/dishaguide/disha/internal/docstore"
	"github.com/dishaguide/disha/internal/profile"
)

var (
	// ErrNotFound signals a missing career path (or user document).
	ErrNotFound = errors.New("career path not found")
	// ErrDuplicate signals an add for a path that is already saved. It is
	// informational, not a failure: the compass is left untouched.
	ErrDuplicate = errors.New("career path already saved")
	// ErrInvalid signals a career option missing required fields.
	ErrInvalid = errors.New("invalid career data")
)

// RecordStore is the document access the synchronizer needs.
type RecordStore interface {
	Mutate(ctx context.Context, userID string, fn docstore.MutateFunc) error
}

// Synchronizer applies compass mutations against the document store.
type Synchronizer struct {
	store RecordStore
}

// New creates a Synchronizer backed by store.
func New(store RecordStore) *Synchronizer {
	return &Synchronizer{store: store}
}

// Add appends a career option to the user's saved paths. The option must
// carry all four career fields. Adding an already-saved career name returns
// ErrDuplicate and changes nothing. Skills the user already has (matched
// case-insensitively against the profile) start complete with score 100;
// the rest start pending with no score.
func (s *Synchronizer) Add(ctx context.Context, userID, email string, option profile.CareerOption) error {
	if option.CareerName == "" || option.Description == "" ||
		option.Pathway == nil || option.EducationPathway == nil {
		return fmt.Errorf("%w: career_name, description, pathway and education_pathway are required", ErrInvalid)
	}

	return s.store.Mutate(ctx, userID, func(raw []byte) (any, error) {
		rec, err := profile.DecodeRecord(raw, email)
		if err != nil {
			return nil, fmt.Errorf("decoding user record: %w", err)
		}

		for _, p := range rec.Compass.SavedPaths {
			if p.CareerName == option.CareerName {
				return nil, ErrDuplicate
			}
		}

		known := make(map[string]struct{}, len(rec.Profile.Skills))
		for _, skill := range rec.Profile.Skills {
			known[strings.ToLower(skill)] = struct{}{}
		}

		status := make(map[string]profile.SkillStatus, len(option.Pathway))
		for _, skill := range option.Pathway {
			if _, ok := known[strings.ToLower(skill)]; ok {
				score := 100.0
				status[skill] = profile.SkillStatus{Status: profile.SkillComplete, Score: &score}
			} else {
				status[skill] = profile.SkillStatus{Status: profile.SkillPending}
			}
		}

		path := profile.SavedPath{
			CareerOption: option,
			SkillsStatus: status,
			Progress:     computeProgress(status),
		}
		rec.Compass.SavedPaths = append(rec.Compass.SavedPaths, path)
		return rec, nil
	})
}

// Remove deletes the saved path with the given career name. Returns
// ErrNotFound if no path matched.
func (s *Synchronizer) Remove(ctx context.Context, userID, email, careerName string) error {
	return s.store.Mutate(ctx, userID, func(raw []byte) (any, error) {
		rec, err := profile.DecodeRecord(raw, email)
		if err != nil {
			return nil, fmt.Errorf("decoding user record: %w", err)
		}

		kept := rec.Compass.SavedPaths[:0:0]
		for _, p := range rec.Compass.SavedPaths {
			if p.CareerName != careerName {
				kept = append(kept, p)
			}
		}
		if len(kept) == len(rec.Compass.SavedPaths) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, careerName)
		}
		if kept == nil {
			kept = []profile.SavedPath{}
		}
		rec.Compass.SavedPaths = kept
		return rec, nil
	})
}

// UpdateSkillStatus toggles one skill's completion inside a saved path and
// recomputes progress. A skill absent from the status map is created rather
// than rejected; its score is left untouched either way. Returns ErrNotFound
// if the career path does not exist.
func (s *Synchronizer) UpdateSkillStatus(ctx context.Context, userID, email, careerName, skill string, isComplete bool) error {
	return s.mutatePath(ctx, userID, email, careerName, func(path *profile.SavedPath) {
		entry := path.SkillsStatus[skill]
		if isComplete {
			entry.Status = profile.SkillComplete
		} else {
			entry.Status = profile.SkillPending
		}
		path.SkillsStatus[skill] = entry
	})
}

// SaveAssessmentScore records a quiz score for one skill. Passing an
// assessment always completes the skill regardless of prior state.
// Returns ErrNotFound if the career path does not exist.
func (s *Synchronizer) SaveAssessmentScore(ctx context.Context, userID, email, careerName, skill string, score float64) error {
	return s.mutatePath(ctx, userID, email, careerName, func(path *profile.SavedPath) {
		entry := path.SkillsStatus[skill]
		entry.Score = &score
		entry.Status = profile.SkillComplete
		path.SkillsStatus[skill] = entry
	})
}

// mutatePath locates the saved path by career name, applies fn to it, and
// recomputes its progress before persisting.
func (s *Synchronizer) mutatePath(ctx context.Context, userID, email, careerName string, fn func(*profile.SavedPath)) error {
	return s.store.Mutate(ctx, userID, func(raw []byte) (any, error) {
		rec, err := profile.DecodeRecord(raw, email)
		if err != nil {
			return nil, fmt.Errorf("decoding user record: %w", err)
		}

		for i := range rec.Compass.SavedPaths {
			path := &rec.Compass.SavedPaths[i]
			if path.CareerName != careerName {
				continue
			}
			if path.SkillsStatus == nil {
				path.SkillsStatus = make(map[string]profile.SkillStatus)
			}
			fn(path)
			path.Progress = computeProgress(path.SkillsStatus)
			return rec, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrNotFound, careerName)
	})
}

// computeProgress derives the completion percentage from the skill status
// map: 100 * completed / total rounded half-to-even, or 0 with no skills.
func computeProgress(status map[string]profile.SkillStatus) int {
	if len(status) == 0 {
		return 0
	}
	completed := 0
	for _, s := range status {
		if s.Status == profile.SkillComplete {
			completed++
		}
	}
	return int(math.RoundToEven(float64(completed) / float64(len(status)) * 100))
}

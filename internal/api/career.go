package api

import (
	"errors"
	"net/http"

	"github.com/dishaguide/disha/internal/compass"
	"github.com/dishaguide/disha/internal/docstore"
	"github.com/dishaguide/disha/internal/profile"
)

func handleRecommendations(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := identity(r)
		raw, err := deps.Store.Get(r.Context(), id.UID)
		if err != nil && !errors.Is(err, docstore.ErrNotFound) {
			domainError(w, err)
			return
		}
		rec, err := profile.DecodeRecord(raw, id.Email)
		if err != nil {
			domainError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"recommendations": rec.Compass.Recommendations,
			"lastUpdated":     rec.Compass.LastUpdated,
		})
	}
}

func handleCompass(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := identity(r)
		raw, err := deps.Store.Get(r.Context(), id.UID)
		if err != nil && !errors.Is(err, docstore.ErrNotFound) {
			domainError(w, err)
			return
		}
		rec, err := profile.DecodeRecord(raw, id.Email)
		if err != nil {
			domainError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"compass": rec.Compass.SavedPaths})
	}
}

// handleCompassAdd saves a recommended career into the compass. Adding an
// already-saved path is not an error: the client gets an informational
// response and the compass is left untouched.
func handleCompassAdd(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := identity(r)
		var option profile.CareerOption
		if err := decodeBody(w, r, &option); err != nil {
			return
		}

		err := deps.Compass.Add(r.Context(), id.UID, id.Email, option)
		if errors.Is(err, compass.ErrDuplicate) {
			respondJSON(w, http.StatusOK, map[string]any{
				"status":  "info",
				"message": "Career path already saved",
			})
			return
		}
		if err != nil {
			domainError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"status":  "success",
			"message": "Career path saved to compass",
		})
	}
}

func handleCompassSkillUpdate(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := identity(r)
		var req struct {
			CareerName string `json:"career_name"`
			Skill      string `json:"skill"`
			IsComplete bool   `json:"is_complete"`
		}
		if err := decodeBody(w, r, &req); err != nil {
			return
		}
		if req.CareerName == "" || req.Skill == "" {
			httpError(w, http.StatusBadRequest, "validation_error", "career_name and skill are required")
			return
		}

		if err := deps.Compass.UpdateSkillStatus(r.Context(), id.UID, id.Email, req.CareerName, req.Skill, req.IsComplete); err != nil {
			domainError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"status":  "success",
			"message": "Skill status updated",
		})
	}
}

func handleCompassRemove(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := identity(r)
		var req struct {
			CareerName string `json:"career_name"`
		}
		if err := decodeBody(w, r, &req); err != nil {
			return
		}
		if req.CareerName == "" {
			httpError(w, http.StatusBadRequest, "validation_error", "career_name is required")
			return
		}

		if err := deps.Compass.Remove(r.Context(), id.UID, id.Email, req.CareerName); err != nil {
			domainError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"status":  "success",
			"message": "Career path removed from compass",
		})
	}
}

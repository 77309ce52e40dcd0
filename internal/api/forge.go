package api

import (
	"net/http"

	"github.com/dishaguide/disha/internal/prompts"
)

func handleAssessment(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			CareerName string `json:"career_name"`
			Skill      string `json:"skill"`
		}
		if err := decodeBody(w, r, &req); err != nil {
			return
		}
		if req.Skill == "" || req.CareerName == "" {
			httpError(w, http.StatusBadRequest, "validation_error", "career_name and skill are required")
			return
		}

		quiz, err := deps.Forge.Assessment(r.Context(), req.Skill, req.CareerName)
		if err != nil {
			domainError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, quiz)
	}
}

func handleAssessmentSave(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := identity(r)
		var req struct {
			CareerName string  `json:"career_name"`
			Skill      string  `json:"skill"`
			Score      float64 `json:"score"`
		}
		if err := decodeBody(w, r, &req); err != nil {
			return
		}
		if req.CareerName == "" || req.Skill == "" {
			httpError(w, http.StatusBadRequest, "validation_error", "career_name and skill are required")
			return
		}

		if err := deps.Compass.SaveAssessmentScore(r.Context(), id.UID, id.Email, req.CareerName, req.Skill, req.Score); err != nil {
			domainError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"status":  "success",
			"message": "Assessment score saved",
		})
	}
}

func handleResources(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			CareerName string `json:"career_name"`
			Skill      string `json:"skill"`
		}
		if err := decodeBody(w, r, &req); err != nil {
			return
		}
		if req.Skill == "" || req.CareerName == "" {
			httpError(w, http.StatusBadRequest, "validation_error", "career_name and skill are required")
			return
		}

		resources, err := deps.Forge.Resources(r.Context(), req.Skill, req.CareerName)
		if err != nil {
			domainError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"resources": resources})
	}
}

func handleFeedback(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			IncorrectQuestions []prompts.IncorrectQuestion `json:"incorrect_questions"`
		}
		if err := decodeBody(w, r, &req); err != nil {
			return
		}

		topics := deps.Forge.Feedback(r.Context(), req.IncorrectQuestions)
		respondJSON(w, http.StatusOK, map[string]any{"topics": topics})
	}
}

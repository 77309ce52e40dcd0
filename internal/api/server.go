// Package api exposes the HTTP surface: chat, career compass, skill forge,
// and user document routes, all JSON in/out and bearer-token authenticated
// except the health and auth endpoints.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/dishaguide/disha/internal/auth"
	"github.com/dishaguide/disha/internal/docstore"
	"github.com/dishaguide/disha/internal/forge"
	"github.com/dishaguide/disha/internal/profile"
	"github.com/dishaguide/disha/internal/prompts"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Chatter is the model call behind the conversational mentor.
type Chatter interface {
	Generate(ctx context.Context, model, prompt, systemInstruction string) (string, error)
}

// DocStore is the document access the handlers need.
type DocStore interface {
	Get(ctx context.Context, userID string) ([]byte, error)
	Set(ctx context.Context, userID string, doc any, merge bool) error
	Mutate(ctx context.Context, userID string, fn docstore.MutateFunc) error
	Delete(ctx context.Context, userID string) error
}

// Recommender runs recommendation refreshes.
type Recommender interface {
	EnqueueRefresh(userID, email string, history []profile.ChatTurn)
	RefreshFromStored(ctx context.Context, userID, email string) error
}

// CompassSync applies saved-path mutations.
type CompassSync interface {
	Add(ctx context.Context, userID, email string, option profile.CareerOption) error
	Remove(ctx context.Context, userID, email, careerName string) error
	UpdateSkillStatus(ctx context.Context, userID, email, careerName, skill string, isComplete bool) error
	SaveAssessmentScore(ctx context.Context, userID, email, careerName, skill string, score float64) error
}

// SkillForge generates assessments, feedback, and learning resources.
type SkillForge interface {
	Assessment(ctx context.Context, skill, career string) (forge.Quiz, error)
	Feedback(ctx context.Context, incorrect []prompts.IncorrectQuestion) []string
	Resources(ctx context.Context, skill, career string) ([]forge.Resource, error)
}

// Deps carries everything the handlers depend on.
type Deps struct {
	Store       DocStore
	Verifier    auth.Verifier
	Chat        Chatter
	ChatModel   string
	Compass     CompassSync
	Recommender Recommender
	Forge       SkillForge

	JWTSecret      string
	AllowedOrigins []string
}

// NewHandler assembles the router.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))

	origins := deps.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/", handleRoot)
	r.Get("/ping", handlePing)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", handleIssueToken(deps))
		r.Post("/login", handleIssueToken(deps))
	})

	r.Group(func(r chi.Router) {
		r.Use(RequireAuth(deps.Verifier))

		r.Route("/chat", func(r chi.Router) {
			r.Post("/", handleChat(deps))
			r.Get("/history", handleChatHistory(deps))
			r.Delete("/all", handleChatClear(deps))
			r.Delete("/clear", handleChatClear(deps))
			r.Delete("/{id}", handleChatDelete(deps))
			r.Post("/recommendations/refresh", handleRecommendationsRefresh(deps))
		})

		r.Route("/career", func(r chi.Router) {
			r.Get("/recommendations", handleRecommendations(deps))
			r.Get("/compass", handleCompass(deps))
			r.Post("/compass/add", handleCompassAdd(deps))
			r.Post("/compass/skill/update", handleCompassSkillUpdate(deps))
			r.Delete("/compass/remove", handleCompassRemove(deps))
		})

		r.Route("/forge", func(r chi.Router) {
			r.Post("/assessment", handleAssessment(deps))
			r.Post("/assessment/save", handleAssessmentSave(deps))
			r.Post("/resources", handleResources(deps))
			r.Post("/feedback", handleFeedback(deps))
		})

		r.Route("/users", func(r chi.Router) {
			r.Delete("/me", handleUserDelete(deps))
			r.Get("/{id}", handleUserGet(deps))
			r.Post("/{id}", handleUserUpsert(deps))
		})
	})

	return r
}

func handleRoot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"message": "Disha Guide API is running",
	})
}

func handlePing(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// handleIssueToken signs a bearer token for the supplied identity. Production
// deployments front this with a real identity provider sharing the secret;
// this endpoint keeps local development and tests self-contained.
func handleIssueToken(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UID   string `json:"uid"`
			Email string `json:"email"`
		}
		if err := decodeBody(w, r, &req); err != nil {
			return
		}
		if req.UID == "" || req.Email == "" {
			httpError(w, http.StatusBadRequest, "validation_error", "uid and email are required")
			return
		}
		token, err := auth.GenerateToken(req.UID, req.Email, []byte(deps.JWTSecret), 24*time.Hour)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "internal_error", "issuing token: %v", err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"token": token})
	}
}

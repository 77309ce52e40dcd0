package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dishaguide/disha/internal/docstore"
	"github.com/dishaguide/disha/internal/profile"
	"github.com/dishaguide/disha/internal/prompts"
)

// handleChat runs one conversational turn: generate the mentor's reply,
// durably append the turn, then enqueue the background profile and
// recommendation refresh. The refresh never delays the reply.
func handleChat(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := identity(r)

		var req struct {
			Message string `json:"message"`
		}
		if err := decodeBody(w, r, &req); err != nil {
			return
		}
		msg := strings.TrimSpace(req.Message)
		if msg == "" {
			httpError(w, http.StatusBadRequest, "validation_error", "message must not be empty")
			return
		}

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

		conversation := prompts.Transcript(rec.Chats)
		if conversation != "" {
			conversation += "\n"
		}
		conversation += "User: " + msg

		reply, err := deps.Chat.Generate(r.Context(), deps.ChatModel, prompts.Chat(conversation), prompts.ChatInstruction)
		if err != nil {
			domainError(w, fmt.Errorf("generating reply: %w", err))
			return
		}

		now := time.Now().UTC().Format(time.RFC3339)
		turn := profile.ChatTurn{
			ID:   uuid.NewString(),
			User: profile.TurnMessage{Text: msg, Timestamp: now},
			AI:   profile.TurnMessage{Text: reply, Timestamp: now},
		}

		var history []profile.ChatTurn
		err = deps.Store.Mutate(r.Context(), id.UID, func(raw []byte) (any, error) {
			rec, err := profile.DecodeRecord(raw, id.Email)
			if err != nil {
				return nil, err
			}
			rec.Chats = append(rec.Chats, turn)
			history = rec.Chats
			return rec, nil
		})
		if err != nil {
			domainError(w, fmt.Errorf("saving chat turn: %w", err))
			return
		}

		// Only enqueue once the turn is durably saved.
		deps.Recommender.EnqueueRefresh(id.UID, id.Email, history)

		respondJSON(w, http.StatusOK, map[string]any{
			"reply":   reply,
			"history": history,
			"turn":    turn,
		})
	}
}

func handleChatHistory(deps Deps) http.HandlerFunc {
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
		respondJSON(w, http.StatusOK, map[string]any{"history": rec.Chats})
	}
}

func handleChatClear(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := identity(r)
		err := deps.Store.Mutate(r.Context(), id.UID, func(raw []byte) (any, error) {
			rec, err := profile.DecodeRecord(raw, id.Email)
			if err != nil {
				return nil, err
			}
			rec.Chats = []profile.ChatTurn{}
			return rec, nil
		})
		if err != nil {
			domainError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"status":  "success",
			"message": "Chat history cleared",
		})
	}
}

func handleChatDelete(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := identity(r)
		turnID := chi.URLParam(r, "id")

		err := deps.Store.Mutate(r.Context(), id.UID, func(raw []byte) (any, error) {
			rec, err := profile.DecodeRecord(raw, id.Email)
			if err != nil {
				return nil, err
			}
			kept := rec.Chats[:0:0]
			for _, turn := range rec.Chats {
				if turn.ID != turnID {
					kept = append(kept, turn)
				}
			}
			if len(kept) == len(rec.Chats) {
				return nil, fmt.Errorf("%w: chat turn %s", docstore.ErrNotFound, turnID)
			}
			if kept == nil {
				kept = []profile.ChatTurn{}
			}
			rec.Chats = kept
			return rec, nil
		})
		if err != nil {
			domainError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"status":  "success",
			"message": "Chat turn deleted",
		})
	}
}

// handleRecommendationsRefresh forces a synchronous refresh from the stored
// chat history and returns the resulting recommendation list.
func handleRecommendationsRefresh(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := identity(r)
		if err := deps.Recommender.RefreshFromStored(r.Context(), id.UID, id.Email); err != nil {
			domainError(w, err)
			return
		}

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
			"status":          "success",
			"recommendations": rec.Compass.Recommendations,
		})
	}
}

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dishaguide/disha/internal/docstore"
)

// handleUserGet returns the caller's stored document as-is. It never writes,
// so fields this server does not model survive a read untouched. Reading
// another identity's document is a 403.
func handleUserGet(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := identity(r)
		if chi.URLParam(r, "id") != id.UID {
			httpError(w, http.StatusForbidden, "ownership_error", "cannot access another user's document")
			return
		}

		raw, err := deps.Store.Get(r.Context(), id.UID)
		if errors.Is(err, docstore.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "user not found")
			return
		}
		if err != nil {
			domainError(w, err)
			return
		}
		var doc map[string]any
		if err := json.Unmarshal(raw, &doc); err != nil {
			domainError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, doc)
	}
}

// handleUserUpsert stores the posted profile under the document's "profile"
// key and stamps the email from the verified token. Merge semantics: nested
// maps merge, lists and scalars replace, sibling keys are untouched.
func handleUserUpsert(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := identity(r)
		if chi.URLParam(r, "id") != id.UID {
			httpError(w, http.StatusForbidden, "ownership_error", "cannot modify another user's document")
			return
		}

		var posted map[string]any
		if err := decodeBody(w, r, &posted); err != nil {
			return
		}
		if len(posted) == 0 {
			httpError(w, http.StatusBadRequest, "validation_error", "profile must not be empty")
			return
		}

		doc := map[string]any{
			"email":   id.Email,
			"profile": posted,
		}
		if err := deps.Store.Set(r.Context(), id.UID, doc, true); err != nil {
			domainError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"ok":      true,
			"message": "User profile saved",
			"userId":  id.UID,
		})
	}
}

func handleUserDelete(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := identity(r)
		err := deps.Store.Delete(r.Context(), id.UID)
		if errors.Is(err, docstore.ErrNotFound) {
			respondJSON(w, http.StatusOK, map[string]any{
				"status":  "success",
				"message": "No data to delete",
			})
			return
		}
		if err != nil {
			domainError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"status":  "success",
			"message": "Account data deleted",
		})
	}
}

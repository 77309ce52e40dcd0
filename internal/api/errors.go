package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/dishaguide/disha/internal/compass"
	"github.com/dishaguide/disha/internal/docstore"
	"github.com/dishaguide/disha/internal/forge"
	"github.com/dishaguide/disha/internal/llm"
)

// httpError writes the JSON error envelope every route shares.
func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

// domainError maps sentinel errors from the domain packages onto status
// codes and writes the response. Unknown errors become 500.
func domainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, compass.ErrInvalid):
		httpError(w, http.StatusBadRequest, "validation_error", "%v", err)
	case errors.Is(err, compass.ErrNotFound), errors.Is(err, docstore.ErrNotFound):
		httpError(w, http.StatusNotFound, "not_found", "%v", err)
	case errors.Is(err, llm.ErrOverloaded), errors.Is(err, forge.ErrNoResources):
		httpError(w, http.StatusServiceUnavailable, "overloaded", "%v", err)
	default:
		httpError(w, http.StatusInternalServerError, "internal_error", "%v", err)
	}
}

func respondJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}

// decodeBody decodes a JSON request body, writing a 400 itself on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httpError(w, http.StatusBadRequest, "validation_error", "invalid request body: %v", err)
		return err
	}
	return nil
}

package api

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/mwhited/taskflow/internal/auth"
	"github.com/mwhited/taskflow/internal/suggestion"
)

// suggestionsHandler groups suggestion HTTP handlers.
type suggestionsHandler struct {
	engine *suggestion.Engine
	store  *suggestion.Store
}

func newSuggestionsHandler(engine *suggestion.Engine, store *suggestion.Store) *suggestionsHandler {
	return &suggestionsHandler{engine: engine, store: store}
}

// List handles GET /api/v1/suggestions. Each call runs a generation pass and
// returns the caller's full suggestion history plus how many entries the
// pass added.
func (h *suggestionsHandler) List(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFromContext(r.Context())

	suggestions, newCount, err := h.engine.Generate(r.Context(), p.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to generate suggestions")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"suggestions": suggestions,
		"new_count":   newCount,
	})
}

// Update handles PUT /api/v1/suggestions.
func (h *suggestionsHandler) Update(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFromContext(r.Context())

	var req struct {
		SuggestionID  uuid.UUID `json:"suggestion_id"`
		IsImplemented bool      `json:"is_implemented"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}
	if req.SuggestionID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "validation_error", "suggestion_id is required")
		return
	}

	sg, err := h.store.SetImplemented(r.Context(), req.SuggestionID, p.ID, req.IsImplemented)
	if err != nil {
		if errors.Is(err, suggestion.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "suggestion not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to update suggestion")
		return
	}
	writeJSON(w, http.StatusOK, sg)
}

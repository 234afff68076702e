package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/diaflow/diaflow/internal/domain/artifact"
)

// ProjectStore exposes the persisted-diagram reads consumed by the handler.
type ProjectStore interface {
	CurrentDiagram(ctx context.Context, projectID string) (*artifact.Diagram, error)
	History(ctx context.Context, projectID string, limit int) ([]artifact.HistoryEntry, error)
}

type ProjectHandler struct {
	store ProjectStore
}

func NewProjectHandler(store ProjectStore) *ProjectHandler {
	return &ProjectHandler{store: store}
}

// GetDiagram returns the project's current diagram.
// GET /api/v1/projects/{id}/diagram
func (h *ProjectHandler) GetDiagram(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "id")
	if projectID == "" {
		writeError(w, http.StatusBadRequest, "project id is required")
		return
	}

	d, err := h.store.CurrentDiagram(r.Context(), projectID)
	if errors.Is(err, artifact.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no diagram for project")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load diagram")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// ListHistory returns the project's generation history, newest first.
// GET /api/v1/projects/{id}/history
func (h *ProjectHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "id")
	if projectID == "" {
		writeError(w, http.StatusBadRequest, "project id is required")
		return
	}

	entries, err := h.store.History(r.Context(), projectID, 0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	if entries == nil {
		entries = []artifact.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"history": entries,
		"count":   len(entries),
	})
}

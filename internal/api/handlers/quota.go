package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/diaflow/diaflow/internal/domain/artifact"
)

// QuotaStore exposes the quota operations consumed by the handler.
type QuotaStore interface {
	Remaining(ctx context.Context, userID string) (int, error)
	EnsureQuota(ctx context.Context, userID string, credits int) error
}

type QuotaHandler struct {
	store          QuotaStore
	defaultCredits int
}

func NewQuotaHandler(store QuotaStore, defaultCredits int) *QuotaHandler {
	return &QuotaHandler{store: store, defaultCredits: defaultCredits}
}

// GetQuota returns the caller's remaining generation credits, seeding the
// default balance on first sight of a user.
// GET /api/v1/quota
func (h *QuotaHandler) GetQuota(w http.ResponseWriter, r *http.Request) {
	userID, err := getUserID(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "missing user context")
		return
	}

	remaining, err := h.store.Remaining(r.Context(), userID)
	if errors.Is(err, artifact.ErrNotFound) {
		if seedErr := h.store.EnsureQuota(r.Context(), userID, h.defaultCredits); seedErr != nil {
			writeError(w, http.StatusInternalServerError, "failed to initialize quota")
			return
		}
		remaining = h.defaultCredits
	} else if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read quota")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"remaining": remaining})
}

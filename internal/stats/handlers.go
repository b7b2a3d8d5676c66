package stats

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/EngCalc/calc-backend/internal/storage"
	"github.com/EngCalc/calc-backend/internal/utils"
)

// Source is the slice of storage the counters read from.
type Source interface {
	ListCalculationsByUser(ctx context.Context, userID string) ([]storage.Calculation, error)
	ListProjectsByUser(ctx context.Context, userID string) ([]storage.Project, error)
}

type Handler struct {
	Store Source
	// Now defaults to time.Now.
	Now func() time.Time
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	calcs, err := h.Store.ListCalculationsByUser(r.Context(), userID)
	if err != nil {
		log.Printf("[stats] calculations for %s: %v", userID, err)
		utils.WriteError(w, http.StatusInternalServerError, "Failed to compute stats")
		return
	}
	projects, err := h.Store.ListProjectsByUser(r.Context(), userID)
	if err != nil {
		log.Printf("[stats] projects for %s: %v", userID, err)
		utils.WriteError(w, http.StatusInternalServerError, "Failed to compute stats")
		return
	}

	utils.WriteJSON(w, http.StatusOK, Compute(calcs, projects, h.now()))
}

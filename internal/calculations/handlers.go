// Package calculations serves the saved calculations of the signed in user.
package calculations

import (
	"errors"
	"log"
	"net/http"

	"github.com/EngCalc/calc-backend/internal/storage"
	"github.com/EngCalc/calc-backend/internal/utils"
	"github.com/go-chi/chi/v5"
)

const notFound = "Calculation not found"

type Handler struct {
	Store storage.CalculationStore
}

// owned loads the calculation named in the URL. Records of other users are
// reported exactly like missing ones.
func (h *Handler) owned(w http.ResponseWriter, r *http.Request) (*storage.Calculation, bool) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "Not authenticated")
		return nil, false
	}

	calc, err := h.Store.GetCalculation(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, storage.ErrNotFound) {
		utils.WriteError(w, http.StatusNotFound, notFound)
		return nil, false
	}
	if err != nil {
		log.Printf("[calculations] get: %v", err)
		utils.WriteError(w, http.StatusInternalServerError, "Failed to load calculation")
		return nil, false
	}
	if calc.UserID == nil || *calc.UserID != userID {
		utils.WriteError(w, http.StatusNotFound, notFound)
		return nil, false
	}
	return calc, true
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	calcs, err := h.Store.ListCalculationsByUser(r.Context(), userID)
	if err != nil {
		log.Printf("[calculations] list for %s: %v", userID, err)
		utils.WriteError(w, http.StatusInternalServerError, "Failed to list calculations")
		return
	}
	utils.WriteJSON(w, http.StatusOK, calcs)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req CreateRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid calculation data")
		return
	}
	if err := utils.Validate(req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid calculation data: "+err.Error())
		return
	}

	calc, err := h.Store.CreateCalculation(r.Context(), storage.NewCalculation{
		UserID:      &userID,
		Type:        req.Type,
		Name:        req.Name,
		Description: req.Description,
		Inputs:      req.Inputs,
		Results:     req.Results,
		Material:    req.Material,
	})
	if err != nil {
		log.Printf("[calculations] create for %s: %v", userID, err)
		utils.WriteError(w, http.StatusInternalServerError, "Failed to create calculation")
		return
	}
	utils.WriteJSON(w, http.StatusOK, calc)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	calc, ok := h.owned(w, r)
	if !ok {
		return
	}
	utils.WriteJSON(w, http.StatusOK, calc)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	calc, ok := h.owned(w, r)
	if !ok {
		return
	}

	var req UpdateRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid calculation data")
		return
	}
	if msg := req.validate(); msg != "" {
		utils.WriteError(w, http.StatusBadRequest, "Invalid calculation data: "+msg)
		return
	}

	updated, err := h.Store.UpdateCalculation(r.Context(), calc.ID, req.patch())
	if errors.Is(err, storage.ErrNotFound) {
		// Deleted between the ownership check and the write.
		utils.WriteError(w, http.StatusNotFound, notFound)
		return
	}
	if err != nil {
		log.Printf("[calculations] update %s: %v", calc.ID, err)
		utils.WriteError(w, http.StatusInternalServerError, "Failed to update calculation")
		return
	}
	utils.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	calc, ok := h.owned(w, r)
	if !ok {
		return
	}

	if _, err := h.Store.DeleteCalculation(r.Context(), calc.ID); err != nil {
		log.Printf("[calculations] delete %s: %v", calc.ID, err)
		utils.WriteError(w, http.StatusInternalServerError, "Failed to delete calculation")
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.MessageResponse{Message: "Calculation deleted"})
}

// Package projects serves named groupings of calculations owned by the
// signed in user.
package projects

import (
	"errors"
	"log"
	"net/http"

	"github.com/EngCalc/calc-backend/internal/storage"
	"github.com/EngCalc/calc-backend/internal/utils"
	"github.com/go-chi/chi/v5"
)

const notFound = "Project not found"

type Handler struct {
	Store storage.ProjectStore
}

func (h *Handler) owned(w http.ResponseWriter, r *http.Request) (*storage.Project, bool) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "Not authenticated")
		return nil, false
	}

	project, err := h.Store.GetProject(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, storage.ErrNotFound) {
		utils.WriteError(w, http.StatusNotFound, notFound)
		return nil, false
	}
	if err != nil {
		log.Printf("[projects] get: %v", err)
		utils.WriteError(w, http.StatusInternalServerError, "Failed to load project")
		return nil, false
	}
	// Someone else's project is indistinguishable from a missing one.
	if project.UserID == nil || *project.UserID != userID {
		utils.WriteError(w, http.StatusNotFound, notFound)
		return nil, false
	}
	return project, true
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	projects, err := h.Store.ListProjectsByUser(r.Context(), userID)
	if err != nil {
		log.Printf("[projects] list for %s: %v", userID, err)
		utils.WriteError(w, http.StatusInternalServerError, "Failed to list projects")
		return
	}
	utils.WriteJSON(w, http.StatusOK, projects)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req CreateRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid project data")
		return
	}
	if err := utils.Validate(req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid project data: "+err.Error())
		return
	}

	project, err := h.Store.CreateProject(r.Context(), storage.NewProject{
		UserID:       &userID,
		Name:         req.Name,
		Description:  req.Description,
		Calculations: req.Calculations,
		Status:       req.Status,
	})
	if err != nil {
		log.Printf("[projects] create for %s: %v", userID, err)
		utils.WriteError(w, http.StatusInternalServerError, "Failed to create project")
		return
	}
	utils.WriteJSON(w, http.StatusOK, project)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	project, ok := h.owned(w, r)
	if !ok {
		return
	}
	utils.WriteJSON(w, http.StatusOK, project)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	project, ok := h.owned(w, r)
	if !ok {
		return
	}

	var req UpdateRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid project data")
		return
	}
	if msg := req.validate(); msg != "" {
		utils.WriteError(w, http.StatusBadRequest, "Invalid project data: "+msg)
		return
	}

	updated, err := h.Store.UpdateProject(r.Context(), project.ID, req.patch())
	if errors.Is(err, storage.ErrNotFound) {
		utils.WriteError(w, http.StatusNotFound, notFound)
		return
	}
	if err != nil {
		log.Printf("[projects] update %s: %v", project.ID, err)
		utils.WriteError(w, http.StatusInternalServerError, "Failed to update project")
		return
	}
	utils.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	project, ok := h.owned(w, r)
	if !ok {
		return
	}

	if _, err := h.Store.DeleteProject(r.Context(), project.ID); err != nil {
		log.Printf("[projects] delete %s: %v", project.ID, err)
		utils.WriteError(w, http.StatusInternalServerError, "Failed to delete project")
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.MessageResponse{Message: "Project deleted"})
}

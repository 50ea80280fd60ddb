package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/apexbridge-tech/bugspotter/internal/api/middleware"
	"github.com/apexbridge-tech/bugspotter/internal/api/models"
	"github.com/apexbridge-tech/bugspotter/internal/api/response"
	"github.com/apexbridge-tech/bugspotter/internal/project"
)

// ProjectHandler handles admin project settings endpoints.
type ProjectHandler struct {
	service *project.Service
	logger  zerolog.Logger
}

// NewProjectHandler creates a new ProjectHandler.
func NewProjectHandler(service *project.Service, logger zerolog.Logger) *ProjectHandler {
	return &ProjectHandler{service: service, logger: logger}
}

// UpdateRetentionPolicy handles PUT /v1/admin/projects/{projectId}/retention.
// A null policy clears the project's override back to the tier default.
func (h *ProjectHandler) UpdateRetentionPolicy(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectId")
	if projectID == "" {
		response.BadRequest(w, r, "projectId is required", nil)
		return
	}

	var input models.UpdateRetentionPolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid request body", nil)
		return
	}
	if errs := input.Validate(); len(errs) > 0 {
		response.BadRequest(w, r, "invalid retention policy", errs)
		return
	}

	isAdmin := middleware.IsAdmin(r.Context())
	stored, err := h.service.UpdateRetention(r.Context(), projectID, input.Policy, isAdmin)
	if err != nil {
		if errors.Is(err, project.ErrProjectNotFound) {
			response.NotFound(w, r, "project not found")
			return
		}
		h.logger.Error().Err(err).Str("project_id", projectID).Msg("retention policy update failed")
		response.InternalError(w, r, "failed to update retention policy")
		return
	}

	response.JSON(w, r, http.StatusOK, models.UpdateRetentionPolicyResponse{
		ProjectID: projectID,
		Policy:    stored,
	})
}

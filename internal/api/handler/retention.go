package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/apexbridge-tech/bugspotter/internal/api/middleware"
	"github.com/apexbridge-tech/bugspotter/internal/api/models"
	"github.com/apexbridge-tech/bugspotter/internal/api/response"
	"github.com/apexbridge-tech/bugspotter/internal/retention"
)

// TxBeginner starts database transactions for operations that require one.
// *pgxpool.Pool satisfies this.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// RetentionHandler handles admin retention endpoints.
type RetentionHandler struct {
	service *retention.Service
	db      TxBeginner
	logger  zerolog.Logger
}

// NewRetentionHandler creates a new RetentionHandler. db may be nil when the
// server runs without a transactional store; hard deletion is then refused.
func NewRetentionHandler(service *retention.Service, db TxBeginner, logger zerolog.Logger) *RetentionHandler {
	return &RetentionHandler{
		service: service,
		db:      db,
		logger:  logger,
	}
}

// Preview handles GET /v1/admin/retention/preview - read-only run preview.
func (h *RetentionHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var projectID *string
	if id := r.URL.Query().Get("projectId"); id != "" {
		projectID = &id
	}

	preview, err := h.service.Preview(r.Context(), projectID)
	if err != nil {
		if errors.Is(err, retention.ErrProjectNotFound) {
			response.NotFound(w, r, "project not found")
			return
		}
		h.logger.Error().Err(err).Msg("retention preview failed")
		response.InternalError(w, r, "failed to compute retention preview")
		return
	}

	response.JSON(w, r, http.StatusOK, preview)
}

// Apply handles POST /v1/admin/retention/apply - run the retention engine.
func (h *RetentionHandler) Apply(w http.ResponseWriter, r *http.Request) {
	var input models.ApplyRetentionRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid request body", nil)
		return
	}
	if errs := input.Validate(); len(errs) > 0 {
		response.BadRequest(w, r, "invalid retention options", errs)
		return
	}

	opts := input.Options(middleware.GetUserID(r.Context()))
	result, err := h.service.Apply(r.Context(), opts)
	if err != nil {
		if errors.Is(err, retention.ErrConfirmationRequired) {
			response.Conflict(w, r, "confirm must be true to apply retention; use dryRun to preview")
			return
		}
		h.logger.Error().Err(err).Msg("retention apply failed")
		response.InternalError(w, r, "retention run failed")
		return
	}

	response.JSON(w, r, http.StatusOK, result)
}

// LegalHold handles POST /v1/admin/retention/legal-hold - set or clear holds.
func (h *RetentionHandler) LegalHold(w http.ResponseWriter, r *http.Request) {
	var input models.LegalHoldRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid request body", nil)
		return
	}
	if errs := input.Validate(); len(errs) > 0 {
		response.BadRequest(w, r, "invalid legal hold request", errs)
		return
	}

	updated, err := h.service.SetLegalHold(r.Context(), input.ReportIDs, input.Hold, middleware.GetUserID(r.Context()))
	if err != nil {
		h.logger.Error().Err(err).Msg("legal hold update failed")
		response.InternalError(w, r, "failed to update legal hold")
		return
	}

	response.JSON(w, r, http.StatusOK, models.LegalHoldResponse{
		Updated: updated,
		Hold:    input.Hold,
	})
}

// Restore handles POST /v1/admin/retention/restore - undo soft deletion.
func (h *RetentionHandler) Restore(w http.ResponseWriter, r *http.Request) {
	var input models.RestoreRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid request body", nil)
		return
	}
	if errs := input.Validate(); len(errs) > 0 {
		response.BadRequest(w, r, "invalid restore request", errs)
		return
	}

	restored, err := h.service.RestoreReports(r.Context(), input.ReportIDs)
	if err != nil {
		h.logger.Error().Err(err).Msg("restore failed")
		response.InternalError(w, r, "failed to restore reports")
		return
	}

	response.JSON(w, r, http.StatusOK, models.RestoreResponse{Restored: restored})
}

// HardDelete handles POST /v1/admin/retention/hard-delete - permanent
// deletion inside a database transaction.
func (h *RetentionHandler) HardDelete(w http.ResponseWriter, r *http.Request) {
	var input models.HardDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid request body", nil)
		return
	}
	if errs := input.Validate(); len(errs) > 0 {
		response.BadRequest(w, r, "invalid hard delete request", errs)
		return
	}

	if h.db == nil {
		response.ServiceUnavailable(w, r, "hard deletion requires a transactional store")
		return
	}

	ctx := r.Context()
	tx, err := h.db.Begin(ctx)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to begin hard delete transaction")
		response.InternalError(w, r, "failed to start transaction")
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	userID := middleware.GetUserID(ctx)
	cert, deleted, err := h.service.HardDeleteReports(ctx, tx, input.ReportIDs, userID, input.WantsCertificate())
	if err != nil {
		switch {
		case errors.Is(err, retention.ErrTransactionRequired):
			response.BadRequest(w, r, "hard deletion requires a transaction", nil)
		case errors.Is(err, retention.ErrMixedProjects):
			response.BadRequest(w, r, "reports must belong to a single project", nil)
		case errors.Is(err, retention.ErrProjectNotFound):
			response.NotFound(w, r, "project not found for the given reports")
		default:
			h.logger.Error().Err(err).Msg("hard delete failed")
			response.InternalError(w, r, "failed to hard delete reports")
		}
		return
	}

	if err := tx.Commit(ctx); err != nil {
		h.logger.Error().Err(err).Msg("failed to commit hard delete transaction")
		response.InternalError(w, r, "failed to commit transaction")
		return
	}

	h.logger.Info().
		Str("user_id", userID).
		Int64("deleted", deleted).
		Bool("certificate", cert != nil).
		Msg("reports hard deleted")

	response.JSON(w, r, http.StatusOK, models.HardDeleteResponse{
		Deleted:     deleted,
		Certificate: cert,
	})
}

package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/replicate"
	"app/internal/repository"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// EnhancementHandler handles upload and enhancement endpoints.
type EnhancementHandler struct {
	enhanceSvc service.EnhancementService
	imageSvc   service.ImageService
	ledgerSvc  service.LedgerService
	validate   *validator.Validate
	logger     zerolog.Logger
}

// NewEnhancementHandler creates a new EnhancementHandler.
func NewEnhancementHandler(
	enhanceSvc service.EnhancementService,
	imageSvc service.ImageService,
	ledgerSvc service.LedgerService,
	validate *validator.Validate,
	logger zerolog.Logger,
) *EnhancementHandler {
	return &EnhancementHandler{
		enhanceSvc: enhanceSvc,
		imageSvc:   imageSvc,
		ledgerSvc:  ledgerSvc,
		validate:   validate,
		logger:     logger,
	}
}

// RegisterRoutes mounts enhancement routes under /enhancements.
func (h *EnhancementHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/enhancements", authMw(http.HandlerFunc(h.handleCollection)))
	mux.Handle("/enhancements/", authMw(http.HandlerFunc(h.handleJob)))
}

func (h *EnhancementHandler) handleCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.initiateUpload(w, r)
	default:
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

func (h *EnhancementHandler) handleJob(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/enhancements/")
	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(path, "/complete"):
		h.completeUpload(w, r, strings.TrimSuffix(path, "/complete"))
	case r.Method == http.MethodPost && strings.HasSuffix(path, "/run"):
		h.run(w, r, strings.TrimSuffix(path, "/run"))
	case r.Method == http.MethodGet:
		h.getJob(w, r, path)
	case r.Method == http.MethodDelete:
		h.deleteJob(w, r, path)
	default:
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

// initiateUpload godoc
// @Summary Start an enhancement job
// @Description Creates a queued job and returns a presigned URL for the image upload.
// @Tags enhancements
// @Accept json
// @Produce json
// @Param upload body dto.UploadInitiateRequest true "Upload request"
// @Success 200 {object} dto.UploadInitiateResponse
// @Failure 400 {string} string "invalid request payload"
// @Failure 401 {string} string "unauthorized"
// @Failure 500 {string} string "failed to initiate upload"
// @Router /enhancements [post]
func (h *EnhancementHandler) initiateUpload(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var req dto.UploadInitiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request payload", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, "invalid request payload: "+err.Error(), http.StatusBadRequest)
		return
	}

	job, uploadURL, err := h.imageSvc.InitiateUpload(r.Context(), userID, req.Filename, req.FileSizeBytes)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to initiate upload")
		http.Error(w, "failed to initiate upload", http.StatusInternalServerError)
		return
	}
	writeJSON(w, h.logger, dto.UploadInitiateResponse{
		Job:       dto.NewJobResponse(job),
		UploadURL: uploadURL,
	})
}

// completeUpload godoc
// @Summary Confirm an image upload
// @Description Verifies the uploaded object exists and leaves the job ready to run.
// @Tags enhancements
// @Produce json
// @Param jobId path string true "Job ID"
// @Success 200 {object} dto.JobResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 404 {string} string "job not found"
// @Failure 500 {string} string "failed to complete upload"
// @Router /enhancements/{jobId}/complete [post]
func (h *EnhancementHandler) completeUpload(w http.ResponseWriter, r *http.Request, jobID string) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	job, err := h.imageSvc.CompleteUpload(r.Context(), userID, jobID)
	if err != nil {
		if errors.Is(err, repository.ErrJobNotFound) {
			http.Error(w, "job not found", http.StatusNotFound)
			return
		}
		h.logger.Error().Err(err).Str("job_id", jobID).Msg("failed to complete upload")
		http.Error(w, "failed to complete upload", http.StatusInternalServerError)
		return
	}
	writeJSON(w, h.logger, dto.NewJobResponse(job))
}

// run godoc
// @Summary Run an enhancement job
// @Description Runs the job to completion: provider call, credit charge and telemetry.
// @Tags enhancements
// @Produce json
// @Param jobId path string true "Job ID"
// @Success 200 {object} dto.EnhanceResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 402 {string} string "image quota exceeded"
// @Failure 404 {string} string "job not found"
// @Failure 502 {string} string "enhancement provider error"
// @Failure 504 {string} string "enhancement timed out"
// @Router /enhancements/{jobId}/run [post]
func (h *EnhancementHandler) run(w http.ResponseWriter, r *http.Request, jobID string) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	result, err := h.enhanceSvc.Enhance(r.Context(), userID, jobID)
	if err != nil {
		var providerErr *replicate.ProviderError
		switch {
		case errors.Is(err, service.ErrQuotaExceeded):
			http.Error(w, "image quota exceeded", http.StatusPaymentRequired)
		case errors.Is(err, repository.ErrJobNotFound):
			http.Error(w, "job not found", http.StatusNotFound)
		case errors.Is(err, replicate.ErrTimeout):
			http.Error(w, "enhancement timed out", http.StatusGatewayTimeout)
		case errors.As(err, &providerErr):
			h.logger.Error().Err(err).Str("job_id", jobID).Msg("enhancement provider error")
			http.Error(w, "enhancement provider error", http.StatusBadGateway)
		default:
			h.logger.Error().Err(err).Str("job_id", jobID).Msg("failed to run enhancement")
			http.Error(w, "failed to run enhancement", http.StatusInternalServerError)
		}
		return
	}

	remaining := 0
	if sub, err := h.ledgerSvc.GetSubscription(r.Context(), userID); err == nil {
		remaining = sub.ImagesRemaining
	}
	writeJSON(w, h.logger, dto.EnhanceResponse{Result: result, CreditsRemaining: remaining})
}

// getJob godoc
// @Summary Get an enhancement job
// @Description Returns the job's current status and progress.
// @Tags enhancements
// @Produce json
// @Param jobId path string true "Job ID"
// @Success 200 {object} dto.JobResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 404 {string} string "job not found"
// @Router /enhancements/{jobId} [get]
func (h *EnhancementHandler) getJob(w http.ResponseWriter, r *http.Request, jobID string) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	job, err := h.enhanceSvc.GetJob(r.Context(), userID, jobID)
	if err != nil {
		if errors.Is(err, repository.ErrJobNotFound) {
			http.Error(w, "job not found", http.StatusNotFound)
			return
		}
		h.logger.Error().Err(err).Str("job_id", jobID).Msg("failed to fetch job")
		http.Error(w, "failed to fetch job", http.StatusInternalServerError)
		return
	}
	writeJSON(w, h.logger, dto.NewJobResponse(job))
}

// deleteJob godoc
// @Summary Delete an enhancement job
// @Description Removes the job record and its stored image.
// @Tags enhancements
// @Param jobId path string true "Job ID"
// @Success 204 {string} string "deleted"
// @Failure 401 {string} string "unauthorized"
// @Failure 404 {string} string "job not found"
// @Router /enhancements/{jobId} [delete]
func (h *EnhancementHandler) deleteJob(w http.ResponseWriter, r *http.Request, jobID string) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if err := h.imageSvc.DeleteJob(r.Context(), userID, jobID); err != nil {
		if errors.Is(err, repository.ErrJobNotFound) {
			http.Error(w, "job not found", http.StatusNotFound)
			return
		}
		h.logger.Error().Err(err).Str("job_id", jobID).Msg("failed to delete job")
		http.Error(w, "failed to delete job", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

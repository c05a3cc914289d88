package handler

import (
	"net/http"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/service"

	"github.com/rs/zerolog"
)

// UsageHandler exposes cost telemetry endpoints.
type UsageHandler struct {
	telemetrySvc service.TelemetryService
	logger       zerolog.Logger
}

// NewUsageHandler creates a new UsageHandler.
func NewUsageHandler(telemetrySvc service.TelemetryService, logger zerolog.Logger) *UsageHandler {
	return &UsageHandler{telemetrySvc: telemetrySvc, logger: logger}
}

// RegisterRoutes registers the usage endpoints.
func (h *UsageHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	mux.Handle("/usage/summary", authMiddleware(http.HandlerFunc(h.Summary)))
}

// Summary godoc
// @Summary Get the usage cost summary
// @Description Aggregates the user's usage log into total, daily and monthly cost with a per-quality breakdown.
// @Tags usage
// @Produce json
// @Success 200 {object} dto.UsageSummaryResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 500 {string} string "failed to summarize usage"
// @Router /usage/summary [get]
func (h *UsageHandler) Summary(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	summary, err := h.telemetrySvc.Summarize(r.Context(), userID)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to summarize usage")
		http.Error(w, "failed to summarize usage", http.StatusInternalServerError)
		return
	}
	writeJSON(w, h.logger, dto.NewUsageSummaryResponse(summary))
}

package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/services"
)

const cacheControl = "public, max-age=300"

type APIHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewAPIHandlers(analytics *services.Analytics, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

func (h *APIHandlers) apply(r *http.Request) *models.DashboardResult {
	sel := selectionFromQuery(r.URL.Query(), h.analytics.FullSelection())
	return h.analytics.Apply(r.Context(), sel)
}

func writeCached(w http.ResponseWriter, data any) {
	errors.WriteSuccessWithHeaders(w, data, map[string]string{
		"Cache-Control": cacheControl,
	})
}

func (h *APIHandlers) HandleFilters(w http.ResponseWriter, r *http.Request) {
	writeCached(w, h.analytics.Options())
}

func (h *APIHandlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	writeCached(w, h.apply(r))
}

func (h *APIHandlers) HandleSalesByCategory(w http.ResponseWriter, r *http.Request) {
	writeCached(w, h.apply(r).SalesByCategory)
}

func (h *APIHandlers) HandleRatingsByDelivery(w http.ResponseWriter, r *http.Request) {
	writeCached(w, h.apply(r).RatingsByDelivery)
}

func (h *APIHandlers) HandleSalesByPayment(w http.ResponseWriter, r *http.Request) {
	writeCached(w, h.apply(r).SalesByPayment)
}

func (h *APIHandlers) HandleSalesByMonth(w http.ResponseWriter, r *http.Request) {
	writeCached(w, h.apply(r).SalesByMonth)
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {

	healthData := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	}

	errors.WriteSuccess(w, healthData)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {

	stats := h.analytics.Stats()

	errors.WriteSuccess(w, stats)
}

func (h *APIHandlers) HandleNotFound(w http.ResponseWriter, r *http.Request) {
	err := errors.NotFound("route not found").WithDetails(r.URL.Path)
	errors.WriteError(w, h.logger, err, requestID(r))
}

package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/starfederation/datastar-go/datastar"

	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/ui/templates"
)

// filterSignals mirrors the filter signals bound to the multi-selects. A nil
// field means the client did not send that signal and every value is kept.
type filterSignals struct {
	Categories     *[]string `json:"categories"`
	States         *[]string `json:"states"`
	PaymentMethods *[]string `json:"payments"`
}

func (s filterSignals) selection(full models.Selection) models.Selection {
	pick := func(v *[]string, all []string) []string {
		if v == nil {
			return all
		}
		return *v
	}
	return models.Selection{
		Categories:     pick(s.Categories, full.Categories),
		States:         pick(s.States, full.States),
		PaymentMethods: pick(s.PaymentMethods, full.PaymentMethods),
	}
}

type SSEHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewSSEHandlers(analytics *services.Analytics, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

func requestID(r *http.Request) string {
	return observability.GetRequestID(r.Context())
}

func (h *SSEHandlers) renderMetrics(r *http.Request, result *models.DashboardResult) (string, error) {
	var buf strings.Builder
	err := templates.MetricCards(result).Render(r.Context(), &buf)
	return buf.String(), err
}

// HandleDashboard reruns the pipeline for the selection carried in the
// request signals and patches the metric cards and chart data.
func (h *SSEHandlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	var signals filterSignals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		errors.WriteError(w, h.logger, errors.BadRequestWrap(err, "invalid filter signals"), requestID(r))
		return
	}

	result := h.analytics.Apply(r.Context(), signals.selection(h.analytics.FullSelection()))
	h.patchResult(w, r, result, nil)
}

// HandleReset selects every filter value again and patches the full result.
func (h *SSEHandlers) HandleReset(w http.ResponseWriter, r *http.Request) {
	full := h.analytics.FullSelection()
	result := h.analytics.Apply(r.Context(), full)
	h.patchResult(w, r, result, templates.SelectionSignals(full))
}

func (h *SSEHandlers) patchResult(w http.ResponseWriter, r *http.Request, result *models.DashboardResult, extra map[string]any) {
	html, err := h.renderMetrics(r, result)
	if err != nil {
		h.logger.Error("render metrics", "error", err, "request_id", requestID(r))
		errors.WriteError(w, h.logger, errors.InternalWrap(err, "render metrics"), requestID(r))
		return
	}

	signals := templates.ChartSignals(result)
	for k, v := range extra {
		signals[k] = v
	}
	jsonData, err := json.Marshal(signals)
	if err != nil {
		h.logger.Error("marshal chart signals", "error", err, "request_id", requestID(r))
		errors.WriteError(w, h.logger, errors.InternalWrap(err, "marshal chart signals"), requestID(r))
		return
	}

	sse := datastar.NewSSE(w, r)

	if err := sse.PatchElements(html); err != nil {
		h.logger.Warn("patch metrics", "error", err, "request_id", requestID(r))
		return
	}
	if err := sse.PatchSignals(jsonData); err != nil {
		h.logger.Warn("patch chart signals", "error", err, "request_id", requestID(r))
		return
	}

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

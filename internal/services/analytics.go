package services

import (
	"context"
	"log/slog"

	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
)

// Analytics serves pipeline runs against one shared dataset. Each call takes
// its own selection, so concurrent sessions need no coordination.
type Analytics struct {
	dataset *Dataset
	logger  *slog.Logger
}

func NewAnalytics(dataset *Dataset, logger *slog.Logger) *Analytics {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analytics{
		dataset: dataset,
		logger:  logger,
	}
}

func (a *Analytics) Dataset() *Dataset {
	return a.dataset
}

func (a *Analytics) Options() models.FilterOptions {
	return a.dataset.Options()
}

func (a *Analytics) FullSelection() models.Selection {
	return a.dataset.FullSelection()
}

func (a *Analytics) Apply(ctx context.Context, sel models.Selection) *models.DashboardResult {
	ctx, span := observability.StartSpan(ctx, "pipeline.apply")
	defer span.End(ctx, a.logger)

	result := ApplyFilters(a.dataset, sel)

	span.SetAttr("rows.total", a.dataset.Len())
	span.SetAttr("rows.filtered", result.RowCount)
	span.SetAttr("empty", result.Empty)

	a.logger.DebugContext(ctx, "pipeline applied",
		"categories", len(sel.Categories),
		"states", len(sel.States),
		"payments", len(sel.PaymentMethods),
		"rows", result.RowCount,
		"trace_id", span.TraceID,
		"request_id", observability.GetRequestID(ctx),
	)

	return result
}

// Utility method for monitoring
func (a *Analytics) Stats() map[string]any {
	return map[string]any{
		"source":          a.dataset.Source(),
		"record_count":    a.dataset.Len(),
		"loaded_at":       a.dataset.LoadedAt(),
		"categories":      len(a.dataset.categories),
		"states":          len(a.dataset.states),
		"payment_methods": len(a.dataset.paymentMethods),
	}
}

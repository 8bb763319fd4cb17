//go:generate go run github.com/a-h/templ/cmd/templ@v0.3.943 generate

package templates

import (
	"encoding/json"
	"fmt"

	"sales-dashboard/internal/models"
)

// Page signals. The filter signals are sent back on every request; the
// underscore-prefixed chart signals stay in the browser.
const (
	SignalCategories   = "categories"
	SignalStates       = "states"
	SignalPayments     = "payments"
	SignalCategoryData = "_categoryData"
	SignalRatingData   = "_ratingData"
	SignalPaymentData  = "_paymentData"
	SignalMonthlyData  = "_monthlyData"
	SignalRowCount     = "_rowCount"
)

const MetricsElementID = "metrics"

// ChartSignals returns the signal patch carrying the aggregate tables.
func ChartSignals(result *models.DashboardResult) map[string]any {
	return map[string]any{
		SignalCategoryData: result.SalesByCategory,
		SignalRatingData:   result.RatingsByDelivery,
		SignalPaymentData:  result.SalesByPayment,
		SignalMonthlyData:  result.SalesByMonth,
		SignalRowCount:     result.RowCount,
	}
}

// SelectionSignals returns the signal patch that selects the given values.
func SelectionSignals(sel models.Selection) map[string]any {
	return map[string]any{
		SignalCategories: nonNil(sel.Categories),
		SignalStates:     nonNil(sel.States),
		SignalPayments:   nonNil(sel.PaymentMethods),
	}
}

func initialSignals(opts models.FilterOptions, initial *models.DashboardResult) (string, error) {
	signals := SelectionSignals(models.Selection{
		Categories:     opts.Categories,
		States:         opts.States,
		PaymentMethods: opts.PaymentMethods,
	})
	for k, v := range ChartSignals(initial) {
		signals[k] = v
	}
	data, err := json.Marshal(signals)
	if err != nil {
		return "", fmt.Errorf("marshal initial signals: %w", err)
	}
	return string(data), nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

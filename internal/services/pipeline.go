package services

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/dustin/go-humanize"

	"sales-dashboard/internal/models"
)

const notAvailable = "N/A"

// ApplyFilters runs the filter and aggregation pipeline over ds. It never
// mutates ds and never fails: a selection matching no rows yields an empty
// result with zero metrics.
func ApplyFilters(ds *Dataset, sel models.Selection) *models.DashboardResult {
	rows := filterRows(ds.records, sel)

	result := &models.DashboardResult{
		Rows:     rows,
		RowCount: len(rows),
		Empty:    len(rows) == 0,
	}
	result.Metrics = computeMetrics(rows)
	result.Display = formatMetrics(result.Metrics, result.Empty)
	result.SalesByCategory = salesByCategory(rows)
	result.RatingsByDelivery = ratingsByDelivery(rows)
	result.SalesByPayment = salesByPayment(rows)
	result.SalesByMonth = salesByMonth(rows)
	result.SalesByQuarter = salesByQuarter(rows)
	return result
}

type stringSet map[string]struct{}

func newStringSet(values []string) stringSet {
	s := make(stringSet, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

func (s stringSet) has(v string) bool {
	_, ok := s[v]
	return ok
}

func filterRows(records []models.Transaction, sel models.Selection) []models.Transaction {
	categories := newStringSet(sel.Categories)
	states := newStringSet(sel.States)
	payments := newStringSet(sel.PaymentMethods)

	out := make([]models.Transaction, 0)
	if len(categories) == 0 || len(states) == 0 || len(payments) == 0 {
		return out
	}

	for _, tx := range records {
		if categories.has(tx.ProductCategory) && states.has(tx.State) && payments.has(tx.PaymentMethod) {
			out = append(out, tx)
		}
	}
	return out
}

func computeMetrics(rows []models.Transaction) models.Metrics {
	if len(rows) == 0 {
		return models.Metrics{}
	}

	var revenue, ratings float64
	var delivered, satisfied int
	for _, tx := range rows {
		revenue += tx.TotalSalesINR
		ratings += tx.ReviewRating
		delivered += tx.DeliveredFlag
		satisfied += tx.Satisfied
	}

	n := float64(len(rows))
	return models.Metrics{
		TotalRevenue:        revenue,
		AvgRating:           ratings / n,
		DeliverySuccessRate: float64(delivered) / n * 100,
		SatisfactionRate:    float64(satisfied) / n * 100,
	}
}

func formatMetrics(m models.Metrics, empty bool) models.MetricsDisplay {
	d := models.MetricsDisplay{
		TotalRevenue: humanize.Comma(int64(math.Round(m.TotalRevenue))),
	}
	if empty {
		d.AvgRating = notAvailable
		d.DeliverySuccessRate = notAvailable
		d.SatisfactionRate = notAvailable
		return d
	}
	d.AvgRating = fmt.Sprintf("%.2f", m.AvgRating)
	d.DeliverySuccessRate = fmt.Sprintf("%.1f%%", m.DeliverySuccessRate)
	d.SatisfactionRate = fmt.Sprintf("%.1f%%", m.SatisfactionRate)
	return d
}

// groupSum sums Total_Sales_INR per key, keeping keys in first-appearance order.
func groupSum(rows []models.Transaction, key func(models.Transaction) string) ([]string, map[string]float64) {
	order := make([]string, 0)
	sums := make(map[string]float64)
	for _, tx := range rows {
		k := key(tx)
		if _, ok := sums[k]; !ok {
			order = append(order, k)
		}
		sums[k] += tx.TotalSalesINR
	}
	return order, sums
}

func salesByCategory(rows []models.Transaction) []models.CategorySales {
	order, sums := groupSum(rows, func(tx models.Transaction) string { return tx.ProductCategory })

	result := make([]models.CategorySales, 0, len(order))
	for _, k := range order {
		result = append(result, models.CategorySales{Category: k, TotalSales: sums[k]})
	}
	slices.SortStableFunc(result, func(a, b models.CategorySales) int {
		return cmp.Compare(b.TotalSales, a.TotalSales)
	})
	return result
}

func salesByPayment(rows []models.Transaction) []models.PaymentSales {
	order, sums := groupSum(rows, func(tx models.Transaction) string { return tx.PaymentMethod })

	result := make([]models.PaymentSales, 0, len(order))
	for _, k := range order {
		result = append(result, models.PaymentSales{PaymentMethod: k, TotalSales: sums[k]})
	}
	return result
}

func salesByMonth(rows []models.Transaction) []models.MonthlySales {
	order, sums := groupSum(rows, func(tx models.Transaction) string { return tx.MonthName })

	result := make([]models.MonthlySales, 0, len(order))
	for _, k := range order {
		result = append(result, models.MonthlySales{Month: k, MonthIndex: monthOrder[k], TotalSales: sums[k]})
	}
	slices.SortFunc(result, func(a, b models.MonthlySales) int {
		return cmp.Compare(a.MonthIndex, b.MonthIndex)
	})
	return result
}

func salesByQuarter(rows []models.Transaction) []models.QuarterSales {
	var sums [4]float64
	var seen [4]bool
	for _, tx := range rows {
		sums[tx.Quarter-1] += tx.TotalSalesINR
		seen[tx.Quarter-1] = true
	}

	result := make([]models.QuarterSales, 0, 4)
	for i := range sums {
		if seen[i] {
			result = append(result, models.QuarterSales{Quarter: i + 1, TotalSales: sums[i]})
		}
	}
	return result
}

func ratingsByDelivery(rows []models.Transaction) []models.RatingDistribution {
	order := make([]string, 0)
	groups := make(map[string][]float64)
	for _, tx := range rows {
		if _, ok := groups[tx.DeliveryStatus]; !ok {
			order = append(order, tx.DeliveryStatus)
		}
		groups[tx.DeliveryStatus] = append(groups[tx.DeliveryStatus], tx.ReviewRating)
	}

	result := make([]models.RatingDistribution, 0, len(order))
	for _, status := range order {
		ratings := groups[status]
		sorted := slices.Clone(ratings)
		slices.Sort(sorted)
		result = append(result, models.RatingDistribution{
			DeliveryStatus: status,
			Ratings:        ratings,
			Count:          len(ratings),
			Q1:             quantile(sorted, 0.25),
			Median:         quantile(sorted, 0.5),
			Q3:             quantile(sorted, 0.75),
		})
	}
	return result
}

// quantile uses linear interpolation between closest ranks. sorted must be
// ascending and non-empty.
func quantile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := p * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

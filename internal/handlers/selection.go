package handlers

import (
	"net/url"

	"sales-dashboard/internal/models"
)

const (
	paramCategory = "category"
	paramState    = "state"
	paramPayment  = "payment"
)

// selectionFromQuery builds a selection from repeatable query parameters. A
// parameter that is absent selects every value of its dimension; one that is
// present with only empty values selects nothing.
func selectionFromQuery(q url.Values, full models.Selection) models.Selection {
	return models.Selection{
		Categories:     dimensionFromQuery(q, paramCategory, full.Categories),
		States:         dimensionFromQuery(q, paramState, full.States),
		PaymentMethods: dimensionFromQuery(q, paramPayment, full.PaymentMethods),
	}
}

func dimensionFromQuery(q url.Values, key string, all []string) []string {
	raw, ok := q[key]
	if !ok {
		return all
	}
	values := make([]string, 0, len(raw))
	for _, v := range raw {
		if v != "" {
			values = append(values, v)
		}
	}
	return values
}

package models

import "time"

// Transaction is one enriched sales record. The derived fields are filled
// once at load time and never change afterwards.
type Transaction struct {
	OrderID         string
	Date            time.Time
	ProductCategory string
	State           string
	PaymentMethod   string
	Quantity        int
	TotalSalesINR   float64
	ReviewRating    float64
	DeliveryStatus  string

	Month         int
	MonthName     string
	Quarter       int
	DeliveredFlag int
	Satisfied     int
	LogTotalSales float64
}

// Selection holds the values chosen for each filter dimension. A nil or
// empty slice selects nothing for that dimension.
type Selection struct {
	Categories     []string `json:"categories"`
	States         []string `json:"states"`
	PaymentMethods []string `json:"payments"`
}

type FilterOptions struct {
	Categories     []string `json:"categories"`
	States         []string `json:"states"`
	PaymentMethods []string `json:"payments"`
}

type Metrics struct {
	TotalRevenue        float64 `json:"total_revenue"`
	AvgRating           float64 `json:"avg_rating"`
	DeliverySuccessRate float64 `json:"delivery_success_rate"`
	SatisfactionRate    float64 `json:"satisfaction_rate"`
}

// MetricsDisplay carries the metric values formatted for the metric cards.
type MetricsDisplay struct {
	TotalRevenue        string `json:"total_revenue"`
	AvgRating           string `json:"avg_rating"`
	DeliverySuccessRate string `json:"delivery_success_rate"`
	SatisfactionRate    string `json:"satisfaction_rate"`
}

type CategorySales struct {
	Category   string  `json:"category"`
	TotalSales float64 `json:"total_sales"`
}

type PaymentSales struct {
	PaymentMethod string  `json:"payment_method"`
	TotalSales    float64 `json:"total_sales"`
}

type MonthlySales struct {
	Month      string  `json:"month"`
	MonthIndex int     `json:"month_index"`
	TotalSales float64 `json:"total_sales"`
}

type QuarterSales struct {
	Quarter    int     `json:"quarter"`
	TotalSales float64 `json:"total_sales"`
}

// RatingDistribution groups the raw review ratings of one delivery status.
// Ratings keeps the values in row order; the quartiles are derived from them.
type RatingDistribution struct {
	DeliveryStatus string    `json:"delivery_status"`
	Ratings        []float64 `json:"ratings"`
	Count          int       `json:"count"`
	Q1             float64   `json:"q1"`
	Median         float64   `json:"median"`
	Q3             float64   `json:"q3"`
}

type DashboardResult struct {
	Rows              []Transaction        `json:"-"`
	RowCount          int                  `json:"row_count"`
	Empty             bool                 `json:"empty"`
	Metrics           Metrics              `json:"metrics"`
	Display           MetricsDisplay       `json:"display"`
	SalesByCategory   []CategorySales      `json:"sales_by_category"`
	RatingsByDelivery []RatingDistribution `json:"ratings_by_delivery"`
	SalesByPayment    []PaymentSales       `json:"sales_by_payment"`
	SalesByMonth      []MonthlySales       `json:"sales_by_month"`
	SalesByQuarter    []QuarterSales       `json:"sales_by_quarter"`
}

package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"reflect"
	"testing"
	"time"

	"sales-dashboard/internal/models"
	"sales-dashboard/internal/services"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func createTestAnalytics() *services.Analytics {
	ds := services.NewDatasetFromRecords("test", []models.Transaction{
		{
			OrderID:         "O1",
			Date:            time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
			ProductCategory: "Electronics",
			State:           "Delhi",
			PaymentMethod:   "UPI",
			TotalSalesINR:   1000,
			ReviewRating:    5,
			DeliveryStatus:  "Delivered",
		},
		{
			OrderID:         "O2",
			Date:            time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC),
			ProductCategory: "Apparel",
			State:           "Delhi",
			PaymentMethod:   "COD",
			TotalSalesINR:   500,
			ReviewRating:    2,
			DeliveryStatus:  "Returned",
		},
		{
			OrderID:         "O3",
			Date:            time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC),
			ProductCategory: "Electronics",
			State:           "Mumbai",
			PaymentMethod:   "UPI",
			TotalSalesINR:   300,
			ReviewRating:    4,
			DeliveryStatus:  "Delivered",
		},
	})
	return services.NewAnalytics(ds, testLogger())
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder, data any) {
	t.Helper()

	var resp envelope
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode JSON: %v", err)
	}
	if !resp.Success {
		t.Fatal("expected success=true in response")
	}
	if err := json.Unmarshal(resp.Data, data); err != nil {
		t.Fatalf("failed to decode data: %v", err)
	}
}

func TestNewAPIHandlers(t *testing.T) {
	analytics := createTestAnalytics()
	handlers := NewAPIHandlers(analytics, testLogger())

	if handlers == nil {
		t.Fatal("NewAPIHandlers() returned nil")
	}

	if handlers.analytics != analytics {
		t.Error("NewAPIHandlers() should set analytics field")
	}
}

func TestAPIHandlers_HandleFilters(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/filters", nil)
	w := httptest.NewRecorder()

	handlers.HandleFilters(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	if cc := w.Header().Get("Cache-Control"); cc != "public, max-age=300" {
		t.Errorf("expected cache-control 'public, max-age=300', got %q", cc)
	}

	var opts models.FilterOptions
	decodeEnvelope(t, w, &opts)

	if !reflect.DeepEqual(opts.Categories, []string{"Electronics", "Apparel"}) {
		t.Errorf("categories = %v", opts.Categories)
	}
	if !reflect.DeepEqual(opts.States, []string{"Delhi", "Mumbai"}) {
		t.Errorf("states = %v", opts.States)
	}
	if !reflect.DeepEqual(opts.PaymentMethods, []string{"UPI", "COD"}) {
		t.Errorf("payments = %v", opts.PaymentMethods)
	}
}

func TestAPIHandlers_HandleDashboard(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard?category=Electronics", nil)
	w := httptest.NewRecorder()

	handlers.HandleDashboard(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected content-type 'application/json', got %q", ct)
	}

	var result models.DashboardResult
	decodeEnvelope(t, w, &result)

	if result.RowCount != 2 {
		t.Errorf("row_count = %d, want 2", result.RowCount)
	}
	if result.Metrics.TotalRevenue != 1300 {
		t.Errorf("total_revenue = %v, want 1300", result.Metrics.TotalRevenue)
	}
	if result.Metrics.AvgRating != 4.5 {
		t.Errorf("avg_rating = %v, want 4.5", result.Metrics.AvgRating)
	}
	if result.Metrics.DeliverySuccessRate != 100 {
		t.Errorf("delivery_success_rate = %v, want 100", result.Metrics.DeliverySuccessRate)
	}
	want := []models.CategorySales{{Category: "Electronics", TotalSales: 1300}}
	if !reflect.DeepEqual(result.SalesByCategory, want) {
		t.Errorf("sales_by_category = %+v, want %+v", result.SalesByCategory, want)
	}
}

func TestAPIHandlers_HandleDashboard_EmptySelection(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard?payment=", nil)
	w := httptest.NewRecorder()

	handlers.HandleDashboard(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("empty selection should not fail, got status %d", w.Code)
	}

	var result models.DashboardResult
	decodeEnvelope(t, w, &result)

	if !result.Empty || result.RowCount != 0 {
		t.Errorf("expected empty result, got row_count=%d empty=%v", result.RowCount, result.Empty)
	}
	if result.Display.AvgRating != "N/A" {
		t.Errorf("avg rating display = %q, want N/A", result.Display.AvgRating)
	}
	if result.SalesByCategory == nil || len(result.SalesByCategory) != 0 {
		t.Errorf("sales_by_category should be an empty array, got %v", result.SalesByCategory)
	}
}

func TestAPIHandlers_Aggregates(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(), testLogger())

	t.Run("sales by category", func(t *testing.T) {
		w := httptest.NewRecorder()
		handlers.HandleSalesByCategory(w, httptest.NewRequest(http.MethodGet, "/api/sales-by-category", nil))

		var got []models.CategorySales
		decodeEnvelope(t, w, &got)
		want := []models.CategorySales{{Category: "Electronics", TotalSales: 1300}, {Category: "Apparel", TotalSales: 500}}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %+v, want %+v", got, want)
		}
	})

	t.Run("ratings by delivery", func(t *testing.T) {
		w := httptest.NewRecorder()
		handlers.HandleRatingsByDelivery(w, httptest.NewRequest(http.MethodGet, "/api/ratings-by-delivery?state=Delhi", nil))

		var got []models.RatingDistribution
		decodeEnvelope(t, w, &got)
		if len(got) != 2 {
			t.Fatalf("expected 2 delivery groups, got %d", len(got))
		}
		if got[0].DeliveryStatus != "Delivered" || !reflect.DeepEqual(got[0].Ratings, []float64{5}) {
			t.Errorf("unexpected first group %+v", got[0])
		}
		if got[1].DeliveryStatus != "Returned" || !reflect.DeepEqual(got[1].Ratings, []float64{2}) {
			t.Errorf("unexpected second group %+v", got[1])
		}
	})

	t.Run("sales by payment", func(t *testing.T) {
		w := httptest.NewRecorder()
		handlers.HandleSalesByPayment(w, httptest.NewRequest(http.MethodGet, "/api/sales-by-payment", nil))

		var got []models.PaymentSales
		decodeEnvelope(t, w, &got)
		want := []models.PaymentSales{{PaymentMethod: "UPI", TotalSales: 1300}, {PaymentMethod: "COD", TotalSales: 500}}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %+v, want %+v", got, want)
		}
	})

	t.Run("sales by month", func(t *testing.T) {
		w := httptest.NewRecorder()
		handlers.HandleSalesByMonth(w, httptest.NewRequest(http.MethodGet, "/api/sales-by-month", nil))

		var got []models.MonthlySales
		decodeEnvelope(t, w, &got)
		want := []models.MonthlySales{
			{Month: "Jan", MonthIndex: 1, TotalSales: 1300},
			{Month: "Feb", MonthIndex: 2, TotalSales: 500},
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %+v, want %+v", got, want)
		}
	})
}

func TestSelectionFromQuery(t *testing.T) {
	full := models.Selection{
		Categories:     []string{"A", "B"},
		States:         []string{"S"},
		PaymentMethods: []string{"P", "Q"},
	}

	tests := []struct {
		name  string
		query string
		want  models.Selection
	}{
		{
			name:  "no params selects everything",
			query: "",
			want:  full,
		},
		{
			name:  "repeated params",
			query: "category=A&category=B&payment=Q",
			want:  models.Selection{Categories: []string{"A", "B"}, States: []string{"S"}, PaymentMethods: []string{"Q"}},
		},
		{
			name:  "empty value selects nothing",
			query: "state=",
			want:  models.Selection{Categories: []string{"A", "B"}, States: []string{}, PaymentMethods: []string{"P", "Q"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			if err != nil {
				t.Fatal(err)
			}
			got := selectionFromQuery(q, full)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("selectionFromQuery() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestAPIHandlers_HandleHealth(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	handlers.HandleHealth(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var data map[string]string
	decodeEnvelope(t, w, &data)

	if data["status"] != "healthy" {
		t.Errorf("expected status 'healthy', got %q", data["status"])
	}
	if _, err := time.Parse(time.RFC3339, data["timestamp"]); err != nil {
		t.Errorf("invalid timestamp format: %v", err)
	}
}

func TestAPIHandlers_HandleStats(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
	w := httptest.NewRecorder()

	handlers.HandleStats(w, req)

	var stats map[string]any
	decodeEnvelope(t, w, &stats)

	if count, ok := stats["record_count"].(float64); !ok || count != 3 {
		t.Errorf("record_count = %v, want 3", stats["record_count"])
	}
	if source, ok := stats["source"].(string); !ok || source != "test" {
		t.Errorf("source = %v, want test", stats["source"])
	}
}

func TestAPIHandlers_HandleNotFound(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/nope", nil)
	w := httptest.NewRecorder()

	handlers.HandleNotFound(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, w.Code)
	}

	var resp map[string]any
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode JSON: %v", err)
	}
	if success, _ := resp["success"].(bool); success {
		t.Error("expected success=false")
	}
	errBody, ok := resp["error"].(map[string]any)
	if !ok || errBody["code"] != "NOT_FOUND" {
		t.Errorf("unexpected error body %v", resp["error"])
	}
}

package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/models"
)

const (
	batchSize  = 10000
	maxWorkers = 10
)

const (
	colOrderID         = "Order_ID"
	colDate            = "Date"
	colProductCategory = "Product_Category"
	colState           = "State"
	colPaymentMethod   = "Payment_Method"
	colQuantity        = "Quantity"
	colTotalSales      = "Total_Sales_INR"
	colReviewRating    = "Review_Rating"
	colDeliveryStatus  = "Delivery_Status"
)

var requiredColumns = []string{
	colDate,
	colProductCategory,
	colState,
	colPaymentMethod,
	colTotalSales,
	colReviewRating,
	colDeliveryStatus,
}

// DefaultDateLayouts are tried in order when parsing the Date column.
var DefaultDateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"01/02/2006",
	"02-01-2006",
}

type LoadOptions struct {
	// CacheDir enables the on-disk gob cache of enriched records when set.
	CacheDir    string
	DateLayouts []string
	Logger      *slog.Logger
}

// Dataset is the enriched, read-only transaction table. It is built once and
// shared by every pipeline run without locking.
type Dataset struct {
	source         string
	loadedAt       time.Time
	records        []models.Transaction
	categories     []string
	states         []string
	paymentMethods []string
}

// LoadDataset reads the CSV at path, validates its schema and derives the
// calculated columns. Any failure is a DATA_LOAD_ERROR and no partial dataset
// is returned.
func LoadDataset(ctx context.Context, path string, opts LoadOptions) (*Dataset, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	layouts := opts.DateLayouts
	if len(layouts) == 0 {
		layouts = DefaultDateLayouts
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.DataLoadWrap(err, "dataset source not accessible").WithDetails(path)
	}

	if opts.CacheDir != "" {
		if cached, err := loadFromCache(opts.CacheDir, path, layouts); err == nil && info.ModTime().Before(cached.LastModified) {
			logger.Info("loaded dataset from cache", "source", path, "records", len(cached.Records))
			return newDataset(path, cached.Records), nil
		}
	}

	start := time.Now()
	logger.Info("processing CSV file", "filename", path)

	file, err := os.Open(path)
	if err != nil {
		return nil, errors.DataLoadWrap(err, "open dataset").WithDetails(path)
	}
	defer file.Close()

	records, err := parseCSV(ctx, file, layouts)
	if err != nil {
		return nil, err
	}

	ds := newDataset(path, records)

	if opts.CacheDir != "" {
		if err := saveToCache(opts.CacheDir, path, layouts, records); err != nil {
			logger.Warn("failed to save cache", "error", err)
		}
	}

	duration := time.Since(start)
	logger.Info("csv processing complete",
		"records", len(records),
		"duration", duration,
		"rate", fmt.Sprintf("%.0f records/sec", float64(len(records))/duration.Seconds()))

	return ds, nil
}

// NewDatasetFromRecords enriches records already held in memory. The input
// slice is copied.
func NewDatasetFromRecords(source string, records []models.Transaction) *Dataset {
	enriched := slices.Clone(records)
	for i := range enriched {
		enrich(&enriched[i])
	}
	return newDataset(source, enriched)
}

func newDataset(source string, records []models.Transaction) *Dataset {
	ds := &Dataset{
		source:   source,
		loadedAt: time.Now(),
		records:  records,
	}
	ds.categories = distinct(records, func(tx models.Transaction) string { return tx.ProductCategory })
	ds.states = distinct(records, func(tx models.Transaction) string { return tx.State })
	ds.paymentMethods = distinct(records, func(tx models.Transaction) string { return tx.PaymentMethod })
	return ds
}

func distinct(records []models.Transaction, key func(models.Transaction) string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, tx := range records {
		k := key(tx)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

func (d *Dataset) Source() string      { return d.source }
func (d *Dataset) LoadedAt() time.Time { return d.loadedAt }
func (d *Dataset) Len() int            { return len(d.records) }

// Records returns a copy of the enriched rows in source order.
func (d *Dataset) Records() []models.Transaction {
	return slices.Clone(d.records)
}

func (d *Dataset) Categories() []string     { return slices.Clone(d.categories) }
func (d *Dataset) States() []string         { return slices.Clone(d.states) }
func (d *Dataset) PaymentMethods() []string { return slices.Clone(d.paymentMethods) }

func (d *Dataset) Options() models.FilterOptions {
	return models.FilterOptions{
		Categories:     d.Categories(),
		States:         d.States(),
		PaymentMethods: d.PaymentMethods(),
	}
}

// FullSelection selects every distinct value of every dimension.
func (d *Dataset) FullSelection() models.Selection {
	return models.Selection{
		Categories:     d.Categories(),
		States:         d.States(),
		PaymentMethods: d.PaymentMethods(),
	}
}

type columnIndex map[string]int

func (c columnIndex) get(row []string, name string) string {
	idx, ok := c[name]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func parseCSV(ctx context.Context, r io.Reader, layouts []string) ([]models.Transaction, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, errors.DataLoadWrap(err, "malformed CSV")
	}
	if len(rows) == 0 {
		return nil, errors.DataLoad("empty file")
	}

	cols, err := indexHeader(rows[0])
	if err != nil {
		return nil, err
	}

	data := rows[1:]
	if len(data) == 0 {
		return nil, errors.DataLoad("no records found")
	}

	out := make([]models.Transaction, len(data))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)

	for start := 0; start < len(data); start += batchSize {
		end := min(start+batchSize, len(data))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				tx, err := parseTransaction(data[i], cols, layouts)
				if err != nil {
					// header is line 1
					return errors.DataLoadWrap(err, "invalid record").WithDetails(fmt.Sprintf("line %d", i+2))
				}
				enrich(&tx)
				out[i] = tx
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if errors.IsDataLoad(err) {
			return nil, err
		}
		return nil, errors.DataLoadWrap(err, "parse dataset")
	}

	return out, nil
}

func indexHeader(header []string) (columnIndex, error) {
	cols := make(columnIndex, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		cols[name] = i
	}

	var missing []string
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, errors.DataLoad("missing required columns").WithDetails(strings.Join(missing, ", "))
	}
	return cols, nil
}

func parseTransaction(row []string, cols columnIndex, layouts []string) (models.Transaction, error) {
	date, err := parseDate(cols.get(row, colDate), layouts)
	if err != nil {
		return models.Transaction{}, err
	}

	sales, err := strconv.ParseFloat(cols.get(row, colTotalSales), 64)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("%s: %w", colTotalSales, err)
	}
	if !isFinite(sales) {
		return models.Transaction{}, fmt.Errorf("%s: non-finite amount %v", colTotalSales, sales)
	}
	if sales < 0 {
		return models.Transaction{}, fmt.Errorf("%s: negative amount %v", colTotalSales, sales)
	}

	rating, err := strconv.ParseFloat(cols.get(row, colReviewRating), 64)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("%s: %w", colReviewRating, err)
	}
	if !isFinite(rating) {
		return models.Transaction{}, fmt.Errorf("%s: non-finite rating %v", colReviewRating, rating)
	}

	var quantity int
	if raw := cols.get(row, colQuantity); raw != "" {
		quantity, err = strconv.Atoi(raw)
		if err != nil {
			return models.Transaction{}, fmt.Errorf("%s: %w", colQuantity, err)
		}
	}

	return models.Transaction{
		OrderID:         cols.get(row, colOrderID),
		Date:            date,
		ProductCategory: cols.get(row, colProductCategory),
		State:           cols.get(row, colState),
		PaymentMethod:   cols.get(row, colPaymentMethod),
		Quantity:        quantity,
		TotalSalesINR:   sales,
		ReviewRating:    rating,
		DeliveryStatus:  cols.get(row, colDeliveryStatus),
	}, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func parseDate(value string, layouts []string) (time.Time, error) {
	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%s: cannot parse %q", colDate, value)
}

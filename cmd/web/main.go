package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"sales-dashboard/internal/config"
	"sales-dashboard/internal/middleware"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/server"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/ui/templates"
)

const (
	version       = "1.0.0"
	renderTimeout = 10 * time.Second
	cacheMaxAge   = "public, max-age=300"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:           "sales-dashboard",
	Short:         "Interactive sales dashboard over a static transaction dataset",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Load the dataset once and serve the dashboard over HTTP",
	RunE:  runServe,
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print metrics and aggregates for a filter selection",
	Long: `Print metrics and aggregates for a filter selection.

Each filter flag is repeatable. An omitted flag selects every value of its
dimension; a flag given only empty values selects nothing.`,
	RunE: runSummary,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Optional dotenv file loaded before reading the environment")

	summaryCmd.Flags().StringArray("category", nil, "Product category to include")
	summaryCmd.Flags().StringArray("state", nil, "State to include")
	summaryCmd.Flags().StringArray("payment", nil, "Payment method to include")

	rootCmd.AddCommand(serveCmd, summaryCmd)
}

func dashboardHandler(analytics *services.Analytics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
		defer cancel()

		initial := analytics.Apply(ctx, analytics.FullSelection())

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", cacheMaxAge)
		if err := templates.Dashboard(analytics.Options(), initial).Render(ctx, w); err != nil {
			http.Error(w, "render error", http.StatusInternalServerError)
		}
	}
}

// bootstrap loads configuration and the dataset. The dataset is read once
// here and shared read-only by everything that runs afterwards.
func bootstrap(ctx context.Context) (*config.Config, *slog.Logger, *services.Analytics, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load configuration: %w", err)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	loadCtx, cancel := context.WithTimeout(ctx, cfg.Dataset.LoadTimeout)
	defer cancel()

	start := time.Now()
	dataset, err := services.LoadDataset(loadCtx, cfg.Dataset.CSVFile, services.LoadOptions{
		CacheDir:    cfg.Dataset.CacheDir,
		DateLayouts: cfg.Dataset.DateLayouts,
		Logger:      logger,
	})
	if err != nil {
		logger.Error("failed to load dataset", "error", err)
		return nil, nil, nil, err
	}
	logger.Info("dataset loaded successfully", "records", dataset.Len(), "duration", time.Since(start))

	return cfg, logger, services.NewAnalytics(dataset, logger), nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, analytics, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}

	logger.Info("starting application",
		"version", version,
		"config", cfg,
	)

	templateHandlers := &server.TemplateHandlers{
		Dashboard: dashboardHandler(analytics),
	}

	srv := server.NewServer(analytics, logger, templateHandlers)

	rateLimiter := middleware.NewRateLimiter(cfg.Security)

	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Tracing(logger),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(rateLimiter, logger),
	)

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      middlewareChain(srv),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg)

	gracefulServer.RegisterShutdownHook(func(ctx context.Context) error {
		logger.Info("shutting down analytics service", "records", analytics.Dataset().Len())
		return nil
	})

	logger.Info("starting graceful server")
	if err := gracefulServer.ListenAndServe(cmd.Context()); err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	logger.Info("application stopped gracefully")
	return nil
}

func runSummary(cmd *cobra.Command, args []string) error {
	_, _, analytics, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}

	full := analytics.FullSelection()
	sel := models.Selection{
		Categories:     flagSelection(cmd, "category", full.Categories),
		States:         flagSelection(cmd, "state", full.States),
		PaymentMethods: flagSelection(cmd, "payment", full.PaymentMethods),
	}

	return writeSummary(cmd.OutOrStdout(), analytics.Apply(cmd.Context(), sel))
}

func flagSelection(cmd *cobra.Command, name string, all []string) []string {
	if !cmd.Flags().Changed(name) {
		return all
	}
	raw, _ := cmd.Flags().GetStringArray(name)
	values := make([]string, 0, len(raw))
	for _, v := range raw {
		if v != "" {
			values = append(values, v)
		}
	}
	return values
}

func writeSummary(out io.Writer, result *models.DashboardResult) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "Rows\t%d\n", result.RowCount)
	fmt.Fprintf(tw, "Total Revenue (INR)\t%s\n", result.Display.TotalRevenue)
	fmt.Fprintf(tw, "Avg. Rating\t%s\n", result.Display.AvgRating)
	fmt.Fprintf(tw, "Delivery Success Rate\t%s\n", result.Display.DeliverySuccessRate)
	fmt.Fprintf(tw, "Satisfaction Rate\t%s\n", result.Display.SatisfactionRate)

	fmt.Fprintln(tw, "\nSales by Product Category")
	for _, c := range result.SalesByCategory {
		fmt.Fprintf(tw, "  %s\t%.2f\n", c.Category, c.TotalSales)
	}

	fmt.Fprintln(tw, "\nRatings by Delivery Status")
	for _, d := range result.RatingsByDelivery {
		fmt.Fprintf(tw, "  %s\tn=%d\tq1=%.2f\tmedian=%.2f\tq3=%.2f\n", d.DeliveryStatus, d.Count, d.Q1, d.Median, d.Q3)
	}

	fmt.Fprintln(tw, "\nRevenue by Payment Method")
	for _, p := range result.SalesByPayment {
		fmt.Fprintf(tw, "  %s\t%.2f\n", p.PaymentMethod, p.TotalSales)
	}

	fmt.Fprintln(tw, "\nMonthly Revenue")
	for _, m := range result.SalesByMonth {
		fmt.Fprintf(tw, "  %s\t%.2f\n", m.Month, m.TotalSales)
	}

	fmt.Fprintln(tw, "\nQuarterly Revenue")
	for _, q := range result.SalesByQuarter {
		fmt.Fprintf(tw, "  Q%d\t%.2f\n", q.Quarter, q.TotalSales)
	}

	return tw.Flush()
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

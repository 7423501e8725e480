package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aluiziolira/go-price-sync/config"
	"github.com/aluiziolira/go-price-sync/fetch"
	"github.com/aluiziolira/go-price-sync/models"
	"github.com/aluiziolira/go-price-sync/report"
	"github.com/aluiziolira/go-price-sync/scraper"
	"github.com/aluiziolira/go-price-sync/sheet"
)

func main() {
	// Optional .env for local runs; secrets come from the environment in CI.
	_ = godotenv.Load()

	defaultCfg := config.DefaultConfig()
	strategyDefault := defaultCfg.Strategy
	if value, ok := config.EnvString("PRICESYNC_STRATEGY"); ok {
		strategyDefault = value
	}
	spreadsheetDefault := ""
	if value, ok := config.EnvString("PRICESYNC_SPREADSHEET_ID"); ok {
		spreadsheetDefault = value
	}
	worksheetDefault := defaultCfg.Worksheet
	if value, ok := config.EnvString("PRICESYNC_WORKSHEET"); ok {
		worksheetDefault = value
	}
	attemptsDefault := defaultCfg.MaxAttempts
	if value, ok, err := config.EnvInt("PRICESYNC_ATTEMPTS"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid PRICESYNC_ATTEMPTS: %v\n", err)
		os.Exit(1)
	} else if ok {
		attemptsDefault = value
	}
	attemptDelayDefault := defaultCfg.AttemptDelay
	if value, ok, err := config.EnvDuration("PRICESYNC_ATTEMPT_DELAY"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid PRICESYNC_ATTEMPT_DELAY: %v\n", err)
		os.Exit(1)
	} else if ok {
		attemptDelayDefault = value
	}
	rowDelayDefault := defaultCfg.RowDelay
	if value, ok, err := config.EnvDuration("PRICESYNC_ROW_DELAY"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid PRICESYNC_ROW_DELAY: %v\n", err)
		os.Exit(1)
	} else if ok {
		rowDelayDefault = value
	}
	metricsDefault := ""
	if value, ok := config.EnvString("PRICESYNC_METRICS_ADDR"); ok {
		metricsDefault = value
	}

	strategy := flag.String("strategy", strategyDefault, "Fetch strategy: api or browser")
	endpoint := flag.String("endpoint", defaultCfg.RenderEndpoint, "Remote rendering API endpoint")
	source := flag.String("source", defaultCfg.Source, "Source table kind: sheets or csv")
	spreadsheetID := flag.String("spreadsheet", spreadsheetDefault, "Google spreadsheet ID")
	worksheet := flag.String("worksheet", worksheetDefault, "Worksheet with the product rows")
	skuWorksheet := flag.String("sku-worksheet", "", "Optional secondary worksheet joined by SKU")
	csvPath := flag.String("csv-path", "", "CSV file path when source is csv")
	attempts := flag.Int("attempts", attemptsDefault, "Attempt budget per product")
	attemptDelay := flag.Duration("attempt-delay", attemptDelayDefault, "Pause after a transient failure")
	rowDelay := flag.Duration("row-delay", rowDelayDefault, "Courtesy pause between products")
	waitHint := flag.Duration("wait-hint", defaultCfg.WaitHint, "JS-render wait hint sent to the rendering API")
	browserWait := flag.Duration("browser-wait", defaultCfg.BrowserWait, "Element wait timeout for the browser strategy")
	screenshotDir := flag.String("screenshot-dir", "", "Directory for diagnostic screenshots (browser strategy)")
	reportFile := flag.String("report", "", "Local run report file path (empty disables)")
	reportFormat := flag.String("report-format", defaultCfg.ReportFormat, "Run report format: csv, json, or dual")
	metricsAddr := flag.String("metrics-addr", metricsDefault, "Prometheus metrics listen address (e.g. :9090)")
	verbose := flag.Bool("v", false, "Enable verbose logging")

	flag.Parse()

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	cfg := defaultCfg
	cfg.Strategy = strings.ToLower(*strategy)
	cfg.RenderEndpoint = *endpoint
	cfg.APIKey = os.Getenv("SCRAPINGANT_API_KEY")
	cfg.Source = strings.ToLower(*source)
	cfg.SpreadsheetID = *spreadsheetID
	cfg.Worksheet = *worksheet
	cfg.SKUWorksheet = *skuWorksheet
	cfg.CSVPath = *csvPath
	cfg.MaxAttempts = *attempts
	cfg.AttemptDelay = *attemptDelay
	cfg.RowDelay = *rowDelay
	cfg.WaitHint = *waitHint
	cfg.BrowserWait = *browserWait
	cfg.ScreenshotDir = *screenshotDir
	cfg.ReportFile = *reportFile
	cfg.ReportFormat = strings.ToLower(*reportFormat)
	cfg.MetricsAddr = *metricsAddr
	cfg.Verbose = *verbose

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("starting price sync",
		slog.String("strategy", cfg.Strategy),
		slog.String("source", cfg.Source),
		slog.Int("attempts", cfg.MaxAttempts),
	)

	table, skuTable, err := openTables(ctx, cfg)
	if err != nil {
		slog.Error("opening source table", slog.Any("error", err))
		os.Exit(1)
	}

	values, err := table.Read(ctx)
	if err != nil {
		slog.Error("reading source table", slog.Any("error", err))
		os.Exit(1)
	}

	doc, err := sheet.ParseDocument(values, columnsFromConfig(cfg))
	if err != nil {
		slog.Error("source table schema", slog.Any("error", err))
		os.Exit(1)
	}
	refs := doc.Refs()
	slog.Info("source table loaded",
		slog.Int("rows", len(values)-1),
		slog.Int("products", len(refs)),
	)

	fetchStrategy, err := newStrategy(cfg)
	if err != nil {
		slog.Error("initialising fetch strategy", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := fetchStrategy.Close(); err != nil {
			slog.Error("close fetch strategy", slog.Any("error", err))
		}
	}()

	controller, err := scraper.NewController(cfg, fetchStrategy)
	if err != nil {
		slog.Error("initialising controller", slog.Any("error", err))
		os.Exit(1)
	}

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(controller.Metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	run, results := controller.Run(ctx, refs)

	// An interrupted run commits nothing: partial results must never
	// overwrite the previously good sheet contents.
	if ctx.Err() != nil {
		slog.Error("run interrupted, skipping sheet commit",
			slog.Int("resolved", len(results)),
			slog.Int("total", run.TotalCount),
		)
		os.Exit(1)
	}

	doc.Apply(results)
	if err := table.Replace(ctx, doc.Values()); err != nil {
		slog.Error("committing sheet", slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("sheet committed", slog.Int("rows", len(doc.Values())-1))

	if skuTable != nil {
		if err := commitSecondary(ctx, cfg, skuTable, results); err != nil {
			slog.Error("committing secondary sheet", slog.Any("error", err))
			os.Exit(1)
		}
		slog.Info("secondary sheet committed", slog.String("worksheet", cfg.SKUWorksheet))
	}

	if cfg.ReportFile != "" {
		if err := writeReport(cfg, results); err != nil {
			slog.Error("writing run report", slog.Any("error", err))
			os.Exit(1)
		}
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	printSummary(run)
}

// openTables builds the primary table and, when configured, the secondary
// SKU-joined table. Credential loading happens here so a missing credential
// aborts before any product is processed.
func openTables(ctx context.Context, cfg *config.Config) (sheet.Table, sheet.Table, error) {
	switch cfg.Source {
	case config.SourceCSV:
		return sheet.NewCSVTable(cfg.CSVPath), nil, nil
	case config.SourceSheets:
		credentials, err := sheet.LoadCredentials(cfg.CredentialsEnv, cfg.CredentialsFile)
		if err != nil {
			return nil, nil, err
		}
		service, err := sheet.NewGoogleService(ctx, credentials)
		if err != nil {
			return nil, nil, err
		}
		primary := sheet.NewGoogleTable(service, cfg.SpreadsheetID, cfg.Worksheet)
		if cfg.SKUWorksheet == "" {
			return primary, nil, nil
		}
		return primary, sheet.NewGoogleTable(service, cfg.SpreadsheetID, cfg.SKUWorksheet), nil
	default:
		return nil, nil, fmt.Errorf("unsupported source: %s", cfg.Source)
	}
}

func newStrategy(cfg *config.Config) (fetch.Strategy, error) {
	switch cfg.Strategy {
	case config.StrategyAPI:
		return fetch.NewAPIStrategy(cfg), nil
	case config.StrategyBrowser:
		return fetch.NewBrowserStrategy(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported strategy: %s", cfg.Strategy)
	}
}

func columnsFromConfig(cfg *config.Config) sheet.Columns {
	return sheet.Columns{
		URL:     cfg.URLColumn,
		Price:   cfg.PriceColumn,
		Updated: cfg.UpdatedColumn,
		SKU:     cfg.SKUColumn,
	}
}

func commitSecondary(ctx context.Context, cfg *config.Config, table sheet.Table, results []models.ProductResult) error {
	values, err := table.Read(ctx)
	if err != nil {
		return err
	}
	doc, err := sheet.ParseSKUDocument(values, columnsFromConfig(cfg))
	if err != nil {
		return err
	}
	if err := doc.ApplyByKey(results); err != nil {
		return err
	}
	return table.Replace(ctx, doc.Values())
}

func writeReport(cfg *config.Config, results []models.ProductResult) error {
	writer, err := createReportWriter(cfg.ReportFormat, cfg.ReportFile)
	if err != nil {
		return err
	}
	if err := writer.Write(results); err != nil {
		writer.Close()
		return err
	}
	if err := writer.Validate(); err != nil {
		writer.Close()
		return err
	}
	return writer.Close()
}

func createReportWriter(format, filename string) (report.ResultWriter, error) {
	switch format {
	case "json":
		return report.NewJSONWriter(filename)
	case "csv":
		return report.NewCSVWriter(filename)
	case "dual":
		jsonFilename := strings.TrimSuffix(filename, ".csv") + ".jsonl"
		return report.NewDualWriter(filename, jsonFilename)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func printSummary(run *models.RunResult) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Price sync complete")

	fmt.Printf("  Products:      %d\n", run.TotalCount)
	fmt.Printf("  Updated:       %d\n", run.SuccessCount)
	fmt.Printf("  Errors:        %d\n", run.ErrorCount)
	fmt.Printf("  Attempts:      %d\n", run.AttemptCount)
	fmt.Printf("  Recoveries:    %d\n", run.RecoveryCount)
	fmt.Printf("  Cache hits:    %d\n", run.CacheHits)
	if len(run.ErrorsByType) > 0 {
		fmt.Printf("  Error types:   %v\n", run.ErrorsByType)
	}
	if len(run.FailedURLs) > 0 {
		fmt.Printf("  Failed URLs:   %d\n", len(run.FailedURLs))
	}
	fmt.Printf("  Duration:      %v\n", run.EndTime.Sub(run.StartTime).Round(time.Millisecond))
	fmt.Println(separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

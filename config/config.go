package config

import (
	"fmt"
	"time"
)

// Fetch strategy names accepted by Config.Strategy.
const (
	StrategyAPI     = "api"
	StrategyBrowser = "browser"
)

// Source table kinds accepted by Config.Source.
const (
	SourceSheets = "sheets"
	SourceCSV    = "csv"
)

// Config holds run configuration for the price sync job.
type Config struct {
	// Fetching
	Strategy       string        // api or browser
	RenderEndpoint string        // remote rendering API base URL
	APIKey         string        // rendering API key (api strategy)
	WaitHint       time.Duration // JS-render wait hint sent to the rendering API
	FetchTimeout   time.Duration // per-request timeout, api strategy
	BrowserWait    time.Duration // per-wait timeout, browser strategy
	UserAgent      string
	MarkerText     string // literal substring tagging the price element
	RetryControl   string // text pattern of the in-page retry control
	ScreenshotDir  string // empty disables diagnostic screenshots

	// Retrying
	MaxAttempts   int           // attempt budget per product
	MaxRecoveries int           // bounded in-page recovery clicks per attempt
	AttemptDelay  time.Duration // pause after a transient failure
	RecoveryDelay time.Duration // pause after clicking the retry control
	RowDelay      time.Duration // courtesy pause between products

	// Source / destination table
	Source          string // sheets or csv
	SpreadsheetID   string
	Worksheet       string
	SKUWorksheet    string // optional secondary table joined by SKU
	CSVPath         string // csv source
	CredentialsEnv  string
	CredentialsFile string
	URLColumn       string
	PriceColumn     string
	UpdatedColumn   string
	SKUColumn       string

	// Output / observability
	ReportFile   string // empty disables the local run report
	ReportFormat string // csv, json, or dual
	MetricsAddr  string // empty disables the metrics listener
	Verbose      bool
}

// DefaultConfig returns the defaults matching the production sheet layout.
func DefaultConfig() *Config {
	return &Config{
		Strategy:        StrategyAPI,
		RenderEndpoint:  "https://api.scrapingant.com/v2/general",
		WaitHint:        5 * time.Second,
		FetchTimeout:    60 * time.Second,
		BrowserWait:     25 * time.Second,
		UserAgent:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		MarkerText:      "x kg",
		RetryControl:    "Reintentar",
		MaxAttempts:     3,
		MaxRecoveries:   2,
		AttemptDelay:    5 * time.Second,
		RecoveryDelay:   2 * time.Second,
		RowDelay:        time.Second,
		Source:          SourceSheets,
		Worksheet:       "Jumbo-info",
		CredentialsEnv:  "GSPREAD_CREDENTIALS",
		CredentialsFile: "credentials.json",
		URLColumn:       "URL",
		PriceColumn:     "Precio x KG",
		UpdatedColumn:   "Ultima Actualizacion",
		SKUColumn:       "SKU",
		ReportFormat:    "csv",
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.Strategy != StrategyAPI && c.Strategy != StrategyBrowser {
		return fmt.Errorf("strategy must be %q or %q", StrategyAPI, StrategyBrowser)
	}
	if c.Strategy == StrategyAPI {
		if c.RenderEndpoint == "" {
			return fmt.Errorf("render endpoint cannot be empty")
		}
		if c.APIKey == "" {
			return fmt.Errorf("rendering API key is required for the api strategy")
		}
	}
	if c.WaitHint < 0 {
		return fmt.Errorf("wait hint cannot be negative")
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("fetch timeout must be positive")
	}
	if c.BrowserWait <= 0 {
		return fmt.Errorf("browser wait must be positive")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.MarkerText == "" {
		return fmt.Errorf("marker text cannot be empty")
	}
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("max attempts must be positive")
	}
	if c.MaxRecoveries < 0 {
		return fmt.Errorf("max recoveries cannot be negative")
	}
	if c.AttemptDelay < 0 {
		return fmt.Errorf("attempt delay cannot be negative")
	}
	if c.RecoveryDelay < 0 {
		return fmt.Errorf("recovery delay cannot be negative")
	}
	if c.RowDelay < 0 {
		return fmt.Errorf("row delay cannot be negative")
	}
	switch c.Source {
	case SourceSheets:
		if c.SpreadsheetID == "" {
			return fmt.Errorf("spreadsheet id cannot be empty")
		}
		if c.Worksheet == "" {
			return fmt.Errorf("worksheet cannot be empty")
		}
	case SourceCSV:
		if c.CSVPath == "" {
			return fmt.Errorf("csv path cannot be empty")
		}
	default:
		return fmt.Errorf("source must be %q or %q", SourceSheets, SourceCSV)
	}
	if c.URLColumn == "" {
		return fmt.Errorf("url column cannot be empty")
	}
	if c.PriceColumn == "" {
		return fmt.Errorf("price column cannot be empty")
	}
	if c.UpdatedColumn == "" {
		return fmt.Errorf("updated column cannot be empty")
	}
	if c.SKUWorksheet != "" && c.SKUColumn == "" {
		return fmt.Errorf("sku column cannot be empty when a sku worksheet is set")
	}
	if c.ReportFile != "" && c.ReportFormat != "csv" && c.ReportFormat != "json" && c.ReportFormat != "dual" {
		return fmt.Errorf("report format must be csv, json, or dual")
	}
	return nil
}

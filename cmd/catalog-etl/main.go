package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"github.com/storefrontlabs/catalog-etl/internal/config"
	"github.com/storefrontlabs/catalog-etl/internal/etl"
	"github.com/storefrontlabs/catalog-etl/internal/source"
)

func main() {
	ctx := context.Background()

	// Best-effort; a missing .env is not an error.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}

	switch os.Args[1] {
	case "help", "-h", "--help":
		usage(os.Stdout)
		return
	case "run":
		os.Exit(runPipeline(ctx, os.Args[2:]))
	default:
		_, _ = fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		usage(os.Stderr)
		os.Exit(2)
	}
}

func runPipeline(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	configPath := fs.String("config", strings.TrimSpace(os.Getenv("CATALOG_CONFIG")), "Pipeline config YAML path (env: CATALOG_CONFIG)")
	modeFlag := fs.String("mode", "", "Source mode: live or fallback-only (default derived from environment)")
	endpoint := fs.String("endpoint", "", "Override the product-listing endpoint (env: CATALOG_ENDPOINT)")
	fallbackPath := fs.String("fallback", "", "Override the fallback seed path (env: CATALOG_FALLBACK_PATH)")
	rawDir := fs.String("raw-dir", "", "Override the raw snapshot directory (env: CATALOG_RAW_DIR)")
	curatedDir := fs.String("curated-dir", "", "Override the curated output directory (env: CATALOG_CURATED_DIR)")
	timeout := fs.Duration("timeout", 0, "Override the live request timeout (env: CATALOG_TIMEOUT)")
	rateLimitRPS := fs.Float64("rate-limit-rps", -1, "Live endpoint rate limit (RPS), 0 disables (env: CATALOG_RATE_LIMIT_RPS)")
	quiet := fs.Bool("quiet", false, "Suppress status output")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "config error: %s\n", err)
		return 2
	}
	if err := applyEnvOverrides(&cfg); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "config error: %s\n", err)
		return 2
	}
	applyFlagOverrides(&cfg, *endpoint, *fallbackPath, *rawDir, *curatedDir, *timeout, *rateLimitRPS)

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
	if *quiet {
		logger.SetLevel(log.ErrorLevel)
	}

	mode := resolveMode(*modeFlag)
	logger.Debug("source mode resolved", "mode", mode)

	result, err := etl.Run(ctx, cfg, mode, logger)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "run failed: %s\n", err)
		return 1
	}
	logger.Info("pipeline complete",
		"records", result.Records,
		"snapshot", result.SnapshotPath,
		"csv", result.CSVPath,
		"parquet", result.ParquetPath,
	)
	return 0
}

// resolveMode maps the flag, or failing that the environment, to a source
// mode. CI runs (GITHUB_ACTIONS=true) force fallback-only: the endpoint
// rejects non-interactive clients.
func resolveMode(flagValue string) source.Mode {
	if strings.TrimSpace(flagValue) != "" {
		return source.ParseMode(flagValue)
	}
	if envFlag("GITHUB_ACTIONS") || envFlag("CATALOG_FORCE_FALLBACK") {
		return source.ModeFallbackOnly
	}
	return source.ModeLive
}

func applyEnvOverrides(cfg *config.Config) error {
	if v := strings.TrimSpace(os.Getenv("CATALOG_ENDPOINT")); v != "" {
		cfg.Source.Endpoint = v
	}
	if v := strings.TrimSpace(os.Getenv("CATALOG_FALLBACK_PATH")); v != "" {
		cfg.Source.FallbackPath = v
	}
	if v := strings.TrimSpace(os.Getenv("CATALOG_RAW_DIR")); v != "" {
		cfg.Data.RawDir = v
	}
	if v := strings.TrimSpace(os.Getenv("CATALOG_CURATED_DIR")); v != "" {
		cfg.Data.CuratedDir = v
	}
	if v := strings.TrimSpace(os.Getenv("CATALOG_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid CATALOG_TIMEOUT=%q: %w", v, err)
		}
		cfg.Source.Timeout = config.Duration(d)
	}
	if v := strings.TrimSpace(os.Getenv("CATALOG_RATE_LIMIT_RPS")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid CATALOG_RATE_LIMIT_RPS=%q: %w", v, err)
		}
		cfg.Source.RateLimitRPS = f
	}
	return nil
}

func applyFlagOverrides(cfg *config.Config, endpoint, fallbackPath, rawDir, curatedDir string, timeout time.Duration, rateLimitRPS float64) {
	if strings.TrimSpace(endpoint) != "" {
		cfg.Source.Endpoint = strings.TrimSpace(endpoint)
	}
	if strings.TrimSpace(fallbackPath) != "" {
		cfg.Source.FallbackPath = strings.TrimSpace(fallbackPath)
	}
	if strings.TrimSpace(rawDir) != "" {
		cfg.Data.RawDir = strings.TrimSpace(rawDir)
	}
	if strings.TrimSpace(curatedDir) != "" {
		cfg.Data.CuratedDir = strings.TrimSpace(curatedDir)
	}
	if timeout > 0 {
		cfg.Source.Timeout = config.Duration(timeout)
	}
	if rateLimitRPS >= 0 {
		cfg.Source.RateLimitRPS = rateLimitRPS
	}
}

func envFlag(varName string) bool {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return false
	}
	out, err := strconv.ParseBool(v)
	if err != nil {
		return false
	}
	return out
}

func usage(w *os.File) {
	_, _ = fmt.Fprintf(w, `catalog-etl: batch product catalog ETL (extract -> snapshot -> normalize -> load)

Usage:
  catalog-etl <command> [flags]

Commands:
  run   Execute one pipeline run

Examples:
  catalog-etl run
  catalog-etl run --mode fallback-only --curated-dir out/curated

Environment:
  CATALOG_CONFIG          Config YAML path
  CATALOG_ENDPOINT        Product-listing endpoint URL
  CATALOG_FALLBACK_PATH   Committed fallback seed path
  CATALOG_RAW_DIR         Raw snapshot directory
  CATALOG_CURATED_DIR     Curated output directory
  CATALOG_TIMEOUT         Live request timeout (e.g. 30s)
  CATALOG_RATE_LIMIT_RPS  Live endpoint rate limit
  CATALOG_FORCE_FALLBACK  If true, never call the live endpoint
  GITHUB_ACTIONS          Set by CI; forces fallback-only mode

`)
}

// Package etl sequences the pipeline: resolve the raw payload, persist the
// snapshot, normalize, and store the curated outputs. Strictly sequential;
// each step's output is the next step's sole input.
package etl

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/storefrontlabs/catalog-etl/internal/config"
	"github.com/storefrontlabs/catalog-etl/internal/load"
	"github.com/storefrontlabs/catalog-etl/internal/normalize"
	"github.com/storefrontlabs/catalog-etl/internal/snapshot"
	"github.com/storefrontlabs/catalog-etl/internal/source"
)

// Result reports what one pipeline run produced.
type Result struct {
	SnapshotPath string
	CSVPath      string
	ParquetPath  string
	Records      int
}

// Run executes one full pipeline invocation. Fatal errors from any stage
// surface undecorated; there is no recovery beyond the resolver's single
// live-to-fallback transition.
func Run(ctx context.Context, cfg config.Config, mode source.Mode, logger *log.Logger) (Result, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}

	fetcher := source.NewFetcher(cfg.Source.Endpoint, time.Duration(cfg.Source.Timeout), cfg.Source.RateLimitRPS)
	resolver := source.NewResolver(mode, fetcher, cfg.Source.FallbackPath, logger)

	payload, err := resolver.Resolve(ctx)
	if err != nil {
		return Result{}, err
	}

	writer := snapshot.NewWriter(cfg.Data.RawDir)
	snapPath, err := writer.Write(payload)
	if err != nil {
		return Result{}, err
	}
	logger.Info("raw snapshot written", "path", snapPath)

	table, err := normalize.Normalize(snapPath)
	if err != nil {
		return Result{}, err
	}
	logger.Info("normalized", "records", len(table.Rows))

	csvPath, parquetPath, err := load.Store(cfg.Data.CuratedDir, table)
	if err != nil {
		return Result{}, err
	}
	logger.Info("curated outputs written", "csv", csvPath, "parquet", parquetPath)

	return Result{
		SnapshotPath: snapPath,
		CSVPath:      csvPath,
		ParquetPath:  parquetPath,
		Records:      len(table.Rows),
	}, nil
}

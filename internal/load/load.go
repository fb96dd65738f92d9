// Package load persists the curated table for downstream consumers: a
// parquet file for BI tooling and a CSV copy for web use.
package load

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/parquet-go/parquet-go"

	"github.com/storefrontlabs/catalog-etl/internal/catalog"
)

// ErrPersistenceFailed means the curated outputs could not be written.
var ErrPersistenceFailed = errors.New("curated persistence failed")

const (
	csvName     = "products.csv"
	parquetName = "products.parquet"
)

// Store writes products.csv and products.parquet under dir, creating it if
// needed, and returns both paths.
func Store(dir string, table catalog.Table) (csvPath, parquetPath string, err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}

	csvPath = filepath.Join(dir, csvName)
	if err := writeCSVFile(csvPath, table); err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}

	parquetPath = filepath.Join(dir, parquetName)
	if err := parquet.WriteFile(parquetPath, table.Rows); err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
	return csvPath, parquetPath, nil
}

func writeCSVFile(path string, table catalog.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteCSV(f, table); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// WriteCSV writes the stable header followed by one row per product.
// Null cells are empty fields.
func WriteCSV(w io.Writer, table catalog.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(catalog.Header()); err != nil {
		return err
	}
	for _, p := range table.Rows {
		if err := cw.Write(csvRow(p)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvRow(p catalog.Product) []string {
	return []string{
		intCell(p.ID),
		textCell(p.Title),
		floatCell(p.Price),
		textCell(p.Category),
		floatCell(p.RatingRate),
		floatCell(p.RatingCount),
		floatCell(p.PriceWithVAT),
	}
}

func intCell(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

func floatCell(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func textCell(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

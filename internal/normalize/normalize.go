// Package normalize turns raw snapshots into the fixed-schema curated table.
//
// Field-level data quality issues are never fatal: unparsable numerics become
// null cells and the pipeline completes. Only an unreadable snapshot aborts.
package normalize

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/storefrontlabs/catalog-etl/internal/catalog"
	"github.com/storefrontlabs/catalog-etl/internal/snapshot"
)

const vatRate = "1.20"

// Normalize loads the snapshot at path and produces the curated table:
// flatten, canonicalize names, coerce types, derive price_with_vat, and
// deduplicate by id keeping the first occurrence in order.
//
// Normalizing the same snapshot twice yields identical tables.
func Normalize(path string) (catalog.Table, error) {
	payload, err := snapshot.Read(path)
	if err != nil {
		return catalog.Table{}, err
	}
	return Payload(payload), nil
}

// Payload normalizes an already-loaded raw payload.
func Payload(payload catalog.RawPayload) catalog.Table {
	rows := make([]catalog.Product, 0, len(payload))
	seen := make(map[int64]bool, len(payload))
	seenNull := false
	for _, rec := range payload {
		p := project(flatten(rec))
		// Dedup on the id exactly as emitted, so the output can never carry
		// the same id twice. Rows without a usable id collapse into one.
		if p.ID == nil {
			if seenNull {
				continue
			}
			seenNull = true
		} else {
			if seen[*p.ID] {
				continue
			}
			seen[*p.ID] = true
		}
		rows = append(rows, p)
	}
	return catalog.Table{Rows: rows}
}

// project maps a flattened row onto the fixed Product shape. Columns absent
// from the row stay nil; extra columns are dropped.
func project(r row) catalog.Product {
	price := numericColumn(r, "price")
	p := catalog.Product{
		ID:          intColumn(r, "id"),
		Title:       textColumn(r, "title"),
		Price:       price,
		Category:    textColumn(r, "category"),
		RatingRate:  numericColumn(r, "rating_rate"),
		RatingCount: numericColumn(r, "rating_count"),
	}
	if price != nil {
		v := priceWithVAT(*price)
		p.PriceWithVAT = &v
	}
	return p
}

// priceWithVAT computes price x 1.20 rounded to 2 decimals. Decimal
// arithmetic keeps 19.99 -> 23.99 instead of drifting through binary floats.
func priceWithVAT(price float64) float64 {
	rate, _ := decimal.NewFromString(vatRate)
	out, _ := decimal.NewFromFloat(price).Mul(rate).Round(2).Float64()
	return out
}

func numericColumn(r row, name string) *float64 {
	c, ok := r[name]
	if !ok {
		return nil
	}
	switch c.Kind {
	case KindNumber:
		f := c.Num
		return &f
	case KindText:
		f, err := strconv.ParseFloat(strings.TrimSpace(c.Text), 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}

func intColumn(r row, name string) *int64 {
	f := numericColumn(r, name)
	if f == nil {
		return nil
	}
	v := *f
	// int64 conversion is undefined outside this range; such values are not
	// usable identifiers and become null.
	if math.IsNaN(v) || v < math.MinInt64 || v >= math.MaxInt64 {
		return nil
	}
	n := int64(v)
	return &n
}

func textColumn(r row, name string) *string {
	c, ok := r[name]
	if !ok {
		return nil
	}
	switch c.Kind {
	case KindText:
		s := c.Text
		return &s
	case KindNumber:
		s := strconv.FormatFloat(c.Num, 'f', -1, 64)
		return &s
	default:
		return nil
	}
}

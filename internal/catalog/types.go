package catalog

// RawPayload is the ordered sequence of source records as received from the
// catalog endpoint or the fallback seed, before any schema is imposed.
// Records are heterogeneous: fields may be missing, extra, or nested.
type RawPayload []map[string]any

// Product is the stable output schema contract for one curated row.
//
// Pointer fields are nullable columns: a nil pointer means the source had no
// usable value and downstream consumers see a null cell.
type Product struct {
	ID           *int64   `parquet:"id,optional"`
	Title        *string  `parquet:"title,optional"`
	Price        *float64 `parquet:"price,optional"`
	Category     *string  `parquet:"category,optional"`
	RatingRate   *float64 `parquet:"rating_rate,optional"`
	RatingCount  *float64 `parquet:"rating_count,optional"`
	PriceWithVAT *float64 `parquet:"price_with_vat,optional"`
}

// Table is the curated output: ordered rows with no duplicate id.
type Table struct {
	Rows []Product
}

// Header returns the stable column order for curated outputs.
// Column names, order, and null semantics are part of the compatibility
// surface consumed by the load sinks.
func Header() []string {
	return []string{
		"id",
		"title",
		"price",
		"category",
		"rating_rate",
		"rating_count",
		"price_with_vat",
	}
}

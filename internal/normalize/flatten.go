package normalize

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind enumerates the closed set of states a flattened cell can be in.
// Keeping the intermediate row closed stops the open-ended source schema from
// leaking past projection.
type Kind int

const (
	KindAbsent Kind = iota
	KindNull
	KindNumber
	KindText
)

// Cell is one flattened scalar value.
type Cell struct {
	Kind Kind
	Num  float64
	Text string
}

// row is one flattened record keyed by canonical column name.
type row map[string]Cell

// flatten walks one decoded record. Nested objects flatten recursively with
// dotted key paths; arrays are retained as opaque single values, not exploded
// into rows.
//
// Distinct source keys can canonicalize to the same column ("Price" and
// "price"). Keys are visited in sorted order at each level and the first
// writer wins, so collisions resolve the same way on every pass.
func flatten(rec map[string]any) row {
	out := make(row, len(rec))
	flattenInto(out, "", rec)
	return out
}

func flattenInto(out row, prefix string, rec map[string]any) {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := rec[k].(map[string]any); ok {
			flattenInto(out, key, nested)
			continue
		}
		name := canonicalName(key)
		if _, exists := out[name]; exists {
			continue
		}
		out[name] = cellOf(rec[k])
	}
}

func cellOf(v any) Cell {
	switch t := v.(type) {
	case nil:
		return Cell{Kind: KindNull}
	case float64:
		return Cell{Kind: KindNumber, Num: t}
	case string:
		return Cell{Kind: KindText, Text: t}
	case bool:
		return Cell{Kind: KindText, Text: strconv.FormatBool(t)}
	case []any:
		// Opaque representation; coercion to numeric yields null downstream.
		b, err := json.Marshal(t)
		if err != nil {
			return Cell{Kind: KindText, Text: fmt.Sprint(t)}
		}
		return Cell{Kind: KindText, Text: string(b)}
	default:
		return Cell{Kind: KindText, Text: fmt.Sprint(t)}
	}
}

// canonicalName trims, lowercases, and replaces spaces and literal dots with
// underscores, so the nested "rating.rate" path lands in the rating_rate
// column.
func canonicalName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, ".", "_")
	return s
}

package usecase

import (
	"fmt"

	"TradeWatch/internal/domain/models"
)

// coerceStrings flattens a driver value into a list of strings. Lists are
// flattened one level; nil elements are dropped; scalars become a
// single-element list.
func coerceStrings(v interface{}) []string {
	if v == nil {
		return nil
	}
	switch vv := v.(type) {
	case []interface{}:
		out := make([]string, 0, len(vv))
		for _, el := range vv {
			if el == nil {
				continue
			}
			if nested, ok := el.([]interface{}); ok {
				for _, n := range nested {
					if n != nil {
						out = append(out, asText(n))
					}
				}
				continue
			}
			out = append(out, asText(el))
		}
		return out
	case []string:
		return vv
	default:
		return []string{asText(v)}
	}
}

func asText(v interface{}) string {
	switch vv := v.(type) {
	case string:
		return vv
	case int64:
		return fmt.Sprintf("%d", vv)
	case float64:
		return fmt.Sprintf("%g", vv)
	default:
		return fmt.Sprintf("%v", vv)
	}
}

// readInt reads an integer column from a record, tolerating the numeric
// types different drivers hand back.
func readInt(rec models.Record, key string) int {
	switch v := rec[key].(type) {
	case int64:
		return int(v)
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}

// readString reads a string column from a record; non-strings are formatted.
func readString(rec models.Record, key string) string {
	v, ok := rec[key]
	if !ok || v == nil {
		return ""
	}
	return asText(v)
}

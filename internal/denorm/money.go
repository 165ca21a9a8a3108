package denorm

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount normalizes a monetary value to a plain float. Numeric
// input passes through; strings are parsed as localized amounts with "."
// as thousands separator, "," as decimal separator and an optional
// leading currency symbol ("$3.900.000,50" -> 3900000.50).
//
// Returns ok=false when the value is absent (nil, zero, empty) and a
// non-nil error when the input was present but unparsable. Neither case
// is fatal; unparsable amounts are logged and the field omitted.
func ParseAmount(v any) (float64, bool, error) {
	switch m := v.(type) {
	case nil:
		return 0, false, nil
	case float64:
		return numericAmount(m)
	case float32:
		return numericAmount(float64(m))
	case int64:
		return numericAmount(float64(m))
	case int:
		return numericAmount(float64(m))
	case []byte:
		return stringAmount(string(m))
	case string:
		return stringAmount(m)
	default:
		return 0, false, fmt.Errorf("unsupported amount type %T", v)
	}
}

func numericAmount(f float64) (float64, bool, error) {
	if f == 0 {
		return 0, false, nil
	}
	return f, true, nil
}

func stringAmount(s string) (float64, bool, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return 0, false, nil
	}

	// $ 3.900.000,50 -> 3900000.50
	cleaned := strings.NewReplacer("$", "", " ", "", ".", "").Replace(s)
	cleaned = strings.ReplaceAll(cleaned, ",", ".")

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, false, fmt.Errorf("unparsable amount %q: %w", s, err)
	}

	f, _ := d.Float64()
	if f == 0 {
		return 0, false, nil
	}
	return f, true, nil
}

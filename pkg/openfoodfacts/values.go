package openfoodfacts

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// flexFloat accepts a JSON number or a numeric string. Anything else, including
// NaN and infinities, decodes as absent instead of failing the whole product.
type flexFloat struct {
	Value float64
	Valid bool
}

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	*f = flexFloat{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	text := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		text = strings.TrimSpace(s)
	}

	v, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	f.Value, f.Valid = v, true
	return nil
}

func (f flexFloat) ptr() *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Value
	return &v
}

// flexString accepts a string, a number or a list of strings (joined with ", ").
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	*s = ""
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}

	switch data[0] {
	case '"':
		var v string
		if err := json.Unmarshal(data, &v); err == nil {
			*s = flexString(strings.TrimSpace(v))
		}
	case '[':
		var parts []string
		if err := json.Unmarshal(data, &parts); err == nil {
			kept := parts[:0]
			for _, p := range parts {
				if p = strings.TrimSpace(p); p != "" {
					kept = append(kept, p)
				}
			}
			*s = flexString(strings.Join(kept, ", "))
		}
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err == nil {
			*s = flexString(n.String())
		}
	}
	return nil
}

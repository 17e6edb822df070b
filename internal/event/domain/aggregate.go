package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Aggregate is the merged field map of a resource's event payloads.
// Numbers are kept as json.Number so amounts never pass through float64.
type Aggregate map[string]any

func (a Aggregate) Has(key string) bool {
	v, ok := a[key]
	return ok && v != nil
}

func (a Aggregate) String(key string) *string {
	switch v := a[key].(type) {
	case string:
		return &v
	case json.Number:
		s := v.String()
		return &s
	case bool:
		s := strconv.FormatBool(v)
		return &s
	default:
		return nil
	}
}

func (a Aggregate) Int64(key string) *int64 {
	switch v := a[key].(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return &n
		}
		if f, err := v.Float64(); err == nil {
			return wholeInt64(f)
		}
	case int64:
		return &v
	case int:
		n := int64(v)
		return &n
	case float64:
		return wholeInt64(v)
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			return &n
		}
	}
	return nil
}

// wholeInt64 accepts 1000.0 or 1e3 but never rounds a fraction away.
func wholeInt64(f float64) *int64 {
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return nil
	}
	n := int64(f)
	return &n
}

func (a Aggregate) Bool(key string) *bool {
	switch v := a[key].(type) {
	case bool:
		return &v
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return &b
		}
	}
	return nil
}

// Time parses RFC3339 timestamps and plain YYYY-MM-DD dates.
func (a Aggregate) Time(key string) *time.Time {
	s := a.String(key)
	if s == nil {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02"} {
		if t, err := time.Parse(layout, strings.TrimSpace(*s)); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

func (a Aggregate) Map(key string) map[string]any {
	v, _ := a[key].(map[string]any)
	return v
}

// Clone copies the top level; nested values are shared.
func (a Aggregate) Clone() Aggregate {
	out := make(Aggregate, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

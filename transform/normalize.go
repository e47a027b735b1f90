// Package transform implements the OMOP transformation core: column
// normalization, terminology mapping, the data-driven per-table transformer
// and the visit aggregation that derives VISIT_OCCURRENCE.
package transform

import (
	"math"
	"strconv"
	"time"

	"github.com/care-sm/care2omop/tabular"
)

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// ParseDate parses a date-like value. Unparsable values report false so the
// caller can degrade to null instead of failing the table.
func ParseDate(v any) (time.Time, bool) {
	switch d := v.(type) {
	case time.Time:
		return d, true
	case string:
		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, d); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}

// FillDefaults replaces nulls in the named columns with the given defaults.
// Columns the table does not carry are skipped: source shapes vary per domain
// and per extraction run.
func FillDefaults(t *tabular.Table, defaults map[string]any) {
	for col, def := range defaults {
		if !t.HasColumn(col) {
			continue
		}
		for i := 0; i < t.Len(); i++ {
			if t.Value(i, col) == nil {
				t.SetValue(i, col, def)
			}
		}
	}
}

// CoerceDates parses each named, present column as a calendar date. A value
// that does not parse becomes null; the rest of the table is unaffected.
func CoerceDates(t *tabular.Table, columns []string) {
	for _, col := range columns {
		if !t.HasColumn(col) {
			continue
		}
		for i := 0; i < t.Len(); i++ {
			v := t.Value(i, col)
			if v == nil {
				continue
			}
			if parsed, ok := ParseDate(v); ok {
				t.SetValue(i, col, parsed)
			} else {
				t.SetValue(i, col, nil)
			}
		}
	}
}

// CopyDateToDatetime writes each value of the date column into the datetime
// column. Date parsing leaves a midnight time-of-day, which is exactly the
// datetime representation the CDM expects for date-only sources.
func CopyDateToDatetime(t *tabular.Table, dateCol, datetimeCol string) {
	if !t.HasColumn(dateCol) {
		return
	}
	t.AddColumn(datetimeCol)
	for i := 0; i < t.Len(); i++ {
		t.SetValue(i, datetimeCol, t.Value(i, dateCol))
	}
}

// TightenIntegers converts every column whose non-null values are all whole
// numbers to int64. Identifier columns must not keep a floating-point
// representation just because they held nulls before default filling, so this
// runs after FillDefaults.
func TightenIntegers(t *tabular.Table) {
	for _, col := range t.Columns() {
		tightenColumn(t, col)
	}
}

func tightenColumn(t *tabular.Table, col string) {
	converted := make([]any, t.Len())
	for i := 0; i < t.Len(); i++ {
		v := t.Value(i, col)
		if v == nil {
			continue
		}
		n, ok := asInteger(v)
		if !ok {
			return
		}
		converted[i] = n
	}
	for i, v := range converted {
		if v != nil {
			t.SetValue(i, col, v)
		}
	}
}

func asInteger(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		if n == math.Trunc(n) && n >= math.MinInt64 && n <= math.MaxInt64 {
			return int64(n), true
		}
	case string:
		if parsed, err := strconv.ParseInt(n, 10, 64); err == nil {
			return parsed, true
		}
		if parsed, err := strconv.ParseFloat(n, 64); err == nil && parsed == math.Trunc(parsed) {
			return int64(parsed), true
		}
	}
	return 0, false
}

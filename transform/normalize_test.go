package transform

import (
	"testing"
	"time"

	"github.com/care-sm/care2omop/tabular"
)

func TestFillDefaults(t *testing.T) {
	table := tabular.New("death_type_concept_id")
	table.Append(tabular.Row{"death_type_concept_id": nil})
	table.Append(tabular.Row{"death_type_concept_id": "123"})

	FillDefaults(table, map[string]any{
		"death_type_concept_id": int64(32879),
		"not_present":           int64(0),
	})

	if got := table.Value(0, "death_type_concept_id"); got != int64(32879) {
		t.Errorf("null filled with %v, want 32879", got)
	}
	if got := table.Value(1, "death_type_concept_id"); got != "123" {
		t.Errorf("existing value overwritten: %v", got)
	}
	if table.HasColumn("not_present") {
		t.Error("absent column was created by FillDefaults")
	}
}

func TestCoerceDates(t *testing.T) {
	table := tabular.New("death_date")
	table.Append(tabular.Row{"death_date": "2023-01-01"})
	table.Append(tabular.Row{"death_date": "not-a-date"})
	table.Append(tabular.Row{"death_date": nil})

	CoerceDates(table, []string{"death_date", "missing_column"})

	want := time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)
	if got := table.Value(0, "death_date"); got != want {
		t.Errorf("parsed date = %v, want %v", got, want)
	}
	if got := table.Value(1, "death_date"); got != nil {
		t.Errorf("unparsable date = %v, want nil", got)
	}
	if got := table.Value(2, "death_date"); got != nil {
		t.Errorf("null date = %v, want nil", got)
	}
}

func TestCopyDateToDatetime(t *testing.T) {
	table := tabular.New("death_date")
	day := time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)
	table.Append(tabular.Row{"death_date": day})
	table.Append(tabular.Row{"death_date": nil})

	CopyDateToDatetime(table, "death_date", "death_datetime")

	if got := table.Value(0, "death_datetime"); got != day {
		t.Errorf("death_datetime = %v, want %v", got, day)
	}
	if got, _ := table.Value(0, "death_datetime").(time.Time); got.Hour() != 0 {
		t.Errorf("time-of-day = %d, want midnight", got.Hour())
	}
	if got := table.Value(1, "death_datetime"); got != nil {
		t.Errorf("null date copied as %v, want nil", got)
	}
}

func TestTightenIntegers(t *testing.T) {
	table := tabular.New("concept_id", "weight", "label")
	table.Append(tabular.Row{"concept_id": "8507", "weight": "70.5", "label": "NA"})
	table.Append(tabular.Row{"concept_id": float64(32879), "weight": "80", "label": "12"})
	table.Append(tabular.Row{"concept_id": nil, "weight": nil, "label": nil})

	TightenIntegers(table)

	if got := table.Value(0, "concept_id"); got != int64(8507) {
		t.Errorf("concept_id = %v (%T), want int64 8507", got, got)
	}
	if got := table.Value(1, "concept_id"); got != int64(32879) {
		t.Errorf("whole float = %v (%T), want int64 32879", got, got)
	}
	if got := table.Value(2, "concept_id"); got != nil {
		t.Errorf("null = %v, want nil", got)
	}
	// 70.5 is not whole, the whole column stays untouched.
	if got := table.Value(1, "weight"); got != "80" {
		t.Errorf("weight = %v (%T), want string 80", got, got)
	}
	// "NA" is not numeric, so "12" must not convert either.
	if got := table.Value(1, "label"); got != "12" {
		t.Errorf("label = %v (%T), want string 12", got, got)
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		input any
		ok    bool
	}{
		{"2023-01-01", true},
		{"2023-01-01 10:30:00", true},
		{"2023-01-01T10:30:00", true},
		{"", false},
		{"31/01/2023", false},
		{int64(20230101), false},
		{nil, false},
	}

	for _, tt := range tests {
		if _, ok := ParseDate(tt.input); ok != tt.ok {
			t.Errorf("ParseDate(%v) ok = %v, want %v", tt.input, ok, tt.ok)
		}
	}
}

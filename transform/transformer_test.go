package transform

import (
	"errors"
	"testing"
	"time"

	"github.com/care-sm/care2omop/omop"
	"github.com/care-sm/care2omop/tabular"
	"github.com/rs/zerolog"
)

func tableSpec(t *testing.T, name string) omop.TableSpec {
	t.Helper()
	for _, spec := range omop.Tables {
		if spec.Name == name {
			return spec
		}
	}
	t.Fatalf("no table spec named %s", name)
	return omop.TableSpec{}
}

func TestApplyPerson(t *testing.T) {
	tr := New(zerolog.Nop(), nil)

	table := tabular.New("person_id", "gender_source_value", "birth_datetime")
	table.Append(tabular.Row{
		"person_id":           "1",
		"gender_source_value": "http://purl.obolibrary.org/obo/NCIT_C20197",
		"birth_datetime":      "1990-05-10",
	})

	out, err := tr.Apply(tableSpec(t, "PERSON"), table)
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}

	row := out.Row(0)
	checks := map[string]any{
		"person_id":              int64(1),
		"gender_concept_id":      int64(8507),
		"year_of_birth":          int64(1990),
		"month_of_birth":         int64(5),
		"day_of_birth":           int64(10),
		"race_concept_id":        int64(0),
		"ethnicity_concept_id":   int64(0),
		"race_source_value":      "NA",
		"ethnicity_source_value": "NA",
	}
	for col, want := range checks {
		if got := row[col]; got != want {
			t.Errorf("%s = %v (%T), want %v", col, got, got, want)
		}
	}

	birth, ok := row["birth_datetime"].(time.Time)
	if !ok {
		t.Fatalf("birth_datetime = %v (%T), want time.Time", row["birth_datetime"], row["birth_datetime"])
	}
	if want := time.Date(1990, time.May, 10, 0, 0, 0, 0, time.UTC); !birth.Equal(want) {
		t.Errorf("birth_datetime = %v, want %v", birth, want)
	}
}

func TestApplyPersonWithoutBirthDate(t *testing.T) {
	tr := New(zerolog.Nop(), nil)

	table := tabular.New("person_id", "birth_datetime")
	table.Append(tabular.Row{"person_id": "2", "birth_datetime": nil})

	out, err := tr.Apply(tableSpec(t, "PERSON"), table)
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}

	for _, col := range []string{"year_of_birth", "month_of_birth", "day_of_birth"} {
		if got := out.Value(0, col); got != nil {
			t.Errorf("%s = %v, want nil when birth date is absent", col, got)
		}
	}
}

func TestApplyCondition(t *testing.T) {
	lookup := map[string]string{"248153007": "4048935"}
	tr := New(zerolog.Nop(), lookup)

	table := tabular.New(
		"person_id", "condition_start_date", "condition_source_value",
		"visit_start_date", "visit_end_date",
	)
	table.Append(tabular.Row{
		"person_id":              "1",
		"condition_start_date":   "2023-01-01",
		"condition_source_value": "http://snomed.info/id/248153007",
		"visit_start_date":       "2023-01-01",
		"visit_end_date":         "2023-01-05",
	})
	table.Append(tabular.Row{
		"person_id":              "2",
		"condition_start_date":   "2023-02-01",
		"condition_source_value": nil,
		"visit_start_date":       nil,
		"visit_end_date":         nil,
	})

	out, err := tr.Apply(tableSpec(t, "CONDITION_OCCURRENCE"), table)
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}

	if got := out.Value(0, "condition_concept_id"); got != int64(4048935) {
		t.Errorf("mapped condition_concept_id = %v (%T), want int64 4048935", got, got)
	}
	if got := out.Value(1, "condition_concept_id"); got != int64(0) {
		t.Errorf("unmapped condition_concept_id = %v (%T), want int64 0", got, got)
	}

	// Defaulted concept columns are non-null integers on every row.
	for i := 0; i < out.Len(); i++ {
		for _, col := range []string{"condition_type_concept_id", "condition_status_concept_id", "visit_concept_id", "visit_type_concept_id"} {
			if _, ok := out.Value(i, col).(int64); !ok {
				t.Errorf("row %d: %s = %v (%T), want int64", i, col, out.Value(i, col), out.Value(i, col))
			}
		}
	}
	if got := out.Value(0, "visit_concept_id"); got != int64(38004515) {
		t.Errorf("visit_concept_id = %v, want 38004515", got)
	}

	start, ok := out.Value(0, "condition_start_datetime").(time.Time)
	if !ok || !start.Equal(time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("condition_start_datetime = %v, want 2023-01-01 midnight", out.Value(0, "condition_start_datetime"))
	}
	if got := out.Value(1, "visit_end_datetime"); got != nil {
		t.Errorf("visit_end_datetime for dateless row = %v, want nil", got)
	}

	// The input table is left alone.
	if got := table.Value(0, "condition_start_date"); got != "2023-01-01" {
		t.Errorf("input mutated: condition_start_date = %v", got)
	}
}

func TestApplyMissingRequiredColumn(t *testing.T) {
	tr := New(zerolog.Nop(), nil)

	table := tabular.New("person_id")
	table.Append(tabular.Row{"person_id": "1"})

	_, err := tr.Apply(tableSpec(t, "DEATH"), table)
	if !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("Apply error = %v, want ErrMissingColumn", err)
	}
}

func TestApplyIdempotent(t *testing.T) {
	tr := New(zerolog.Nop(), map[string]string{"248153007": "4048935"})
	spec := tableSpec(t, "CONDITION_OCCURRENCE")

	table := tabular.New("person_id", "condition_start_date", "condition_source_value")
	table.Append(tabular.Row{
		"person_id":              "1",
		"condition_start_date":   "2023-01-01",
		"condition_source_value": "http://snomed.info/id/248153007",
	})

	once, err := tr.Apply(spec, table)
	if err != nil {
		t.Fatalf("first Apply returned error: %v", err)
	}
	twice, err := tr.Apply(spec, once)
	if err != nil {
		t.Fatalf("second Apply returned error: %v", err)
	}

	for _, col := range twice.Columns() {
		a, b := once.Value(0, col), twice.Value(0, col)
		if at, ok := a.(time.Time); ok {
			if bt, ok := b.(time.Time); !ok || !at.Equal(bt) {
				t.Errorf("%s changed on second run: %v -> %v", col, a, b)
			}
			continue
		}
		if a != b {
			t.Errorf("%s changed on second run: %v -> %v", col, a, b)
		}
	}
}

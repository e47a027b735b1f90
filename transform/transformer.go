package transform

import (
	"errors"
	"fmt"
	"time"

	"github.com/care-sm/care2omop/omop"
	"github.com/care-sm/care2omop/tabular"
	"github.com/rs/zerolog"
	"golang.org/x/exp/slices"
)

// ErrMissingColumn marks a structurally broken extraction: a column the
// table's transformation cannot do without is absent from the result set.
var ErrMissingColumn = errors.New("required column missing")

// Transformer applies the per-table OMOP rules. It holds the concept lookup
// loaded once per run; the lookup is read-only and shared by every table.
type Transformer struct {
	log    zerolog.Logger
	lookup map[string]string
}

// New creates a Transformer backed by the given concept lookup.
func New(log zerolog.Logger, lookup map[string]string) *Transformer {
	return &Transformer{log: log, lookup: lookup}
}

// Apply runs the table spec against an extracted table and returns a new,
// transformed table. The input is never mutated. Per-row data problems
// degrade to null; only a missing required column fails the table.
func (tr *Transformer) Apply(spec omop.TableSpec, src *tabular.Table) (*tabular.Table, error) {
	for _, col := range spec.Required {
		if !src.HasColumn(col) {
			return nil, fmt.Errorf("%w: %s has no %q column", ErrMissingColumn, spec.Name, col)
		}
	}

	t := src.Clone()

	// Defaulted columns must come out non-null even when the extraction
	// omitted them entirely, so register them before filling.
	for _, col := range sortedKeys(spec.Defaults) {
		t.AddColumn(col)
	}
	FillDefaults(t, spec.Defaults)
	CoerceDates(t, spec.DateColumns)

	dateCols := sortedKeys(spec.DatePairs)
	CoerceDates(t, dateCols)
	for _, dateCol := range dateCols {
		CopyDateToDatetime(t, dateCol, spec.DatePairs[dateCol])
	}

	if spec.DeriveBirthFields {
		deriveBirthFields(t)
	}

	for _, m := range spec.Mappings {
		lookup := m.Static
		if lookup == nil {
			lookup = tr.lookup
		}
		if m.Prefix != "" {
			MapWithPrefixStrip(t, m.SourceColumn, m.TargetColumn, m.Prefix, lookup)
		} else {
			MapValues(t, m.SourceColumn, m.TargetColumn, lookup)
		}
	}

	TightenIntegers(t)

	tr.log.Debug().
		Str("table", spec.Name).
		Int("rows", t.Len()).
		Msg("Transformed table")

	return t, nil
}

// deriveBirthFields splits a coerced birth_datetime into the CDM's separate
// year, month and day columns. Rows without a birth date keep all three null.
func deriveBirthFields(t *tabular.Table) {
	if !t.HasColumn("birth_datetime") {
		return
	}
	t.AddColumn("year_of_birth")
	t.AddColumn("month_of_birth")
	t.AddColumn("day_of_birth")
	for i := 0; i < t.Len(); i++ {
		birth, ok := t.Value(i, "birth_datetime").(time.Time)
		if !ok {
			continue
		}
		t.SetValue(i, "year_of_birth", int64(birth.Year()))
		t.SetValue(i, "month_of_birth", int64(birth.Month()))
		t.SetValue(i, "day_of_birth", int64(birth.Day()))
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

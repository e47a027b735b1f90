package pipeline

import (
	"fmt"
	"strings"

	"github.com/care-sm/care2omop/omop"
	"github.com/care-sm/care2omop/tabular"
)

// loadTable replaces the table's contents in the CDM schema with the rows
// just written to CSV. Runs in one transaction so a failed load leaves the
// previous contents in place.
func (p *Pipeline) loadTable(spec omop.TableSpec, t *tabular.Table) error {
	table := strings.ToLower(spec.Name)

	placeholders := make([]string, len(spec.Columns))
	for i := range spec.Columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(spec.Columns, ", "), strings.Join(placeholders, ", "))

	tx, err := p.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction for %s: %w", table, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM " + table); err != nil {
		return fmt.Errorf("failed to clear %s: %w", table, err)
	}

	stmt, err := tx.Preparex(insert)
	if err != nil {
		return fmt.Errorf("failed to prepare insert for %s: %w", table, err)
	}
	defer stmt.Close()

	args := make([]any, len(spec.Columns))
	for i := 0; i < t.Len(); i++ {
		for j, col := range spec.Columns {
			args[j] = t.Value(i, col)
		}
		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("failed to insert into %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit load of %s: %w", table, err)
	}

	p.log.Debug().Str("table", table).Int("rows", t.Len()).Msg("Loaded table into CDM database")
	return nil
}

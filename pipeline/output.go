package pipeline

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/care-sm/care2omop/omop"
	"github.com/care-sm/care2omop/tabular"
)

// writeCSV writes the projected table with a header row, overwriting any
// file from a previous run.
func (p *Pipeline) writeCSV(spec omop.TableSpec, t *tabular.Table) error {
	path := filepath.Join(p.outputDir, spec.Name+".csv")
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(spec.Columns); err != nil {
		return fmt.Errorf("failed to write header of %s: %w", path, err)
	}

	record := make([]string, len(spec.Columns))
	for i := 0; i < t.Len(); i++ {
		for j, col := range spec.Columns {
			record[j] = formatValue(col, t.Value(i, col))
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write row to %s: %w", path, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}

	p.log.Debug().Str("file", path).Int("rows", t.Len()).Msg("Wrote CSV output")
	return nil
}

// formatValue renders a cell. Datetime columns carry a time-of-day, date
// columns only the calendar date; nulls are empty cells.
func formatValue(column string, v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case time.Time:
		if strings.HasSuffix(column, "_datetime") {
			return value.Format(omop.DateTimeLayout)
		}
		return value.Format(omop.DateLayout)
	case int64:
		return strconv.FormatInt(value, 10)
	case int:
		return strconv.Itoa(value)
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case string:
		return value
	default:
		return fmt.Sprintf("%v", value)
	}
}

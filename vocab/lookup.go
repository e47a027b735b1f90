// Package vocab loads the source-terminology-to-OMOP concept lookup used by
// the terminology mapper.
package vocab

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/care-sm/care2omop/config"
	"github.com/rs/zerolog"
)

const (
	codeColumn    = "concept_code"
	conceptColumn = "concept_id"
)

// LoadConceptLookup reads a delimited vocabulary file and returns a source
// code to concept id map. Concept ids stay strings so large codes survive
// untouched; the normalizer tightens them to integers once they land in a
// table. Rows missing either value are dropped. A missing file or a file
// without the two required columns is a configuration failure.
func LoadConceptLookup(log zerolog.Logger, path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open mapping file %s: %v", config.ErrConfiguration, path, err)
	}
	defer file.Close()

	return readConceptLookup(log, file, path)
}

func readConceptLookup(log zerolog.Logger, r io.Reader, name string) (map[string]string, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read mapping file header %s: %v", config.ErrConfiguration, name, err)
	}

	codeIdx, conceptIdx := -1, -1
	for i, col := range header {
		switch strings.TrimSpace(col) {
		case codeColumn:
			codeIdx = i
		case conceptColumn:
			conceptIdx = i
		}
	}
	if codeIdx == -1 || conceptIdx == -1 {
		return nil, fmt.Errorf("%w: mapping file %s lacks %s/%s columns",
			config.ErrConfiguration, name, codeColumn, conceptColumn)
	}

	lookup := make(map[string]string)
	dropped := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read mapping file %s: %v", config.ErrConfiguration, name, err)
		}
		if codeIdx >= len(record) || conceptIdx >= len(record) {
			dropped++
			continue
		}
		code := strings.TrimSpace(record[codeIdx])
		concept := strings.TrimSpace(record[conceptIdx])
		if code == "" || concept == "" {
			dropped++
			continue
		}
		lookup[code] = concept
	}

	log.Info().
		Str("file", name).
		Int("entries", len(lookup)).
		Int("dropped", dropped).
		Msg("Loaded concept lookup")

	return lookup, nil
}

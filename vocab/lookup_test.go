package vocab

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/care-sm/care2omop/config"
	"github.com/rs/zerolog"
)

func writeLookupFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "snomed_to_athena.csv")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write lookup file: %v", err)
	}
	return path
}

func TestLoadConceptLookup(t *testing.T) {
	path := writeLookupFile(t, "concept_id,concept_code,vocabulary_id\n4048935,248153007,SNOMED\n123,,SNOMED\n,456,SNOMED\n903133,372148007,SNOMED\n")

	lookup, err := LoadConceptLookup(zerolog.Nop(), path)
	if err != nil {
		t.Fatalf("LoadConceptLookup returned error: %v", err)
	}

	if len(lookup) != 2 {
		t.Errorf("entries = %d, want 2 (rows with a missing value are dropped)", len(lookup))
	}
	if got := lookup["248153007"]; got != "4048935" {
		t.Errorf("248153007 = %q, want 4048935", got)
	}
	if got := lookup["372148007"]; got != "903133" {
		t.Errorf("372148007 = %q, want 903133", got)
	}
}

func TestLoadConceptLookupMissingFile(t *testing.T) {
	_, err := LoadConceptLookup(zerolog.Nop(), filepath.Join(t.TempDir(), "absent.csv"))
	if !errors.Is(err, config.ErrConfiguration) {
		t.Fatalf("error = %v, want ErrConfiguration", err)
	}
}

func TestLoadConceptLookupMissingColumns(t *testing.T) {
	path := writeLookupFile(t, "code,id\n248153007,4048935\n")

	_, err := LoadConceptLookup(zerolog.Nop(), path)
	if !errors.Is(err, config.ErrConfiguration) {
		t.Fatalf("error = %v, want ErrConfiguration", err)
	}
}

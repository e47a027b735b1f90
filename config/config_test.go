package config

import (
	"errors"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{
			name: "complete",
			cfg: Config{
				TriplestoreURL: "http://localhost:7200/repositories/care",
				QueryDir:       "templates",
				MappingFile:    "mapping/snomed_to_athena.csv",
			},
			ok: true,
		},
		{
			name: "missing endpoint",
			cfg:  Config{QueryDir: "templates", MappingFile: "mapping.csv"},
		},
		{
			name: "missing query dir",
			cfg:  Config{TriplestoreURL: "http://localhost:7200", MappingFile: "mapping.csv"},
		},
		{
			name: "missing mapping file",
			cfg:  Config{TriplestoreURL: "http://localhost:7200", QueryDir: "templates"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.ok && err != nil {
				t.Fatalf("Validate returned error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrConfiguration) {
				t.Fatalf("error = %v, want ErrConfiguration", err)
			}
		})
	}
}

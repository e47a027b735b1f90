package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// ErrConfiguration marks a fatal pre-run configuration problem: a missing
// connection parameter or an unusable vocabulary file.
var ErrConfiguration = errors.New("invalid configuration")

// Config holds everything the pipeline needs to run.
type Config struct {
	TriplestoreURL      string
	TriplestoreUsername string
	TriplestorePassword string
	QueryDir            string
	MappingFile         string
	OutputDir           string
	// DatabaseURL enables the optional Postgres CDM sink when set.
	DatabaseURL string
}

// Load reads configuration from the environment, with a .env file as a
// convenience when present, and validates it.
func Load() (*Config, error) {
	cfg, err := FromEnv()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv reads configuration without validating, for callers that receive
// the connection details elsewhere (the web front end takes them per request).
func FromEnv() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &Config{
		TriplestoreURL:      os.Getenv("TRIPLESTORE_URL"),
		TriplestoreUsername: os.Getenv("TRIPLESTORE_USERNAME"),
		TriplestorePassword: os.Getenv("TRIPLESTORE_PASSWORD"),
		QueryDir:            getenvDefault("QUERY_DIR", "templates"),
		MappingFile:         getenvDefault("MAPPING_FILE", "mapping/snomed_to_athena.csv"),
		OutputDir:           getenvDefault("OUTPUT_DIR", "data"),
		DatabaseURL:         os.Getenv("CDM_DB_URL"),
	}
	return cfg, nil
}

// Validate checks the parameters no run can do without.
func (c *Config) Validate() error {
	if c.TriplestoreURL == "" {
		return fmt.Errorf("%w: TRIPLESTORE_URL is not set", ErrConfiguration)
	}
	if c.QueryDir == "" {
		return fmt.Errorf("%w: query template directory is not set", ErrConfiguration)
	}
	if c.MappingFile == "" {
		return fmt.Errorf("%w: mapping file path is not set", ErrConfiguration)
	}
	return nil
}

func getenvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

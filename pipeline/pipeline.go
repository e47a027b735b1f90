// Package pipeline orchestrates the extraction, transformation and
// persistence of the CDM tables.
package pipeline

import (
	"fmt"
	"os"

	"github.com/care-sm/care2omop/config"
	"github.com/care-sm/care2omop/omop"
	"github.com/care-sm/care2omop/sparql"
	"github.com/care-sm/care2omop/tabular"
	"github.com/care-sm/care2omop/transform"
	"github.com/care-sm/care2omop/vocab"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
)

// Extractor returns the raw rows for a table, selected by query-name prefix.
// Implemented by sparql.Client; tests substitute a stub.
type Extractor interface {
	Extract(prefix string) (*tabular.Table, error)
}

// Pipeline runs the domain tables strictly in order, then derives
// VISIT_OCCURRENCE from the retained visit-carrying outputs.
type Pipeline struct {
	extractor   Extractor
	transformer *transform.Transformer
	outputDir   string
	db          *sqlx.DB
	log         zerolog.Logger
}

// New creates a Pipeline writing one CSV per CDM table into outputDir.
func New(log zerolog.Logger, extractor Extractor, transformer *transform.Transformer, outputDir string) *Pipeline {
	return &Pipeline{
		extractor:   extractor,
		transformer: transformer,
		outputDir:   outputDir,
		log:         log,
	}
}

// WithDatabase attaches the optional Postgres CDM sink. Each persisted table
// is additionally loaded into the schema the connection points at.
func (p *Pipeline) WithDatabase(db *sqlx.DB) *Pipeline {
	p.db = db
	return p
}

// FromConfig wires the pipeline from a validated configuration: concept
// lookup, SPARQL client, transformer, and the optional database sink. The
// returned closer releases the sink connection.
func FromConfig(log zerolog.Logger, cfg *config.Config) (*Pipeline, func(), error) {
	lookup, err := vocab.LoadConceptLookup(log, cfg.MappingFile)
	if err != nil {
		return nil, nil, err
	}

	client := sparql.NewClient(log, cfg.TriplestoreURL, cfg.TriplestoreUsername, cfg.TriplestorePassword)
	if err := client.LoadQueryDirectory(cfg.QueryDir); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", config.ErrConfiguration, err)
	}

	p := New(log, client, transform.New(log, lookup), cfg.OutputDir)
	closer := func() {}

	if cfg.DatabaseURL != "" {
		db, err := sqlx.Connect("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: failed to connect to CDM database: %v", config.ErrConfiguration, err)
		}
		p.WithDatabase(db)
		closer = func() { db.Close() }
	}

	return p, closer, nil
}

// Run executes the whole workflow. A fatal error aborts the remaining
// tables; files already written stay on disk.
func (p *Pipeline) Run() error {
	if err := os.MkdirAll(p.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", p.outputDir, err)
	}

	visitSources := make([]*tabular.Table, 0, len(omop.Tables))

	for _, spec := range omop.Tables {
		extracted, err := p.extractor.Extract(spec.QueryPrefix)
		if err != nil {
			return fmt.Errorf("extraction of %s failed: %w", spec.Name, err)
		}

		transformed, err := p.transformer.Apply(spec, extracted)
		if err != nil {
			return fmt.Errorf("transformation of %s failed: %w", spec.Name, err)
		}

		if err := p.persist(spec, transformed); err != nil {
			return err
		}

		// The untrimmed result still carries the visit_* columns the
		// aggregator harvests.
		if spec.FeedsVisits {
			visitSources = append(visitSources, transformed)
		}

		p.log.Info().
			Str("table", spec.Name).
			Int("rows", transformed.Len()).
			Msg("Table created")
	}

	visits, err := p.transformer.AggregateVisits(visitSources...)
	if err != nil {
		return fmt.Errorf("visit aggregation failed: %w", err)
	}
	if err := p.persist(omop.VisitOccurrenceSpec, visits); err != nil {
		return err
	}

	p.log.Info().
		Str("table", omop.VisitOccurrenceSpec.Name).
		Int("rows", visits.Len()).
		Msg("Table created")

	return nil
}

func (p *Pipeline) persist(spec omop.TableSpec, t *tabular.Table) error {
	projected := t.Project(spec.Columns)

	if err := p.writeCSV(spec, projected); err != nil {
		return err
	}
	if p.db != nil {
		if err := p.loadTable(spec, projected); err != nil {
			return err
		}
	}
	return nil
}

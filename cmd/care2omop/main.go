package main

import (
	"os"
	"time"

	"github.com/care-sm/care2omop/config"
	"github.com/care-sm/care2omop/pipeline"
	"github.com/rs/zerolog"
)

func main() {
	startTime := time.Now()
	log := zerolog.New(zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) { w.Out = os.Stdout })).With().Timestamp().Logger()
	log.Debug().Msg("Starting care2omop")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	p, closer, err := pipeline.FromConfig(log, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build pipeline")
	}
	defer closer()

	if err := p.Run(); err != nil {
		log.Fatal().Err(err).Msg("Pipeline failed")
	}

	log.Info().
		Str("output", cfg.OutputDir).
		Dur("duration", time.Since(startTime)).
		Msg("All CDM tables created")
}

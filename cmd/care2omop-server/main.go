// The care2omop-server exposes the conversion workflow over HTTP: the caller
// posts triplestore credentials and the pipeline writes the CDM tables as a
// side effect.
package main

import (
	"encoding/json"
	"net/http"
	"os"

	"github.com/care-sm/care2omop/config"
	"github.com/care-sm/care2omop/pipeline"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

type runRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Endpoint string `json:"endpoint"`
}

type server struct {
	log zerolog.Logger
}

func main() {
	log := zerolog.New(zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) { w.Out = os.Stdout })).With().Timestamp().Logger()

	srv := &server{log: log}

	r := mux.NewRouter()
	r.HandleFunc("/", srv.handleStatus).Methods("GET")
	r.HandleFunc("/care2omop", srv.handleRun).Methods("POST")

	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}

	log.Info().Str("port", port).Msg("Server started")
	log.Fatal().Err(http.ListenAndServe(":"+port, r)).Msg("Server stopped")
}

func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"care2omop service": "running"})
}

func (s *server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	cfg, err := config.FromEnv()
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to read configuration")
		respondWithJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	cfg.TriplestoreURL = req.Endpoint
	cfg.TriplestoreUsername = req.Username
	cfg.TriplestorePassword = req.Password

	if err := cfg.Validate(); err != nil {
		respondWithJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	p, closer, err := pipeline.FromConfig(s.log, cfg)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to build pipeline")
		respondWithJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	defer closer()

	if err := p.Run(); err != nil {
		s.log.Error().Err(err).Msg("Pipeline failed")
		respondWithJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"structural transformation": "finished"})
}

func respondWithJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

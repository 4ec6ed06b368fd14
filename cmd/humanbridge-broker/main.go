// humanbridge-broker is the daemon entrypoint: it exposes the WebSocket
// broker (internal/broker) and an optional JSON /health endpoint, mirroring
// the teacher's flag-driven single-binary daemon (cmd/dev-console/main.go)
// but with structured logging via go.uber.org/zap instead of fmt.Printf.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"

	"go.uber.org/zap"

	"github.com/hugopalma17/human-browser/internal/broker"
	"github.com/hugopalma17/human-browser/internal/protocol"
)

const defaultPort = 7331

func main() {
	port := flag.Int("port", defaultPort, "port to listen on")
	logFile := flag.String("log-file", "", "path to write logs to (stderr if empty)")
	tuningFile := flag.String("tuning-file", "", "path to a JSON file seeding initial runtime tuning")
	verbose := flag.Bool("verbose", false, "enable debug-level logging")
	flag.Parse()

	log, err := buildLogger(*logFile, *verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "humanbridge-broker: logger setup failed: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	tuning := protocol.DefaultTuning()
	if *tuningFile != "" {
		tuning, err = loadTuning(*tuningFile, tuning)
		if err != nil {
			log.Sugar().Fatalw("[humanbridge-broker] failed to load tuning file", "path", *tuningFile, "error", err)
		}
	}

	b := broker.New(tuning, log.Sugar())
	srv := broker.NewServer(b, log.Sugar())

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", srv.ServeHTTP)
	mux.HandleFunc("/health", srv.HandleHealth)

	addr := fmt.Sprintf(":%d", *port)
	log.Sugar().Infow("[humanbridge-broker] listening", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Sugar().Fatalw("[humanbridge-broker] server stopped", "error", err)
	}
}

func buildLogger(path string, verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	if path != "" {
		cfg.OutputPaths = []string{path}
		cfg.ErrorOutputPaths = []string{path}
	}
	return cfg.Build()
}

// loadTuning reads a JSON object and merges it onto base, so a partial
// tuning file only overrides the non-zero numbers and non-empty avoid lists
// it sets; the debug group is always taken from the file, see
// RuntimeTuning.Merge (spec §4.1 "Tuning injection").
func loadTuning(path string, base protocol.RuntimeTuning) (protocol.RuntimeTuning, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return base, err
	}
	var patch protocol.RuntimeTuning
	if err := json.Unmarshal(raw, &patch); err != nil {
		return base, err
	}
	return base.Merge(patch), nil
}

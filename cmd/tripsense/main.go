// Command tripsense runs trip inference over a JSON trip record: transport
// mode and purpose for the whole trip, or per stop-separated segment.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/travelogy-data/tripsense/internal/config"
	"github.com/travelogy-data/tripsense/internal/predictor"
	"github.com/travelogy-data/tripsense/internal/store"
	"github.com/travelogy-data/tripsense/internal/trip"
)

func main() {
	var (
		dbPath      = flag.String("db", "", "path to the model database (optional; fallback tier without it)")
		configPath  = flag.String("config", "", "path to a tuning config JSON file")
		tripPath    = flag.String("trip", "-", "path to a trip record JSON file, or - for stdin")
		historyPath = flag.String("history", "", "path to a JSON array of the user's prior trips")
		segments    = flag.Bool("segments", false, "segment the trip at significant stops and classify each leg")
	)
	flag.Parse()

	cfg := config.DefaultTuningConfig()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}

	var st predictor.BundleStore
	if *dbPath != "" {
		s, err := store.Open(*dbPath)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer s.Close()
		st = s
	}

	p, err := predictor.New(cfg, st, nil)
	if err != nil {
		log.Fatalf("Failed to initialise predictor: %v", err)
	}

	rec, err := readTrip(*tripPath)
	if err != nil {
		log.Fatalf("Failed to read trip: %v", err)
	}

	var history []trip.HistoryTrip
	if *historyPath != "" {
		history, err = readHistory(*historyPath)
		if err != nil {
			log.Fatalf("Failed to read history: %v", err)
		}
	}

	var out interface{}
	if *segments {
		out = p.PredictSegments(rec.Waypoints, history)
	} else {
		out = p.PredictTrip(rec, history)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatalf("Failed to encode result: %v", err)
	}
}

func readTrip(path string) (trip.Record, error) {
	var rec trip.Record
	data, err := readFileOrStdin(path)
	if err != nil {
		return rec, err
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("parse trip JSON: %w", err)
	}
	return rec, nil
}

func readHistory(path string) ([]trip.HistoryTrip, error) {
	data, err := readFileOrStdin(path)
	if err != nil {
		return nil, err
	}
	var history []trip.HistoryTrip
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("parse history JSON: %w", err)
	}
	return history, nil
}

func readFileOrStdin(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

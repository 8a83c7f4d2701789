// Command trainer fits a new transport-mode model bundle from a file of
// labeled trips and, when a database is given, persists and activates it.
// Training is an offline batch job: it never runs inside a serving process.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"

	"github.com/travelogy-data/tripsense/internal/config"
	"github.com/travelogy-data/tripsense/internal/predictor"
	"github.com/travelogy-data/tripsense/internal/store"
	"github.com/travelogy-data/tripsense/internal/trip"
)

func main() {
	var (
		dbPath     = flag.String("db", "", "path to the model database (optional; dry run without it)")
		dataPath   = flag.String("data", "", "path to a JSON array of labeled trip records (required)")
		configPath = flag.String("config", "", "path to a tuning config JSON file")
	)
	flag.Parse()

	if *dataPath == "" {
		flag.Usage()
		os.Exit(1)
	}

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
	} else {
		log.Printf("no -db given: dry run, the trained bundle will not be persisted")
	}

	data, err := os.ReadFile(*dataPath)
	if err != nil {
		log.Fatalf("Failed to read training data: %v", err)
	}
	var samples []trip.Record
	if err := json.Unmarshal(data, &samples); err != nil {
		log.Fatalf("Failed to parse training data: %v", err)
	}
	log.Printf("loaded %d trips from %s", len(samples), *dataPath)

	p, err := predictor.New(cfg, st, nil)
	if err != nil {
		log.Fatalf("Failed to initialise predictor: %v", err)
	}

	report, err := p.Train(samples)
	if err != nil {
		log.Fatalf("Training failed: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		log.Fatalf("Failed to encode report: %v", err)
	}
}

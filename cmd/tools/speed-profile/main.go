// Command speed-profile plots the speed trace of a recorded trip to a PNG,
// with the stop-speed threshold drawn in for eyeballing segmentation
// behaviour on real tracks.
package main

import (
	"encoding/json"
	"flag"
	"image/color"
	"log"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/travelogy-data/tripsense/internal/config"
	"github.com/travelogy-data/tripsense/internal/geomath"
	"github.com/travelogy-data/tripsense/internal/trip"
)

func main() {
	var (
		tripPath   = flag.String("trip", "", "path to a trip record JSON file (required)")
		outPath    = flag.String("out", "speed-profile.png", "output PNG path")
		configPath = flag.String("config", "", "path to a tuning config JSON file")
	)
	flag.Parse()

	if *tripPath == "" {
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

	data, err := os.ReadFile(*tripPath)
	if err != nil {
		log.Fatalf("Failed to read trip: %v", err)
	}
	var rec trip.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		log.Fatalf("Failed to parse trip JSON: %v", err)
	}
	if len(rec.Waypoints) < 2 {
		log.Fatalf("Trip has %d waypoints, need at least 2", len(rec.Waypoints))
	}

	pts := speedSeries(rec.Waypoints)
	if len(pts) == 0 {
		log.Fatal("No usable waypoint pairs (non-increasing timestamps?)")
	}

	p := plot.New()
	p.Title.Text = "Trip speed profile"
	p.X.Label.Text = "Elapsed (minutes)"
	p.Y.Label.Text = "Speed (km/h)"

	line, err := plotter.NewLine(pts)
	if err != nil {
		log.Fatalf("Failed to build speed line: %v", err)
	}
	line.Width = vg.Points(1)
	p.Add(line)
	p.Legend.Add("speed", line)

	threshold := cfg.GetStopSpeedKMH()
	stopLine, err := plotter.NewLine(plotter.XYs{
		{X: pts[0].X, Y: threshold},
		{X: pts[len(pts)-1].X, Y: threshold},
	})
	if err != nil {
		log.Fatalf("Failed to build threshold line: %v", err)
	}
	stopLine.Width = vg.Points(1)
	stopLine.Color = color.RGBA{R: 200, A: 255}
	stopLine.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	p.Add(stopLine)
	p.Legend.Add("stop threshold", stopLine)

	if err := p.Save(14*vg.Inch, 6*vg.Inch, *outPath); err != nil {
		log.Fatalf("Failed to save plot: %v", err)
	}
	log.Printf("wrote %s (%d points)", *outPath, len(pts))
}

// speedSeries converts the track into (elapsed minutes, km/h) pairs, one per
// consecutive waypoint pair. Pairs with non-increasing timestamps are
// skipped.
func speedSeries(wps []trip.Waypoint) plotter.XYs {
	start := wps[0].Timestamp.Time
	var pts plotter.XYs
	for i := 1; i < len(wps); i++ {
		prev, curr := wps[i-1], wps[i]
		elapsed := curr.Timestamp.Sub(prev.Timestamp.Time).Seconds()
		if elapsed <= 0 {
			continue
		}
		distance := geomath.DistanceKM(prev.Lat, prev.Lng, curr.Lat, curr.Lng)
		pts = append(pts, plotter.XY{
			X: curr.Timestamp.Sub(start).Minutes(),
			Y: (distance / elapsed) * 3600,
		})
	}
	return pts
}

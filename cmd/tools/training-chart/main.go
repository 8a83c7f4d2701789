// Command training-chart renders the latest training report from the model
// database as a standalone HTML page: per-model held-out accuracy and the
// forest's feature importances.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/travelogy-data/tripsense/internal/mode"
	"github.com/travelogy-data/tripsense/internal/store"
)

func main() {
	var (
		dbPath  = flag.String("db", "", "path to the model database (required)")
		outPath = flag.String("out", "training-chart.html", "output HTML path")
	)
	flag.Parse()

	if *dbPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	s, err := store.Open(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer s.Close()

	reports, err := s.RecentReports(20)
	if err != nil {
		log.Fatalf("Failed to load training reports: %v", err)
	}
	latest := latestSuccessful(reports)
	if latest == nil {
		log.Fatal("No successful training report in the database")
	}

	page := components.NewPage()
	page.AddCharts(
		accuracyChart(latest),
		importanceChart(latest.Report),
	)

	f, err := os.Create(*outPath)
	if err != nil {
		log.Fatalf("Failed to create output file: %v", err)
	}
	defer f.Close()
	if err := page.Render(f); err != nil {
		log.Fatalf("Failed to render charts: %v", err)
	}
	log.Printf("wrote %s for bundle %s", *outPath, latest.BundleID)
}

func latestSuccessful(reports []store.StoredReport) *store.StoredReport {
	for i := range reports {
		if reports[i].Status == mode.StatusSuccess {
			return &reports[i]
		}
	}
	return nil
}

func accuracyChart(r *store.StoredReport) *charts.Bar {
	names := []string{"forest", "boost", "ensemble"}
	evals := []*mode.ModelEval{r.Report.Forest, r.Report.Boost, r.Report.Ensemble}

	var x []string
	var y []opts.BarData
	for i, eval := range evals {
		if eval == nil {
			continue
		}
		x = append(x, names[i])
		y = append(y, opts.BarData{Value: eval.Accuracy})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: "Held-out accuracy",
			Subtitle: fmt.Sprintf("bundle %s, %d train / %d test samples, %s",
				r.BundleID, r.Report.TrainSamples, r.Report.TestSamples,
				r.CreatedAt.Format(time.RFC3339)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: 1}),
	)
	bar.SetXAxis(x).AddSeries("accuracy", y,
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
	)
	return bar
}

func importanceChart(report *mode.TrainingReport) *charts.Bar {
	type pair struct {
		name  string
		value float64
	}
	pairs := make([]pair, 0, len(report.FeatureImportance))
	for name, value := range report.FeatureImportance {
		pairs = append(pairs, pair{name, value})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].value > pairs[j].value })

	var x []string
	var y []opts.BarData
	for _, p := range pairs {
		x = append(x, p.name)
		y = append(y, opts.BarData{Value: p.value})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Feature importance (forest)"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Show: opts.Bool(true), Rotate: 45}}),
	)
	bar.SetXAxis(x).AddSeries("importance", y)
	return bar
}

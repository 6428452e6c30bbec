// Package main provides a tool to export the fleet modernity views to CSV.
// The output is compatible with spreadsheet tooling and the pipeline's own
// export format: one file per view, header row first.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"strconv"

	"fleetindex/internal/storage"
)

func main() {
	backend := flag.String("backend", "sqlite", "Storage backend: sqlite or postgres")
	dbPath := flag.String("db", "fleetindex.db", "SQLite database path")

	// PostgreSQL connection flags.
	pgHost := flag.String("pg-host", "localhost", "PostgreSQL host")
	pgPort := flag.Int("pg-port", 5432, "PostgreSQL port")
	pgUser := flag.String("pg-user", "fleetindex", "PostgreSQL user")
	pgPassword := flag.String("pg-password", "", "PostgreSQL password")
	pgDB := flag.String("pg-db", "fleetindex", "PostgreSQL database")

	view := flag.String("view", "airlines", "View to export: airlines, top or regions")
	output := flag.String("output", "", "Output CSV file (default: stdout)")
	verbose := flag.Bool("v", false, "Verbose output")

	flag.Parse()

	ctx := context.Background()

	var (
		store storage.Store
		err   error
	)
	switch *backend {
	case "sqlite":
		store, err = storage.Open(*dbPath)
	case "postgres":
		store, err = storage.OpenPostgres(ctx, storage.PostgresConfig{
			Host:     *pgHost,
			Port:     *pgPort,
			Database: *pgDB,
			User:     *pgUser,
			Password: *pgPassword,
		})
	default:
		fmt.Fprintf(os.Stderr, "Unknown backend: %s\n", *backend)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening storage: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	var writer *csv.Writer
	if *output != "" {
		file, err := os.Create(*output)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating file: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = file.Close() }()
		writer = csv.NewWriter(file)
	} else {
		writer = csv.NewWriter(os.Stdout)
	}

	var rows int
	switch *view {
	case "airlines":
		rows, err = exportAirlines(ctx, store, writer)
	case "top":
		rows, err = exportTop(ctx, store, writer)
	case "regions":
		rows, err = exportRegions(ctx, store, writer)
	default:
		fmt.Fprintf(os.Stderr, "Unknown view: %s\n", *view)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error exporting %s: %v\n", *view, err)
		os.Exit(1)
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		fmt.Fprintf(os.Stderr, "Error flushing CSV: %v\n", err)
		os.Exit(1)
	}

	if *verbose {
		fmt.Fprintf(os.Stderr, "Exported %d rows from %s\n", rows, *view)
	}
}

// exportAirlines writes the full per-airline view: feature, score and
// clustering columns joined on the airline key, unscored airlines with
// empty cells.
func exportAirlines(ctx context.Context, store storage.Store, w *csv.Writer) (int, error) {
	airlines, err := store.ListAirlineFull(ctx, 0)
	if err != nil {
		return 0, fmt.Errorf("querying full view: %w", err)
	}

	header := []string{
		"airline", "fleet_size", "modernity_index_score", "new_gen_share_features",
		"modernity_index_clustering", "new_gen_share_clustering",
		"pct_newgen_narrow", "pct_newgen_wide", "cluster",
	}
	if err := w.Write(header); err != nil {
		return 0, err
	}

	for _, a := range airlines {
		row := []string{
			a.Airline,
			strconv.Itoa(a.FleetSize),
			formatFloat(a.ModernityIndexScore),
			formatFloat(a.NewGenShareFeatures),
			formatFloat(a.ModernityIndexClustering),
			formatFloat(a.NewGenShareClustering),
			formatFloat(a.PctNewgenNarrow),
			formatFloat(a.PctNewgenWide),
			formatInt(a.Cluster),
		}
		if err := w.Write(row); err != nil {
			return 0, err
		}
	}
	return len(airlines), nil
}

// exportTop writes the ranking view in its stored order.
func exportTop(ctx context.Context, store storage.Store, w *csv.Writer) (int, error) {
	top, err := store.ListTopAirlines(ctx)
	if err != nil {
		return 0, fmt.Errorf("querying ranking view: %w", err)
	}

	header := []string{"airline", "fleet_size", "modernity_index", "version", "qa_notes"}
	if err := w.Write(header); err != nil {
		return 0, err
	}

	for _, t := range top {
		row := []string{
			t.Airline,
			strconv.Itoa(t.FleetSize),
			formatFloat(t.ModernityIndex),
			t.VersionV1,
			t.QANotes,
		}
		if err := w.Write(row); err != nil {
			return 0, err
		}
	}
	return len(top), nil
}

// exportRegions writes the region rollup, best region first.
func exportRegions(ctx context.Context, store storage.Store, w *csv.Writer) (int, error) {
	regions, err := store.ListRegionSummaries(ctx)
	if err != nil {
		return 0, fmt.Errorf("querying region view: %w", err)
	}

	header := []string{"region", "n_airlines", "mean_modernity_index", "top_airlines"}
	if err := w.Write(header); err != nil {
		return 0, err
	}

	for _, r := range regions {
		row := []string{
			r.Region,
			strconv.Itoa(r.NAirlines),
			formatFloat(r.MeanModernityIndex),
			r.TopAirlines,
		}
		if err := w.Write(row); err != nil {
			return 0, err
		}
	}
	return len(regions), nil
}

func formatFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'g', -1, 64)
}

func formatInt(i *int) string {
	if i == nil {
		return ""
	}
	return strconv.Itoa(*i)
}

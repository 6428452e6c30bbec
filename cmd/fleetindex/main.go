// Command-line entry point for the fleet modernity index store.
//
// The store is refreshed wholesale from the CSV exports of the offline
// feature/scoring/clustering pipeline; there is no row-level write path.
//
// Subcommands:
//
//	load   - bulk-load pipeline CSV exports into the store
//	stats  - print row counts per table
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"fleetindex/internal/loader"
	"fleetindex/internal/notify"
	"fleetindex/internal/storage"
)

func usage(w io.Writer) {
	fmt.Fprintln(w, "fleetindex - airline fleet modernity store:")
	fmt.Fprintln(w, "  load   - bulk-load pipeline CSV exports into the store")
	fmt.Fprintln(w, "  stats  - print row counts per table")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  fleetindex load -dir exports/ [-db fleetindex.db] [-backend sqlite|postgres] [-nats-url nats://...]")
	fmt.Fprintln(w, "  fleetindex stats [-db fleetindex.db] [-backend sqlite|postgres]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - Tables are replaced whole, in dependency order (features first).")
	fmt.Fprintln(w, "  - Expected files: airline_features.csv, airline_scores.csv,")
	fmt.Fprintln(w, "    airline_clustering_features.csv, region_summary.csv.")
	fmt.Fprintln(w, "    Missing files are skipped; a bad row rejects its whole file.")
	fmt.Fprintln(w, "")
}

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}
	cmd := strings.ToLower(os.Args[1])
	switch cmd {
	case "load":
		runLoad(os.Args[2:])
	case "stats":
		runStats(os.Args[2:])
	case "-h", "--help", "help":
		usage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage(os.Stderr)
		os.Exit(2)
	}
}

// storeFlags registers the backend selection flags shared by subcommands.
type storeFlags struct {
	backend    *string
	sqlitePath *string
	pgHost     *string
	pgPort     *int
	pgUser     *string
	pgPassword *string
	pgDB       *string
}

func registerStoreFlags(fs *flag.FlagSet) storeFlags {
	return storeFlags{
		backend:    fs.String("backend", envOrDefault("FLEETINDEX_BACKEND", "sqlite"), "Store backend: sqlite or postgres"),
		sqlitePath: fs.String("db", envOrDefault("FLEETINDEX_DB", "fleetindex.db"), "SQLite database path"),
		pgHost:     fs.String("pg-host", envOrDefault("POSTGRES_HOST", "localhost"), "PostgreSQL host"),
		pgPort:     fs.Int("pg-port", envOrDefaultInt("POSTGRES_PORT", 5432), "PostgreSQL port"),
		pgUser:     fs.String("pg-user", envOrDefault("POSTGRES_USER", "fleetindex"), "PostgreSQL user"),
		pgPassword: fs.String("pg-password", envOrDefault("POSTGRES_PASSWORD", "fleetindex"), "PostgreSQL password"),
		pgDB:       fs.String("pg-database", envOrDefault("POSTGRES_DATABASE", "fleetindex"), "PostgreSQL database"),
	}
}

func openStore(ctx context.Context, f storeFlags) (storage.Store, error) {
	switch *f.backend {
	case "sqlite":
		return storage.Open(*f.sqlitePath)
	case "postgres":
		return storage.OpenPostgres(ctx, storage.PostgresConfig{
			Host:     *f.pgHost,
			Port:     *f.pgPort,
			Database: *f.pgDB,
			User:     *f.pgUser,
			Password: *f.pgPassword,
		})
	default:
		return nil, fmt.Errorf("unknown backend %q (want sqlite or postgres)", *f.backend)
	}
}

func runLoad(args []string) {
	fs := flag.NewFlagSet("load", flag.ExitOnError)
	dir := fs.String("dir", ".", "Directory containing the pipeline CSV exports")
	natsURL := fs.String("nats-url", envOrDefault("NATS_URL", ""), "NATS server URL for refresh notifications (optional)")
	sf := registerStoreFlags(fs)
	_ = fs.Parse(args)

	ctx := context.Background()

	store, err := openStore(ctx, sf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening store: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	var notifier loader.Notifier
	if *natsURL != "" {
		pub, err := notify.Connect(*natsURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error connecting to NATS: %v\n", err)
			os.Exit(1)
		}
		defer pub.Close()
		notifier = pub
	}

	if err := loader.New(store, notifier).LoadAll(ctx, *dir); err != nil {
		fmt.Fprintf(os.Stderr, "Load error: %v\n", err)
		os.Exit(1)
	}
}

func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	sf := registerStoreFlags(fs)
	_ = fs.Parse(args)

	ctx := context.Background()

	store, err := openStore(ctx, sf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening store: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	counts, err := store.TableCounts(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading counts: %v\n", err)
		os.Exit(1)
	}

	for _, table := range []string{"airline_features", "airline_scores", "airline_clustering_features", "region_summary"} {
		fmt.Printf("%-28s %d\n", table, counts[table])
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

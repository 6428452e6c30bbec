// Package main provides the fleet-api server for airline fleet
// modernity data.
//
// This is a standalone read-only REST API over the modernity views:
// per-airline feature/score/cluster projections, the top-50 ranking,
// and per-region rollups. The underlying tables are refreshed offline
// by the fleetindex load command; this server never writes.
//
// Usage:
//
//	fleet-api [options]
//
// Options:
//
//	-backend NAME       Store backend: sqlite or postgres (default: sqlite, env: FLEETINDEX_BACKEND)
//	-db PATH            SQLite database path (default: fleetindex.db, env: FLEETINDEX_DB)
//	-pg-host HOST       PostgreSQL host (default: localhost, env: POSTGRES_HOST)
//	-pg-port PORT       PostgreSQL port (default: 5432, env: POSTGRES_PORT)
//	-pg-database DB     PostgreSQL database (default: fleetindex, env: POSTGRES_DATABASE)
//	-pg-user USER       PostgreSQL user (default: fleetindex, env: POSTGRES_USER)
//	-pg-password PASS   PostgreSQL password (default: fleetindex, env: POSTGRES_PASSWORD)
//	-port N             HTTP port (default: 8080)
//
// API Endpoints:
//
//	GET /api/v1/health
//	    Health check endpoint.
//
//	GET /api/v1/airlines?limit=N&region=X
//	    Airline listing from the full view, best score first. The region
//	    parameter is accepted but not yet backed by a column; it is
//	    echoed back unfiltered.
//
//	GET /api/v1/airlines/top
//	    The top-50 ranking: modernity index descending, fleet size
//	    breaking ties.
//
//	GET /api/v1/clusters/{cluster_id}
//	    All airlines carrying the given cluster label.
//
//	GET /api/v1/regions/summary
//	    Per-region rollup.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"

	"fleetindex/internal/api"
	"fleetindex/internal/storage"
)

func main() {
	backend := flag.String("backend", envOrDefault("FLEETINDEX_BACKEND", "sqlite"), "Store backend: sqlite or postgres")
	sqlitePath := flag.String("db", envOrDefault("FLEETINDEX_DB", "fleetindex.db"), "SQLite database path")

	pgHost := flag.String("pg-host", envOrDefault("POSTGRES_HOST", "localhost"), "PostgreSQL host")
	pgPort := flag.Int("pg-port", envOrDefaultInt("POSTGRES_PORT", 5432), "PostgreSQL port")
	pgUser := flag.String("pg-user", envOrDefault("POSTGRES_USER", "fleetindex"), "PostgreSQL user")
	pgPassword := flag.String("pg-password", envOrDefault("POSTGRES_PASSWORD", "fleetindex"), "PostgreSQL password")
	pgDB := flag.String("pg-database", envOrDefault("POSTGRES_DATABASE", "fleetindex"), "PostgreSQL database")

	port := flag.Int("port", 8080, "HTTP port for API server")

	flag.Parse()

	ctx := context.Background()

	var store storage.Store
	var err error
	switch *backend {
	case "sqlite":
		store, err = storage.Open(*sqlitePath)
	case "postgres":
		store, err = storage.OpenPostgres(ctx, storage.PostgresConfig{
			Host:     *pgHost,
			Port:     *pgPort,
			Database: *pgDB,
			User:     *pgUser,
			Password: *pgPassword,
		})
	default:
		fmt.Fprintf(os.Stderr, "Unknown backend %q (want sqlite or postgres)\n", *backend)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening store: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	server := api.NewServer(store, api.Config{Port: *port})
	if err := server.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
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

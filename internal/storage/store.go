// Package storage provides the relational store for the airline fleet
// modernity model: four bulk-loaded fact tables, foreign keys with
// cascading delete from the root feature table, and the read views the
// query API is served from. SQLite and PostgreSQL backends implement
// the same contract.
package storage

import "context"

// Config holds connection settings for both backends.
type Config struct {
	SQLitePath string // Path to the SQLite file, or ":memory:".
	Postgres   PostgresConfig
}

// DefaultConfig returns a configuration with default local development settings.
func DefaultConfig() Config {
	return Config{
		SQLitePath: "fleetindex.db",
		Postgres: PostgresConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "fleetindex",
			User:     "fleetindex",
			Password: "fleetindex",
		},
	}
}

// AirlineFeatures is the root fact row, one per airline. Counts and
// fleet-share columns cover the next-generation airframe families
// (neo, MAX, A220, E2, 787, A350, A330neo). Shares are a pipeline
// convention (0-1 or 0-100) and are not validated against the counts.
type AirlineFeatures struct {
	Airline                 string
	FleetSize               int
	NModels                 *int
	Diversity               *float64
	NewGenShare             *float64
	ModernityIndexV0        *float64
	ModernityIndexPublic    *float64
	ModernityIndexPenalized *float64
	NNeo                    *int
	NMax                    *int
	NA220                   *int
	NE2                     *int
	N787                    *int
	NA350                   *int
	NA330neo                *int
	PctNeo                  *float64
	PctMax                  *float64
	PctA220                 *float64
	PctE2                   *float64
	Pct787                  *float64
	PctA350                 *float64
	PctA330neo              *float64
}

// AirlineScore is the scoring-stage snapshot for an airline. FleetSize
// and Diversity are copies taken when the score was computed; they are
// intentionally not reconciled with airline_features.
type AirlineScore struct {
	Airline        string
	FleetSize      *int
	Diversity      *float64
	ModernityIndex *float64
	VersionV1      string
	QANotes        string
}

// ClusteringFeatures is the clustering-stage snapshot for an airline.
// ModernityIndex is recomputed by the clustering pipeline and may
// disagree with AirlineScore.ModernityIndex. Cluster carries no ordinal
// meaning between label values.
type ClusteringFeatures struct {
	Airline         string
	FleetSize       *int
	NModels         *int
	Diversity       *float64
	ModernityIndex  *float64
	NewGenShare     *float64
	PctNewgenNarrow *float64
	PctNewgenWide   *float64
	Cluster         int
}

// RegionSummary is an independently maintained per-region rollup.
// TopAirlines is a serialized list, not a relation.
type RegionSummary struct {
	Region             string
	NAirlines          int
	MeanModernityIndex *float64
	TopAirlines        string
}

// AirlineFull is one row of the full per-airline view. Score and
// clustering columns are nil when that stage has not produced a row for
// the airline yet.
type AirlineFull struct {
	Airline                 string
	FleetSize               int
	NModels                 *int
	Diversity               *float64
	NewGenShareFeatures     *float64
	ModernityIndexV0        *float64
	ModernityIndexPublic    *float64
	ModernityIndexPenalized *float64
	NNeo                    *int
	NMax                    *int
	NA220                   *int
	NE2                     *int
	N787                    *int
	NA350                   *int
	NA330neo                *int
	PctNeo                  *float64
	PctMax                  *float64
	PctA220                 *float64
	PctE2                   *float64
	Pct787                  *float64
	PctA350                 *float64
	PctA330neo              *float64

	ModernityIndexScore *float64
	VersionV1           string
	QANotes             string

	ModernityIndexClustering *float64
	NewGenShareClustering    *float64
	PctNewgenNarrow          *float64
	PctNewgenWide            *float64
	Cluster                  *int
}

// TopAirline is one row of the ranking view.
type TopAirline struct {
	Airline        string
	FleetSize      int
	ModernityIndex *float64
	VersionV1      string
	QANotes        string
}

/// Store is the contract both backends satisfy: wholesale table
// replacement as the only write path, plus reads against the views.
type Store interface {
	// Replace operations swap a table's full contents inside a single
	// transaction. Replacing airline_features cascades the delete to the
	// two dependent tables, so a full refresh must reload them afterwards
	// in dependency order.
	ReplaceAirlineFeatures(ctx context.Context, rows []AirlineFeatures) error
	ReplaceAirlineScores(ctx context.Context, rows []AirlineScore) error
	ReplaceClusteringFeatures(ctx context.Context, rows []ClusteringFeatures) error
	ReplaceRegionSummaries(ctx context.Context, rows []RegionSummary) error

	// DeleteAirline removes an airline's root row; score and clustering
	// rows go with it via the cascade.
	DeleteAirline(ctx context.Context, airline string) error

	// ListAirlineFull reads the full view ordered by the score-stage
	// modernity index, best first. limit <= 0 means no cap.
	ListAirlineFull(ctx context.Context, limit int) ([]AirlineFull, error)

	// ListAirlinesByCluster reads the full view filtered to one cluster
	// label. An unknown label yields an empty slice, not an error.
	ListAirlinesByCluster(ctx context.Context, cluster int) ([]AirlineFull, error)

	// ListTopAirlines reads the ranking view: scored airlines only,
	// modernity index descending, fleet size breaking ties, at most 50.
	ListTopAirlines(ctx context.Context) ([]TopAirline, error)

	// ListRegionSummaries reads the region view ordered by mean
	// modernity index descending.
	ListRegionSummaries(ctx context.Context) ([]RegionSummary, error)

	// TableCounts returns the row count per base table.
	TableCounts(ctx context.Context) (map[string]int, error)

	Close() error
}

package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// PostgresDB is the PostgreSQL backend, for shared deployments.
type PostgresDB struct {
	pool *pgxpool.Pool
}

// OpenPostgres opens a connection pool to PostgreSQL and ensures the
// schema exists.
func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*PostgresDB, error) {
	connStr := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	d := &PostgresDB{pool: pool}
	if err := d.createSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return d, nil
}

// Close closes the PostgreSQL connection pool.
func (d *PostgresDB) Close() error {
	d.pool.Close()
	return nil
}

// Pool returns the underlying connection pool for advanced operations.
func (d *PostgresDB) Pool() *pgxpool.Pool {
	return d.pool
}

// createSchema creates the tables and views. Same shape as the SQLite
// schema with PostgreSQL types.
func (d *PostgresDB) createSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS airline_features (
		airline                   TEXT PRIMARY KEY,
		fleet_size                INTEGER NOT NULL CHECK (fleet_size >= 0),
		n_models                  INTEGER,
		diversity                 DOUBLE PRECISION,
		new_gen_share             DOUBLE PRECISION,
		modernity_index_v0        DOUBLE PRECISION,
		modernity_index_public    DOUBLE PRECISION,
		modernity_index_penalized DOUBLE PRECISION,
		n_neo                     INTEGER,
		n_max                     INTEGER,
		n_a220                    INTEGER,
		n_e2                      INTEGER,
		n_787                     INTEGER,
		n_a350                    INTEGER,
		n_a330neo                 INTEGER,
		pct_neo                   DOUBLE PRECISION,
		pct_max                   DOUBLE PRECISION,
		pct_a220                  DOUBLE PRECISION,
		pct_e2                    DOUBLE PRECISION,
		pct_787                   DOUBLE PRECISION,
		pct_a350                  DOUBLE PRECISION,
		pct_a330neo               DOUBLE PRECISION
	);

	CREATE TABLE IF NOT EXISTS airline_scores (
		airline         TEXT PRIMARY KEY REFERENCES airline_features(airline) ON DELETE CASCADE,
		fleet_size      INTEGER,
		diversity       DOUBLE PRECISION,
		modernity_index DOUBLE PRECISION,
		version_v1      TEXT,
		qa_notes        TEXT
	);

	CREATE TABLE IF NOT EXISTS airline_clustering_features (
		airline           TEXT PRIMARY KEY REFERENCES airline_features(airline) ON DELETE CASCADE,
		fleet_size        INTEGER,
		n_models          INTEGER,
		diversity         DOUBLE PRECISION,
		modernity_index   DOUBLE PRECISION,
		new_gen_share     DOUBLE PRECISION,
		pct_newgen_narrow DOUBLE PRECISION,
		pct_newgen_wide   DOUBLE PRECISION,
		cluster           INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS region_summary (
		region               TEXT PRIMARY KEY,
		n_airlines           INTEGER NOT NULL,
		mean_modernity_index DOUBLE PRECISION,
		top_airlines         TEXT
	);

	CREATE OR REPLACE VIEW v_airline_full AS
	SELECT
		f.airline,
		f.fleet_size,
		f.n_models,
		f.diversity,
		f.new_gen_share             AS new_gen_share_features,
		f.modernity_index_v0,
		f.modernity_index_public,
		f.modernity_index_penalized,
		f.n_neo, f.n_max, f.n_a220, f.n_e2, f.n_787, f.n_a350, f.n_a330neo,
		f.pct_neo, f.pct_max, f.pct_a220, f.pct_e2, f.pct_787, f.pct_a350, f.pct_a330neo,
		s.modernity_index           AS modernity_index_score,
		s.version_v1,
		s.qa_notes,
		c.modernity_index           AS modernity_index_clustering,
		c.new_gen_share             AS new_gen_share_clustering,
		c.pct_newgen_narrow,
		c.pct_newgen_wide,
		c.cluster
	FROM airline_features f
	LEFT JOIN airline_scores s ON s.airline = f.airline
	LEFT JOIN airline_clustering_features c ON c.airline = f.airline;

	CREATE OR REPLACE VIEW v_top_airlines AS
	SELECT
		s.airline,
		f.fleet_size,
		s.modernity_index,
		s.version_v1,
		s.qa_notes
	FROM airline_scores s
	JOIN airline_features f ON f.airline = s.airline
	ORDER BY s.modernity_index DESC NULLS LAST, f.fleet_size DESC
	LIMIT 50;

	CREATE OR REPLACE VIEW v_region_modernity AS
	SELECT region, n_airlines, mean_modernity_index, top_airlines
	FROM region_summary;
	`

	_, err := d.pool.Exec(ctx, schema)
	return err
}

// replaceTable runs clear+insert inside one transaction so readers never
// observe a half-loaded table.
func (d *PostgresDB) replaceTable(ctx context.Context, table string, insert func(pgx.Tx) error) error {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM `+table); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}
	if err := insert(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ReplaceAirlineFeatures swaps the contents of airline_features. The
// delete cascades to the two dependent tables.
func (d *PostgresDB) ReplaceAirlineFeatures(ctx context.Context, rows []AirlineFeatures) error {
	return d.replaceTable(ctx, "airline_features", func(tx pgx.Tx) error {
		for _, r := range rows {
			_, err := tx.Exec(ctx, `
				INSERT INTO airline_features (
					airline, fleet_size, n_models, diversity, new_gen_share,
					modernity_index_v0, modernity_index_public, modernity_index_penalized,
					n_neo, n_max, n_a220, n_e2, n_787, n_a350, n_a330neo,
					pct_neo, pct_max, pct_a220, pct_e2, pct_787, pct_a350, pct_a330neo
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
			`,
				r.Airline, r.FleetSize, r.NModels, r.Diversity, r.NewGenShare,
				r.ModernityIndexV0, r.ModernityIndexPublic, r.ModernityIndexPenalized,
				r.NNeo, r.NMax, r.NA220, r.NE2, r.N787, r.NA350, r.NA330neo,
				r.PctNeo, r.PctMax, r.PctA220, r.PctE2, r.Pct787, r.PctA350, r.PctA330neo,
			)
			if err != nil {
				return fmt.Errorf("insert airline_features %q: %w", r.Airline, err)
			}
		}
		return nil
	})
}

// ReplaceAirlineScores swaps the contents of airline_scores.
func (d *PostgresDB) ReplaceAirlineScores(ctx context.Context, rows []AirlineScore) error {
	return d.replaceTable(ctx, "airline_scores", func(tx pgx.Tx) error {
		for _, r := range rows {
			_, err := tx.Exec(ctx, `
				INSERT INTO airline_scores (airline, fleet_size, diversity, modernity_index, version_v1, qa_notes)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, r.Airline, r.FleetSize, r.Diversity, r.ModernityIndex, r.VersionV1, r.QANotes)
			if err != nil {
				return fmt.Errorf("insert airline_scores %q: %w", r.Airline, err)
			}
		}
		return nil
	})
}

// ReplaceClusteringFeatures swaps the contents of airline_clustering_features.
func (d *PostgresDB) ReplaceClusteringFeatures(ctx context.Context, rows []ClusteringFeatures) error {
	return d.replaceTable(ctx, "airline_clustering_features", func(tx pgx.Tx) error {
		for _, r := range rows {
			_, err := tx.Exec(ctx, `
				INSERT INTO airline_clustering_features (
					airline, fleet_size, n_models, diversity, modernity_index,
					new_gen_share, pct_newgen_narrow, pct_newgen_wide, cluster
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			`,
				r.Airline, r.FleetSize, r.NModels, r.Diversity, r.ModernityIndex,
				r.NewGenShare, r.PctNewgenNarrow, r.PctNewgenWide, r.Cluster,
			)
			if err != nil {
				return fmt.Errorf("insert airline_clustering_features %q: %w", r.Airline, err)
			}
		}
		return nil
	})
}

// ReplaceRegionSummaries swaps the contents of region_summary.
func (d *PostgresDB) ReplaceRegionSummaries(ctx context.Context, rows []RegionSummary) error {
	return d.replaceTable(ctx, "region_summary", func(tx pgx.Tx) error {
		for _, r := range rows {
			_, err := tx.Exec(ctx, `
				INSERT INTO region_summary (region, n_airlines, mean_modernity_index, top_airlines)
				VALUES ($1, $2, $3, $4)
			`, r.Region, r.NAirlines, r.MeanModernityIndex, r.TopAirlines)
			if err != nil {
				return fmt.Errorf("insert region_summary %q: %w", r.Region, err)
			}
		}
		return nil
	})
}

// DeleteAirline removes an airline's root feature row; dependents cascade.
func (d *PostgresDB) DeleteAirline(ctx context.Context, airline string) error {
	_, err := d.pool.Exec(ctx, `DELETE FROM airline_features WHERE airline = $1`, airline)
	return err
}

func scanAirlineFullPG(rows pgx.Rows) (AirlineFull, error) {
	var a AirlineFull
	var versionV1, qaNotes *string

	err := rows.Scan(
		&a.Airline, &a.FleetSize, &a.NModels, &a.Diversity, &a.NewGenShareFeatures,
		&a.ModernityIndexV0, &a.ModernityIndexPublic, &a.ModernityIndexPenalized,
		&a.NNeo, &a.NMax, &a.NA220, &a.NE2, &a.N787, &a.NA350, &a.NA330neo,
		&a.PctNeo, &a.PctMax, &a.PctA220, &a.PctE2, &a.Pct787, &a.PctA350, &a.PctA330neo,
		&a.ModernityIndexScore, &versionV1, &qaNotes,
		&a.ModernityIndexClustering, &a.NewGenShareClustering,
		&a.PctNewgenNarrow, &a.PctNewgenWide, &a.Cluster,
	)
	if err != nil {
		return a, err
	}

	if versionV1 != nil {
		a.VersionV1 = *versionV1
	}
	if qaNotes != nil {
		a.QANotes = *qaNotes
	}
	return a, nil
}

// ListAirlineFull reads the full view, best score first.
func (d *PostgresDB) ListAirlineFull(ctx context.Context, limit int) ([]AirlineFull, error) {
	query := `SELECT ` + airlineFullColumns + `
		FROM v_airline_full
		ORDER BY modernity_index_score DESC NULLS LAST`
	var args []any
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := d.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query v_airline_full: %w", err)
	}
	defer rows.Close()

	var out []AirlineFull
	for rows.Next() {
		a, err := scanAirlineFullPG(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListAirlinesByCluster reads the full view filtered to one cluster label.
func (d *PostgresDB) ListAirlinesByCluster(ctx context.Context, cluster int) ([]AirlineFull, error) {
	rows, err := d.pool.Query(ctx, `SELECT `+airlineFullColumns+`
		FROM v_airline_full
		WHERE cluster = $1
		ORDER BY modernity_index_score DESC NULLS LAST`, cluster)
	if err != nil {
		return nil, fmt.Errorf("query v_airline_full: %w", err)
	}
	defer rows.Close()

	var out []AirlineFull
	for rows.Next() {
		a, err := scanAirlineFullPG(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListTopAirlines reads the ranking view.
func (d *PostgresDB) ListTopAirlines(ctx context.Context) ([]TopAirline, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT airline, fleet_size, modernity_index, version_v1, qa_notes
		FROM v_top_airlines`)
	if err != nil {
		return nil, fmt.Errorf("query v_top_airlines: %w", err)
	}
	defer rows.Close()

	var out []TopAirline
	for rows.Next() {
		var t TopAirline
		var versionV1, qaNotes *string
		if err := rows.Scan(&t.Airline, &t.FleetSize, &t.ModernityIndex, &versionV1, &qaNotes); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if versionV1 != nil {
			t.VersionV1 = *versionV1
		}
		if qaNotes != nil {
			t.QANotes = *qaNotes
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListRegionSummaries reads the region view.
func (d *PostgresDB) ListRegionSummaries(ctx context.Context) ([]RegionSummary, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT region, n_airlines, mean_modernity_index, top_airlines
		FROM v_region_modernity
		ORDER BY mean_modernity_index DESC NULLS LAST`)
	if err != nil {
		return nil, fmt.Errorf("query v_region_modernity: %w", err)
	}
	defer rows.Close()

	var out []RegionSummary
	for rows.Next() {
		var r RegionSummary
		var top *string
		if err := rows.Scan(&r.Region, &r.NAirlines, &r.MeanModernityIndex, &top); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if top != nil {
			r.TopAirlines = *top
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// TableCounts returns the row count per base table.
func (d *PostgresDB) TableCounts(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	for _, table := range []string{"airline_features", "airline_scores", "airline_clustering_features", "region_summary"} {
		var n int
		if err := d.pool.QueryRow(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}

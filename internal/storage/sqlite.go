package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteDB is the embedded backend, suitable for local use and tests.
type SQLiteDB struct {
	db *sql.DB
}

// Open opens or creates a SQLite database at the given path. If path is
// empty or ":memory:", an in-memory database is used.
func Open(path string) (*SQLiteDB, error) {
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Single connection: the write path is bulk reloads, and an in-memory
	// database must not be split across pool connections.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteDB{db: db}, nil
}

// Close closes the database connection.
func (d *SQLiteDB) Close() error {
	return d.db.Close()
}

// ReplaceAirlineFeatures swaps the contents of airline_features in one
// transaction. The delete cascades to airline_scores and
// airline_clustering_features, so dependents must be reloaded after.
func (d *SQLiteDB) ReplaceAirlineFeatures(ctx context.Context, rows []AirlineFeatures) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM airline_features`); err != nil {
		return fmt.Errorf("clear airline_features: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO airline_features (
			airline, fleet_size, n_models, diversity, new_gen_share,
			modernity_index_v0, modernity_index_public, modernity_index_penalized,
			n_neo, n_max, n_a220, n_e2, n_787, n_a350, n_a330neo,
			pct_neo, pct_max, pct_a220, pct_e2, pct_787, pct_a350, pct_a330neo
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range rows {
		_, err := stmt.ExecContext(ctx,
			r.Airline, r.FleetSize, r.NModels, r.Diversity, r.NewGenShare,
			r.ModernityIndexV0, r.ModernityIndexPublic, r.ModernityIndexPenalized,
			r.NNeo, r.NMax, r.NA220, r.NE2, r.N787, r.NA350, r.NA330neo,
			r.PctNeo, r.PctMax, r.PctA220, r.PctE2, r.Pct787, r.PctA350, r.PctA330neo,
		)
		if err != nil {
			return fmt.Errorf("insert airline_features %q: %w", r.Airline, err)
		}
	}

	return tx.Commit()
}

// ReplaceAirlineScores swaps the contents of airline_scores. A row whose
// airline has no airline_features row fails the whole load.
func (d *SQLiteDB) ReplaceAirlineScores(ctx context.Context, rows []AirlineScore) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM airline_scores`); err != nil {
		return fmt.Errorf("clear airline_scores: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO airline_scores (airline, fleet_size, diversity, modernity_index, version_v1, qa_notes)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range rows {
		_, err := stmt.ExecContext(ctx, r.Airline, r.FleetSize, r.Diversity, r.ModernityIndex, r.VersionV1, r.QANotes)
		if err != nil {
			return fmt.Errorf("insert airline_scores %q: %w", r.Airline, err)
		}
	}

	return tx.Commit()
}

// ReplaceClusteringFeatures swaps the contents of airline_clustering_features.
func (d *SQLiteDB) ReplaceClusteringFeatures(ctx context.Context, rows []ClusteringFeatures) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM airline_clustering_features`); err != nil {
		return fmt.Errorf("clear airline_clustering_features: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO airline_clustering_features (
			airline, fleet_size, n_models, diversity, modernity_index,
			new_gen_share, pct_newgen_narrow, pct_newgen_wide, cluster
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range rows {
		_, err := stmt.ExecContext(ctx,
			r.Airline, r.FleetSize, r.NModels, r.Diversity, r.ModernityIndex,
			r.NewGenShare, r.PctNewgenNarrow, r.PctNewgenWide, r.Cluster,
		)
		if err != nil {
			return fmt.Errorf("insert airline_clustering_features %q: %w", r.Airline, err)
		}
	}

	return tx.Commit()
}

// ReplaceRegionSummaries swaps the contents of region_summary.
func (d *SQLiteDB) ReplaceRegionSummaries(ctx context.Context, rows []RegionSummary) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM region_summary`); err != nil {
		return fmt.Errorf("clear region_summary: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO region_summary (region, n_airlines, mean_modernity_index, top_airlines)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range rows {
		_, err := stmt.ExecContext(ctx, r.Region, r.NAirlines, r.MeanModernityIndex, r.TopAirlines)
		if err != nil {
			return fmt.Errorf("insert region_summary %q: %w", r.Region, err)
		}
	}

	return tx.Commit()
}

// DeleteAirline removes an airline's root feature row. Score and
// clustering rows are removed by the cascade.
func (d *SQLiteDB) DeleteAirline(ctx context.Context, airline string) error {
	_, err := d.db.ExecContext(ctx, `DELETE FROM airline_features WHERE airline = ?`, airline)
	return err
}

const airlineFullColumns = `
	airline, fleet_size, n_models, diversity, new_gen_share_features,
	modernity_index_v0, modernity_index_public, modernity_index_penalized,
	n_neo, n_max, n_a220, n_e2, n_787, n_a350, n_a330neo,
	pct_neo, pct_max, pct_a220, pct_e2, pct_787, pct_a350, pct_a330neo,
	modernity_index_score, version_v1, qa_notes,
	modernity_index_clustering, new_gen_share_clustering,
	pct_newgen_narrow, pct_newgen_wide, cluster`

func scanAirlineFull(rows *sql.Rows) (AirlineFull, error) {
	var a AirlineFull
	var versionV1, qaNotes sql.NullString

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

	a.VersionV1 = versionV1.String
	a.QANotes = qaNotes.String
	return a, nil
}

// ListAirlineFull reads the full view, best score first.
func (d *SQLiteDB) ListAirlineFull(ctx context.Context, limit int) ([]AirlineFull, error) {
	query := `SELECT ` + airlineFullColumns + `
		FROM v_airline_full
		ORDER BY modernity_index_score DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query v_airline_full: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []AirlineFull
	for rows.Next() {
		a, err := scanAirlineFull(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListAirlinesByCluster reads the full view filtered to one cluster label.
func (d *SQLiteDB) ListAirlinesByCluster(ctx context.Context, cluster int) ([]AirlineFull, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT `+airlineFullColumns+`
		FROM v_airline_full
		WHERE cluster = ?
		ORDER BY modernity_index_score DESC`, cluster)
	if err != nil {
		return nil, fmt.Errorf("query v_airline_full: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []AirlineFull
	for rows.Next() {
		a, err := scanAirlineFull(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListTopAirlines reads the ranking view. Ordering and the 50-row cap
// are part of the view definition.
func (d *SQLiteDB) ListTopAirlines(ctx context.Context) ([]TopAirline, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT airline, fleet_size, modernity_index, version_v1, qa_notes
		FROM v_top_airlines`)
	if err != nil {
		return nil, fmt.Errorf("query v_top_airlines: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []TopAirline
	for rows.Next() {
		var t TopAirline
		var versionV1, qaNotes sql.NullString
		if err := rows.Scan(&t.Airline, &t.FleetSize, &t.ModernityIndex, &versionV1, &qaNotes); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		t.VersionV1 = versionV1.String
		t.QANotes = qaNotes.String
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListRegionSummaries reads the region view.
func (d *SQLiteDB) ListRegionSummaries(ctx context.Context) ([]RegionSummary, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT region, n_airlines, mean_modernity_index, top_airlines
		FROM v_region_modernity
		ORDER BY mean_modernity_index DESC`)
	if err != nil {
		return nil, fmt.Errorf("query v_region_modernity: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []RegionSummary
	for rows.Next() {
		var r RegionSummary
		var top sql.NullString
		if err := rows.Scan(&r.Region, &r.NAirlines, &r.MeanModernityIndex, &top); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		r.TopAirlines = top.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// TableCounts returns the row count per base table.
func (d *SQLiteDB) TableCounts(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	for _, table := range []string{"airline_features", "airline_scores", "airline_clustering_features", "region_summary"} {
		var n int
		if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}

package storage

// sqliteSchema contains the SQLite table and view definitions for the
// fleet modernity store. Column order matches the bulk-load CSV layout
// for each table.
const sqliteSchema = `
-- Root fact: one row per airline, produced by the feature pipeline.
CREATE TABLE IF NOT EXISTS airline_features (
	airline                   TEXT PRIMARY KEY,
	fleet_size                INTEGER NOT NULL CHECK (fleet_size >= 0),
	n_models                  INTEGER,
	diversity                 REAL,
	new_gen_share             REAL,
	modernity_index_v0        REAL,
	modernity_index_public    REAL,
	modernity_index_penalized REAL,
	n_neo                     INTEGER,
	n_max                     INTEGER,
	n_a220                    INTEGER,
	n_e2                      INTEGER,
	n_787                     INTEGER,
	n_a350                    INTEGER,
	n_a330neo                 INTEGER,
	pct_neo                   REAL,
	pct_max                   REAL,
	pct_a220                  REAL,
	pct_e2                    REAL,
	pct_787                   REAL,
	pct_a350                  REAL,
	pct_a330neo               REAL
);

-- Scoring-stage snapshot. fleet_size and diversity are copies taken at
-- scoring time, kept separate so stage disagreement stays visible.
CREATE TABLE IF NOT EXISTS airline_scores (
	airline         TEXT PRIMARY KEY REFERENCES airline_features(airline) ON DELETE CASCADE,
	fleet_size      INTEGER,
	diversity       REAL,
	modernity_index REAL,
	version_v1      TEXT,
	qa_notes        TEXT
);

-- Clustering-stage snapshot. modernity_index here is recomputed by the
-- clustering pipeline, independent of airline_scores.modernity_index.
CREATE TABLE IF NOT EXISTS airline_clustering_features (
	airline           TEXT PRIMARY KEY REFERENCES airline_features(airline) ON DELETE CASCADE,
	fleet_size        INTEGER,
	n_models          INTEGER,
	diversity         REAL,
	modernity_index   REAL,
	new_gen_share     REAL,
	pct_newgen_narrow REAL,
	pct_newgen_wide   REAL,
	cluster           INTEGER NOT NULL
);

-- Independently loaded rollup. No FK to the airline tables: it may be
-- refreshed out of sync with the per-airline facts.
CREATE TABLE IF NOT EXISTS region_summary (
	region               TEXT PRIMARY KEY,
	n_airlines           INTEGER NOT NULL,
	mean_modernity_index REAL,
	top_airlines         TEXT
);

-- Full per-airline projection: one row per airline_features row, score
-- and clustering columns NULL when those stages have not run yet. The
-- two modernity indexes and the two new-gen shares are independently
-- computed and exposed under distinct names.
CREATE VIEW IF NOT EXISTS v_airline_full AS
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

-- Ranking: scored airlines only (inner join is intentional), best score
-- first, larger fleet wins ties, hard cap at 50 rows.
CREATE VIEW IF NOT EXISTS v_top_airlines AS
SELECT
	s.airline,
	f.fleet_size,
	s.modernity_index,
	s.version_v1,
	s.qa_notes
FROM airline_scores s
JOIN airline_features f ON f.airline = s.airline
ORDER BY s.modernity_index DESC, f.fleet_size DESC
LIMIT 50;

-- Stable name for region readers, decoupled from the base table.
CREATE VIEW IF NOT EXISTS v_region_modernity AS
SELECT region, n_airlines, mean_modernity_index, top_airlines
FROM region_summary;
`

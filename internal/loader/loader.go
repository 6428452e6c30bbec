package loader

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"fleetindex/internal/storage"
)

// Default file names, one per table, matching the table's CSV layout.
const (
	FeaturesFile   = "airline_features.csv"
	ScoresFile     = "airline_scores.csv"
	ClusteringFile = "airline_clustering_features.csv"
	RegionsFile    = "region_summary.csv"
)

// Notifier is told after a table refresh commits. See the notify package.
type Notifier interface {
	TableRefreshed(table string, rows int)
}

// Loader reads pipeline CSV exports and replaces table contents through
// a Store. Each file is parsed fully before any write happens, so a bad
// row or a drifted header rejects the whole file.
type Loader struct {
	store    storage.Store
	notifier Notifier // Optional; nil means no notifications.
}

// New creates a Loader. notifier may be nil.
func New(store storage.Store, notifier Notifier) *Loader {
	return &Loader{store: store, notifier: notifier}
}

// readTable reads a CSV file, validates the header against the layout,
// and returns the data records. The csv reader enforces a constant
// field count after the header row.
func readTable(path string, layout []string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(layout)

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%s: read header: %w", filepath.Base(path), err)
	}
	if err := checkHeader(header, layout, filepath.Base(path)); err != nil {
		return nil, err
	}

	var records [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (l *Loader) notify(table string, rows int) {
	if l.notifier != nil {
		l.notifier.TableRefreshed(table, rows)
	}
}

// LoadAirlineFeatures replaces airline_features from a CSV file and
// returns the number of rows loaded. Dependent tables are emptied by
// the cascade and must be reloaded afterwards.
func (l *Loader) LoadAirlineFeatures(ctx context.Context, path string) (int, error) {
	records, err := readTable(path, featuresLayout)
	if err != nil {
		return 0, err
	}

	rows := make([]storage.AirlineFeatures, 0, len(records))
	for i, rec := range records {
		row, err := parseFeaturesRow(rec)
		if err != nil {
			return 0, fmt.Errorf("%s: row %d: %w", filepath.Base(path), i+2, err)
		}
		rows = append(rows, row)
	}

	if err := l.store.ReplaceAirlineFeatures(ctx, rows); err != nil {
		return 0, fmt.Errorf("replace airline_features: %w", err)
	}
	l.notify("airline_features", len(rows))
	return len(rows), nil
}

// LoadAirlineScores replaces airline_scores from a CSV file. Rows
// naming an airline absent from airline_features fail the whole load.
func (l *Loader) LoadAirlineScores(ctx context.Context, path string) (int, error) {
	records, err := readTable(path, scoresLayout)
	if err != nil {
		return 0, err
	}

	rows := make([]storage.AirlineScore, 0, len(records))
	for i, rec := range records {
		row, err := parseScoreRow(rec)
		if err != nil {
			return 0, fmt.Errorf("%s: row %d: %w", filepath.Base(path), i+2, err)
		}
		rows = append(rows, row)
	}

	if err := l.store.ReplaceAirlineScores(ctx, rows); err != nil {
		return 0, fmt.Errorf("replace airline_scores: %w", err)
	}
	l.notify("airline_scores", len(rows))
	return len(rows), nil
}

// LoadClusteringFeatures replaces airline_clustering_features from a
// CSV file. Same referential rule as scores.
func (l *Loader) LoadClusteringFeatures(ctx context.Context, path string) (int, error) {
	records, err := readTable(path, clusteringLayout)
	if err != nil {
		return 0, err
	}

	rows := make([]storage.ClusteringFeatures, 0, len(records))
	for i, rec := range records {
		row, err := parseClusteringRow(rec)
		if err != nil {
			return 0, fmt.Errorf("%s: row %d: %w", filepath.Base(path), i+2, err)
		}
		rows = append(rows, row)
	}

	if err := l.store.ReplaceClusteringFeatures(ctx, rows); err != nil {
		return 0, fmt.Errorf("replace airline_clustering_features: %w", err)
	}
	l.notify("airline_clustering_features", len(rows))
	return len(rows), nil
}

// LoadRegionSummaries replaces region_summary from a CSV file. The
// region rollup is independent of the airline tables.
func (l *Loader) LoadRegionSummaries(ctx context.Context, path string) (int, error) {
	records, err := readTable(path, regionLayout)
	if err != nil {
		return 0, err
	}

	rows := make([]storage.RegionSummary, 0, len(records))
	for i, rec := range records {
		row, err := parseRegionRow(rec)
		if err != nil {
			return 0, fmt.Errorf("%s: row %d: %w", filepath.Base(path), i+2, err)
		}
		rows = append(rows, row)
	}

	if err := l.store.ReplaceRegionSummaries(ctx, rows); err != nil {
		return 0, fmt.Errorf("replace region_summary: %w", err)
	}
	l.notify("region_summary", len(rows))
	return len(rows), nil
}

// LoadAll refreshes every table whose file exists in dir, in dependency
// order: the root feature table first, then the two dependent stages,
// then the independent region rollup. A missing file skips that table
// with a log line; any load error stops the refresh.
func (l *Loader) LoadAll(ctx context.Context, dir string) error {
	steps := []struct {
		file string
		load func(context.Context, string) (int, error)
	}{
		{FeaturesFile, l.LoadAirlineFeatures},
		{ScoresFile, l.LoadAirlineScores},
		{ClusteringFile, l.LoadClusteringFeatures},
		{RegionsFile, l.LoadRegionSummaries},
	}

	for _, step := range steps {
		path := filepath.Join(dir, step.file)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			log.Printf("skipping %s: file not present", step.file)
			continue
		}
		n, err := step.load(ctx, path)
		if err != nil {
			return err
		}
		log.Printf("loaded %d rows from %s", n, step.file)
	}
	return nil
}

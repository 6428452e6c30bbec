// Package loader ingests the pipeline's CSV exports into the fleet
// modernity store, one full-table replacement per file.
package loader

import (
	"fmt"
	"strconv"
	"strings"

	"fleetindex/internal/storage"
)

// Expected header rows, one per table. Column order is the load
// contract; a file whose header does not match fails before any row is
// parsed, so a drifted export can never land values in the wrong
// columns.
var (
	featuresLayout = []string{
		"airline", "fleet_size", "n_models", "diversity", "new_gen_share",
		"modernity_index_v0", "modernity_index_public", "modernity_index_penalized",
		"n_neo", "n_max", "n_a220", "n_e2", "n_787", "n_a350", "n_a330neo",
		"pct_neo", "pct_max", "pct_a220", "pct_e2", "pct_787", "pct_a350", "pct_a330neo",
	}
	scoresLayout = []string{
		"airline", "fleet_size", "diversity", "modernity_index", "version_v1", "qa_notes",
	}
	clusteringLayout = []string{
		"airline", "fleet_size", "n_models", "diversity", "modernity_index",
		"new_gen_share", "pct_newgen_narrow", "pct_newgen_wide", "cluster",
	}
	regionLayout = []string{
		"region", "n_airlines", "mean_modernity_index", "top_airlines",
	}
)

// checkHeader verifies the header row against the declared layout.
func checkHeader(got, want []string, file string) error {
	if len(got) != len(want) {
		return fmt.Errorf("%s: header has %d columns, want %d", file, len(got), len(want))
	}
	for i := range want {
		if strings.TrimSpace(got[i]) != want[i] {
			return fmt.Errorf("%s: column %d is %q, want %q", file, i+1, strings.TrimSpace(got[i]), want[i])
		}
	}
	return nil
}

// Field parsing. Optional columns map empty fields to nil; required
// columns treat empty as a row error.

func parseString(field string) string {
	return strings.TrimSpace(field)
}

func parseRequiredInt(field, column string) (int, error) {
	s := strings.TrimSpace(field)
	if s == "" {
		return 0, fmt.Errorf("%s: required value is empty", column)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", column, err)
	}
	return n, nil
}

func parseIntPtr(field, column string) (*int, error) {
	s := strings.TrimSpace(field)
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", column, err)
	}
	return &n, nil
}

func parseFloatPtr(field, column string) (*float64, error) {
	s := strings.TrimSpace(field)
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", column, err)
	}
	return &f, nil
}

func parseFeaturesRow(rec []string) (storage.AirlineFeatures, error) {
	var r storage.AirlineFeatures
	var err error

	r.Airline = parseString(rec[0])
	if r.Airline == "" {
		return r, fmt.Errorf("airline: required value is empty")
	}
	if r.FleetSize, err = parseRequiredInt(rec[1], "fleet_size"); err != nil {
		return r, err
	}
	if r.FleetSize < 0 {
		return r, fmt.Errorf("fleet_size: negative value %d", r.FleetSize)
	}

	intCols := []struct {
		dst  **int
		idx  int
		name string
	}{
		{&r.NModels, 2, "n_models"},
		{&r.NNeo, 8, "n_neo"},
		{&r.NMax, 9, "n_max"},
		{&r.NA220, 10, "n_a220"},
		{&r.NE2, 11, "n_e2"},
		{&r.N787, 12, "n_787"},
		{&r.NA350, 13, "n_a350"},
		{&r.NA330neo, 14, "n_a330neo"},
	}
	for _, c := range intCols {
		if *c.dst, err = parseIntPtr(rec[c.idx], c.name); err != nil {
			return r, err
		}
	}

	floatCols := []struct {
		dst  **float64
		idx  int
		name string
	}{
		{&r.Diversity, 3, "diversity"},
		{&r.NewGenShare, 4, "new_gen_share"},
		{&r.ModernityIndexV0, 5, "modernity_index_v0"},
		{&r.ModernityIndexPublic, 6, "modernity_index_public"},
		{&r.ModernityIndexPenalized, 7, "modernity_index_penalized"},
		{&r.PctNeo, 15, "pct_neo"},
		{&r.PctMax, 16, "pct_max"},
		{&r.PctA220, 17, "pct_a220"},
		{&r.PctE2, 18, "pct_e2"},
		{&r.Pct787, 19, "pct_787"},
		{&r.PctA350, 20, "pct_a350"},
		{&r.PctA330neo, 21, "pct_a330neo"},
	}
	for _, c := range floatCols {
		if *c.dst, err = parseFloatPtr(rec[c.idx], c.name); err != nil {
			return r, err
		}
	}

	return r, nil
}

func parseScoreRow(rec []string) (storage.AirlineScore, error) {
	var r storage.AirlineScore
	var err error

	r.Airline = parseString(rec[0])
	if r.Airline == "" {
		return r, fmt.Errorf("airline: required value is empty")
	}
	if r.FleetSize, err = parseIntPtr(rec[1], "fleet_size"); err != nil {
		return r, err
	}
	if r.Diversity, err = parseFloatPtr(rec[2], "diversity"); err != nil {
		return r, err
	}
	if r.ModernityIndex, err = parseFloatPtr(rec[3], "modernity_index"); err != nil {
		return r, err
	}
	r.VersionV1 = parseString(rec[4])
	r.QANotes = parseString(rec[5])
	return r, nil
}

func parseClusteringRow(rec []string) (storage.ClusteringFeatures, error) {
	var r storage.ClusteringFeatures
	var err error

	r.Airline = parseString(rec[0])
	if r.Airline == "" {
		return r, fmt.Errorf("airline: required value is empty")
	}
	if r.FleetSize, err = parseIntPtr(rec[1], "fleet_size"); err != nil {
		return r, err
	}
	if r.NModels, err = parseIntPtr(rec[2], "n_models"); err != nil {
		return r, err
	}
	if r.Diversity, err = parseFloatPtr(rec[3], "diversity"); err != nil {
		return r, err
	}
	if r.ModernityIndex, err = parseFloatPtr(rec[4], "modernity_index"); err != nil {
		return r, err
	}
	if r.NewGenShare, err = parseFloatPtr(rec[5], "new_gen_share"); err != nil {
		return r, err
	}
	if r.PctNewgenNarrow, err = parseFloatPtr(rec[6], "pct_newgen_narrow"); err != nil {
		return r, err
	}
	if r.PctNewgenWide, err = parseFloatPtr(rec[7], "pct_newgen_wide"); err != nil {
		return r, err
	}
	if r.Cluster, err = parseRequiredInt(rec[8], "cluster"); err != nil {
		return r, err
	}
	return r, nil
}

func parseRegionRow(rec []string) (storage.RegionSummary, error) {
	var r storage.RegionSummary
	var err error

	r.Region = parseString(rec[0])
	if r.Region == "" {
		return r, fmt.Errorf("region: required value is empty")
	}
	if r.NAirlines, err = parseRequiredInt(rec[1], "n_airlines"); err != nil {
		return r, err
	}
	if r.MeanModernityIndex, err = parseFloatPtr(rec[2], "mean_modernity_index"); err != nil {
		return r, err
	}
	r.TopAirlines = parseString(rec[3])
	return r, nil
}

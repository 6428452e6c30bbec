package storage

import (
	"context"
	"fmt"
	"testing"
)

func intPtr(i int) *int           { return &i }
func floatPtr(f float64) *float64 { return &f }

func openTestDB(t *testing.T) *SQLiteDB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func features(airline string, fleetSize int) AirlineFeatures {
	return AirlineFeatures{
		Airline:     airline,
		FleetSize:   fleetSize,
		NModels:     intPtr(4),
		Diversity:   floatPtr(0.25),
		NewGenShare: floatPtr(0.4),
	}
}

func score(airline string, modernity float64) AirlineScore {
	return AirlineScore{
		Airline:        airline,
		ModernityIndex: floatPtr(modernity),
		VersionV1:      "v1",
	}
}

func TestCascadeDelete(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.ReplaceAirlineFeatures(ctx, []AirlineFeatures{features("Air A", 100)}); err != nil {
		t.Fatalf("load features: %v", err)
	}
	if err := db.ReplaceAirlineScores(ctx, []AirlineScore{score("Air A", 0.8)}); err != nil {
		t.Fatalf("load scores: %v", err)
	}
	if err := db.ReplaceClusteringFeatures(ctx, []ClusteringFeatures{{Airline: "Air A", Cluster: 2}}); err != nil {
		t.Fatalf("load clustering: %v", err)
	}

	if err := db.DeleteAirline(ctx, "Air A"); err != nil {
		t.Fatalf("delete airline: %v", err)
	}

	counts, err := db.TableCounts(ctx)
	if err != nil {
		t.Fatalf("table counts: %v", err)
	}
	for _, table := range []string{"airline_features", "airline_scores", "airline_clustering_features"} {
		if counts[table] != 0 {
			t.Errorf("%s: expected 0 rows after cascade delete, got %d", table, counts[table])
		}
	}
}

func TestCascadeLeavesRegionSummary(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.ReplaceAirlineFeatures(ctx, []AirlineFeatures{features("Air A", 100)}); err != nil {
		t.Fatalf("load features: %v", err)
	}
	if err := db.ReplaceRegionSummaries(ctx, []RegionSummary{{Region: "EU", NAirlines: 12}}); err != nil {
		t.Fatalf("load regions: %v", err)
	}

	if err := db.DeleteAirline(ctx, "Air A"); err != nil {
		t.Fatalf("delete airline: %v", err)
	}

	regions, err := db.ListRegionSummaries(ctx)
	if err != nil {
		t.Fatalf("list regions: %v", err)
	}
	if len(regions) != 1 {
		t.Errorf("expected region_summary untouched by cascade, got %d rows", len(regions))
	}
}

func TestFullViewLeftJoin(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	// Air A is scored and clustered, Air B has only the root facts.
	if err := db.ReplaceAirlineFeatures(ctx, []AirlineFeatures{features("Air A", 100), features("Air B", 50)}); err != nil {
		t.Fatalf("load features: %v", err)
	}
	if err := db.ReplaceAirlineScores(ctx, []AirlineScore{score("Air A", 0.8)}); err != nil {
		t.Fatalf("load scores: %v", err)
	}
	if err := db.ReplaceClusteringFeatures(ctx, []ClusteringFeatures{{Airline: "Air A", ModernityIndex: floatPtr(0.75), Cluster: 1}}); err != nil {
		t.Fatalf("load clustering: %v", err)
	}

	rows, err := db.ListAirlineFull(ctx, 0)
	if err != nil {
		t.Fatalf("list full view: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected one view row per airline_features row, got %d", len(rows))
	}

	byAirline := make(map[string]AirlineFull)
	for _, r := range rows {
		byAirline[r.Airline] = r
	}

	a := byAirline["Air A"]
	if a.ModernityIndexScore == nil || *a.ModernityIndexScore != 0.8 {
		t.Errorf("Air A: expected modernity_index_score 0.8, got %v", a.ModernityIndexScore)
	}
	if a.ModernityIndexClustering == nil || *a.ModernityIndexClustering != 0.75 {
		t.Errorf("Air A: expected modernity_index_clustering 0.75, got %v", a.ModernityIndexClustering)
	}
	if a.Cluster == nil || *a.Cluster != 1 {
		t.Errorf("Air A: expected cluster 1, got %v", a.Cluster)
	}

	b := byAirline["Air B"]
	if b.ModernityIndexScore != nil {
		t.Errorf("Air B: expected nil modernity_index_score, got %v", *b.ModernityIndexScore)
	}
	if b.Cluster != nil {
		t.Errorf("Air B: expected nil cluster, got %v", *b.Cluster)
	}
	if b.FleetSize != 50 {
		t.Errorf("Air B: expected fleet_size 50, got %d", b.FleetSize)
	}
}

func TestTopAirlinesExcludesUnscored(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.ReplaceAirlineFeatures(ctx, []AirlineFeatures{features("Air A", 100), features("Air B", 50)}); err != nil {
		t.Fatalf("load features: %v", err)
	}
	if err := db.ReplaceAirlineScores(ctx, []AirlineScore{score("Air A", 0.8)}); err != nil {
		t.Fatalf("load scores: %v", err)
	}

	top, err := db.ListTopAirlines(ctx)
	if err != nil {
		t.Fatalf("list top airlines: %v", err)
	}
	if len(top) != 1 {
		t.Fatalf("expected only scored airlines in ranking, got %d rows", len(top))
	}
	if top[0].Airline != "Air A" {
		t.Errorf("expected Air A, got %q", top[0].Airline)
	}
}

func TestTopAirlinesOrderingAndTieBreak(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		scoreA    float64
		scoreB    float64
		wantFirst string
	}{
		{
			name:      "higher score ranks first",
			scoreA:    0.9,
			scoreB:    0.95,
			wantFirst: "Air B",
		},
		{
			name:      "equal scores break ties by fleet size",
			scoreA:    0.9,
			scoreB:    0.9,
			wantFirst: "Air A",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := db.ReplaceAirlineFeatures(ctx, []AirlineFeatures{features("Air A", 100), features("Air B", 50)}); err != nil {
				t.Fatalf("load features: %v", err)
			}
			if err := db.ReplaceAirlineScores(ctx, []AirlineScore{score("Air A", tt.scoreA), score("Air B", tt.scoreB)}); err != nil {
				t.Fatalf("load scores: %v", err)
			}

			top, err := db.ListTopAirlines(ctx)
			if err != nil {
				t.Fatalf("list top airlines: %v", err)
			}
			if len(top) != 2 {
				t.Fatalf("expected 2 rows, got %d", len(top))
			}
			if top[0].Airline != tt.wantFirst {
				t.Errorf("expected %q first, got %q", tt.wantFirst, top[0].Airline)
			}
		})
	}
}

func TestTopAirlinesCappedAtFifty(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	var feats []AirlineFeatures
	var scores []AirlineScore
	for i := 0; i < 55; i++ {
		name := fmt.Sprintf("Airline %02d", i)
		feats = append(feats, features(name, 10+i))
		scores = append(scores, score(name, float64(i)/100))
	}
	if err := db.ReplaceAirlineFeatures(ctx, feats); err != nil {
		t.Fatalf("load features: %v", err)
	}
	if err := db.ReplaceAirlineScores(ctx, scores); err != nil {
		t.Fatalf("load scores: %v", err)
	}

	top, err := db.ListTopAirlines(ctx)
	if err != nil {
		t.Fatalf("list top airlines: %v", err)
	}
	if len(top) != 50 {
		t.Fatalf("expected exactly 50 rows, got %d", len(top))
	}

	// Descending modernity index; the five lowest-scored airlines are cut.
	for i := 1; i < len(top); i++ {
		prev, cur := top[i-1].ModernityIndex, top[i].ModernityIndex
		if prev == nil || cur == nil {
			t.Fatalf("unexpected nil modernity index at rank %d", i)
		}
		if *prev < *cur {
			t.Errorf("ranking not descending at rank %d: %v < %v", i, *prev, *cur)
		}
	}
	for _, row := range top {
		if row.ModernityIndex != nil && *row.ModernityIndex < 0.05 {
			t.Errorf("airline %q below the cut should not be visible", row.Airline)
		}
	}
}

func TestOrphanScoreRejectedAtomically(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.ReplaceAirlineFeatures(ctx, []AirlineFeatures{features("Air A", 100)}); err != nil {
		t.Fatalf("load features: %v", err)
	}
	if err := db.ReplaceAirlineScores(ctx, []AirlineScore{score("Air A", 0.8)}); err != nil {
		t.Fatalf("load scores: %v", err)
	}

	// A reload containing one orphan row must fail and leave the prior
	// contents in place.
	err := db.ReplaceAirlineScores(ctx, []AirlineScore{score("Air A", 0.9), score("Ghost Air", 0.5)})
	if err == nil {
		t.Fatal("expected foreign key violation for unknown airline")
	}

	counts, err := db.TableCounts(ctx)
	if err != nil {
		t.Fatalf("table counts: %v", err)
	}
	if counts["airline_scores"] != 1 {
		t.Errorf("expected prior airline_scores contents preserved, got %d rows", counts["airline_scores"])
	}

	top, err := db.ListTopAirlines(ctx)
	if err != nil {
		t.Fatalf("list top airlines: %v", err)
	}
	if len(top) != 1 || top[0].ModernityIndex == nil || *top[0].ModernityIndex != 0.8 {
		t.Errorf("expected the pre-reload score 0.8 to survive the failed load")
	}
}

func TestOrphanClusteringRejected(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	err := db.ReplaceClusteringFeatures(ctx, []ClusteringFeatures{{Airline: "Ghost Air", Cluster: 0}})
	if err == nil {
		t.Fatal("expected foreign key violation for unknown airline")
	}
}

func TestDuplicateAirlineRejected(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	err := db.ReplaceAirlineFeatures(ctx, []AirlineFeatures{features("Air A", 100), features("Air A", 90)})
	if err == nil {
		t.Fatal("expected primary key violation for duplicate airline")
	}
}

func TestNegativeFleetSizeRejected(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	err := db.ReplaceAirlineFeatures(ctx, []AirlineFeatures{features("Air A", -1)})
	if err == nil {
		t.Fatal("expected check constraint violation for negative fleet size")
	}
}

func TestReloadIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	feats := []AirlineFeatures{features("Air A", 100), features("Air B", 50)}
	scores := []AirlineScore{score("Air A", 0.8), score("Air B", 0.7)}

	load := func() {
		t.Helper()
		if err := db.ReplaceAirlineFeatures(ctx, feats); err != nil {
			t.Fatalf("load features: %v", err)
		}
		if err := db.ReplaceAirlineScores(ctx, scores); err != nil {
			t.Fatalf("load scores: %v", err)
		}
	}

	load()
	first, err := db.ListAirlineFull(ctx, 0)
	if err != nil {
		t.Fatalf("list full view: %v", err)
	}

	load()
	second, err := db.ListAirlineFull(ctx, 0)
	if err != nil {
		t.Fatalf("list full view: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("row count changed across reload: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Airline != second[i].Airline || first[i].FleetSize != second[i].FleetSize {
			t.Errorf("row %d differs across reload: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestClusterFilter(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.ReplaceAirlineFeatures(ctx, []AirlineFeatures{features("Air A", 100), features("Air B", 50), features("Air C", 20)}); err != nil {
		t.Fatalf("load features: %v", err)
	}
	if err := db.ReplaceClusteringFeatures(ctx, []ClusteringFeatures{
		{Airline: "Air A", Cluster: 0},
		{Airline: "Air B", Cluster: 1},
		{Airline: "Air C", Cluster: 0},
	}); err != nil {
		t.Fatalf("load clustering: %v", err)
	}

	members, err := db.ListAirlinesByCluster(ctx, 0)
	if err != nil {
		t.Fatalf("list cluster members: %v", err)
	}
	if len(members) != 2 {
		t.Errorf("expected 2 members of cluster 0, got %d", len(members))
	}

	// An unknown label is a valid empty result.
	empty, err := db.ListAirlinesByCluster(ctx, 99)
	if err != nil {
		t.Fatalf("list cluster members: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected empty result for unknown cluster, got %d rows", len(empty))
	}
}

func TestListAirlineFullLimit(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	var feats []AirlineFeatures
	for i := 0; i < 10; i++ {
		feats = append(feats, features(fmt.Sprintf("Airline %d", i), 10))
	}
	if err := db.ReplaceAirlineFeatures(ctx, feats); err != nil {
		t.Fatalf("load features: %v", err)
	}

	rows, err := db.ListAirlineFull(ctx, 3)
	if err != nil {
		t.Fatalf("list full view: %v", err)
	}
	if len(rows) != 3 {
		t.Errorf("expected limit to cap rows at 3, got %d", len(rows))
	}
}

func TestRegionSummaryRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.ReplaceRegionSummaries(ctx, []RegionSummary{
		{Region: "EU", NAirlines: 12, MeanModernityIndex: floatPtr(0.61), TopAirlines: "Air A, Air B, Air C"},
		{Region: "APAC", NAirlines: 8, MeanModernityIndex: floatPtr(0.72), TopAirlines: "Air D"},
	}); err != nil {
		t.Fatalf("load regions: %v", err)
	}

	regions, err := db.ListRegionSummaries(ctx)
	if err != nil {
		t.Fatalf("list regions: %v", err)
	}
	if len(regions) != 2 {
		t.Fatalf("expected 2 regions, got %d", len(regions))
	}
	// Ordered by mean modernity index descending.
	if regions[0].Region != "APAC" {
		t.Errorf("expected APAC first, got %q", regions[0].Region)
	}
	if regions[1].TopAirlines != "Air A, Air B, Air C" {
		t.Errorf("unexpected top_airlines: %q", regions[1].TopAirlines)
	}
}

package ioquality_test

import (
	"context"
	"testing"
	"time"

	"github.com/gnames/gnfmt"
	"github.com/gnames/gnuuid"
	"github.com/openherbaria/herbdb/internal/iodb"
	"github.com/openherbaria/herbdb/internal/ioquality"
	"github.com/openherbaria/herbdb/internal/ioschema"
	"github.com/openherbaria/herbdb/internal/iotesting"
	"github.com/openherbaria/herbdb/pkg/db"
	"github.com/openherbaria/herbdb/pkg/dwc"
	"github.com/openherbaria/herbdb/pkg/quality"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDB(t *testing.T) db.Operator {
	t.Helper()
	cfg := iotesting.GetTestConfig()
	op := iodb.NewPgxOperator()
	ctx := context.Background()

	err := op.Connect(ctx, &cfg.Database)
	require.NoError(t, err)
	t.Cleanup(func() { op.Close() })

	err = ioschema.NewManager(op).Create(ctx)
	require.NoError(t, err)

	_, err = op.Pool().Exec(ctx,
		`TRUNCATE specimens, specimen_aggregations,
			data_quality_flags CASCADE`)
	require.NoError(t, err)
	return op
}

// seeds a specimen with an aggregation whose best candidates are the
// given field map.
func seedAggregated(
	t *testing.T,
	op db.Operator,
	camera string,
	best dwc.FieldMap,
) string {
	t.Helper()
	ctx := context.Background()
	id := gnuuid.New(camera).String()

	_, err := op.Pool().Exec(ctx,
		`INSERT INTO specimens
			(id, camera_filename, expected_catalog_number,
			 catalog_confidence, created_at)
			VALUES ($1, $2, '', 0, $3)`,
		id, camera, time.Now().UTC())
	require.NoError(t, err)

	enc := gnfmt.GNjson{}
	bestJSON, err := enc.Encode(best)
	require.NoError(t, err)

	_, err = op.Pool().Exec(ctx,
		`INSERT INTO specimen_aggregations
			(specimen_id, candidates, best_candidates, attempt_count,
			 updated_at)
			VALUES ($1, '{}', $2, 1, $3)`,
		id, bestJSON, time.Now().UTC())
	require.NoError(t, err)
	return id
}

func countFlags(t *testing.T, op db.Operator, specimenID string) int {
	t.Helper()
	var n int
	err := op.Pool().QueryRow(context.Background(),
		`SELECT count(*) FROM data_quality_flags
			WHERE specimen_id = $1`, specimenID).Scan(&n)
	require.NoError(t, err)
	return n
}

func TestCheckRaisesAndIsIdempotent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	assert := assert.New(t)
	op := setupDB(t)
	ctx := context.Background()

	c := 0.2
	id := seedAggregated(t, op, "DSC_0400", dwc.FieldMap{
		dwc.CatalogNumber: {Value: "bad catalog", Confidence: &c},
	})

	rules := quality.Defaults()
	rules.Verifier.URL = "" // no network in this test
	checker := ioquality.New(op, rules, nil)

	report, err := checker.Check(ctx, nil)
	require.NoError(t, err)
	assert.Equal(1, report.SpecimensChecked)
	assert.Greater(report.FlagsRaised, 0)
	first := countFlags(t, op, id)

	// Re-running raises nothing new.
	report, err = checker.Check(ctx, nil)
	require.NoError(t, err)
	assert.Zero(report.FlagsRaised)
	assert.Equal(first, countFlags(t, op, id))
}

func TestCheckResolvedFlagsStayResolved(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	assert := assert.New(t)
	op := setupDB(t)
	ctx := context.Background()

	c := 0.9
	id := seedAggregated(t, op, "DSC_0401", dwc.FieldMap{
		dwc.CatalogNumber:  {Value: "NY-123456", Confidence: &c},
		dwc.ScientificName: {Value: "Quercus alba L.", Confidence: &c},
		// eventDate missing -> MISSING_REQUIRED_FIELD
	})

	rules := quality.Defaults()
	rules.Verifier.URL = ""
	checker := ioquality.New(op, rules, nil)

	_, err := checker.Check(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, 1, countFlags(t, op, id))

	// Resolve the flag the way a reviewer would.
	_, err = op.Pool().Exec(ctx,
		`UPDATE data_quality_flags
			SET resolved = true, resolved_by = 'jmartin',
			resolved_at = $2
			WHERE specimen_id = $1`, id, time.Now().UTC())
	require.NoError(t, err)

	// The unchanged issue does not come back after resolution.
	report, err := checker.Check(ctx, nil)
	require.NoError(t, err)
	assert.Zero(report.FlagsRaised)
	assert.Equal(1, countFlags(t, op, id))
}

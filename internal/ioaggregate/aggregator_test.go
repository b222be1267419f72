package ioaggregate_test

import (
	"context"
	"testing"
	"time"

	"github.com/openherbaria/herbdb/internal/ioaggregate"
	"github.com/openherbaria/herbdb/internal/iodb"
	"github.com/openherbaria/herbdb/internal/ioextract"
	"github.com/openherbaria/herbdb/internal/ioimage"
	"github.com/openherbaria/herbdb/internal/ioregistry"
	"github.com/openherbaria/herbdb/internal/ioschema"
	"github.com/openherbaria/herbdb/internal/iotesting"
	"github.com/openherbaria/herbdb/pkg/db"
	"github.com/openherbaria/herbdb/pkg/dwc"
	"github.com/openherbaria/herbdb/pkg/herbdb"
	"github.com/openherbaria/herbdb/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDB(t *testing.T) (db.Operator, string, string) {
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
		`TRUNCATE specimens, original_files, extraction_attempts,
			specimen_aggregations, review_records CASCADE`)
	require.NoError(t, err)

	sha := ioimage.Hash([]byte("aggregation sheet"))
	reg := ioregistry.New(op, nil)
	specimenID, err := reg.RegisterSpecimen(ctx, "DSC_0300", "", 0,
		[]herbdb.FileDescriptor{{SHA256: sha, Role: "sheet"}})
	require.NoError(t, err)
	return op, specimenID, sha
}

func record(
	t *testing.T,
	op db.Operator,
	specimenID, sha, langs string,
	fields dwc.FieldMap,
) {
	t.Helper()
	now := time.Now().UTC()
	att := &herbdb.Attempt{
		ImageSHA256: sha,
		SpecimenID:  specimenID,
		Params: herbdb.ExtractionParams{
			Engine: "tesseract", Languages: langs,
		},
		Status:      schema.StatusCompleted,
		Fields:      fields,
		CompletedAt: &now,
	}
	err := ioextract.NewDeduplicator(op).RecordExtraction(
		context.Background(), att)
	require.NoError(t, err)
}

func conf(v float64) *float64 { return &v }

func TestAggregate(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	assert := assert.New(t)
	op, specimenID, sha := setupDB(t)
	ctx := context.Background()
	agg := ioaggregate.New(op)

	record(t, op, specimenID, sha, "eng", dwc.FieldMap{
		dwc.CatalogNumber:  {Value: "NY-1111", Confidence: conf(0.4)},
		dwc.ScientificName: {Value: "Quercus alba L.", Confidence: conf(0.9)},
	})
	record(t, op, specimenID, sha, "eng+lat", dwc.FieldMap{
		dwc.CatalogNumber: {Value: "NY-2222", Confidence: conf(0.8)},
	})

	err := agg.Aggregate(ctx, specimenID)
	assert.NoError(err)

	var best, candidates []byte
	var count int
	err = op.Pool().QueryRow(ctx,
		`SELECT best_candidates, candidates, attempt_count
			FROM specimen_aggregations WHERE specimen_id = $1`,
		specimenID,
	).Scan(&best, &candidates, &count)
	require.NoError(t, err)
	assert.Equal(2, count)
	assert.Contains(string(best), "NY-2222")
	assert.Contains(string(best), "Quercus alba L.")
	assert.Contains(string(candidates), "NY-1111")

	// Aggregation queues the specimen for review exactly once.
	var status string
	err = op.Pool().QueryRow(ctx,
		`SELECT status FROM review_records WHERE specimen_id = $1`,
		specimenID,
	).Scan(&status)
	require.NoError(t, err)
	assert.Equal(schema.ReviewPending, status)
}

func TestAggregateRerunIsByteIdentical(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	assert := assert.New(t)
	op, specimenID, sha := setupDB(t)
	ctx := context.Background()
	agg := ioaggregate.New(op)

	record(t, op, specimenID, sha, "eng", dwc.FieldMap{
		dwc.CatalogNumber: {Value: "NY-1111", Confidence: conf(0.4)},
		dwc.Locality:      {Value: "Hudson River banks", Confidence: conf(0.6)},
	})

	readJSON := func() (string, string) {
		var best, cands []byte
		err := op.Pool().QueryRow(ctx,
			`SELECT best_candidates, candidates
				FROM specimen_aggregations WHERE specimen_id = $1`,
			specimenID,
		).Scan(&best, &cands)
		require.NoError(t, err)
		return string(best), string(cands)
	}

	require.NoError(t, agg.Aggregate(ctx, specimenID))
	best1, cands1 := readJSON()

	// With no new attempts the rewrite must be byte-identical.
	require.NoError(t, agg.Aggregate(ctx, specimenID))
	best2, cands2 := readJSON()

	assert.Equal(best1, best2)
	assert.Equal(cands1, cands2)
}

func TestAggregateNoAttempts(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	op, specimenID, _ := setupDB(t)
	agg := ioaggregate.New(op)

	err := agg.Aggregate(context.Background(), specimenID)
	assert.Error(t, err)
}

func TestAggregateAll(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	assert := assert.New(t)
	op, specimenID, sha := setupDB(t)
	ctx := context.Background()

	record(t, op, specimenID, sha, "eng", dwc.FieldMap{
		dwc.CatalogNumber: {Value: "NY-1111", Confidence: conf(0.4)},
	})

	n, err := ioaggregate.New(op).AggregateAll(ctx)
	assert.NoError(err)
	assert.Equal(1, n)
}

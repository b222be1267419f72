package ioextract_test

import (
	"context"
	"testing"
	"time"

	"github.com/openherbaria/herbdb/internal/ioaggregate"
	"github.com/openherbaria/herbdb/internal/ioextract"
	"github.com/openherbaria/herbdb/internal/ioimage"
	"github.com/openherbaria/herbdb/pkg/config"
	"github.com/openherbaria/herbdb/pkg/db"
	"github.com/openherbaria/herbdb/pkg/dwc"
	"github.com/openherbaria/herbdb/pkg/herbdb"
	"github.com/openherbaria/herbdb/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stalledEngine never produces a result; it waits for the per-image
// timeout to cancel it.
type stalledEngine struct{}

func (stalledEngine) Name() string { return "stalled" }

func (stalledEngine) Extract(
	ctx context.Context,
	_ []byte,
	_ herbdb.ExtractionParams,
) (*herbdb.ExtractionResult, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// instantEngine returns one field and records that it ran.
type instantEngine struct {
	calls int
}

func (e *instantEngine) Name() string { return "instant" }

func (e *instantEngine) Extract(
	_ context.Context,
	_ []byte,
	_ herbdb.ExtractionParams,
) (*herbdb.ExtractionResult, error) {
	e.calls++
	conf := 0.9
	return &herbdb.ExtractionResult{
		Fields: dwc.FieldMap{
			dwc.CatalogNumber: {Value: "NY-77", Confidence: &conf},
		},
	}, nil
}

// claimedDedup simulates a rival run holding every claim: any insert
// loses the race.
type claimedDedup struct{}

func (claimedDedup) ShouldExtract(
	_ context.Context,
	_ string,
	_ herbdb.ExtractionParams,
) (bool, string, error) {
	return true, "", nil
}

func (claimedDedup) RecordExtraction(
	_ context.Context,
	att *herbdb.Attempt,
) error {
	return ioextract.ConflictError(att.ImageSHA256, att.ParamsHash)
}

func (claimedDedup) CompleteExtraction(
	_ context.Context,
	_ *herbdb.Attempt,
) error {
	return nil
}

func newRunner(
	t *testing.T,
	op db.Operator,
	ded herbdb.Deduplicator,
	eng herbdb.Extractor,
	cfg *config.Config,
) *ioextract.Runner {
	t.Helper()
	store, err := ioimage.New(t.TempDir())
	require.NoError(t, err)
	_, err = store.Put(context.Background(), []byte("sheet bytes"))
	require.NoError(t, err)
	return ioextract.NewRunner(op, store, ded, eng, ioaggregate.New(op), cfg)
}

func TestRunRecordsTimeoutAsFailed(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	assert := assert.New(t)
	op, _, sha := setupDB(t)
	ctx := context.Background()

	cfg := config.New()
	cfg.Update([]config.Option{
		config.OptExtractTimeoutSec(1),
		config.OptJobsNumber(1),
	})
	runner := newRunner(t, op, ioextract.NewDeduplicator(op),
		stalledEngine{}, cfg)

	rep, err := runner.Run(ctx)
	require.NoError(t, err)
	assert.Equal(1, rep.Targets)
	assert.Equal(1, rep.Failed)
	assert.Equal(0, rep.Extracted)

	// The timeout is persisted, not just counted.
	var status, errMsg string
	err = op.Pool().QueryRow(ctx,
		`SELECT status, error_message FROM extraction_attempts
			WHERE image_sha256 = $1 AND run_id = $2`, sha, rep.RunID,
	).Scan(&status, &errMsg)
	require.NoError(t, err)
	assert.Equal(schema.StatusFailed, status)
	assert.Contains(errMsg, "timed out after 1s")

	// A failed row never blocks the next run.
	eng := &instantEngine{}
	runner = newRunner(t, op, ioextract.NewDeduplicator(op), eng, cfg)
	rep, err = runner.Run(ctx)
	require.NoError(t, err)
	assert.Equal(1, rep.Extracted)
	assert.Equal(1, eng.calls)
}

func TestRunCountsConflictsWithoutAborting(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	assert := assert.New(t)
	op, _, _ := setupDB(t)
	ctx := context.Background()

	cfg := config.New()
	cfg.Update([]config.Option{config.OptJobsNumber(1)})
	eng := &instantEngine{}
	runner := newRunner(t, op, claimedDedup{}, eng, cfg)

	// Losing every claim is not an error; the run finishes and reports.
	rep, err := runner.Run(ctx)
	require.NoError(t, err)
	assert.Equal(1, rep.Targets)
	assert.Equal(1, rep.Conflicts)
	assert.Equal(0, rep.Extracted)
	assert.Equal(0, rep.Failed)

	// The loser skips the engine entirely.
	assert.Equal(0, eng.calls)
}

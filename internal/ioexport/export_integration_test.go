package ioexport_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gnames/gnfmt"
	"github.com/gnames/gnuuid"
	"github.com/openherbaria/herbdb/internal/iodb"
	"github.com/openherbaria/herbdb/internal/ioexport"
	"github.com/openherbaria/herbdb/internal/ioschema"
	"github.com/openherbaria/herbdb/internal/iotesting"
	"github.com/openherbaria/herbdb/pkg/db"
	"github.com/openherbaria/herbdb/pkg/herbdb"
	"github.com/openherbaria/herbdb/pkg/schema"
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
		`TRUNCATE specimens, review_records, export_bundles CASCADE`)
	require.NoError(t, err)
	return op
}

func seedApproved(t *testing.T, op db.Operator, camera string) string {
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

	_, err = op.Pool().Exec(ctx,
		`INSERT INTO review_records
			(specimen_id, status, reviewed_by, queued_at, final_fields)
			VALUES ($1, $2, 'jmartin', $3,
				'{"catalogNumber":{"value":"NY-123456","source":"att-1"}}')`,
		id, schema.ReviewApproved, time.Now().UTC())
	require.NoError(t, err)
	return id
}

func TestExport(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	assert := assert.New(t)
	op := setupDB(t)
	ctx := context.Background()

	id := seedApproved(t, op, "DSC_0600")
	dir := filepath.Join(t.TempDir(), "bundle")

	manifest, err := ioexport.New(op).Export(ctx, dir)
	require.NoError(t, err)

	assert.Equal(1, manifest.Records)
	assert.NotEmpty(manifest.BundleID)
	assert.NotEmpty(manifest.Revision)
	assert.Len(manifest.Files, 2)
	for _, f := range manifest.Files {
		assert.Len(f.SHA256, 64)
		assert.Greater(f.SizeBytes, int64(0))
	}
	require.Contains(t, manifest.Provenance, id)
	assert.Equal("jmartin", manifest.Provenance[id][0].ApprovedBy)

	// All three files exist on disk, and the manifest parses back.
	for _, name := range []string{
		"occurrences.csv", "records.sqlite", "manifest.json",
	} {
		_, err = os.Stat(filepath.Join(dir, name))
		assert.NoError(err, name)
	}
	data, err := os.ReadFile(filepath.Join(dir, "manifest.json"))
	require.NoError(t, err)
	var parsed herbdb.Manifest
	enc := gnfmt.GNjson{}
	require.NoError(t, enc.Decode(data, &parsed))
	assert.Equal(manifest.BundleID, parsed.BundleID)

	// The record is stamped with the bundle id.
	var exportedTo string
	err = op.Pool().QueryRow(ctx,
		`SELECT exported_to FROM review_records
			WHERE specimen_id = $1`, id).Scan(&exportedTo)
	require.NoError(t, err)
	assert.Equal(manifest.BundleID, exportedTo)
}

func TestExportNothingApproved(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	op := setupDB(t)

	_, err := ioexport.New(op).Export(
		context.Background(), t.TempDir())
	assert.Error(t, err)
}

package ioregistry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/gnames/gn"
	"github.com/openherbaria/herbdb/internal/iodb"
	"github.com/openherbaria/herbdb/internal/ioimage"
	"github.com/openherbaria/herbdb/internal/ioregistry"
	"github.com/openherbaria/herbdb/internal/ioschema"
	"github.com/openherbaria/herbdb/internal/iotesting"
	"github.com/openherbaria/herbdb/pkg/db"
	"github.com/openherbaria/herbdb/pkg/errcode"
	"github.com/openherbaria/herbdb/pkg/herbdb"
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
		`TRUNCATE specimens, original_files, image_transformations,
			extraction_attempts, specimen_aggregations,
			data_quality_flags, review_records, review_audits CASCADE`)
	require.NoError(t, err)
	return op
}

func TestRegisterSpecimen(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	assert := assert.New(t)
	op := setupDB(t)
	ctx := context.Background()

	images, err := ioimage.New(t.TempDir())
	require.NoError(t, err)
	reg := ioregistry.New(op, images)

	sheet, err := images.Put(ctx, []byte("sheet photo"))
	require.NoError(t, err)
	label, err := images.Put(ctx, []byte("label closeup"))
	require.NoError(t, err)

	files := []herbdb.FileDescriptor{
		{SHA256: sheet, Path: "DSC_0001.NEF", Format: "nef",
			SizeBytes: 11, Role: "sheet"},
		{SHA256: label, Path: "DSC_0001_label.jpg", Format: "jpeg",
			SizeBytes: 13, Role: "label_closeup"},
	}

	id, err := reg.RegisterSpecimen(ctx, "DSC_0001", "NY-123456", 0.9, files)
	assert.NoError(err)
	assert.NotEmpty(id)

	// Identical re-registration is a no-op with the same id.
	id2, err := reg.RegisterSpecimen(ctx, "DSC_0001", "NY-123456", 0.9, files)
	assert.NoError(err)
	assert.Equal(id, id2)

	// Same camera filename, different attributes: conflict.
	_, err = reg.RegisterSpecimen(ctx, "DSC_0001", "NY-999999", 0.9, files)
	assert.Error(err)

	// Same attributes, different file set: conflict.
	_, err = reg.RegisterSpecimen(
		ctx, "DSC_0001", "NY-123456", 0.9, files[:1])
	assert.Error(err)

	got, err := reg.SpecimenID(ctx, "DSC_0001")
	assert.NoError(err)
	assert.Equal(id, got)
}

func TestRegisterOriginalFile(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	assert := assert.New(t)
	op := setupDB(t)
	ctx := context.Background()

	images, err := ioimage.New(t.TempDir())
	require.NoError(t, err)
	reg := ioregistry.New(op, images)

	sheet, err := images.Put(ctx, []byte("sheet"))
	require.NoError(t, err)
	id, err := reg.RegisterSpecimen(ctx, "DSC_0002", "", 0,
		[]herbdb.FileDescriptor{{SHA256: sheet, Role: "sheet"}})
	require.NoError(t, err)

	extra, err := images.Put(ctx, []byte("barcode closeup"))
	require.NoError(t, err)
	desc := herbdb.FileDescriptor{SHA256: extra, Role: "barcode"}

	err = reg.RegisterOriginalFile(ctx, id, desc)
	assert.NoError(err)

	// Re-attaching the same file to the same specimen is a no-op.
	err = reg.RegisterOriginalFile(ctx, id, desc)
	assert.NoError(err)

	// Attaching it to a different specimen fails.
	other, err := reg.RegisterSpecimen(ctx, "DSC_0003", "", 0, nil)
	require.NoError(t, err)
	err = reg.RegisterOriginalFile(ctx, other, desc)
	assert.Error(err)

	// Unknown specimen fails.
	err = reg.RegisterOriginalFile(ctx,
		"00000000-0000-0000-0000-000000000000", desc)
	assert.Error(err)
}

func TestRegisterSpecimenUnreadablePath(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	op := setupDB(t)
	reg := ioregistry.New(op, nil)

	// A path that exists but cannot be hashed surfaces a read error
	// instead of passing as verified. A directory stats fine and fails
	// on read, regardless of the uid the tests run under.
	_, err := reg.RegisterSpecimen(context.Background(), "DSC_0004", "", 0,
		[]herbdb.FileDescriptor{{
			SHA256: ioimage.Hash([]byte("sheet")),
			Path:   t.TempDir(),
			Role:   "sheet",
		}})
	require.Error(t, err)
	var gnErr *gn.Error
	require.True(t, errors.As(err, &gnErr))
	assert.Equal(t, errcode.ReadFileError, gnErr.Code)
}

func TestSpecimenIDNotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	op := setupDB(t)
	reg := ioregistry.New(op, nil)

	_, err := reg.SpecimenID(context.Background(), "DSC_NOPE")
	assert.Error(t, err)
}

package ioledger_test

import (
	"context"
	"testing"

	"github.com/openherbaria/herbdb/internal/iodb"
	"github.com/openherbaria/herbdb/internal/ioimage"
	"github.com/openherbaria/herbdb/internal/ioledger"
	"github.com/openherbaria/herbdb/internal/ioregistry"
	"github.com/openherbaria/herbdb/internal/ioschema"
	"github.com/openherbaria/herbdb/internal/iotesting"
	"github.com/openherbaria/herbdb/pkg/db"
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
		`TRUNCATE specimens, original_files, image_transformations CASCADE`)
	require.NoError(t, err)
	return op
}

// registers one specimen with one original file and returns
// (specimenID, originalSHA).
func seedSpecimen(t *testing.T, op db.Operator) (string, string) {
	t.Helper()
	ctx := context.Background()
	sha := ioimage.Hash([]byte("raw camera bytes"))
	reg := ioregistry.New(op, nil)
	id, err := reg.RegisterSpecimen(ctx, "DSC_0100", "", 0,
		[]herbdb.FileDescriptor{{SHA256: sha, Role: "sheet"}})
	require.NoError(t, err)
	return id, sha
}

func TestRegisterTransformation(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	assert := assert.New(t)
	op := setupDB(t)
	ctx := context.Background()
	led := ioledger.New(op)

	specimenID, orig := seedSpecimen(t, op)
	derived := ioimage.Hash([]byte("resized bytes"))

	in := herbdb.TransformationInput{
		SpecimenID:  specimenID,
		DerivedFrom: orig,
		SHA256:      derived,
		Operation:   "resize_for_ocr",
		Params:      map[string]string{"max_px": "2048"},
		Tool:        "vips",
		ToolVersion: "8.15",
	}
	err := led.RegisterTransformation(ctx, in)
	assert.NoError(err)

	// Identical re-registration is a no-op.
	err = led.RegisterTransformation(ctx, in)
	assert.NoError(err)

	// Same hash, different attributes: collision.
	bad := in
	bad.Operation = "deskew"
	err = led.RegisterTransformation(ctx, bad)
	assert.Error(err)

	// Unknown parent is rejected.
	orphan := herbdb.TransformationInput{
		SpecimenID:  specimenID,
		DerivedFrom: ioimage.Hash([]byte("never registered")),
		SHA256:      ioimage.Hash([]byte("derived from nothing")),
		Operation:   "crop_label",
	}
	err = led.RegisterTransformation(ctx, orphan)
	assert.Error(err)
}

func TestAncestry(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	assert := assert.New(t)
	op := setupDB(t)
	ctx := context.Background()
	led := ioledger.New(op)

	specimenID, orig := seedSpecimen(t, op)

	// orig -> resized -> cropped
	resized := ioimage.Hash([]byte("resized"))
	cropped := ioimage.Hash([]byte("cropped"))
	err := led.RegisterTransformation(ctx, herbdb.TransformationInput{
		SpecimenID: specimenID, DerivedFrom: orig,
		SHA256: resized, Operation: "resize_for_ocr",
	})
	require.NoError(t, err)
	err = led.RegisterTransformation(ctx, herbdb.TransformationInput{
		SpecimenID: specimenID, DerivedFrom: resized,
		SHA256: cropped, Operation: "crop_label",
	})
	require.NoError(t, err)

	chain, err := led.Ancestry(ctx, cropped)
	assert.NoError(err)
	require.Len(t, chain, 3)
	assert.Equal(cropped, chain[0].SHA256)
	assert.Equal(resized, chain[1].SHA256)
	assert.Equal(orig, chain[2].SHA256)
	assert.True(chain[2].IsOriginal)
	assert.False(chain[0].IsOriginal)

	// An original file is its own one-node ancestry.
	chain, err = led.Ancestry(ctx, orig)
	assert.NoError(err)
	require.Len(t, chain, 1)
	assert.True(chain[0].IsOriginal)

	// Unknown hash.
	_, err = led.Ancestry(ctx, ioimage.Hash([]byte("unknown")))
	assert.Error(err)
}

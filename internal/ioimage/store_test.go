package ioimage_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/openherbaria/herbdb/internal/ioimage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutGetRoundTrip(t *testing.T) {
	assert := assert.New(t)
	st, err := ioimage.New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	data := []byte("not really a tiff, but bytes are bytes")
	sum, err := st.Put(ctx, data)
	assert.NoError(err)
	assert.Len(sum, 64)
	assert.True(st.Exists(sum))

	got, err := st.Get(ctx, sum)
	assert.NoError(err)
	assert.Equal(data, got)
}

func TestPutIsIdempotent(t *testing.T) {
	assert := assert.New(t)
	st, err := ioimage.New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	data := []byte("same bytes twice")
	sum1, err := st.Put(ctx, data)
	assert.NoError(err)
	sum2, err := st.Put(ctx, data)
	assert.NoError(err)
	assert.Equal(sum1, sum2)
}

func TestGetUnknownHash(t *testing.T) {
	assert := assert.New(t)
	st, err := ioimage.New(t.TempDir())
	require.NoError(t, err)

	_, err = st.Get(context.Background(), ioimage.Hash([]byte("never stored")))
	assert.Error(err)
}

func TestGetDetectsCorruption(t *testing.T) {
	assert := assert.New(t)
	dir := t.TempDir()
	st, err := ioimage.New(dir)
	require.NoError(t, err)
	ctx := context.Background()

	sum, err := st.Put(ctx, []byte("original bytes"))
	require.NoError(t, err)

	// Flip the stored bytes behind the store's back.
	path := filepath.Join(dir, sum[:2], sum)
	err = os.WriteFile(path, []byte("tampered bytes"), 0644)
	require.NoError(t, err)

	_, err = st.Get(ctx, sum)
	assert.Error(err)
}

func TestHashFile(t *testing.T) {
	assert := assert.New(t)
	path := filepath.Join(t.TempDir(), "img.jpg")
	data := []byte("jpeg-ish payload")
	err := os.WriteFile(path, data, 0644)
	require.NoError(t, err)

	sum, size, err := ioimage.HashFile(path)
	assert.NoError(err)
	assert.Equal(ioimage.Hash(data), sum)
	assert.Equal(int64(len(data)), size)
}

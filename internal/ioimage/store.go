// Package ioimage implements a content-addressed image store on the
// local filesystem. Files live under <root>/<first two hex>/<sha256>,
// so the path of an image is a pure function of its bytes.
package ioimage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/openherbaria/herbdb/pkg/herbdb"
)

type store struct {
	root string
}

// New creates an image store rooted at dir.
func New(dir string) (herbdb.ImageStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, CreateDirError(dir, err)
	}
	return &store{root: dir}, nil
}

func (s *store) path(sum string) string {
	return filepath.Join(s.root, sum[:2], sum)
}

func (s *store) Exists(sum string) bool {
	if len(sum) != 64 {
		return false
	}
	info, err := os.Stat(s.path(sum))
	return err == nil && !info.IsDir()
}

func (s *store) Get(ctx context.Context, sum string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(sum) != 64 {
		return nil, NotFoundError(sum)
	}

	data, err := os.ReadFile(s.path(sum))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NotFoundError(sum)
		}
		return nil, StoreError(sum, err)
	}

	// Verify the bytes still match their address.
	got := Hash(data)
	if got != sum {
		return nil, HashMismatchError(sum, got)
	}

	return data, nil
}

func (s *store) Put(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	sum := Hash(data)
	dst := s.path(sum)

	// Same bytes, same path: an existing file needs no rewrite.
	if s.Exists(sum) {
		return sum, nil
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", CreateDirError(filepath.Dir(dst), err)
	}

	// Write to a temp file in the same directory, then rename, so a
	// crashed Put never leaves a truncated file at a valid address.
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".put-*")
	if err != nil {
		return "", StoreError(sum, err)
	}
	tmpName := tmp.Name()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", StoreError(sum, err)
	}
	if err = tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", StoreError(sum, err)
	}
	if err = os.Rename(tmpName, dst); err != nil {
		os.Remove(tmpName)
		return "", StoreError(sum, err)
	}

	return sum, nil
}

// Hash returns the lowercase hex SHA-256 of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HashFile returns the lowercase hex SHA-256 of a file's contents.
func HashFile(path string) (string, int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", 0, fmt.Errorf("cannot read %s: %w", path, err)
	}
	return Hash(data), int64(len(data)), nil
}

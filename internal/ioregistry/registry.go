// Package ioregistry implements the specimen registry: identity of
// physical herbarium sheets and their original camera files.
package ioregistry

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/gnames/gnuuid"
	"github.com/jackc/pgx/v5"
	"github.com/openherbaria/herbdb/internal/iodb"
	"github.com/openherbaria/herbdb/internal/ioimage"
	"github.com/openherbaria/herbdb/pkg/db"
	"github.com/openherbaria/herbdb/pkg/herbdb"
)

type registry struct {
	operator db.Operator
	images   herbdb.ImageStore
}

// New creates a Registry backed by PostgreSQL. The image store is used
// to verify file hashes during registration.
func New(op db.Operator, images herbdb.ImageStore) herbdb.Registry {
	return &registry{operator: op, images: images}
}

// RegisterSpecimen creates a specimen with its files in one
// transaction. A repeated call with identical attributes and files is
// a no-op returning the same id; any difference is a duplicate.
func (r *registry) RegisterSpecimen(
	ctx context.Context,
	cameraFilename string,
	expectedCatalog string,
	catalogConfidence float64,
	files []herbdb.FileDescriptor,
) (string, error) {
	pool := r.operator.Pool()
	if pool == nil {
		return "", iodb.NotConnectedError()
	}

	// Specimen id is a pure function of the camera filename, so
	// registration is replayable.
	id := gnuuid.New(cameraFilename).String()

	for i := range files {
		if err := r.verifyHash(files[i]); err != nil {
			return "", err
		}
	}

	err := iodb.InTx(ctx, pool, func(tx pgx.Tx) error {
		var existingCatalog string
		var existingConf float64
		err := tx.QueryRow(ctx,
			`SELECT expected_catalog_number, catalog_confidence
				FROM specimens WHERE id = $1`, id,
		).Scan(&existingCatalog, &existingConf)

		switch {
		case err == nil:
			// Already registered: identical attributes and files make
			// this a no-op, anything else is a conflict.
			if existingCatalog != expectedCatalog ||
				existingConf != catalogConfidence {
				return DuplicateSpecimenError(cameraFilename)
			}
			same, err := r.sameFiles(ctx, tx, id, files)
			if err != nil {
				return err
			}
			if !same {
				return DuplicateSpecimenError(cameraFilename)
			}
			return nil
		case errors.Is(err, pgx.ErrNoRows):
			// New specimen.
		default:
			return QueryError(err)
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO specimens
				(id, camera_filename, expected_catalog_number,
				 catalog_confidence, created_at)
				VALUES ($1, $2, $3, $4, $5)`,
			id, cameraFilename, expectedCatalog, catalogConfidence,
			time.Now().UTC(),
		)
		if err != nil {
			if iodb.IsUniqueViolation(err) {
				return DuplicateSpecimenError(cameraFilename)
			}
			return QueryError(err)
		}

		for i := range files {
			if err = insertFile(ctx, tx, id, files[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// RegisterOriginalFile attaches one more file to an existing specimen.
func (r *registry) RegisterOriginalFile(
	ctx context.Context,
	specimenID string,
	desc herbdb.FileDescriptor,
) error {
	pool := r.operator.Pool()
	if pool == nil {
		return iodb.NotConnectedError()
	}

	if err := r.verifyHash(desc); err != nil {
		return err
	}

	return iodb.InTx(ctx, pool, func(tx pgx.Tx) error {
		var one int
		err := tx.QueryRow(ctx,
			`SELECT 1 FROM specimens WHERE id = $1`, specimenID,
		).Scan(&one)
		if errors.Is(err, pgx.ErrNoRows) {
			return SpecimenNotFoundError(specimenID)
		}
		if err != nil {
			return QueryError(err)
		}

		var owner string
		err = tx.QueryRow(ctx,
			`SELECT specimen_id FROM original_files WHERE sha256 = $1`,
			desc.SHA256,
		).Scan(&owner)
		switch {
		case err == nil:
			if owner == specimenID {
				return nil
			}
			return DuplicateFileError(desc.SHA256, owner)
		case errors.Is(err, pgx.ErrNoRows):
		default:
			return QueryError(err)
		}

		return insertFile(ctx, tx, specimenID, desc)
	})
}

// SpecimenID resolves a camera filename to a specimen id.
func (r *registry) SpecimenID(
	ctx context.Context,
	cameraFilename string,
) (string, error) {
	pool := r.operator.Pool()
	if pool == nil {
		return "", iodb.NotConnectedError()
	}

	var id string
	err := pool.QueryRow(ctx,
		`SELECT id FROM specimens WHERE camera_filename = $1`,
		cameraFilename,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", SpecimenNotFoundError(cameraFilename)
	}
	if err != nil {
		return "", QueryError(err)
	}
	return id, nil
}

// verifyHash recomputes the descriptor's hash from the bytes the
// system can reach: the content-addressed store first, the source path
// second. A descriptor whose bytes are reachable nowhere is accepted
// as declared; a path that exists but cannot be hashed is an error.
func (r *registry) verifyHash(desc herbdb.FileDescriptor) error {
	if r.images != nil && r.images.Exists(desc.SHA256) {
		// Store paths are derived from content; presence is proof.
		return nil
	}
	if desc.Path == "" {
		return nil
	}
	if _, err := os.Stat(desc.Path); err != nil {
		return nil
	}
	sum, _, err := ioimage.HashFile(desc.Path)
	if err != nil {
		return FileReadError(desc.Path, err)
	}
	if sum != desc.SHA256 {
		return HashMismatchError(desc.Path, desc.SHA256, sum)
	}
	return nil
}

// sameFiles reports whether the registered file hashes of a specimen
// equal the descriptors' hashes as a set.
func (r *registry) sameFiles(
	ctx context.Context,
	tx pgx.Tx,
	specimenID string,
	files []herbdb.FileDescriptor,
) (bool, error) {
	rows, err := tx.Query(ctx,
		`SELECT sha256 FROM original_files WHERE specimen_id = $1`,
		specimenID,
	)
	if err != nil {
		return false, QueryError(err)
	}
	defer rows.Close()

	existing := make(map[string]bool)
	for rows.Next() {
		var sha string
		if err = rows.Scan(&sha); err != nil {
			return false, QueryError(err)
		}
		existing[sha] = true
	}
	if err = rows.Err(); err != nil {
		return false, QueryError(err)
	}

	if len(existing) != len(files) {
		return false, nil
	}
	for i := range files {
		if !existing[files[i].SHA256] {
			return false, nil
		}
	}
	return true, nil
}

func insertFile(
	ctx context.Context,
	tx pgx.Tx,
	specimenID string,
	desc herbdb.FileDescriptor,
) error {
	var capturedAt any
	if desc.CapturedAt != nil {
		capturedAt = *desc.CapturedAt
	}
	_, err := tx.Exec(ctx,
		`INSERT INTO original_files
			(sha256, specimen_id, path, format, width, height,
			 size_bytes, role, captured_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		desc.SHA256, specimenID, desc.Path, desc.Format,
		desc.Width, desc.Height, desc.SizeBytes, desc.Role, capturedAt,
	)
	if err != nil {
		if iodb.IsUniqueViolation(err) {
			return DuplicateFileError(desc.SHA256, "")
		}
		return QueryError(err)
	}
	return nil
}

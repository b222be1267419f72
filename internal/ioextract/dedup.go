// Package ioextract implements extraction deduplication and the
// extraction run pipeline. The partial unique index on
// (image_sha256, params_hash) for non-failed attempts is the only
// concurrency control: ShouldExtract is an advisory read, a run claims
// the slot by inserting a pending attempt before doing any work, and a
// writer losing the insert race gets a conflict error and skips the
// image.
package ioextract

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gnames/gn"
	"github.com/gnames/gnfmt"
	"github.com/gnames/gnuuid"
	"github.com/jackc/pgx/v5"
	"github.com/openherbaria/herbdb/internal/iodb"
	"github.com/openherbaria/herbdb/pkg/db"
	"github.com/openherbaria/herbdb/pkg/errcode"
	"github.com/openherbaria/herbdb/pkg/herbdb"
	"github.com/openherbaria/herbdb/pkg/schema"
)

type dedup struct {
	operator db.Operator
	enc      gnfmt.Encoder
}

// NewDeduplicator creates a Deduplicator backed by PostgreSQL.
func NewDeduplicator(op db.Operator) herbdb.Deduplicator {
	return &dedup{operator: op, enc: gnfmt.GNjson{}}
}

// ShouldExtract reports whether (image, params) still needs work.
// Failed attempts do not count; they are retried.
func (d *dedup) ShouldExtract(
	ctx context.Context,
	imageSHA256 string,
	params herbdb.ExtractionParams,
) (bool, string, error) {
	pool := d.operator.Pool()
	if pool == nil {
		return false, "", iodb.NotConnectedError()
	}

	pHash, err := ParamsHash(params)
	if err != nil {
		return false, "", err
	}

	var id string
	err = pool.QueryRow(ctx,
		`SELECT id FROM extraction_attempts
			WHERE image_sha256 = $1 AND params_hash = $2
			AND status <> $3`,
		imageSHA256, pHash, schema.StatusFailed,
	).Scan(&id)
	switch {
	case err == nil:
		return false, id, nil
	case errors.Is(err, pgx.ErrNoRows):
		return true, "", nil
	default:
		return false, "", QueryError(err)
	}
}

// RecordExtraction persists one attempt in a single transaction. The
// check in ShouldExtract and this insert are deliberately not atomic
// together; the unique index carries the guarantee, and the loser of a
// race receives a conflict error. A pending attempt inserted here
// claims the (image, params) slot until CompleteExtraction settles it.
func (d *dedup) RecordExtraction(
	ctx context.Context,
	att *herbdb.Attempt,
) error {
	pool := d.operator.Pool()
	if pool == nil {
		return iodb.NotConnectedError()
	}

	params, err := CanonicalParams(att.Params)
	if err != nil {
		return err
	}
	if att.ParamsHash == "" {
		att.ParamsHash, err = ParamsHash(att.Params)
		if err != nil {
			return err
		}
	}
	if att.ID == "" {
		att.ID = gnuuid.New(
			att.ImageSHA256 + "|" + att.ParamsHash + "|" + att.RunID,
		).String()
	}
	if att.CreatedAt.IsZero() {
		att.CreatedAt = time.Now().UTC()
	}

	var fields []byte
	if att.Fields != nil {
		fields, err = d.enc.Encode(att.Fields)
		if err != nil {
			return EngineError(att.Params.Engine, err)
		}
	}
	var completedAt any
	if att.CompletedAt != nil {
		completedAt = *att.CompletedAt
	}

	return iodb.InTx(ctx, pool, func(tx pgx.Tx) error {
		known, err := imageKnown(ctx, tx, att.ImageSHA256)
		if err != nil {
			return err
		}
		if !known {
			return UnknownImageError(att.ImageSHA256)
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO extraction_attempts
				(id, image_sha256, specimen_id, engine, params,
				 params_hash, status, fields, error_message, run_id,
				 created_at, completed_at)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
			att.ID, att.ImageSHA256, att.SpecimenID,
			att.Params.Engine, params, att.ParamsHash, att.Status,
			fields, att.Error, nullable(att.RunID), att.CreatedAt,
			completedAt,
		)
		if err != nil {
			if iodb.IsUniqueViolation(err) {
				return ConflictError(att.ImageSHA256, att.ParamsHash)
			}
			return QueryError(err)
		}
		return nil
	})
}

// CompleteExtraction settles a claimed attempt: the pending row moves
// to completed with its fields, or to failed with an error message. A
// failed row leaves the partial unique index, so the image becomes
// extractable again.
func (d *dedup) CompleteExtraction(
	ctx context.Context,
	att *herbdb.Attempt,
) error {
	pool := d.operator.Pool()
	if pool == nil {
		return iodb.NotConnectedError()
	}

	var fields []byte
	var err error
	if att.Fields != nil {
		fields, err = d.enc.Encode(att.Fields)
		if err != nil {
			return EngineError(att.Params.Engine, err)
		}
	}
	var completedAt any
	if att.CompletedAt != nil {
		completedAt = *att.CompletedAt
	}

	ct, err := pool.Exec(ctx,
		`UPDATE extraction_attempts
			SET status = $2, fields = $3, error_message = $4,
				completed_at = $5
			WHERE id = $1`,
		att.ID, att.Status, fields, att.Error, completedAt,
	)
	if err != nil {
		return QueryError(err)
	}
	if ct.RowsAffected() == 0 {
		return QueryError(fmt.Errorf("attempt %s does not exist", att.ID))
	}
	return nil
}

// IsConflict reports whether err is the loser's side of an extraction
// race. Callers handle it locally: log, discard the result, move on.
func IsConflict(err error) bool {
	var gerr *gn.Error
	return errors.As(err, &gerr) &&
		gerr.Code == errcode.ExtractConflictError
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func imageKnown(ctx context.Context, tx pgx.Tx, sha string) (bool, error) {
	var one int
	err := tx.QueryRow(ctx,
		`SELECT 1 FROM original_files WHERE sha256 = $1
			UNION ALL
			SELECT 1 FROM image_transformations WHERE sha256 = $1
			LIMIT 1`, sha,
	).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, QueryError(err)
	}
	return true, nil
}

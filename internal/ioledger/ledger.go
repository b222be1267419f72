// Package ioledger implements the transformation ledger: the
// content-addressed, append-only record of derived images. The graph
// stays acyclic without traversal because a transformation can only
// point at an already-registered parent, and hashes of new content
// cannot collide with existing rows.
package ioledger

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/gnames/gnfmt"
	"github.com/jackc/pgx/v5"
	"github.com/openherbaria/herbdb/internal/iodb"
	"github.com/openherbaria/herbdb/pkg/db"
	"github.com/openherbaria/herbdb/pkg/herbdb"
)

type ledger struct {
	operator db.Operator
	enc      gnfmt.Encoder
}

// New creates a Ledger backed by PostgreSQL.
func New(op db.Operator) herbdb.Ledger {
	return &ledger{operator: op, enc: gnfmt.GNjson{}}
}

// RegisterTransformation appends a derived image to the ledger.
func (l *ledger) RegisterTransformation(
	ctx context.Context,
	in herbdb.TransformationInput,
) error {
	pool := l.operator.Pool()
	if pool == nil {
		return iodb.NotConnectedError()
	}

	// Canonical JSON: map keys serialize sorted, so equal params give
	// equal bytes.
	params, err := l.enc.Encode(in.Params)
	if err != nil {
		return QueryError(err)
	}

	return iodb.InTx(ctx, pool, func(tx pgx.Tx) error {
		// A hash already present as an original file can never be
		// re-registered as a derivation.
		var one int
		err := tx.QueryRow(ctx,
			`SELECT 1 FROM original_files WHERE sha256 = $1`, in.SHA256,
		).Scan(&one)
		if err == nil {
			return HashCollisionError(in.SHA256)
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return QueryError(err)
		}

		var existing struct {
			derivedFrom string
			operation   string
			params      []byte
		}
		err = tx.QueryRow(ctx,
			`SELECT derived_from, operation, params
				FROM image_transformations WHERE sha256 = $1`, in.SHA256,
		).Scan(&existing.derivedFrom, &existing.operation, &existing.params)
		switch {
		case err == nil:
			// Re-registering identical content is a no-op; the same
			// hash with different attributes is a collision.
			if existing.derivedFrom == in.DerivedFrom &&
				existing.operation == in.Operation &&
				bytes.Equal(existing.params, params) {
				return nil
			}
			return HashCollisionError(in.SHA256)
		case errors.Is(err, pgx.ErrNoRows):
		default:
			return QueryError(err)
		}

		parentSpecimen, known, err := imageKnown(ctx, tx, in.DerivedFrom)
		if err != nil {
			return err
		}
		if !known {
			return UnknownParentError(in.DerivedFrom)
		}
		// A derived image belongs to the same specimen as its parent
		// unless the caller says otherwise.
		specimenID := in.SpecimenID
		if specimenID == "" {
			specimenID = parentSpecimen
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO image_transformations
				(sha256, derived_from, specimen_id, operation, params,
				 tool, tool_version, location, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			in.SHA256, in.DerivedFrom, specimenID, in.Operation,
			params, in.Tool, in.ToolVersion, in.Location,
			time.Now().UTC(),
		)
		if err != nil {
			if iodb.IsUniqueViolation(err) {
				return HashCollisionError(in.SHA256)
			}
			return QueryError(err)
		}
		return nil
	})
}

// Ancestry walks from an image hash back to its original file. The
// first node is the queried image, the last the camera file. Each call
// is a fresh query against current state.
func (l *ledger) Ancestry(
	ctx context.Context,
	sha256 string,
) ([]herbdb.AncestryNode, error) {
	pool := l.operator.Pool()
	if pool == nil {
		return nil, iodb.NotConnectedError()
	}

	rows, err := pool.Query(ctx,
		`WITH RECURSIVE chain AS (
			SELECT sha256, derived_from, operation, 0 AS depth
				FROM image_transformations WHERE sha256 = $1
			UNION ALL
			SELECT t.sha256, t.derived_from, t.operation, c.depth + 1
				FROM image_transformations t
				JOIN chain c ON t.sha256 = c.derived_from
		)
		SELECT sha256, derived_from, operation
			FROM chain ORDER BY depth`, sha256,
	)
	if err != nil {
		return nil, QueryError(err)
	}
	defer rows.Close()

	var res []herbdb.AncestryNode
	for rows.Next() {
		var n herbdb.AncestryNode
		if err = rows.Scan(&n.SHA256, &n.DerivedFrom, &n.Operation); err != nil {
			return nil, QueryError(err)
		}
		res = append(res, n)
	}
	if err = rows.Err(); err != nil {
		return nil, QueryError(err)
	}

	// Terminal hash: either the chain's last parent, or the queried
	// hash itself when it is an original file.
	terminal := sha256
	if len(res) > 0 {
		terminal = res[len(res)-1].DerivedFrom
	}

	var one int
	err = pool.QueryRow(ctx,
		`SELECT 1 FROM original_files WHERE sha256 = $1`, terminal,
	).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		if len(res) == 0 {
			return nil, NotFoundError(sha256)
		}
		// Cannot happen while inserts reject unknown parents.
		return nil, UnknownParentError(terminal)
	}
	if err != nil {
		return nil, QueryError(err)
	}

	res = append(res, herbdb.AncestryNode{
		SHA256:     terminal,
		IsOriginal: true,
	})
	return res, nil
}

func imageKnown(
	ctx context.Context, tx pgx.Tx, sha string,
) (string, bool, error) {
	var specimenID string
	err := tx.QueryRow(ctx,
		`SELECT specimen_id FROM original_files WHERE sha256 = $1
			UNION ALL
			SELECT specimen_id FROM image_transformations WHERE sha256 = $1
			LIMIT 1`, sha,
	).Scan(&specimenID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, QueryError(err)
	}
	return specimenID, true, nil
}

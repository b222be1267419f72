// Package ioaggregate merges completed extraction attempts into one
// reviewable candidate set per specimen. Aggregation is a pure
// function of the committed attempt rows: re-running it with no new
// attempts rewrites byte-identical JSON.
package ioaggregate

import (
	"context"
	"time"

	"github.com/gnames/gnfmt"
	"github.com/jackc/pgx/v5"
	"github.com/openherbaria/herbdb/internal/iodb"
	"github.com/openherbaria/herbdb/pkg/db"
	"github.com/openherbaria/herbdb/pkg/dwc"
	"github.com/openherbaria/herbdb/pkg/herbdb"
	"github.com/openherbaria/herbdb/pkg/schema"
)

type aggregator struct {
	operator db.Operator
	enc      gnfmt.Encoder
}

// New creates an Aggregator backed by PostgreSQL.
func New(op db.Operator) herbdb.Aggregator {
	return &aggregator{operator: op, enc: gnfmt.GNjson{}}
}

// attemptRow is the slice of an attempt the aggregation needs.
type attemptRow struct {
	id        string
	fields    dwc.FieldMap
	createdAt time.Time
}

// Aggregate recomputes one specimen's aggregation as a full
// replacement inside one transaction.
func (a *aggregator) Aggregate(ctx context.Context, specimenID string) error {
	pool := a.operator.Pool()
	if pool == nil {
		return iodb.NotConnectedError()
	}

	return iodb.InTx(ctx, pool, func(tx pgx.Tx) error {
		attempts, err := a.loadAttempts(ctx, tx, specimenID)
		if err != nil {
			return err
		}
		if len(attempts) == 0 {
			return NoAttemptsError(specimenID)
		}

		candidates, best := merge(attempts)

		candJSON, err := a.enc.Encode(candidates)
		if err != nil {
			return QueryError(err)
		}
		bestJSON, err := a.enc.Encode(best)
		if err != nil {
			return QueryError(err)
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO specimen_aggregations
				(specimen_id, candidates, best_candidates,
				 attempt_count, updated_at)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (specimen_id) DO UPDATE SET
					candidates = EXCLUDED.candidates,
					best_candidates = EXCLUDED.best_candidates,
					attempt_count = EXCLUDED.attempt_count,
					updated_at = EXCLUDED.updated_at`,
			specimenID, candJSON, bestJSON, len(attempts),
			time.Now().UTC(),
		)
		if err != nil {
			return QueryError(err)
		}

		// An aggregated specimen is a reviewable specimen; the review
		// record is created once and never reset from here.
		_, err = tx.Exec(ctx,
			`INSERT INTO review_records (specimen_id, status, queued_at)
				VALUES ($1, $2, $3)
				ON CONFLICT (specimen_id) DO NOTHING`,
			specimenID, schema.ReviewPending, time.Now().UTC(),
		)
		if err != nil {
			return QueryError(err)
		}
		return nil
	})
}

// AggregateAll recomputes every specimen that has completed attempts.
func (a *aggregator) AggregateAll(ctx context.Context) (int, error) {
	pool := a.operator.Pool()
	if pool == nil {
		return 0, iodb.NotConnectedError()
	}

	rows, err := pool.Query(ctx,
		`SELECT DISTINCT specimen_id FROM extraction_attempts
			WHERE status = $1 ORDER BY specimen_id`,
		schema.StatusCompleted,
	)
	if err != nil {
		return 0, QueryError(err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			return 0, QueryError(err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return 0, QueryError(err)
	}

	for _, id := range ids {
		if err = a.Aggregate(ctx, id); err != nil {
			return 0, err
		}
	}
	return len(ids), nil
}

// loadAttempts returns the completed attempts of a specimen in a fixed
// order, so ties between equal candidates resolve the same way on
// every run.
func (a *aggregator) loadAttempts(
	ctx context.Context,
	tx pgx.Tx,
	specimenID string,
) ([]attemptRow, error) {
	rows, err := tx.Query(ctx,
		`SELECT id, fields, created_at FROM extraction_attempts
			WHERE specimen_id = $1 AND status = $2
			ORDER BY created_at, id`,
		specimenID, schema.StatusCompleted,
	)
	if err != nil {
		return nil, QueryError(err)
	}
	defer rows.Close()

	var res []attemptRow
	for rows.Next() {
		var row attemptRow
		var fields []byte
		if err = rows.Scan(&row.id, &fields, &row.createdAt); err != nil {
			return nil, QueryError(err)
		}
		if len(fields) > 0 {
			err = a.enc.Decode(fields, &row.fields)
			if err != nil {
				return nil, QueryError(err)
			}
		}
		res = append(res, row)
	}
	if err = rows.Err(); err != nil {
		return nil, QueryError(err)
	}
	return res, nil
}

// merge builds the per-term candidate lists and picks the winners:
// highest confidence, ties broken toward the more recent attempt.
func merge(attempts []attemptRow) (map[dwc.Term][]dwc.Candidate, dwc.FieldMap) {
	created := make(map[string]time.Time, len(attempts))
	candidates := make(map[dwc.Term][]dwc.Candidate)

	for _, att := range attempts {
		created[att.id] = att.createdAt
		for _, term := range att.fields.Terms() {
			cand := att.fields[term]
			cand.Source = att.id
			candidates[term] = append(candidates[term], cand)
		}
	}

	ts := func(source string) time.Time { return created[source] }
	best := make(dwc.FieldMap, len(candidates))
	for term, cands := range candidates {
		herbdb.SortCandidates(cands, ts)
		best[term] = cands[0]
	}
	return candidates, best
}

// Package ioreview implements the review workflow engine: the status
// state machine, the two independent dimensions (priority, flagged),
// the ordered queue and the append-only audit trail.
package ioreview

import (
	"context"
	"errors"
	"time"

	"github.com/gnames/gnfmt"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/openherbaria/herbdb/internal/iodb"
	"github.com/openherbaria/herbdb/pkg/db"
	"github.com/openherbaria/herbdb/pkg/dwc"
	"github.com/openherbaria/herbdb/pkg/herbdb"
	"github.com/openherbaria/herbdb/pkg/quality"
	"github.com/openherbaria/herbdb/pkg/schema"
)

type engine struct {
	operator db.Operator
	rules    *quality.RulesConfig
	enc      gnfmt.Encoder
}

// New creates a ReviewEngine. The rules config decides which flag
// severities block approval.
func New(op db.Operator, rules *quality.RulesConfig) herbdb.ReviewEngine {
	return &engine{operator: op, rules: rules, enc: gnfmt.GNjson{}}
}

// Queue returns a fresh snapshot of matching review records, ordered
// by priority descending then queue time ascending. The three filter
// dimensions apply independently and never imply one another.
func (e *engine) Queue(
	ctx context.Context,
	filter herbdb.QueueFilter,
) ([]herbdb.QueueItem, error) {
	pool := e.operator.Pool()
	if pool == nil {
		return nil, iodb.NotConnectedError()
	}
	if filter.Status != "" && !isKnownStatus(filter.Status) {
		return nil, NotFoundError(filter.Status)
	}

	query := `
		SELECT r.specimen_id, s.camera_filename, r.status, r.priority,
			r.flagged, r.queued_at,
			(SELECT count(*) FROM data_quality_flags f
				WHERE f.specimen_id = r.specimen_id
				AND NOT f.resolved) AS unresolved
		FROM review_records r
		JOIN specimens s ON s.id = r.specimen_id
		WHERE ($1 = '' OR r.status = $1)
		AND (cardinality($2::int[]) = 0 OR r.priority = ANY($2))
		AND (NOT $3 OR r.flagged)
		ORDER BY r.priority DESC, r.queued_at ASC`

	prios := make([]int, len(filter.Priorities))
	for i, p := range filter.Priorities {
		if !p.IsValid() {
			return nil, InvalidPriorityError(int(p))
		}
		prios[i] = int(p)
	}

	rows, err := pool.Query(ctx, query,
		filter.Status, prios, filter.FlaggedOnly)
	if err != nil {
		return nil, QueryError(err)
	}
	defer rows.Close()

	var res []herbdb.QueueItem
	for rows.Next() {
		var item herbdb.QueueItem
		var prio int
		err = rows.Scan(&item.SpecimenID, &item.CameraFilename,
			&item.Status, &prio, &item.Flagged, &item.QueuedAt,
			&item.UnresolvedFlags)
		if err != nil {
			return nil, QueryError(err)
		}
		item.Priority = herbdb.Priority(prio)
		item.PriorityName = item.Priority.String()
		res = append(res, item)
	}
	if err = rows.Err(); err != nil {
		return nil, QueryError(err)
	}
	return res, nil
}

// Update applies one reviewer action: field decisions, a status
// transition, or both, atomically with its audit entry.
func (e *engine) Update(ctx context.Context, upd herbdb.ReviewUpdate) error {
	pool := e.operator.Pool()
	if pool == nil {
		return iodb.NotConnectedError()
	}
	if upd.NewStatus != "" && !isKnownStatus(upd.NewStatus) {
		return InvalidTransitionError(upd.SpecimenID, "?", upd.NewStatus)
	}
	for term := range upd.Decisions {
		if !term.IsValid() {
			return QueryError(errors.New("unknown term " + string(term)))
		}
	}

	return iodb.InTx(ctx, pool, func(tx pgx.Tx) error {
		var status string
		var finalJSON []byte
		err := tx.QueryRow(ctx,
			`SELECT status, final_fields FROM review_records
				WHERE specimen_id = $1 FOR UPDATE`,
			upd.SpecimenID,
		).Scan(&status, &finalJSON)
		if errors.Is(err, pgx.ErrNoRows) {
			return NotFoundError(upd.SpecimenID)
		}
		if err != nil {
			return QueryError(err)
		}

		newStatus := status
		if upd.NewStatus != "" {
			if !canTransition(status, upd.NewStatus) {
				return InvalidTransitionError(
					upd.SpecimenID, status, upd.NewStatus)
			}
			if upd.NewStatus == schema.ReviewApproved {
				flags, err := e.blockingFlags(ctx, tx, upd.SpecimenID)
				if err != nil {
					return err
				}
				if len(flags) > 0 {
					return UnresolvedFlagsError(upd.SpecimenID, flags)
				}
			}
			newStatus = upd.NewStatus
		}

		final, err := e.applyDecisions(ctx, tx, upd, finalJSON)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		_, err = tx.Exec(ctx,
			`UPDATE review_records
				SET status = $2, reviewed_by = $3, reviewed_at = $4,
				final_fields = $5
				WHERE specimen_id = $1`,
			upd.SpecimenID, newStatus, upd.Reviewer, now, final,
		)
		if err != nil {
			return QueryError(err)
		}

		return e.audit(ctx, tx, upd.SpecimenID, upd.Reviewer,
			status, newStatus, upd.Decisions)
	})
}

// SetPriority changes priority only; status and flagged are untouched.
func (e *engine) SetPriority(
	ctx context.Context,
	specimenID string,
	p herbdb.Priority,
	reviewer string,
) error {
	if !p.IsValid() {
		return InvalidPriorityError(int(p))
	}
	return e.markDimension(ctx, specimenID, reviewer,
		`UPDATE review_records SET priority = $2
			WHERE specimen_id = $1`, int(p))
}

// SetFlagged toggles the attention marker only.
func (e *engine) SetFlagged(
	ctx context.Context,
	specimenID string,
	flagged bool,
	reviewer string,
) error {
	return e.markDimension(ctx, specimenID, reviewer,
		`UPDATE review_records SET flagged = $2
			WHERE specimen_id = $1`, flagged)
}

// markDimension runs one single-column update plus its audit entry.
func (e *engine) markDimension(
	ctx context.Context,
	specimenID, reviewer, query string,
	value any,
) error {
	pool := e.operator.Pool()
	if pool == nil {
		return iodb.NotConnectedError()
	}

	return iodb.InTx(ctx, pool, func(tx pgx.Tx) error {
		var status string
		err := tx.QueryRow(ctx,
			`SELECT status FROM review_records
				WHERE specimen_id = $1 FOR UPDATE`, specimenID,
		).Scan(&status)
		if errors.Is(err, pgx.ErrNoRows) {
			return NotFoundError(specimenID)
		}
		if err != nil {
			return QueryError(err)
		}

		if _, err = tx.Exec(ctx, query, specimenID, value); err != nil {
			return QueryError(err)
		}
		return e.audit(ctx, tx, specimenID, reviewer,
			status, status, nil)
	})
}

// Reopen moves a terminal specimen back to IN_REVIEW.
func (e *engine) Reopen(
	ctx context.Context,
	specimenID, reviewer string,
) error {
	pool := e.operator.Pool()
	if pool == nil {
		return iodb.NotConnectedError()
	}

	return iodb.InTx(ctx, pool, func(tx pgx.Tx) error {
		var status string
		err := tx.QueryRow(ctx,
			`SELECT status FROM review_records
				WHERE specimen_id = $1 FOR UPDATE`, specimenID,
		).Scan(&status)
		if errors.Is(err, pgx.ErrNoRows) {
			return NotFoundError(specimenID)
		}
		if err != nil {
			return QueryError(err)
		}
		if !isTerminal(status) {
			return InvalidTransitionError(
				specimenID, status, schema.ReviewInReview)
		}

		now := time.Now().UTC()
		_, err = tx.Exec(ctx,
			`UPDATE review_records
				SET status = $2, reviewed_by = $3, reviewed_at = $4
				WHERE specimen_id = $1`,
			specimenID, schema.ReviewInReview, reviewer, now,
		)
		if err != nil {
			return QueryError(err)
		}
		return e.audit(ctx, tx, specimenID, reviewer,
			status, schema.ReviewInReview, nil)
	})
}

// ResolveFlag marks one quality flag resolved.
func (e *engine) ResolveFlag(
	ctx context.Context,
	flagID, reviewer string,
) error {
	pool := e.operator.Pool()
	if pool == nil {
		return iodb.NotConnectedError()
	}

	tag, err := pool.Exec(ctx,
		`UPDATE data_quality_flags
			SET resolved = true, resolved_by = $2, resolved_at = $3
			WHERE id = $1 AND NOT resolved`,
		flagID, reviewer, time.Now().UTC(),
	)
	if err != nil {
		return QueryError(err)
	}
	if tag.RowsAffected() == 0 {
		return NotFoundError(flagID)
	}
	return nil
}

// blockingFlags lists unresolved flags whose severity blocks approval
// per the rules config. The reviewer sees exactly which flags stand in
// the way.
func (e *engine) blockingFlags(
	ctx context.Context,
	tx pgx.Tx,
	specimenID string,
) ([]string, error) {
	severities := e.rules.BlockingSeverities
	if len(severities) == 0 {
		return nil, nil
	}
	rows, err := tx.Query(ctx,
		`SELECT flag_type, message FROM data_quality_flags
			WHERE specimen_id = $1 AND NOT resolved
			AND severity = ANY($2)
			ORDER BY created_at, id`,
		specimenID, severities,
	)
	if err != nil {
		return nil, QueryError(err)
	}
	defer rows.Close()

	var res []string
	for rows.Next() {
		var flagType, message string
		if err = rows.Scan(&flagType, &message); err != nil {
			return nil, QueryError(err)
		}
		res = append(res, flagType+": "+message)
	}
	if err = rows.Err(); err != nil {
		return nil, QueryError(err)
	}
	return res, nil
}

// applyDecisions overlays reviewer decisions onto the working field
// set: existing final fields if any, the aggregation's best candidates
// otherwise.
func (e *engine) applyDecisions(
	ctx context.Context,
	tx pgx.Tx,
	upd herbdb.ReviewUpdate,
	finalJSON []byte,
) ([]byte, error) {
	final := make(dwc.FieldMap)
	if len(finalJSON) > 0 {
		if err := e.enc.Decode(finalJSON, &final); err != nil {
			return nil, QueryError(err)
		}
	} else {
		var best []byte
		err := tx.QueryRow(ctx,
			`SELECT best_candidates FROM specimen_aggregations
				WHERE specimen_id = $1`, upd.SpecimenID,
		).Scan(&best)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, QueryError(err)
		}
		if len(best) > 0 {
			if err = e.enc.Decode(best, &final); err != nil {
				return nil, QueryError(err)
			}
		}
	}

	for term, value := range upd.Decisions {
		final[term] = dwc.Candidate{
			Value:  value,
			Source: "manual:" + upd.Reviewer,
		}
	}
	return e.enc.Encode(final)
}

// audit appends one immutable audit row.
func (e *engine) audit(
	ctx context.Context,
	tx pgx.Tx,
	specimenID, reviewer, before, after string,
	decisions map[dwc.Term]string,
) error {
	var decJSON []byte
	if len(decisions) > 0 {
		var err error
		decJSON, err = e.enc.Encode(decisions)
		if err != nil {
			return QueryError(err)
		}
	}

	_, err := tx.Exec(ctx,
		`INSERT INTO review_audits
			(id, specimen_id, reviewer, status_before, status_after,
			 decisions, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.NewString(), specimenID, reviewer, before, after,
		decJSON, time.Now().UTC(),
	)
	if err != nil {
		return QueryError(err)
	}
	return nil
}

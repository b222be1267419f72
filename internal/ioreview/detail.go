package ioreview

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/openherbaria/herbdb/internal/iodb"
	"github.com/openherbaria/herbdb/pkg/dwc"
	"github.com/openherbaria/herbdb/pkg/herbdb"
	"github.com/openherbaria/herbdb/pkg/schema"
)

// Detail returns the full review view of one specimen: review state,
// candidate sets, flags, and extraction attempt history.
func (e *engine) Detail(
	ctx context.Context,
	specimenID string,
) (*herbdb.SpecimenDetail, error) {
	pool := e.operator.Pool()
	if pool == nil {
		return nil, iodb.NotConnectedError()
	}

	res := &herbdb.SpecimenDetail{SpecimenID: specimenID}

	var prio int
	var finalJSON []byte
	err := pool.QueryRow(ctx,
		`SELECT s.camera_filename, r.status, r.priority, r.flagged,
			r.final_fields
			FROM review_records r
			JOIN specimens s ON s.id = r.specimen_id
			WHERE r.specimen_id = $1`, specimenID,
	).Scan(&res.CameraFilename, &res.Status, &prio, &res.Flagged,
		&finalJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, NotFoundError(specimenID)
	}
	if err != nil {
		return nil, QueryError(err)
	}
	res.Priority = herbdb.Priority(prio)

	if len(finalJSON) > 0 {
		res.FinalFields = make(dwc.FieldMap)
		if err = e.enc.Decode(finalJSON, &res.FinalFields); err != nil {
			return nil, QueryError(err)
		}
	}

	if err = e.loadAggregation(ctx, specimenID, res); err != nil {
		return nil, err
	}
	if err = e.loadFlags(ctx, specimenID, res); err != nil {
		return nil, err
	}
	if err = e.loadAttempts(ctx, specimenID, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (e *engine) loadAggregation(
	ctx context.Context,
	specimenID string,
	res *herbdb.SpecimenDetail,
) error {
	pool := e.operator.Pool()

	var cands, best []byte
	err := pool.QueryRow(ctx,
		`SELECT candidates, best_candidates FROM specimen_aggregations
			WHERE specimen_id = $1`, specimenID,
	).Scan(&cands, &best)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return QueryError(err)
	}

	if len(cands) > 0 {
		res.Candidates = make(map[dwc.Term][]dwc.Candidate)
		if err = e.enc.Decode(cands, &res.Candidates); err != nil {
			return QueryError(err)
		}
	}
	if len(best) > 0 {
		res.BestCandidates = make(dwc.FieldMap)
		if err = e.enc.Decode(best, &res.BestCandidates); err != nil {
			return QueryError(err)
		}
	}
	return nil
}

func (e *engine) loadFlags(
	ctx context.Context,
	specimenID string,
	res *herbdb.SpecimenDetail,
) error {
	pool := e.operator.Pool()

	rows, err := pool.Query(ctx,
		`SELECT id, flag_type, severity, message, related_specimen_id,
			resolved, created_at, resolved_at
			FROM data_quality_flags
			WHERE specimen_id = $1
			ORDER BY created_at, id`, specimenID,
	)
	if err != nil {
		return QueryError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var fv herbdb.FlagView
		var related sql.NullString
		var resolvedAt sql.NullTime
		err = rows.Scan(&fv.ID, &fv.FlagType, &fv.Severity, &fv.Message,
			&related, &fv.Resolved, &fv.CreatedAt, &resolvedAt)
		if err != nil {
			return QueryError(err)
		}
		if related.Valid {
			fv.RelatedSpecimenID = related.String
		}
		if resolvedAt.Valid {
			t := resolvedAt.Time
			fv.ResolvedAt = &t
		}
		res.Flags = append(res.Flags, fv)
	}
	return rows.Err()
}

func (e *engine) loadAttempts(
	ctx context.Context,
	specimenID string,
	res *herbdb.SpecimenDetail,
) error {
	pool := e.operator.Pool()

	rows, err := pool.Query(ctx,
		`SELECT id, image_sha256, engine, status, fields,
			error_message, created_at
			FROM extraction_attempts
			WHERE specimen_id = $1
			ORDER BY created_at, id`, specimenID,
	)
	if err != nil {
		return QueryError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var av herbdb.AttemptView
		var fields []byte
		err = rows.Scan(&av.ID, &av.ImageSHA256, &av.Engine, &av.Status,
			&fields, &av.Error, &av.CreatedAt)
		if err != nil {
			return QueryError(err)
		}
		if len(fields) > 0 {
			av.Fields = make(dwc.FieldMap)
			if err = e.enc.Decode(fields, &av.Fields); err != nil {
				return QueryError(err)
			}
		}
		res.Attempts = append(res.Attempts, av)

		switch av.Status {
		case schema.StatusCompleted:
			res.AttemptCounts.Completed++
		case schema.StatusFailed:
			res.AttemptCounts.Failed++
		default:
			res.AttemptCounts.Pending++
		}
	}
	return rows.Err()
}

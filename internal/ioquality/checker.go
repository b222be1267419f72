// Package ioquality implements the advisory quality checker. Every
// finding becomes a data_quality_flag row; nothing here ever stops the
// pipeline. Re-running the checker is idempotent: a flag's fingerprint
// is a pure function of (specimen, rule, message), the partial unique
// index on unresolved fingerprints swallows repeats, and a resolved
// flag stays resolved.
package ioquality

import (
	"context"
	"log/slog"
	"time"

	"github.com/gnames/gnfmt"
	"github.com/gnames/gnparser"
	"github.com/gnames/gnuuid"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/openherbaria/herbdb/internal/iodb"
	"github.com/openherbaria/herbdb/pkg/db"
	"github.com/openherbaria/herbdb/pkg/dwc"
	"github.com/openherbaria/herbdb/pkg/herbdb"
	"github.com/openherbaria/herbdb/pkg/quality"
	"github.com/openherbaria/herbdb/pkg/schema"
)

type checker struct {
	operator db.Operator
	rules    *quality.RulesConfig
	parser   gnparser.GNparser
	verifier herbdb.NameVerifier
}

// New creates a QualityChecker. The verifier may be nil; the remote
// name rule is then skipped.
func New(
	op db.Operator,
	rules *quality.RulesConfig,
	verifier herbdb.NameVerifier,
) herbdb.QualityChecker {
	return &checker{
		operator: op,
		rules:    rules,
		parser:   gnparser.New(gnparser.NewConfig()),
		verifier: verifier,
	}
}

// Check runs the full rule set over every aggregated specimen.
func (c *checker) Check(
	ctx context.Context,
	similarities []herbdb.SimilarityPair,
) (*herbdb.CheckReport, error) {
	pool := c.operator.Pool()
	if pool == nil {
		return nil, iodb.NotConnectedError()
	}
	if err := c.rules.Validate(); err != nil {
		return nil, RulesConfigError(err)
	}

	specimens, err := c.loadSpecimens(ctx)
	if err != nil {
		return nil, err
	}

	report := &herbdb.CheckReport{SpecimensChecked: len(specimens)}

	findings, err := evaluate(specimens, similarities, c.rules, c.parser)
	if err != nil {
		return nil, err
	}

	remote, skipped := c.verifyNames(ctx, specimens)
	findings = append(findings, remote...)
	if skipped {
		report.RulesSkipped = append(report.RulesSkipped, FlagUnverifiedName)
	}

	raised, err := c.persist(ctx, findings)
	if err != nil {
		return nil, err
	}
	report.FlagsRaised = raised

	slog.Info("Quality check finished",
		"specimens", report.SpecimensChecked,
		"flags_raised", report.FlagsRaised,
		"rules_skipped", report.RulesSkipped,
	)
	return report, nil
}

// verifyNames runs the remote name rule. Any verifier failure skips
// the whole rule for this pass; a remote outage must never block or
// flag anything.
func (c *checker) verifyNames(
	ctx context.Context,
	specimens []specimenData,
) ([]finding, bool) {
	if c.verifier == nil || c.rules.Verifier.URL == "" {
		return nil, true
	}

	var res []finding
	for _, sp := range specimens {
		name := sp.best[dwc.ScientificName].Value
		if name == "" {
			continue
		}
		match, err := c.verifier.Verify(ctx, name)
		if err != nil {
			slog.Warn("Name verifier unavailable, skipping rule",
				"error", err)
			return nil, true
		}
		if match.Matched {
			continue
		}
		res = append(res, finding{
			specimenID: sp.id,
			flagType:   FlagUnverifiedName,
			severity:   schema.SeverityInfo,
			message: "scientific name \"" + name +
				"\" is unknown to the name authority",
		})
	}
	return res, false
}

// persist inserts findings as flags. Fingerprinted inserts make this
// idempotent: an unresolved duplicate hits the partial unique index,
// and a fingerprint that was already resolved is not resurrected.
func (c *checker) persist(
	ctx context.Context,
	findings []finding,
) (int, error) {
	if len(findings) == 0 {
		return 0, nil
	}
	pool := c.operator.Pool()

	var raised int
	err := iodb.InTx(ctx, pool, func(tx pgx.Tx) error {
		for _, f := range findings {
			fingerprint := gnuuid.New(
				f.specimenID + "|" + f.flagType + "|" + f.message,
			).String()

			tag, err := tx.Exec(ctx,
				`INSERT INTO data_quality_flags
					(id, specimen_id, flag_type, severity, message,
					 fingerprint, related_specimen_id, resolved,
					 created_at)
					SELECT $1, $2, $3, $4, $5, $6, $7, false, $8
					WHERE NOT EXISTS (
						SELECT 1 FROM data_quality_flags
						WHERE fingerprint = $6
					)
					ON CONFLICT (fingerprint) WHERE NOT resolved
						DO NOTHING`,
				uuid.NewString(), f.specimenID, f.flagType, f.severity,
				f.message, fingerprint, nullable(f.related),
				time.Now().UTC(),
			)
			if err != nil {
				return QueryError(err)
			}
			raised += int(tag.RowsAffected())
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return raised, nil
}

// loadSpecimens reads every aggregated specimen's best candidates.
func (c *checker) loadSpecimens(ctx context.Context) ([]specimenData, error) {
	pool := c.operator.Pool()

	rows, err := pool.Query(ctx,
		`SELECT s.id, s.camera_filename, s.expected_catalog_number,
			s.catalog_confidence, a.best_candidates
			FROM specimens s
			JOIN specimen_aggregations a ON a.specimen_id = s.id
			ORDER BY s.camera_filename`)
	if err != nil {
		return nil, QueryError(err)
	}
	defer rows.Close()

	var res []specimenData
	for rows.Next() {
		var sp specimenData
		var best []byte
		err = rows.Scan(&sp.id, &sp.cameraFilename, &sp.expectedCatalog,
			&sp.catalogConfidence, &best)
		if err != nil {
			return nil, QueryError(err)
		}
		if len(best) > 0 {
			if err = decodeJSON(best, &sp.best); err != nil {
				return nil, QueryError(err)
			}
		}
		res = append(res, sp)
	}
	if err = rows.Err(); err != nil {
		return nil, QueryError(err)
	}
	return res, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func decodeJSON(data []byte, out any) error {
	enc := gnfmt.GNjson{}
	return enc.Decode(data, out)
}

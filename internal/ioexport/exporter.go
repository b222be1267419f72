// Package ioexport builds export bundles of approved specimen records:
// a Darwin Core CSV, a SQLite snapshot, and a manifest that stamps the
// bundle with code revision and per-field provenance.
package ioexport

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"time"

	"github.com/gnames/gnfmt"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/openherbaria/herbdb/internal/iodb"
	"github.com/openherbaria/herbdb/internal/ioimage"
	app "github.com/openherbaria/herbdb/pkg"
	"github.com/openherbaria/herbdb/pkg/db"
	"github.com/openherbaria/herbdb/pkg/dwc"
	"github.com/openherbaria/herbdb/pkg/herbdb"
	"github.com/openherbaria/herbdb/pkg/schema"
)

type exporter struct {
	operator db.Operator
	enc      gnfmt.Encoder
}

// New creates an Exporter backed by PostgreSQL.
func New(op db.Operator) herbdb.Exporter {
	return &exporter{operator: op, enc: gnfmt.GNjson{}}
}

// record is one approved specimen ready for export.
type record struct {
	specimenID     string
	cameraFilename string
	reviewedBy     string
	fields         dwc.FieldMap
}

// Export writes the bundle files into dir, records the bundle, marks
// the exported records, and returns the manifest.
func (e *exporter) Export(
	ctx context.Context,
	dir string,
) (*herbdb.Manifest, error) {
	pool := e.operator.Pool()
	if pool == nil {
		return nil, iodb.NotConnectedError()
	}

	records, err := e.loadApproved(ctx)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, NothingApprovedError()
	}

	if err = os.MkdirAll(dir, 0755); err != nil {
		return nil, BundleError(dir, err)
	}

	csvPath := filepath.Join(dir, "occurrences.csv")
	if err = writeCSV(csvPath, records); err != nil {
		return nil, err
	}
	dbPath := filepath.Join(dir, "records.sqlite")
	if err = writeSQLite(dbPath, records); err != nil {
		return nil, err
	}

	revision, dirty := gitRevision()
	manifest := &herbdb.Manifest{
		BundleID:   uuid.NewString(),
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
		Version:    app.Version,
		Revision:   revision,
		Dirty:      dirty,
		Records:    len(records),
		Provenance: provenance(records),
	}
	for _, name := range []string{"occurrences.csv", "records.sqlite"} {
		sum, size, err := ioimage.HashFile(filepath.Join(dir, name))
		if err != nil {
			return nil, BundleError(name, err)
		}
		manifest.Files = append(manifest.Files, herbdb.ManifestFile{
			Name: name, SHA256: sum, SizeBytes: size,
		})
	}

	manifestJSON, err := e.enc.Encode(manifest)
	if err != nil {
		return nil, ManifestError(err)
	}
	manifestPath := filepath.Join(dir, "manifest.json")
	if err = os.WriteFile(manifestPath, manifestJSON, 0644); err != nil {
		return nil, ManifestError(err)
	}

	if err = e.recordBundle(ctx, dir, manifest, records); err != nil {
		return nil, err
	}
	return manifest, nil
}

// loadApproved reads every approved, fully reviewed record.
func (e *exporter) loadApproved(ctx context.Context) ([]record, error) {
	pool := e.operator.Pool()

	rows, err := pool.Query(ctx,
		`SELECT r.specimen_id, s.camera_filename, r.reviewed_by,
			r.final_fields
			FROM review_records r
			JOIN specimens s ON s.id = r.specimen_id
			WHERE r.status = $1
			ORDER BY s.camera_filename`,
		schema.ReviewApproved,
	)
	if err != nil {
		return nil, QueryError(err)
	}
	defer rows.Close()

	var res []record
	for rows.Next() {
		var r record
		var fields []byte
		err = rows.Scan(&r.specimenID, &r.cameraFilename,
			&r.reviewedBy, &fields)
		if err != nil {
			return nil, QueryError(err)
		}
		if len(fields) > 0 {
			r.fields = make(dwc.FieldMap)
			if err = e.enc.Decode(fields, &r.fields); err != nil {
				return nil, QueryError(err)
			}
		}
		res = append(res, r)
	}
	if err = rows.Err(); err != nil {
		return nil, QueryError(err)
	}
	return res, nil
}

// recordBundle persists the bundle row and stamps the exported
// records, atomically.
func (e *exporter) recordBundle(
	ctx context.Context,
	dir string,
	manifest *herbdb.Manifest,
	records []record,
) error {
	pool := e.operator.Pool()

	return iodb.InTx(ctx, pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO export_bundles
				(id, path, specimen_count, revision, dirty, created_at)
				VALUES ($1, $2, $3, $4, $5, $6)`,
			manifest.BundleID, dir, manifest.Records,
			manifest.Revision, manifest.Dirty, time.Now().UTC(),
		)
		if err != nil {
			return QueryError(err)
		}

		for _, r := range records {
			_, err = tx.Exec(ctx,
				`UPDATE review_records SET exported_to = $2
					WHERE specimen_id = $1`,
				r.specimenID, manifest.BundleID,
			)
			if err != nil {
				return QueryError(err)
			}
		}
		return nil
	})
}

// writeCSV writes one row per record with a fixed column order, so the
// same records always produce the same bytes and the same checksum.
func writeCSV(path string, records []record) error {
	var buf bytes.Buffer
	terms := dwc.AllTerms()
	w := csv.NewWriter(&buf)

	header := make([]string, 0, len(terms)+1)
	header = append(header, "specimenID")
	for _, t := range terms {
		header = append(header, string(t))
	}
	if err := w.Write(header); err != nil {
		return BundleError(path, err)
	}

	for _, r := range records {
		row := make([]string, 0, len(terms)+1)
		row = append(row, r.specimenID)
		for _, t := range terms {
			row = append(row, r.fields[t].Value)
		}
		if err := w.Write(row); err != nil {
			return BundleError(path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return BundleError(path, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return BundleError(path, err)
	}
	return nil
}

// provenance attributes every exported value to the extraction attempt
// or reviewer decision it came from.
func provenance(records []record) map[string][]herbdb.FieldProvenance {
	res := make(map[string][]herbdb.FieldProvenance, len(records))
	for _, r := range records {
		for _, t := range r.fields.Terms() {
			cand := r.fields[t]
			res[r.specimenID] = append(res[r.specimenID],
				herbdb.FieldProvenance{
					Term:       t,
					Value:      cand.Value,
					Source:     cand.Source,
					ApprovedBy: r.reviewedBy,
				})
		}
	}
	return res
}

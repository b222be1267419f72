package ioexport

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/openherbaria/herbdb/pkg/dwc"
	_ "modernc.org/sqlite"
)

// writeSQLite snapshots the exported records into a standalone SQLite
// file, one column per Darwin Core term. Consumers without a
// PostgreSQL connection get a queryable copy of the bundle.
func writeSQLite(path string, records []record) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return BundleError(path, err)
	}
	defer db.Close()

	terms := dwc.AllTerms()
	cols := make([]string, 0, len(terms)+1)
	cols = append(cols, `"specimenID" TEXT PRIMARY KEY`)
	for _, t := range terms {
		cols = append(cols, fmt.Sprintf("%q TEXT", string(t)))
	}
	ddl := "CREATE TABLE occurrences (" + strings.Join(cols, ", ") + ")"
	if _, err = db.Exec(ddl); err != nil {
		return BundleError(path, err)
	}

	placeholders := make([]string, len(terms)+1)
	for i := range placeholders {
		placeholders[i] = "?"
	}
	insert := "INSERT INTO occurrences VALUES (" +
		strings.Join(placeholders, ", ") + ")"

	tx, err := db.Begin()
	if err != nil {
		return BundleError(path, err)
	}
	for _, r := range records {
		args := make([]any, 0, len(terms)+1)
		args = append(args, r.specimenID)
		for _, t := range terms {
			args = append(args, r.fields[t].Value)
		}
		if _, err = tx.Exec(insert, args...); err != nil {
			tx.Rollback()
			return BundleError(path, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return BundleError(path, err)
	}
	return db.Close()
}

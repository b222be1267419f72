package ioexport

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/openherbaria/herbdb/internal/ioimage"
	"github.com/openherbaria/herbdb/pkg/dwc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func conf(v float64) *float64 { return &v }

func sampleRecords() []record {
	return []record{
		{
			specimenID:     "id-1",
			cameraFilename: "DSC_0001",
			reviewedBy:     "jmartin",
			fields: dwc.FieldMap{
				dwc.CatalogNumber:  {Value: "NY-123456", Confidence: conf(0.9), Source: "att-1"},
				dwc.ScientificName: {Value: "Quercus alba L.", Source: "manual:jmartin"},
			},
		},
		{
			specimenID:     "id-2",
			cameraFilename: "DSC_0002",
			reviewedBy:     "avasquez",
			fields: dwc.FieldMap{
				dwc.CatalogNumber: {Value: "NY-654321", Confidence: conf(0.8), Source: "att-2"},
			},
		},
	}
}

func TestWriteCSVChecksumIsPure(t *testing.T) {
	assert := assert.New(t)
	dir := t.TempDir()
	records := sampleRecords()

	p1 := filepath.Join(dir, "a.csv")
	p2 := filepath.Join(dir, "b.csv")
	require.NoError(t, writeCSV(p1, records))
	require.NoError(t, writeCSV(p2, records))

	// The checksum is a function of the records alone.
	sum1, _, err := ioimage.HashFile(p1)
	require.NoError(t, err)
	sum2, _, err := ioimage.HashFile(p2)
	require.NoError(t, err)
	assert.Equal(sum1, sum2)
}

func TestWriteSQLite(t *testing.T) {
	assert := assert.New(t)
	path := filepath.Join(t.TempDir(), "records.sqlite")
	require.NoError(t, writeSQLite(path, sampleRecords()))

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var n int
	err = db.QueryRow(`SELECT count(*) FROM occurrences`).Scan(&n)
	require.NoError(t, err)
	assert.Equal(2, n)

	var catalog string
	err = db.QueryRow(
		`SELECT "catalogNumber" FROM occurrences
			WHERE "specimenID" = 'id-1'`).Scan(&catalog)
	require.NoError(t, err)
	assert.Equal("NY-123456", catalog)
}

func TestProvenance(t *testing.T) {
	assert := assert.New(t)
	prov := provenance(sampleRecords())

	require.Len(t, prov, 2)
	require.Len(t, prov["id-1"], 2)

	byTerm := make(map[dwc.Term]string)
	for _, p := range prov["id-1"] {
		byTerm[p.Term] = p.Source
	}
	assert.Equal("att-1", byTerm[dwc.CatalogNumber])
	assert.Equal("manual:jmartin", byTerm[dwc.ScientificName])
	assert.Equal("jmartin", prov["id-1"][0].ApprovedBy)
}

func TestGitRevisionNeverFails(t *testing.T) {
	revision, _ := gitRevision()
	assert.NotEmpty(t, revision)
}

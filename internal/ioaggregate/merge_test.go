package ioaggregate

import (
	"testing"
	"time"

	"github.com/openherbaria/herbdb/pkg/dwc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func conf(v float64) *float64 { return &v }

func TestMergeHighestConfidenceWins(t *testing.T) {
	assert := assert.New(t)
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	attempts := []attemptRow{
		{
			id:        "att-1",
			createdAt: t0,
			fields: dwc.FieldMap{
				dwc.CatalogNumber:  {Value: "NY-1111", Confidence: conf(0.4)},
				dwc.ScientificName: {Value: "Quercus alba", Confidence: conf(0.9)},
			},
		},
		{
			id:        "att-2",
			createdAt: t0.Add(time.Hour),
			fields: dwc.FieldMap{
				dwc.CatalogNumber:  {Value: "NY-2222", Confidence: conf(0.8)},
				dwc.ScientificName: {Value: "Quercus sp.", Confidence: conf(0.3)},
			},
		},
	}

	candidates, best := merge(attempts)

	assert.Equal("NY-2222", best[dwc.CatalogNumber].Value)
	assert.Equal("Quercus alba", best[dwc.ScientificName].Value)
	assert.Equal("att-2", best[dwc.CatalogNumber].Source)
	assert.Len(candidates[dwc.CatalogNumber], 2)
}

func TestMergeTieBreaksToNewerAttempt(t *testing.T) {
	assert := assert.New(t)
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	attempts := []attemptRow{
		{
			id: "att-old", createdAt: t0,
			fields: dwc.FieldMap{
				dwc.Locality: {Value: "old reading", Confidence: conf(0.5)},
			},
		},
		{
			id: "att-new", createdAt: t0.Add(time.Minute),
			fields: dwc.FieldMap{
				dwc.Locality: {Value: "new reading", Confidence: conf(0.5)},
			},
		},
	}

	_, best := merge(attempts)
	assert.Equal("new reading", best[dwc.Locality].Value)
	assert.Equal("att-new", best[dwc.Locality].Source)
}

func TestMergeMissingConfidenceIsLowest(t *testing.T) {
	assert := assert.New(t)
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	attempts := []attemptRow{
		{
			id: "att-no-conf", createdAt: t0.Add(time.Hour),
			fields: dwc.FieldMap{
				dwc.EventDate: {Value: "1887-06-12"},
			},
		},
		{
			id: "att-low-conf", createdAt: t0,
			fields: dwc.FieldMap{
				dwc.EventDate: {Value: "1887", Confidence: conf(0.1)},
			},
		},
	}

	_, best := merge(attempts)
	assert.Equal("1887", best[dwc.EventDate].Value)
}

func TestMergeIsDeterministic(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	attempts := []attemptRow{
		{
			id: "a", createdAt: t0,
			fields: dwc.FieldMap{
				dwc.CatalogNumber: {Value: "X", Confidence: conf(0.5)},
				dwc.Country:       {Value: "USA", Confidence: conf(0.7)},
			},
		},
		{
			id: "b", createdAt: t0,
			fields: dwc.FieldMap{
				dwc.CatalogNumber: {Value: "Y", Confidence: conf(0.5)},
			},
		},
	}

	_, first := merge(attempts)
	for range 20 {
		_, again := merge(attempts)
		require.Equal(t, first, again)
	}
}

package ioextract

import (
	"testing"

	"github.com/openherbaria/herbdb/pkg/dwc"
	"github.com/stretchr/testify/assert"
)

func TestMapLabelText(t *testing.T) {
	assert := assert.New(t)

	text := `NEW YORK BOTANICAL GARDEN
Catalog No.: NY-123456
Scientific name: Quercus alba L.
Collector: A. Gray
Date: 1887-06-12
Locality: banks of the Hudson River
Elevation: 20 m
`
	fields := mapLabelText(text)

	assert.Equal("NY-123456", fields[dwc.CatalogNumber].Value)
	assert.Equal("Quercus alba L.", fields[dwc.ScientificName].Value)
	assert.Equal("A. Gray", fields[dwc.RecordedBy].Value)
	assert.Equal("1887-06-12", fields[dwc.EventDate].Value)
	assert.Equal("banks of the Hudson River", fields[dwc.Locality].Value)
	assert.Equal("20 m", fields[dwc.MinimumElevation].Value)

	// The unlabeled header line lands in remarks.
	assert.Contains(fields[dwc.OccurrenceRemarks].Value,
		"NEW YORK BOTANICAL GARDEN")

	// Every field carries a confidence.
	for term, cand := range fields {
		assert.NotNil(cand.Confidence, string(term))
	}
	_, ok := fields.Validate()
	assert.True(ok)
}

func TestMapLabelTextFirstLabelWins(t *testing.T) {
	assert := assert.New(t)
	fields := mapLabelText("Locality: first value\nLocality: second value\n")

	assert.Equal("first value", fields[dwc.Locality].Value)
	assert.Contains(fields[dwc.OccurrenceRemarks].Value, "second value")
}

func TestMapLabelTextEmpty(t *testing.T) {
	fields := mapLabelText("")
	assert.Empty(t, fields)
}

package ioquality

import (
	"testing"

	"github.com/gnames/gnparser"
	"github.com/openherbaria/herbdb/pkg/dwc"
	"github.com/openherbaria/herbdb/pkg/herbdb"
	"github.com/openherbaria/herbdb/pkg/quality"
	"github.com/openherbaria/herbdb/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testParser = gnparser.New(gnparser.NewConfig())

func conf(v float64) *float64 { return &v }

func specimen(id, camera, catalog string, c float64) specimenData {
	return specimenData{
		id:             id,
		cameraFilename: camera,
		best: dwc.FieldMap{
			dwc.CatalogNumber: {
				Value: catalog, Confidence: conf(c),
			},
			dwc.ScientificName: {
				Value: "Quercus alba L.", Confidence: conf(0.9),
			},
			dwc.EventDate: {
				Value: "1887-06-12", Confidence: conf(0.7),
			},
		},
	}
}

func findTypes(findings []finding) map[string]int {
	res := make(map[string]int)
	for _, f := range findings {
		res[f.flagType]++
	}
	return res
}

func TestDuplicateCatalogNumbers(t *testing.T) {
	assert := assert.New(t)
	specimens := []specimenData{
		specimen("id-1", "DSC_0001", "NY-123456", 0.9),
		specimen("id-2", "DSC_0002", "NY-123456", 0.9),
		specimen("id-3", "DSC_0003", "NY-777777", 0.9),
	}

	findings := duplicateCatalogNumbers(specimens)
	require.Len(t, findings, 2)
	for _, f := range findings {
		assert.Equal(FlagDuplicateCatalogNumber, f.flagType)
		assert.Equal(schema.SeverityError, f.severity)
		assert.NotEmpty(f.related)
	}
}

func TestCatalogRules(t *testing.T) {
	rules := quality.Defaults()

	tests := []struct {
		msg      string
		sp       specimenData
		expected []string
	}{
		{
			"well-formed",
			specimen("id-1", "DSC_0001", "NY-123456", 0.9),
			nil,
		},
		{
			"malformed",
			specimen("id-2", "DSC_0002", "scribble42", 0.9),
			[]string{FlagMalformedCatalogNumber},
		},
		{
			"low confidence",
			specimen("id-3", "DSC_0003", "NY-123456", 0.2),
			[]string{FlagSuspectCatalogNumber},
		},
		{
			"placeholder",
			specimen("id-4", "DSC_0004", "illegible", 0.9),
			[]string{FlagMalformedCatalogNumber, FlagSuspectCatalogNumber},
		},
	}

	for _, v := range tests {
		findings, err := evaluate(
			[]specimenData{v.sp}, nil, rules, testParser)
		require.NoError(t, err, v.msg)
		got := findTypes(findings)
		for _, want := range v.expected {
			assert.Contains(t, got, want, v.msg)
		}
		if v.expected == nil {
			assert.Empty(t, findings, v.msg)
		}
	}
}

func TestCatalogMismatch(t *testing.T) {
	sp := specimen("id-1", "DSC_0001", "NY-123456", 0.9)
	sp.expectedCatalog = "NY-654321"

	findings, err := evaluate(
		[]specimenData{sp}, nil, quality.Defaults(), testParser)
	require.NoError(t, err)
	assert.Contains(t, findTypes(findings), FlagCatalogMismatch)
}

func TestRequiredFieldRules(t *testing.T) {
	assert := assert.New(t)
	rules := quality.Defaults()

	sp := specimenData{
		id: "id-1",
		best: dwc.FieldMap{
			dwc.CatalogNumber: {Value: "NY-123456", Confidence: conf(0.9)},
			// scientificName and eventDate missing
		},
	}
	findings := requiredFieldRules(sp, rules)
	assert.Len(findings, 2)
	for _, f := range findings {
		assert.Equal(FlagMissingRequiredField, f.flagType)
		assert.Equal(schema.SeverityError, f.severity)
	}

	// A placeholder value counts as missing.
	sp.best[dwc.ScientificName] = dwc.Candidate{Value: "unknown"}
	findings = requiredFieldRules(sp, rules)
	assert.Len(findings, 2)
}

func TestNameRules(t *testing.T) {
	assert := assert.New(t)

	good := specimen("id-1", "DSC_0001", "NY-123456", 0.9)
	assert.Empty(nameRules(good, testParser))

	bad := good
	bad.best = dwc.FieldMap{
		dwc.ScientificName: {Value: "x873 label torn #!", Confidence: conf(0.1)},
	}
	findings := nameRules(bad, testParser)
	require.Len(t, findings, 1)
	assert.Equal(FlagUnparseableName, findings[0].flagType)
	assert.Equal(schema.SeverityWarning, findings[0].severity)
}

func TestSimilarityRules(t *testing.T) {
	assert := assert.New(t)
	rules := quality.Defaults()
	specimens := []specimenData{
		specimen("id-1", "DSC_0001", "NY-111111", 0.9),
		specimen("id-2", "DSC_0002", "NY-222222", 0.9),
	}

	pairs := []herbdb.SimilarityPair{
		{SpecimenID: "id-1", OtherSpecimenID: "id-2", Score: 0.97},
	}
	findings := similarityRules(specimens, pairs, rules)
	// Both sides of the pair get a flag pointing at the other.
	require.Len(t, findings, 2)
	assert.Equal("id-2", findings[0].related)
	assert.Equal("id-1", findings[1].related)

	// Below the threshold nothing is raised.
	pairs[0].Score = 0.5
	assert.Empty(similarityRules(specimens, pairs, rules))
}

func TestEvaluateIsDeterministic(t *testing.T) {
	rules := quality.Defaults()
	specimens := []specimenData{
		specimen("id-1", "DSC_0001", "NY-123456", 0.3),
		specimen("id-2", "DSC_0002", "NY-123456", 0.9),
	}

	first, err := evaluate(specimens, nil, rules, testParser)
	require.NoError(t, err)
	for range 10 {
		again, err := evaluate(specimens, nil, rules, testParser)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

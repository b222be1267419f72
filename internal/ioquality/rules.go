package ioquality

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gnames/gnparser"
	"github.com/openherbaria/herbdb/pkg/dwc"
	"github.com/openherbaria/herbdb/pkg/herbdb"
	"github.com/openherbaria/herbdb/pkg/quality"
	"github.com/openherbaria/herbdb/pkg/schema"
)

// Flag types raised by the checker.
const (
	FlagDuplicateCatalogNumber = "DUPLICATE_CATALOG_NUMBER"
	FlagMalformedCatalogNumber = "MALFORMED_CATALOG_NUMBER"
	FlagSuspectCatalogNumber   = "SUSPECT_CATALOG_NUMBER"
	FlagCatalogMismatch        = "CATALOG_MISMATCH"
	FlagMissingRequiredField   = "MISSING_REQUIRED_FIELD"
	FlagDuplicateImage         = "DUPLICATE_IMAGE"
	FlagUnparseableName        = "UNPARSEABLE_NAME"
	FlagUnverifiedName         = "UNVERIFIED_NAME"
)

// specimenData is the slice of a specimen the rules look at.
type specimenData struct {
	id                string
	cameraFilename    string
	expectedCatalog   string
	catalogConfidence float64
	best              dwc.FieldMap
}

// finding is one raised issue before persistence.
type finding struct {
	specimenID string
	flagType   string
	severity   string
	message    string
	related    string
}

// evaluate runs every local rule over the specimen set. Pure: same
// input, same findings, in a deterministic order. The remote name
// verifier runs separately because it can fail and be skipped.
func evaluate(
	specimens []specimenData,
	pairs []herbdb.SimilarityPair,
	rules *quality.RulesConfig,
	parser gnparser.GNparser,
) ([]finding, error) {
	pattern, err := regexp.Compile(rules.CatalogNumberPattern)
	if err != nil {
		return nil, RulesConfigError(err)
	}

	var res []finding
	res = append(res, duplicateCatalogNumbers(specimens)...)
	for _, sp := range specimens {
		res = append(res, catalogRules(sp, pattern, rules)...)
		res = append(res, requiredFieldRules(sp, rules)...)
		res = append(res, nameRules(sp, parser)...)
	}
	res = append(res, similarityRules(specimens, pairs, rules)...)
	return res, nil
}

// duplicateCatalogNumbers flags every specimen whose best catalog
// number is shared with another specimen. Error severity: two sheets
// cannot publish the same catalog number.
func duplicateCatalogNumbers(specimens []specimenData) []finding {
	byCatalog := make(map[string][]specimenData)
	for _, sp := range specimens {
		cat := strings.TrimSpace(sp.best[dwc.CatalogNumber].Value)
		if cat == "" {
			continue
		}
		byCatalog[cat] = append(byCatalog[cat], sp)
	}

	var res []finding
	for _, sp := range specimens {
		cat := strings.TrimSpace(sp.best[dwc.CatalogNumber].Value)
		group := byCatalog[cat]
		if len(group) < 2 {
			continue
		}
		for _, other := range group {
			if other.id == sp.id {
				continue
			}
			res = append(res, finding{
				specimenID: sp.id,
				flagType:   FlagDuplicateCatalogNumber,
				severity:   schema.SeverityError,
				message: fmt.Sprintf(
					"catalog number %q is also extracted for specimen %s",
					cat, other.cameraFilename),
				related: other.id,
			})
			break
		}
	}
	return res
}

func catalogRules(
	sp specimenData,
	pattern *regexp.Regexp,
	rules *quality.RulesConfig,
) []finding {
	var res []finding
	cand, ok := sp.best[dwc.CatalogNumber]
	if !ok || strings.TrimSpace(cand.Value) == "" {
		return res
	}
	value := strings.TrimSpace(cand.Value)

	if !pattern.MatchString(value) {
		res = append(res, finding{
			specimenID: sp.id,
			flagType:   FlagMalformedCatalogNumber,
			severity:   schema.SeverityWarning,
			message: fmt.Sprintf(
				"catalog number %q does not match the expected pattern",
				value),
		})
	}

	if isPlaceholder(value, rules.PlaceholderValues) {
		res = append(res, finding{
			specimenID: sp.id,
			flagType:   FlagSuspectCatalogNumber,
			severity:   schema.SeverityWarning,
			message: fmt.Sprintf(
				"catalog number %q looks like a placeholder", value),
		})
	} else if cand.ConfidenceOrZero() < rules.MinCatalogConfidence {
		res = append(res, finding{
			specimenID: sp.id,
			flagType:   FlagSuspectCatalogNumber,
			severity:   schema.SeverityWarning,
			message: fmt.Sprintf(
				"catalog number %q extracted with confidence %.2f below %.2f",
				value, cand.ConfidenceOrZero(), rules.MinCatalogConfidence),
		})
	}

	if sp.expectedCatalog != "" && sp.expectedCatalog != value {
		res = append(res, finding{
			specimenID: sp.id,
			flagType:   FlagCatalogMismatch,
			severity:   schema.SeverityWarning,
			message: fmt.Sprintf(
				"extracted catalog number %q disagrees with expected %q",
				value, sp.expectedCatalog),
		})
	}
	return res
}

func requiredFieldRules(sp specimenData, rules *quality.RulesConfig) []finding {
	var res []finding
	for _, field := range rules.RequiredFields {
		term := dwc.Term(field)
		cand, ok := sp.best[term]
		if ok && strings.TrimSpace(cand.Value) != "" &&
			!isPlaceholder(cand.Value, rules.PlaceholderValues) {
			continue
		}
		res = append(res, finding{
			specimenID: sp.id,
			flagType:   FlagMissingRequiredField,
			severity:   schema.SeverityError,
			message: fmt.Sprintf(
				"required field %s is missing or empty", field),
		})
	}
	return res
}

// nameRules parses the best scientific name and flags names the parser
// cannot make sense of: viruses, surrogates and unparsed strings are
// not publishable determinations.
func nameRules(sp specimenData, parser gnparser.GNparser) []finding {
	name := strings.TrimSpace(sp.best[dwc.ScientificName].Value)
	if name == "" {
		return nil
	}

	parsed := parser.ParseName(name)
	if parsed.Parsed && !parsed.Virus && parsed.Surrogate == nil {
		return nil
	}
	return []finding{{
		specimenID: sp.id,
		flagType:   FlagUnparseableName,
		severity:   schema.SeverityWarning,
		message: fmt.Sprintf(
			"scientific name %q could not be parsed as a valid name",
			name),
	}}
}

// similarityRules flags pairs of specimens whose photographs are
// near-identical: likely the same sheet registered twice.
func similarityRules(
	specimens []specimenData,
	pairs []herbdb.SimilarityPair,
	rules *quality.RulesConfig,
) []finding {
	known := make(map[string]specimenData, len(specimens))
	for _, sp := range specimens {
		known[sp.id] = sp
	}

	var res []finding
	for _, pair := range pairs {
		if pair.Score < rules.SimilarityThreshold {
			continue
		}
		a, okA := known[pair.SpecimenID]
		b, okB := known[pair.OtherSpecimenID]
		if !okA || !okB {
			continue
		}
		res = append(res,
			finding{
				specimenID: a.id,
				flagType:   FlagDuplicateImage,
				severity:   schema.SeverityWarning,
				message: fmt.Sprintf(
					"photograph is %.0f%% similar to specimen %s",
					pair.Score*100, b.cameraFilename),
				related: b.id,
			},
			finding{
				specimenID: b.id,
				flagType:   FlagDuplicateImage,
				severity:   schema.SeverityWarning,
				message: fmt.Sprintf(
					"photograph is %.0f%% similar to specimen %s",
					pair.Score*100, a.cameraFilename),
				related: a.id,
			},
		)
	}
	return res
}

func isPlaceholder(value string, placeholders []string) bool {
	lower := strings.ToLower(value)
	for _, p := range placeholders {
		if strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

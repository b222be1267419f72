// Package dwc provides the closed set of Darwin Core terms that herbdb
// extracts from specimen labels, together with the candidate value
// record attached to every term during extraction and review.
package dwc

import (
	"sort"
)

// Term is a Darwin Core term extracted from a herbarium label.
// Only terms listed in AllTerms are accepted at component boundaries;
// arbitrary field names are rejected during decoding.
type Term string

const (
	CatalogNumber      Term = "catalogNumber"
	OtherCatalogNumber Term = "otherCatalogNumbers"
	ScientificName     Term = "scientificName"
	Family             Term = "family"
	Genus              Term = "genus"
	SpecificEpithet    Term = "specificEpithet"
	RecordedBy         Term = "recordedBy"
	RecordNumber       Term = "recordNumber"
	EventDate          Term = "eventDate"
	Country            Term = "country"
	StateProvince      Term = "stateProvince"
	County             Term = "county"
	Locality           Term = "locality"
	DecimalLatitude    Term = "decimalLatitude"
	DecimalLongitude   Term = "decimalLongitude"
	MinimumElevation   Term = "minimumElevationInMeters"
	Habitat            Term = "habitat"
	IdentifiedBy       Term = "identifiedBy"
	DateIdentified     Term = "dateIdentified"
	OccurrenceRemarks  Term = "occurrenceRemarks"
)

// AllTerms returns every supported term in a stable, sorted order.
// The order is used for canonical serialization of field maps, so the
// same data always produces byte-identical output.
func AllTerms() []Term {
	res := []Term{
		CatalogNumber, OtherCatalogNumber, ScientificName, Family,
		Genus, SpecificEpithet, RecordedBy, RecordNumber, EventDate,
		Country, StateProvince, County, Locality, DecimalLatitude,
		DecimalLongitude, MinimumElevation, Habitat, IdentifiedBy,
		DateIdentified, OccurrenceRemarks,
	}
	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })
	return res
}

var validTerms = func() map[Term]struct{} {
	res := make(map[Term]struct{})
	for _, t := range AllTerms() {
		res[t] = struct{}{}
	}
	return res
}()

// IsValid reports whether t belongs to the supported term set.
func (t Term) IsValid() bool {
	_, ok := validTerms[t]
	return ok
}

// Candidate is one extracted value for a term. Confidence is nil when
// the extractor did not report one; selection logic treats a missing
// confidence as the lowest possible value.
type Candidate struct {
	Value      string   `json:"value"`
	Confidence *float64 `json:"confidence,omitempty"`
	// Source identifies where the value came from: an extraction
	// attempt ID, or "manual:<reviewer>" for reviewer corrections.
	Source string `json:"source"`
}

// ConfidenceOrZero returns the confidence, or 0 when it is missing.
func (c Candidate) ConfidenceOrZero() float64 {
	if c.Confidence == nil {
		return 0
	}
	return *c.Confidence
}

// FieldMap is a set of term candidates keyed by Darwin Core term.
// JSON marshaling of a FieldMap is deterministic: Go serializes map
// keys of string kind in sorted order.
type FieldMap map[Term]Candidate

// Terms returns the terms present in the map, sorted.
func (fm FieldMap) Terms() []Term {
	res := make([]Term, 0, len(fm))
	for t := range fm {
		res = append(res, t)
	}
	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })
	return res
}

// Validate reports the first unknown term found in the map, if any.
func (fm FieldMap) Validate() (Term, bool) {
	for _, t := range fm.Terms() {
		if !t.IsValid() {
			return t, false
		}
	}
	return "", true
}

// Package herbdb defines the contracts between the pure domain layer
// and the impure internal/io* implementations, following the project
// convention that pkg/ holds interfaces and internal/ holds I/O.
package herbdb

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/openherbaria/herbdb/pkg/dwc"
)

// FileDescriptor describes an original camera file being registered.
// SHA256 is supplied by the caller and verified against the stored
// bytes during registration.
type FileDescriptor struct {
	SHA256     string
	Path       string
	Format     string
	Width      int
	Height     int
	SizeBytes  int64
	Role       string
	CapturedAt *time.Time
}

// TransformationInput describes a derived image being registered in
// the ledger.
type TransformationInput struct {
	SpecimenID  string
	DerivedFrom string
	SHA256      string
	Operation   string
	Params      map[string]string
	Tool        string
	ToolVersion string
	Location    string
}

// AncestryNode is one step in an image's derivation chain, walked from
// the queried image back to the original file.
type AncestryNode struct {
	SHA256      string
	DerivedFrom string
	Operation   string
	// IsOriginal is true for the terminal camera file.
	IsOriginal bool
}

// ExtractionParams is the full parameter payload of one extractor run.
// Two runs with equal canonical serializations are the same work and
// are never repeated.
type ExtractionParams struct {
	// Engine is the extractor name, e.g. "tesseract", "gpt4o".
	Engine string `json:"engine"`

	// Model is the engine-specific model identifier, if any.
	Model string `json:"model,omitempty"`

	// Languages is the OCR language setting, e.g. "eng".
	Languages string `json:"languages,omitempty"`

	// PromptVersion pins the prompt for LLM-backed extractors.
	PromptVersion string `json:"prompt_version,omitempty"`

	// Extra holds engine-specific settings. Serialized with sorted
	// keys so the canonical form is order-independent.
	Extra map[string]string `json:"extra,omitempty"`
}

// ExtractionResult is what an extractor returns for one image.
type ExtractionResult struct {
	Fields dwc.FieldMap
}

// Attempt is the persisted outcome of one extraction, successful or
// not.
type Attempt struct {
	ID          string
	ImageSHA256 string
	SpecimenID  string
	Params      ExtractionParams
	ParamsHash  string
	Status      string
	Fields      dwc.FieldMap
	Error       string
	RunID       string
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// Priority of a specimen in the review queue. Stored as an integer so
// queue ordering is a plain ORDER BY.
type Priority int

const (
	PriorityMinimal  Priority = 1
	PriorityLow      Priority = 2
	PriorityMedium   Priority = 3
	PriorityHigh     Priority = 4
	PriorityCritical Priority = 5
)

var priorityNames = map[Priority]string{
	PriorityCritical: "CRITICAL",
	PriorityHigh:     "HIGH",
	PriorityMedium:   "MEDIUM",
	PriorityLow:      "LOW",
	PriorityMinimal:  "MINIMAL",
}

// String returns the canonical name of the priority.
func (p Priority) String() string {
	if s, ok := priorityNames[p]; ok {
		return s
	}
	return fmt.Sprintf("PRIORITY(%d)", int(p))
}

// IsValid reports whether p is one of the five defined priorities.
func (p Priority) IsValid() bool {
	_, ok := priorityNames[p]
	return ok
}

// ParsePriority converts a priority name to its value.
func ParsePriority(s string) (Priority, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for p, name := range priorityNames {
		if name == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown priority %q", s)
}

// QueueFilter selects review-queue entries. The three dimensions are
// independent: any combination is legal and none implies another.
type QueueFilter struct {
	// Status filters by review status when non-empty.
	Status string

	// Priorities filters to the listed priorities when non-empty.
	Priorities []Priority

	// FlaggedOnly restricts to flagged specimens across all statuses
	// and priorities.
	FlaggedOnly bool
}

// QueueItem is one row of the review queue.
type QueueItem struct {
	SpecimenID      string    `json:"specimenId"`
	CameraFilename  string    `json:"cameraFilename"`
	Status          string    `json:"status"`
	Priority        Priority  `json:"priority"`
	PriorityName    string    `json:"priorityName"`
	Flagged         bool      `json:"flagged"`
	QueuedAt        time.Time `json:"queuedAt"`
	UnresolvedFlags int       `json:"unresolvedFlags"`
}

// AttemptCounts breaks extraction attempts down by status.
type AttemptCounts struct {
	Pending   int `json:"pending"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// FlagView is a quality flag as shown to reviewers.
type FlagView struct {
	ID                string     `json:"id"`
	FlagType          string     `json:"flagType"`
	Severity          string     `json:"severity"`
	Message           string     `json:"message"`
	RelatedSpecimenID string     `json:"relatedSpecimenId,omitempty"`
	Resolved          bool       `json:"resolved"`
	CreatedAt         time.Time  `json:"createdAt"`
	ResolvedAt        *time.Time `json:"resolvedAt,omitempty"`
}

// AttemptView is an extraction attempt as shown to reviewers.
type AttemptView struct {
	ID          string       `json:"id"`
	ImageSHA256 string       `json:"imageSha256"`
	Engine      string       `json:"engine"`
	Status      string       `json:"status"`
	Fields      dwc.FieldMap `json:"fields,omitempty"`
	Error       string       `json:"error,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// SpecimenDetail is the full review view of one specimen.
type SpecimenDetail struct {
	SpecimenID     string                     `json:"specimenId"`
	CameraFilename string                     `json:"cameraFilename"`
	Status         string                     `json:"status"`
	Priority       Priority                   `json:"priority"`
	Flagged        bool                       `json:"flagged"`
	Candidates     map[dwc.Term][]dwc.Candidate `json:"candidates"`
	BestCandidates dwc.FieldMap               `json:"bestCandidates"`
	FinalFields    dwc.FieldMap               `json:"finalFields"`
	Flags          []FlagView                 `json:"flags"`
	Attempts       []AttemptView              `json:"attempts"`
	AttemptCounts  AttemptCounts              `json:"attemptCounts"`
}

// ReviewUpdate is one reviewer action: field decisions, an optional
// status transition, or both.
type ReviewUpdate struct {
	SpecimenID string
	Reviewer   string
	// Decisions maps terms to reviewer-confirmed values.
	Decisions map[dwc.Term]string
	// NewStatus requests a transition when non-empty.
	NewStatus string
}

// NameMatch is a remote verifier result for a scientific name.
type NameMatch struct {
	Matched       bool
	CanonicalForm string
	Confidence    float64
}

// SimilarityPair is an externally computed perceptual-hash similarity
// between two specimens' photographs.
type SimilarityPair struct {
	SpecimenID      string  `json:"specimenId"`
	OtherSpecimenID string  `json:"otherSpecimenId"`
	Score           float64 `json:"score"`
}

// SortCandidates orders candidates best-first: higher confidence wins,
// missing confidence is lowest, ties go to the later source timestamp
// carried in ts. Used by aggregation; exported so review views sort
// the same way.
func SortCandidates(cands []dwc.Candidate, ts func(source string) time.Time) {
	sort.SliceStable(cands, func(i, j int) bool {
		ci, cj := cands[i].ConfidenceOrZero(), cands[j].ConfidenceOrZero()
		if ci != cj {
			return ci > cj
		}
		return ts(cands[i].Source).After(ts(cands[j].Source))
	})
}

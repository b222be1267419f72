package herbdb

import (
	"context"

	"github.com/openherbaria/herbdb/pkg/dwc"
)

// Registry maintains the identity of physical specimens and their
// original camera files.
type Registry interface {
	// RegisterSpecimen creates a specimen with its original files in
	// one transaction. Registering the same specimen with identical
	// attributes and files is a no-op; any difference fails with a
	// duplicate-specimen error.
	RegisterSpecimen(
		ctx context.Context,
		cameraFilename string,
		expectedCatalog string,
		catalogConfidence float64,
		files []FileDescriptor,
	) (specimenID string, err error)

	// RegisterOriginalFile attaches one more file to an existing
	// specimen. The descriptor's hash is recomputed from the image
	// store; a disagreement fails with a hash-mismatch error.
	RegisterOriginalFile(
		ctx context.Context,
		specimenID string,
		desc FileDescriptor,
	) error

	// SpecimenID resolves a camera filename to a specimen id.
	SpecimenID(ctx context.Context, cameraFilename string) (string, error)
}

// Ledger is the content-addressed record of derived images.
type Ledger interface {
	// RegisterTransformation appends a derived image. The parent must
	// already exist (unknown-parent error otherwise); re-registering
	// an existing hash with identical attributes is a no-op, with
	// different attributes a hash-collision error.
	RegisterTransformation(ctx context.Context, in TransformationInput) error

	// Ancestry walks from an image hash back to the original file(s).
	// Each call runs a fresh query; the result is finite because
	// unknown parents are rejected at insert.
	Ancestry(ctx context.Context, sha256 string) ([]AncestryNode, error)
}

// Deduplicator decides whether extraction work needs to run and
// persists its results. The storage-level unique constraint on
// (image_sha256, params_hash) for non-failed rows is the only
// concurrency control; ShouldExtract is advisory.
type Deduplicator interface {
	// ShouldExtract reports whether (image, params) still needs work.
	// Returns the existing attempt id when work is already done or in
	// flight.
	ShouldExtract(
		ctx context.Context,
		imageSHA256 string,
		params ExtractionParams,
	) (bool, string, error)

	// RecordExtraction persists an attempt. Runners insert a pending
	// attempt before doing any work, so the row claims the
	// (image, params) slot; a concurrent writer losing the race on the
	// unique constraint receives a conflict error and must not run.
	RecordExtraction(ctx context.Context, att *Attempt) error

	// CompleteExtraction finalizes a previously recorded attempt:
	// status becomes completed or failed, with fields or an error
	// message and a completion time.
	CompleteExtraction(ctx context.Context, att *Attempt) error
}

// Extractor is one interchangeable OCR/vision engine. Implementations
// may be slow or network-bound; Extract must honor ctx cancellation.
type Extractor interface {
	Name() string
	Extract(
		ctx context.Context,
		image []byte,
		params ExtractionParams,
	) (*ExtractionResult, error)
}

// ImageStore retrieves image bytes by content hash.
type ImageStore interface {
	Exists(sha256 string) bool
	// Get returns the bytes for a hash, verifying them against it.
	Get(ctx context.Context, sha256 string) ([]byte, error)
	// Put stores bytes and returns their hash.
	Put(ctx context.Context, data []byte) (string, error)
}

// Aggregator merges completed attempts into one reviewable candidate
// set per specimen.
type Aggregator interface {
	// Aggregate recomputes the specimen's aggregation as a full
	// replacement. Deterministic: re-running with no new attempts
	// produces byte-identical stored JSON.
	Aggregate(ctx context.Context, specimenID string) error

	// AggregateAll recomputes every specimen with completed attempts.
	AggregateAll(ctx context.Context) (int, error)
}

// CheckReport summarizes one quality-checker pass.
type CheckReport struct {
	SpecimensChecked int
	FlagsRaised      int
	RulesSkipped     []string
}

// QualityChecker runs the advisory rule set. Findings become flags,
// never errors; a failing remote dependency skips its rule.
type QualityChecker interface {
	Check(ctx context.Context, similarities []SimilarityPair) (*CheckReport, error)
}

// ReviewEngine drives the review workflow: the status state machine,
// the two independent dimensions (priority, flagged), the queue and
// the audit trail.
type ReviewEngine interface {
	// Queue returns a fresh, ordered snapshot of matching specimens:
	// priority desc, then queue time asc.
	Queue(ctx context.Context, filter QueueFilter) ([]QueueItem, error)

	// Detail returns the full review view of one specimen.
	Detail(ctx context.Context, specimenID string) (*SpecimenDetail, error)

	// Update applies a reviewer action. Illegal transitions fail with
	// an invalid-transition error; transitions to APPROVED fail with
	// an unresolved-flags error while blocking flags remain. Every
	// call appends an audit entry.
	Update(ctx context.Context, upd ReviewUpdate) error

	// SetPriority changes priority without touching status or flagged.
	SetPriority(ctx context.Context, specimenID string, p Priority, reviewer string) error

	// SetFlagged toggles the flagged marker without touching status
	// or priority.
	SetFlagged(ctx context.Context, specimenID string, flagged bool, reviewer string) error

	// Reopen moves a terminal specimen back to IN_REVIEW. The only way
	// out of APPROVED or REJECTED.
	Reopen(ctx context.Context, specimenID, reviewer string) error

	// ResolveFlag marks a quality flag resolved.
	ResolveFlag(ctx context.Context, flagID, reviewer string) error
}

// FieldProvenance attributes one exported Darwin Core value to its
// origin: an extraction attempt or a manual reviewer decision.
type FieldProvenance struct {
	Term       dwc.Term `json:"term"`
	Value      string   `json:"value"`
	Source     string   `json:"source"`
	ApprovedBy string   `json:"approvedBy"`
}

// ManifestFile is one bundle file entry: checksums are a pure function
// of file contents.
type ManifestFile struct {
	Name      string `json:"name"`
	SHA256    string `json:"sha256"`
	SizeBytes int64  `json:"sizeBytes"`
}

// Manifest is the provenance-stamped metadata of an export bundle.
type Manifest struct {
	BundleID   string    `json:"bundleId"`
	CreatedAt  string    `json:"createdAt"`
	Version    string    `json:"version"`
	Revision   string    `json:"revision"`
	Dirty      bool      `json:"dirty"`
	Files      []ManifestFile `json:"files"`
	Records    int       `json:"records"`
	Provenance map[string][]FieldProvenance `json:"provenance"`
}

// Exporter builds export bundles of approved records.
type Exporter interface {
	// Export writes approved records and a manifest into dir and
	// returns the manifest.
	Export(ctx context.Context, dir string) (*Manifest, error)
}

// NameVerifier checks scientific names against a remote authority.
// Callers must treat any error as "verifier unavailable" and skip the
// dependent rule.
type NameVerifier interface {
	Verify(ctx context.Context, scientificName string) (*NameMatch, error)
}

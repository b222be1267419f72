// Package schema provides database schema models for herbdb.
// Every entity of the provenance pipeline is stored in PostgreSQL;
// the database is the sole authoritative state.
package schema

import (
	"database/sql"
	"time"
)

// DDLGenerator defines how Go models generate PostgreSQL DDL.
type DDLGenerator interface {
	// TableDDL returns the CREATE TABLE statement for this model.
	TableDDL() string

	// IndexDDL returns CREATE INDEX statements for this model.
	// Returns empty slice if no indexes needed.
	IndexDDL() []string

	// TableName returns the PostgreSQL table name for this model.
	TableName() string
}

// Specimen is a physical herbarium sheet. Identity is independent of
// any one photograph and immutable after registration.
type Specimen struct {
	// ID is UUID v5 generated from the camera filename using
	// DNS:"globalnames.org".
	ID string `db:"id" ddl:"UUID PRIMARY KEY" gorm:"column:id;primaryKey;type:uuid"`

	// CameraFilename is the filename stem shared by the specimen's
	// original photographs, e.g. "DSC_0001".
	CameraFilename string `db:"camera_filename" ddl:"VARCHAR(255) NOT NULL" gorm:"column:camera_filename;uniqueIndex;size:255;not null"`

	// ExpectedCatalogNumber is the catalog number inferred during
	// registration, before any extraction ran.
	ExpectedCatalogNumber string `db:"expected_catalog_number" ddl:"VARCHAR(255)" gorm:"column:expected_catalog_number;size:255"`

	// CatalogConfidence is the confidence of the inferred catalog
	// number, 0 when nothing was inferred.
	CatalogConfidence float64 `db:"catalog_confidence" ddl:"DOUBLE PRECISION NOT NULL DEFAULT 0" gorm:"column:catalog_confidence;not null;default:0"`

	// CreatedAt records when the specimen was registered.
	CreatedAt time.Time `db:"created_at" ddl:"TIMESTAMP WITHOUT TIME ZONE NOT NULL" gorm:"column:created_at;not null"`
}

// OriginalFile is a camera file owned by a specimen. Content-addressed
// and immutable.
type OriginalFile struct {
	// SHA256 of the file bytes; the file's identity.
	SHA256 string `db:"sha256" ddl:"VARCHAR(64) PRIMARY KEY" gorm:"column:sha256;primaryKey;size:64"`

	// SpecimenID is the owning specimen.
	SpecimenID string `db:"specimen_id" ddl:"UUID NOT NULL" gorm:"column:specimen_id;index;type:uuid;not null"`

	// Path is the original file location as captured.
	Path string `db:"path" ddl:"TEXT NOT NULL" gorm:"column:path;not null"`

	// Format is the image format, e.g. "jpeg", "nef".
	Format string `db:"format" ddl:"VARCHAR(16)" gorm:"column:format;size:16"`

	// Width and Height in pixels, 0 when unknown.
	Width  int `db:"width" ddl:"INT NOT NULL DEFAULT 0" gorm:"column:width;not null;default:0"`
	Height int `db:"height" ddl:"INT NOT NULL DEFAULT 0" gorm:"column:height;not null;default:0"`

	// SizeBytes is the file size.
	SizeBytes int64 `db:"size_bytes" ddl:"BIGINT NOT NULL" gorm:"column:size_bytes;not null"`

	// Role distinguishes e.g. "sheet", "label_closeup", "barcode".
	Role string `db:"role" ddl:"VARCHAR(32)" gorm:"column:role;size:32"`

	// CapturedAt is the camera timestamp when available.
	CapturedAt sql.NullTime `db:"captured_at" ddl:"TIMESTAMP WITHOUT TIME ZONE" gorm:"column:captured_at"`
}

// ImageTransformation is a derived image in the content-addressed
// derivation graph. DerivedFrom must already exist as an original file
// or another transformation; this keeps the graph acyclic without any
// in-memory traversal.
type ImageTransformation struct {
	// SHA256 of the derived image bytes.
	SHA256 string `db:"sha256" ddl:"VARCHAR(64) PRIMARY KEY" gorm:"column:sha256;primaryKey;size:64"`

	// DerivedFrom is the parent image hash.
	DerivedFrom string `db:"derived_from" ddl:"VARCHAR(64) NOT NULL" gorm:"column:derived_from;index;size:64;not null"`

	// SpecimenID is the owning specimen.
	SpecimenID string `db:"specimen_id" ddl:"UUID NOT NULL" gorm:"column:specimen_id;index;type:uuid;not null"`

	// Operation names the transformation, e.g. "resize_for_ocr".
	Operation string `db:"operation" ddl:"VARCHAR(64) NOT NULL" gorm:"column:operation;size:64;not null"`

	// Params is the canonical JSON of the operation parameters.
	Params []byte `db:"params" ddl:"JSONB" gorm:"column:params;type:jsonb"`

	// Tool and ToolVersion identify the software that produced the image.
	Tool        string `db:"tool" ddl:"VARCHAR(64)" gorm:"column:tool;size:64"`
	ToolVersion string `db:"tool_version" ddl:"VARCHAR(64)" gorm:"column:tool_version;size:64"`

	// Location is where the derived bytes are stored.
	Location string `db:"location" ddl:"TEXT" gorm:"column:location"`

	// CreatedAt records when the transformation was registered.
	CreatedAt time.Time `db:"created_at" ddl:"TIMESTAMP WITHOUT TIME ZONE NOT NULL" gorm:"column:created_at;not null"`
}

// Attempt status values.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// ExtractionAttempt is one extractor run against one image with one
// parameter set. At most one non-failed attempt may exist per
// (image_sha256, params_hash); the partial unique index enforcing it
// is the sole concurrency-control mechanism for extraction dedup.
type ExtractionAttempt struct {
	// ID is UUID v5 generated from image hash, params hash and run id.
	ID string `db:"id" ddl:"UUID PRIMARY KEY" gorm:"column:id;primaryKey;type:uuid"`

	// ImageSHA256 is the image the extractor ran against. Must resolve
	// to a registered original file or transformation.
	ImageSHA256 string `db:"image_sha256" ddl:"VARCHAR(64) NOT NULL" gorm:"column:image_sha256;index;size:64;not null"`

	// SpecimenID is the owning specimen.
	SpecimenID string `db:"specimen_id" ddl:"UUID NOT NULL" gorm:"column:specimen_id;index;type:uuid;not null"`

	// Engine is the extractor name, e.g. "tesseract", "gpt4o".
	Engine string `db:"engine" ddl:"VARCHAR(64) NOT NULL" gorm:"column:engine;size:64;not null"`

	// Params is the canonical JSON of the full extraction parameters.
	Params []byte `db:"params" ddl:"JSONB NOT NULL" gorm:"column:params;type:jsonb;not null"`

	// ParamsHash is the sha256 of the canonical params serialization.
	ParamsHash string `db:"params_hash" ddl:"VARCHAR(64) NOT NULL" gorm:"column:params_hash;size:64;not null"`

	// Status is pending, completed or failed.
	Status string `db:"status" ddl:"VARCHAR(16) NOT NULL" gorm:"column:status;size:16;not null"`

	// Fields holds the extracted term/candidate map as canonical JSON.
	Fields []byte `db:"fields" ddl:"JSONB" gorm:"column:fields;type:jsonb"`

	// ErrorMessage is set for failed attempts (including timeouts).
	ErrorMessage string `db:"error_message" ddl:"TEXT" gorm:"column:error_message"`

	// RunID groups attempts produced by one extract invocation.
	RunID string `db:"run_id" ddl:"UUID" gorm:"column:run_id;type:uuid"`

	// CreatedAt records when the attempt started.
	CreatedAt time.Time `db:"created_at" ddl:"TIMESTAMP WITHOUT TIME ZONE NOT NULL" gorm:"column:created_at;not null"`

	// CompletedAt records when the attempt finished (or failed).
	CompletedAt sql.NullTime `db:"completed_at" ddl:"TIMESTAMP WITHOUT TIME ZONE" gorm:"column:completed_at"`
}

// SpecimenAggregation is the merged candidate set for one specimen.
// Recomputed as a full replacement whenever a new completed attempt
// exists; BestCandidates is a pure function of Candidates.
type SpecimenAggregation struct {
	// SpecimenID is the aggregated specimen.
	SpecimenID string `db:"specimen_id" ddl:"UUID PRIMARY KEY" gorm:"column:specimen_id;primaryKey;type:uuid"`

	// Candidates is canonical JSON: term -> list of candidates.
	Candidates []byte `db:"candidates" ddl:"JSONB NOT NULL" gorm:"column:candidates;type:jsonb;not null"`

	// BestCandidates is canonical JSON: term -> winning candidate.
	BestCandidates []byte `db:"best_candidates" ddl:"JSONB NOT NULL" gorm:"column:best_candidates;type:jsonb;not null"`

	// AttemptCount is the number of completed attempts aggregated.
	AttemptCount int `db:"attempt_count" ddl:"INT NOT NULL DEFAULT 0" gorm:"column:attempt_count;not null;default:0"`

	// UpdatedAt records the last recomputation.
	UpdatedAt time.Time `db:"updated_at" ddl:"TIMESTAMP WITHOUT TIME ZONE NOT NULL" gorm:"column:updated_at;not null"`
}

// Flag severity values.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
	SeverityInfo    = "info"
)

// DataQualityFlag is an advisory finding from the quality checker.
// Append-only; only the resolved fields ever change.
type DataQualityFlag struct {
	// ID is a random UUID.
	ID string `db:"id" ddl:"UUID PRIMARY KEY" gorm:"column:id;primaryKey;type:uuid"`

	// SpecimenID is the flagged specimen.
	SpecimenID string `db:"specimen_id" ddl:"UUID NOT NULL" gorm:"column:specimen_id;index;type:uuid;not null"`

	// FlagType names the rule, e.g. "DUPLICATE_CATALOG_NUMBER".
	FlagType string `db:"flag_type" ddl:"VARCHAR(64) NOT NULL" gorm:"column:flag_type;size:64;not null"`

	// Severity is error, warning or info.
	Severity string `db:"severity" ddl:"VARCHAR(16) NOT NULL" gorm:"column:severity;size:16;not null"`

	// Message is the human-readable finding.
	Message string `db:"message" ddl:"TEXT NOT NULL" gorm:"column:message;not null"`

	// Fingerprint is UUID v5 of (specimen, type, message); the partial
	// unique index on it keeps rule re-runs from inserting duplicate
	// unresolved rows.
	Fingerprint string `db:"fingerprint" ddl:"UUID NOT NULL" gorm:"column:fingerprint;size:36;not null"`

	// RelatedSpecimenID references another specimen for cross-specimen
	// findings (duplicate catalog number, duplicate photography).
	RelatedSpecimenID sql.NullString `db:"related_specimen_id" ddl:"UUID" gorm:"column:related_specimen_id;type:uuid"`

	// Resolved is toggled by review actions.
	Resolved bool `db:"resolved" ddl:"BOOLEAN NOT NULL DEFAULT FALSE" gorm:"column:resolved;not null;default:false"`

	// ResolvedBy is the reviewer who resolved the flag.
	ResolvedBy string `db:"resolved_by" ddl:"VARCHAR(255)" gorm:"column:resolved_by;size:255"`

	// CreatedAt records when the flag was raised.
	CreatedAt time.Time `db:"created_at" ddl:"TIMESTAMP WITHOUT TIME ZONE NOT NULL" gorm:"column:created_at;not null"`

	// ResolvedAt records when the flag was resolved.
	ResolvedAt sql.NullTime `db:"resolved_at" ddl:"TIMESTAMP WITHOUT TIME ZONE" gorm:"column:resolved_at"`
}

// Review status values. Transitions follow the review state machine;
// status never mixes with priority or flagged.
const (
	ReviewPending  = "PENDING"
	ReviewInReview = "IN_REVIEW"
	ReviewApproved = "APPROVED"
	ReviewRejected = "REJECTED"
)

// ReviewRecord tracks review state for one specimen. Status, priority
// and flagged are three independent dimensions.
type ReviewRecord struct {
	// SpecimenID is the reviewed specimen.
	SpecimenID string `db:"specimen_id" ddl:"UUID PRIMARY KEY" gorm:"column:specimen_id;primaryKey;type:uuid"`

	// Status is PENDING, IN_REVIEW, APPROVED or REJECTED.
	Status string `db:"status" ddl:"VARCHAR(16) NOT NULL" gorm:"column:status;index;size:16;not null"`

	// Priority: 5=CRITICAL, 4=HIGH, 3=MEDIUM, 2=LOW, 1=MINIMAL.
	Priority int `db:"priority" ddl:"SMALLINT NOT NULL DEFAULT 3" gorm:"column:priority;not null;default:3"`

	// Flagged marks a specimen for attention; orthogonal to status.
	Flagged bool `db:"flagged" ddl:"BOOLEAN NOT NULL DEFAULT FALSE" gorm:"column:flagged;not null;default:false"`

	// ReviewedBy is the last reviewer who touched the record.
	ReviewedBy string `db:"reviewed_by" ddl:"VARCHAR(255)" gorm:"column:reviewed_by;size:255"`

	// ReviewedAt is the time of the last review action.
	ReviewedAt sql.NullTime `db:"reviewed_at" ddl:"TIMESTAMP WITHOUT TIME ZONE" gorm:"column:reviewed_at"`

	// QueuedAt is when the specimen entered the review queue; queue
	// ordering is priority desc, queued_at asc.
	QueuedAt time.Time `db:"queued_at" ddl:"TIMESTAMP WITHOUT TIME ZONE NOT NULL" gorm:"column:queued_at;not null"`

	// FinalFields is canonical JSON of reviewer-confirmed Darwin Core
	// values: best candidates overlaid with decisions.
	FinalFields []byte `db:"final_fields" ddl:"JSONB" gorm:"column:final_fields;type:jsonb"`

	// ExportedTo references the export bundle the record went into.
	ExportedTo sql.NullString `db:"exported_to" ddl:"UUID" gorm:"column:exported_to;type:uuid"`
}

// ReviewAudit is an immutable audit-log entry. Rows are only ever
// inserted.
type ReviewAudit struct {
	// ID is a random UUID.
	ID string `db:"id" ddl:"UUID PRIMARY KEY" gorm:"column:id;primaryKey;type:uuid"`

	// SpecimenID is the specimen the action applied to.
	SpecimenID string `db:"specimen_id" ddl:"UUID NOT NULL" gorm:"column:specimen_id;index;type:uuid;not null"`

	// Reviewer is who performed the action.
	Reviewer string `db:"reviewer" ddl:"VARCHAR(255) NOT NULL" gorm:"column:reviewer;size:255;not null"`

	// StatusBefore and StatusAfter capture the transition; equal when
	// only decisions or flags changed.
	StatusBefore string `db:"status_before" ddl:"VARCHAR(16) NOT NULL" gorm:"column:status_before;size:16;not null"`
	StatusAfter  string `db:"status_after" ddl:"VARCHAR(16) NOT NULL" gorm:"column:status_after;size:16;not null"`

	// Decisions is canonical JSON of the field decisions applied.
	Decisions []byte `db:"decisions" ddl:"JSONB" gorm:"column:decisions;type:jsonb"`

	// CreatedAt is the action timestamp.
	CreatedAt time.Time `db:"created_at" ddl:"TIMESTAMP WITHOUT TIME ZONE NOT NULL" gorm:"column:created_at;not null"`
}

// ExportBundle records one produced export bundle.
type ExportBundle struct {
	// ID is a random UUID, referenced by ReviewRecord.ExportedTo.
	ID string `db:"id" ddl:"UUID PRIMARY KEY" gorm:"column:id;primaryKey;type:uuid"`

	// Path is the bundle directory.
	Path string `db:"path" ddl:"TEXT NOT NULL" gorm:"column:path;not null"`

	// SpecimenCount is the number of exported records.
	SpecimenCount int `db:"specimen_count" ddl:"INT NOT NULL" gorm:"column:specimen_count;not null"`

	// Revision is the code revision embedded in the manifest.
	Revision string `db:"revision" ddl:"VARCHAR(64)" gorm:"column:revision;size:64"`

	// Dirty is the best-effort dirty-tree flag.
	Dirty bool `db:"dirty" ddl:"BOOLEAN NOT NULL DEFAULT FALSE" gorm:"column:dirty;not null;default:false"`

	// CreatedAt is the export timestamp.
	CreatedAt time.Time `db:"created_at" ddl:"TIMESTAMP WITHOUT TIME ZONE NOT NULL" gorm:"column:created_at;not null"`
}

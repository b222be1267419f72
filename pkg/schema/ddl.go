package schema

import (
	"fmt"
	"reflect"
	"strings"
)

// generateDDL creates a CREATE TABLE statement from struct tags.
func generateDDL(model interface{}, tableName string) string {
	v := reflect.ValueOf(model)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	t := v.Type()

	var columns []string

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		dbTag := field.Tag.Get("db")
		ddlTag := field.Tag.Get("ddl")

		if dbTag != "" && ddlTag != "" {
			columns = append(columns, fmt.Sprintf("    %s %s", dbTag, ddlTag))
		}
	}

	ddl := fmt.Sprintf("CREATE TABLE %s (\n%s\n);",
		tableName,
		strings.Join(columns, ",\n"))

	return ddl
}

// Specimen DDL methods
func (s Specimen) TableDDL() string {
	return generateDDL(s, "specimens")
}

func (s Specimen) IndexDDL() []string {
	return []string{
		"CREATE UNIQUE INDEX idx_specimens_camera_filename ON specimens(camera_filename);",
	}
}

func (s Specimen) TableName() string {
	return "specimens"
}

// OriginalFile DDL methods
func (of OriginalFile) TableDDL() string {
	return generateDDL(of, "original_files")
}

func (of OriginalFile) IndexDDL() []string {
	return []string{
		"CREATE INDEX idx_original_files_specimen ON original_files(specimen_id);",
	}
}

func (of OriginalFile) TableName() string {
	return "original_files"
}

// ImageTransformation DDL methods
func (it ImageTransformation) TableDDL() string {
	return generateDDL(it, "image_transformations")
}

func (it ImageTransformation) IndexDDL() []string {
	return []string{
		"CREATE INDEX idx_image_transformations_parent ON image_transformations(derived_from);",
		"CREATE INDEX idx_image_transformations_specimen ON image_transformations(specimen_id);",
	}
}

func (it ImageTransformation) TableName() string {
	return "image_transformations"
}

// ExtractionAttempt DDL methods
func (ea ExtractionAttempt) TableDDL() string {
	return generateDDL(ea, "extraction_attempts")
}

// IndexDDL includes the partial unique index that is the sole
// concurrency-control mechanism for extraction dedup: exactly one
// non-failed attempt per (image_sha256, params_hash).
func (ea ExtractionAttempt) IndexDDL() []string {
	return []string{
		"CREATE UNIQUE INDEX idx_extraction_attempts_dedup ON extraction_attempts(image_sha256, params_hash) WHERE status <> 'failed';",
		"CREATE INDEX idx_extraction_attempts_specimen ON extraction_attempts(specimen_id);",
		"CREATE INDEX idx_extraction_attempts_image ON extraction_attempts(image_sha256);",
	}
}

func (ea ExtractionAttempt) TableName() string {
	return "extraction_attempts"
}

// SpecimenAggregation DDL methods
func (sa SpecimenAggregation) TableDDL() string {
	return generateDDL(sa, "specimen_aggregations")
}

func (sa SpecimenAggregation) IndexDDL() []string {
	return []string{}
}

func (sa SpecimenAggregation) TableName() string {
	return "specimen_aggregations"
}

// DataQualityFlag DDL methods
func (f DataQualityFlag) TableDDL() string {
	return generateDDL(f, "data_quality_flags")
}

// IndexDDL includes the partial unique index that makes rule re-runs
// idempotent for unresolved, unchanged findings.
func (f DataQualityFlag) IndexDDL() []string {
	return []string{
		"CREATE UNIQUE INDEX idx_quality_flags_fingerprint ON data_quality_flags(fingerprint) WHERE NOT resolved;",
		"CREATE INDEX idx_quality_flags_specimen ON data_quality_flags(specimen_id);",
	}
}

func (f DataQualityFlag) TableName() string {
	return "data_quality_flags"
}

// ReviewRecord DDL methods
func (rr ReviewRecord) TableDDL() string {
	return generateDDL(rr, "review_records")
}

func (rr ReviewRecord) IndexDDL() []string {
	return []string{
		"CREATE INDEX idx_review_records_queue ON review_records(status, priority DESC, queued_at ASC);",
	}
}

func (rr ReviewRecord) TableName() string {
	return "review_records"
}

// ReviewAudit DDL methods
func (ra ReviewAudit) TableDDL() string {
	return generateDDL(ra, "review_audits")
}

func (ra ReviewAudit) IndexDDL() []string {
	return []string{
		"CREATE INDEX idx_review_audits_specimen ON review_audits(specimen_id);",
	}
}

func (ra ReviewAudit) TableName() string {
	return "review_audits"
}

// ExportBundle DDL methods
func (eb ExportBundle) TableDDL() string {
	return generateDDL(eb, "export_bundles")
}

func (eb ExportBundle) IndexDDL() []string {
	return []string{}
}

func (eb ExportBundle) TableName() string {
	return "export_bundles"
}

package schema

import (
	"gorm.io/gorm"
)

// AllModels returns all schema models for GORM AutoMigrate.
func AllModels() []interface{} {
	return []interface{}{
		&Specimen{},
		&OriginalFile{},
		&ImageTransformation{},
		&ExtractionAttempt{},
		&SpecimenAggregation{},
		&DataQualityFlag{},
		&ReviewRecord{},
		&ReviewAudit{},
		&ExportBundle{},
	}
}

// Migrate runs GORM AutoMigrate to create or update schema.
// Partial unique indexes (extraction dedup, flag fingerprints) cannot
// be expressed by AutoMigrate and are applied separately by the
// schema manager.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(AllModels()...)
}

package errcode

import (
	"github.com/gnames/gn"
)

const (
	UnknownError gn.ErrorCode = iota

	// File System errors
	CreateDirError
	CopyFileError
	ReadFileError
	WriteFileError

	// Logging errors
	CreateLogFileError

	// Database errors
	DBConnectionError
	DBTableCheckError
	DBNotConnectedError
	DBTableExistsCheckError
	DBQueryTablesError
	DBScanTableError
	DBDropTableError
	DBTxError

	// Schema errors
	SchemaGORMConnectionError
	SchemaCreateError
	SchemaMigrateError
	SchemaConstraintError

	// Registry errors
	RegistryDuplicateSpecimenError
	RegistryHashMismatchError
	RegistrySpecimenNotFoundError
	RegistryQueryError

	// Ledger errors
	LedgerUnknownParentError
	LedgerHashCollisionError
	LedgerQueryError

	// Image store errors
	ImageNotFoundError
	ImageHashMismatchError
	ImageStoreError

	// Extraction errors
	ExtractConflictError
	ExtractUnknownImageError
	ExtractQueryError
	ExtractEngineError

	// Aggregation errors
	AggregateQueryError
	AggregateNoAttemptsError

	// Quality errors
	QualityRulesConfigError
	QualityQueryError
	QualitySimilarityInputError

	// Review errors
	ReviewInvalidTransitionError
	ReviewUnresolvedFlagsError
	ReviewNotFoundError
	ReviewQueryError

	// Export errors
	ExportNothingApprovedError
	ExportBundleError
	ExportManifestError
	ExportQueryError

	// API errors
	APIServerError
)

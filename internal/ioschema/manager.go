// Package ioschema implements schema management for the herbdb
// database. This is an impure I/O package that wraps GORM AutoMigrate
// and applies the constraints AutoMigrate cannot express.
package ioschema

import (
	"context"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/openherbaria/herbdb/pkg/db"
	"github.com/openherbaria/herbdb/pkg/schema"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Manager creates and migrates the database schema. Schema management
// is idempotent - safe to run multiple times.
type Manager interface {
	// Create creates the initial database schema.
	Create(ctx context.Context) error

	// Migrate updates the database schema to the latest version.
	Migrate(ctx context.Context) error
}

// manager implements Manager using GORM AutoMigrate.
type manager struct {
	operator db.Operator
}

// NewManager creates a new schema Manager.
func NewManager(op db.Operator) Manager {
	return &manager{operator: op}
}

// Create creates the initial database schema using GORM AutoMigrate,
// then applies the partial unique indexes that carry the system's
// correctness guarantees.
func (m *manager) Create(ctx context.Context) error {
	if err := m.autoMigrate(); err != nil {
		return err
	}
	return m.applyConstraints(ctx)
}

// Migrate updates the database schema to the latest version using
// GORM AutoMigrate and re-applies constraints.
func (m *manager) Migrate(ctx context.Context) error {
	if err := m.autoMigrate(); err != nil {
		return err
	}
	return m.applyConstraints(ctx)
}

func (m *manager) autoMigrate() error {
	pool := m.operator.Pool()
	if pool == nil {
		return NotConnectedError()
	}

	sqlDB := stdlib.OpenDBFromPool(pool)

	gormDB, err := gorm.Open(
		postgres.New(postgres.Config{Conn: sqlDB}),
		&gorm.Config{},
	)
	if err != nil {
		return GORMConnectionError(err)
	}

	if err := schema.Migrate(gormDB); err != nil {
		return CreateSchemaError(err)
	}

	return nil
}

// applyConstraints creates the partial unique indexes:
//
//   - extraction dedup: one non-failed attempt per
//     (image_sha256, params_hash); the sole concurrency-control
//     mechanism for extraction (losers get SQLSTATE 23505)
//   - flag idempotence: one unresolved flag per fingerprint
//
// Both use IF NOT EXISTS so re-running is a no-op.
func (m *manager) applyConstraints(ctx context.Context) error {
	pool := m.operator.Pool()
	if pool == nil {
		return NotConnectedError()
	}

	constraints := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_extraction_attempts_dedup
			ON extraction_attempts(image_sha256, params_hash)
			WHERE status <> 'failed'`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_quality_flags_fingerprint
			ON data_quality_flags(fingerprint)
			WHERE NOT resolved`,
		`CREATE INDEX IF NOT EXISTS idx_review_records_queue
			ON review_records(status, priority DESC, queued_at ASC)`,
	}

	for _, q := range constraints {
		if _, err := pool.Exec(ctx, q); err != nil {
			return ConstraintError(q, err)
		}
	}

	return nil
}

package ioschema

import (
	"fmt"

	"github.com/gnames/gn"
	"github.com/openherbaria/herbdb/pkg/errcode"
)

// NotConnectedError creates an error for schema operations attempted
// without a database connection.
func NotConnectedError() error {
	msg := "Schema operation attempted without database connection"

	return &gn.Error{
		Code: errcode.DBNotConnectedError,
		Msg:  msg,
		Vars: nil,
		Err:  fmt.Errorf("not connected to database"),
	}
}

// GORMConnectionError creates an error for GORM connection failures.
func GORMConnectionError(err error) error {
	msg := "Cannot open GORM connection for schema management"

	return &gn.Error{
		Code: errcode.SchemaGORMConnectionError,
		Msg:  msg,
		Vars: nil,
		Err:  fmt.Errorf("gorm connection failed: %w", err),
	}
}

// CreateSchemaError creates an error for AutoMigrate failures.
func CreateSchemaError(err error) error {
	msg := `Cannot create database schema

<em>Possible causes:</em>
  - Insufficient database privileges
  - Conflicting table definitions from an older version

<em>How to fix:</em>
  1. Verify the database user can create tables
  2. Run 'herbdb create --force' to rebuild from scratch`

	return &gn.Error{
		Code: errcode.SchemaCreateError,
		Msg:  msg,
		Vars: nil,
		Err:  fmt.Errorf("schema creation failed: %w", err),
	}
}

// ConstraintError creates an error for partial index creation
// failures.
func ConstraintError(query string, err error) error {
	msg := "Cannot apply schema constraint"

	return &gn.Error{
		Code: errcode.SchemaConstraintError,
		Msg:  msg,
		Vars: nil,
		Err:  fmt.Errorf("constraint failed (%s): %w", query, err),
	}
}

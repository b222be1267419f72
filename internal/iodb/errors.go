package iodb

import (
	"fmt"

	"github.com/gnames/gn"
	"github.com/openherbaria/herbdb/pkg/errcode"
)

// ConnectionError creates an error for database connection failures.
func ConnectionError(
	host string,
	port int,
	database, user string,
	err error,
) error {
	msg := `Cannot connect to PostgreSQL

<em>Host:</em> %s:%d
<em>Database:</em> %s
<em>User:</em> %s

<em>How to fix:</em>
  1. Check that PostgreSQL is running
  2. Verify connection settings in config.yaml or HERBDB_DATABASE_* env vars
  3. Check network/firewall access to the database host`

	vars := []any{host, port, database, user}

	return &gn.Error{
		Code: errcode.DBConnectionError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("cannot connect to database: %w", err),
	}
}

// NotConnectedError creates an error for operations attempted
// without a database connection.
func NotConnectedError() error {
	msg := "Database operation attempted without connection"

	return &gn.Error{
		Code: errcode.DBNotConnectedError,
		Msg:  msg,
		Vars: nil,
		Err:  fmt.Errorf("not connected to database"),
	}
}

// TableExistsCheckError creates an error for table existence
// check failures.
func TableExistsCheckError(tableName string, err error) error {
	msg := `Cannot check whether table <em>%s</em> exists`
	vars := []any{tableName}

	return &gn.Error{
		Code: errcode.DBTableExistsCheckError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("table exists check failed: %w", err),
	}
}

// TableCheckError creates an error for table listing failures.
func TableCheckError(err error) error {
	msg := "Cannot check database tables"

	return &gn.Error{
		Code: errcode.DBTableCheckError,
		Msg:  msg,
		Vars: nil,
		Err:  fmt.Errorf("table check failed: %w", err),
	}
}

// QueryTablesError creates an error for table name query failures.
func QueryTablesError(err error) error {
	msg := "Cannot query table names"

	return &gn.Error{
		Code: errcode.DBQueryTablesError,
		Msg:  msg,
		Vars: nil,
		Err:  fmt.Errorf("query tables failed: %w", err),
	}
}

// ScanTableError creates an error for table name scan failures.
func ScanTableError(err error) error {
	msg := "Cannot read table names"

	return &gn.Error{
		Code: errcode.DBScanTableError,
		Msg:  msg,
		Vars: nil,
		Err:  fmt.Errorf("scan table name failed: %w", err),
	}
}

// DropTableError creates an error for DROP TABLE failures.
func DropTableError(table string, err error) error {
	msg := `Cannot drop table <em>%s</em>`
	vars := []any{table}

	return &gn.Error{
		Code: errcode.DBDropTableError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("drop table %s failed: %w", table, err),
	}
}

// TxError creates an error for transaction begin/commit failures.
func TxError(stage string, err error) error {
	msg := `Database transaction failed at <em>%s</em>`
	vars := []any{stage}

	return &gn.Error{
		Code: errcode.DBTxError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("transaction %s failed: %w", stage, err),
	}
}

package ioledger

import (
	"fmt"
	"runtime"

	"github.com/gnames/gn"
	"github.com/openherbaria/herbdb/pkg/errcode"
)

func UnknownParentError(sha string) error {
	msg := "Parent image <em>%s</em> is not registered"
	vars := []any{sha}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.LedgerUnknownParentError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("from %s: unknown parent %s", fn, sha),
	}
}

func HashCollisionError(sha string) error {
	msg := "Image <em>%s</em> is already registered with different attributes"
	vars := []any{sha}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.LedgerHashCollisionError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("from %s: hash collision on %s", fn, sha),
	}
}

func NotFoundError(sha string) error {
	msg := "Image <em>%s</em> is not registered"
	vars := []any{sha}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.ImageNotFoundError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("from %s: image %s not registered", fn, sha),
	}
}

func QueryError(err error) error {
	msg := "Database query failed"
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.LedgerQueryError,
		Msg:  msg,
		Err:  fmt.Errorf("from %s: ledger query: %w", fn, err),
	}
}

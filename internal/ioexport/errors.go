package ioexport

import (
	"fmt"
	"runtime"

	"github.com/gnames/gn"
	"github.com/openherbaria/herbdb/pkg/errcode"
)

func NothingApprovedError() error {
	msg := "No approved specimens to export"
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.ExportNothingApprovedError,
		Msg:  msg,
		Err:  fmt.Errorf("from %s: nothing approved", fn),
	}
}

func BundleError(path string, err error) error {
	msg := "Cannot write bundle file <em>%s</em>"
	vars := []any{path}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.ExportBundleError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("from %s: bundle %s: %w", fn, path, err),
	}
}

func ManifestError(err error) error {
	msg := "Cannot write bundle manifest"
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.ExportManifestError,
		Msg:  msg,
		Err:  fmt.Errorf("from %s: manifest: %w", fn, err),
	}
}

func QueryError(err error) error {
	msg := "Database query failed"
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.ExportQueryError,
		Msg:  msg,
		Err:  fmt.Errorf("from %s: export query: %w", fn, err),
	}
}

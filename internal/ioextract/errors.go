package ioextract

import (
	"fmt"
	"runtime"

	"github.com/gnames/gn"
	"github.com/openherbaria/herbdb/pkg/errcode"
)

// ConflictError marks the losing side of a concurrent extraction race:
// another process inserted a non-failed attempt for the same
// (image, params) first. Detected via IsConflict and handled locally,
// never surfaced to users.
func ConflictError(imageSHA, paramsHash string) error {
	msg := "Extraction for image <em>%s</em> was recorded by a concurrent run"
	vars := []any{imageSHA}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.ExtractConflictError,
		Msg:  msg,
		Vars: vars,
		Err: fmt.Errorf("from %s: extraction conflict on (%s, %s)",
			fn, imageSHA, paramsHash),
	}
}

func UnknownImageError(sha string) error {
	msg := "Image <em>%s</em> is not registered; extract refuses unprovenanced input"
	vars := []any{sha}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.ExtractUnknownImageError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("from %s: unknown image %s", fn, sha),
	}
}

func QueryError(err error) error {
	msg := "Database query failed"
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.ExtractQueryError,
		Msg:  msg,
		Err:  fmt.Errorf("from %s: extract query: %w", fn, err),
	}
}

func EngineError(engine string, err error) error {
	msg := "Extraction engine <em>%s</em> failed"
	vars := []any{engine}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.ExtractEngineError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("from %s: engine %s: %w", fn, engine, err),
	}
}

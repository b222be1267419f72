package ioreview

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/gnames/gn"
	"github.com/openherbaria/herbdb/pkg/errcode"
)

func InvalidTransitionError(specimenID, from, to string) error {
	msg := "Cannot move specimen <em>%s</em> from %s to %s"
	vars := []any{specimenID, from, to}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.ReviewInvalidTransitionError,
		Msg:  msg,
		Vars: vars,
		Err: fmt.Errorf("from %s: invalid transition %s -> %s for %s",
			fn, from, to, specimenID),
	}
}

func InvalidPriorityError(p int) error {
	msg := "Priority <em>%d</em> is not one of 1..5"
	vars := []any{p}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.ReviewInvalidTransitionError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("from %s: invalid priority %d", fn, p),
	}
}

func UnresolvedFlagsError(specimenID string, flags []string) error {
	msg := "Cannot approve specimen <em>%s</em>, unresolved flags: %s"
	vars := []any{specimenID, strings.Join(flags, "; ")}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.ReviewUnresolvedFlagsError,
		Msg:  msg,
		Vars: vars,
		Err: fmt.Errorf(
			"from %s: %d unresolved blocking flags on %s: %s",
			fn, len(flags), specimenID, strings.Join(flags, "; ")),
	}
}

func NotFoundError(key string) error {
	msg := "No review record found for <em>%s</em>"
	vars := []any{key}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.ReviewNotFoundError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("from %s: review record %s not found", fn, key),
	}
}

func QueryError(err error) error {
	msg := "Database query failed"
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.ReviewQueryError,
		Msg:  msg,
		Err:  fmt.Errorf("from %s: review query: %w", fn, err),
	}
}

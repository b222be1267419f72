package ioaggregate

import (
	"fmt"
	"runtime"

	"github.com/gnames/gn"
	"github.com/openherbaria/herbdb/pkg/errcode"
)

func NoAttemptsError(specimenID string) error {
	msg := "Specimen <em>%s</em> has no completed extraction attempts"
	vars := []any{specimenID}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.AggregateNoAttemptsError,
		Msg:  msg,
		Vars: vars,
		Err: fmt.Errorf("from %s: no completed attempts for %s",
			fn, specimenID),
	}
}

func QueryError(err error) error {
	msg := "Database query failed"
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.AggregateQueryError,
		Msg:  msg,
		Err:  fmt.Errorf("from %s: aggregate query: %w", fn, err),
	}
}

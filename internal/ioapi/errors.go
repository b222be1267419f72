package ioapi

import (
	"fmt"
	"runtime"

	"github.com/gnames/gn"
	"github.com/openherbaria/herbdb/pkg/errcode"
)

func ServerError(err error) error {
	msg := "Review API server failed"
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.APIServerError,
		Msg:  msg,
		Err:  fmt.Errorf("from %s: api server: %w", fn, err),
	}
}

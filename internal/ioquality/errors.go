package ioquality

import (
	"fmt"
	"runtime"

	"github.com/gnames/gn"
	"github.com/openherbaria/herbdb/pkg/errcode"
)

func RulesConfigError(err error) error {
	msg := "Quality rules configuration is invalid"
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.QualityRulesConfigError,
		Msg:  msg,
		Err:  fmt.Errorf("from %s: rules config: %w", fn, err),
	}
}

func QueryError(err error) error {
	msg := "Database query failed"
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.QualityQueryError,
		Msg:  msg,
		Err:  fmt.Errorf("from %s: quality query: %w", fn, err),
	}
}

func SimilarityInputError(path string, err error) error {
	msg := "Cannot read similarity pairs from <em>%s</em>"
	vars := []any{path}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.QualitySimilarityInputError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("from %s: similarity input %s: %w", fn, path, err),
	}
}

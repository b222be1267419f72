package ioregistry

import (
	"fmt"
	"runtime"

	"github.com/gnames/gn"
	"github.com/openherbaria/herbdb/pkg/errcode"
)

func DuplicateSpecimenError(cameraFilename string) error {
	msg := "Specimen <em>%s</em> is already registered with different attributes"
	vars := []any{cameraFilename}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.RegistryDuplicateSpecimenError,
		Msg:  msg,
		Vars: vars,
		Err: fmt.Errorf("from %s: duplicate specimen %s",
			fn, cameraFilename),
	}
}

func DuplicateFileError(sha, owner string) error {
	msg := "File <em>%s</em> is already registered to another specimen"
	vars := []any{sha}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.RegistryDuplicateSpecimenError,
		Msg:  msg,
		Vars: vars,
		Err: fmt.Errorf("from %s: file %s already owned by %q",
			fn, sha, owner),
	}
}

func HashMismatchError(path, want, got string) error {
	msg := "Hash of <em>%s</em> does not match its descriptor"
	vars := []any{path}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.RegistryHashMismatchError,
		Msg:  msg,
		Vars: vars,
		Err: fmt.Errorf("from %s: %s: declared %s, computed %s",
			fn, path, want, got),
	}
}

func FileReadError(path string, err error) error {
	msg := "Cannot read <em>%s</em> to verify its hash"
	vars := []any{path}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.ReadFileError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("from %s: hashing %s: %w", fn, path, err),
	}
}

func SpecimenNotFoundError(key string) error {
	msg := "No specimen found for <em>%s</em>"
	vars := []any{key}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.RegistrySpecimenNotFoundError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("from %s: specimen %s not found", fn, key),
	}
}

func QueryError(err error) error {
	msg := "Database query failed"
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.RegistryQueryError,
		Msg:  msg,
		Err:  fmt.Errorf("from %s: registry query: %w", fn, err),
	}
}

package ioimage

import (
	"fmt"
	"runtime"

	"github.com/gnames/gn"
	"github.com/openherbaria/herbdb/pkg/errcode"
)

func CreateDirError(dir string, err error) error {
	msg := "Cannot create %s"
	vars := []any{dir}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.CreateDirError,
		Msg:  msg,
		Vars: vars,
		Err: fmt.Errorf("from %s: cannot create directory: %w",
			fn, err),
	}
}

func NotFoundError(sha string) error {
	msg := "No stored image with hash <em>%s</em>"
	vars := []any{sha}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.ImageNotFoundError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("from %s: image %s not in store", fn, sha),
	}
}

// HashMismatchError means the bytes at an address no longer hash to
// that address, i.e. on-disk corruption.
func HashMismatchError(want, got string) error {
	msg := "Stored image is corrupt: expected hash <em>%s</em>, got <em>%s</em>"
	vars := []any{want, got}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.ImageHashMismatchError,
		Msg:  msg,
		Vars: vars,
		Err: fmt.Errorf("from %s: image hash mismatch: want %s, got %s",
			fn, want, got),
	}
}

func StoreError(sha string, err error) error {
	msg := "Cannot access image store for <em>%s</em>"
	vars := []any{sha}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.ImageStoreError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("from %s: image store: %w", fn, err),
	}
}

package main

import (
	"errors"

	dcerrors "github.com/odvcencio/dashcore/pkg/errors"
)

const (
	exitFailure  = 1
	exitUsage    = 2
	exitNotFound = 3
)

type exitCoder interface {
	ExitCode() int
}

type exitError struct {
	code int
	err  error
}

func (e exitError) Error() string {
	if e.err == nil {
		return ""
	}
	return e.err.Error()
}

func (e exitError) Unwrap() error {
	return e.err
}

func (e exitError) ExitCode() int {
	if e.code == 0 {
		return exitFailure
	}
	return e.code
}

func withExitCode(err error, code int) error {
	if err == nil {
		return nil
	}
	return exitError{code: code, err: err}
}

func usageError(msg string) error {
	return withExitCode(errors.New(msg), exitUsage)
}

// exitCodeForError prefers an explicit exit code, then maps error codes:
// configuration and input problems are usage errors, missing documents 3.
func exitCodeForError(err error) int {
	if err == nil {
		return 0
	}
	var coded exitCoder
	if errors.As(err, &coded) {
		return coded.ExitCode()
	}
	switch dcerrors.GetCode(err) {
	case dcerrors.ErrCodeNotFound:
		return exitNotFound
	case dcerrors.ErrCodeConfigLoad, dcerrors.ErrCodeConfigParse, dcerrors.ErrCodeConfigInvalid,
		dcerrors.ErrCodeInvalidInput:
		return exitUsage
	}
	return exitFailure
}

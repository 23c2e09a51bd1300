package main

import (
	"errors"
	"fmt"
	"os"

	"lunchbook/internal/guestlist"
	"lunchbook/internal/handler"
	"lunchbook/internal/models"
	"lunchbook/internal/storage"
)

const (
	ExitCodeSuccess  = 0
	ExitCodeGeneric  = 1
	ExitCodeUsage    = 2
	ExitCodeNotFound = 3
	ExitCodeConflict = 4
	ExitCodeStorage  = 5
)

type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e == nil || e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func usageErrorf(format string, args ...any) error {
	return &ExitError{
		Code: ExitCodeUsage,
		Err:  fmt.Errorf(format, args...),
	}
}

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	switch {
	case errors.Is(err, models.ErrUnknownEventKind),
		errors.Is(err, models.ErrMalformedDate),
		errors.Is(err, guestlist.ErrMalformedInput):
		return ExitCodeUsage
	case errors.Is(err, handler.ErrLunchNotFound),
		errors.Is(err, storage.ErrSchemaNotFound),
		errors.Is(err, storage.ErrNotFound),
		errors.Is(err, os.ErrNotExist):
		return ExitCodeNotFound
	case errors.Is(err, handler.ErrAmbiguousLunch),
		errors.Is(err, handler.ErrDuplicateLunch),
		errors.Is(err, storage.ErrUniqueViolation),
		errors.Is(err, storage.ErrSchemaExists):
		return ExitCodeConflict
	case errors.Is(err, storage.ErrConnection):
		return ExitCodeStorage
	}
	return ExitCodeGeneric
}

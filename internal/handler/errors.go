package handler

import "errors"

var (
	ErrLunchNotFound  = errors.New("no lunch found")
	ErrAmbiguousLunch = errors.New("more than one lunch found")
	ErrDuplicateLunch = errors.New("lunch already exists")
	ErrCancelled      = errors.New("action cancelled")
)

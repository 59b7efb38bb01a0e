package testutil

import "errors"

// Common test errors
var (
	ErrDiskFailure = errors.New("disk failure")
	ErrTestFailure = errors.New("test failure")
)

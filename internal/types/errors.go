package types

import "errors"

var (
	// ErrInvalidArgument is returned when construction input is malformed
	// (layout/type-count mismatch, unknown cell type, non-positive grid).
	ErrInvalidArgument = errors.New("viewportal: invalid argument")

	// ErrInitialization is returned when the render goroutine fails to set up
	// its window or viewports.
	ErrInitialization = errors.New("viewportal: initialization failed")

	// ErrClosed is returned by operations on a component that was closed.
	ErrClosed = errors.New("viewportal: closed")
)

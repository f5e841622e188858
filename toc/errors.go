package toc

import (
	"errors"
	"fmt"
)

var (
	// ErrBusy is returned when a pass is already running on the generator
	ErrBusy = errors.New("table of contents generation already in progress")

	// ErrAnchorExists is returned by hosts when a bookmark name is taken
	ErrAnchorExists = errors.New("anchor already exists")

	// ErrNotFound is returned by hosts for unknown paragraphs or anchors
	ErrNotFound = errors.New("not found")

	// ErrInvalidOptions is returned by Generate before touching the
	// document when the options cannot produce a block that is found again
	ErrInvalidOptions = errors.New("invalid options")
)

// PassError is a terminal failure that aborted a generation pass
type PassError struct {
	Stage Stage
	Err   error
}

func (e *PassError) Error() string {
	return fmt.Sprintf("toc %s: %v", e.Stage, e.Err)
}

func (e *PassError) Unwrap() error {
	return e.Err
}

// IsTerminal reports whether err aborted a pass
func IsTerminal(err error) bool {
	var pe *PassError
	return errors.As(err, &pe)
}

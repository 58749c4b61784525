package relay

import "errors"

// Sentinel errors for relay construction and lifecycle.
var (
	// ErrMissingTransform indicates no frame transform was supplied.
	ErrMissingTransform = errors.New("frame transform is required")

	// ErrMissingConn indicates no packet connection was supplied.
	ErrMissingConn = errors.New("packet connection is required")

	// ErrMissingOutput indicates no output device was supplied.
	ErrMissingOutput = errors.New("output device is required")

	// ErrMissingSource indicates no frame source was supplied.
	ErrMissingSource = errors.New("frame source is required")

	// ErrAlreadyRan indicates a second Run on the same relay. A relay
	// tears its collaborators down on exit and cannot be restarted.
	ErrAlreadyRan = errors.New("relay has already run")
)

package codec

import "errors"

// Sentinel errors for codec operations. These enable reliable error
// classification using errors.Is().
var (
	// ErrFrameTooLarge indicates a capture frame larger than the
	// transform's fixed frame size.
	ErrFrameTooLarge = errors.New("capture frame exceeds frame size")

	// ErrUnsupportedChannels indicates a channel layout the transform
	// cannot encode.
	ErrUnsupportedChannels = errors.New("unsupported channel count")

	// ErrUnsupportedRate indicates a sample rate the codec cannot use.
	ErrUnsupportedRate = errors.New("unsupported sample rate")

	// ErrTransformClosed indicates use of a transform after Close.
	ErrTransformClosed = errors.New("transform is closed")
)

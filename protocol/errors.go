package protocol

import "errors"

var (
	// ErrConnClosed indicates the peer closed the connection cleanly between frames.
	ErrConnClosed = errors.New("connection closed")

	// ErrTruncatedFrame indicates the stream ended in the middle of a frame.
	ErrTruncatedFrame = errors.New("truncated frame")

	// ErrFrameTooLarge indicates a payload does not fit the 4-byte length prefix.
	ErrFrameTooLarge = errors.New("frame too large")

	// ErrMalformedMessage indicates a frame arrived intact but its payload could not be decoded.
	ErrMalformedMessage = errors.New("malformed message")
)

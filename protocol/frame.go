package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

const (
	// HeaderSize is the length of the frame length prefix in bytes.
	HeaderSize = 4

	// MaxFrameSize is the largest payload a single frame can carry.
	MaxFrameSize = math.MaxUint32
)

// WriteFrame writes payload prefixed with its big-endian length.
// Header and payload go out in a single Write call.
func WriteFrame(w io.Writer, payload []byte) error {
	if uint64(len(payload)) > MaxFrameSize {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(payload))
	}

	buf := make([]byte, HeaderSize+len(payload))
	binary.BigEndian.PutUint32(buf, uint32(len(payload)))
	copy(buf[HeaderSize:], payload)

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

// ReadFrame reads one frame and returns its payload.
// Returns ErrConnClosed if the stream ends before the first header byte and
// ErrTruncatedFrame if it ends anywhere after that.
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [HeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		switch {
		case errors.Is(err, io.ErrUnexpectedEOF):
			return nil, fmt.Errorf("%w: reading header: %w", ErrTruncatedFrame, err)
		case errors.Is(err, io.EOF):
			return nil, fmt.Errorf("%w: %w", ErrConnClosed, err)
		default:
			return nil, fmt.Errorf("failed to read frame header: %w", err)
		}
	}

	size := binary.BigEndian.Uint32(header[:])
	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: expected %d payload bytes: %w", ErrTruncatedFrame, size, io.ErrUnexpectedEOF)
		}
		return nil, fmt.Errorf("failed to read frame payload: %w", err)
	}

	return payload, nil
}

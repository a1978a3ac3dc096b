// Package protocol implements the wire format: length-prefixed frames holding
// one JSON request or response each.
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// MaxFrameSize is the largest payload a frame can carry.
const MaxFrameSize = 1<<16 - 1

// ErrFrameTooLarge is returned when a payload does not fit in a frame.
var ErrFrameTooLarge = errors.New("frame payload exceeds 65535 bytes")

// ErrInvalidUTF8 is returned when a frame payload is not valid UTF-8.
var ErrInvalidUTF8 = errors.New("frame payload is not valid UTF-8")

// ReadFrame reads one frame from r and returns its payload.
//
// A stream that ends before the payload is complete returns
// io.ErrUnexpectedEOF; one that ends before the header returns io.EOF.
func ReadFrame(r io.Reader) ([]byte, error) {
	var hdr [2]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint16(hdr[:])
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("short frame: %w", err)
	}
	if !utf8.Valid(payload) {
		return nil, ErrInvalidUTF8
	}
	return payload, nil
}

// WriteFrame writes payload to w as one frame.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxFrameSize {
		return ErrFrameTooLarge
	}
	buf := make([]byte, 2, 2+len(payload))
	binary.BigEndian.PutUint16(buf, uint16(len(payload))) //nolint:gosec // G115: bounded above
	buf = append(buf, payload...)
	_, err := w.Write(buf)
	return err
}

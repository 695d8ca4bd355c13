// Package wire encodes and decodes the payload forms that travel between a
// client and the JS9 helper: base64 image envelopes, GetImageData replies,
// and whole FITS files. Encoding is deterministic and byte order is always
// explicit; a decode either yields a complete result or fails with a
// CodecError, never a partial buffer.
package wire

import (
	"encoding/binary"
	"fmt"
)

// Kind classifies codec failures.
type Kind int

const (
	// Malformed marks input that cannot be decoded at all.
	Malformed Kind = iota
	// Mismatch marks input whose pieces decode but contradict each other,
	// like a pixel count that disagrees with the declared dimensions.
	Mismatch
)

func (k Kind) String() string {
	if k == Mismatch {
		return "mismatch"
	}
	return "malformed"
}

// CodecError reports a payload that could not be encoded or decoded.
type CodecError struct {
	Kind   Kind
	Reason string
	cause  error
}

func (e *CodecError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s payload: %s: %s", e.Kind, e.Reason, e.cause)
	}
	return fmt.Sprintf("%s payload: %s", e.Kind, e.Reason)
}

func (e *CodecError) Unwrap() error { return e.cause }

func malformedf(cause error, format string, args ...any) *CodecError {
	return &CodecError{Kind: Malformed, Reason: fmt.Sprintf(format, args...), cause: cause}
}

func mismatchf(format string, args ...any) *CodecError {
	return &CodecError{Kind: Mismatch, Reason: fmt.Sprintf(format, args...)}
}

// Byte order names used on the wire. JS9 typed arrays are little-endian, so
// an absent endian field means little.
const (
	LittleEndian = "little"
	BigEndian    = "big"
)

func orderName(order binary.ByteOrder) string {
	if order == binary.BigEndian {
		return BigEndian
	}
	return LittleEndian
}

func orderFromName(name string) (binary.ByteOrder, error) {
	switch name {
	case "", LittleEndian:
		return binary.LittleEndian, nil
	case BigEndian:
		return binary.BigEndian, nil
	}
	return nil, malformedf(nil, "unknown byte order %q", name)
}

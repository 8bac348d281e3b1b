package ilda

import (
	"errors"
	"fmt"
)

// Sentinel errors for file decoding. DecodeError wraps these so callers can
// classify failures with errors.Is().
var (
	// ErrBadMagic indicates a record header without the "ILDA" magic.
	ErrBadMagic = errors.New("missing ILDA magic")

	// ErrShortRecord indicates a record cut off before its declared length.
	ErrShortRecord = errors.New("record shorter than declared")

	// ErrUnsupportedFormat indicates a valid but unimplemented format code,
	// such as format 3 point data.
	ErrUnsupportedFormat = errors.New("unsupported ILDA format")
)

// DecodeError reports a fault while decoding a record. Frames decoded before
// the faulty record are still returned to the caller.
type DecodeError struct {
	// Record is the zero-based index of the faulty record in the file.
	Record int
	// Offset is the byte offset where decoding of the record began.
	Offset int
	// Format is the record's declared format code, when the header was readable.
	Format Format
	// Err classifies the fault.
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("ilda: record %d at offset %d (format %d): %v",
		e.Record, e.Offset, e.Format, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

package iwp

import (
	"errors"
	"fmt"
)

// Sentinel errors for codec operations. Structured error types below wrap
// these so callers can classify failures with errors.Is().
var (
	// ErrTruncated indicates the buffer ended in the middle of a command.
	ErrTruncated = errors.New("buffer truncated mid-command")

	// ErrUnknownCommandType indicates an unrecognized command type tag.
	ErrUnknownCommandType = errors.New("unknown command type")

	// ErrMalformedCommand indicates a command field with an out-of-range value.
	ErrMalformedCommand = errors.New("malformed command")
)

// TruncatedError reports a buffer that ends mid-command. Commands decoded
// before the fault are still returned to the caller.
type TruncatedError struct {
	// Offset is the tag position of the incomplete command.
	Offset int
	// Type is the tag of the incomplete command.
	Type CommandType
	// Need is the full wire size the command requires.
	Need int
	// Have is the number of bytes remaining in the buffer.
	Have int
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("buffer truncated at offset %d: command type 0x%02x needs %d bytes, have %d",
		e.Offset, byte(e.Type), e.Need, e.Have)
}

func (e *TruncatedError) Unwrap() error { return ErrTruncated }

// UnknownCommandTypeError reports an unrecognized type tag.
type UnknownCommandTypeError struct {
	Offset int
	Byte   byte
}

func (e *UnknownCommandTypeError) Error() string {
	return fmt.Sprintf("unknown command type 0x%02x at offset %d", e.Byte, e.Offset)
}

func (e *UnknownCommandTypeError) Unwrap() error { return ErrUnknownCommandType }

// MalformedCommandError reports a command field holding an out-of-range
// value, identifying the field and the offending value.
type MalformedCommandError struct {
	Field  string
	Value  int
	Offset int
}

func (e *MalformedCommandError) Error() string {
	return fmt.Sprintf("malformed command at offset %d: field %q value %d out of range",
		e.Offset, e.Field, e.Value)
}

func (e *MalformedCommandError) Unwrap() error { return ErrMalformedCommand }

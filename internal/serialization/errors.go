package serialization

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrChecksumMismatch   = errors.New("checksum mismatch: data may be corrupted")
	ErrInvalidMagic       = errors.New("invalid magic bytes")
	ErrUnsupportedVersion = errors.New("unsupported format version")
	ErrBodyTooLarge       = errors.New("body exceeds maximum size")
	ErrUnexpectedKind     = errors.New("unexpected record kind")
	ErrMalformedRecord    = errors.New("malformed record")
)

// FieldError reports a missing or ill-typed field of a record.
type FieldError struct {
	Field   int32  // protowire field number
	Details string // what was wrong
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	return fmt.Sprintf("field %d: %s", e.Field, e.Details)
}

// Unwrap makes every FieldError match ErrMalformedRecord.
func (e *FieldError) Unwrap() error { return ErrMalformedRecord }

// Package errs defines the sentinel errors shared across geomort packages.
//
// Errors returned by geomort wrap one of these sentinels with additional
// context via fmt.Errorf("%w: ..."), so callers can classify failures with
// errors.Is without parsing messages.
package errs

import "errors"

var (
	// ErrInvalidArgument indicates malformed caller input, such as an
	// inverted bounding box (xmin > xmax), an inverted time interval, or an
	// attribute value whose Go type does not match its declared kind.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrFormatVersionMismatch indicates that a record's leading version
	// byte is not a version this library understands. The record is not
	// parsed any further.
	ErrFormatVersionMismatch = errors.New("format version mismatch")

	// ErrUnsupportedAttributeType indicates an attribute kind with no
	// registered writer or reader (List, Map, and unknown kinds). Raised at
	// dispatch-table build time so encoding fails fast rather than writing
	// a partial record.
	ErrUnsupportedAttributeType = errors.New("unsupported attribute type")

	// ErrReusableRecordMismatch indicates a caller-supplied reuse record
	// bound to a different schema. It is recoverable: decoders fall back to
	// a fresh allocation and emit a diagnostic instead of failing the call.
	ErrReusableRecordMismatch = errors.New("reusable record schema mismatch")

	// ErrRecordTooShort indicates a record buffer truncated below the
	// minimum decodable size.
	ErrRecordTooShort = errors.New("record too short")

	// ErrOffsetOutOfRange indicates an offset-table entry pointing outside
	// the record buffer.
	ErrOffsetOutOfRange = errors.New("offset out of range")

	// ErrAttributeNotFound indicates a lookup for an attribute name absent
	// from the schema.
	ErrAttributeNotFound = errors.New("attribute not found")

	// ErrCursorInvalidated indicates access to a lazy-decode cursor that
	// was closed or never loaded a record.
	ErrCursorInvalidated = errors.New("cursor invalidated")
)

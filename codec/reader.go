package codec

import (
	"fmt"

	"github.com/geomort/geomort/errs"
	"github.com/geomort/geomort/schema"
)

// byteReader is a bounds-checked cursor over a record buffer. All take and
// skip operations return views into the underlying buffer; nothing is
// copied until a reader materializes a value.
type byteReader struct {
	data []byte
	pos  int
}

// take returns the next n bytes as a view and advances the cursor.
func (r *byteReader) take(n int) ([]byte, error) {
	if r.pos+n > len(r.data) {
		return nil, fmt.Errorf("%w: need %d bytes at position %d, have %d",
			errs.ErrRecordTooShort, n, r.pos, len(r.data)-r.pos)
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n

	return b, nil
}

// skip advances the cursor n bytes without returning a view.
func (r *byteReader) skip(n int) error {
	if r.pos+n > len(r.data) {
		return fmt.Errorf("%w: need %d bytes at position %d, have %d",
			errs.ErrRecordTooShort, n, r.pos, len(r.data)-r.pos)
	}
	r.pos += n

	return nil
}

// seek repositions the cursor to an absolute offset.
func (r *byteReader) seek(offset int) error {
	if offset < 0 || offset > len(r.data) {
		return fmt.Errorf("%w: offset %d outside record of %d bytes",
			errs.ErrOffsetOutOfRange, offset, len(r.data))
	}
	r.pos = offset

	return nil
}

// sentinel consumes one attribute's null sentinel. It reports whether a
// payload follows and fails on truncation or corrupted sentinel values.
func (r *byteReader) sentinel(attr schema.Attribute) (present bool, err error) {
	b, err := r.take(1)
	if err != nil {
		return false, fmt.Errorf("attribute %q: %w", attr.Name, err)
	}

	switch b[0] {
	case sentinelNull:
		return false, nil
	case sentinelPresent:
		return true, nil
	default:
		return false, fmt.Errorf("%w: attribute %q has corrupt null sentinel 0x%02x",
			errs.ErrInvalidArgument, attr.Name, b[0])
	}
}

package codec

import (
	"fmt"

	"github.com/geomort/geomort/errs"
)

// Cursor is a lazy view over one encoded record. It resolves attribute
// values on demand by seeking the offset table, decoding only what is
// asked for; attributes never touched are never parsed.
//
// A cursor is owned by its decoder and recycled on every Load: values and
// views obtained from it are valid only until the next Load on the same
// decoder. After Close the cursor fails with ErrCursorInvalidated.
type Cursor struct {
	dec     *Decoder
	data    []byte
	id      string
	offsets []uint32
	loaded  bool
}

// Load points the decoder's cursor at an encoded record without decoding
// any attribute payloads. Only the header and offset table are parsed.
//
// The returned cursor is the same object across calls; loading a new
// record invalidates values obtained from the previous one.
func (d *Decoder) Load(data []byte) (*Cursor, error) {
	offsets, err := d.Offsets(data, d.cursor.offsets)
	if err != nil {
		return nil, err
	}

	hdr, err := parseHeader(data, d.engine, d.disp.n)
	if err != nil {
		return nil, err
	}

	d.cursor = Cursor{
		dec:     d,
		data:    data,
		id:      hdr.id,
		offsets: offsets,
		loaded:  true,
	}

	return &d.cursor, nil
}

// ID returns the loaded record's identifier.
func (c *Cursor) ID() string {
	return c.id
}

// Len returns the attribute count of the loaded record's schema.
func (c *Cursor) Len() int {
	if c.dec == nil {
		return 0
	}

	return c.dec.disp.n
}

// At decodes and returns the value of attribute i, seeking directly to its
// payload via the offset table. Null attributes yield nil.
func (c *Cursor) At(i int) (any, error) {
	if !c.loaded {
		return nil, fmt.Errorf("%w: cursor has no loaded record", errs.ErrCursorInvalidated)
	}
	if i < 0 || i >= c.dec.disp.n {
		return nil, fmt.Errorf("%w: attribute index %d of %d",
			errs.ErrInvalidArgument, i, c.dec.disp.n)
	}

	r := &byteReader{data: c.data}
	if err := r.seek(int(c.offsets[i])); err != nil {
		return nil, err
	}

	return c.dec.disp.readers[i](r, c.dec.engine)
}

// Get decodes and returns the value of the named attribute.
func (c *Cursor) Get(name string) (any, error) {
	if c.dec == nil {
		return nil, fmt.Errorf("%w: cursor has no loaded record", errs.ErrCursorInvalidated)
	}
	i, ok := c.dec.schema.Index(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", errs.ErrAttributeNotFound, name)
	}

	return c.At(i)
}

// Close detaches the cursor from its record. Subsequent At and Get calls
// fail with ErrCursorInvalidated.
func (c *Cursor) Close() {
	c.data = nil
	c.id = ""
	c.loaded = false
}

package codec

import (
	"fmt"

	"github.com/geomort/geomort/errs"
	"github.com/geomort/geomort/schema"
)

// Record is a materialized feature: an id, an ordered value array matching
// a schema, and an optional metadata map.
//
// Values use nil for null attributes. A Record produced by Decode owns its
// values outright; a record produced by a lazy cursor is not a Record at
// all (see Cursor), precisely because cursor views do not outlive the next
// load.
type Record struct {
	ID       string
	Values   []any
	Metadata map[string]string

	schema *schema.Schema
}

// NewRecord creates an empty record bound to a schema, with the value array
// pre-sized to the schema's attribute count.
func NewRecord(s *schema.Schema) *Record {
	return &Record{
		Values: make([]any, s.Len()),
		schema: s,
	}
}

// Schema returns the schema this record is bound to.
func (r *Record) Schema() *schema.Schema {
	return r.schema
}

// Get returns the value of the named attribute.
func (r *Record) Get(name string) (any, error) {
	i, ok := r.schema.Index(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", errs.ErrAttributeNotFound, name)
	}

	return r.Values[i], nil
}

// Set assigns the value of the named attribute. Type validation happens at
// encode time, not here.
func (r *Record) Set(name string, v any) error {
	i, ok := r.schema.Index(name)
	if !ok {
		return fmt.Errorf("%w: %q", errs.ErrAttributeNotFound, name)
	}
	r.Values[i] = v

	return nil
}

// reset clears the record for reuse against the same schema.
func (r *Record) reset() {
	r.ID = ""
	for i := range r.Values {
		r.Values[i] = nil
	}
	r.Metadata = nil
}

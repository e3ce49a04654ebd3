// Package schema defines attribute schemas for feature records.
//
// A schema is an ordered, name-unique list of attribute descriptors. It is
// immutable once created and identified by a stable xxHash64 fingerprint,
// which the codec uses as the cache key for per-schema dispatch tables.
// Codec instances share schemas; they never own or mutate them.
package schema

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/geomort/geomort/errs"
	"github.com/geomort/geomort/format"
	"github.com/geomort/geomort/internal/hash"
)

// Attribute describes a single typed field of a record.
type Attribute struct {
	Name     string
	Kind     format.Kind
	Nullable bool

	// SRID is the spatial reference identifier for Geometry attributes;
	// zero elsewhere.
	SRID int
}

// Schema is an immutable ordered attribute list with a stable fingerprint.
type Schema struct {
	name   string
	attrs  []Attribute
	byName map[string]int
	fp     uint64
}

// New creates a schema from a type name and attribute descriptors.
//
// Attribute names must be unique and non-empty. Kinds without a registered
// writer/reader (List, Map) are accepted here so that schemas describing
// existing stores remain representable; encoding records against them fails
// fast with ErrUnsupportedAttributeType.
func New(name string, attrs []Attribute) (*Schema, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty schema name", errs.ErrInvalidArgument)
	}

	byName := make(map[string]int, len(attrs))
	for i, a := range attrs {
		if a.Name == "" {
			return nil, fmt.Errorf("%w: attribute %d has an empty name", errs.ErrInvalidArgument, i)
		}
		if _, dup := byName[a.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate attribute name %q", errs.ErrInvalidArgument, a.Name)
		}
		byName[a.Name] = i
	}

	s := &Schema{
		name:   name,
		attrs:  append([]Attribute(nil), attrs...),
		byName: byName,
	}
	s.fp = hash.ID(s.canonical())

	return s, nil
}

// Name returns the schema's type name.
func (s *Schema) Name() string {
	return s.name
}

// Len returns the number of attributes.
func (s *Schema) Len() int {
	return len(s.attrs)
}

// Attribute returns the descriptor at index i.
func (s *Schema) Attribute(i int) Attribute {
	return s.attrs[i]
}

// Attributes returns a copy of the descriptor list.
func (s *Schema) Attributes() []Attribute {
	return append([]Attribute(nil), s.attrs...)
}

// Index returns the position of the named attribute.
func (s *Schema) Index(name string) (int, bool) {
	i, ok := s.byName[name]
	return i, ok
}

// Fingerprint returns the schema's stable 64-bit identity. Two schemas with
// identical names and descriptor lists share a fingerprint across
// processes.
func (s *Schema) Fingerprint() uint64 {
	return s.fp
}

// Project builds a sub-schema containing the named attributes, in this
// schema's declaration order. Returns ErrAttributeNotFound for unknown
// names.
func (s *Schema) Project(names []string) (*Schema, error) {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		if _, ok := s.byName[n]; !ok {
			return nil, fmt.Errorf("%w: %q not in schema %q", errs.ErrAttributeNotFound, n, s.name)
		}
		want[n] = true
	}

	projected := make([]Attribute, 0, len(want))
	for _, a := range s.attrs {
		if want[a.Name] {
			projected = append(projected, a)
		}
	}

	return New(s.name, projected)
}

// canonical renders the descriptor list into the string hashed for the
// fingerprint. The encoding is versioned implicitly by the record format
// version; changing it invalidates persisted dispatch assumptions.
func (s *Schema) canonical() string {
	var b strings.Builder
	b.WriteString(s.name)
	for _, a := range s.attrs {
		b.WriteByte(';')
		b.WriteString(a.Name)
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(int(a.Kind)))
		if a.Nullable {
			b.WriteString(":n")
		}
		if a.SRID != 0 {
			b.WriteString(":srid=")
			b.WriteString(strconv.Itoa(a.SRID))
		}
	}

	return b.String()
}

// String returns a compact human-readable rendering, e.g.
// "observation{geom:Geometry,dtg:Date,name:String}".
func (s *Schema) String() string {
	var b strings.Builder
	b.WriteString(s.name)
	b.WriteByte('{')
	for i, a := range s.attrs {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(a.Name)
		b.WriteByte(':')
		b.WriteString(a.Kind.String())
	}
	b.WriteByte('}')

	return b.String()
}

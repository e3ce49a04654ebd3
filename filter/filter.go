// Package filter models query predicates as a boolean expression tree and
// provides the pure decomposition functions the query planner is built on.
//
// The tree is opaque except for the recognized operator kinds: boolean
// combinators (And, Or, Not), spatial operators (BBox, Intersects), the
// temporal During operator, and residual comparisons (Equals, Like).
// Decomposition only lifts clauses out of a top-level conjunction; anything
// under an Or or Not is conservatively residual, which keeps extraction
// sound (the index over-selects, never under-selects).
package filter

import (
	"fmt"
	"strings"
	"time"

	geom "github.com/twpayne/go-geom"
)

// Filter is a node in the predicate tree.
type Filter interface {
	fmt.Stringer
	isFilter()
}

// And is the conjunction of its children.
type And struct {
	Children []Filter
}

// Or is the disjunction of its children.
type Or struct {
	Children []Filter
}

// Not negates its child.
type Not struct {
	Child Filter
}

// BBox matches records whose geometry attribute intersects an axis-aligned
// box in WGS84 degrees. XMin greater than XMax denotes a box crossing the
// antimeridian.
type BBox struct {
	Attribute string
	XMin      float64
	YMin      float64
	XMax      float64
	YMax      float64
}

// Intersects matches records whose geometry attribute intersects the given
// geometry. Only the geometry's envelope participates in index planning;
// the exact test runs in the server-side filter.
type Intersects struct {
	Attribute string
	Geometry  geom.T
}

// During matches records whose date attribute falls in [Start, End).
type During struct {
	Attribute string
	Start     time.Time
	End       time.Time
}

// Equals matches records whose attribute equals Value.
type Equals struct {
	Attribute string
	Value     any
}

// Like matches string attributes against a SQL-style pattern with % and _
// wildcards.
type Like struct {
	Attribute string
	Pattern   string
}

func (*And) isFilter()        {}
func (*Or) isFilter()         {}
func (*Not) isFilter()        {}
func (*BBox) isFilter()       {}
func (*Intersects) isFilter() {}
func (*During) isFilter()     {}
func (*Equals) isFilter()     {}
func (*Like) isFilter()       {}

func (f *And) String() string {
	return combinatorString("AND", f.Children)
}

func (f *Or) String() string {
	return combinatorString("OR", f.Children)
}

func (f *Not) String() string {
	return "NOT (" + f.Child.String() + ")"
}

func (f *BBox) String() string {
	return fmt.Sprintf("BBOX(%s, %g, %g, %g, %g)", f.Attribute, f.XMin, f.YMin, f.XMax, f.YMax)
}

func (f *Intersects) String() string {
	return fmt.Sprintf("INTERSECTS(%s, <geometry>)", f.Attribute)
}

func (f *During) String() string {
	return fmt.Sprintf("%s DURING %s/%s", f.Attribute,
		f.Start.UTC().Format(time.RFC3339), f.End.UTC().Format(time.RFC3339))
}

func (f *Equals) String() string {
	if s, ok := f.Value.(string); ok {
		return fmt.Sprintf("%s = '%s'", f.Attribute, s)
	}

	return fmt.Sprintf("%s = %v", f.Attribute, f.Value)
}

func (f *Like) String() string {
	return fmt.Sprintf("%s LIKE '%s'", f.Attribute, f.Pattern)
}

func combinatorString(op string, children []Filter) string {
	parts := make([]string, len(children))
	for i, c := range children {
		parts[i] = "(" + c.String() + ")"
	}

	return strings.Join(parts, " "+op+" ")
}

// NewAnd builds a conjunction, flattening nested And nodes. A single child
// is returned unwrapped; nil means no constraint.
func NewAnd(children ...Filter) Filter {
	flat := make([]Filter, 0, len(children))
	for _, c := range children {
		if c == nil {
			continue
		}
		if and, ok := c.(*And); ok {
			flat = append(flat, and.Children...)
			continue
		}
		flat = append(flat, c)
	}

	switch len(flat) {
	case 0:
		return nil
	case 1:
		return flat[0]
	default:
		return &And{Children: flat}
	}
}

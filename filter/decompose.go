package filter

import (
	"fmt"
	"math"

	"github.com/geomort/geomort/epoch"
	"github.com/geomort/geomort/errs"
)

// conjuncts returns the top-level conjunction members of f. Any node that
// is not an And is its own single conjunct.
func conjuncts(f Filter) []Filter {
	if f == nil {
		return nil
	}
	if and, ok := f.(*And); ok {
		out := make([]Filter, 0, len(and.Children))
		for _, c := range and.Children {
			out = append(out, conjuncts(c)...)
		}

		return out
	}

	return []Filter{f}
}

// PartitionGeometry splits a predicate into its spatial clauses and the
// remaining residual predicate. Only spatial operators appearing as
// top-level conjuncts are extracted; spatial operators nested under Or or
// Not stay in the residual, where they are still evaluated exactly.
func PartitionGeometry(f Filter) (spatial []Filter, residual Filter) {
	var rest []Filter
	for _, c := range conjuncts(f) {
		switch c.(type) {
		case *BBox, *Intersects:
			spatial = append(spatial, c)
		default:
			rest = append(rest, c)
		}
	}

	return spatial, NewAnd(rest...)
}

// PartitionTime splits a predicate into its temporal clauses and the
// remaining residual predicate, with the same top-level-conjunct rule as
// PartitionGeometry.
func PartitionTime(f Filter) (temporal []*During, residual Filter) {
	var rest []Filter
	for _, c := range conjuncts(f) {
		if d, ok := c.(*During); ok {
			temporal = append(temporal, d)
			continue
		}
		rest = append(rest, c)
	}

	return temporal, NewAnd(rest...)
}

// Extent is an axis-aligned spatial envelope in WGS84 degrees, inclusive on
// all sides. Unlike BBox it is always normalized: bounds clamped to the
// world and XMin <= XMax.
type Extent struct {
	XMin, YMin, XMax, YMax float64
}

// World returns the extent covering the entire WGS84 domain.
func World() Extent {
	return Extent{XMin: -180, YMin: -90, XMax: 180, YMax: 90}
}

// IsWorld reports whether the extent covers the entire WGS84 domain. A
// world-covering query box has zero selectivity, so planners drop spatial
// pruning for it entirely.
func (e Extent) IsWorld() bool {
	return e.XMin <= -180 && e.YMin <= -90 && e.XMax >= 180 && e.YMax >= 90
}

// Envelopes normalizes spatial clauses into covering extents.
//
// Boxes crossing the antimeridian are split into two extents; all bounds
// are clamped to the world. Intersects clauses contribute their geometry's
// envelope. Returns ErrInvalidArgument for inverted latitude bounds or an
// empty geometry.
func Envelopes(spatial []Filter) ([]Extent, error) {
	var out []Extent
	for _, f := range spatial {
		switch v := f.(type) {
		case *BBox:
			if v.YMin > v.YMax {
				return nil, fmt.Errorf("%w: inverted latitude bounds [%g, %g]",
					errs.ErrInvalidArgument, v.YMin, v.YMax)
			}
			ymin, ymax := clampLat(v.YMin), clampLat(v.YMax)
			if v.XMin > v.XMax {
				// Antimeridian crossing: rewrite as two boxes.
				out = append(out,
					Extent{XMin: clampLon(v.XMin), YMin: ymin, XMax: 180, YMax: ymax},
					Extent{XMin: -180, YMin: ymin, XMax: clampLon(v.XMax), YMax: ymax},
				)

				continue
			}
			out = append(out, Extent{
				XMin: clampLon(v.XMin), YMin: ymin,
				XMax: clampLon(v.XMax), YMax: ymax,
			})
		case *Intersects:
			b := v.Geometry.Bounds()
			if b.IsEmpty() {
				return nil, fmt.Errorf("%w: empty geometry in INTERSECTS(%s)",
					errs.ErrInvalidArgument, v.Attribute)
			}
			out = append(out, Extent{
				XMin: clampLon(b.Min(0)), YMin: clampLat(b.Min(1)),
				XMax: clampLon(b.Max(0)), YMax: clampLat(b.Max(1)),
			})
		default:
			return nil, fmt.Errorf("%w: %T is not a spatial clause", errs.ErrInvalidArgument, f)
		}
	}

	return out, nil
}

// Union returns the covering envelope of the given extents. Returns the
// world extent for an empty input.
func Union(extents []Extent) Extent {
	if len(extents) == 0 {
		return World()
	}

	u := extents[0]
	for _, e := range extents[1:] {
		u.XMin = math.Min(u.XMin, e.XMin)
		u.YMin = math.Min(u.YMin, e.YMin)
		u.XMax = math.Max(u.XMax, e.XMax)
		u.YMax = math.Max(u.YMax, e.YMax)
	}

	return u
}

// ResolveInterval intersects all temporal clauses into one net interval.
// With no temporal clause the explicit unbounded sentinel is returned; a
// contradictory pair of clauses yields an empty interval.
func ResolveInterval(temporal []*During) (epoch.Interval, error) {
	iv := epoch.Unbounded()
	for _, d := range temporal {
		next, err := epoch.NewInterval(d.Start, d.End)
		if err != nil {
			return epoch.Interval{}, err
		}
		iv = iv.Intersect(next)
	}

	return iv, nil
}

func clampLon(x float64) float64 {
	return math.Min(180, math.Max(-180, x))
}

func clampLat(y float64) float64 {
	return math.Min(90, math.Max(-90, y))
}

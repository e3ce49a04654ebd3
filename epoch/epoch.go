// Package epoch partitions absolute time intervals into fixed-width week
// buckets.
//
// Each week forms an independent key-space namespace: the curve index bounds
// its time dimension to one week, and the week index becomes the leading
// component of every scan key. Partitioning a query interval therefore
// yields one fragment per touched week, with the first and last fragments
// carrying tightened second bounds and interior fragments covering whole
// weeks.
//
// The origin is fixed at 2000-01-01T00:00:00Z. Week indices are signed;
// instants before the origin map to negative weeks.
package epoch

import (
	"fmt"
	"math"
	"time"

	"github.com/geomort/geomort/errs"
)

const (
	// SecondsPerWeek is the width of one epoch in seconds.
	SecondsPerWeek int64 = 7 * 24 * 3600

	// originSeconds is the Unix timestamp of 2000-01-01T00:00:00Z.
	originSeconds int64 = 946684800
)

// Origin returns the fixed origin instant of the week numbering.
func Origin() time.Time {
	return time.Unix(originSeconds, 0).UTC()
}

// Interval is a half-open time interval [Start, End) in Unix seconds.
//
// The unbounded sentinel is the full int64 range; use Unbounded and
// IsUnbounded rather than constructing it by hand.
type Interval struct {
	Start int64
	End   int64
}

// NewInterval builds an interval from two instants. Sub-second components
// are truncated: Start rounds down, End rounds up, so the half-open
// interval never loses coverage. Returns ErrInvalidArgument if end precedes
// start.
func NewInterval(start, end time.Time) (Interval, error) {
	if end.Before(start) {
		return Interval{}, fmt.Errorf("%w: interval end %s precedes start %s",
			errs.ErrInvalidArgument, end.Format(time.RFC3339), start.Format(time.RFC3339))
	}

	s := start.Unix()
	e := end.Unix()
	if end.Nanosecond() > 0 {
		e++
	}

	return Interval{Start: s, End: e}, nil
}

// Unbounded returns the explicit sentinel for an absent temporal predicate.
func Unbounded() Interval {
	return Interval{Start: math.MinInt64, End: math.MaxInt64}
}

// IsUnbounded reports whether the interval is the unbounded sentinel.
func (iv Interval) IsUnbounded() bool {
	return iv.Start == math.MinInt64 && iv.End == math.MaxInt64
}

// IsEmpty reports whether the interval contains no instants.
func (iv Interval) IsEmpty() bool {
	return iv.End <= iv.Start
}

// Intersect returns the overlap of two intervals. The result may be empty.
func (iv Interval) Intersect(other Interval) Interval {
	out := iv
	if other.Start > out.Start {
		out.Start = other.Start
	}
	if other.End < out.End {
		out.End = other.End
	}

	return out
}

// Fragment is one week bucket of a partitioned interval.
//
// Lo and Hi are second offsets into the week, covering [Lo, Hi). Contained
// is true only for interior fragments spanning the entire week; such
// fragments need no temporal boundary filter beyond spatial pruning.
type Fragment struct {
	Week      int32
	Lo        int64
	Hi        int64
	Contained bool
}

// WeekOf returns the week index of an instant.
func WeekOf(t time.Time) int32 {
	return int32(floorDiv(t.Unix()-originSeconds, SecondsPerWeek))
}

// Partition splits a bounded interval into week fragments in increasing
// week order.
//
// A single-week interval yields one fragment with both bounds tightened and
// Contained=false: exact bounds are required at both ends even when the
// interval happens to align with the week. A K-week interval yields K
// fragments: the first and last are boundary-partial (tightened on the open
// side, full-week bound on the closed side), the K-2 interior fragments
// cover [0, SecondsPerWeek) with Contained=true.
//
// Returns ErrInvalidArgument for unbounded or inverted intervals; an empty
// interval yields no fragments.
func Partition(iv Interval) ([]Fragment, error) {
	if iv.IsUnbounded() {
		return nil, fmt.Errorf("%w: cannot partition the unbounded interval", errs.ErrInvalidArgument)
	}
	if iv.End < iv.Start {
		return nil, fmt.Errorf("%w: interval end %d precedes start %d",
			errs.ErrInvalidArgument, iv.End, iv.Start)
	}
	if iv.IsEmpty() {
		return nil, nil
	}

	relStart := iv.Start - originSeconds
	relEnd := iv.End - originSeconds

	firstWeek := floorDiv(relStart, SecondsPerWeek)
	lastWeek := floorDiv(relEnd-1, SecondsPerWeek) // end is exclusive

	lo := relStart - firstWeek*SecondsPerWeek
	hi := relEnd - lastWeek*SecondsPerWeek // in (0, SecondsPerWeek]

	if firstWeek == lastWeek {
		return []Fragment{{Week: int32(firstWeek), Lo: lo, Hi: hi}}, nil
	}

	fragments := make([]Fragment, 0, lastWeek-firstWeek+1)
	fragments = append(fragments, Fragment{Week: int32(firstWeek), Lo: lo, Hi: SecondsPerWeek})
	for w := firstWeek + 1; w < lastWeek; w++ {
		fragments = append(fragments, Fragment{Week: int32(w), Lo: 0, Hi: SecondsPerWeek, Contained: true})
	}
	fragments = append(fragments, Fragment{Week: int32(lastWeek), Lo: 0, Hi: hi})

	return fragments, nil
}

// floorDiv divides rounding toward negative infinity.
func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}

	return q
}

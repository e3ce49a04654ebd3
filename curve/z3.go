// Package curve implements the Z3 space-filling curve used to index
// (x, y, t) points in a sorted key-value store.
//
// Each dimension is binned into 21 bits and the bins are bit-interleaved
// into a 63-bit Morton code. The code gives a total order that approximates
// 3-D locality: points close in space and time usually map to nearby codes,
// but no single dimension is contiguous on its own.
//
// A curve instance is parameterized by the maximum value of the time
// dimension, which the store sets to the width of one epoch. Spatial bounds
// are fixed to WGS84 degrees.
//
// Range decomposition recursively splits the query box into curve-aligned
// octants up to a precision bound. The union of the returned ranges always
// covers the query region; cells that straddle the boundary at maximum
// depth are emitted whole, so false positives are expected and must be
// filtered downstream. False negatives never occur.
package curve

import (
	"fmt"
	"sort"

	"github.com/geomort/geomort/errs"
)

const (
	// BitsPerDim is the resolution of each dimension in bits.
	BitsPerDim = 21

	// MaxBin is the largest bin value in any dimension.
	MaxBin = (1 << BitsPerDim) - 1

	// PrecisionDefault is the default recursion depth for range
	// decomposition. Depth 7 keeps range counts in the low hundreds for
	// typical boxes; raise it for tighter ranges at higher planning cost.
	PrecisionDefault = 7

	// PrecisionMax is the recursion depth at which cells are single bins.
	PrecisionMax = BitsPerDim

	// Spatial extent of the curve, WGS84 degrees.
	XMin = -180.0
	XMax = 180.0
	YMin = -90.0
	YMax = 90.0
)

// Z3 is a three-dimensional Morton curve over longitude, latitude and a
// bounded time dimension. Instances are immutable and safe for concurrent
// use.
type Z3 struct {
	tMax float64
}

// ZRange is a contiguous, inclusive interval [Min, Max] of curve values.
type ZRange struct {
	Min uint64
	Max uint64
}

// Box is an axis-aligned query region in user units: degrees for x/y and
// seconds (within one epoch) for t. Bounds are inclusive on all sides.
type Box struct {
	XMin, XMax float64
	YMin, YMax float64
	TMin, TMax float64
}

// New creates a Z3 curve whose time dimension spans [0, tMax] seconds.
func New(tMax float64) *Z3 {
	return &Z3{tMax: tMax}
}

// TimeMax returns the upper bound of the curve's time dimension in seconds.
func (z *Z3) TimeMax() float64 {
	return z.tMax
}

// Index maps a point to its curve value. Coordinates outside the curve's
// bounds are clamped to the nearest edge bin, so the mapping is total and
// deterministic.
func (z *Z3) Index(x, y, t float64) uint64 {
	return interleave(binX(x), binY(y), z.binT(t))
}

// Ranges decomposes a query box into a covering set of curve ranges.
//
// The decomposition recurses at most precision levels deep (1 to
// PrecisionMax); PrecisionDefault is used when precision is zero or
// negative. Higher precision yields more, tighter ranges: less server-side
// over-selection but more ranges to scan. This trades cost, not
// correctness.
//
// The returned ranges are sorted, non-overlapping (adjacent ranges are
// coalesced), and their union contains the index of every point inside the
// box. Returns ErrInvalidArgument when any bound pair is inverted.
func (z *Z3) Ranges(box Box, precision int) ([]ZRange, error) {
	if box.XMin > box.XMax || box.YMin > box.YMax || box.TMin > box.TMax {
		return nil, fmt.Errorf("%w: inverted box bounds x=[%v,%v] y=[%v,%v] t=[%v,%v]",
			errs.ErrInvalidArgument, box.XMin, box.XMax, box.YMin, box.YMax, box.TMin, box.TMax)
	}
	if precision <= 0 {
		precision = PrecisionDefault
	}
	if precision > PrecisionMax {
		precision = PrecisionMax
	}

	q := binBox{
		xlo: binX(box.XMin), xhi: binX(box.XMax),
		ylo: binY(box.YMin), yhi: binY(box.YMax),
		tlo: z.binT(box.TMin), thi: z.binT(box.TMax),
	}

	ranges := make([]ZRange, 0, 64)
	full := binBox{0, MaxBin, 0, MaxBin, 0, MaxBin}
	ranges = decompose(ranges, full, q, 0, precision)

	return mergeRanges(ranges), nil
}

// binBox is a query region in bin space, inclusive on all sides.
type binBox struct {
	xlo, xhi uint32
	ylo, yhi uint32
	tlo, thi uint32
}

// within reports whether c lies entirely inside q.
func (c binBox) within(q binBox) bool {
	return c.xlo >= q.xlo && c.xhi <= q.xhi &&
		c.ylo >= q.ylo && c.yhi <= q.yhi &&
		c.tlo >= q.tlo && c.thi <= q.thi
}

func (c binBox) intersects(q binBox) bool {
	return c.xlo <= q.xhi && c.xhi >= q.xlo &&
		c.ylo <= q.yhi && c.yhi >= q.ylo &&
		c.tlo <= q.thi && c.thi >= q.tlo
}

// decompose walks the implicit octree of curve-aligned cells. A cell fully
// inside the query, or any intersecting cell at the depth bound, is emitted
// as one range; other intersecting cells split into eight children. Cells
// are axis-aligned power-of-two blocks, so the Morton codes of their min
// and max corners delimit exactly the codes of their interior.
func decompose(acc []ZRange, cell, q binBox, level, precision int) []ZRange {
	if !cell.intersects(q) {
		return acc
	}
	if level == precision || cell.within(q) {
		lo := interleave(cell.xlo, cell.ylo, cell.tlo)
		hi := interleave(cell.xhi, cell.yhi, cell.thi)

		return append(acc, ZRange{Min: lo, Max: hi})
	}

	xmid := cell.xlo + (cell.xhi-cell.xlo)/2
	ymid := cell.ylo + (cell.yhi-cell.ylo)/2
	tmid := cell.tlo + (cell.thi-cell.tlo)/2

	xs := [2][2]uint32{{cell.xlo, xmid}, {xmid + 1, cell.xhi}}
	ys := [2][2]uint32{{cell.ylo, ymid}, {ymid + 1, cell.yhi}}
	ts := [2][2]uint32{{cell.tlo, tmid}, {tmid + 1, cell.thi}}

	for _, t := range ts {
		for _, y := range ys {
			for _, x := range xs {
				child := binBox{x[0], x[1], y[0], y[1], t[0], t[1]}
				acc = decompose(acc, child, q, level+1, precision)
			}
		}
	}

	return acc
}

// mergeRanges sorts ranges and coalesces overlapping or adjacent ones.
func mergeRanges(ranges []ZRange) []ZRange {
	if len(ranges) <= 1 {
		return ranges
	}

	sort.Slice(ranges, func(i, j int) bool { return ranges[i].Min < ranges[j].Min })

	merged := ranges[:1]
	for _, r := range ranges[1:] {
		last := &merged[len(merged)-1]
		if r.Min <= last.Max || r.Min == last.Max+1 {
			if r.Max > last.Max {
				last.Max = r.Max
			}

			continue
		}
		merged = append(merged, r)
	}

	return merged
}

func binX(x float64) uint32 {
	return bin(x, XMin, XMax)
}

func binY(y float64) uint32 {
	return bin(y, YMin, YMax)
}

func (z *Z3) binT(t float64) uint32 {
	return bin(t, 0, z.tMax)
}

// bin maps v in [lo, hi] to a 21-bit bin, clamping out-of-range input.
func bin(v, lo, hi float64) uint32 {
	if v <= lo {
		return 0
	}
	if v >= hi {
		return MaxBin
	}

	b := uint32((v - lo) / (hi - lo) * (1 << BitsPerDim))
	if b > MaxBin {
		b = MaxBin
	}

	return b
}

// interleave spreads the 21 low bits of each dimension three apart and
// combines them as x | y<<1 | t<<2.
func interleave(x, y, t uint32) uint64 {
	return split(uint64(x)) | split(uint64(y))<<1 | split(uint64(t))<<2
}

// split inserts two zero bits between each of the 21 low bits of v.
func split(v uint64) uint64 {
	v &= MaxBin
	v = (v | v<<32) & 0x1f00000000ffff
	v = (v | v<<16) & 0x1f0000ff0000ff
	v = (v | v<<8) & 0x100f00f00f00f00f
	v = (v | v<<4) & 0x10c30c30c30c30c3
	v = (v | v<<2) & 0x1249249249249249

	return v
}

// combine reverses split, gathering every third bit of v.
func combine(v uint64) uint32 {
	v &= 0x1249249249249249
	v = (v ^ v>>2) & 0x10c30c30c30c30c3
	v = (v ^ v>>4) & 0x100f00f00f00f00f
	v = (v ^ v>>8) & 0x1f0000ff0000ff
	v = (v ^ v>>16) & 0x1f00000000ffff
	v = (v ^ v>>32) & MaxBin

	return uint32(v)
}

// Deinterleave recovers the per-dimension bins of a curve value. Primarily
// used by tests and diagnostics.
func Deinterleave(z uint64) (x, y, t uint32) {
	return combine(z), combine(z >> 1), combine(z >> 2)
}

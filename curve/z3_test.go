package curve

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/geomort/geomort/errs"
)

const weekSeconds = 604800

func TestSplitCombineRoundTrip(t *testing.T) {
	values := []uint32{0, 1, 2, 0x55555, 0xAAAAA, MaxBin - 1, MaxBin}
	for _, v := range values {
		require.Equal(t, v, combine(split(uint64(v))), "value %#x", v)
	}
}

func TestIndexDeinterleaveRoundTrip(t *testing.T) {
	z := New(weekSeconds)

	points := []struct{ x, y, tm float64 }{
		{0, 0, 0},
		{-180, -90, 0},
		{180, 90, weekSeconds},
		{-73.97, 40.78, 3600},
		{121.56, 25.03, 500000},
	}
	for _, p := range points {
		idx := z.Index(p.x, p.y, p.tm)
		xb, yb, tb := Deinterleave(idx)
		require.Equal(t, binX(p.x), xb)
		require.Equal(t, binY(p.y), yb)
		require.Equal(t, z.binT(p.tm), tb)
	}
}

func TestIndexClampsOutOfRange(t *testing.T) {
	z := New(weekSeconds)

	require.Equal(t, z.Index(-180, -90, 0), z.Index(-500, -200, -10))
	require.Equal(t, z.Index(180, 90, weekSeconds), z.Index(500, 200, weekSeconds*2))
}

func TestRangesInvalidBox(t *testing.T) {
	z := New(weekSeconds)

	cases := []Box{
		{XMin: 10, XMax: -10, YMin: 0, YMax: 1, TMin: 0, TMax: 1},
		{XMin: 0, XMax: 1, YMin: 10, YMax: -10, TMin: 0, TMax: 1},
		{XMin: 0, XMax: 1, YMin: 0, YMax: 1, TMin: 100, TMax: 50},
	}
	for _, box := range cases {
		_, err := z.Ranges(box, PrecisionDefault)
		require.ErrorIs(t, err, errs.ErrInvalidArgument)
	}
}

func TestRangesSortedAndDisjoint(t *testing.T) {
	z := New(weekSeconds)

	ranges, err := z.Ranges(Box{
		XMin: -80, XMax: -70,
		YMin: 30, YMax: 40,
		TMin: 1000, TMax: 90000,
	}, PrecisionDefault)
	require.NoError(t, err)
	require.NotEmpty(t, ranges)

	for i, r := range ranges {
		require.LessOrEqual(t, r.Min, r.Max, "range %d inverted", i)
		if i > 0 {
			// Strictly after the previous range, with a gap: adjacent
			// ranges must have been coalesced.
			require.Greater(t, r.Min, ranges[i-1].Max+1, "range %d not disjoint from predecessor", i)
		}
	}
}

func TestRangesCoverQueryPoints(t *testing.T) {
	z := New(weekSeconds)
	box := Box{
		XMin: -80, XMax: -70,
		YMin: 30, YMax: 40,
		TMin: 1000, TMax: 90000,
	}

	ranges, err := z.Ranges(box, PrecisionDefault)
	require.NoError(t, err)

	contains := func(idx uint64) bool {
		for _, r := range ranges {
			if idx >= r.Min && idx <= r.Max {
				return true
			}
		}
		return false
	}

	// Every point of a dense grid inside the box must land in some range.
	for xi := 0; xi <= 10; xi++ {
		for yi := 0; yi <= 10; yi++ {
			for ti := 0; ti <= 10; ti++ {
				x := box.XMin + float64(xi)*(box.XMax-box.XMin)/10
				y := box.YMin + float64(yi)*(box.YMax-box.YMin)/10
				tm := box.TMin + float64(ti)*(box.TMax-box.TMin)/10
				idx := z.Index(x, y, tm)
				require.True(t, contains(idx), "point (%g, %g, %g) index %#x not covered", x, y, tm, idx)
			}
		}
	}
}

func TestRangesPrecisionTradeoff(t *testing.T) {
	z := New(weekSeconds)
	box := Box{
		XMin: -80, XMax: -70,
		YMin: 30, YMax: 40,
		TMin: 1000, TMax: 90000,
	}

	coarse, err := z.Ranges(box, 3)
	require.NoError(t, err)
	fine, err := z.Ranges(box, 10)
	require.NoError(t, err)

	covered := func(ranges []ZRange) uint64 {
		var total uint64
		for _, r := range ranges {
			total += r.Max - r.Min + 1
		}
		return total
	}

	// Deeper decomposition never widens the covered key space.
	require.LessOrEqual(t, covered(fine), covered(coarse))
}

func TestRangesPrecisionDefaulting(t *testing.T) {
	z := New(weekSeconds)
	box := Box{XMin: -10, XMax: 10, YMin: -10, YMax: 10, TMin: 0, TMax: 1000}

	byDefault, err := z.Ranges(box, 0)
	require.NoError(t, err)
	explicit, err := z.Ranges(box, PrecisionDefault)
	require.NoError(t, err)
	require.Equal(t, explicit, byDefault)

	clamped, err := z.Ranges(box, PrecisionMax+5)
	require.NoError(t, err)
	atMax, err := z.Ranges(box, PrecisionMax)
	require.NoError(t, err)
	require.Equal(t, atMax, clamped)
}

func TestRangesWholeWorldSingleRange(t *testing.T) {
	z := New(weekSeconds)

	ranges, err := z.Ranges(Box{
		XMin: XMin, XMax: XMax,
		YMin: YMin, YMax: YMax,
		TMin: 0, TMax: weekSeconds,
	}, PrecisionDefault)
	require.NoError(t, err)

	require.Len(t, ranges, 1)
	require.Equal(t, uint64(0), ranges[0].Min)
	require.Equal(t, interleave(MaxBin, MaxBin, MaxBin), ranges[0].Max)
}

func BenchmarkRanges(b *testing.B) {
	z := New(weekSeconds)
	box := Box{
		XMin: -80, XMax: -70,
		YMin: 30, YMax: 40,
		TMin: 1000, TMax: 90000,
	}

	for i := 0; i < b.N; i++ {
		_, _ = z.Ranges(box, PrecisionDefault)
	}
}

func BenchmarkIndex(b *testing.B) {
	z := New(weekSeconds)

	for i := 0; i < b.N; i++ {
		_ = z.Index(-73.97, 40.78, 3600)
	}
}

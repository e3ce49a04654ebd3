package plan

import (
	"bytes"
	"testing"
	"time"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/require"

	"github.com/geomort/geomort/curve"
	"github.com/geomort/geomort/errs"
	"github.com/geomort/geomort/filter"
	"github.com/geomort/geomort/format"
	"github.com/geomort/geomort/schema"
)

func testSchema(t *testing.T) *schema.Schema {
	t.Helper()

	s, err := schema.New("vessels", []schema.Attribute{
		{Name: "name", Kind: format.KindString, Nullable: true},
		{Name: "dtg", Kind: format.KindDate},
		{Name: "geom", Kind: format.KindGeometry, SRID: 4326},
	})
	require.NoError(t, err)

	return s
}

func oneWeek(t *testing.T) *filter.During {
	t.Helper()

	return &filter.During{
		Attribute: "dtg",
		Start:     time.Date(2011, time.January, 1, 0, 0, 0, 0, time.UTC),
		End:       time.Date(2011, time.January, 8, 0, 0, 0, 0, time.UTC),
	}
}

func TestNewPlannerValidation(t *testing.T) {
	s := testSchema(t)

	_, err := NewPlanner("", s)
	require.ErrorIs(t, err, errs.ErrInvalidArgument)

	_, err = NewPlanner("vessels_z3", s, WithPrecision(0))
	require.ErrorIs(t, err, errs.ErrInvalidArgument)
	_, err = NewPlanner("vessels_z3", s, WithPrecision(curve.PrecisionMax+1))
	require.ErrorIs(t, err, errs.ErrInvalidArgument)

	_, err = NewPlanner("vessels_z3", s, WithGeometryAttribute("missing"))
	require.ErrorIs(t, err, errs.ErrAttributeNotFound)
	_, err = NewPlanner("vessels_z3", s, WithGeometryAttribute("dtg"))
	require.ErrorIs(t, err, errs.ErrInvalidArgument)
	_, err = NewPlanner("vessels_z3", s, WithTimeAttribute("geom"))
	require.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func TestPlanBoxAndWeek(t *testing.T) {
	p, err := NewPlanner("vessels_z3", testSchema(t))
	require.NoError(t, err)

	qp, err := p.Plan(filter.NewAnd(
		&filter.BBox{Attribute: "geom", XMin: -80, YMin: 30, XMax: -70, YMax: 40},
		oneWeek(t),
	))
	require.NoError(t, err)

	require.Equal(t, "vessels_z3", qp.Table)
	require.NotEmpty(t, qp.Ranges)
	require.False(t, qp.IsFullScan())
	require.False(t, qp.MayContainDuplicates)

	// One week of data means every key carries week 574.
	for _, r := range qp.Ranges {
		week, _, err := DecodeKey(r.Start)
		require.NoError(t, err)
		require.Equal(t, int32(574), week)
		require.True(t, r.StartInclusive)
		require.False(t, r.EndInclusive)
		require.Negative(t, bytes.Compare(r.Start, r.End))
	}

	// The single clean box is enforced by the curve recheck: no residual
	// stage needed.
	require.Len(t, qp.Filters, 1)
	require.Equal(t, FilterCurve, qp.Filters[0].Name)
	require.Equal(t, PriorityCurve, qp.Filters[0].Priority)
	require.Equal(t, "geom", qp.Filters[0].Options["geom"])
	require.Equal(t, "dtg", qp.Filters[0].Options["dtg"])
	require.Equal(t, "-80", qp.Filters[0].Options["xmin"])
}

func TestPlanRangesSortedDisjoint(t *testing.T) {
	p, err := NewPlanner("vessels_z3", testSchema(t))
	require.NoError(t, err)

	threeWeeks := &filter.During{
		Attribute: "dtg",
		Start:     time.Date(2011, time.January, 2, 12, 0, 0, 0, time.UTC),
		End:       time.Date(2011, time.January, 20, 6, 0, 0, 0, time.UTC),
	}
	qp, err := p.Plan(filter.NewAnd(
		&filter.BBox{Attribute: "geom", XMin: 10, YMin: 10, XMax: 20, YMax: 20},
		threeWeeks,
	))
	require.NoError(t, err)
	require.NotEmpty(t, qp.Ranges)

	weeks := map[int32]bool{}
	for i, r := range qp.Ranges {
		week, _, err := DecodeKey(r.Start)
		require.NoError(t, err)
		weeks[week] = true
		if i > 0 {
			require.True(t, bytes.Compare(qp.Ranges[i-1].End, r.Start) <= 0,
				"range %d overlaps predecessor", i)
		}
	}
	require.Equal(t, map[int32]bool{574: true, 575: true, 576: true}, weeks)
}

func TestPlanTemporalOnly(t *testing.T) {
	p, err := NewPlanner("vessels_z3", testSchema(t))
	require.NoError(t, err)

	qp, err := p.Plan(oneWeek(t))
	require.NoError(t, err)

	// No spatial clause: the whole world flows through the curve, one
	// covering range for the week.
	require.Len(t, qp.Ranges, 1)
	require.False(t, qp.IsFullScan())

	week, z, err := DecodeKey(qp.Ranges[0].Start)
	require.NoError(t, err)
	require.Equal(t, int32(574), week)
	require.Zero(t, z)

	require.Len(t, qp.Filters, 1)
	require.Equal(t, FilterCurve, qp.Filters[0].Name)
	require.Equal(t, "-180", qp.Filters[0].Options["xmin"])
	require.Equal(t, "180", qp.Filters[0].Options["xmax"])
}

func TestPlanUnboundedTimeDegradesToFullScan(t *testing.T) {
	var logged bytes.Buffer
	p, err := NewPlanner("vessels_z3", testSchema(t),
		WithLogger(log.NewLogfmtLogger(log.NewSyncWriter(&logged))))
	require.NoError(t, err)

	qp, err := p.Plan(&filter.BBox{Attribute: "geom", XMin: -80, YMin: 30, XMax: -70, YMax: 40})
	require.NoError(t, err)

	require.True(t, qp.IsFullScan())
	require.Contains(t, logged.String(), "full table scan")
	require.Contains(t, logged.String(), "level=warn")

	// The spatial clause still runs server-side.
	require.Len(t, qp.Filters, 1)
	require.Equal(t, FilterResidual, qp.Filters[0].Name)
	require.Contains(t, qp.Filters[0].Options["predicate"], "BBOX(geom")
}

func TestPlanNilFilterFullScan(t *testing.T) {
	var logged bytes.Buffer
	p, err := NewPlanner("vessels_z3", testSchema(t),
		WithLogger(log.NewLogfmtLogger(log.NewSyncWriter(&logged))))
	require.NoError(t, err)

	qp, err := p.Plan(nil)
	require.NoError(t, err)
	require.True(t, qp.IsFullScan())
	require.Empty(t, qp.Filters)
	require.Contains(t, logged.String(), "full table scan")
}

func TestPlanContradictionIsEmpty(t *testing.T) {
	p, err := NewPlanner("vessels_z3", testSchema(t))
	require.NoError(t, err)

	a := oneWeek(t)
	b := &filter.During{Attribute: "dtg", Start: a.End.Add(time.Hour), End: a.End.Add(2 * time.Hour)}
	qp, err := p.Plan(filter.NewAnd(a, b))
	require.NoError(t, err)
	require.True(t, qp.IsEmpty())
	require.False(t, qp.IsFullScan())
}

func TestPlanResidualStages(t *testing.T) {
	p, err := NewPlanner("vessels_z3", testSchema(t))
	require.NoError(t, err)

	qp, err := p.Plan(filter.NewAnd(
		&filter.BBox{Attribute: "geom", XMin: -80, YMin: 30, XMax: -70, YMax: 40},
		oneWeek(t),
		&filter.Like{Attribute: "name", Pattern: "cargo%"},
	), "name", "geom")
	require.NoError(t, err)

	require.Len(t, qp.Filters, 3)
	require.Equal(t, FilterCurve, qp.Filters[0].Name)
	require.Equal(t, FilterResidual, qp.Filters[1].Name)
	require.Equal(t, FilterProjection, qp.Filters[2].Name)
	require.Less(t, qp.Filters[0].Priority, qp.Filters[1].Priority)
	require.Less(t, qp.Filters[1].Priority, qp.Filters[2].Priority)

	require.Equal(t, "name LIKE 'cargo%'", qp.Filters[1].Options["predicate"])
	require.Equal(t, "name,geom", qp.Filters[2].Options["attributes"])
	require.Equal(t, []string{"name", "geom"}, qp.Projection)
}

func TestPlanAntimeridianBox(t *testing.T) {
	p, err := NewPlanner("vessels_z3", testSchema(t))
	require.NoError(t, err)

	qp, err := p.Plan(filter.NewAnd(
		&filter.BBox{Attribute: "geom", XMin: 170, YMin: -10, XMax: -170, YMax: 10},
		oneWeek(t),
	))
	require.NoError(t, err)
	require.NotEmpty(t, qp.Ranges)

	// The split box is only covered, not matched, by the union extent, so
	// it must be re-evaluated server-side.
	var names []string
	for _, f := range qp.Filters {
		names = append(names, f.Name)
	}
	require.Contains(t, names, FilterResidual)
}

func TestPlanUnknownProjection(t *testing.T) {
	p, err := NewPlanner("vessels_z3", testSchema(t))
	require.NoError(t, err)

	_, err = p.Plan(oneWeek(t), "missing")
	require.ErrorIs(t, err, errs.ErrAttributeNotFound)
}

func TestPlanPrecisionControlsRangeCount(t *testing.T) {
	coarse, err := NewPlanner("vessels_z3", testSchema(t), WithPrecision(3))
	require.NoError(t, err)
	fine, err := NewPlanner("vessels_z3", testSchema(t), WithPrecision(12))
	require.NoError(t, err)

	f := filter.NewAnd(
		&filter.BBox{Attribute: "geom", XMin: -80, YMin: 30, XMax: -70, YMax: 40},
		oneWeek(t),
	)

	qpCoarse, err := coarse.Plan(f)
	require.NoError(t, err)
	qpFine, err := fine.Plan(f)
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(qpFine.Ranges), len(qpCoarse.Ranges),
		"deeper decomposition should not produce fewer ranges")
}

func BenchmarkPlan(b *testing.B) {
	s, _ := schema.New("vessels", []schema.Attribute{
		{Name: "dtg", Kind: format.KindDate},
		{Name: "geom", Kind: format.KindGeometry},
	})
	p, _ := NewPlanner("vessels_z3", s)
	f := filter.NewAnd(
		&filter.BBox{Attribute: "geom", XMin: -80, YMin: 30, XMax: -70, YMax: 40},
		&filter.During{
			Attribute: "dtg",
			Start:     time.Date(2011, time.January, 1, 0, 0, 0, 0, time.UTC),
			End:       time.Date(2011, time.January, 8, 0, 0, 0, 0, time.UTC),
		},
	)

	for i := 0; i < b.N; i++ {
		_, _ = p.Plan(f)
	}
}

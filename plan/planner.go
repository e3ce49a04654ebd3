package plan

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/geomort/geomort/curve"
	"github.com/geomort/geomort/epoch"
	"github.com/geomort/geomort/errs"
	"github.com/geomort/geomort/filter"
	"github.com/geomort/geomort/format"
	"github.com/geomort/geomort/internal/options"
	"github.com/geomort/geomort/schema"
)

// Planner turns predicates over one schema into query plans against that
// schema's (week, Z3) index table.
//
// A planner is immutable after construction and safe for concurrent use.
type Planner struct {
	table     string
	schema    *schema.Schema
	geomAttr  string
	dtgAttr   string
	precision int
	logger    log.Logger
	curve     *curve.Z3
}

// PlannerOption configures a Planner.
type PlannerOption = options.Option[*Planner]

// WithPrecision sets the curve decomposition depth, 1 to
// curve.PrecisionMax. Deeper decomposition yields tighter ranges at higher
// planning cost.
func WithPrecision(precision int) PlannerOption {
	return options.New(func(p *Planner) error {
		if precision < 1 || precision > curve.PrecisionMax {
			return fmt.Errorf("%w: precision %d outside [1, %d]",
				errs.ErrInvalidArgument, precision, curve.PrecisionMax)
		}
		p.precision = precision

		return nil
	})
}

// WithLogger injects a logger for planning diagnostics, notably the
// full-table-scan degradation warning. The default discards everything.
func WithLogger(logger log.Logger) PlannerOption {
	return options.NoError(func(p *Planner) {
		p.logger = logger
	})
}

// WithGeometryAttribute overrides the indexed geometry attribute. The
// default is the schema's first geometry attribute.
func WithGeometryAttribute(name string) PlannerOption {
	return options.New(func(p *Planner) error {
		return p.setIndexAttr(&p.geomAttr, name, format.KindGeometry)
	})
}

// WithTimeAttribute overrides the indexed date attribute. The default is
// the schema's first date attribute.
func WithTimeAttribute(name string) PlannerOption {
	return options.New(func(p *Planner) error {
		return p.setIndexAttr(&p.dtgAttr, name, format.KindDate)
	})
}

// NewPlanner creates a planner for the given table and schema. The indexed
// geometry and date attributes default to the first of each kind declared
// by the schema; schemas lacking either can still be planned, but only
// down to full scans for the missing dimension.
func NewPlanner(table string, s *schema.Schema, opts ...PlannerOption) (*Planner, error) {
	if table == "" {
		return nil, fmt.Errorf("%w: empty table name", errs.ErrInvalidArgument)
	}

	p := &Planner{
		table:     table,
		schema:    s,
		precision: curve.PrecisionDefault,
		logger:    log.NewNopLogger(),
		curve:     curve.New(float64(epoch.SecondsPerWeek)),
	}
	for _, attr := range s.Attributes() {
		if p.geomAttr == "" && attr.Kind == format.KindGeometry {
			p.geomAttr = attr.Name
		}
		if p.dtgAttr == "" && attr.Kind == format.KindDate {
			p.dtgAttr = attr.Name
		}
	}
	if err := options.Apply(p, opts...); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *Planner) setIndexAttr(dst *string, name string, kind format.Kind) error {
	i, ok := p.schema.Index(name)
	if !ok {
		return fmt.Errorf("%w: %q", errs.ErrAttributeNotFound, name)
	}
	if got := p.schema.Attribute(i).Kind; got != kind {
		return fmt.Errorf("%w: attribute %q is %s, want %s",
			errs.ErrInvalidArgument, name, got, kind)
	}
	*dst = name

	return nil
}

// Plan builds the access plan for a predicate. A nil predicate selects
// everything; projection names, when given, must exist in the schema.
//
// The spatial and temporal conjuncts of the predicate drive key-range
// selection; everything the index cannot enforce exactly is pushed into
// server-side filter stages, so plans over-select but never under-select.
func (p *Planner) Plan(f filter.Filter, projection ...string) (*QueryPlan, error) {
	if len(projection) > 0 {
		if _, err := p.schema.Project(projection); err != nil {
			return nil, err
		}
	}

	spatial, rest := filter.PartitionGeometry(f)
	temporal, residual := filter.PartitionTime(rest)

	extents, err := filter.Envelopes(spatial)
	if err != nil {
		return nil, err
	}
	ext := filter.Union(extents)

	iv, err := filter.ResolveInterval(temporal)
	if err != nil {
		return nil, err
	}
	if !iv.IsUnbounded() && iv.IsEmpty() {
		// Contradictory temporal clauses select nothing.
		return &QueryPlan{Table: p.table, Projection: projection}, nil
	}

	qp := &QueryPlan{Table: p.table, Projection: projection}

	if iv.IsUnbounded() {
		// The index cannot enumerate weeks without a time bound, whether
		// or not the query is spatially constrained.
		_ = level.Warn(p.logger).Log(
			"msg", "no bounded temporal predicate, degrading to full table scan",
			"table", p.table,
			"filter", renderFilter(f),
		)
		qp.Ranges = []ScanRange{FullRange()}
		p.appendResidual(qp, filter.NewAnd(append(spatial, residual)...))
		p.appendProjection(qp, projection)

		return qp, nil
	}

	if err := p.appendRanges(qp, ext, iv); err != nil {
		return nil, err
	}
	p.appendCurveFilter(qp, ext, iv)
	p.appendResidual(qp, filter.NewAnd(append(residualSpatial(spatial), residual)...))
	p.appendProjection(qp, projection)

	return qp, nil
}

// appendRanges decomposes each week fragment of the interval through the
// curve and emits one scan range per curve range. Start keys are inclusive
// and end keys exclusive, so a range [min, max] becomes keys
// [(week, min), (week, max+1)).
func (p *Planner) appendRanges(qp *QueryPlan, ext filter.Extent, iv epoch.Interval) error {
	fragments, err := epoch.Partition(iv)
	if err != nil {
		return err
	}

	for _, frag := range fragments {
		box := curve.Box{
			XMin: ext.XMin, XMax: ext.XMax,
			YMin: ext.YMin, YMax: ext.YMax,
			TMin: float64(frag.Lo), TMax: float64(frag.Hi),
		}
		ranges, err := p.curve.Ranges(box, p.precision)
		if err != nil {
			return err
		}

		for _, r := range ranges {
			start, err := EncodeKey(nil, frag.Week, r.Min)
			if err != nil {
				return err
			}
			end, err := EncodeKey(nil, frag.Week, r.Max+1)
			if err != nil {
				return err
			}
			qp.Ranges = append(qp.Ranges, ScanRange{
				Start:          start,
				End:            end,
				StartInclusive: true,
			})
		}
	}
	sortRanges(qp.Ranges)

	return nil
}

// appendCurveFilter pushes the exact spatiotemporal recheck that removes
// curve decomposition false positives.
func (p *Planner) appendCurveFilter(qp *QueryPlan, ext filter.Extent, iv epoch.Interval) {
	opts := map[string]string{
		"xmin":  formatDegrees(ext.XMin),
		"ymin":  formatDegrees(ext.YMin),
		"xmax":  formatDegrees(ext.XMax),
		"ymax":  formatDegrees(ext.YMax),
		"start": strconv.FormatInt(iv.Start, 10),
		"end":   strconv.FormatInt(iv.End, 10),
	}
	if p.geomAttr != "" {
		opts["geom"] = p.geomAttr
	}
	if p.dtgAttr != "" {
		opts["dtg"] = p.dtgAttr
	}
	qp.Filters = append(qp.Filters, FilterConfig{
		Priority: PriorityCurve,
		Name:     FilterCurve,
		Options:  opts,
	})
}

func (p *Planner) appendResidual(qp *QueryPlan, residual filter.Filter) {
	if residual == nil {
		return
	}
	qp.Filters = append(qp.Filters, FilterConfig{
		Priority: PriorityResidual,
		Name:     FilterResidual,
		Options:  map[string]string{"predicate": residual.String()},
	})
}

func (p *Planner) appendProjection(qp *QueryPlan, projection []string) {
	if len(projection) == 0 {
		return
	}
	qp.Filters = append(qp.Filters, FilterConfig{
		Priority: PriorityProjection,
		Name:     FilterProjection,
		Options:  map[string]string{"attributes": strings.Join(projection, ",")},
	})
}

// residualSpatial returns the spatial clauses the curve filter's single
// covering extent does not enforce exactly: everything except a lone
// non-antimeridian BBox. Intersects clauses always need their exact
// geometry test, and multiple clauses or a split box are only covered,
// not matched, by the union extent.
func residualSpatial(spatial []filter.Filter) []filter.Filter {
	if len(spatial) == 1 {
		if b, ok := spatial[0].(*filter.BBox); ok && b.XMin <= b.XMax {
			return nil
		}
	}

	return spatial
}

func renderFilter(f filter.Filter) string {
	if f == nil {
		return "<none>"
	}

	return f.String()
}

func formatDegrees(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

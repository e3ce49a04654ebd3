// Package plan turns a query predicate into an executable access plan:
// ordered key-range scans over the (week, Z3) index plus the filter stages
// the scan servers apply to the selected rows.
package plan

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
)

// Filter stage priorities. Lower runs first on the scan servers.
const (
	// PriorityCurve is the exact spatiotemporal recheck eliminating curve
	// decomposition false positives.
	PriorityCurve = 25

	// PriorityResidual evaluates the predicate clauses the index cannot
	// express.
	PriorityResidual = 30

	// PriorityProjection trims returned records to the requested
	// attributes, after all filtering.
	PriorityProjection = 35
)

// Stage filter names.
const (
	FilterCurve      = "z3"
	FilterResidual   = "ecql"
	FilterProjection = "projection"
)

// ScanRange is one contiguous key interval to scan. Start is inclusive and
// End exclusive; a nil bound is unbounded on that side, so the zero value
// denotes a full-table scan.
type ScanRange struct {
	Start          []byte
	End            []byte
	StartInclusive bool
	EndInclusive   bool
}

// FullRange returns the unbounded range covering the whole table.
func FullRange() ScanRange {
	return ScanRange{StartInclusive: true}
}

// IsFull reports whether the range is unbounded on both sides.
func (r ScanRange) IsFull() bool {
	return r.Start == nil && r.End == nil
}

func (r ScanRange) String() string {
	if r.IsFull() {
		return "[-inf, +inf)"
	}

	lo, hi := "(", ")"
	if r.StartInclusive {
		lo = "["
	}
	if r.EndInclusive {
		hi = "]"
	}

	return fmt.Sprintf("%s%x, %x%s", lo, r.Start, r.End, hi)
}

// FilterConfig describes one server-side filter stage.
type FilterConfig struct {
	Priority int
	Name     string
	Options  map[string]string
}

// QueryPlan is the executable form of a query: where to scan and what the
// scan servers must still do to the selected rows.
type QueryPlan struct {
	// Table is the target table name.
	Table string

	// Ranges are the key intervals to scan, sorted by start key and
	// non-overlapping.
	Ranges []ScanRange

	// Filters are the server-side stages, sorted by priority.
	Filters []FilterConfig

	// Projection lists the attributes to return; empty means all.
	Projection []string

	// MayContainDuplicates reports whether a row can be selected by more
	// than one range. Plans built here merge ranges per week, so it is
	// always false; consumers distributing ranges differently must
	// re-derive it.
	MayContainDuplicates bool
}

// IsFullScan reports whether the plan degenerated to scanning the whole
// table.
func (p *QueryPlan) IsFullScan() bool {
	return len(p.Ranges) == 1 && p.Ranges[0].IsFull()
}

// IsEmpty reports whether the plan selects nothing.
func (p *QueryPlan) IsEmpty() bool {
	return len(p.Ranges) == 0
}

func (p *QueryPlan) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "plan{table=%s ranges=%d", p.Table, len(p.Ranges))
	if p.IsFullScan() {
		b.WriteString(" full-scan")
	}
	for _, f := range p.Filters {
		fmt.Fprintf(&b, " filter=%s@%d", f.Name, f.Priority)
	}
	if len(p.Projection) > 0 {
		fmt.Fprintf(&b, " projection=%s", strings.Join(p.Projection, ","))
	}
	b.WriteString("}")

	return b.String()
}

// sortRanges orders ranges by start key. Ranges produced per week are
// already internally sorted; this establishes the cross-week order.
func sortRanges(ranges []ScanRange) {
	sort.Slice(ranges, func(i, j int) bool {
		return bytes.Compare(ranges[i].Start, ranges[j].Start) < 0
	})
}

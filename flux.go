package caderidflux

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// FluxQuery assembles a Flux pipeline as an ordered list of rendered stages.
// Stage order is significant; BuildQuery emits stages in the protocol order
// the server expects. All names must pass validation before they reach the
// builder — rendering itself never fails.
type FluxQuery struct {
	stages []string
	start  time.Time
	end    time.Time
}

// NewFluxQuery starts a pipeline reading measurement rows from bucket over
// the half-open range [start, end).
func NewFluxQuery(start, end time.Time, bucket, measurement string) *FluxQuery {
	q := &FluxQuery{start: start, end: end}
	q.stages = append(q.stages,
		`import "internal/debug"`,
		`import "experimental"`,
		fmt.Sprintf(`from(bucket: %q)`, bucket),
		fmt.Sprintf(`  |> range(start: %s, stop: %s)`, toRFC3339(start), toRFC3339(end)),
		fmt.Sprintf(`  |> filter(fn: (r) => r._measurement == %q)`, measurement),
	)
	return q
}

// AddFields appends a filter keeping only the named fields.
func (q *FluxQuery) AddFields(fields ...string) {
	clauses := make([]string, len(fields))
	for i, f := range fields {
		clauses[i] = fmt.Sprintf(`r["_field"] == %q`, f)
	}
	q.stages = append(q.stages,
		fmt.Sprintf(`  |> filter(fn: (r) => %s)`, strings.Join(clauses, " or ")))
}

// AddGroups appends a group stage over the given column keys.
func (q *FluxQuery) AddGroups(groups ...string) {
	q.stages = append(q.stages,
		fmt.Sprintf(`  |> group(columns: [%s])`, quoteJoin(groups)))
}

// AddFilter appends an equality filter on a tag, dropping non-matching rows.
func (q *FluxQuery) AddFilter(key, value string) {
	q.stages = append(q.stages,
		fmt.Sprintf(`  |> filter(fn: (r) => r[%q] == %q)`, key, value))
}

// AddTargetedFilter appends a conditional mask: rows whose tag key does not
// equal value have col's value replaced with null, while every other column
// is left untouched.
func (q *FluxQuery) AddTargetedFilter(key, value, col string) {
	q.stages = append(q.stages, fmt.Sprintf(
		`  |> map(fn: (r) => ({ r with "_value": if r[%q] == %q or r["_field"] != %q then r["_value"] else debug.null(type: "float")}))`,
		key, value, col))
}

// AddRangeFilters appends bound comparisons for each filter. Rows are
// pivoted to wide form first so each comparison can see sibling fields as
// columns, then unpivoted back to tall form.
func (q *FluxQuery) AddRangeFilters(filters []RangeFilter) {
	q.AddPivot("_field")
	for _, f := range filters {
		minOp := ">"
		if f.MinEqual {
			minOp = ">="
		}
		maxOp := "<"
		if f.MaxEqual {
			maxOp = "<="
		}
		q.stages = append(q.stages, fmt.Sprintf(
			`  |> filter(fn: (r) => r[%q] %s %s and r[%q] %s %s)`,
			f.Field, minOp, formatFloat(f.Min), f.Field, maxOp, formatFloat(f.Max)))
	}
	q.stages = append(q.stages, `  |> experimental.unpivot()`)
}

// AddWindow appends an aggregate window stage. Empty windows still produce a
// null-valued row so downstream time alignment stays regular.
func (q *FluxQuery) AddWindow(every, fn string, alignStart bool) {
	timeSrc := "_stop"
	if alignStart {
		timeSrc = "_start"
	}
	q.stages = append(q.stages, fmt.Sprintf(
		`  |> aggregateWindow(every: %s, fn: %s, column: "_value", timeSrc: %q, timeDst: "_time", createEmpty: true)`,
		every, fn, timeSrc))
}

// AddPivot appends a pivot reshaping rows keyed by time into one column per
// distinct combination of the given keys.
func (q *FluxQuery) AddPivot(columns ...string) {
	q.stages = append(q.stages, fmt.Sprintf(
		`  |> pivot(rowKey: ["_time"], columnKey: [%s], valueColumn: "_value")`,
		quoteJoin(columns)))
}

// AddScale appends a map stage applying value*slope+offset to the named
// column for timestamps in [start, end). Nil bounds fall back to the
// pipeline's own range.
func (q *FluxQuery) AddScale(s ScaleSpec) {
	start := q.start
	if s.Start != nil {
		start = *s.Start
	}
	end := q.end
	if s.End != nil {
		end = *s.End
	}
	q.stages = append(q.stages, fmt.Sprintf(
		`  |> map(fn: (r) => ({ r with %q: if r["_time"] >= %s and r["_time"] < %s then (r[%q] * float(v: %s)) + float(v: %s) else r[%q]}))`,
		s.Field, toRFC3339(start), toRFC3339(end),
		s.Field, formatFloat(s.Slope), formatFloat(s.Offset), s.Field))
}

// AddYield appends a yield stage naming the pipeline's output.
func (q *FluxQuery) AddYield(name string) {
	q.stages = append(q.stages, fmt.Sprintf(`  |> yield(name: %q)`, name))
}

// String renders the pipeline as newline-joined Flux text.
func (q *FluxQuery) String() string {
	return strings.Join(q.stages, "\n")
}

// buildRequestQuery renders one validated request scoped to a sub-window.
// It returns the Flux text and the extra field names queried only to feed
// range filters (the runner drops their columns afterwards).
func buildRequestQuery(req *QueryRequest, win SubWindow, dialect Dialect) (string, []string) {
	q := NewFluxQuery(win.Start, win.End, req.Bucket, req.Measurement)

	extra := req.extraFields()
	all := make([]string, 0, len(req.Fields)+len(extra))
	all = append(all, req.Fields...)
	all = append(all, extra...)
	q.AddFields(all...)

	q.AddGroups(append(append([]string{}, req.Groups...), "_field")...)

	keys := make([]string, 0, len(req.BoolFilters))
	for k := range req.BoolFilters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if bf := req.BoolFilters[k]; bf.Col == "" {
			q.AddFilter(k, bf.Value)
		}
	}

	targeted := func() {
		for _, k := range keys {
			if bf := req.BoolFilters[k]; bf.Col != "" {
				q.AddTargetedFilter(k, bf.Value, bf.Col)
			}
		}
	}
	rangeAndWindow := func() {
		if len(req.RangeFilters) > 0 {
			q.AddRangeFilters(req.RangeFilters)
		}
		if req.Aggregate {
			w := req.Window.withDefaults()
			q.AddWindow(w.Every, w.Fn, w.AlignStart)
		}
	}
	pivot := func() {
		if len(req.Fields) > 1 || req.MultiIndex || len(req.Groups) == 0 {
			q.AddPivot(append(append([]string{}, req.Groups...), "_field")...)
		} else {
			q.AddPivot(req.Groups...)
		}
	}

	if dialect == DialectLegacy {
		rangeAndWindow()
		pivot()
		targeted()
	} else {
		targeted()
		rangeAndWindow()
		pivot()
	}

	for _, s := range req.Scaling {
		// Scale bounds default to the request range, not the sub-window,
		// so every chunk renders the same correction interval.
		if s.Start == nil {
			s.Start = &req.Start
		}
		if s.End == nil {
			s.End = &req.End
		}
		q.AddScale(s)
	}

	return q.String(), extra
}

func quoteJoin(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = strconv.Quote(n)
	}
	return strings.Join(quoted, ", ")
}

// formatFloat renders a numeric literal in plain decimal form. Flux float
// literals do not accept scientific notation, so 'g' is out.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

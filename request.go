package caderidflux

import (
	"fmt"
	"time"
)

// QueryRequest describes one logical fetch. It is constructed once per call
// and never mutated by the client.
type QueryRequest struct {
	// Bucket is the bucket the data lives in.
	Bucket string

	// Measurement is the measurement name rows must match.
	Measurement string

	// Start and End bound the fetch; Start is inclusive, End exclusive.
	Start time.Time
	End   time.Time

	// Fields are the measurands to return. At least one is required.
	Fields []string

	// Groups are the tag keys rows are grouped and pivoted by.
	Groups []string

	// BoolFilters restrict rows by tag value. An entry with a Col masks
	// that column's value instead of dropping rows (see BoolFilter).
	BoolFilters map[string]BoolFilter

	// RangeFilters keep only rows whose sibling field lies inside a bound.
	RangeFilters []RangeFilter

	// Window configures the aggregate window. Ignored unless Aggregate.
	Window WindowSpec

	// Scaling applies linear corrections to named columns over sub-ranges.
	Scaling []ScaleSpec

	// Split selects the calendar unit the fetch is chunked by.
	Split SplitUnit

	// MultiIndex decomposes output column names into (group, field) keys.
	MultiIndex bool

	// Aggregate enables the aggregate window stage.
	Aggregate bool
}

// BoolFilter is the value side of a boolean tag filter. With an empty Col
// the filter drops rows whose tag differs from Value. With Col set, the
// filter instead nulls Col's value on rows where the tag differs, leaving
// other columns untouched.
type BoolFilter struct {
	Value string
	Col   string
}

// RangeFilter keeps rows only while the named field lies between Min and
// Max. The equal flags choose inclusive or exclusive comparisons per bound.
type RangeFilter struct {
	Field    string
	Min      float64
	Max      float64
	MinEqual bool
	MaxEqual bool
}

// WindowSpec configures windowed aggregation.
type WindowSpec struct {
	// Every is the window size as a Flux duration, e.g. "1h".
	Every string

	// Fn is the aggregation function name, e.g. "mean".
	Fn string

	// AlignStart stamps output rows with the window start instead of the
	// window end.
	AlignStart bool
}

// ScaleSpec multiplies then offsets a column's values whose timestamps fall
// in [Start, End). Nil bounds default to the request's own start and end, so
// every chunk renders the same correction interval.
type ScaleSpec struct {
	Field  string
	Start  *time.Time
	End    *time.Time
	Slope  float64
	Offset float64
}

// Validate checks the request exhaustively before any query is rendered.
func (r *QueryRequest) Validate() error {
	if err := validateIdentifier("bucket", r.Bucket); err != nil {
		return err
	}
	if err := validateIdentifier("measurement", r.Measurement); err != nil {
		return err
	}
	if r.End.Before(r.Start) {
		return fmt.Errorf("%w: end %s before start %s",
			ErrInvalidTimeRange, toRFC3339(r.End), toRFC3339(r.Start))
	}
	if len(r.Fields) == 0 {
		return ErrNoFields
	}
	for _, f := range r.Fields {
		if err := validateIdentifier("field", f); err != nil {
			return err
		}
	}
	for _, g := range r.Groups {
		if err := validateIdentifier("group", g); err != nil {
			return err
		}
	}
	for key, bf := range r.BoolFilters {
		if err := validateIdentifier("filter key", key); err != nil {
			return err
		}
		if err := validateIdentifier("filter value", bf.Value); err != nil {
			return err
		}
		if bf.Col != "" {
			if err := validateIdentifier("filter column", bf.Col); err != nil {
				return err
			}
		}
	}
	for _, rf := range r.RangeFilters {
		if err := validateIdentifier("range filter field", rf.Field); err != nil {
			return err
		}
		if err := validateFinite("range filter bound", rf.Min, rf.Max); err != nil {
			return err
		}
		if rf.Min > rf.Max {
			return fmt.Errorf("%w: field %q min %v > max %v",
				ErrInvertedBounds, rf.Field, rf.Min, rf.Max)
		}
	}
	if r.Aggregate {
		w := r.Window.withDefaults()
		if err := validateDuration(w.Every); err != nil {
			return err
		}
		if err := validateFuncName(w.Fn); err != nil {
			return err
		}
	}
	for _, s := range r.Scaling {
		if err := validateIdentifier("scaling field", s.Field); err != nil {
			return err
		}
		if err := validateFinite("scaling coefficient", s.Slope, s.Offset); err != nil {
			return err
		}
	}
	return nil
}

// extraFields returns the field names referenced only by range filters.
// They are queried so the bound comparisons can see them, then dropped from
// the output.
func (r *QueryRequest) extraFields() []string {
	requested := make(map[string]struct{}, len(r.Fields))
	for _, f := range r.Fields {
		requested[f] = struct{}{}
	}
	var extra []string
	seen := make(map[string]struct{})
	for _, rf := range r.RangeFilters {
		if _, ok := requested[rf.Field]; ok {
			continue
		}
		if _, ok := seen[rf.Field]; ok {
			continue
		}
		seen[rf.Field] = struct{}{}
		extra = append(extra, rf.Field)
	}
	return extra
}

func (w WindowSpec) withDefaults() WindowSpec {
	if w.Every == "" {
		w.Every = "1h"
	}
	if w.Fn == "" {
		w.Fn = "mean"
	}
	return w
}

package caderidflux

import (
	"sort"
	"time"
)

// ValueKind enumerates the cell types a query can return.
type ValueKind int

const (
	// ValueNull marks a missing or explicitly null cell.
	ValueNull ValueKind = iota
	// ValueFloat holds a double.
	ValueFloat
	// ValueInt holds a signed integer.
	ValueInt
	// ValueUint holds an unsigned integer.
	ValueUint
	// ValueBool holds a boolean.
	ValueBool
	// ValueString holds a string.
	ValueString
)

// Value is one nullable typed cell.
type Value struct {
	Kind  ValueKind
	Float float64
	Int   int64
	Uint  uint64
	Bool  bool
	Str   string
}

// NullValue returns a null cell.
func NullValue() Value { return Value{} }

// FloatValue returns a double cell.
func FloatValue(f float64) Value { return Value{Kind: ValueFloat, Float: f} }

// IntValue returns a signed integer cell.
func IntValue(i int64) Value { return Value{Kind: ValueInt, Int: i} }

// UintValue returns an unsigned integer cell.
func UintValue(u uint64) Value { return Value{Kind: ValueUint, Uint: u} }

// BoolValue returns a boolean cell.
func BoolValue(b bool) Value { return Value{Kind: ValueBool, Bool: b} }

// StringValue returns a string cell.
func StringValue(s string) Value { return Value{Kind: ValueString, Str: s} }

// IsNull reports whether the cell is null.
func (v Value) IsNull() bool { return v.Kind == ValueNull }

// ColumnKey identifies one output column. Group is empty for flat results;
// multi-index results decompose pivoted column names into (group, field).
type ColumnKey struct {
	Group string
	Field string
}

// String renders the key the way the server names pivoted columns.
func (k ColumnKey) String() string {
	if k.Group == "" {
		return k.Field
	}
	return k.Group + "_" + k.Field
}

// Frame is a timestamp-indexed table of named values. Timestamps are held in
// append order until Sort is called; after a merge the index is strictly
// ascending with no duplicates.
type Frame struct {
	cols  []ColumnKey
	times []int64
	rows  map[int64]map[ColumnKey]Value
}

// NewFrame returns an empty frame.
func NewFrame() *Frame {
	return &Frame{rows: make(map[int64]map[ColumnKey]Value)}
}

// Len returns the number of rows.
func (f *Frame) Len() int { return len(f.times) }

// Empty reports whether the frame holds no rows.
func (f *Frame) Empty() bool { return len(f.times) == 0 }

// Columns returns the column keys in order.
func (f *Frame) Columns() []ColumnKey {
	out := make([]ColumnKey, len(f.cols))
	copy(out, f.cols)
	return out
}

// Times returns the row timestamps in index order.
func (f *Frame) Times() []time.Time {
	out := make([]time.Time, len(f.times))
	for i, ns := range f.times {
		out[i] = time.Unix(0, ns).UTC()
	}
	return out
}

// Value returns the cell at (t, col) and whether the row exists. A row that
// exists but carries no cell for col yields a null value.
func (f *Frame) Value(t time.Time, col ColumnKey) (Value, bool) {
	row, ok := f.rows[t.UnixNano()]
	if !ok {
		return Value{}, false
	}
	return row[col], true
}

// Set stores a cell, creating the row and registering the column as needed.
// Within a frame, later cells overwrite earlier ones at the same position.
func (f *Frame) Set(t time.Time, col ColumnKey, v Value) {
	f.addColumn(col)
	ns := t.UnixNano()
	row, ok := f.rows[ns]
	if !ok {
		row = make(map[ColumnKey]Value)
		f.rows[ns] = row
		f.times = append(f.times, ns)
	}
	row[col] = v
}

// Append merges chunk into f in first-occurrence-wins order: rows whose
// timestamp already exists in f are discarded whole, matching re-fetches of
// overlapping sub-windows. Column sets are unioned. Call Sort afterwards to
// restore the ascending index.
func (f *Frame) Append(chunk *Frame) {
	if chunk == nil {
		return
	}
	for _, col := range chunk.cols {
		f.addColumn(col)
	}
	for _, ns := range chunk.times {
		if _, ok := f.rows[ns]; ok {
			continue
		}
		src := chunk.rows[ns]
		row := make(map[ColumnKey]Value, len(src))
		for col, v := range src {
			row[col] = v
		}
		f.rows[ns] = row
		f.times = append(f.times, ns)
	}
}

// Sort orders the row index ascending by timestamp.
func (f *Frame) Sort() {
	sort.Slice(f.times, func(i, j int) bool { return f.times[i] < f.times[j] })
}

// Clone returns a deep copy. The caller owns the copy outright.
func (f *Frame) Clone() *Frame {
	out := NewFrame()
	out.cols = append(out.cols, f.cols...)
	out.times = append(out.times, f.times...)
	for ns, row := range f.rows {
		dst := make(map[ColumnKey]Value, len(row))
		for col, v := range row {
			dst[col] = v
		}
		out.rows[ns] = dst
	}
	return out
}

func (f *Frame) addColumn(col ColumnKey) {
	for _, c := range f.cols {
		if c == col {
			return
		}
	}
	f.cols = append(f.cols, col)
}

// withoutColumns returns a copy omitting every column drop reports true for.
func (f *Frame) withoutColumns(drop func(ColumnKey) bool) *Frame {
	out := NewFrame()
	for _, col := range f.cols {
		if !drop(col) {
			out.cols = append(out.cols, col)
		}
	}
	out.times = append(out.times, f.times...)
	for ns, row := range f.rows {
		dst := make(map[ColumnKey]Value, len(row))
		for col, v := range row {
			if !drop(col) {
				dst[col] = v
			}
		}
		out.rows[ns] = dst
	}
	return out
}

// renameColumns returns a copy with every column key passed through rename.
func (f *Frame) renameColumns(rename func(ColumnKey) ColumnKey) *Frame {
	out := NewFrame()
	for _, col := range f.cols {
		out.addColumn(rename(col))
	}
	out.times = append(out.times, f.times...)
	for ns, row := range f.rows {
		dst := make(map[ColumnKey]Value, len(row))
		for col, v := range row {
			dst[rename(col)] = v
		}
		out.rows[ns] = dst
	}
	return out
}

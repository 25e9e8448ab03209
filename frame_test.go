package caderidflux

import (
	"testing"
	"time"
)

func TestFrameSetAndValue(t *testing.T) {
	f := NewFrame()
	ts := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	col := ColumnKey{Field: "pm2.5"}

	f.Set(ts, col, FloatValue(12.5))

	v, ok := f.Value(ts, col)
	if !ok {
		t.Fatal("row not found")
	}
	if v.Kind != ValueFloat || v.Float != 12.5 {
		t.Errorf("got %+v, want float 12.5", v)
	}

	// Missing cell on an existing row reads as null.
	v, ok = f.Value(ts, ColumnKey{Field: "pm10"})
	if !ok {
		t.Fatal("row should exist")
	}
	if !v.IsNull() {
		t.Errorf("got %+v, want null", v)
	}

	if _, ok := f.Value(ts.Add(time.Hour), col); ok {
		t.Error("unexpected row at unset timestamp")
	}
}

func TestFrameSetOverwritesCell(t *testing.T) {
	f := NewFrame()
	ts := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	col := ColumnKey{Field: "pm2.5"}

	f.Set(ts, col, FloatValue(1))
	f.Set(ts, col, FloatValue(2))

	if v, _ := f.Value(ts, col); v.Float != 2 {
		t.Errorf("got %v, want 2", v.Float)
	}
	if f.Len() != 1 {
		t.Errorf("Len() = %d, want 1", f.Len())
	}
}

func TestFrameAppendFirstWins(t *testing.T) {
	base := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	col := ColumnKey{Field: "pm2.5"}

	first := NewFrame()
	first.Set(base, col, FloatValue(1))
	first.Set(base.Add(time.Hour), col, FloatValue(2))

	second := NewFrame()
	second.Set(base.Add(time.Hour), col, FloatValue(99)) // duplicate timestamp
	second.Set(base.Add(2*time.Hour), col, FloatValue(3))

	first.Append(second)
	first.Sort()

	if first.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", first.Len())
	}
	if v, _ := first.Value(base.Add(time.Hour), col); v.Float != 2 {
		t.Errorf("duplicate row overwritten: got %v, want 2", v.Float)
	}
	if v, _ := first.Value(base.Add(2*time.Hour), col); v.Float != 3 {
		t.Errorf("new row missing: got %v, want 3", v.Float)
	}
}

func TestFrameAppendUnionsColumns(t *testing.T) {
	base := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	first := NewFrame()
	first.Set(base, ColumnKey{Field: "pm2.5"}, FloatValue(1))

	second := NewFrame()
	second.Set(base.Add(time.Hour), ColumnKey{Field: "pm10"}, FloatValue(2))

	first.Append(second)

	cols := first.Columns()
	if len(cols) != 2 {
		t.Fatalf("Columns() = %v, want 2 entries", cols)
	}
	if cols[0] != (ColumnKey{Field: "pm2.5"}) || cols[1] != (ColumnKey{Field: "pm10"}) {
		t.Errorf("column order = %v", cols)
	}
}

func TestFrameSort(t *testing.T) {
	base := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	col := ColumnKey{Field: "pm2.5"}

	f := NewFrame()
	f.Set(base.Add(2*time.Hour), col, FloatValue(3))
	f.Set(base, col, FloatValue(1))
	f.Set(base.Add(time.Hour), col, FloatValue(2))
	f.Sort()

	times := f.Times()
	for i := 1; i < len(times); i++ {
		if !times[i-1].Before(times[i]) {
			t.Errorf("index not ascending at %d: %s >= %s", i, times[i-1], times[i])
		}
	}
}

func TestFrameCloneIsIndependent(t *testing.T) {
	base := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	col := ColumnKey{Field: "pm2.5"}

	f := NewFrame()
	f.Set(base, col, FloatValue(1))

	clone := f.Clone()
	clone.Set(base, col, FloatValue(99))
	clone.Set(base.Add(time.Hour), col, FloatValue(2))

	if v, _ := f.Value(base, col); v.Float != 1 {
		t.Errorf("original mutated through clone: got %v", v.Float)
	}
	if f.Len() != 1 {
		t.Errorf("original Len() = %d, want 1", f.Len())
	}
}

func TestColumnKeyString(t *testing.T) {
	tests := []struct {
		key  ColumnKey
		want string
	}{
		{ColumnKey{Field: "pm2.5"}, "pm2.5"},
		{ColumnKey{Group: "indoor", Field: "pm2.5"}, "indoor_pm2.5"},
	}
	for _, tt := range tests {
		if got := tt.key.String(); got != tt.want {
			t.Errorf("String(%+v) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

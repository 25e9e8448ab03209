package caderidflux

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestDecodeAnnotatedCSV(t *testing.T) {
	body := strings.Join([]string{
		"#datatype,string,long,dateTime:RFC3339,double,string",
		"#group,false,false,false,false,true",
		"#default,_result,,,,",
		",result,table,_time,pm2.5,site",
		",,0,2023-01-01T00:00:00Z,12.5,roadside",
		",,0,2023-01-01T01:00:00Z,,roadside",
		"",
	}, "\n")

	frame, err := decodeAnnotatedCSV(strings.NewReader(body))
	if err != nil {
		t.Fatalf("decodeAnnotatedCSV() = %v", err)
	}
	if frame.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", frame.Len())
	}

	t0 := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	if v, ok := frame.Value(t0, ColumnKey{Field: "pm2.5"}); !ok || v.Kind != ValueFloat || v.Float != 12.5 {
		t.Errorf("pm2.5 at t0 = %+v, want float 12.5", v)
	}
	if v, _ := frame.Value(t0, ColumnKey{Field: "site"}); v.Str != "roadside" {
		t.Errorf("site at t0 = %+v, want roadside", v)
	}
	// The #default row backfills the empty result column.
	if v, _ := frame.Value(t0, ColumnKey{Field: "result"}); v.Str != "_result" {
		t.Errorf("result at t0 = %+v, want _result", v)
	}

	// An empty cell with no default is null, not zero.
	t1 := t0.Add(time.Hour)
	if v, _ := frame.Value(t1, ColumnKey{Field: "pm2.5"}); !v.IsNull() {
		t.Errorf("pm2.5 at t1 = %+v, want null", v)
	}
}

func TestDecodeAnnotatedCSVDatatypes(t *testing.T) {
	body := strings.Join([]string{
		"#datatype,dateTime:RFC3339,double,long,unsignedLong,boolean,string",
		",_time,d,l,u,b,s",
		",2023-01-01T00:00:00Z,1.5,-3,7,true,hello",
		"",
	}, "\n")

	frame, err := decodeAnnotatedCSV(strings.NewReader(body))
	if err != nil {
		t.Fatalf("decodeAnnotatedCSV() = %v", err)
	}

	ts := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	checks := []struct {
		col  string
		want Value
	}{
		{"d", FloatValue(1.5)},
		{"l", IntValue(-3)},
		{"u", UintValue(7)},
		{"b", BoolValue(true)},
		{"s", StringValue("hello")},
	}
	for _, c := range checks {
		if v, _ := frame.Value(ts, ColumnKey{Field: c.col}); v != c.want {
			t.Errorf("column %s = %+v, want %+v", c.col, v, c.want)
		}
	}
}

func TestDecodeAnnotatedCSVMultipleTables(t *testing.T) {
	body := strings.Join([]string{
		"#datatype,dateTime:RFC3339,double",
		",_time,pm2.5",
		",2023-01-01T00:00:00Z,1",
		"",
		"#datatype,dateTime:RFC3339,double",
		",_time,pm10",
		",2023-01-01T00:00:00Z,2",
		"",
	}, "\n")

	frame, err := decodeAnnotatedCSV(strings.NewReader(body))
	if err != nil {
		t.Fatalf("decodeAnnotatedCSV() = %v", err)
	}

	ts := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	if frame.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 (tables share the timestamp)", frame.Len())
	}
	if v, _ := frame.Value(ts, ColumnKey{Field: "pm2.5"}); v.Float != 1 {
		t.Errorf("pm2.5 = %+v, want 1", v)
	}
	if v, _ := frame.Value(ts, ColumnKey{Field: "pm10"}); v.Float != 2 {
		t.Errorf("pm10 = %+v, want 2", v)
	}
}

func TestDecodeAnnotatedCSVEmptyBody(t *testing.T) {
	frame, err := decodeAnnotatedCSV(strings.NewReader(""))
	if err != nil {
		t.Fatalf("decodeAnnotatedCSV() = %v", err)
	}
	if !frame.Empty() {
		t.Errorf("Len() = %d, want empty frame", frame.Len())
	}
}

func TestDecodeAnnotatedCSVMissingTime(t *testing.T) {
	body := strings.Join([]string{
		"#datatype,string,double",
		",site,pm2.5",
		",roadside,12.5",
		"",
	}, "\n")

	_, err := decodeAnnotatedCSV(strings.NewReader(body))
	if !errors.Is(err, ErrUnexpectedSchema) {
		t.Errorf("decodeAnnotatedCSV() = %v, want ErrUnexpectedSchema", err)
	}
}

func TestDecodeAnnotatedCSVBadTimestamp(t *testing.T) {
	body := strings.Join([]string{
		"#datatype,dateTime:RFC3339,double",
		",_time,pm2.5",
		",not-a-time,12.5",
		"",
	}, "\n")

	_, err := decodeAnnotatedCSV(strings.NewReader(body))
	if !errors.Is(err, ErrUnexpectedSchema) {
		t.Errorf("decodeAnnotatedCSV() = %v, want ErrUnexpectedSchema", err)
	}
}

func TestDecodeAnnotatedCSVNanosecondTimestamps(t *testing.T) {
	body := strings.Join([]string{
		"#datatype,dateTime:RFC3339,double",
		",_time,pm2.5",
		",2023-01-01T00:00:00.123456789Z,12.5",
		"",
	}, "\n")

	frame, err := decodeAnnotatedCSV(strings.NewReader(body))
	if err != nil {
		t.Fatalf("decodeAnnotatedCSV() = %v", err)
	}
	ts := time.Date(2023, 1, 1, 0, 0, 0, 123456789, time.UTC)
	if _, ok := frame.Value(ts, ColumnKey{Field: "pm2.5"}); !ok {
		t.Errorf("row at %s not found; times = %v", ts, frame.Times())
	}
}

package caderidflux

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// decodeAnnotatedCSV parses a query response in annotated CSV form into a
// frame indexed by the _time column. Responses may carry several tables;
// their rows land in one frame, with cells merged by timestamp and column.
//
// An empty body decodes to an empty frame. Data rows in a table without a
// _time column are a schema violation, not missing data.
func decodeAnnotatedCSV(r io.Reader) (*Frame, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	frame := NewFrame()
	var datatypes, defaults, header []string
	timeIdx := -1

	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode csv: %w", err)
		}
		if len(record) == 0 {
			continue
		}

		if strings.HasPrefix(record[0], "#") {
			switch record[0] {
			case "#datatype":
				datatypes = record
				defaults = nil
				header = nil
				timeIdx = -1
			case "#default":
				defaults = record
			}
			continue
		}

		if header == nil {
			header = record
			for i, name := range header {
				if name == "_time" {
					timeIdx = i
					break
				}
			}
			continue
		}

		if timeIdx < 0 || timeIdx >= len(record) {
			return nil, fmt.Errorf("%w: data row without _time column", ErrUnexpectedSchema)
		}
		ts, err := time.Parse(time.RFC3339Nano, record[timeIdx])
		if err != nil {
			return nil, fmt.Errorf("%w: bad _time value %q", ErrUnexpectedSchema, record[timeIdx])
		}

		for i, raw := range record {
			if i == timeIdx || i >= len(header) {
				continue
			}
			name := header[i]
			if name == "" {
				continue
			}
			if raw == "" && defaults != nil && i < len(defaults) {
				raw = defaults[i]
			}
			frame.Set(ts, ColumnKey{Field: name}, parseCell(raw, datatypeAt(datatypes, i)))
		}
	}

	return frame, nil
}

func datatypeAt(datatypes []string, i int) string {
	if i >= len(datatypes) {
		return ""
	}
	return datatypes[i]
}

// parseCell coerces one CSV cell per its #datatype annotation. Cells the
// server left empty, or that fail to parse, become nulls rather than
// fabricated values.
func parseCell(raw, datatype string) Value {
	if raw == "" {
		return NullValue()
	}
	switch {
	case datatype == "double":
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return NullValue()
		}
		return FloatValue(f)
	case datatype == "long":
		i, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return NullValue()
		}
		return IntValue(i)
	case datatype == "unsignedLong":
		u, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return NullValue()
		}
		return UintValue(u)
	case datatype == "boolean":
		return BoolValue(raw == "true")
	default:
		return StringValue(raw)
	}
}

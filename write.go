package caderidflux

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Point is a single measurement sample destined for a bucket. Fields holds
// the actual values; Tags are indexed metadata. A zero Time lets the server
// assign the receive timestamp.
type Point struct {
	Measurement string
	Tags        map[string]string
	Fields      map[string]any
	Time        time.Time
}

// EncodeLineProtocol renders points in InfluxDB line protocol at nanosecond
// precision, one line per point. Points without a measurement or without any
// fields are rejected up front so a bad batch never reaches the wire.
func EncodeLineProtocol(points []Point) ([]byte, error) {
	var buf bytes.Buffer
	for i, p := range points {
		if err := encodePoint(&buf, p); err != nil {
			return nil, fmt.Errorf("point %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

func encodePoint(buf *bytes.Buffer, p Point) error {
	if p.Measurement == "" {
		return fmt.Errorf("%w: empty measurement", ErrInvalidPoint)
	}
	if len(p.Fields) == 0 {
		return fmt.Errorf("%w: no fields", ErrInvalidPoint)
	}

	buf.WriteString(escapeMeasurement(p.Measurement))

	tagKeys := make([]string, 0, len(p.Tags))
	for k := range p.Tags {
		tagKeys = append(tagKeys, k)
	}
	sort.Strings(tagKeys)
	for _, k := range tagKeys {
		buf.WriteByte(',')
		buf.WriteString(escapeTag(k))
		buf.WriteByte('=')
		buf.WriteString(escapeTag(p.Tags[k]))
	}

	buf.WriteByte(' ')

	fieldKeys := make([]string, 0, len(p.Fields))
	for k := range p.Fields {
		fieldKeys = append(fieldKeys, k)
	}
	sort.Strings(fieldKeys)
	for i, k := range fieldKeys {
		if i > 0 {
			buf.WriteByte(',')
		}
		val, err := formatFieldValue(p.Fields[k])
		if err != nil {
			return fmt.Errorf("field %q: %w", k, err)
		}
		buf.WriteString(escapeTag(k))
		buf.WriteByte('=')
		buf.WriteString(val)
	}

	if !p.Time.IsZero() {
		buf.WriteByte(' ')
		buf.WriteString(strconv.FormatInt(p.Time.UnixNano(), 10))
	}
	buf.WriteByte('\n')
	return nil
}

func formatFieldValue(v any) (string, error) {
	switch val := v.(type) {
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(val), 'g', -1, 32), nil
	case int:
		return strconv.FormatInt(int64(val), 10) + "i", nil
	case int32:
		return strconv.FormatInt(int64(val), 10) + "i", nil
	case int64:
		return strconv.FormatInt(val, 10) + "i", nil
	case uint:
		return strconv.FormatUint(uint64(val), 10) + "u", nil
	case uint32:
		return strconv.FormatUint(uint64(val), 10) + "u", nil
	case uint64:
		return strconv.FormatUint(val, 10) + "u", nil
	case bool:
		return strconv.FormatBool(val), nil
	case string:
		return `"` + escapeStringField(val) + `"`, nil
	default:
		return "", fmt.Errorf("%w: unsupported field type %T", ErrInvalidPoint, v)
	}
}

// framePoints converts a frame's rows into points under one measurement.
// String cells become tags, every other kind becomes a field. Null cells
// are skipped, and rows left without any field value produce no point.
func framePoints(measurement string, f *Frame) []Point {
	cols := f.Columns()
	var points []Point
	for _, ts := range f.Times() {
		p := Point{Measurement: measurement, Time: ts}
		for _, col := range cols {
			v, ok := f.Value(ts, col)
			if !ok || v.IsNull() {
				continue
			}
			if v.Kind == ValueString {
				if p.Tags == nil {
					p.Tags = make(map[string]string)
				}
				p.Tags[col.String()] = v.Str
				continue
			}
			if p.Fields == nil {
				p.Fields = make(map[string]any)
			}
			p.Fields[col.String()] = fieldValue(v)
		}
		if len(p.Fields) == 0 {
			continue
		}
		points = append(points, p)
	}
	return points
}

func fieldValue(v Value) any {
	switch v.Kind {
	case ValueFloat:
		return v.Float
	case ValueInt:
		return v.Int
	case ValueUint:
		return v.Uint
	case ValueBool:
		return v.Bool
	default:
		return v.Str
	}
}

var (
	measurementEscaper = strings.NewReplacer(",", `\,`, " ", `\ `)
	tagEscaper         = strings.NewReplacer(",", `\,`, "=", `\=`, " ", `\ `)
	stringEscaper      = strings.NewReplacer(`\`, `\\`, `"`, `\"`)
)

func escapeMeasurement(s string) string { return measurementEscaper.Replace(s) }
func escapeTag(s string) string         { return tagEscaper.Replace(s) }
func escapeStringField(s string) string { return stringEscaper.Replace(s) }

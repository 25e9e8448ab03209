package caderidflux

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// Client fetches measurement data in calendar-sized chunks and accumulates
// the normalized results across calls. A failed Fetch leaves the accumulator
// exactly as it was; only a fully successful call commits its rows.
//
// Client is safe for concurrent use.
type Client struct {
	config Config
	exec   QueryExecutor
	logger *slog.Logger

	mu      sync.Mutex
	results *Frame
}

// NewClient validates config and builds a client backed by an HTTP executor.
func NewClient(config Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return NewClientWith(NewHTTPExecutor(config), config), nil
}

// NewClientWith builds a client over a caller-supplied executor. Used by
// tests and by integrations that bring their own transport.
func NewClientWith(exec QueryExecutor, config Config) *Client {
	return &Client{
		config:  config,
		exec:    exec,
		logger:  config.logger(),
		results: NewFrame(),
	}
}

// Fetch validates the request, splits its time range per req.Split, queries
// each sub-window in order, normalizes the chunks, and merges them into the
// accumulator. Rows already accumulated win over rows re-fetched for the
// same timestamp, so overlapping fetches are idempotent.
//
// Any executor failure aborts the whole call and is returned wrapped in a
// *FetchError carrying the sub-window and the exact Flux text that failed.
func (c *Client) Fetch(ctx context.Context, req *QueryRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	windows := SplitRange(req.Start, req.End, req.Split)
	fetched := NewFrame()

	for _, win := range windows {
		flux, extra := buildRequestQuery(req, win, c.dialect())

		raw, err := c.exec.Query(ctx, c.config.Organisation, flux)
		if err != nil {
			return &FetchError{Window: win, Query: flux, Cause: err}
		}
		if raw == nil || raw.Empty() {
			c.logger.Debug("empty chunk",
				"measurement", req.Measurement,
				"start", win.Start,
				"end", win.End)
			continue
		}

		chunk, err := normalizeChunk(raw, req, extra)
		if err != nil {
			return &FetchError{Window: win, Query: flux, Cause: err}
		}
		fetched.Append(chunk)
		c.logger.Debug("chunk fetched",
			"measurement", req.Measurement,
			"start", win.Start,
			"end", win.End,
			"rows", chunk.Len())
	}

	c.mu.Lock()
	c.results.Append(fetched)
	c.results.Sort()
	c.mu.Unlock()
	return nil
}

// FetchCustom executes a caller-assembled pipeline through the client's
// executor and returns the decoded frame sorted by time, with bookkeeping
// columns stripped. The result stays separate from the accumulator; custom
// queries own their output shape, so no normalization beyond column
// stripping is applied.
func (c *Client) FetchCustom(ctx context.Context, q *FluxQuery) (*Frame, error) {
	flux := q.String()
	raw, err := c.exec.Query(ctx, c.config.Organisation, flux)
	if err != nil {
		return nil, &FetchError{
			Window: SubWindow{Start: q.start, End: q.end},
			Query:  flux,
			Cause:  err,
		}
	}
	f := raw.withoutColumns(func(col ColumnKey) bool {
		_, ok := bookkeepingColumns[col.Field]
		return ok
	})
	f.Sort()
	return f, nil
}

// Results returns a deep copy of the accumulated frame, sorted by time.
func (c *Client) Results() *Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.results.Clone()
}

// Clear discards everything accumulated so far.
func (c *Client) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = NewFrame()
}

// Write sends points to a bucket under the client's organisation.
func (c *Client) Write(ctx context.Context, bucket string, points ...Point) error {
	return c.exec.Write(ctx, bucket, c.config.Organisation, points)
}

// WriteFrame writes a frame's rows back as points under one measurement.
// String columns are promoted to tags, every other column kind to fields.
// A frame with no field-bearing rows writes nothing and returns nil.
func (c *Client) WriteFrame(ctx context.Context, bucket, measurement string, f *Frame) error {
	points := framePoints(measurement, f)
	if len(points) == 0 {
		return nil
	}
	return c.exec.Write(ctx, bucket, c.config.Organisation, points)
}

func (c *Client) dialect() Dialect {
	if c.config.Dialect == "" {
		return DialectCurrent
	}
	return c.config.Dialect
}

var bookkeepingColumns = map[string]struct{}{
	"result": {},
	"table":  {},
	"_start": {},
	"_stop":  {},
}

// normalizeChunk strips bookkeeping and helper columns from a raw chunk and
// applies the request's column shaping. A chunk that ends up with no value
// columns at all means the response did not have the shape the pipeline
// guarantees, which is an error rather than empty data.
func normalizeChunk(raw *Frame, req *QueryRequest, extra []string) (*Frame, error) {
	f := raw.withoutColumns(func(c ColumnKey) bool {
		_, ok := bookkeepingColumns[c.Field]
		return ok
	})
	if len(extra) > 0 {
		f = f.withoutColumns(func(c ColumnKey) bool {
			return isExtraColumn(c.Field, extra)
		})
	}
	if len(req.Fields) == 1 {
		f = f.withoutColumns(func(c ColumnKey) bool {
			return c.Field == "_field"
		})
	}
	if req.MultiIndex {
		f = f.renameColumns(splitColumnKey)
	}
	if len(f.cols) == 0 {
		return nil, fmt.Errorf("%w: no value columns after normalization", ErrUnexpectedSchema)
	}
	return f, nil
}

// isExtraColumn matches columns produced for range-filter-only fields, both
// bare ("pm10") and group-prefixed ("indoor_pm10") forms.
func isExtraColumn(name string, extra []string) bool {
	for _, e := range extra {
		if name == e || strings.HasSuffix(name, "_"+e) {
			return true
		}
	}
	return false
}

// splitColumnKey splits a pivoted "group_field" column name at the first
// underscore. Names with no underscore, or a leading one, pass through.
func splitColumnKey(c ColumnKey) ColumnKey {
	if c.Group != "" {
		return c
	}
	if i := strings.Index(c.Field, "_"); i > 0 && i < len(c.Field)-1 {
		return ColumnKey{Group: c.Field[:i], Field: c.Field[i+1:]}
	}
	return c
}

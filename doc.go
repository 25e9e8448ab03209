// Package caderidflux is a client library for querying and writing InfluxDB
// 2.x measurement data over Flux.
//
// Queries are described declaratively as a QueryRequest, rendered into Flux
// pipelines, and executed one calendar-aligned sub-window at a time so that
// large ranges arrive in bounded chunks. Chunks are normalized and merged
// into a single time-indexed Frame, with re-fetched timestamps deduplicated
// in favour of the rows seen first.
//
// # Basic Usage
//
// Build a client from configuration:
//
//	config := caderidflux.DefaultConfig()
//	config.IP = "https://influx.example.com"
//	config.Token = os.Getenv("INFLUX_TOKEN")
//	config.Organisation = "aston"
//
//	client, err := caderidflux.NewClient(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Fetch a range of measurements, one month per query:
//
//	err := client.Fetch(ctx, &caderidflux.QueryRequest{
//	    Bucket:      "air-quality",
//	    Measurement: "pm_sensor",
//	    Start:       start,
//	    End:         end,
//	    Fields:      []string{"pm2.5", "pm10"},
//	    Split:       caderidflux.SplitMonth,
//	    Window:      caderidflux.WindowSpec{Every: "1h", Fn: "mean"},
//	})
//
// Accumulated rows survive across calls until Clear:
//
//	frame := client.Results()
//
// Write points back with line protocol:
//
//	err := client.Write(ctx, "air-quality", caderidflux.Point{
//	    Measurement: "pm_sensor",
//	    Tags:        map[string]string{"site": "roadside"},
//	    Fields:      map[string]any{"pm2.5": 12.4},
//	    Time:        time.Now(),
//	})
//
// # Features
//
// Query pipeline:
//   - Field and tag filtering, grouping, and targeted value masking
//   - Range filters over helper fields with configurable bound inclusivity
//   - aggregateWindow downsampling with start or stop aligned timestamps
//   - Piecewise linear scaling over half-open time intervals
//
// Chunked execution:
//   - Hour, day, and week splits by fixed stepping with end clipping
//   - Month and year splits aligned to calendar boundaries
//   - Empty sub-windows logged and skipped, never treated as failures
//   - Executor failures abort the call and leave the accumulator untouched
//
// Transport:
//   - Token-authenticated /api/v2/query and /api/v2/write
//   - Annotated CSV decoding and gzip compression on both paths
//   - Exponential backoff retries for transient HTTP failures
//   - Hand-assembled pipelines via FetchCustom, frame write-back via
//     WriteFrame with string columns promoted to tags
package caderidflux

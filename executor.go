package caderidflux

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
)

// QueryExecutor runs Flux queries and line protocol writes against a
// backend. The HTTP implementation talks to a live InfluxDB 2.x server;
// tests substitute their own.
type QueryExecutor interface {
	// Query executes a Flux script and returns the decoded result frame.
	// A query that matched nothing returns an empty frame, not an error.
	Query(ctx context.Context, org, flux string) (*Frame, error)

	// Write sends points to a bucket at nanosecond precision.
	Write(ctx context.Context, bucket, org string, points []Point) error
}

// HTTPExecutor issues queries and writes over the InfluxDB 2.x v2 API using
// token auth. Transient failures (connection errors, 429, 5xx) are retried
// with exponential backoff; client errors surface immediately.
type HTTPExecutor struct {
	baseURL string
	token   string
	client  HTTPDoer
	retryer *Retryer
	logger  *slog.Logger
}

// NewHTTPExecutor builds an executor from config. The underlying HTTP client
// honours config.Timeout per attempt.
func NewHTTPExecutor(config Config) *HTTPExecutor {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	retry := config.Retry
	if retry.RetryIf == nil {
		retry.RetryIf = transientHTTP
	}
	return &HTTPExecutor{
		baseURL: strings.TrimSuffix(config.URL(), "/"),
		token:   config.Token,
		client:  &http.Client{Timeout: timeout},
		retryer: NewRetryer(retry),
		logger:  config.logger(),
	}
}

// transientHTTP reports whether a failed attempt is worth repeating.
// Schema violations in an otherwise successful response never are.
func transientHTTP(err error) bool {
	if errors.Is(err, ErrUnexpectedSchema) {
		return false
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Retryable()
	}
	return true
}

func (e *HTTPExecutor) Query(ctx context.Context, org, flux string) (*Frame, error) {
	body, err := json.Marshal(map[string]any{
		"query": flux,
		"type":  "flux",
		"dialect": map[string]any{
			"annotations": []string{"datatype", "group", "default"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encode query request: %w", err)
	}
	endpoint := e.baseURL + "/api/v2/query?org=" + url.QueryEscape(org)

	var frame *Frame
	err = e.retryer.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Token "+e.token)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/csv")
		req.Header.Set("Accept-Encoding", "gzip")

		resp, err := e.client.Do(req)
		if err != nil {
			return fmt.Errorf("query request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return readHTTPError(resp)
		}

		reader := io.Reader(resp.Body)
		if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
			gz, err := gzip.NewReader(resp.Body)
			if err != nil {
				return fmt.Errorf("inflate response: %w", err)
			}
			defer gz.Close()
			reader = gz
		}

		f, err := decodeAnnotatedCSV(reader)
		if err != nil {
			return err
		}
		frame = f
		return nil
	})
	if err != nil {
		return nil, err
	}
	return frame, nil
}

func (e *HTTPExecutor) Write(ctx context.Context, bucket, org string, points []Point) error {
	payload, err := EncodeLineProtocol(points)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(payload); err != nil {
		return fmt.Errorf("compress write body: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("compress write body: %w", err)
	}

	endpoint := fmt.Sprintf("%s/api/v2/write?bucket=%s&org=%s&precision=ns",
		e.baseURL, url.QueryEscape(bucket), url.QueryEscape(org))

	return e.retryer.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(buf.Bytes()))
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Token "+e.token)
		req.Header.Set("Content-Type", "text/plain; charset=utf-8")
		req.Header.Set("Content-Encoding", "gzip")

		resp, err := e.client.Do(req)
		if err != nil {
			return fmt.Errorf("write request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
			return readHTTPError(resp)
		}
		io.Copy(io.Discard, resp.Body)
		return nil
	})
}

// readHTTPError turns a non-success response into an HTTPError, pulling the
// server's message out of the JSON error body when one is present.
func readHTTPError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := strings.TrimSpace(string(raw))
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Message != "" {
		msg = payload.Message
	}
	return &HTTPError{StatusCode: resp.StatusCode, Message: msg}
}

package caderidflux

import (
	"fmt"
	"math"
	"net/http"
	"regexp"
	"time"
)

// HTTPDoer is an interface for making HTTP requests.
// It is implemented by *http.Client and can be mocked in tests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// maxIdentifierLen is the maximum accepted length for any name that is
// interpolated into Flux text.
const maxIdentifierLen = 256

// fluxDurationRegex validates Flux duration literals such as "1h" or "1h30m".
var fluxDurationRegex = regexp.MustCompile(`^([0-9]+(ns|us|ms|s|m|h|d|w|mo|y))+$`)

// fluxFuncRegex validates bare Flux function names (aggregateWindow fn:).
var fluxFuncRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// validateIdentifier rejects names that cannot be safely placed inside a
// double-quoted Flux string literal. The builder performs no escaping, so a
// name carrying the delimiter would corrupt the rendered query text.
func validateIdentifier(kind, name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty %s", ErrInvalidIdentifier, kind)
	}
	if len(name) > maxIdentifierLen {
		return fmt.Errorf("%w: %s too long", ErrInvalidIdentifier, kind)
	}
	for _, r := range name {
		if r == '"' || r == '\\' || r < 32 || r == 127 {
			return fmt.Errorf("%w: %s %q", ErrInvalidIdentifier, kind, name)
		}
	}
	return nil
}

// validateFinite rejects NaN and infinite values before they reach the
// builder, where they would render as text Flux cannot parse.
func validateFinite(kind string, values ...float64) error {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s %v", ErrNonFiniteValue, kind, v)
		}
	}
	return nil
}

// validateDuration checks a Flux window duration literal.
func validateDuration(s string) error {
	if !fluxDurationRegex.MatchString(s) {
		return fmt.Errorf("%w: duration %q", ErrInvalidWindow, s)
	}
	return nil
}

// validateFuncName checks a bare aggregation function name.
func validateFuncName(s string) error {
	if !fluxFuncRegex.MatchString(s) {
		return fmt.Errorf("%w: function %q", ErrInvalidWindow, s)
	}
	return nil
}

// toRFC3339 renders an instant the way the query API expects range bounds:
// UTC, second precision, trailing Z.
func toRFC3339(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}

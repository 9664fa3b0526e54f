package retry

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// transientPatterns are error message fragments that indicate a
// network-level failure worth retrying
var transientPatterns = []string{
	"network",
	"timeout",
	"econnrefused",
	"econnreset",
	"socket hang up",
	"fetch failed",
}

var serverErrPattern = regexp.MustCompile(`5\d{2}`)

// StatusCoder is implemented by errors that carry an HTTP status code
type StatusCoder interface {
	StatusCode() int
}

// DefaultPredicate retries server-side and network failures:
// errors exposing a status code of 5xx or 429, and errors whose message
// matches a network-failure pattern or contains a 5xx substring.
// Everything else, including other 4xx codes, is not retried.
func DefaultPredicate(err error, _ int) bool {
	if err == nil {
		return false
	}

	var sc StatusCoder
	if errors.As(err, &sc) {
		code := sc.StatusCode()
		return code >= 500 || code == 429
	}

	msg := strings.ToLower(err.Error())
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return serverErrPattern.MatchString(msg)
}

// NewPredicate builds a predicate matching errors against the given
// patterns. A pattern matches on the error's type name, as a substring
// of its message, or, with a "re:" prefix, as a regular expression
// against the message.
func NewPredicate(patterns ...string) Predicate {
	type matcher func(err error) bool

	matchers := make([]matcher, 0, len(patterns))
	for _, p := range patterns {
		if rest, ok := strings.CutPrefix(p, "re:"); ok {
			re := regexp.MustCompile(rest)
			matchers = append(matchers, func(err error) bool {
				return re.MatchString(err.Error())
			})
			continue
		}
		pattern := p
		matchers = append(matchers, func(err error) bool {
			return strings.Contains(err.Error(), pattern) || errName(err) == pattern
		})
	}

	return func(err error, _ int) bool {
		if err == nil {
			return false
		}
		for _, m := range matchers {
			if m(err) {
				return true
			}
		}
		return false
	}
}

// errName returns the bare dynamic type name of an error
func errName(err error) string {
	name := fmt.Sprintf("%T", err)
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimPrefix(name, "*")
}

package connmock

import (
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
)

// Matcher decides whether an incoming request satisfies a case.
type Matcher interface {
	// Match evaluates req. Errors abort dispatch and surface to the
	// client; they are never treated as a mismatch.
	Match(req *Request) (Report, error)
}

// MatcherFunc adapts a function returning a full Report into a Matcher.
type MatcherFunc func(*Request) (Report, error)

func (f MatcherFunc) Match(req *Request) (Report, error) { return f(req) }

// PredicateFunc adapts a boolean predicate into a Matcher. A false result
// produces a mismatch with no recorded reasons.
type PredicateFunc func(*Request) (bool, error)

func (f PredicateFunc) Match(req *Request) (Report, error) {
	ok, err := f(req)
	if err != nil {
		return Report{}, err
	}
	return Report{Match: ok}, nil
}

// defaultMatcher accepts every request. Cases built without constraints
// use it.
type defaultMatcher struct{}

func (defaultMatcher) Match(*Request) (Report, error) { return Matched(), nil }

type headerCheckMode int

const (
	// headerAtLeastOnce: some entry with the name carries the value.
	headerAtLeastOnce headerCheckMode = iota
	// headerExactlyOnce: exactly one entry with the name exists and it
	// carries the value.
	headerExactlyOnce
	// headerAll: the full multiset of values for the name equals the
	// expected multiset, order-insensitively.
	headerAll
)

type headerCheck struct {
	name   string
	mode   headerCheckMode
	values []string
}

func (hc headerCheck) check(h http.Header) bool {
	vals := h.Values(hc.name)
	switch hc.mode {
	case headerExactlyOnce:
		return len(vals) == 1 && vals[0] == hc.values[0]
	case headerAll:
		if len(vals) != len(hc.values) {
			return false
		}
		got := slices.Clone(vals)
		want := slices.Clone(hc.values)
		slices.Sort(got)
		slices.Sort(want)
		return slices.Equal(got, want)
	default:
		return slices.Contains(vals, hc.values[0])
	}
}

type bodyCheckKind int

const (
	bodyText bodyCheckKind = iota
	bodyJSON
	bodyJSONPartial
)

type bodyCheck struct {
	kind  bodyCheckKind
	text  string
	value any
}

type jsonPathCheck struct {
	path     string
	expr     jp.Expr
	expected any
}

// check reports whether any value selected by the path equals the
// expected value. A nil expectation is an existence check.
func (jc jsonPathCheck) check(payload any) bool {
	results := jc.expr.Get(payload)
	if jc.expected == nil {
		return len(results) > 0
	}
	for _, r := range results {
		if jsonEqual(jc.expected, r) {
			return true
		}
	}
	return false
}

// RequestMatcher matches requests against declared URI, method, header,
// and body constraints. Construct it through the case builder; the zero
// value matches everything.
type RequestMatcher struct {
	uri       string
	method    string
	headers   []headerCheck
	body      *bodyCheck
	jsonPaths []jsonPathCheck
}

// Match evaluates every declared constraint and reports all mismatched
// attributes; it does not stop at the first failure, so the mismatch
// report is complete.
func (m *RequestMatcher) Match(req *Request) (Report, error) {
	var reasons []Reason

	if m.method != "" && !strings.EqualFold(m.method, req.Method) {
		reasons = append(reasons, ReasonMethod)
	}
	if m.uri != "" && m.uri != req.URL.String() {
		reasons = append(reasons, ReasonURI)
	}
	for _, hc := range m.headers {
		if !hc.check(req.Header) {
			reasons = append(reasons, ReasonHeader(hc.name))
		}
	}

	if m.body != nil {
		switch m.body.kind {
		case bodyText:
			if req.Body != m.body.text {
				reasons = append(reasons, ReasonBody)
			}
		case bodyJSON:
			payload, err := oj.Parse([]byte(req.Body))
			if err != nil {
				return Report{}, fmt.Errorf("parsing request body as JSON: %w", err)
			}
			if !jsonEqual(m.body.value, payload) {
				reasons = append(reasons, ReasonBody)
			}
		case bodyJSONPartial:
			payload, err := oj.Parse([]byte(req.Body))
			if err != nil {
				return Report{}, fmt.Errorf("parsing request body as JSON: %w", err)
			}
			if !jsonContains(m.body.value, payload) {
				reasons = append(reasons, ReasonBody)
			}
		}
	}

	if len(m.jsonPaths) > 0 {
		payload, err := oj.Parse([]byte(req.Body))
		if err != nil {
			// Not JSON at all: every path condition fails.
			reasons = append(reasons, ReasonBody)
		} else {
			for _, jc := range m.jsonPaths {
				if !jc.check(payload) {
					reasons = append(reasons, ReasonBody)
					break
				}
			}
		}
	}

	reasons = dedupeReasons(reasons)
	if len(reasons) > 0 {
		return Mismatched(reasons...), nil
	}
	return Matched(), nil
}

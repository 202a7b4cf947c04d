package connmock

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/ohler55/ojg/jp"
	"golang.org/x/net/http/httpguts"

	"github.com/getmockd/connmock/internal/id"
	"github.com/getmockd/connmock/pkg/logging"
)

// Builder assembles a Connector. Register cases with Expect, then call
// Build; the resulting connector's case list is fixed.
type Builder struct {
	cases []*Case
	level Level
	log   *slog.Logger
}

// NewBuilder returns a builder with the default diagnostic level
// (LevelMissing) and a no-op logger.
func NewBuilder() *Builder {
	return &Builder{level: LevelMissing, log: logging.Nop()}
}

// SetLevel sets the diagnostic level for the connector.
func (b *Builder) SetLevel(level Level) {
	b.level = level
}

// SetLogger sets the logger diagnostics are emitted through.
func (b *Builder) SetLogger(log *slog.Logger) {
	if log != nil {
		b.log = log
	}
}

// Expect starts a new case. The case is registered when Returning is
// called on the returned builder.
func (b *Builder) Expect() *CaseBuilder {
	return &CaseBuilder{builder: b}
}

// Build finalizes the case list and returns the connector.
func (b *Builder) Build() *Connector {
	cases := make([]*Case, len(b.cases))
	copy(cases, b.cases)
	return &Connector{reg: &registry{cases: cases, level: b.level, log: b.log}}
}

// CaseBuilder declares the constraints and response for a single case.
// Constraint methods are cumulative and chainable; errors are remembered
// and reported by Returning. A custom matcher set via With cannot be
// combined with the structured With* constraints, and a case can carry at
// most one body constraint — a second WithBody/WithJSON/WithJSONPartial
// call is a programming error reported by Returning.
type CaseBuilder struct {
	builder *Builder
	custom  Matcher
	req     *RequestMatcher
	times   int
	counted bool
	err     error
}

var errMixedMatchers = errors.New("a custom matcher cannot be combined with structured constraints")

func (cb *CaseBuilder) fail(err error) *CaseBuilder {
	if cb.err == nil {
		cb.err = err
	}
	return cb
}

func (cb *CaseBuilder) structured() (*RequestMatcher, bool) {
	if cb.custom != nil {
		cb.fail(errMixedMatchers)
		return nil, false
	}
	if cb.req == nil {
		cb.req = &RequestMatcher{}
	}
	return cb.req, true
}

// With installs a custom matcher for this case. It is mutually exclusive
// with the structured With* constraints.
func (cb *CaseBuilder) With(m Matcher) *CaseBuilder {
	if cb.err != nil {
		return cb
	}
	if cb.req != nil {
		return cb.fail(errMixedMatchers)
	}
	if cb.custom != nil {
		return cb.fail(errors.New("case already has a custom matcher"))
	}
	if m == nil {
		return cb.fail(errors.New("nil matcher"))
	}
	cb.custom = m
	return cb
}

// WithPredicate installs a boolean predicate as the case's matcher. A
// predicate error fails the dispatch; it is not treated as a mismatch.
func (cb *CaseBuilder) WithPredicate(fn func(*Request) (bool, error)) *CaseBuilder {
	return cb.With(PredicateFunc(fn))
}

// WithURI matches requests whose absolute URI equals uri.
func (cb *CaseBuilder) WithURI(uri string) *CaseBuilder {
	if cb.err != nil {
		return cb
	}
	m, ok := cb.structured()
	if !ok {
		return cb
	}
	u, err := url.Parse(uri)
	if err != nil {
		return cb.fail(fmt.Errorf("invalid URI %q: %w", uri, err))
	}
	m.uri = u.String()
	return cb
}

// WithMethod matches requests with the given method, case-insensitively.
func (cb *CaseBuilder) WithMethod(method string) *CaseBuilder {
	if cb.err != nil {
		return cb
	}
	m, ok := cb.structured()
	if !ok {
		return cb
	}
	if method == "" || !httpguts.ValidHeaderFieldName(method) {
		return cb.fail(fmt.Errorf("invalid method %q", method))
	}
	m.method = method
	return cb
}

// WithHeader matches requests carrying at least one entry of the named
// header with the given value. Headers may repeat with the same name and
// different values; any one of them matching is enough.
func (cb *CaseBuilder) WithHeader(name, value string) *CaseBuilder {
	return cb.addHeaderCheck(name, headerAtLeastOnce, value)
}

// WithHeaderOnce matches requests carrying exactly one entry of the named
// header, with the given value.
func (cb *CaseBuilder) WithHeaderOnce(name, value string) *CaseBuilder {
	return cb.addHeaderCheck(name, headerExactlyOnce, value)
}

// WithHeaderAll matches requests whose full set of values for the named
// header equals values, compared order-insensitively.
func (cb *CaseBuilder) WithHeaderAll(name string, values ...string) *CaseBuilder {
	return cb.addHeaderCheck(name, headerAll, values...)
}

func (cb *CaseBuilder) addHeaderCheck(name string, mode headerCheckMode, values ...string) *CaseBuilder {
	if cb.err != nil {
		return cb
	}
	m, ok := cb.structured()
	if !ok {
		return cb
	}
	if !httpguts.ValidHeaderFieldName(name) {
		return cb.fail(fmt.Errorf("invalid header name %q", name))
	}
	if mode != headerAll && len(values) != 1 {
		return cb.fail(fmt.Errorf("header %q requires exactly one value", name))
	}
	for _, v := range values {
		if !httpguts.ValidHeaderFieldValue(v) {
			return cb.fail(fmt.Errorf("invalid value for header %q", name))
		}
	}
	m.headers = append(m.headers, headerCheck{name: name, mode: mode, values: values})
	return cb
}

// WithBody matches requests whose body equals body exactly.
func (cb *CaseBuilder) WithBody(body string) *CaseBuilder {
	if cb.err != nil {
		return cb
	}
	m, ok := cb.structured()
	if !ok {
		return cb
	}
	if m.body != nil {
		return cb.fail(errors.New("case already has a body constraint"))
	}
	m.body = &bodyCheck{kind: bodyText, text: body}
	return cb
}

// WithJSON matches requests whose body parses as JSON structurally equal
// to v.
func (cb *CaseBuilder) WithJSON(v any) *CaseBuilder {
	return cb.addJSONBody(bodyJSON, v)
}

// WithJSONPartial matches requests whose body parses as JSON containing
// v: every key and element of v must be present and equal in the body,
// extra body content is ignored.
func (cb *CaseBuilder) WithJSONPartial(v any) *CaseBuilder {
	return cb.addJSONBody(bodyJSONPartial, v)
}

func (cb *CaseBuilder) addJSONBody(kind bodyCheckKind, v any) *CaseBuilder {
	if cb.err != nil {
		return cb
	}
	m, ok := cb.structured()
	if !ok {
		return cb
	}
	if m.body != nil {
		return cb.fail(errors.New("case already has a body constraint"))
	}
	val, err := normalizeJSON(v)
	if err != nil {
		return cb.fail(fmt.Errorf("encoding expected JSON body: %w", err))
	}
	m.body = &bodyCheck{kind: kind, value: val}
	return cb
}

// WithJSONPath matches requests whose JSON body has at least one value at
// path equal to expected. A nil expected value turns the condition into
// an existence check. Conditions are cumulative and combinable with a
// body constraint.
func (cb *CaseBuilder) WithJSONPath(path string, expected any) *CaseBuilder {
	if cb.err != nil {
		return cb
	}
	m, ok := cb.structured()
	if !ok {
		return cb
	}
	expr, err := jp.ParseString(path)
	if err != nil {
		return cb.fail(fmt.Errorf("invalid JSONPath %q: %w", path, err))
	}
	var val any
	if expected != nil {
		if val, err = normalizeJSON(expected); err != nil {
			return cb.fail(fmt.Errorf("encoding expected JSONPath value: %w", err))
		}
	}
	m.jsonPaths = append(m.jsonPaths, jsonPathCheck{path: path, expr: expr, expected: val})
	return cb
}

// Times declares how many times this case must be dispatched. Nothing
// enforces the count during the test; Checkpoint verifies it.
func (cb *CaseBuilder) Times(n int) *CaseBuilder {
	if cb.err != nil {
		return cb
	}
	if n < 0 {
		return cb.fail(fmt.Errorf("negative call count %d", n))
	}
	cb.times = n
	cb.counted = true
	return cb
}

// Returning sets the responder and registers the case with the builder.
// It reports any error accumulated by earlier calls on this case builder.
func (cb *CaseBuilder) Returning(r Responder) error {
	if cb.err != nil {
		return cb.err
	}
	if r == nil {
		return errors.New("nil responder")
	}
	var m Matcher = defaultMatcher{}
	switch {
	case cb.custom != nil:
		m = cb.custom
	case cb.req != nil:
		m = cb.req
	}
	c := &Case{id: id.Case(), matcher: m, responder: r, expected: cb.times, counted: cb.counted}
	cb.builder.cases = append(cb.builder.cases, c)
	return nil
}

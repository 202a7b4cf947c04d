package connmock

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strings"
)

// Connector owns the ordered set of registered cases and hands out
// virtual connections to http.Transport. Copies of the handle share the
// same cases and counters, so one connector can serve many concurrent
// connections.
type Connector struct {
	reg *registry
}

// registry is the immutable post-build state: cases in registration
// order, the diagnostic level, and the logger. Only the per-case counters
// change after Build.
type registry struct {
	cases []*Case
	level Level
	log   *slog.Logger
}

// Checkpoint verifies that every case with a declared call count was
// dispatched exactly that many times. All violations are aggregated into
// a single CheckpointError. It can be called at any time and is
// idempotent between dispatches.
func (c *Connector) Checkpoint() error {
	var mismatches []CountMismatch
	for _, cs := range c.reg.cases {
		if m := cs.checkpoint(); m != nil {
			mismatches = append(mismatches, *m)
		}
	}
	if len(mismatches) == 0 {
		return nil
	}
	return &CheckpointError{Mismatches: mismatches}
}

// Cases returns the registered cases in registration order.
func (c *Connector) Cases() []*Case {
	return slices.Clone(c.reg.cases)
}

// DialContext returns a virtual connection for addr. It satisfies both
// the DialContext and DialTLSContext signatures of http.Transport; the
// returned connection never performs TLS, so https requests are served in
// plain text.
func (c *Connector) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	target, err := targetURL(addr)
	if err != nil {
		return nil, err
	}
	return newConn(c.reg, target), nil
}

// Transport returns an http.Transport that routes every connection, http
// or https, through the connector.
func (c *Connector) Transport() *http.Transport {
	return &http.Transport{
		DialContext:    c.DialContext,
		DialTLSContext: c.DialContext,
	}
}

// Client returns an http.Client wired to the connector.
func (c *Connector) Client() *http.Client {
	return &http.Client{Transport: c.Transport()}
}

// targetURL reconstructs the connection target from a dial address. The
// scheme is inferred from the port; default ports are dropped from the
// authority.
func targetURL(addr string) (*url.URL, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		host, port = addr, ""
	}
	if host == "" {
		return nil, fmt.Errorf("invalid dial address %q", addr)
	}
	scheme := "http"
	if port == "443" {
		scheme = "https"
	}
	hostport := host
	if strings.Contains(host, ":") {
		// IPv6 literals keep their brackets in the authority.
		hostport = "[" + host + "]"
	}
	if port != "" && port != "80" && port != "443" {
		hostport = net.JoinHostPort(host, port)
	}
	return &url.URL{Scheme: scheme, Host: hostport}, nil
}

type failedCase struct {
	c       *Case
	reasons []Reason
}

// dispatch scans cases in registration order and selects the first full
// match; later cases are not evaluated for response selection. The
// observed count is incremented before the case is handed back, so a
// checkpoint may reflect a response that is still pending.
func (r *registry) dispatch(req *Request) (*Case, error) {
	var failed []failedCase
	for _, cs := range r.cases {
		report, err := cs.matcher.Match(req)
		if err != nil {
			if r.level >= LevelError {
				r.log.Error("case matcher failed", "case", cs.id, "error", err)
			}
			return nil, &MatcherError{CaseID: cs.id, Err: err}
		}
		if report.Match {
			cs.seen.Add(1)
			return cs, nil
		}
		failed = append(failed, failedCase{c: cs, reasons: report.Reasons})
	}

	if r.level >= LevelMissing {
		r.log.Warn("no matching case for request",
			"method", req.Method,
			"url", req.URL.String(),
			"report", renderReport(req, failed))
	}
	return nil, &NoMatchError{Request: req}
}

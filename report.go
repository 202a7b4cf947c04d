package connmock

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ohler55/ojg/oj"
)

// renderReport builds the plain-text diagnostic emitted when no case
// matches a request: the incoming request, then every registered case's
// declared constraints and the attributes it mismatched on.
func renderReport(req *Request, failed []failedCase) string {
	var b strings.Builder

	b.WriteString("incoming request:\n")
	fmt.Fprintf(&b, "  method:  %s\n", req.Method)
	fmt.Fprintf(&b, "  uri:     %s\n", req.URL)
	if len(req.Fields) > 0 {
		b.WriteString("  headers:\n")
		width := 0
		for _, f := range req.Fields {
			width = max(width, len(f.Name))
		}
		for _, f := range req.Fields {
			fmt.Fprintf(&b, "    %-*s: %s\n", width, f.Name, f.Value)
		}
	}
	if req.Body != "" {
		b.WriteString("  body:\n")
		writeIndented(&b, req.Body, "    ")
	}

	for i, fc := range failed {
		fmt.Fprintf(&b, "case %d `%s` (%s):\n", i, fc.c.id, matcherName(fc.c.matcher))
		for _, line := range describeMatcher(fc.c.matcher) {
			fmt.Fprintf(&b, "  %s\n", line)
		}
		if len(fc.reasons) > 0 {
			b.WriteString("  mismatched attributes:\n")
			names := make([]string, len(fc.reasons))
			for j, r := range fc.reasons {
				names[j] = r.String()
			}
			sort.Strings(names)
			for _, n := range names {
				fmt.Fprintf(&b, "  - %s\n", n)
			}
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

func matcherName(m Matcher) string {
	switch m.(type) {
	case *RequestMatcher:
		return "request matcher"
	case defaultMatcher:
		return "default case"
	default:
		return "predicate"
	}
}

// describeMatcher lists the declared constraints of a structured matcher,
// one line each. Predicates and default matchers are opaque.
func describeMatcher(m Matcher) []string {
	rm, ok := m.(*RequestMatcher)
	if !ok {
		return nil
	}

	var lines []string
	if rm.method != "" {
		lines = append(lines, fmt.Sprintf("method:  %s", rm.method))
	}
	if rm.uri != "" {
		lines = append(lines, fmt.Sprintf("uri:     %s", rm.uri))
	}
	if len(rm.headers) > 0 {
		lines = append(lines, "headers:")
		for _, hc := range rm.headers {
			lines = append(lines, fmt.Sprintf("  %s: %s (%s)",
				hc.name, strings.Join(hc.values, ", "), headerModeName(hc.mode)))
		}
	}
	if rm.body != nil {
		switch rm.body.kind {
		case bodyText:
			lines = append(lines, "body:")
			lines = append(lines, indentLines(rm.body.text, "  ")...)
		case bodyJSON:
			lines = append(lines, "full json match:")
			lines = append(lines, indentLines(oj.JSON(rm.body.value, 2), "  ")...)
		case bodyJSONPartial:
			lines = append(lines, "partial json match:")
			lines = append(lines, indentLines(oj.JSON(rm.body.value, 2), "  ")...)
		}
	}
	for _, jc := range rm.jsonPaths {
		if jc.expected == nil {
			lines = append(lines, fmt.Sprintf("jsonpath %s exists", jc.path))
		} else {
			lines = append(lines, fmt.Sprintf("jsonpath %s == %s", jc.path, oj.JSON(jc.expected)))
		}
	}
	return lines
}

func headerModeName(mode headerCheckMode) string {
	switch mode {
	case headerExactlyOnce:
		return "exactly once"
	case headerAll:
		return "all values"
	default:
		return "at least once"
	}
}

func indentLines(s, prefix string) []string {
	raw := strings.Split(strings.TrimRight(s, "\n"), "\n")
	out := make([]string, len(raw))
	for i, line := range raw {
		out[i] = prefix + line
	}
	return out
}

func writeIndented(b *strings.Builder, s, prefix string) {
	for _, line := range strings.Split(strings.TrimRight(s, "\n"), "\n") {
		b.WriteString(prefix)
		b.WriteString(line)
		b.WriteByte('\n')
	}
}

package connmock

import "fmt"

// Reason names the request attribute a case mismatched on. It is used to
// build the per-case diagnostics emitted when no case matches a request.
type Reason struct {
	// Field is one of "method", "uri", "header", or "body".
	Field string

	// Header is the header name when Field is "header".
	Header string
}

// Mismatch reasons for the fixed request attributes.
var (
	ReasonMethod = Reason{Field: "method"}
	ReasonURI    = Reason{Field: "uri"}
	ReasonBody   = Reason{Field: "body"}
)

// ReasonHeader returns the mismatch reason for a named header.
func ReasonHeader(name string) Reason {
	return Reason{Field: "header", Header: name}
}

func (r Reason) String() string {
	if r.Field == "header" {
		return fmt.Sprintf("header `%s`", r.Header)
	}
	return r.Field
}

// Report is the outcome of evaluating one case against a request: either
// a match, or a mismatch with zero or more reasons. A mismatch with no
// reasons carries no diagnostic information; boolean predicates produce
// those.
type Report struct {
	Match   bool
	Reasons []Reason
}

// Matched returns a matching report.
func Matched() Report { return Report{Match: true} }

// Mismatched returns a mismatch report naming the failed attributes.
func Mismatched(reasons ...Reason) Report { return Report{Reasons: reasons} }

// dedupeReasons drops duplicate reasons while keeping first-seen order.
func dedupeReasons(reasons []Reason) []Reason {
	if len(reasons) < 2 {
		return reasons
	}
	seen := make(map[Reason]struct{}, len(reasons))
	out := reasons[:0]
	for _, r := range reasons {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}

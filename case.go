package connmock

import "sync/atomic"

// Case binds one matcher to one responder, together with an optional
// expected call count and the observed call count. Cases are immutable
// after the connector is built; the counter is the only mutable state and
// is updated atomically, so connections sharing a connector never lose
// increments.
type Case struct {
	id        string
	matcher   Matcher
	responder Responder
	expected  int
	counted   bool
	seen      atomic.Int64
}

// ID returns the generated case identifier used in diagnostics.
func (c *Case) ID() string { return c.id }

// Seen reports how many times this case has been dispatched.
func (c *Case) Seen() int { return int(c.seen.Load()) }

// checkpoint returns nil when the case has no declared count or the
// observed count matches it exactly.
func (c *Case) checkpoint() *CountMismatch {
	if !c.counted {
		return nil
	}
	got := c.Seen()
	if got == c.expected {
		return nil
	}
	return &CountMismatch{CaseID: c.id, Expected: c.expected, Got: got}
}

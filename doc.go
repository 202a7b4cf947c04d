// Package connmock provides a mock connection layer for testing code that
// issues HTTP requests through net/http, without opening real sockets.
//
// A Connector holds an ordered list of expectation cases. Each case binds
// a matcher (URI, method, headers, body, or an arbitrary predicate) to a
// responder and an optional expected call count. The connector plugs into
// http.Transport as a dial function and hands the client an in-memory
// connection that parses the request bytes, dispatches them against the
// registered cases, and serves the selected response back to the client.
//
// Usage:
//
//	b := connmock.NewBuilder()
//	err := b.Expect().
//		Times(1).
//		WithMethod("GET").
//		WithURI("http://example.test/users").
//		Returning(connmock.Body(`[{"id": 1}]`))
//	if err != nil {
//		// builder misuse, e.g. conflicting constraints
//	}
//	connector := b.Build()
//
//	client := connector.Client()
//	res, err := client.Get("http://example.test/users")
//	// ... exercise the code under test ...
//
//	// Verify every declared call count at the end of the test.
//	err = connector.Checkpoint()
//
// Requests that match no case fail the in-flight HTTP call with a
// NoMatchError instead of hanging, and (at the default diagnostic level)
// log a per-case mismatch report through the configured logger.
package connmock

package connmock

import (
	"net/http"
	"net/url"
)

// Header is one header field. Slices of Header preserve wire order.
type Header struct {
	Name  string
	Value string
}

// Request is the reconstructed HTTP request handed to matchers,
// predicates, and responders.
type Request struct {
	// Method is the request method, e.g. "GET".
	Method string

	// URL is absolute: the connection target authority combined with the
	// request-line path and query.
	URL *url.URL

	// Header holds the parsed headers. Values for a repeated name keep
	// their arrival order.
	Header http.Header

	// Fields holds the raw header fields in arrival order.
	Fields []Header

	// Body is the request body as UTF-8 text, with chunked transfer
	// coding already reassembled.
	Body string
}

// Response is the HTTP response produced by a Responder. Header order is
// preserved when the response is serialized.
type Response struct {
	StatusCode int
	Header     []Header
	Body       string
}

// NewResponse builds a response with the given status code and body.
func NewResponse(status int, body string) *Response {
	return &Response{StatusCode: status, Body: body}
}

// AddHeader appends a header field, keeping insertion order. It returns
// the response so ResponderFunc bodies can chain calls.
func (r *Response) AddHeader(name, value string) *Response {
	r.Header = append(r.Header, Header{Name: name, Value: value})
	return r
}

package connmock

import (
	"net/http"

	"github.com/ohler55/ojg/oj"
)

// Responder turns a matched request into an HTTP response. The transport
// invokes it asynchronously after dispatch has selected a case and
// incremented its observed count.
type Responder interface {
	Respond(req *Request) (*Response, error)
}

// ResponderFunc adapts a function into a Responder.
type ResponderFunc func(*Request) (*Response, error)

func (f ResponderFunc) Respond(req *Request) (*Response, error) { return f(req) }

// Body responds with status 200 and the given body.
func Body(body string) Responder {
	return statusBodyResponder{status: http.StatusOK, body: body}
}

// Status responds with the given status code and an empty body.
func Status(code int) Responder {
	return statusBodyResponder{status: code}
}

// StatusBody responds with the given status code and body.
func StatusBody(code int, body string) Responder {
	return statusBodyResponder{status: code, body: body}
}

type statusBodyResponder struct {
	status int
	body   string
}

func (r statusBodyResponder) Respond(*Request) (*Response, error) {
	if err := validateStatus(r.status); err != nil {
		return nil, err
	}
	return NewResponse(r.status, r.body), nil
}

// JSON responds with status 200, a Content-Type of application/json, and
// v encoded as the body.
func JSON(v any) Responder {
	return jsonResponder{status: http.StatusOK, value: v}
}

// StatusJSON is JSON with an explicit status code.
func StatusJSON(code int, v any) Responder {
	return jsonResponder{status: code, value: v}
}

type jsonResponder struct {
	status int
	value  any
}

func (r jsonResponder) Respond(*Request) (*Response, error) {
	if err := validateStatus(r.status); err != nil {
		return nil, err
	}
	res := NewResponse(r.status, oj.JSON(r.value))
	res.AddHeader("Content-Type", "application/json")
	return res, nil
}

func validateStatus(code int) error {
	if code < 100 || code > 599 {
		return &InvalidStatusError{Code: code}
	}
	return nil
}

package connmock

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/getmockd/connmock/internal/httpwire"
)

type connState int

const (
	// stateAwaiting: accumulating request bytes until a full frame parses.
	stateAwaiting connState = iota
	// statePending: a dispatch is in flight; the responder runs on its
	// own goroutine and publishes the result.
	statePending
	// stateBuffered: serialized response bytes (or a sticky error) are
	// ready for the reader.
	stateBuffered
)

// Conn is the virtual duplex connection handed to the HTTP client. Bytes
// written by the client accumulate until they form a complete request
// frame; the frame is dispatched against the registry and the serialized
// response is served back through Read. One request/response cycle is in
// flight at a time; after the buffered response has been fully consumed
// the connection accepts the next request, so keep-alive clients can
// reuse it.
type Conn struct {
	reg    *registry
	target *url.URL

	mu           sync.Mutex
	state        connState
	buf          []byte
	res          []byte
	pos          int
	err          error         // sticky dispatch failure, surfaced on Read
	notify       chan struct{} // closed to wake parked readers
	readDeadline time.Time

	closeOnce sync.Once
	closed    chan struct{}
}

var _ net.Conn = (*Conn)(nil)

func newConn(reg *registry, target *url.URL) *Conn {
	return &Conn{reg: reg, target: target, closed: make(chan struct{})}
}

// Write accumulates request bytes and attempts to parse a complete frame
// after every chunk. A partial frame keeps the connection waiting for
// more bytes without signaling completion. Malformed bytes are answered
// with a well-formed 400 response so the client observes a clean error
// instead of a hang.
func (c *Conn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.closed:
		return 0, net.ErrClosed
	default:
	}

	// Start the next cycle once the previous response was fully read.
	if c.state == stateBuffered && c.err == nil && c.pos == len(c.res) {
		c.state = stateAwaiting
		c.buf, c.res, c.pos = nil, nil, 0
	}
	if c.state != stateAwaiting {
		// A response is still in flight or failed; swallow stray bytes.
		return len(p), nil
	}

	c.buf = append(c.buf, p...)
	wreq, _, err := httpwire.ParseRequest(c.buf)
	if err != nil {
		c.recoverParseFailure(err)
		return len(p), nil
	}
	if wreq == nil {
		return len(p), nil
	}

	req, err := c.toRequest(wreq)
	if err != nil {
		c.recoverParseFailure(err)
		return len(p), nil
	}
	c.buf = nil

	// The lock is held across the scan-and-increment only; the responder
	// runs on its own goroutine.
	cs, err := c.reg.dispatch(req)
	if err != nil {
		c.err = err
		c.state = stateBuffered
		c.wake()
		return len(p), nil
	}

	c.state = statePending
	go c.invoke(cs, req)
	return len(p), nil
}

// recoverParseFailure buffers a 400 response describing the parse error.
func (c *Conn) recoverParseFailure(err error) {
	c.res = httpwire.SerializeResponse(400, []httpwire.Header{
		{Name: "Content-Type", Value: "text/plain"},
	}, "bad request: "+err.Error())
	c.pos = 0
	c.buf = nil
	c.state = stateBuffered
	c.wake()
}

// invoke runs the case's responder outside the connection lock and
// publishes its result to the reader.
func (c *Conn) invoke(cs *Case, req *Request) {
	res, err := cs.responder.Respond(req)
	if err == nil && res == nil {
		err = errors.New("responder returned no response")
	}
	if err == nil {
		err = validateStatus(res.StatusCode)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != statePending {
		// The connection was reset or closed; discard the result.
		return
	}
	if err != nil {
		if c.reg.level >= LevelError {
			c.reg.log.Error("case responder failed", "case", cs.id, "error", err)
		}
		c.err = &ResponderError{CaseID: cs.id, Err: err}
	} else {
		c.res = serializeResponse(res)
		c.pos = 0
	}
	c.state = stateBuffered
	c.wake()
}

// Read blocks until response bytes are available, a dispatch failure is
// recorded, the read deadline expires, or the connection is closed.
// Waiting is channel-based; readers park until a writer or the responder
// goroutine wakes them.
func (c *Conn) Read(p []byte) (int, error) {
	for {
		c.mu.Lock()
		if c.state == stateBuffered {
			if c.err != nil {
				err := c.err
				c.mu.Unlock()
				return 0, err
			}
			if c.pos < len(c.res) {
				n := copy(p, c.res[c.pos:])
				c.pos += n
				c.mu.Unlock()
				return n, nil
			}
			// Fully consumed: park until the next cycle or Close.
		}
		deadline := c.readDeadline
		if c.notify == nil {
			c.notify = make(chan struct{})
		}
		wait := c.notify
		c.mu.Unlock()

		if !deadline.IsZero() {
			d := time.Until(deadline)
			if d <= 0 {
				return 0, os.ErrDeadlineExceeded
			}
			timer := time.NewTimer(d)
			select {
			case <-wait:
				timer.Stop()
			case <-timer.C:
				return 0, os.ErrDeadlineExceeded
			case <-c.closed:
				timer.Stop()
				return 0, io.EOF
			}
			continue
		}

		select {
		case <-wait:
		case <-c.closed:
			return 0, io.EOF
		}
	}
}

// wake resumes any parked reader.
func (c *Conn) wake() {
	if c.notify != nil {
		close(c.notify)
		c.notify = nil
	}
}

// Close discards any in-flight dispatch. No counter cleanup is needed:
// observed counts were already updated at match time.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

// toRequest reconstructs the absolute request from a parsed frame and the
// connection target.
func (c *Conn) toRequest(wr *httpwire.Request) (*Request, error) {
	if !utf8.Valid(wr.Body) {
		return nil, errors.New("request body is not valid UTF-8")
	}
	target, err := url.ParseRequestURI(wr.RequestURI)
	if err != nil {
		return nil, fmt.Errorf("invalid request target %q: %w", wr.RequestURI, err)
	}
	u := *c.target
	if target.IsAbs() {
		u = *target
	} else {
		u.Path = target.Path
		u.RawPath = target.RawPath
		u.RawQuery = target.RawQuery
	}
	fields := make([]Header, len(wr.Fields))
	for i, f := range wr.Fields {
		fields[i] = Header{Name: f.Name, Value: f.Value}
	}
	return &Request{
		Method: wr.Method,
		URL:    &u,
		Header: wr.Header,
		Fields: fields,
		Body:   string(wr.Body),
	}, nil
}

func serializeResponse(res *Response) []byte {
	headers := make([]httpwire.Header, len(res.Header))
	for i, h := range res.Header {
		headers[i] = httpwire.Header{Name: h.Name, Value: h.Value}
	}
	return httpwire.SerializeResponse(res.StatusCode, headers, res.Body)
}

type mockAddr string

func (a mockAddr) Network() string { return "mock" }
func (a mockAddr) String() string  { return string(a) }

// LocalAddr implements net.Conn.
func (c *Conn) LocalAddr() net.Addr { return mockAddr("connmock") }

// RemoteAddr implements net.Conn.
func (c *Conn) RemoteAddr() net.Addr { return mockAddr(c.target.Host) }

// SetDeadline implements net.Conn. Only reads can block, so the deadline
// applies to reads.
func (c *Conn) SetDeadline(t time.Time) error { return c.SetReadDeadline(t) }

// SetReadDeadline implements net.Conn.
func (c *Conn) SetReadDeadline(t time.Time) error {
	c.mu.Lock()
	c.readDeadline = t
	// Wake parked readers so they re-arm with the new deadline.
	c.wake()
	c.mu.Unlock()
	return nil
}

// SetWriteDeadline implements net.Conn. Writes never block.
func (c *Conn) SetWriteDeadline(time.Time) error { return nil }

package httpwire

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// Header is a single header field as it appeared on the wire.
type Header struct {
	Name  string
	Value string
}

// Request is a fully framed HTTP/1.1 request. Body is contiguous; chunked
// transfer coding has already been removed.
type Request struct {
	Method     string
	RequestURI string
	Proto      string
	Header     http.Header // canonicalized view; repeated values keep arrival order
	Fields     []Header    // raw fields in arrival order
	Body       []byte
}

// maxHeaderBytes bounds the accumulation buffer while waiting for the end
// of the header section, so a stream that never sends CRLF CRLF fails
// instead of growing without limit.
const maxHeaderBytes = 1 << 20

var crlf = []byte("\r\n")

// ParseRequest attempts to parse one complete request frame from data.
// It returns (nil, 0, nil) when data does not yet hold a complete frame,
// and a non-nil error when the bytes can never form a valid request.
// n is the number of bytes consumed from data.
func ParseRequest(data []byte) (*Request, int, error) {
	head := bytes.Index(data, []byte("\r\n\r\n"))
	if head < 0 {
		if len(data) > maxHeaderBytes {
			return nil, 0, fmt.Errorf("header section exceeds %d bytes", maxHeaderBytes)
		}
		return nil, 0, nil
	}

	lines := strings.Split(string(data[:head]), "\r\n")
	method, uri, proto, err := parseRequestLine(lines[0])
	if err != nil {
		return nil, 0, err
	}

	req := &Request{
		Method:     method,
		RequestURI: uri,
		Proto:      proto,
		Header:     make(http.Header),
	}
	for _, line := range lines[1:] {
		name, value, err := parseHeaderField(line)
		if err != nil {
			return nil, 0, err
		}
		req.Fields = append(req.Fields, Header{Name: name, Value: value})
		req.Header.Add(name, value)
	}

	bodyStart := head + 4
	rest := data[bodyStart:]

	if te := req.Header.Get("Transfer-Encoding"); te != "" {
		if !strings.EqualFold(strings.TrimSpace(te), "chunked") {
			return nil, 0, fmt.Errorf("unsupported transfer coding %q", te)
		}
		body, consumed, done, err := decodeChunked(rest)
		if err != nil {
			return nil, 0, err
		}
		if !done {
			return nil, 0, nil
		}
		req.Body = body
		return req, bodyStart + consumed, nil
	}

	if cl := req.Header.Get("Content-Length"); cl != "" {
		length, err := strconv.Atoi(strings.TrimSpace(cl))
		if err != nil || length < 0 {
			return nil, 0, fmt.Errorf("invalid Content-Length %q", cl)
		}
		if len(rest) < length {
			return nil, 0, nil
		}
		req.Body = append([]byte(nil), rest[:length]...)
		return req, bodyStart + length, nil
	}

	// No framing headers: the request has no body.
	return req, bodyStart, nil
}

func parseRequestLine(line string) (method, uri, proto string, err error) {
	parts := strings.Split(line, " ")
	if len(parts) != 3 {
		return "", "", "", fmt.Errorf("malformed request line %q", line)
	}
	method, uri, proto = parts[0], parts[1], parts[2]
	if method == "" || !httpguts.ValidHeaderFieldName(method) {
		return "", "", "", fmt.Errorf("invalid method %q", method)
	}
	if uri == "" {
		return "", "", "", fmt.Errorf("missing request target in %q", line)
	}
	if proto != "HTTP/1.1" && proto != "HTTP/1.0" {
		return "", "", "", fmt.Errorf("unsupported protocol %q", proto)
	}
	return method, uri, proto, nil
}

func parseHeaderField(line string) (name, value string, err error) {
	i := strings.IndexByte(line, ':')
	if i <= 0 {
		return "", "", fmt.Errorf("malformed header field %q", line)
	}
	name = line[:i]
	if strings.TrimRight(name, " \t") != name || !httpguts.ValidHeaderFieldName(name) {
		return "", "", fmt.Errorf("invalid header name %q", name)
	}
	value = strings.Trim(line[i+1:], " \t")
	if !httpguts.ValidHeaderFieldValue(value) {
		return "", "", fmt.Errorf("invalid value for header %q", name)
	}
	return name, value, nil
}

// decodeChunked reassembles a chunked body. done is false while more bytes
// are needed; err is non-nil only for bytes that can never form valid
// chunked coding. Trailer fields are consumed and discarded.
func decodeChunked(data []byte) (body []byte, n int, done bool, err error) {
	pos := 0
	for {
		i := bytes.Index(data[pos:], crlf)
		if i < 0 {
			return nil, 0, false, nil
		}
		sizeField := string(data[pos : pos+i])
		if j := strings.IndexByte(sizeField, ';'); j >= 0 {
			sizeField = sizeField[:j] // drop chunk extensions
		}
		size, perr := strconv.ParseUint(strings.TrimSpace(sizeField), 16, 31)
		if perr != nil {
			return nil, 0, false, fmt.Errorf("invalid chunk size %q", sizeField)
		}
		pos += i + 2

		if size == 0 {
			for {
				i := bytes.Index(data[pos:], crlf)
				if i < 0 {
					return nil, 0, false, nil
				}
				line := data[pos : pos+i]
				pos += i + 2
				if len(line) == 0 {
					return body, pos, true, nil
				}
			}
		}

		end := pos + int(size)
		if len(data) < end+2 {
			return nil, 0, false, nil
		}
		body = append(body, data[pos:end]...)
		if !bytes.Equal(data[end:end+2], crlf) {
			return nil, 0, false, fmt.Errorf("chunk data not terminated by CRLF")
		}
		pos = end + 2
	}
}

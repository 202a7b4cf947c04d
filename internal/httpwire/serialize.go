package httpwire

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
)

// SerializeResponse renders a status line, the given header fields in
// insertion order, a blank line, and the body. A Content-Length field is
// added when the headers do not already carry one, so clients can delimit
// the body without waiting for the connection to close.
func SerializeResponse(status int, headers []Header, body string) []byte {
	var b bytes.Buffer
	text := http.StatusText(status)
	if text == "" {
		text = "Status"
	}
	fmt.Fprintf(&b, "HTTP/1.1 %d %s\r\n", status, text)

	hasLength := false
	for _, h := range headers {
		if strings.EqualFold(h.Name, "Content-Length") {
			hasLength = true
		}
		fmt.Fprintf(&b, "%s: %s\r\n", h.Name, h.Value)
	}
	if !hasLength {
		fmt.Fprintf(&b, "Content-Length: %d\r\n", len(body))
	}
	b.WriteString("\r\n")
	b.WriteString(body)
	return b.Bytes()
}

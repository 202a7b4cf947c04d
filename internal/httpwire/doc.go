// Package httpwire implements the byte-level HTTP/1.1 framing used by the
// virtual connection: an incremental request parser that recognizes a
// complete request frame inside an accumulation buffer, and a response
// serializer that preserves header insertion order.
//
// The parser is deliberately small. It handles the request line, header
// fields, bodies framed by Content-Length, and chunked transfer coding
// (reassembled into a contiguous body so matchers can compare it
// byte-for-byte). It does not handle interim responses, trailer
// preservation, or upgrade negotiation.
package httpwire

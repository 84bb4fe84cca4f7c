// Package response is the demo server's response-side collaborator: it
// is not part of the parsing core (see §1 of SPEC_FULL.md) but gives
// cmd/httpserver something to answer a parsed request with.
package response

import (
	"fmt"
	"io"
	"strconv"

	"github.com/averylane/httpcore/internal/headers"
)

// StatusCode is a small, closed set of statuses the demo server answers
// with — enough to reflect the parser's own ParseError taxonomy back to
// a client (400, 413) alongside ordinary success/failure (200, 500).
type StatusCode int

const (
	StatusOK                  StatusCode = 200
	StatusBadRequest          StatusCode = 400
	StatusPayloadTooLarge     StatusCode = 413
	StatusInternalServerError StatusCode = 500
)

func (s StatusCode) reasonPhrase() string {
	switch s {
	case StatusOK:
		return "200 OK"
	case StatusBadRequest:
		return "400 Bad Request"
	case StatusPayloadTooLarge:
		return "413 Payload Too Large"
	case StatusInternalServerError:
		return "500 Internal Server Error"
	default:
		return strconv.Itoa(int(s))
	}
}

// WriteStatusLine writes "HTTP/1.1 <code> <reason>\r\n" to w.
func WriteStatusLine(w io.Writer, statusCode StatusCode) error {
	_, err := fmt.Fprintf(w, "HTTP/1.1 %s\r\n", statusCode.reasonPhrase())
	return err
}

// DefaultHeaders returns the headers suitable for a response with a
// static, fully-buffered body: Content-Length, Connection: close (this
// demo never keeps a connection alive across requests), and a
// Content-Type the caller can override.
func DefaultHeaders(contentLen int) headers.Headers {
	h := headers.New()
	h.Set("Content-Length", strconv.Itoa(contentLen))
	h.Set("Connection", "close")
	h.Set("Content-Type", "text/plain")
	return h
}

// WriteHeaders writes each header line, then the blank line that
// terminates the header section.
func WriteHeaders(w io.Writer, hdrs headers.Headers) error {
	for key, value := range hdrs {
		if _, err := fmt.Fprintf(w, "%s: %s\r\n", key, value); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "\r\n")
	return err
}

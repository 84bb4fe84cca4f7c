// Package request holds the finished request value produced by a
// successful parse, and the builder the parser accumulates it in.
package request

import (
	"strings"
	"unicode/utf8"

	"github.com/averylane/httpcore/internal/headers"
	"github.com/averylane/httpcore/internal/method"
)

// Request is a fully-materialized HTTP/1.1 request: a known method, a
// non-empty path, a case-preserved header mapping, and a body that is
// exactly Content-Length bytes when that header carried a valid value,
// and otherwise every byte up to end of input (possibly none).
type Request struct {
	Method  method.Method
	Path    string
	Headers headers.Headers
	Body    []byte
}

// Header returns the exact-case stored value for name, and whether it was
// present.
func (r *Request) Header(name string) (string, bool) {
	return r.Headers.Get(name)
}

// BodyAsText decodes Body as UTF-8, substituting the Unicode replacement
// character for any invalid byte sequences rather than failing.
func (r *Request) BodyAsText() string {
	if utf8.Valid(r.Body) {
		return string(r.Body)
	}
	var b strings.Builder
	b.Grow(len(r.Body))
	for i := 0; i < len(r.Body); {
		rn, size := utf8.DecodeRune(r.Body[i:])
		b.WriteRune(rn)
		i += size
	}
	return b.String()
}

// Builder accumulates a request's fields as the parser walks the token
// stream. Create one with NewBuilder; its zero value has method Unknown
// and a nil header map, which AddHeader cannot write to.
type Builder struct {
	method  method.Method
	path    string
	headers headers.Headers
	body    []byte
}

// NewBuilder returns a Builder defaulted per spec: method GET, empty path,
// empty headers, empty body.
func NewBuilder() *Builder {
	return &Builder{
		method:  method.GET,
		headers: headers.New(),
	}
}

// SetMethod records the request-line method.
func (b *Builder) SetMethod(m method.Method) *Builder {
	b.method = m
	return b
}

// SetPath records the request-line path.
func (b *Builder) SetPath(p string) *Builder {
	b.path = p
	return b
}

// AddHeader records a header pair. A duplicate exact name overwrites the
// previously recorded value.
func (b *Builder) AddHeader(name, value string) *Builder {
	b.headers.Set(name, value)
	return b
}

// SetBody records the request body bytes.
func (b *Builder) SetBody(body []byte) *Builder {
	b.body = body
	return b
}

// Build moves the builder's accumulated fields into a Request. The
// builder must not be used afterward.
func (b *Builder) Build() *Request {
	return &Request{
		Method:  b.method,
		Path:    b.path,
		Headers: b.headers,
		Body:    b.body,
	}
}

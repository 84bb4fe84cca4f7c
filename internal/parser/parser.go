// Package parser drives the lexer's token stream through the request
// grammar and materializes a request.Request, or reports a ParseError.
package parser

import (
	"errors"
	"fmt"
	"io"

	"github.com/averylane/httpcore/internal/lexer"
	"github.com/averylane/httpcore/internal/request"
	"github.com/averylane/httpcore/internal/token"
)

// ErrorKind tags the three parser-facing failure modes.
type ErrorKind int

const (
	Unexpected ErrorKind = iota
	EarlyEOF
	MaxHeaderSizeExceeded
)

func (k ErrorKind) String() string {
	switch k {
	case EarlyEOF:
		return "EarlyEOF"
	case MaxHeaderSizeExceeded:
		return "MaxHeaderSizeExceeded"
	default:
		return "Unexpected"
	}
}

// ParseError is the only error type Parse ever returns.
type ParseError struct {
	Kind ErrorKind
	Msg  string
}

func (e *ParseError) Error() string {
	if e.Msg == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func unexpected(msg string) *ParseError { return &ParseError{Kind: Unexpected, Msg: msg} }
func earlyEOF(msg string) *ParseError   { return &ParseError{Kind: EarlyEOF, Msg: msg} }
func maxHeaderSizeExceeded() *ParseError {
	return &ParseError{Kind: MaxHeaderSizeExceeded, Msg: "header section exceeded the size guard"}
}

func ioErr(err error) *ParseError {
	return &ParseError{Kind: Unexpected, Msg: fmt.Sprintf("io: %v", err)}
}

// Options customize the lexer's buffering policy for a single Parse call.
type Options struct {
	MaxHeaderBytes int
	ReadChunkSize  int
}

func (o Options) withDefaults() Options {
	if o.MaxHeaderBytes <= 0 {
		o.MaxHeaderBytes = lexer.DefaultMaxHeaderBytes
	}
	if o.ReadChunkSize <= 0 {
		o.ReadChunkSize = lexer.DefaultReadChunkSize
	}
	return o
}

// Parse reads one HTTP/1.1 request from src and returns the materialized
// request, or a *ParseError. Parse reads from src but never closes it.
func Parse(src io.Reader) (*request.Request, error) {
	return ParseWithOptions(src, Options{})
}

// ParseWithOptions is Parse with an explicit header-size guard and refill
// chunk size.
func ParseWithOptions(src io.Reader, opts Options) (*request.Request, error) {
	opts = opts.withDefaults()
	lx := lexer.NewWithLimits(src, opts.MaxHeaderBytes, opts.ReadChunkSize)
	return parse(lx)
}

func parse(lx *lexer.Lexer) (*request.Request, error) {
	b := request.NewBuilder()

	tok, err := next(lx)
	if err != nil {
		return nil, err
	}
	if tok.Kind != token.Method {
		return nil, unexpectedFor(tok, "method")
	}
	b.SetMethod(tok.Method)

	tok, err = next(lx)
	if err != nil {
		return nil, err
	}
	if tok.Kind != token.Path {
		return nil, unexpectedFor(tok, "path")
	}
	b.SetPath(tok.Text)

	tok, err = next(lx)
	if err != nil {
		return nil, err
	}
	if tok.Kind != token.Protocol {
		return nil, unexpectedFor(tok, "protocol")
	}

	tok, err = next(lx)
	if err != nil {
		return nil, err
	}
	if tok.Kind != token.Crlf {
		return nil, unexpectedFor(tok, "CRLF terminating the request line")
	}

	for {
		tok, err = next(lx)
		if err != nil {
			return nil, err
		}
		if tok.Kind == token.Crlf {
			break
		}
		if tok.Kind != token.HeaderName {
			return nil, unexpectedFor(tok, "header name or end of headers")
		}
		name := tok.Text

		tok, err = next(lx)
		if err != nil {
			return nil, err
		}
		if tok.Kind != token.HeaderValue {
			return nil, unexpectedFor(tok, "header value")
		}
		b.AddHeader(name, tok.Text)
	}

	if err := consumeBody(lx, b); err != nil {
		return nil, err
	}

	return b.Build(), nil
}

// consumeBody handles the one token position where "the stream ends
// here instead" is a legitimate outcome, not an early termination. The
// lexer emits a Body token even for a request with no body (an empty one
// when input ends right after the headers); an io.EOF here is likewise
// taken as an empty body.
func consumeBody(lx *lexer.Lexer, b *request.Builder) error {
	tok, err := lx.Next()
	switch {
	case err == nil:
		switch tok.Kind {
		case token.Body:
			b.SetBody(tok.Body)
		case token.Error:
			return unexpected(tok.ErrMsg)
		case token.MaxHeaderSizeExceeded:
			return maxHeaderSizeExceeded()
		default:
			return unexpectedFor(tok, "body or end of input")
		}
		return nil
	case errors.Is(err, io.EOF):
		return nil
	case errors.Is(err, io.ErrUnexpectedEOF):
		return earlyEOF("body ended before Content-Length bytes were read")
	default:
		return ioErr(err)
	}
}

// next fetches the next token, translating every way a required token can
// fail to arrive into the appropriate ParseError.
func next(lx *lexer.Lexer) (token.Token, error) {
	tok, err := lx.Next()
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return token.Token{}, earlyEOF("unexpected end of input")
		}
		return token.Token{}, ioErr(err)
	}
	switch tok.Kind {
	case token.Error:
		return token.Token{}, unexpected(tok.ErrMsg)
	case token.MaxHeaderSizeExceeded:
		return token.Token{}, maxHeaderSizeExceeded()
	}
	return tok, nil
}

func unexpectedFor(tok token.Token, want string) *ParseError {
	return unexpected(fmt.Sprintf("expected %s, got %s", want, tok.Kind))
}

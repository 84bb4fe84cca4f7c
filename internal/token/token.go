// Package token defines the tagged token stream emitted by the lexer and
// consumed by the parser.
package token

import (
	"strconv"

	"github.com/averylane/httpcore/internal/method"
)

// Kind tags which variant a Token holds.
type Kind int

const (
	Method Kind = iota
	Path
	Protocol
	HeaderName
	HeaderValue
	Body
	Crlf
	Error
	MaxHeaderSizeExceeded
)

func (k Kind) String() string {
	switch k {
	case Method:
		return "Method"
	case Path:
		return "Path"
	case Protocol:
		return "Protocol"
	case HeaderName:
		return "HeaderName"
	case HeaderValue:
		return "HeaderValue"
	case Body:
		return "Body"
	case Crlf:
		return "Crlf"
	case Error:
		return "Error"
	case MaxHeaderSizeExceeded:
		return "MaxHeaderSizeExceeded"
	default:
		return "Unknown"
	}
}

// Token is the single value the lexer produces per call to Lexer.Next.
// Only the field matching Kind is meaningful; the rest are zero values.
type Token struct {
	Kind   Kind
	Method method.Method
	Text   string // Path, HeaderName, HeaderValue
	Body   []byte
	ErrMsg string // set on Error
}

func (t Token) String() string {
	switch t.Kind {
	case Method:
		return "Method(" + t.Method.String() + ")"
	case Path, HeaderName, HeaderValue:
		return t.Kind.String() + "(" + t.Text + ")"
	case Body:
		return "Body(<" + strconv.Itoa(len(t.Body)) + " bytes>)"
	case Error:
		return "Error(" + t.ErrMsg + ")"
	default:
		return t.Kind.String()
	}
}

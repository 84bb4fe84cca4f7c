// Package lexer implements the pull-driven, buffered byte-stream lexer
// for HTTP/1.1 requests: a state machine that turns an io.Reader into a
// finite sequence of token.Token values, refilling its internal buffer on
// demand and guarding against unbounded header sections.
package lexer

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/averylane/httpcore/internal/method"
	"github.com/averylane/httpcore/internal/token"
)

// Tuning constants. DefaultMaxHeaderBytes is the §5 resource-policy cap on
// the header section; DefaultReadChunkSize is the recommended §4.1
// refill size while scanning headers.
const (
	DefaultMaxHeaderBytes = 8 * 1024
	DefaultReadChunkSize  = 1024
)

const crlf = "\r\n"

type state int

const (
	stateRequestLine state = iota
	stateHeaderName
	stateHeaderValue
	stateBody
	stateEnd
)

// rlStep tracks which piece of the request line is still expected; the
// request line has no token of its own in the §3 Token union, so this
// sub-state lives only inside stateRequestLine.
type rlStep int

const (
	rlMethod rlStep = iota
	rlPath
	rlProtocol
	rlCrlf
)

// Lexer pulls bytes from src on demand and emits one Token per call to
// Next. It owns src exclusively until the request is fully lexed or an
// Error/MaxHeaderSizeExceeded token halts production.
type Lexer struct {
	src io.Reader
	buf []byte
	// start is the index of the first unconsumed byte in buf.
	start int
	// eof records that src has returned io.EOF; buf may still hold
	// trailing bytes read alongside that EOF.
	eof bool

	maxHeaderBytes       int
	readChunkSize        int
	headerBytesConsumed  int

	state state
	rl    rlStep

	expectContentLength bool
	haveContentLength   bool
	contentLength        int

	halted bool
}

// New returns a Lexer over src using the default header-size guard and
// refill chunk size.
func New(src io.Reader) *Lexer {
	return NewWithLimits(src, DefaultMaxHeaderBytes, DefaultReadChunkSize)
}

// NewWithLimits returns a Lexer with an explicit header-size guard and
// refill chunk size, for callers (such as cmd/httpserver's flags) that
// need to tune them.
func NewWithLimits(src io.Reader, maxHeaderBytes, readChunkSize int) *Lexer {
	if maxHeaderBytes <= 0 {
		maxHeaderBytes = DefaultMaxHeaderBytes
	}
	if readChunkSize <= 0 {
		readChunkSize = DefaultReadChunkSize
	}
	return &Lexer{
		src:            src,
		state:          stateRequestLine,
		rl:             rlMethod,
		maxHeaderBytes: maxHeaderBytes,
		readChunkSize:  readChunkSize,
	}
}

// Next produces the next Token in the stream. A nil error with a zero
// Token never happens. io.EOF signals that no further tokens remain,
// either because the request was lexed to completion or because the
// source ended cleanly where a method, a header line or the blank line
// was due. io.ErrUnexpectedEOF signals that the source ended partway
// through the request line, a header line, or a Content-Length body. The
// parser is responsible for telling these cases apart. Any other non-nil
// error is a byte-source I/O failure.
func (l *Lexer) Next() (token.Token, error) {
	if l.halted {
		return token.Token{}, io.EOF
	}
	switch l.state {
	case stateRequestLine:
		switch l.rl {
		case rlMethod:
			return l.scanMethod()
		case rlPath:
			return l.scanPath()
		case rlProtocol:
			return l.scanProtocol()
		case rlCrlf:
			return l.scanRequestLineCrlf()
		}
	case stateHeaderName:
		return l.scanHeaderNameOrBlank()
	case stateHeaderValue:
		return l.scanHeaderValue()
	case stateBody:
		return l.scanBody()
	case stateEnd:
		return token.Token{}, io.EOF
	}
	return token.Token{}, fmt.Errorf("lexer: unreachable state %d/%d", l.state, l.rl)
}

func (l *Lexer) unconsumed() []byte {
	return l.buf[l.start:]
}

func (l *Lexer) compact() {
	if l.start == 0 {
		return
	}
	l.buf = append(l.buf[:0], l.buf[l.start:]...)
	l.start = 0
}

// fill reads one more chunk from src, if src has not already signaled
// EOF. It never blocks past a single underlying Read call.
func (l *Lexer) fill() error {
	if l.eof {
		return nil
	}
	chunk := make([]byte, l.readChunkSize)
	n, err := l.src.Read(chunk)
	if n > 0 {
		l.buf = append(l.buf, chunk[:n]...)
	}
	if err != nil {
		if err == io.EOF {
			l.eof = true
			return nil
		}
		return err
	}
	return nil
}

// ensure fills until at least n unconsumed bytes are buffered or src is
// exhausted.
func (l *Lexer) ensure(n int) error {
	for len(l.unconsumed()) < n && !l.eof {
		if err := l.fill(); err != nil {
			return err
		}
	}
	return nil
}

// advance moves past n consumed bytes, counting them against the header
// guard while still inside the header section, and periodically compacts
// the buffer so long bodies don't retain every byte ever buffered.
func (l *Lexer) advance(n int) {
	l.start += n
	switch l.state {
	case stateRequestLine, stateHeaderName, stateHeaderValue:
		l.headerBytesConsumed += n
	}
	if l.start > 4*l.readChunkSize {
		l.compact()
	}
}

// overHeaderBudget reports whether the header section — bytes already
// consumed plus whatever is sitting in the buffer unconsumed — has grown
// past the guard while still inside the header section. Checked both
// before blocking on more input and right after consuming a token, so a
// header with no terminator in sight is caught without buffering it all.
func (l *Lexer) overHeaderBudget() bool {
	switch l.state {
	case stateRequestLine, stateHeaderName, stateHeaderValue:
	default:
		return false
	}
	return l.headerBytesConsumed+len(l.unconsumed()) > l.maxHeaderBytes
}

func (l *Lexer) haltGuard() (token.Token, error) {
	l.halted = true
	l.state = stateEnd
	return token.Token{Kind: token.MaxHeaderSizeExceeded}, nil
}

func (l *Lexer) lexError(msg string) (token.Token, error) {
	l.halted = true
	l.state = stateEnd
	return token.Token{Kind: token.Error, ErrMsg: msg}, nil
}

func (l *Lexer) scanMethod() (token.Token, error) {
	for {
		if l.overHeaderBudget() {
			return l.haltGuard()
		}
		m, n, ok := method.Match(l.unconsumed(), l.eof)
		if ok {
			if m == method.Unknown {
				if len(l.unconsumed()) == 0 {
					return token.Token{}, io.EOF
				}
				return l.lexError("unrecognized method")
			}
			l.advance(n)
			if l.overHeaderBudget() {
				return l.haltGuard()
			}
			if err := l.skipRequestLineWhitespace(); err != nil {
				return token.Token{}, err
			}
			l.rl = rlPath
			return token.Token{Kind: token.Method, Method: m}, nil
		}
		if err := l.fill(); err != nil {
			return token.Token{}, err
		}
	}
}

// skipRequestLineWhitespace absorbs the SP/HTAB boundary between
// request-line tokens; the lexer is whitespace-sensitive everywhere else.
func (l *Lexer) skipRequestLineWhitespace() error {
	for {
		data := l.unconsumed()
		i := 0
		for i < len(data) && (data[i] == ' ' || data[i] == '\t') {
			i++
		}
		l.advance(i)
		if i < len(data) || l.eof {
			return nil
		}
		if err := l.fill(); err != nil {
			return err
		}
	}
}

func isPathChar(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z':
		return true
	case b >= '0' && b <= '9':
		return true
	}
	switch b {
	case '-', '.', '_', '~', '%', '!', '$', '&', '\'', '(', ')', '*', '+', ',', ';', '=', ':', '@', '/':
		return true
	}
	return false
}

func (l *Lexer) scanPath() (token.Token, error) {
	for {
		if l.overHeaderBudget() {
			return l.haltGuard()
		}
		data := l.unconsumed()
		i := 0
		for i < len(data) && isPathChar(data[i]) {
			i++
		}
		if i < len(data) || l.eof {
			if i == 0 {
				if len(data) == 0 {
					return token.Token{}, io.ErrUnexpectedEOF
				}
				return l.lexError("empty or invalid path")
			}
			text := string(data[:i])
			l.advance(i)
			if l.overHeaderBudget() {
				return l.haltGuard()
			}
			if err := l.skipRequestLineWhitespace(); err != nil {
				return token.Token{}, err
			}
			l.rl = rlProtocol
			return token.Token{Kind: token.Path, Text: text}, nil
		}
		if err := l.fill(); err != nil {
			return token.Token{}, err
		}
	}
}

const protocolLiteral = "HTTP/1.1"

func (l *Lexer) scanProtocol() (token.Token, error) {
	if err := l.ensure(len(protocolLiteral)); err != nil {
		return token.Token{}, err
	}
	if l.overHeaderBudget() {
		return l.haltGuard()
	}
	data := l.unconsumed()
	if len(data) < len(protocolLiteral) {
		return token.Token{}, io.ErrUnexpectedEOF
	}
	if string(data[:len(protocolLiteral)]) != protocolLiteral {
		return l.lexError("unrecognized protocol")
	}
	l.advance(len(protocolLiteral))
	if l.overHeaderBudget() {
		return l.haltGuard()
	}
	l.rl = rlCrlf
	return token.Token{Kind: token.Protocol}, nil
}

func (l *Lexer) scanRequestLineCrlf() (token.Token, error) {
	if err := l.ensure(2); err != nil {
		return token.Token{}, err
	}
	if l.overHeaderBudget() {
		return l.haltGuard()
	}
	data := l.unconsumed()
	if len(data) < 2 {
		return token.Token{}, io.ErrUnexpectedEOF
	}
	if data[0] != '\r' || data[1] != '\n' {
		return l.lexError("expected CRLF after protocol")
	}
	l.advance(2)
	if l.overHeaderBudget() {
		return l.haltGuard()
	}
	l.state = stateHeaderName
	return token.Token{Kind: token.Crlf}, nil
}

func (l *Lexer) scanHeaderNameOrBlank() (token.Token, error) {
	for {
		if l.overHeaderBudget() {
			return l.haltGuard()
		}
		data := l.unconsumed()
		if len(data) >= 2 && data[0] == '\r' && data[1] == '\n' {
			l.advance(2)
			if l.overHeaderBudget() {
				return l.haltGuard()
			}
			l.state = stateBody
			return token.Token{Kind: token.Crlf}, nil
		}
		if len(data) == 1 && data[0] == '\r' && !l.eof {
			if err := l.fill(); err != nil {
				return token.Token{}, err
			}
			continue
		}
		return l.scanHeaderName()
	}
}

func isTChar(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		return true
	}
	switch b {
	case '!', '#', '$', '%', '&', '\'', '*', '+', '-', '.', '^', '_', '`', '|', '~':
		return true
	}
	return false
}

func isValidHeaderNameToken(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	for _, c := range b {
		if !isTChar(c) {
			return false
		}
	}
	return true
}

func (l *Lexer) scanHeaderName() (token.Token, error) {
	for {
		if l.overHeaderBudget() {
			return l.haltGuard()
		}
		data := l.unconsumed()
		idx := bytes.IndexByte(data, ':')
		if idx >= 0 {
			name := data[:idx]
			if !isValidHeaderNameToken(name) {
				return l.lexError("invalid header name")
			}
			nameText := string(name)
			l.advance(idx + 1)
			if l.overHeaderBudget() {
				return l.haltGuard()
			}
			l.state = stateHeaderValue
			l.expectContentLength = strings.EqualFold(nameText, "content-length")
			return token.Token{Kind: token.HeaderName, Text: nameText}, nil
		}
		if l.eof {
			if len(data) == 0 {
				return token.Token{}, io.EOF
			}
			return token.Token{}, io.ErrUnexpectedEOF
		}
		if err := l.fill(); err != nil {
			return token.Token{}, err
		}
	}
}

func (l *Lexer) scanHeaderValue() (token.Token, error) {
	for {
		if l.overHeaderBudget() {
			return l.haltGuard()
		}
		data := l.unconsumed()
		idx := bytes.Index(data, []byte(crlf))
		if idx >= 0 {
			value := strings.TrimLeft(string(data[:idx]), " \t")
			l.advance(idx + 2)
			if l.overHeaderBudget() {
				return l.haltGuard()
			}
			l.state = stateHeaderName
			l.captureContentLength(value)
			return token.Token{Kind: token.HeaderValue, Text: value}, nil
		}
		if l.eof {
			return token.Token{}, io.ErrUnexpectedEOF
		}
		if err := l.fill(); err != nil {
			return token.Token{}, err
		}
	}
}

// captureContentLength implements the lexer/parser side-channel described
// in the design notes: only the lexer ever inspects header names to arm
// this, and only to decide the body boundary.
func (l *Lexer) captureContentLength(value string) {
	if !l.expectContentLength {
		return
	}
	l.expectContentLength = false
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 0 {
		l.haveContentLength = false
		l.contentLength = 0
		return
	}
	l.haveContentLength = true
	l.contentLength = n
}

func (l *Lexer) scanBody() (token.Token, error) {
	if l.haveContentLength {
		if err := l.ensure(l.contentLength); err != nil {
			return token.Token{}, err
		}
		if len(l.unconsumed()) < l.contentLength {
			return token.Token{}, io.ErrUnexpectedEOF
		}
		body := make([]byte, l.contentLength)
		copy(body, l.unconsumed()[:l.contentLength])
		l.advance(l.contentLength)
		l.state = stateEnd
		return token.Token{Kind: token.Body, Body: body}, nil
	}
	for !l.eof {
		if err := l.fill(); err != nil {
			return token.Token{}, err
		}
	}
	body := make([]byte, len(l.unconsumed()))
	copy(body, l.unconsumed())
	l.advance(len(body))
	l.state = stateEnd
	return token.Token{Kind: token.Body, Body: body}, nil
}

package parser

import (
	"bytes"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/averylane/httpcore/internal/method"
)

// S1 — simple GET.
func TestSimpleGet(t *testing.T) {
	raw := "GET / HTTP/1.1\r\nHeader-1: value1\r\nHeader-2: value2\r\nHeader-3: value3\r\n\r\n"
	req, err := Parse(strings.NewReader(raw))
	require.NoError(t, err)

	assert.Equal(t, method.GET, req.Method)
	assert.Equal(t, "/", req.Path)
	assert.Empty(t, req.Body)

	for name, want := range map[string]string{
		"Header-1": "value1",
		"Header-2": "value2",
		"Header-3": "value3",
	} {
		v, ok := req.Header(name)
		require.True(t, ok, name)
		assert.Equal(t, want, v)
	}
}

// S2 — POST with body, no Content-Length.
func TestPostWithBodyNoContentLength(t *testing.T) {
	raw := "POST / HTTP/1.1\r\nHeader-1: value1\r\n\r\nThis is the body"
	req, err := Parse(strings.NewReader(raw))
	require.NoError(t, err)

	assert.Equal(t, method.POST, req.Method)
	assert.Equal(t, "/", req.Path)
	assert.Equal(t, "This is the body", string(req.Body))
}

// S3 — POST with Content-Length truncation.
func TestPostWithContentLengthTruncation(t *testing.T) {
	raw := "POST / HTTP/1.1\r\nContent-Length: 4\r\n\r\nThis is the body"
	req, err := Parse(strings.NewReader(raw))
	require.NoError(t, err)

	assert.Equal(t, method.POST, req.Method)
	assert.Equal(t, "This", string(req.Body))
}

// S4 — large body larger than buffer.
func TestLargeBody(t *testing.T) {
	body := bytes.Repeat([]byte("x"), 50000)
	raw := "POST / HTTP/1.1\r\nContent-Length: 50000\r\n\r\n" + string(body)
	req, err := Parse(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Len(t, req.Body, 50000)
}

// S5 — oversized header.
func TestOversizedHeader(t *testing.T) {
	huge := strings.Repeat("x", 50000)
	raw := "POST / HTTP/1.1\r\nHeader-1: " + huge + "\r\nHeader-2: value2\r\n\r\n"
	_, err := Parse(strings.NewReader(raw))
	require.Error(t, err)
	pe, ok := err.(*ParseError)
	require.True(t, ok)
	assert.Equal(t, MaxHeaderSizeExceeded, pe.Kind)
}

// S6 — path with dots/slashes.
func TestPathWithDotsAndSlashes(t *testing.T) {
	raw := "GET /static/test.txt HTTP/1.1\r\nA: b\r\n\r\n"
	req, err := Parse(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "/static/test.txt", req.Path)
}

func TestOrderIndependenceOfHeaders(t *testing.T) {
	a := "GET / HTTP/1.1\r\nHeader-1: value1\r\nHeader-2: value2\r\n\r\n"
	b := "GET / HTTP/1.1\r\nHeader-2: value2\r\nHeader-1: value1\r\n\r\n"

	reqA, err := Parse(strings.NewReader(a))
	require.NoError(t, err)
	reqB, err := Parse(strings.NewReader(b))
	require.NoError(t, err)

	assert.Equal(t, reqA.Headers, reqB.Headers)
}

func TestEarlyEOFAfterRequestLine(t *testing.T) {
	_, err := Parse(strings.NewReader("GET / HTTP/1.1\r\n"))
	require.Error(t, err)
	pe, ok := err.(*ParseError)
	require.True(t, ok)
	assert.Equal(t, EarlyEOF, pe.Kind)
}

func TestEarlyEOFMidHeaders(t *testing.T) {
	_, err := Parse(strings.NewReader("GET / HTTP/1.1\r\nHost: example.com\r\n"))
	require.Error(t, err)
	pe, ok := err.(*ParseError)
	require.True(t, ok)
	assert.Equal(t, EarlyEOF, pe.Kind)
}

func TestEarlyEOFShortBody(t *testing.T) {
	raw := "POST / HTTP/1.1\r\nContent-Length: 100\r\n\r\ntoo short"
	_, err := Parse(strings.NewReader(raw))
	require.Error(t, err)
	pe, ok := err.(*ParseError)
	require.True(t, ok)
	assert.Equal(t, EarlyEOF, pe.Kind)
}

func TestUnrecognizedMethodIsUnexpected(t *testing.T) {
	_, err := Parse(strings.NewReader("FROB / HTTP/1.1\r\n\r\n"))
	require.Error(t, err)
	pe, ok := err.(*ParseError)
	require.True(t, ok)
	assert.Equal(t, Unexpected, pe.Kind)
}

func TestMalformedProtocolIsUnexpected(t *testing.T) {
	_, err := Parse(strings.NewReader("GET / HTTP/2.0\r\n\r\n"))
	require.Error(t, err)
	pe, ok := err.(*ParseError)
	require.True(t, ok)
	assert.Equal(t, Unexpected, pe.Kind)
}

func TestCustomHeaderGuard(t *testing.T) {
	raw := "GET / HTTP/1.1\r\nHeader-1: " + strings.Repeat("x", 200) + "\r\n\r\n"
	_, err := ParseWithOptions(strings.NewReader(raw), Options{MaxHeaderBytes: 64, ReadChunkSize: 16})
	require.Error(t, err)
	pe, ok := err.(*ParseError)
	require.True(t, ok)
	assert.Equal(t, MaxHeaderSizeExceeded, pe.Kind)
}

func TestContentLengthIdempotence(t *testing.T) {
	for _, n := range []int{0, 1, 4, 4096} {
		body := strings.Repeat("y", n+10)
		raw := "POST / HTTP/1.1\r\nContent-Length: " + strconv.Itoa(n) + "\r\n\r\n" + body
		req, err := Parse(strings.NewReader(raw))
		require.NoError(t, err)
		assert.Len(t, req.Body, n)
	}
}

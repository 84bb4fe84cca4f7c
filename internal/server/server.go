// Package server is the demo TCP server that sits on top of the parsing
// core: it accepts connections, hands each one's bytes to
// parser.ParseWithOptions,
// and dispatches the resulting request.Request to a caller-supplied
// Handler. It is explicitly outside the parsing core's own scope.
package server

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/averylane/httpcore/internal/parser"
	"github.com/averylane/httpcore/internal/request"
	"github.com/averylane/httpcore/internal/response"
)

type Server struct {
	listener net.Listener
	closed   atomic.Bool
	handler  Handler
	opts     parser.Options
	log      *zap.Logger
}

type Handler func(w io.Writer, req *request.Request) *HandlerError

type HandlerError struct {
	StatusCode response.StatusCode
	Message    string
}

// Serve starts a Server listening on bindAddress:port and returns it
// immediately; each accepted connection is parsed and dispatched on its
// own goroutine.
func Serve(bindAddress string, port int, handler Handler, opts parser.Options, log *zap.Logger) (*Server, error) {
	listener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", bindAddress, port))
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		handler:  handler,
		listener: listener,
		opts:     opts,
		log:      log,
	}
	go s.listen()
	return s, nil
}

func (s *Server) listen() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.closed.Load() {
				return
			}
			s.log.Error("accept failed", zap.Error(err))
			continue
		}
		go s.handle(conn)
	}
}

// Close marks the server as closed and closes the underlying listener.
func (s *Server) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		return s.listener.Close()
	}
	return nil
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()

	req, err := parser.ParseWithOptions(conn, s.opts)
	if err != nil {
		s.log.Info("parse failed", zap.Error(err), zap.String("remote", conn.RemoteAddr().String()))
		hErr := &HandlerError{
			StatusCode: statusForParseError(err),
			Message:    err.Error(),
		}
		hErr.Write(conn)
		return
	}

	buf := bytes.NewBuffer(nil)
	if hErr := s.handler(buf, req); hErr != nil {
		hErr.Write(conn)
		return
	}

	b := buf.Bytes()
	w := response.NewWriter(conn)
	if err := w.WriteStatusLine(response.StatusOK); err != nil {
		s.log.Error("write status line failed", zap.Error(err))
		return
	}
	if err := w.WriteHeaders(response.DefaultHeaders(len(b))); err != nil {
		s.log.Error("write headers failed", zap.Error(err))
		return
	}
	if _, err := w.WriteBody(b); err != nil {
		s.log.Error("write body failed", zap.Error(err))
	}
}

// statusForParseError reflects a parser.ParseError's Kind back to the
// client: a header section that blew the size guard is 413, anything
// else malformed about the request is 400.
func statusForParseError(err error) response.StatusCode {
	pe, ok := err.(*parser.ParseError)
	if !ok {
		return response.StatusBadRequest
	}
	if pe.Kind == parser.MaxHeaderSizeExceeded {
		return response.StatusPayloadTooLarge
	}
	return response.StatusBadRequest
}

func (hErr *HandlerError) Write(w io.Writer) {
	body := []byte(hErr.Message)
	response.WriteStatusLine(w, hErr.StatusCode)
	response.WriteHeaders(w, response.DefaultHeaders(len(body)))
	w.Write(body)
}

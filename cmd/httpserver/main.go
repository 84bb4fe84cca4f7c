// Command httpserver is a small demo that answers three fixed routes
// over the parsing core, so the core has something end-to-end to run
// against besides unit tests.
package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/averylane/httpcore/internal/parser"
	"github.com/averylane/httpcore/internal/request"
	"github.com/averylane/httpcore/internal/response"
	"github.com/averylane/httpcore/internal/server"
)

func main() {
	var (
		bindAddress    string
		port           int
		maxHeaderBytes int
		readChunkSize  int
		debug          bool
	)

	cmd := &cobra.Command{
		Use:   "httpserver",
		Short: "Demo TCP server answering over the request parser",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger(debug)
			if err != nil {
				return fmt.Errorf("building logger: %w", err)
			}
			defer log.Sync()

			opts := parser.Options{
				MaxHeaderBytes: maxHeaderBytes,
				ReadChunkSize:  readChunkSize,
			}

			srv, err := server.Serve(bindAddress, port, handler, opts, log)
			if err != nil {
				return fmt.Errorf("starting server: %w", err)
			}
			defer srv.Close()
			log.Info("server started", zap.String("bind_address", bindAddress), zap.Int("port", port))

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
			<-sigChan
			log.Info("server gracefully stopped")
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&bindAddress, "bind-address", "b", "127.0.0.1", "IP address to bind to")
	flags.IntVar(&port, "port", 42069, "TCP port to listen on")
	flags.IntVar(&maxHeaderBytes, "max-header-bytes", 0, "header section size guard (0 uses the parser default)")
	flags.IntVar(&readChunkSize, "read-chunk-size", 0, "bytes requested per underlying Read (0 uses the parser default)")
	flags.BoolVar(&debug, "debug", false, "enable development-mode logging")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// handler writes a body for the happy path and returns a *HandlerError
// for the two routes that demonstrate error statuses; the server writes
// the status line and headers around whichever outcome it gets back.
func handler(w io.Writer, req *request.Request) *server.HandlerError {
	switch req.Path {
	case "/yourproblem":
		return &server.HandlerError{
			StatusCode: response.StatusBadRequest,
			Message:    htmlBody("400 Bad Request", "Bad Request", "Your request honestly kinda sucked."),
		}
	case "/myproblem":
		return &server.HandlerError{
			StatusCode: response.StatusInternalServerError,
			Message:    htmlBody("500 Internal Server Error", "Internal Server Error", "Okay, you know what? This one is on me."),
		}
	default:
		io.WriteString(w, htmlBody("200 OK", "Success!", "Your request was an absolute banger."))
		return nil
	}
}

func htmlBody(title, heading, message string) string {
	return fmt.Sprintf(`<html>
<head><title>%s</title></head>
<body><h1>%s</h1><p>%s</p></body>
</html>
`, title, heading, message)
}

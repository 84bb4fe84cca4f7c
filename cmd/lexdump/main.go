// Command lexdump accepts one connection at a time on :42069 and prints
// every token the lexer produces from it, one per line. It generalizes
// the old line-at-a-time TCP listener into a token-at-a-time one: bytes
// come off the wire in small reads and get handed to the lexer instead
// of being split on '\n' by hand.
package main

import (
	"fmt"
	"io"
	"log"
	"net"

	"github.com/averylane/httpcore/internal/lexer"
	"github.com/averylane/httpcore/internal/token"
)

func main() {
	listener, err := net.Listen("tcp", ":42069")
	if err != nil {
		log.Fatalf("error creating listener: %v", err)
	}
	defer listener.Close()

	fmt.Println("lexdump is listening on :42069")

	for {
		conn, err := listener.Accept()
		if err != nil {
			log.Printf("error accepting connection: %v", err)
			continue
		}
		fmt.Println("a connection has been accepted")
		handleConnection(conn)
	}
}

func handleConnection(conn net.Conn) {
	defer conn.Close()

	for tok := range tokenChannel(conn) {
		fmt.Println(tok.String())
	}

	fmt.Println("the connection has been closed")
}

func tokenChannel(r io.Reader) <-chan token.Token {
	ch := make(chan token.Token)

	go func() {
		defer close(ch)

		lx := lexer.New(r)
		for {
			tok, err := lx.Next()
			if err != nil {
				if err != io.EOF {
					log.Printf("error reading: %v", err)
				}
				return
			}
			ch <- tok
			if tok.Kind == token.Error || tok.Kind == token.MaxHeaderSizeExceeded {
				return
			}
		}
	}()

	return ch
}

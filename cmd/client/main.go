/*
Package main is the terminal client for the chat server.

It is a thin front end: it establishes the TLS connection, prints every
server line, and relays stdin lines back. All protocol logic lives on the
server. Connection attempts are retried up to three times with a linear
backoff.
*/
package main

import (
	"bufio"
	"crypto/tls"
	"flag"
	"fmt"
	"os"
	"time"

	"tlschat/internal/handler"
	"tlschat/internal/pkg/tlsx"
)

const maxAttempts = 3

func main() {
	host := flag.String("host", "localhost", "server host")
	port := flag.Int("port", 6697, "server port")
	caFile := flag.String("ca", "database/keys/server.crt", "PEM bundle of trusted server certificates")
	serverName := flag.String("servername", "", "expected certificate name when it differs from the host")
	flag.Parse()

	tlsConfig, err := tlsx.ClientConfig(*caFile, *serverName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "TLS setup failed: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf("%s:%d", *host, *port)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		conn, err := tls.Dial("tcp", addr, tlsConfig)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Connection attempt %d failed\n", attempt)
			if attempt < maxAttempts {
				time.Sleep(time.Duration(attempt) * time.Second)
			}
			continue
		}

		runSession(conn)
		return
	}

	fmt.Fprintf(os.Stderr, "Failed to connect after %d attempts\n", maxAttempts)
	os.Exit(1)
}

// runSession relays server lines to stdout and stdin lines to the server.
// It returns once the server side of the connection ends, either by the
// exit sentinel or by the connection dropping.
func runSession(conn *tls.Conn) {
	defer conn.Close()

	done := make(chan struct{})

	go func() {
		defer close(done)
		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			line := scanner.Text()
			if line == handler.ExitSentinel {
				return
			}
			fmt.Println(line)
		}
	}()

	// The stdin relay is abandoned when the session ends; the process exits
	// right after, so the blocked Scan never matters.
	go func() {
		stdin := bufio.NewScanner(os.Stdin)
		for stdin.Scan() {
			if _, err := fmt.Fprintf(conn, "%s\n", stdin.Text()); err != nil {
				return
			}
		}
	}()

	<-done
	fmt.Println("Disconnected")
}

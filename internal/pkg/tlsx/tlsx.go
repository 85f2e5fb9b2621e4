/*
Package tlsx loads TLS certificate material for the server listener and the
terminal client. There is no plaintext fallback: a missing or unreadable
certificate is a fatal startup failure.
*/
package tlsx

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// ServerConfig builds a server-side tls.Config from a PEM certificate/key pair.
func ServerConfig(certFile, keyFile string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("load server key pair: %w", err)
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// ClientConfig builds a client-side tls.Config trusting the certificates in
// the given PEM bundle. serverName overrides the hostname used for
// verification, for deployments whose certificate names differ from the
// dialed address.
func ClientConfig(caFile, serverName string) (*tls.Config, error) {
	pem, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("read trust bundle: %w", err)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("trust bundle %s contains no usable certificates", caFile)
	}

	cfg := &tls.Config{
		RootCAs:    pool,
		MinVersion: tls.VersionTLS12,
	}
	if serverName != "" {
		cfg.ServerName = serverName
	}

	return cfg, nil
}

package tlsx

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// writeSelfSigned writes a throwaway self-signed cert/key pair and returns
// their paths.
func writeSelfSigned(t *testing.T) (certFile, keyFile string) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "localhost"},
		DNSNames:     []string{"localhost"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	require.NoError(t, err)
	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	dir := t.TempDir()
	certFile = filepath.Join(dir, "server.crt")
	keyFile = filepath.Join(dir, "server.key")
	require.NoError(t, os.WriteFile(certFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600))
	require.NoError(t, os.WriteFile(keyFile, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0o600))
	return certFile, keyFile
}

func TestServerConfigLoadsKeyPair(t *testing.T) {
	req := require.New(t)
	certFile, keyFile := writeSelfSigned(t)

	cfg, err := ServerConfig(certFile, keyFile)
	req.NoError(err)
	req.Len(cfg.Certificates, 1)
	req.EqualValues(tls.VersionTLS12, cfg.MinVersion)
}

func TestServerConfigFailsOnMissingFiles(t *testing.T) {
	_, err := ServerConfig("missing.crt", "missing.key")
	require.Error(t, err)
}

func TestClientConfigTrustsBundle(t *testing.T) {
	req := require.New(t)
	certFile, _ := writeSelfSigned(t)

	cfg, err := ClientConfig(certFile, "chat.example.com")
	req.NoError(err)
	req.NotNil(cfg.RootCAs)
	req.Equal("chat.example.com", cfg.ServerName)
}

func TestClientConfigRejectsEmptyBundle(t *testing.T) {
	empty := filepath.Join(t.TempDir(), "ca.pem")
	require.NoError(t, os.WriteFile(empty, []byte("not a certificate"), 0o600))

	_, err := ClientConfig(empty, "")
	require.Error(t, err)
}

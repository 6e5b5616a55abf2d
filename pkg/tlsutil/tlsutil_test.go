package tlsutil

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureCertPair_GeneratesValidPair(t *testing.T) {
	dir := t.TempDir()
	certFile := filepath.Join(dir, "cert.pem")
	keyFile := filepath.Join(dir, "key.pem")

	require.NoError(t, EnsureCertPair(certFile, keyFile))

	// The pair must load as a usable TLS certificate.
	pair, err := tls.LoadX509KeyPair(certFile, keyFile)
	require.NoError(t, err)
	require.NotEmpty(t, pair.Certificate)

	certPEM, err := os.ReadFile(certFile)
	require.NoError(t, err)
	block, _ := pem.Decode(certPEM)
	require.NotNil(t, block)

	cert, err := x509.ParseCertificate(block.Bytes)
	require.NoError(t, err)
	assert.Equal(t, "BackendBuddy", cert.Subject.CommonName)
	assert.Contains(t, cert.DNSNames, "localhost")
}

func TestEnsureCertPair_LeavesExistingFiles(t *testing.T) {
	dir := t.TempDir()
	certFile := filepath.Join(dir, "cert.pem")
	keyFile := filepath.Join(dir, "key.pem")

	require.NoError(t, EnsureCertPair(certFile, keyFile))
	before, err := os.ReadFile(certFile)
	require.NoError(t, err)

	require.NoError(t, EnsureCertPair(certFile, keyFile))
	after, err := os.ReadFile(certFile)
	require.NoError(t, err)

	assert.Equal(t, before, after, "existing pair must not be regenerated")
}

func TestEnsureCertPair_RegeneratesWhenKeyMissing(t *testing.T) {
	dir := t.TempDir()
	certFile := filepath.Join(dir, "cert.pem")
	keyFile := filepath.Join(dir, "key.pem")

	require.NoError(t, EnsureCertPair(certFile, keyFile))
	require.NoError(t, os.Remove(keyFile))

	require.NoError(t, EnsureCertPair(certFile, keyFile))
	_, err := tls.LoadX509KeyPair(certFile, keyFile)
	assert.NoError(t, err)
}

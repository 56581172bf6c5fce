package transport_test

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"io"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"http-client/transport"
	"http-client/transport/pipe"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func selfSigned(t *testing.T, host string) (certPEM, keyPEM []byte) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: host},
		DNSNames:              []string{host},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})
	return certPEM, keyPEM
}

func TestTLSOptionsConfig(t *testing.T) {
	certPEM, keyPEM := selfSigned(t, "example.test")

	dir := t.TempDir()
	caFile := filepath.Join(dir, "ca.pem")
	require.NoError(t, os.WriteFile(caFile, certPEM, 0o600))
	bundle := filepath.Join(dir, "client.crt")
	require.NoError(t, os.WriteFile(bundle, append(certPEM, keyPEM...), 0o600))

	t.Run("no verification", func(t *testing.T) {
		cfg, err := transport.TLSOptions{}.Config()
		require.NoError(t, err)
		assert.True(t, cfg.InsecureSkipVerify)
		assert.Nil(t, cfg.RootCAs)
	})

	t.Run("ca file and path", func(t *testing.T) {
		cfg, err := transport.TLSOptions{VerifyPeer: true, CAFile: caFile, CAPath: dir}.Config()
		require.NoError(t, err)
		assert.False(t, cfg.InsecureSkipVerify)
		assert.NotNil(t, cfg.RootCAs)
	})

	t.Run("client certificate", func(t *testing.T) {
		cfg, err := transport.TLSOptions{CertFile: bundle}.Config()
		require.NoError(t, err)
		assert.Len(t, cfg.Certificates, 1)
	})

	t.Run("missing ca file", func(t *testing.T) {
		_, err := transport.TLSOptions{CAFile: filepath.Join(dir, "missing.pem")}.Config()
		assert.Error(t, err)
	})
}

func TestTLSClient(t *testing.T) {
	certPEM, keyPEM := selfSigned(t, "example.test")

	serverCert, err := tls.X509KeyPair(certPEM, keyPEM)
	require.NoError(t, err)

	roots := x509.NewCertPool()
	require.True(t, roots.AppendCertsFromPEM(certPEM))

	c1, c2 := pipe.BufferedPipe("client", "server", clock.New(), 1<<16)

	done := make(chan struct{})
	go func() {
		defer close(done)
		srv := tls.Server(transport.AsNetConn(c2), &tls.Config{
			Certificates:           []tls.Certificate{serverCert},
			SessionTicketsDisabled: true,
		})
		defer srv.Close()

		b := make([]byte, 4)
		if _, err := io.ReadFull(srv, b); err != nil {
			return
		}
		_, _ = srv.Write(b)
	}()

	conn, err := transport.TLSClient(context.Background(), c1, &tls.Config{
		ServerName: "example.test",
		RootCAs:    roots,
	})
	require.NoError(t, err)

	_, err = conn.Write([]byte("ping"))
	require.NoError(t, err)

	b := make([]byte, 4)
	_, err = io.ReadFull(conn, b)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(b))

	require.NoError(t, conn.Close())
	<-done
}

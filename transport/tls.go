package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// TLSOptions configures the client side of a TLS session.
type TLSOptions struct {
	// ServerName is verified against the certificate and sent with SNI.
	ServerName string
	// VerifyPeer enables certificate verification.
	VerifyPeer bool
	// CAFile is a PEM bundle of trusted roots.
	CAFile string
	// CAPath is a directory of PEM files of trusted roots.
	CAPath string
	// CertFile is a PEM file holding the client certificate and its private key.
	CertFile string
	// Passphrase decrypts an encrypted private key of CertFile.
	Passphrase string
}

// Config builds the tls.Config of the options.
// Without CAFile and CAPath the system roots are used.
func (o TLSOptions) Config() (*tls.Config, error) {
	cfg := &tls.Config{
		ServerName:         o.ServerName,
		InsecureSkipVerify: !o.VerifyPeer,
		MinVersion:         tls.VersionTLS12,
	}

	if o.CAFile != "" || o.CAPath != "" {
		pool := x509.NewCertPool()

		files := make([]string, 0)
		if o.CAFile != "" {
			files = append(files, o.CAFile)
		}
		if o.CAPath != "" {
			matches, err := filepath.Glob(filepath.Join(o.CAPath, "*.pem"))
			if err != nil {
				return nil, errors.Wrap(err, "listing ca path")
			}
			files = append(files, matches...)
		}

		for _, f := range files {
			b, err := os.ReadFile(f)
			if err != nil {
				return nil, errors.Wrap(err, "reading ca file")
			}
			if !pool.AppendCertsFromPEM(b) {
				return nil, errors.Errorf("no certificate found in %q", f)
			}
		}
		cfg.RootCAs = pool
	}

	if o.CertFile != "" {
		cert, err := loadKeyPair(o.CertFile, o.Passphrase)
		if err != nil {
			return nil, err
		}
		cfg.Certificates = []tls.Certificate{cert}
	}

	return cfg, nil
}

func loadKeyPair(file, passphrase string) (tls.Certificate, error) {
	b, err := os.ReadFile(file)
	if err != nil {
		return tls.Certificate{}, errors.Wrap(err, "reading cert file")
	}

	var certPEM, keyPEM []byte
	for {
		var block *pem.Block
		block, b = pem.Decode(b)
		if block == nil {
			break
		}

		if block.Type == "CERTIFICATE" {
			certPEM = append(certPEM, pem.EncodeToMemory(block)...)
			continue
		}

		//nolint:staticcheck // Legacy encrypted PEM is what passphrase protected keys look like.
		if x509.IsEncryptedPEMBlock(block) {
			der, err := x509.DecryptPEMBlock(block, []byte(passphrase))
			if err != nil {
				return tls.Certificate{}, errors.Wrap(err, "decrypting private key")
			}
			block = &pem.Block{Type: block.Type, Bytes: der}
		}
		keyPEM = append(keyPEM, pem.EncodeToMemory(block)...)
	}

	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return tls.Certificate{}, errors.Wrap(err, "loading key pair")
	}
	return cert, nil
}

// TLSClient performs the client handshake over c.
// The returned connection owns c.
func TLSClient(ctx context.Context, c Conn, cfg *tls.Config) (Conn, error) {
	tc := tls.Client(AsNetConn(c), cfg)
	if err := tc.HandshakeContext(ctx); err != nil {
		_ = c.Close()
		return nil, errors.Wrap(err, "tls handshake")
	}
	return WrapNetConn(tc), nil
}

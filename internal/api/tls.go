package api

import (
	"crypto/tls"
	"fmt"
)

// TLSConfig holds certificate paths. Both must be set to serve HTTPS; the
// page's service worker only registers in a secure context off localhost.
type TLSConfig struct {
	CertFile string
	KeyFile  string
}

func (c TLSConfig) Enabled() bool {
	return c.CertFile != "" && c.KeyFile != ""
}

// Load reads the key pair. It returns nil, nil when TLS is not configured.
func (c TLSConfig) Load() (*tls.Config, error) {
	if !c.Enabled() {
		return nil, nil
	}

	cert, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("load TLS certificate: %w", err)
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

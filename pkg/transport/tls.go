package transport

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// DefaultPort is the default TLS port for the broker connection.
const DefaultPort = 8883

// TLSConfig holds the certificate material for the broker connection.
type TLSConfig struct {
	// CAFile is the path to the PEM-encoded trust anchor. Both the broker
	// certificate and every device certificate chain to this CA.
	CAFile string

	// CertFile is the path to the gateway's PEM-encoded certificate.
	CertFile string

	// KeyFile is the path to the gateway's PEM-encoded private key.
	KeyFile string

	// ServerName is the expected broker server name. Defaults to the
	// broker host when empty.
	ServerName string

	// InsecureSkipVerify disables broker certificate verification.
	// Only for testing - never use in production!
	InsecureSkipVerify bool
}

// NewClientTLSConfig creates a TLS configuration for the gateway's
// connection to the broker.
func NewClientTLSConfig(cfg *TLSConfig) (*tls.Config, error) {
	if cfg == nil {
		return nil, fmt.Errorf("TLSConfig is required")
	}
	if cfg.CertFile == "" || cfg.KeyFile == "" {
		return nil, fmt.Errorf("gateway certificate and key are required")
	}

	cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load gateway key pair: %w", err)
	}

	roots, err := LoadCertPool(cfg.CAFile)
	if err != nil {
		return nil, err
	}

	tlsConfig := &tls.Config{
		// TLS 1.2 minimum; brokers commonly negotiate 1.3
		MinVersion: tls.VersionTLS12,

		// Certificate for this gateway
		Certificates: []tls.Certificate{cert},

		// CA pool for verifying the broker certificate
		RootCAs: roots,

		// Server name for verification
		ServerName: cfg.ServerName,

		// Curve preferences for key exchange
		CurvePreferences: []tls.CurveID{
			tls.X25519,
			tls.CurveP256,
		},

		// For testing only
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	}

	return tlsConfig, nil
}

// LoadCertPool loads a PEM-encoded CA bundle into a certificate pool.
func LoadCertPool(path string) (*x509.CertPool, error) {
	if path == "" {
		return nil, fmt.Errorf("trust anchor file is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read trust anchor: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(data) {
		return nil, fmt.Errorf("no certificates found in %s", path)
	}
	return pool, nil
}

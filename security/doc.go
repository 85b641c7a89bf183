// Package security provides the TLS configuration of client transports.
//
//	cfg := security.TLSConfig{
//	    CAFile:     "/etc/ssl/internal-ca.pem",
//	    MinVersion: "1.2",
//	}
//
//	tlsConfig, err := cfg.Build()
package security

package tlsconfig

import (
	"crypto/tls"
	"fmt"
)

// ParseVersion maps "1.2" or "1.3" to its crypto/tls constant. Empty means
// TLS 1.3. Older versions are rejected.
func ParseVersion(v string) (uint16, error) {
	switch v {
	case "1.3", "":
		return tls.VersionTLS13, nil
	case "1.2":
		return tls.VersionTLS12, nil
	default:
		return 0, fmt.Errorf("unsupported TLS version %q (must be \"1.2\" or \"1.3\")", v)
	}
}

// ServerConfig returns a server tls.Config that takes its certificate from r
// on every handshake.
func ServerConfig(r *Reloader, minVersion string) (*tls.Config, error) {
	version, err := ParseVersion(minVersion)
	if err != nil {
		return nil, err
	}
	// #nosec G402 - MinVersion is 1.2 or 1.3
	return &tls.Config{
		MinVersion:     version,
		GetCertificate: r.GetCertificate,
		NextProtos:     []string{"h2", "http/1.1"},
	}, nil
}

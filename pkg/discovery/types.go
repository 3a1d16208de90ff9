package discovery

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Service constants.
const (
	// ServiceType is the DNS-SD service type for secdgram servers.
	ServiceType = "_secdgram._udp"

	// Domain is the DNS-SD domain.
	Domain = "local"

	// ProtocolVersion is the advertised protocol version.
	ProtocolVersion = "1"

	// BrowseTimeout is the default timeout for resolve operations.
	BrowseTimeout = 10 * time.Second
)

// Discovery errors.
var (
	ErrNotFound        = errors.New("service not found")
	ErrVersionMismatch = errors.New("unsupported protocol version")
)

// ServerService describes one discovered secdgram server.
type ServerService struct {
	// Instance is the advertised instance name.
	Instance string

	// Host is the mDNS host name.
	Host string

	// Port is the UDP port.
	Port uint16

	// Addresses are the resolved IP addresses, IPv4 first.
	Addresses []string

	// Version is the advertised protocol version.
	Version string

	// IdentityHint is the PSK identity hint the server presents, if any.
	IdentityHint string
}

// Addr returns a dialable address for the service, preferring a resolved
// IP over the mDNS host name.
func (s *ServerService) Addr() string {
	host := s.Host
	if len(s.Addresses) > 0 {
		host = s.Addresses[0]
	}
	if strings.Contains(host, ":") {
		// IPv6 literal.
		return fmt.Sprintf("[%s]:%d", host, s.Port)
	}
	return fmt.Sprintf("%s:%d", host, s.Port)
}

// serverTXT holds the decoded TXT record values.
type serverTXT struct {
	Version      string
	IdentityHint string
}

// decodeServerTXT parses key=value TXT strings. The version key is
// required; unknown keys are ignored.
func decodeServerTXT(txt []string) (serverTXT, error) {
	var out serverTXT
	for _, record := range txt {
		key, value, found := strings.Cut(record, "=")
		if !found {
			continue
		}
		switch key {
		case "v":
			out.Version = value
		case "id":
			out.IdentityHint = value
		}
	}
	if out.Version == "" {
		return out, fmt.Errorf("missing version TXT record")
	}
	if out.Version != ProtocolVersion {
		return out, fmt.Errorf("%w: %s", ErrVersionMismatch, out.Version)
	}
	return out, nil
}

// encodeServerTXT builds the TXT strings for an advertisement.
func encodeServerTXT(identityHint string) []string {
	txt := []string{"v=" + ProtocolVersion}
	if identityHint != "" {
		txt = append(txt, "id="+identityHint)
	}
	return txt
}

package config

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// TransportScheme selects which transport connector family reaches the server.
type TransportScheme int

const (
	SchemeWs TransportScheme = iota
	SchemeWss
	SchemeHTTP
	SchemeHTTPS
)

func (s TransportScheme) String() string {
	switch s {
	case SchemeWs:
		return "ws"
	case SchemeWss:
		return "wss"
	case SchemeHTTP:
		return "http"
	case SchemeHTTPS:
		return "https"
	}
	return "unknown"
}

// Secure reports whether the scheme uses TLS.
func (s TransportScheme) Secure() bool { return s == SchemeWss || s == SchemeHTTPS }

// ParseScheme maps a URL scheme string to a TransportScheme.
func ParseScheme(raw string) (TransportScheme, error) {
	switch raw {
	case "ws":
		return SchemeWs, nil
	case "wss":
		return SchemeWss, nil
	case "http":
		return SchemeHTTP, nil
	case "https":
		return SchemeHTTPS, nil
	}
	return 0, fmt.Errorf("unsupported transport scheme %q", raw)
}

// RemoteAddr is a logical tunnel destination.
type RemoteAddr struct {
	Protocol string
	Host     string
	Port     uint16
}

func (r RemoteAddr) String() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(int(r.Port)))
}

// ParseRemoteAddr parses "host:port" into a RemoteAddr with the given protocol.
func ParseRemoteAddr(protocol, hostport string) (RemoteAddr, error) {
	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		return RemoteAddr{}, fmt.Errorf("invalid destination %q: %w", hostport, err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return RemoteAddr{}, fmt.Errorf("invalid port in %q: %w", hostport, err)
	}
	return RemoteAddr{Protocol: protocol, Host: host, Port: uint16(port)}, nil
}

// ClaimDecoder verifies and decodes a signed routing claim found in the
// transport handshake response. Implemented by claims.Decoder; kept as an
// interface here so config does not depend on the claims package.
type ClaimDecoder interface {
	FromHandshake(headers http.Header) (*RemoteAddr, error)
}

// Client is the immutable client configuration shared read-only by every
// tunnel task. Construct once at startup; never mutate afterwards.
type Client struct {
	// Server is the tunnel server endpoint (not the final destination).
	Server RemoteAddr
	// Scheme selects the transport connector family.
	Scheme TransportScheme
	// PingFrequency is the idle interval after which a transport keepalive
	// frame is sent on the local-to-remote direction. Zero disables pings.
	PingFrequency time.Duration
	// ConnectTimeout bounds the transport handshake.
	ConnectTimeout time.Duration
	// Headers are extra headers sent with the transport handshake.
	Headers http.Header
	// TLS is used by the secure scheme variants. May be nil for plain ones.
	TLS *tls.Config
	// Claims verifies server-issued routing claims for reverse tunnels.
	// Nil means claims are ignored.
	Claims ClaimDecoder
}

// ParseServerURL fills Server and Scheme from a ws://, wss://, http:// or
// https:// URL. A missing port defaults to 80 or 443 depending on the scheme.
func (c *Client) ParseServerURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid server url %q: %w", raw, err)
	}
	scheme, err := ParseScheme(u.Scheme)
	if err != nil {
		return err
	}
	port := uint16(80)
	if scheme.Secure() {
		port = 443
	}
	if p := u.Port(); p != "" {
		v, err := strconv.ParseUint(p, 10, 16)
		if err != nil {
			return fmt.Errorf("invalid port in server url %q: %w", raw, err)
		}
		port = uint16(v)
	}
	if u.Hostname() == "" {
		return fmt.Errorf("server url %q has no host", raw)
	}
	c.Scheme = scheme
	c.Server = RemoteAddr{Protocol: "tcp", Host: u.Hostname(), Port: port}
	return nil
}

package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/http2"

	"github.com/CorrM/wstunnel/internal/config"
)

const h2PingTimeout = 10 * time.Second

// connectHTTP2 opens a duplex stream over a single http2 request: the request
// body carries the outbound direction, the response body the inbound one.
// Keepalives are h2 PING frames on the connection.
func connectHTTP2(ctx context.Context, requestID uuid.UUID, cfg *config.Client, dest *config.RemoteAddr) (*Session, error) {
	addr := cfg.Server.String()
	d := net.Dialer{Timeout: cfg.ConnectTimeout}
	raw, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("http2 dial %s: %w", addr, err)
	}
	conn := raw
	scheme := "http"
	if cfg.Scheme.Secure() {
		scheme = "https"
		tlsCfg := cfg.TLS
		if tlsCfg == nil {
			tlsCfg = &tls.Config{}
		} else {
			tlsCfg = tlsCfg.Clone()
		}
		if tlsCfg.ServerName == "" {
			tlsCfg.ServerName = cfg.Server.Host
		}
		tlsCfg.NextProtos = []string{"h2"}
		tc := tls.Client(raw, tlsCfg)
		if err := tc.HandshakeContext(ctx); err != nil {
			_ = raw.Close()
			return nil, fmt.Errorf("http2 tls handshake %s: %w", addr, err)
		}
		conn = tc
	}

	t := &http2.Transport{AllowHTTP: !cfg.Scheme.Secure()}
	cc, err := t.NewClientConn(conn)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("http2 client conn: %w", err)
	}

	pr, pw := io.Pipe()
	// The request outlives the connect context: the body streams for the whole
	// relay lifetime.
	req, err := http.NewRequest(http.MethodPost, scheme+"://"+addr+"/v1/tunnel", pr)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	req.Header = handshakeHeaders(requestID, cfg, dest)
	resp, err := cc.RoundTrip(req)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("http2 open stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("http2 handshake refused: %s", resp.Status)
	}
	return &Session{
		Reader:    resp.Body,
		Writer:    &h2Stream{body: pw, cc: cc},
		Handshake: resp.Header,
		closer:    conn,
	}, nil
}

type h2Stream struct {
	body *io.PipeWriter
	cc   *http2.ClientConn
}

func (s *h2Stream) Write(b []byte) (int, error) { return s.body.Write(b) }

func (s *h2Stream) Ping() error {
	ctx, cancel := context.WithTimeout(context.Background(), h2PingTimeout)
	defer cancel()
	return s.cc.Ping(ctx)
}

// Close half-closes the stream by ending the request body.
func (s *h2Stream) Close() error { return s.body.Close() }

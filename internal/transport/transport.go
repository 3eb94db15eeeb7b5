package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/CorrM/wstunnel/internal/config"
	"github.com/CorrM/wstunnel/internal/obs"
)

// TunnelReader is the inbound (server to client) half of a tunnel session.
type TunnelReader interface {
	io.Reader
}

// TunnelWriter is the outbound half of a tunnel session.
type TunnelWriter interface {
	io.Writer
	// Ping sends a transport-level keepalive frame.
	Ping() error
	// Close signals end of the outbound stream to the server.
	Close() error
}

// Session is the product of one successful transport connect. It is owned by
// exactly one relay pair and torn down when the relay completes.
type Session struct {
	Reader    TunnelReader
	Writer    TunnelWriter
	Handshake http.Header

	closer io.Closer
}

// Close tears down the underlying transport connection.
func (s *Session) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// Connect dials the tunnel server with the connector matching the configured
// scheme. The scheme set is closed: websocket (ws/wss) and http2 (http/https).
func Connect(ctx context.Context, requestID uuid.UUID, cfg *config.Client, dest *config.RemoteAddr) (*Session, error) {
	obs.ConnectAttemptsTotal.WithLabelValues(cfg.Scheme.String()).Inc()
	switch cfg.Scheme {
	case config.SchemeWs, config.SchemeWss:
		return connectWebsocket(ctx, requestID, cfg, dest)
	case config.SchemeHTTP, config.SchemeHTTPS:
		return connectHTTP2(ctx, requestID, cfg, dest)
	}
	return nil, fmt.Errorf("no connector for scheme %s", cfg.Scheme)
}

// handshakeHeaders builds the headers sent with every transport handshake:
// configured extras, the request identity and the requested destination.
func handshakeHeaders(requestID uuid.UUID, cfg *config.Client, dest *config.RemoteAddr) http.Header {
	h := http.Header{}
	for k, vs := range cfg.Headers {
		h[k] = append([]string(nil), vs...)
	}
	h.Set("X-Request-Id", requestID.String())
	if dest != nil {
		h.Set("X-Tunnel-Protocol", dest.Protocol)
		h.Set("X-Tunnel-Host", dest.Host)
		h.Set("X-Tunnel-Port", strconv.Itoa(int(dest.Port)))
	}
	return h
}

package transport

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/CorrM/wstunnel/internal/config"
)

const wsWriteTimeout = 10 * time.Second

func connectWebsocket(ctx context.Context, requestID uuid.UUID, cfg *config.Client, dest *config.RemoteAddr) (*Session, error) {
	scheme := "ws"
	if cfg.Scheme.Secure() {
		scheme = "wss"
	}
	u := url.URL{Scheme: scheme, Host: cfg.Server.String(), Path: "/v1/tunnel"}
	dialer := websocket.Dialer{
		HandshakeTimeout: cfg.ConnectTimeout,
		TLSClientConfig:  cfg.TLS,
	}
	conn, resp, err := dialer.DialContext(ctx, u.String(), handshakeHeaders(requestID, cfg, dest))
	if err != nil {
		return nil, fmt.Errorf("websocket dial %s: %w", u.Host, err)
	}
	handshake := http.Header{}
	if resp != nil {
		handshake = resp.Header
	}
	ws := &wsStream{conn: conn}
	return &Session{Reader: ws, Writer: ws, Handshake: handshake, closer: conn}, nil
}

// wsStream adapts a websocket connection to the tunnel reader/writer pair.
// Tunnel payload travels in binary messages; keepalives are ping frames.
// Writes are serialized because the websocket connection permits only one
// concurrent writer.
type wsStream struct {
	conn    *websocket.Conn
	wmu     sync.Mutex
	readBuf []byte
}

func (s *wsStream) Read(b []byte) (int, error) {
	if len(s.readBuf) > 0 {
		n := copy(b, s.readBuf)
		s.readBuf = s.readBuf[n:]
		return n, nil
	}
	for {
		kind, data, err := s.conn.ReadMessage()
		if err != nil {
			return 0, err
		}
		if kind != websocket.BinaryMessage || len(data) == 0 {
			continue
		}
		n := copy(b, data)
		if n < len(data) {
			s.readBuf = data[n:]
		}
		return n, nil
	}
}

func (s *wsStream) Write(b []byte) (int, error) {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	if err := s.conn.WriteMessage(websocket.BinaryMessage, b); err != nil {
		return 0, err
	}
	return len(b), nil
}

func (s *wsStream) Ping() error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	return s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout))
}

// Close announces end of the outbound stream with a close frame. The
// underlying connection stays open so the inbound direction can drain;
// Session.Close tears it down.
func (s *wsStream) Close() error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	deadline := time.Now().Add(wsWriteTimeout)
	return s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
}

package connectors

import (
	"context"
	"errors"
	"io"
	"net"
	"time"

	"github.com/CorrM/wstunnel/internal/config"
)

// TCPDialer opens the final local destination of a reverse tunnel.
type TCPDialer struct {
	// Fallback is dialed when the server supplied no routing claim.
	Fallback *config.RemoteAddr
	Timeout  time.Duration
}

func (d *TCPDialer) Connect(ctx context.Context, dest *config.RemoteAddr) (io.ReadWriteCloser, error) {
	if dest == nil {
		dest = d.Fallback
	}
	if dest == nil {
		return nil, errors.New("no destination: server sent no routing claim and no fallback is configured")
	}
	nd := net.Dialer{Timeout: d.Timeout}
	return nd.DialContext(ctx, "tcp", dest.String())
}

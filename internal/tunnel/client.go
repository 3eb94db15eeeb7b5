package tunnel

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/CorrM/wstunnel/internal/claims"
	"github.com/CorrM/wstunnel/internal/config"
	"github.com/CorrM/wstunnel/internal/obs"
	"github.com/CorrM/wstunnel/internal/transport"
)

// reverseRetryDelay is the pause between reverse tunnel reconnect attempts.
// Fixed at one second; a var only so tests do not wait on the wall clock.
var reverseRetryDelay = time.Second

// Accept is one item of the lazy accept sequence a local listener produces.
// Either Conn+Dest or Err is set.
type Accept struct {
	Conn net.Conn
	Dest config.RemoteAddr
	Err  error
}

// LocalConnector opens the final local destination of a reverse tunnel.
// dest is the claim-resolved destination; nil when the server never supplied
// a routing claim.
type LocalConnector interface {
	Connect(ctx context.Context, dest *config.RemoteAddr) (io.ReadWriteCloser, error)
}

// DialFunc matches transport.Connect.
type DialFunc func(ctx context.Context, requestID uuid.UUID, cfg *config.Client, dest *config.RemoteAddr) (*transport.Session, error)

// Client orchestrates tunnel connections against one configured server.
type Client struct {
	cfg  *config.Client
	dial DialFunc
	log  *zap.Logger
}

func NewClient(cfg *config.Client, lg *zap.Logger) *Client {
	return &Client{cfg: cfg, dial: transport.Connect, log: lg}
}

// newRequestID returns a time-ordered identity for one connection attempt.
func newRequestID() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}

// Run is the forward tunnel loop: for every accepted local connection, open
// one transport session and relay. Dispatch is fire-and-forget; a failed
// accept never stops subsequent ones. Returns when the sequence ends or ctx
// is done.
func (c *Client) Run(ctx context.Context, incoming <-chan Accept) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case acc, ok := <-incoming:
			if !ok {
				return nil
			}
			if acc.Err != nil {
				c.log.Error("tunnel.accept.error", zap.Error(acc.Err))
				obs.ConnectErrorsTotal.WithLabelValues("accept").Inc()
				continue
			}
			requestID := newRequestID()
			lg := c.log.With(zap.String("id", requestID.String()), zap.String("remote", acc.Dest.String()))
			go func(acc Accept) {
				defer acc.Conn.Close()
				if err := c.connectToServer(ctx, requestID, &acc.Dest, acc.Conn, lg); err != nil {
					lg.Error("tunnel.connect.error", zap.Error(err))
					obs.ConnectErrorsTotal.WithLabelValues("transport").Inc()
				}
			}(acc)
		}
	}
}

// RunReverse is the reverse tunnel loop: one persistent session attempt at a
// time, forever. On transport failure it backs off a fixed second; on local
// connect failure it restarts immediately. A verified routing claim from the
// handshake replaces the working destination for this and later iterations.
func (c *Client) RunReverse(ctx context.Context, connector LocalConnector) error {
	var working *config.RemoteAddr
	for {
		if ctx.Err() != nil {
			return nil
		}
		requestID := newRequestID()
		lg := c.log.With(zap.String("id", requestID.String()), zap.String("remote", c.cfg.Server.String()))

		sess, err := c.dial(ctx, requestID, c.cfg, &c.cfg.Server)
		if err != nil {
			lg.Error("tunnel.connect.retry", zap.Error(err), zap.Duration("delay", reverseRetryDelay))
			obs.ConnectErrorsTotal.WithLabelValues("transport").Inc()
			obs.ReverseRetriesTotal.Inc()
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(reverseRetryDelay):
			}
			continue
		}

		dest, ok := c.resolveClaim(sess.Handshake, lg)
		if !ok {
			_ = sess.Close()
			continue
		}
		if dest != nil {
			working = dest
		}

		local, err := connector.Connect(ctx, working)
		if err != nil {
			lg.Error("tunnel.local_connect.error", zap.Error(err))
			obs.ConnectErrorsTotal.WithLabelValues("local").Inc()
			_ = sess.Close()
			continue
		}
		c.relay(sess, local, lg)
		_ = local.Close()
	}
}

// resolveClaim inspects the handshake for a signed routing claim. A missing
// or unverifiable claim degrades to nil (the previous working destination is
// kept by the caller); a claim that verifies but names no usable destination
// aborts the attempt instead of dialing an empty address.
func (c *Client) resolveClaim(handshake http.Header, lg *zap.Logger) (*config.RemoteAddr, bool) {
	if c.cfg.Claims == nil {
		return nil, true
	}
	dest, err := c.cfg.Claims.FromHandshake(handshake)
	switch {
	case err == nil:
		if dest.Host == "" || dest.Port == 0 {
			lg.Error("tunnel.claim.unusable", zap.String("host", dest.Host), zap.Uint16("port", dest.Port))
			obs.ClaimDecodeErrorTotal.Inc()
			return nil, false
		}
		lg.Debug("tunnel.claim.resolved", zap.String("dest", dest.String()), zap.String("protocol", dest.Protocol))
		return dest, true
	case errors.Is(err, claims.ErrNoClaim):
		return nil, true
	default:
		lg.Error("tunnel.claim.rejected", zap.Error(err))
		obs.ClaimDecodeErrorTotal.Inc()
		return nil, true
	}
}

// connectToServer opens one transport session for dest and relays the local
// stream over it. Returns once the inbound direction has drained; the
// outbound direction runs as its own task until the local side closes.
func (c *Client) connectToServer(ctx context.Context, requestID uuid.UUID, dest *config.RemoteAddr, local io.ReadWriter, lg *zap.Logger) error {
	sess, err := c.dial(ctx, requestID, c.cfg, dest)
	if err != nil {
		return err
	}
	c.relay(sess, local, lg)
	return nil
}

// relay bridges a local duplex stream and a tunnel session: local-to-remote
// spawned, remote-to-local run here to completion, then session teardown.
func (c *Client) relay(sess *transport.Session, local io.ReadWriter, lg *zap.Logger) {
	obs.ActiveRelays.Inc()
	start := time.Now()
	defer func() {
		obs.ActiveRelays.Dec()
		obs.RelayDurationSeconds.Observe(time.Since(start).Seconds())
	}()
	defer sess.Close()

	sig := NewCloseSignal()
	go LocalToRemote(local, sess.Writer, sig, c.cfg.PingFrequency, lg)
	_ = RemoteToLocal(local, sess.Reader, sig, lg)
	lg.Debug("relay.close")
}

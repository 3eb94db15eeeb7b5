package listeners

import (
	"context"
	"net"

	"github.com/CorrM/wstunnel/internal/config"
	"github.com/CorrM/wstunnel/internal/tunnel"
)

// ListenTCP binds addr and produces the accept sequence the forward tunnel
// loop consumes. Every accepted connection is tagged with dest, the remote
// destination it should be tunneled to. Temporary accept errors are forwarded
// as error items and accepting continues; a hard listener error ends the
// sequence. The listener closes when ctx is done.
func ListenTCP(ctx context.Context, addr string, dest config.RemoteAddr) (<-chan tunnel.Accept, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	out := make(chan tunnel.Accept)
	go func() {
		defer close(out)
		for {
			c, err := ln.Accept()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if ne, ok := err.(net.Error); ok && ne.Temporary() {
					out <- tunnel.Accept{Err: err}
					continue
				}
				out <- tunnel.Accept{Err: err}
				return
			}
			out <- tunnel.Accept{Conn: c, Dest: dest}
		}
	}()
	return out, nil
}

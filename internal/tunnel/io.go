package tunnel

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/CorrM/wstunnel/internal/obs"
	"github.com/CorrM/wstunnel/internal/transport"
)

const relayBufSize = 32 * 1024

// CloseSignal is a one-shot notification fired by the local-to-remote relay
// leg when the local stream has finished, observed by the remote-to-local leg.
// Fire is safe to call more than once; the signal fires exactly once.
type CloseSignal struct {
	once sync.Once
	ch   chan struct{}
}

func NewCloseSignal() *CloseSignal { return &CloseSignal{ch: make(chan struct{})} }

func (s *CloseSignal) Fire() { s.once.Do(func() { close(s.ch) }) }

func (s *CloseSignal) Done() <-chan struct{} { return s.ch }

// LocalToRemote copies the local stream to the transport writer until the
// local side reaches EOF or errors. When no data has flowed for a full
// pingEvery interval, one transport keepalive frame is sent instead. On exit
// the outbound stream is half-closed and the close signal fired.
func LocalToRemote(local io.Reader, remote transport.TunnelWriter, sig *CloseSignal, pingEvery time.Duration, lg *zap.Logger) {
	defer sig.Fire()
	defer func() { _ = remote.Close() }()

	var lastData atomic.Int64
	lastData.Store(time.Now().UnixNano())
	if pingEvery > 0 {
		stop := make(chan struct{})
		defer close(stop)
		go keepalive(remote, &lastData, pingEvery, stop, lg)
	}

	buf := make([]byte, relayBufSize)
	for {
		n, err := local.Read(buf)
		if n > 0 {
			lastData.Store(time.Now().UnixNano())
			if _, werr := remote.Write(buf[:n]); werr != nil {
				lg.Debug("relay.local_to_remote.write", zap.Error(werr))
				return
			}
			obs.RelayBytesTotal.WithLabelValues("local_to_remote").Add(float64(n))
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				lg.Debug("relay.local_to_remote.read", zap.Error(err))
			}
			return
		}
	}
}

func keepalive(remote transport.TunnelWriter, lastData *atomic.Int64, every time.Duration, stop <-chan struct{}, lg *zap.Logger) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			if time.Since(time.Unix(0, lastData.Load())) < every {
				continue
			}
			if err := remote.Ping(); err != nil {
				lg.Debug("relay.keepalive.error", zap.Error(err))
				return
			}
			lastData.Store(time.Now().UnixNano())
			obs.KeepaliveTotal.Inc()
		}
	}
}

// RemoteToLocal copies the transport reader to the local stream until the
// transport side reaches EOF or errors. The close signal is a hint that the
// counterpart leg has finished; the copy in progress is never aborted, the
// leg simply keeps draining until the transport closes too.
func RemoteToLocal(local io.Writer, remote transport.TunnelReader, sig *CloseSignal, lg *zap.Logger) error {
	done := make(chan error, 1)
	go func() {
		buf := make([]byte, relayBufSize)
		for {
			n, err := remote.Read(buf)
			if n > 0 {
				if _, werr := local.Write(buf[:n]); werr != nil {
					done <- werr
					return
				}
				obs.RelayBytesTotal.WithLabelValues("remote_to_local").Add(float64(n))
			}
			if err != nil {
				if errors.Is(err, io.EOF) {
					err = nil
				}
				done <- err
				return
			}
		}
	}()

	sigCh := sig.Done()
	for {
		select {
		case err := <-done:
			if err != nil {
				lg.Debug("relay.remote_to_local", zap.Error(err))
			}
			return err
		case <-sigCh:
			lg.Debug("relay.remote_to_local.counterpart_done")
			sigCh = nil
		}
	}
}

package tunnel

import (
	"bytes"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

// fakeTunnelWriter records everything the relay sends remote-bound.
type fakeTunnelWriter struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	pings  int
	closes int
}

func (w *fakeTunnelWriter) Write(b []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(b)
}

func (w *fakeTunnelWriter) Ping() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pings++
	return nil
}

func (w *fakeTunnelWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closes++
	return nil
}

func (w *fakeTunnelWriter) snapshot() (string, int, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String(), w.pings, w.closes
}

func TestLocalToRemoteDeliversAndSignalsOnce(t *testing.T) {
	fw := &fakeTunnelWriter{}
	sig := NewCloseSignal()

	LocalToRemote(strings.NewReader("hello"), fw, sig, 0, zap.NewNop())

	select {
	case <-sig.Done():
	default:
		t.Fatal("close signal not fired after local EOF")
	}
	got, _, closes := fw.snapshot()
	if got != "hello" {
		t.Errorf("remote received %q, want %q", got, "hello")
	}
	if closes != 1 {
		t.Errorf("remote writer closed %d times, want 1", closes)
	}
	// Firing again must be a no-op, not a panic or a second close.
	sig.Fire()
}

func TestLocalToRemoteKeepalive(t *testing.T) {
	fw := &fakeTunnelWriter{}
	sig := NewCloseSignal()
	pr, pw := io.Pipe()

	done := make(chan struct{})
	go func() {
		LocalToRemote(pr, fw, sig, 60*time.Millisecond, zap.NewNop())
		close(done)
	}()

	// No application data for just over one interval: exactly one keepalive.
	time.Sleep(100 * time.Millisecond)
	_, pings, _ := fw.snapshot()
	if pings != 1 {
		t.Errorf("got %d keepalives after one idle interval, want 1", pings)
	}

	if _, err := pw.Write([]byte("late")); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = pw.Close()
	<-done

	got, _, _ := fw.snapshot()
	if got != "late" {
		t.Errorf("remote received %q, want %q", got, "late")
	}
}

func TestRemoteToLocalDrains(t *testing.T) {
	var local bytes.Buffer
	sig := NewCloseSignal()
	sig.Fire() // counterpart already done; leg must still drain everything

	if err := RemoteToLocal(&local, strings.NewReader("payload"), sig, zap.NewNop()); err != nil {
		t.Fatalf("relay error: %v", err)
	}
	if local.String() != "payload" {
		t.Errorf("local received %q, want %q", local.String(), "payload")
	}
}

func TestRelayBothLegsTerminate(t *testing.T) {
	// Local sends then closes; remote echoes a response then closes. Both
	// directions must end without outside intervention.
	fw := &fakeTunnelWriter{}
	sig := NewCloseSignal()

	var local bytes.Buffer
	legs := make(chan struct{}, 2)
	go func() {
		LocalToRemote(strings.NewReader("ping"), fw, sig, 0, zap.NewNop())
		legs <- struct{}{}
	}()
	go func() {
		_ = RemoteToLocal(&local, strings.NewReader("pong"), sig, zap.NewNop())
		legs <- struct{}{}
	}()

	for i := 0; i < 2; i++ {
		select {
		case <-legs:
		case <-time.After(2 * time.Second):
			t.Fatal("relay leg did not terminate")
		}
	}
	if local.String() != "pong" {
		t.Errorf("local received %q, want %q", local.String(), "pong")
	}
}

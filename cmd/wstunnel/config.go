package main

import (
	"time"

	flag "github.com/spf13/pflag"
)

// Config holds client runtime configuration derived from flags.
type Config struct {
	Server         string
	LocalAddr      string
	Dest           string
	Reverse        bool
	Secret         string
	PingFrequency  time.Duration
	ConnectTimeout time.Duration
	MetricsAddr    string
	Insecure       bool
	Debug          bool
}

var cfg Config

// init registers all client flags into the default flag set.
func init() {
	flag.StringVar(&cfg.Server, "server", "ws://127.0.0.1:8080", "tunnel server url (ws://, wss://, http:// or https://)")
	flag.StringVar(&cfg.LocalAddr, "local", "127.0.0.1:8000", "local bind address for forward tunnels")
	flag.StringVar(&cfg.Dest, "dest", "", "destination host:port (forward: tunnel target; reverse: fallback when the server sends no routing claim)")
	flag.BoolVar(&cfg.Reverse, "reverse", false, "run a reverse tunnel instead of accepting local connections")
	flag.StringVar(&cfg.Secret, "secret", "", "shared secret verifying server routing claims; empty disables verification")
	flag.DurationVar(&cfg.PingFrequency, "ping-frequency", 30*time.Second, "idle interval between transport keepalive frames (0 disables)")
	flag.DurationVar(&cfg.ConnectTimeout, "connect-timeout", 10*time.Second, "transport handshake timeout")
	flag.StringVar(&cfg.MetricsAddr, "metrics", ":9100", "metrics and health listen address (empty disables)")
	flag.BoolVar(&cfg.Insecure, "insecure", false, "skip TLS certificate verification for wss/https")
	flag.BoolVar(&cfg.Debug, "debug", false, "enable debug logs")
	flag.Parse()
}

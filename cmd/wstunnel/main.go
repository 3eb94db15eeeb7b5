package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/CorrM/wstunnel/internal/claims"
	"github.com/CorrM/wstunnel/internal/config"
	"github.com/CorrM/wstunnel/internal/obs"
	"github.com/CorrM/wstunnel/internal/tunnel"
	"github.com/CorrM/wstunnel/internal/tunnel/connectors"
	"github.com/CorrM/wstunnel/internal/tunnel/listeners"
)

func main() {
	lg := obs.NewLogger(cfg.Debug)
	defer func() { _ = lg.Sync() }()

	client := config.Client{
		PingFrequency:  cfg.PingFrequency,
		ConnectTimeout: cfg.ConnectTimeout,
	}
	if err := client.ParseServerURL(cfg.Server); err != nil {
		lg.Error("config.server", zap.Error(err))
		os.Exit(1)
	}
	if cfg.Insecure && client.Scheme.Secure() {
		client.TLS = &tls.Config{InsecureSkipVerify: true}
	}
	if cfg.Secret != "" {
		client.Claims = claims.NewDecoder([]byte(cfg.Secret))
	}

	var dest *config.RemoteAddr
	if cfg.Dest != "" {
		d, err := config.ParseRemoteAddr("tcp", cfg.Dest)
		if err != nil {
			lg.Error("config.dest", zap.Error(err))
			os.Exit(1)
		}
		dest = &d
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		go startMetricsServer(cfg.MetricsAddr, lg)
	}

	c := tunnel.NewClient(&client, lg)
	if cfg.Reverse {
		lg.Info("client.start.reverse", zap.String("server", client.Server.String()), zap.String("scheme", client.Scheme.String()))
		if err := c.RunReverse(ctx, &connectors.TCPDialer{Fallback: dest, Timeout: cfg.ConnectTimeout}); err != nil {
			lg.Error("client.reverse", zap.Error(err))
			os.Exit(1)
		}
		return
	}

	if dest == nil {
		lg.Error("config.dest", zap.String("reason", "forward mode requires --dest"))
		os.Exit(1)
	}
	lg.Info("client.start.forward",
		zap.String("local", cfg.LocalAddr),
		zap.String("dest", dest.String()),
		zap.String("server", client.Server.String()),
		zap.String("scheme", client.Scheme.String()))
	incoming, err := listeners.ListenTCP(ctx, cfg.LocalAddr, *dest)
	if err != nil {
		lg.Error("listen.local", zap.Error(err), zap.String("addr", cfg.LocalAddr))
		os.Exit(1)
	}
	if err := c.Run(ctx, incoming); err != nil {
		lg.Error("client.forward", zap.Error(err))
		os.Exit(1)
	}
	lg.Info("client.shutdown.complete")
}

func startMetricsServer(addr string, lg *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if err := http.ListenAndServe(addr, mux); err != nil {
		lg.Error("metrics.listen", zap.Error(err), zap.String("addr", addr))
	}
}

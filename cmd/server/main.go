package main

import (
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/andy6609/broadcast-chat-server/internal/chat"
)

func main() {
	cfg := chat.NewConfigFromEnv()

	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "chat listen address")
	flag.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "metrics listen address (empty disables)")
	flag.StringVar(&cfg.WebSocketAddr, "ws-addr", cfg.WebSocketAddr, "websocket gateway listen address (empty disables)")
	flag.IntVar(&cfg.MailboxSize, "mailbox-size", cfg.MailboxSize, "outbound queue capacity per peer")
	flag.IntVar(&cfg.MaxLineLength, "max-line", cfg.MaxLineLength, "maximum accepted line length in bytes")
	flag.DurationVar(&cfg.IdleTimeout, "idle-timeout", cfg.IdleTimeout, "disconnect clients idle for this long (0 disables)")
	flag.DurationVar(&cfg.WriteTimeout, "write-timeout", cfg.WriteTimeout, "per-line write deadline")
	flag.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "time to wait for sessions on shutdown")
	logLevel := flag.String("log-level", cfg.LogLevel.String(), "log level: debug, info, warn, error")
	flag.Parse()
	cfg.LogLevel = chat.ParseLogLevel(*logLevel, cfg.LogLevel)

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	srv := chat.NewServer(*cfg, logger)
	if err := srv.Start(); err != nil {
		logger.Error("failed to start server", "error", err)
		os.Exit(1)
	}

	var metricsSrv *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsSrv = &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server stopped", "error", err)
			}
		}()
		logger.Info("metrics endpoint started", "addr", cfg.MetricsAddr)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	if metricsSrv != nil {
		_ = metricsSrv.Close()
	}
	if err := srv.Stop(); err != nil {
		logger.Warn("shutdown incomplete", "error", err)
	}
}

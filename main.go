package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/intodakt/computer-networks-project/activity"
	"github.com/intodakt/computer-networks-project/api"
	"github.com/intodakt/computer-networks-project/config"
	"github.com/intodakt/computer-networks-project/hub"
	"github.com/intodakt/computer-networks-project/session"
	"github.com/intodakt/computer-networks-project/transport"
)

func main() {
	cfg := config.Load()
	setupLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	publisher, closePublisher := setupPublisher(cfg)
	defer closePublisher()

	relay := hub.New(slog.Default())
	sessions := session.NewHandler(relay, publisher, slog.Default(), cfg.MaxRecordSize)

	listener, err := transport.Listen(cfg.TCPAddr, cfg.SendQueueSize, slog.Default())
	if err != nil {
		slog.Error("cannot listen", "addr", cfg.TCPAddr, "error", err)
		os.Exit(1)
	}

	go func() {
		slog.Info("relay listening", "addr", listener.Addr().String())
		if err := listener.Serve(ctx, func(ctx context.Context, c *transport.Conn) {
			sessions.Serve(ctx, c)
		}); err != nil {
			slog.Error("relay error", "error", err)
		}
	}()

	server := &http.Server{
		Addr:        cfg.HTTPAddr,
		Handler:     api.New(relay, sessions, cfg.SendQueueSize, slog.Default()).Router(),
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	slog.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	listener.Close()
	if err := listener.Wait(shutdownCtx); err != nil {
		slog.Error("sessions still running", "error", err)
	}
}

func setupLogger(cfg config.Config) {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	var handler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func setupPublisher(cfg config.Config) (activity.Publisher, func()) {
	if cfg.RabbitMQURL == "" {
		return activity.Nop{}, func() {}
	}

	p, err := activity.DialAMQP(cfg.RabbitMQURL, cfg.AMQPExchange, slog.Default())
	if err != nil {
		slog.Warn("activity feed disabled", "error", err)
		return activity.Nop{}, func() {}
	}
	slog.Info("activity feed enabled", "exchange", cfg.AMQPExchange)
	return p, p.Close
}

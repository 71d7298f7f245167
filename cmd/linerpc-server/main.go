// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Command linerpc-server serves the built-in methods on a unix socket.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/luxfi/linerpc"
	"github.com/luxfi/linerpc/internal/config"
	"github.com/luxfi/linerpc/internal/observability"
	"github.com/luxfi/linerpc/methods"
)

func main() {
	os.Exit(run(ParseFlags(os.Args[1:])))
}

func run(opts Options) int {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return 1
	}
	if opts.PrintConfig {
		out, err := cfg.YAML()
		if err != nil {
			_, _ = os.Stderr.WriteString("failed to render config: " + err.Error() + "\n")
			return 1
		}
		_, _ = os.Stdout.Write(out)
		return 0
	}

	logger, err := observability.SetupLogger(cfg.Log)
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to setup logger: " + err.Error() + "\n")
		return 1
	}
	defer func() { _ = logger.Sync() }()

	if !linerpc.HasTransport(cfg.Transport) {
		logger.Error("transport not available in this build",
			zap.String("transport", cfg.Transport),
			zap.Strings("available", linerpc.AvailableTransports()),
		)
		return 1
	}

	reg, err := methods.Registry()
	if err != nil {
		logger.Error("failed to build method registry", zap.Error(err))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverOpts := []linerpc.ServerOption{
		linerpc.WithServerTransport(cfg.Transport),
		linerpc.WithLogger(logger),
		linerpc.WithMaxLineBytes(cfg.Limits.MaxLineBytes),
		linerpc.WithIdleTimeout(cfg.Limits.IdleTimeout),
		linerpc.WithWriteTimeout(cfg.Limits.WriteTimeout),
	}
	if cfg.Metrics.Listen != "" {
		promReg := prometheus.NewRegistry()
		serverOpts = append(serverOpts, linerpc.WithMetrics(linerpc.NewMetrics(promReg)))
		go func() {
			if err := observability.ServeMetrics(ctx, cfg.Metrics.Listen, promReg, logger); err != nil {
				logger.Error("metrics endpoint failed", zap.Error(err))
			}
		}()
	}

	server, err := linerpc.Listen(cfg.SocketPath, reg, serverOpts...)
	if err != nil {
		logger.Error("failed to listen", zap.String("socket", cfg.SocketPath), zap.Error(err))
		return 1
	}
	logger.Info("linerpc-server started",
		zap.String("socket", server.Addr()),
		zap.String("transport", cfg.Transport),
		zap.Strings("methods", reg.Names()),
	)

	if err := server.Serve(ctx); err != nil {
		logger.Error("server stopped", zap.Error(err))
		return 1
	}
	logger.Info("server shutting down")
	return 0
}

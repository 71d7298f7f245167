// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Command linerpc-client calls every built-in method once and prints the
// results.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/luxfi/linerpc"
	"github.com/luxfi/linerpc/methods"
)

func main() {
	fs := flag.NewFlagSet("linerpc-client", flag.ExitOnError)
	socket := fs.String("socket", "/tmp/linerpc.sock", "Server socket path")
	transport := fs.String("transport", linerpc.DefaultTransport, "Transport: unix or grpc")
	timeout := fs.Duration("timeout", 5*time.Second, "Overall deadline")
	_ = fs.Parse(os.Args[1:])

	logger, err := zap.NewDevelopment()
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to setup logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	if err := run(ctx, logger, *socket, *transport); err != nil {
		logger.Error("client failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *zap.Logger, socket, transport string) error {
	client, err := linerpc.Dial(ctx, socket,
		linerpc.WithTransport(transport),
		linerpc.WithClientLogger(logger),
	)
	if err != nil {
		return err
	}
	defer client.Close()
	stub := methods.NewStub(client)

	floor, err := stub.Floor(ctx, 10.99)
	if err != nil {
		return err
	}
	logger.Info("floor", zap.Int64("result", floor))

	root, err := stub.NRoot(ctx, 3, 27)
	if err != nil {
		return err
	}
	logger.Info("nroot", zap.Float64("result", root))

	reversed, err := stub.Reverse(ctx, "hello")
	if err != nil {
		return err
	}
	logger.Info("reverse", zap.String("result", reversed))

	anagram, err := stub.ValidAnagram(ctx, "listen", "silent")
	if err != nil {
		return err
	}
	logger.Info("validAnagram", zap.Bool("result", anagram))

	sorted, err := stub.Sort(ctx, []string{"banana", "apple", "cherry"})
	if err != nil {
		return err
	}
	logger.Info("sort", zap.Strings("result", sorted))
	return nil
}

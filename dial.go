// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package linerpc

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Dial connects to the server listening on the socket path addr using the
// default transport. Use WithTransport for transport selection.
func Dial(ctx context.Context, addr string, opts ...DialOption) (Client, error) {
	o := &dialOptions{
		transport: DefaultTransport,
		attempts:  maxRetries,
		retryWait: retryBaseWait,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = zap.L()
	}

	t, ok := lookupTransport(o.transport)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTransport, o.transport)
	}
	return t.dial(ctx, addr, o)
}

// Listen binds the socket path addr and returns a server dispatching to reg.
// A stale socket file left by a previous run is removed first.
func Listen(addr string, reg *Registry, opts ...ServerOption) (Server, error) {
	if reg == nil {
		return nil, errors.New("listen: nil registry")
	}
	o := &serverOptions{
		transport: DefaultTransport,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = zap.L()
	}

	t, ok := lookupTransport(o.transport)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTransport, o.transport)
	}
	return t.listen(addr, reg, o)
}

// dialUnix creates a line protocol client
func dialUnix(ctx context.Context, addr string, o *dialOptions) (Client, error) {
	conn, err := dialWithRetry(ctx, o, func(ctx context.Context) (net.Conn, error) {
		var d net.Dialer
		return d.DialContext(ctx, "unix", addr)
	})
	if err != nil {
		return nil, err
	}
	return newLineClient(conn, o.logger), nil
}

// listenUnix creates a line protocol server
func listenUnix(addr string, reg *Registry, o *serverOptions) (Server, error) {
	listener, err := listenSocket(addr)
	if err != nil {
		return nil, err
	}
	return &lineServer{
		listener:    listener,
		path:        addr,
		dispatcher:  NewDispatcher(reg, o.logger, o.metrics),
		logger:      o.logger,
		metrics:     o.metrics,
		limits:      o.limits,
		acceptRetry: rate.NewLimiter(rate.Every(acceptRetryInterval), acceptRetryBurst),
		acceptLog:   rate.Sometimes{First: 3, Interval: 10 * time.Second},
	}, nil
}

// listenSocket removes a stale socket file at path and binds a new one.
func listenSocket(path string) (net.Listener, error) {
	if err := removeSocket(path); err != nil {
		return nil, err
	}
	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", path, err)
	}
	return listener, nil
}

func removeSocket(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove stale socket: %w", err)
	}
	return nil
}

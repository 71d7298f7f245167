// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package linerpc

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Client is the transport-agnostic RPC client interface.
type Client interface {
	// Call invokes method with positional params and decodes the result into
	// reply, which may be nil. A failure response is returned as *RemoteError.
	Call(ctx context.Context, method string, params []interface{}, reply interface{}) error

	// Close closes the connection and fails outstanding calls with ErrClosed.
	Close() error
}

// Server is the transport-agnostic RPC server interface.
type Server interface {
	// Serve accepts connections until ctx is cancelled or Close is called.
	// Cancelling ctx stops accepting and releases the endpoint; connections
	// already accepted run until their peer goes away.
	Serve(ctx context.Context) error

	// Close stops accepting and closes every open connection.
	Close() error

	// Addr returns the server's listen address
	Addr() string
}

// DialOption configures client connections
type DialOption func(*dialOptions)

type dialOptions struct {
	transport string
	logger    *zap.Logger
	attempts  int
	retryWait time.Duration
}

// WithTransport explicitly sets the transport type
func WithTransport(t string) DialOption {
	return func(o *dialOptions) { o.transport = t }
}

// WithClientLogger sets the client logger.
func WithClientLogger(l *zap.Logger) DialOption {
	return func(o *dialOptions) { o.logger = l }
}

// WithDialRetry sets how many times a transient dial failure is attempted and
// the base wait of the exponential backoff between attempts.
func WithDialRetry(attempts int, base time.Duration) DialOption {
	return func(o *dialOptions) {
		o.attempts = attempts
		o.retryWait = base
	}
}

// ServerOption configures servers
type ServerOption func(*serverOptions)

type serverOptions struct {
	transport string
	logger    *zap.Logger
	metrics   *Metrics
	limits    limits
}

// WithServerTransport explicitly sets the transport type for the server
func WithServerTransport(t string) ServerOption {
	return func(o *serverOptions) { o.transport = t }
}

// WithLogger sets the server logger.
func WithLogger(l *zap.Logger) ServerOption {
	return func(o *serverOptions) { o.logger = l }
}

// WithMetrics records server metrics into m.
func WithMetrics(m *Metrics) ServerOption {
	return func(o *serverOptions) { o.metrics = m }
}

// WithMaxLineBytes caps the size of one request line. A peer that exceeds it
// receives a failure and is disconnected. Zero means unbounded.
func WithMaxLineBytes(n int) ServerOption {
	return func(o *serverOptions) { o.limits.maxLineBytes = n }
}

// WithIdleTimeout closes connections that send nothing for d. Zero disables.
func WithIdleTimeout(d time.Duration) ServerOption {
	return func(o *serverOptions) { o.limits.idleTimeout = d }
}

// WithWriteTimeout bounds writing one response. Zero disables.
func WithWriteTimeout(d time.Duration) ServerOption {
	return func(o *serverOptions) { o.limits.writeTimeout = d }
}

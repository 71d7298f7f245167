// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package linerpc

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	acceptRetryInterval = 100 * time.Millisecond
	acceptRetryBurst    = 10
)

// lineServer accepts unix socket connections and serves each one on its own
// goroutine.
type lineServer struct {
	listener    net.Listener
	path        string
	dispatcher  *Dispatcher
	logger      *zap.Logger
	metrics     *Metrics
	limits      limits
	acceptRetry *rate.Limiter
	acceptLog   rate.Sometimes

	conns    sync.Map
	nextConn atomic.Uint64
	closed   atomic.Bool
	forced   atomic.Bool
	stopOnce sync.Once
}

// Serve starts serving requests
func (s *lineServer) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, s.stopAccepting)
	defer stop()

	s.logger.Info("serving", zap.String("socket", s.path))
	handlerCtx := context.WithoutCancel(ctx)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.closed.Load() {
				s.logger.Info("stopped accepting", zap.String("socket", s.path))
				return nil
			}
			s.acceptLog.Do(func() {
				s.logger.Warn("accept failed", zap.Error(err))
			})
			_ = s.acceptRetry.Wait(ctx)
			continue
		}
		s.track(handlerCtx, conn)
	}
}

func (s *lineServer) track(ctx context.Context, conn net.Conn) {
	s.conns.Store(conn, struct{}{})
	if s.forced.Load() {
		s.conns.Delete(conn)
		_ = conn.Close()
		return
	}
	h := &connHandler{
		conn:       conn,
		dispatcher: s.dispatcher,
		metrics:    s.metrics,
		logger:     s.logger.With(zap.Uint64("conn", s.nextConn.Add(1))),
		limits:     s.limits,
	}
	go func() {
		defer s.conns.Delete(conn)
		h.serve(ctx)
	}()
}

// stopAccepting closes the listener and removes the socket file. Accepted
// connections are left alone.
func (s *lineServer) stopAccepting() {
	s.stopOnce.Do(func() {
		s.closed.Store(true)
		if err := s.listener.Close(); err != nil {
			s.logger.Debug("close listener", zap.Error(err))
		}
		if err := removeSocket(s.path); err != nil {
			s.logger.Warn("remove socket", zap.String("socket", s.path), zap.Error(err))
		}
	})
}

// Close stops accepting and closes every open connection.
func (s *lineServer) Close() error {
	s.forced.Store(true)
	s.stopAccepting()
	s.conns.Range(func(key, _ interface{}) bool {
		_ = key.(net.Conn).Close()
		return true
	})
	return nil
}

// Addr returns the socket path
func (s *lineServer) Addr() string {
	return s.path
}

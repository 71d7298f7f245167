// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package linerpc

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// lineClient implements Client over one unix socket connection. Several
// calls may be outstanding; responses are routed back by id.
type lineClient struct {
	conn     net.Conn
	logger   *zap.Logger
	writeMu  sync.Mutex
	pending  sync.Map // id -> chan []byte
	closed   atomic.Bool
	readDone chan struct{}
}

func newLineClient(conn net.Conn, logger *zap.Logger) *lineClient {
	c := &lineClient{
		conn:     conn,
		logger:   logger,
		readDone: make(chan struct{}),
	}
	go c.readLoop()
	return c
}

func (c *lineClient) Call(ctx context.Context, method string, params []interface{}, reply interface{}) error {
	if c.closed.Load() {
		return ErrClosed
	}
	line, id, err := encodeCall(method, params)
	if err != nil {
		return err
	}

	respCh := make(chan []byte, 1)
	c.pending.Store(id, respCh)
	defer c.pending.Delete(id)

	c.writeMu.Lock()
	_, err = c.conn.Write(line)
	c.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case resp := <-respCh:
		return decodeReply(resp, reply)
	case <-c.readDone:
		return ErrClosed
	}
}

func (c *lineClient) readLoop() {
	defer close(c.readDone)

	var frames frameBuffer
	chunk := make([]byte, readChunkSize)
	for {
		n, err := c.conn.Read(chunk)
		if n > 0 {
			_, _ = frames.Write(chunk[:n])
			for {
				line, ok := frames.Next()
				if !ok {
					break
				}
				c.route(append([]byte(nil), line...))
			}
		}
		if err != nil {
			if !c.closed.Load() {
				c.logger.Debug("connection lost", zap.Error(err))
			}
			return
		}
	}
}

func (c *lineClient) route(line []byte) {
	id, ok := responseID(line)
	if !ok {
		c.logger.Warn("received response with no id", zap.ByteString("response", line))
		return
	}
	ch, ok := c.pending.Load(id)
	if !ok {
		c.logger.Warn("received response for unknown request id", zap.String("id", id))
		return
	}
	select {
	case ch.(chan []byte) <- line:
	default:
		c.logger.Warn("duplicate response", zap.String("id", id))
	}
}

// Close closes the connection
func (c *lineClient) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	return c.conn.Close()
}

// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package linerpc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"go.uber.org/zap"
)

const readChunkSize = 4096

// limits bounds a connection. Zero values disable the corresponding check.
type limits struct {
	maxLineBytes int
	idleTimeout  time.Duration
	writeTimeout time.Duration
}

// connHandler owns one accepted connection and its receive buffer. Requests
// are handled one at a time in arrival order and each response is written
// before the next message is framed.
type connHandler struct {
	conn       net.Conn
	dispatcher *Dispatcher
	metrics    *Metrics
	logger     *zap.Logger
	limits     limits
	frames     frameBuffer
}

func (h *connHandler) serve(ctx context.Context) {
	defer h.conn.Close()
	h.metrics.connOpened()
	defer h.metrics.connClosed()
	h.logger.Debug("connection opened")

	err := h.loop(ctx)
	switch {
	case err == nil, errors.Is(err, io.EOF):
		h.logger.Debug("connection closed by peer")
	case errors.Is(err, net.ErrClosed):
		h.logger.Debug("connection closed locally")
	default:
		h.logger.Warn("connection aborted", zap.Error(err))
	}
}

func (h *connHandler) loop(ctx context.Context) error {
	chunk := make([]byte, readChunkSize)
	for {
		if h.limits.idleTimeout > 0 {
			if err := h.conn.SetReadDeadline(time.Now().Add(h.limits.idleTimeout)); err != nil {
				return fmt.Errorf("set read deadline: %w", err)
			}
		}
		n, readErr := h.conn.Read(chunk)
		if n > 0 {
			_, _ = h.frames.Write(chunk[:n])
			if err := h.drain(ctx); err != nil {
				return err
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				if h.frames.Buffered() > 0 {
					h.logger.Debug("discarding partial message", zap.Int("bytes", h.frames.Buffered()))
				}
				return nil
			}
			return fmt.Errorf("read: %w", readErr)
		}
	}
}

// drain handles every complete message in the buffer, then enforces the line
// limit on what remains.
func (h *connHandler) drain(ctx context.Context) error {
	for {
		line, ok := h.frames.Next()
		if !ok {
			break
		}
		if h.tooLong(len(line)) {
			return h.rejectOversized()
		}
		if err := h.write(h.dispatcher.HandleLine(ctx, line)); err != nil {
			return err
		}
	}
	if h.tooLong(h.frames.Buffered()) {
		return h.rejectOversized()
	}
	return nil
}

func (h *connHandler) tooLong(n int) bool {
	return h.limits.maxLineBytes > 0 && n > h.limits.maxLineBytes
}

// rejectOversized reports the limit to the peer and ends the connection since
// the stream can no longer be framed reliably.
func (h *connHandler) rejectOversized() error {
	h.metrics.oversizedMessage()
	h.metrics.observe("", CodeMessageTooLarge.String(), 0)
	msg := fmt.Sprintf("Message exceeds maximum length of %d bytes.", h.limits.maxLineBytes)
	h.logger.Info("rejected request", zap.String("outcome", CodeMessageTooLarge.String()), zap.Int("limit", h.limits.maxLineBytes))
	out, err := EncodeResponse(Failure(nil, msg))
	if err != nil {
		return err
	}
	if err := h.write(out); err != nil {
		return err
	}
	return &Error{Code: CodeMessageTooLarge, Message: msg}
}

func (h *connHandler) write(b []byte) error {
	if h.limits.writeTimeout > 0 {
		if err := h.conn.SetWriteDeadline(time.Now().Add(h.limits.writeTimeout)); err != nil {
			return fmt.Errorf("set write deadline: %w", err)
		}
	}
	if _, err := h.conn.Write(b); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

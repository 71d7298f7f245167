// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package linerpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"strings"
	"time"

	rpc "github.com/gorilla/rpc/v2/json2"
	"go.uber.org/zap"
)

const (
	maxRetries    = 3
	retryBaseWait = 500 * time.Millisecond
)

// isRetryableError checks if a dial error is transient and worth retrying.
// A missing socket file usually means the server is still starting.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, fs.ErrNotExist) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "broken pipe")
}

func dialWithRetry(ctx context.Context, o *dialOptions, dial func(context.Context) (net.Conn, error)) (net.Conn, error) {
	attempts := o.attempts
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			waitTime := o.retryWait * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(waitTime):
			}
		}
		conn, err := dial(ctx)
		if err == nil {
			if attempt > 0 {
				o.logger.Debug("dial succeeded after retry", zap.Int("attempt", attempt+1))
			}
			return conn, nil
		}
		lastErr = err
		retryable := isRetryableError(err)
		o.logger.Debug("dial attempt failed", zap.Int("attempt", attempt+1), zap.Bool("retryable", retryable), zap.Error(err))
		if !retryable {
			return nil, fmt.Errorf("dial: %w", err)
		}
	}
	return nil, fmt.Errorf("dial failed after %d attempts: %w", attempts, lastErr)
}

// encodeCall builds a request line and returns it with the id the client
// must match in the response.
func encodeCall(method string, params []interface{}) ([]byte, string, error) {
	if params == nil {
		params = []interface{}{}
	}
	b, err := rpc.EncodeClientRequest(method, params)
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode client params: %w", err)
	}
	var hdr struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(b, &hdr); err != nil {
		return nil, "", fmt.Errorf("failed to read request id: %w", err)
	}
	return append(b, Delimiter), idKey(hdr.ID), nil
}

// responseID extracts the routing key of a response line.
func responseID(line []byte) (string, bool) {
	var hdr struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(line, &hdr); err != nil || len(hdr.ID) == 0 || isNull(hdr.ID) {
		return "", false
	}
	return idKey(hdr.ID), true
}

func idKey(id json.RawMessage) string {
	return string(bytes.TrimSpace(id))
}

// decodeReply decodes a response line into reply. Failure responses become
// *RemoteError.
func decodeReply(line []byte, reply interface{}) error {
	if reply == nil {
		var discard json.RawMessage
		reply = &discard
	}
	err := rpc.DecodeClientResponse(bytes.NewReader(line), reply)
	if err == nil || errors.Is(err, rpc.ErrNullResult) {
		return nil
	}
	var rpcErr *rpc.Error
	if errors.As(err, &rpcErr) {
		msg := rpcErr.Message
		var unquoted string
		if json.Unmarshal([]byte(msg), &unquoted) == nil {
			msg = unquoted
		}
		return &RemoteError{Message: msg}
	}
	return fmt.Errorf("failed to decode client response: %w", err)
}

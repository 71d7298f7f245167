// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package linerpc

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"
)

// Dispatcher validates decoded requests against a Registry and invokes the
// bound handler. It holds no per-request state and may be shared by every
// connection.
type Dispatcher struct {
	registry *Registry
	logger   *zap.Logger
	metrics  *Metrics
}

// NewDispatcher returns a dispatcher over reg. logger and metrics may be nil.
func NewDispatcher(reg *Registry, logger *zap.Logger, metrics *Metrics) *Dispatcher {
	if logger == nil {
		logger = zap.L()
	}
	return &Dispatcher{registry: reg, logger: logger, metrics: metrics}
}

// Dispatch runs one request and converts the outcome into a response. The
// request id is preserved on every path.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) *Response {
	result, err := d.call(ctx, req)
	if err != nil {
		return Failure(req.ID, err.Message)
	}
	return Success(req.ID, result)
}

func (d *Dispatcher) call(ctx context.Context, req Request) (interface{}, *Error) {
	m, ok := d.registry.Lookup(req.Method)
	if !ok {
		return nil, newError(CodeMethodNotFound, "Method '%s' not found.", req.Method)
	}
	args, rpcErr := bind(m, req.Params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	result, err := d.invoke(ctx, m, args)
	if err != nil {
		var domainErr *DomainError
		if errors.As(err, &domainErr) {
			return nil, &Error{Code: CodeDomainError, Message: domainErr.Message}
		}
		d.logger.Error("method failed",
			zap.String("method", m.Name),
			zap.ByteString("id", req.ID),
			zap.Error(err),
		)
		return nil, &Error{Code: CodeInternalError, Message: internalErrorMessage}
	}
	return result, nil
}

// bind checks arity and positional types and returns the converted arguments.
func bind(m *Method, params []interface{}) (Args, *Error) {
	if m.spread() && len(params) > 0 && allStrings(params) {
		params = []interface{}{params}
	}
	if len(params) != m.Arity() {
		return nil, newError(CodeArityMismatch, "Method '%s' expects %d arguments, but got %d.", m.Name, m.Arity(), len(params))
	}
	args := make(Args, len(params))
	for i, t := range m.Params {
		v, ok := convert(t, params[i])
		if !ok {
			return nil, newError(CodeTypeMismatch, "Method '%s' argument %d expects %s, got %s.", m.Name, i, t, mismatchType(t, params[i]))
		}
		args[i] = v
	}
	return args, nil
}

func allStrings(params []interface{}) bool {
	for _, p := range params {
		if _, ok := p.(string); !ok {
			return false
		}
	}
	return true
}

// invoke calls the handler, turning a panic into an error.
func (d *Dispatcher) invoke(ctx context.Context, m *Method, args Args) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v\n%s", m.Name, r, debug.Stack())
		}
	}()
	return m.Handler(ctx, args)
}

// HandleLine decodes one request line, dispatches it and returns the encoded
// response including its delimiter.
func (d *Dispatcher) HandleLine(ctx context.Context, line []byte) []byte {
	started := time.Now()
	var (
		resp    *Response
		method  string
		outcome = outcomeOK
	)

	req, err := DecodeRequest(line)
	if err != nil {
		var rpcErr *Error
		errors.As(err, &rpcErr)
		outcome = rpcErr.Code.String()
		resp = Failure(req.ID, rpcErr.Message)
		d.logger.Info("rejected request",
			zap.String("outcome", outcome),
			zap.ByteString("id", req.ID),
			zap.Int("bytes", len(line)),
		)
	} else {
		result, rpcErr := d.call(ctx, req)
		if _, registered := d.registry.Lookup(req.Method); registered {
			method = req.Method
		}
		if rpcErr != nil {
			outcome = rpcErr.Code.String()
			resp = Failure(req.ID, rpcErr.Message)
			d.logger.Info("request failed",
				zap.String("method", req.Method),
				zap.ByteString("id", req.ID),
				zap.String("outcome", outcome),
				zap.String("error", rpcErr.Message),
			)
		} else {
			resp = Success(req.ID, result)
			d.logger.Debug("request served",
				zap.String("method", req.Method),
				zap.ByteString("id", req.ID),
				zap.String("result_type", resp.ResultType),
				zap.Duration("latency", time.Since(started)),
			)
		}
	}

	out, err := EncodeResponse(resp)
	if err != nil {
		d.logger.Error("encode response", zap.String("method", req.Method), zap.Error(err))
		outcome = CodeInternalError.String()
		out, _ = EncodeResponse(Failure(req.ID, internalErrorMessage))
	}
	d.metrics.observe(method, outcome, time.Since(started))
	return out
}

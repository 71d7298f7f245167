//go:build grpc

// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package linerpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"
)

const (
	grpcServiceName = "linerpc.Dispatcher"
	grpcCallMethod  = "/" + grpcServiceName + "/Call"
)

func init() {
	// Register gRPC transport when build tag is enabled
	encoding.RegisterCodec(lineCodec{})
	registerTransport(TransportGRPC, dialGRPC, listenGRPC)
}

// lineCodec carries request and response lines as unary payloads without
// re-encoding them.
type lineCodec struct{}

func (lineCodec) Marshal(v interface{}) ([]byte, error) {
	switch m := v.(type) {
	case json.RawMessage:
		return m, nil
	case *json.RawMessage:
		return *m, nil
	}
	return json.Marshal(v)
}

func (lineCodec) Unmarshal(data []byte, v interface{}) error {
	if m, ok := v.(*json.RawMessage); ok {
		*m = append((*m)[:0], data...)
		return nil
	}
	return json.Unmarshal(data, v)
}

func (lineCodec) Name() string {
	return "linerpc-json"
}

// lineHandler is implemented by *Dispatcher.
type lineHandler interface {
	HandleLine(ctx context.Context, line []byte) []byte
}

var grpcServiceDesc = grpc.ServiceDesc{
	ServiceName: grpcServiceName,
	HandlerType: (*lineHandler)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Call", Handler: grpcCallHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "linerpc",
}

func grpcCallHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(json.RawMessage)
	if err := dec(in); err != nil {
		return nil, err
	}
	call := func(ctx context.Context, req interface{}) (interface{}, error) {
		out := srv.(lineHandler).HandleLine(ctx, *req.(*json.RawMessage))
		return json.RawMessage(bytes.TrimRight(out, "\n")), nil
	}
	if interceptor == nil {
		return call(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: grpcCallMethod}
	return interceptor(ctx, in, info, call)
}

func listenGRPC(addr string, reg *Registry, o *serverOptions) (Server, error) {
	listener, err := listenSocket(addr)
	if err != nil {
		return nil, err
	}
	s := &grpcServer{
		server:   grpc.NewServer(),
		listener: listener,
		path:     addr,
		logger:   o.logger,
	}
	s.server.RegisterService(&grpcServiceDesc, NewDispatcher(reg, o.logger, o.metrics))
	return s, nil
}

type grpcServer struct {
	server   *grpc.Server
	listener net.Listener
	path     string
	logger   *zap.Logger
	stopOnce sync.Once
}

func (s *grpcServer) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { s.stop(s.server.GracefulStop) })
	defer stop()
	s.logger.Info("serving grpc", zap.String("socket", s.path))
	if err := s.server.Serve(s.listener); err != nil {
		return fmt.Errorf("grpc serve: %w", err)
	}
	return nil
}

func (s *grpcServer) stop(fn func()) {
	s.stopOnce.Do(func() {
		fn()
		if err := removeSocket(s.path); err != nil {
			s.logger.Warn("remove socket", zap.String("socket", s.path), zap.Error(err))
		}
	})
}

func (s *grpcServer) Close() error {
	s.stop(s.server.Stop)
	return nil
}

func (s *grpcServer) Addr() string {
	return s.path
}

func dialGRPC(_ context.Context, addr string, o *dialOptions) (Client, error) {
	conn, err := grpc.NewClient("unix:"+addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(lineCodec{}.Name())),
	)
	if err != nil {
		return nil, fmt.Errorf("grpc dial: %w", err)
	}
	o.logger.Debug("grpc client created", zap.String("socket", addr))
	return &grpcClient{conn: conn}, nil
}

type grpcClient struct {
	conn *grpc.ClientConn
}

func (c *grpcClient) Call(ctx context.Context, method string, params []interface{}, reply interface{}) error {
	line, _, err := encodeCall(method, params)
	if err != nil {
		return err
	}
	var resp json.RawMessage
	if err := c.conn.Invoke(ctx, grpcCallMethod, json.RawMessage(bytes.TrimRight(line, "\n")), &resp); err != nil {
		return fmt.Errorf("grpc call: %w", err)
	}
	return decodeReply(resp, reply)
}

func (c *grpcClient) Close() error {
	return c.conn.Close()
}

// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package linerpc is a local RPC server and client speaking newline-delimited
// JSON over a unix domain socket.
//
// # Wire format
//
// Each request is one line:
//
//	{"method": "floor", "params": [3.7], "id": 1}
//
// and is answered by one line, either a success
//
//	{"result": 3, "result_type": "int", "id": 1}
//
// or a failure
//
//	{"error": "Method 'nope' not found.", "id": 1}
//
// The id is echoed verbatim. It is null when the line could not be decoded far
// enough to find it. Responses on a connection come back in request order.
//
// # Usage
//
// Server usage:
//
//	reg, err := linerpc.NewRegistry(linerpc.Method{
//	    Name:   "reverse",
//	    Params: []linerpc.Type{linerpc.TypeString},
//	    Handler: func(ctx context.Context, args linerpc.Args) (interface{}, error) {
//	        return reverse(args.String(0)), nil
//	    },
//	})
//	server, err := linerpc.Listen("/tmp/linerpc.sock", reg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	server.Serve(ctx)
//
// Client usage:
//
//	client, err := linerpc.Dial(ctx, "/tmp/linerpc.sock")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	var out string
//	err = client.Call(ctx, "reverse", []interface{}{"hello"}, &out)
//
// # Transport Selection
//
// The unix transport is the default. Build with -tags grpc to register a
// gRPC transport that carries the same JSON documents as unary calls:
//
//	go build -tags grpc
//
// # Architecture
//
//   - registry.go: immutable method table with declared parameter types
//   - codec.go: request decoding and response encoding
//   - dispatch.go: arity and type validation, invocation, error mapping
//   - frame.go, conn.go: newline framing and the per-connection loop
//   - server.go: accept loop, one goroutine per connection
//   - line_client.go, json.go: client with id-routed responses
//   - transport.go, dial.go: transport registry and Dial/Listen factories
package linerpc

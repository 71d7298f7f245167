// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package linerpc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

func socketPath(t testing.TB) string {
	t.Helper()
	// t.TempDir paths can exceed the sun_path limit
	dir, err := os.MkdirTemp("", "linerpc")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return filepath.Join(dir, "s.sock")
}

func startServer(t testing.TB, reg *Registry, opts ...ServerOption) Server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	opts = append([]ServerOption{WithLogger(zap.NewNop())}, opts...)
	server, err := Listen(socketPath(t), reg, opts...)
	if err != nil {
		cancel()
		t.Fatalf("Listen: %v", err)
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = server.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		server.Close()
		<-done
	})
	return server
}

func dialRaw(t testing.TB, addr string) (net.Conn, *bufio.Reader) {
	t.Helper()
	conn, err := net.Dial("unix", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))
	return conn, bufio.NewReader(conn)
}

func readLine(t testing.TB, r *bufio.Reader) string {
	t.Helper()
	line, err := r.ReadString('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return strings.TrimSuffix(line, "\n")
}

func TestRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	server := startServer(t, testRegistry(t))
	client, err := Dial(ctx, server.Addr(), WithClientLogger(zap.NewNop()))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	var echoed string
	if err := client.Call(ctx, "echo", []interface{}{"hello world"}, &echoed); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if echoed != "hello world" {
		t.Errorf("got %q, want %q", echoed, "hello world")
	}

	var sum float64
	if err := client.Call(ctx, "add", []interface{}{2, 0.5}, &sum); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if sum != 2.5 {
		t.Errorf("sum = %v, want 2.5", sum)
	}

	if err := client.Call(ctx, "nothing", nil, nil); err != nil {
		t.Errorf("null result: %v", err)
	}

	err = client.Call(ctx, "domain", nil, nil)
	var remote *RemoteError
	if !errors.As(err, &remote) || remote.Message != "bad input 7" {
		t.Fatalf("err = %v, want RemoteError(bad input 7)", err)
	}

	err = client.Call(ctx, "missing", nil, nil)
	if !errors.As(err, &remote) || remote.Message != "Method 'missing' not found." {
		t.Fatalf("err = %v, want method not found", err)
	}
}

func TestMalformedLineKeepsConnection(t *testing.T) {
	server := startServer(t, testRegistry(t))
	conn, r := dialRaw(t, server.Addr())

	_, _ = conn.Write([]byte("{{{not json\n"))
	if got := readLine(t, r); got != `{"error":"Invalid JSON format.","id":null}` {
		t.Fatalf("got %s", got)
	}
	_, _ = conn.Write([]byte(`{"method":"echo","params":["still here"],"id":2}` + "\n"))
	if got := readLine(t, r); got != `{"result":"still here","result_type":"string","id":2}` {
		t.Fatalf("got %s", got)
	}
}

func TestChunkedWritesAndEmptyLines(t *testing.T) {
	server := startServer(t, testRegistry(t))
	conn, r := dialRaw(t, server.Addr())

	msg := "\n\n" + `{"method":"echo","params":["a"],"id":1}` + "\n\n" + `{"method":"not","params":[true],"id":2}` + "\n"
	for i := 0; i < len(msg); i += 3 {
		if _, err := conn.Write([]byte(msg[i:min(i+3, len(msg))])); err != nil {
			t.Fatalf("write: %v", err)
		}
		time.Sleep(time.Millisecond)
	}
	if got := readLine(t, r); got != `{"result":"a","result_type":"string","id":1}` {
		t.Errorf("first = %s", got)
	}
	if got := readLine(t, r); got != `{"result":false,"result_type":"bool","id":2}` {
		t.Errorf("second = %s", got)
	}
}

func TestPipelinedResponsesInOrder(t *testing.T) {
	server := startServer(t, testRegistry(t))
	conn, r := dialRaw(t, server.Addr())

	const n = 20
	var batch strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&batch, `{"method":"echo","params":["m%d"],"id":%d}`+"\n", i, i)
	}
	if _, err := conn.Write([]byte(batch.String())); err != nil {
		t.Fatalf("write: %v", err)
	}
	for i := 0; i < n; i++ {
		want := fmt.Sprintf(`{"result":"m%d","result_type":"string","id":%d}`, i, i)
		if got := readLine(t, r); got != want {
			t.Fatalf("response %d = %s, want %s", i, got, want)
		}
	}
}

func TestConcurrentClients(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	server := startServer(t, testRegistry(t))

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for c := 0; c < 8; c++ {
		wg.Add(1)
		go func(c int) {
			defer wg.Done()
			client, err := Dial(ctx, server.Addr(), WithClientLogger(zap.NewNop()))
			if err != nil {
				errs <- err
				return
			}
			defer client.Close()
			for i := 0; i < 25; i++ {
				want := fmt.Sprintf("c%d-%d", c, i)
				var got string
				if err := client.Call(ctx, "echo", []interface{}{want}, &got); err != nil {
					errs <- err
					return
				}
				if got != want {
					errs <- fmt.Errorf("got %q, want %q", got, want)
					return
				}
			}
		}(c)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestConcurrentCallsShareClient(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	server := startServer(t, testRegistry(t))
	client, err := Dial(ctx, server.Addr(), WithClientLogger(zap.NewNop()))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			want := fmt.Sprintf("v%d", i)
			var got string
			if err := client.Call(ctx, "echo", []interface{}{want}, &got); err != nil {
				t.Errorf("Call %d: %v", i, err)
				return
			}
			if got != want {
				t.Errorf("Call %d: got %q", i, got)
			}
		}(i)
	}
	wg.Wait()
}

func TestListenRemovesStaleSocket(t *testing.T) {
	path := socketPath(t)
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	server, err := Listen(path, testRegistry(t), WithLogger(zap.NewNop()))
	if err != nil {
		t.Fatalf("Listen over stale file: %v", err)
	}
	server.Close()
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("socket file left after Close: %v", err)
	}
}

func TestCancelStopsAcceptingOnly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	server, err := Listen(socketPath(t), testRegistry(t), WithLogger(zap.NewNop()))
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer server.Close()
	done := make(chan error, 1)
	go func() { done <- server.Serve(ctx) }()

	conn, r := dialRaw(t, server.Addr())
	_, _ = conn.Write([]byte(`{"method":"echo","params":["before"],"id":1}` + "\n"))
	readLine(t, r)

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return")
	}
	if _, err := os.Stat(server.Addr()); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("socket file still present: %v", err)
	}

	_, _ = conn.Write([]byte(`{"method":"echo","params":["after"],"id":2}` + "\n"))
	if got := readLine(t, r); got != `{"result":"after","result_type":"string","id":2}` {
		t.Fatalf("existing connection not served: %s", got)
	}
}

func TestMaxLineBytes(t *testing.T) {
	server := startServer(t, testRegistry(t), WithMaxLineBytes(64))
	conn, r := dialRaw(t, server.Addr())

	_, _ = conn.Write([]byte(`{"method":"echo","params":["ok"],"id":1}` + "\n"))
	if got := readLine(t, r); got != `{"result":"ok","result_type":"string","id":1}` {
		t.Fatalf("got %s", got)
	}

	_, _ = conn.Write([]byte(strings.Repeat("x", 200)))
	if got := readLine(t, r); got != `{"error":"Message exceeds maximum length of 64 bytes.","id":null}` {
		t.Fatalf("got %s", got)
	}
	if _, err := r.ReadByte(); err == nil {
		t.Fatal("connection not closed")
	}
}

func TestIdleTimeout(t *testing.T) {
	server := startServer(t, testRegistry(t), WithIdleTimeout(50*time.Millisecond))
	conn, r := dialRaw(t, server.Addr())

	_, _ = conn.Write([]byte(`{"method":"echo","params":["x"],"id":1}` + "\n"))
	readLine(t, r)

	start := time.Now()
	if _, err := r.ReadByte(); !errors.Is(err, io.EOF) {
		t.Fatalf("read = %v, want EOF", err)
	}
	if time.Since(start) > 3*time.Second {
		t.Fatal("idle connection kept open")
	}
}

func TestCloseFailsPendingCalls(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	entered := make(chan struct{})
	release := make(chan struct{})
	defer close(release)
	block := Method{Name: "block", Handler: func(context.Context, Args) (interface{}, error) {
		close(entered)
		<-release
		return nil, nil
	}}
	server := startServer(t, testRegistry(t, block))
	client, err := Dial(ctx, server.Addr(), WithClientLogger(zap.NewNop()))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	result := make(chan error, 1)
	go func() { result <- client.Call(ctx, "block", nil, nil) }()
	<-entered
	server.Close()

	select {
	case err := <-result:
		if !errors.Is(err, ErrClosed) {
			t.Fatalf("err = %v, want ErrClosed", err)
		}
	case <-ctx.Done():
		t.Fatal("pending call not released")
	}

	if err := client.Call(ctx, "echo", []interface{}{"x"}, nil); err == nil {
		t.Fatal("call on dead connection succeeded")
	}
	client.Close()
	if err := client.Call(ctx, "echo", []interface{}{"x"}, nil); !errors.Is(err, ErrClosed) {
		t.Fatalf("err after Close = %v, want ErrClosed", err)
	}
}

func TestCallHonoursContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	slow := Method{Name: "slow", Handler: func(context.Context, Args) (interface{}, error) {
		<-release
		return nil, nil
	}}
	server := startServer(t, testRegistry(t, slow))
	client, err := Dial(context.Background(), server.Addr(), WithClientLogger(zap.NewNop()))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := client.Call(ctx, "slow", nil, nil); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}

func TestDialRetriesUntilServerStarts(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	path := socketPath(t)

	dialed := make(chan error, 1)
	go func() {
		client, err := Dial(ctx, path, WithClientLogger(zap.NewNop()), WithDialRetry(10, 20*time.Millisecond))
		if err == nil {
			var got string
			err = client.Call(ctx, "echo", []interface{}{"late"}, &got)
			client.Close()
		}
		dialed <- err
	}()

	time.Sleep(60 * time.Millisecond)
	server, err := Listen(path, testRegistry(t), WithLogger(zap.NewNop()))
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer server.Close()
	go server.Serve(ctx)

	if err := <-dialed; err != nil {
		t.Fatalf("Dial with retry: %v", err)
	}
}

func TestDialWithoutServer(t *testing.T) {
	_, err := Dial(context.Background(), socketPath(t), WithClientLogger(zap.NewNop()), WithDialRetry(1, 0))
	if err == nil {
		t.Fatal("Dial succeeded without a server")
	}
}

func TestUnknownTransport(t *testing.T) {
	if _, err := Dial(context.Background(), "x", WithTransport("carrier-pigeon")); !errors.Is(err, ErrUnknownTransport) {
		t.Errorf("Dial err = %v", err)
	}
	if _, err := Listen("x", testRegistry(t), WithServerTransport("carrier-pigeon")); !errors.Is(err, ErrUnknownTransport) {
		t.Errorf("Listen err = %v", err)
	}
	if !HasTransport(TransportUnix) {
		t.Error("unix transport not registered")
	}
}

func BenchmarkCall(b *testing.B) {
	ctx := context.Background()
	server := startServer(b, testRegistry(b))
	client, err := Dial(ctx, server.Addr(), WithClientLogger(zap.NewNop()))
	if err != nil {
		b.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	params := []interface{}{"hello world"}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var out string
		if err := client.Call(ctx, "echo", params, &out); err != nil {
			b.Fatal(err)
		}
	}
}

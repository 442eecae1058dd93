package http

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync/atomic"
	"testing"
	"time"
)

const statusResponse = "HTTP/1.1 200 OK\r\n" +
	"Content-Type: text/plain\r\n" +
	"Content-Length: 10\r\n" +
	"Connection: close\r\n" +
	"\r\n" +
	"Status: OK"

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func startServer(t *testing.T, mode Mode, register func(*Server)) (addr string) {
	t.Helper()

	port := freePort(t)
	srv := NewServer(Config{
		Port:   port,
		Mode:   mode,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	register(srv)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()
	t.Cleanup(func() {
		srv.Stop()
		if err := <-errCh; err != nil {
			t.Errorf("Start returned error: %v", err)
		}
	})

	addr = fmt.Sprintf("127.0.0.1:%d", port)
	waitListening(t, addr)
	return addr
}

func waitListening(t *testing.T, addr string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 100*time.Millisecond)
		if err == nil {
			conn.Close()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("server on %s never became reachable", addr)
}

func roundTrip(t *testing.T, addr, request string) string {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(request)); err != nil {
		t.Fatal(err)
	}
	resp, err := io.ReadAll(conn) // server closes after one response
	if err != nil {
		t.Fatal(err)
	}
	return string(resp)
}

func modes() []Mode {
	return []Mode{ModeWorkerPool, ModeReactor}
}

func TestServerStatusEndpoint(t *testing.T) {
	for _, mode := range modes() {
		t.Run(mode.String(), func(t *testing.T) {
			addr := startServer(t, mode, func(srv *Server) {
				srv.AddEndpoint("GET", "/status", func(method, path string) string {
					return statusResponse
				})
			})

			got := roundTrip(t, addr, "GET /status HTTP/1.1\r\nHost: x\r\n\r\n")
			if got != statusResponse {
				t.Errorf("response mismatch:\nexpected %q\ngot      %q", statusResponse, got)
			}
		})
	}
}

func TestServerNotFound(t *testing.T) {
	for _, mode := range modes() {
		t.Run(mode.String(), func(t *testing.T) {
			addr := startServer(t, mode, func(srv *Server) {})

			got := roundTrip(t, addr, "GET /nope HTTP/1.1\r\nHost: x\r\n\r\n")
			if got != NotFoundResponse {
				t.Errorf("expected canonical 404, got %q", got)
			}
		})
	}
}

func TestServerSplitBody(t *testing.T) {
	for _, mode := range modes() {
		t.Run(mode.String(), func(t *testing.T) {
			addr := startServer(t, mode, func(srv *Server) {
				srv.AddEndpoint("POST", "/echo", func(method, path string) string {
					return statusResponse
				})
			})

			conn, err := net.Dial("tcp", addr)
			if err != nil {
				t.Fatal(err)
			}
			defer conn.Close()

			// Headers first, then the 5 body bytes in writes of 2 and 3.
			write := func(s string) {
				t.Helper()
				if _, err := conn.Write([]byte(s)); err != nil {
					t.Fatal(err)
				}
			}
			write("POST /echo HTTP/1.1\r\nHost: x\r\nContent-Length: 5\r\n\r\n")
			write("he")
			time.Sleep(50 * time.Millisecond)
			write("llo")

			resp, err := io.ReadAll(conn)
			if err != nil {
				t.Fatal(err)
			}
			if string(resp) != statusResponse {
				t.Errorf("split request not framed as one: got %q", resp)
			}
		})
	}
}

func TestServerSilentClientTeardown(t *testing.T) {
	for _, mode := range modes() {
		t.Run(mode.String(), func(t *testing.T) {
			var invocations atomic.Int64
			addr := startServer(t, mode, func(srv *Server) {
				srv.AddEndpoint("GET", "/status", func(method, path string) string {
					invocations.Add(1)
					return statusResponse
				})
			})

			// Connect, send nothing, close. No handler must run and no
			// response must arrive.
			conn, err := net.Dial("tcp", addr)
			if err != nil {
				t.Fatal(err)
			}
			conn.Close()
			time.Sleep(100 * time.Millisecond)

			// The server must still serve the next connection.
			got := roundTrip(t, addr, "GET /status HTTP/1.1\r\nHost: x\r\n\r\n")
			if got != statusResponse {
				t.Errorf("server unhealthy after silent client: got %q", got)
			}
			if n := invocations.Load(); n != 1 {
				t.Errorf("expected exactly 1 handler invocation, got %d", n)
			}
		})
	}
}

func TestServerChunkedRequest(t *testing.T) {
	for _, mode := range modes() {
		t.Run(mode.String(), func(t *testing.T) {
			addr := startServer(t, mode, func(srv *Server) {
				srv.AddEndpoint("POST", "/upload", func(method, path string) string {
					return statusResponse
				})
			})

			req := "POST /upload HTTP/1.1\r\nHost: x\r\nTransfer-Encoding: chunked\r\n\r\n" +
				"5\r\nhello\r\n0\r\n\r\n"
			got := roundTrip(t, addr, req)
			if got != statusResponse {
				t.Errorf("chunked request not completed: got %q", got)
			}
		})
	}
}

func TestServerHandlerPanicConfined(t *testing.T) {
	for _, mode := range modes() {
		t.Run(mode.String(), func(t *testing.T) {
			addr := startServer(t, mode, func(srv *Server) {
				srv.AddEndpoint("GET", "/boom", func(method, path string) string {
					panic("handler exploded")
				})
				srv.AddEndpoint("GET", "/status", func(method, path string) string {
					return statusResponse
				})
			})

			// The panicking handler costs its own connection only.
			_ = roundTrip(t, addr, "GET /boom HTTP/1.1\r\nHost: x\r\n\r\n")

			got := roundTrip(t, addr, "GET /status HTTP/1.1\r\nHost: x\r\n\r\n")
			if got != statusResponse {
				t.Errorf("server unhealthy after handler panic: got %q", got)
			}
		})
	}
}

func TestServerStopIdempotent(t *testing.T) {
	port := freePort(t)
	srv := NewServer(Config{
		Port:   port,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()
	waitListening(t, fmt.Sprintf("127.0.0.1:%d", port))

	srv.Stop()
	srv.Stop()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Start returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after Stop")
	}

	if err := srv.Start(); err != ErrServerStarted {
		t.Errorf("expected ErrServerStarted on restart, got %v", err)
	}
}

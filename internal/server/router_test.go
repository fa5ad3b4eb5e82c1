package server

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func router(body string) chi.Router {
	r := chi.NewRouter()
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	})
	return r
}

func TestRegisterDomain(t *testing.T) {
	s := New()
	s.RegisterDomain("api.example.com", router("api"))
	s.RegisterDomain("*", router("fallback"))

	tests := []struct {
		host string
		want string
	}{
		{"api.example.com", "api"},
		{"other.example.com", "fallback"},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Host = tt.host
		rec := httptest.NewRecorder()
		s.Handler.ServeHTTP(rec, req)

		if got := rec.Body.String(); got != tt.want {
			t.Errorf("host %s: body = %q, want %q", tt.host, got, tt.want)
		}
	}
}

func startServer(t *testing.T, r chi.Router) (addr string, cancel context.CancelFunc, done <-chan error) {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr = l.Addr().String()
	l.Close()

	s := NewWithConfig(&Config{Addr: addr, ShutdownTimeout: time.Second, Logger: quietLogger()})
	s.RegisterDomain("*", r)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()
	t.Cleanup(cancel)

	deadline := time.Now().Add(2 * time.Second)
	for {
		conn, err := net.Dial("tcp", addr)
		if err == nil {
			conn.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never came up: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	return addr, cancel, errCh
}

func TestRunShutsDownOnCancel(t *testing.T) {
	addr, cancel, done := startServer(t, router("ok"))

	resp, err := http.Get("http://" + addr + "/")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunEndsOpenStreamsOnCancel(t *testing.T) {
	streaming := make(chan struct{})
	r := chi.NewRouter()
	r.Get("/stream", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		close(streaming)
		<-r.Context().Done()
	})

	addr, cancel, done := startServer(t, r)

	resp, err := http.Get("http://" + addr + "/stream")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	<-streaming

	start := time.Now()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
		if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
			t.Errorf("shutdown took %v, want well under the shutdown timeout", elapsed)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

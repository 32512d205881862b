package httpserver

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"
)

func TestServerServeAndShutdown(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	srv := New(0, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "pong")
	}), WithWriteTimeout(time.Second))

	done := make(chan error, 1)
	go func() { done <- srv.Serve(listener) }()

	resp, err := http.Get("http://" + listener.Addr().String() + "/ping")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "pong" {
		t.Fatalf("expected pong got %q", body)
	}

	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("expected clean stop got %v", err)
	}
}

func TestNewAppliesOptions(t *testing.T) {
	srv := New(8080, http.NotFoundHandler(), WithReadTimeout(time.Minute), WithWriteTimeout(2*time.Minute))

	if srv.Addr() != ":8080" {
		t.Fatalf("expected :8080 got %s", srv.Addr())
	}
	if srv.inner.ReadTimeout != time.Minute || srv.inner.WriteTimeout != 2*time.Minute {
		t.Fatalf("options not applied: read=%s write=%s", srv.inner.ReadTimeout, srv.inner.WriteTimeout)
	}
}

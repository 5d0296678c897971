package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/AlibekovAA/givematch-portal/internal/common/logger"
)

func testLogger() *logger.Logger {
	log, _ := logger.New("", "test", "error")
	return log
}

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return addr
}

func TestRun_RunsHooksOnCancel(t *testing.T) {
	srv := NewServer(ServerConfig{Addr: freeAddr(t)}, http.NotFoundHandler())

	ctx, cancel := context.WithCancel(context.Background())
	called := make(chan struct{}, 2)
	hooks := []ShutdownHook{
		func(context.Context) error { called <- struct{}{}; return errors.New("ignored") },
		func(context.Context) error { called <- struct{}{}; return nil },
	}

	done := make(chan error, 1)
	go func() { done <- Run(ctx, srv, testLogger(), "portal", hooks) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	if len(called) != 2 {
		t.Errorf("expected both hooks to run, got %d", len(called))
	}
}

func TestRun_ListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	srv := NewServer(ServerConfig{Addr: ln.Addr().String()}, http.NotFoundHandler())
	if err := Run(context.Background(), srv, testLogger(), "portal", nil); err == nil {
		t.Fatal("expected error for address in use")
	}
}

package server

import (
	"context"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestServer_Lifecycle(t *testing.T) {
	srv, err := New(Config{ConfigManager: newTestManager(t), Port: "0", Logger: discardLogger()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	serverErr := make(chan error, 1)
	go func() { serverErr <- srv.Start(ctx) }()

	addr := waitForListen(t, srv, 5*time.Second)

	resp, err := http.Get("http://" + addr + "/ready")
	if err != nil {
		t.Fatalf("ready check failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("ready status = %d, want 200", resp.StatusCode)
	}

	if err := srv.Start(ctx); err == nil || !strings.Contains(err.Error(), "already running") {
		t.Errorf("second Start() error = %v", err)
	}

	cancel()
	select {
	case err := <-serverErr:
		if err != nil {
			t.Errorf("Start() returned %v after cancel", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
	if srv.IsRunning() {
		t.Error("IsRunning() = true after shutdown")
	}
}

func TestServer_ListenError(t *testing.T) {
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer taken.Close()
	_, port, _ := net.SplitHostPort(taken.Addr().String())

	srv, err := New(Config{ConfigManager: newTestManager(t), Host: "127.0.0.1", Port: port, Logger: discardLogger()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := srv.Start(context.Background()); err == nil {
		t.Fatal("Start() on a taken port should fail")
	}
	if srv.IsRunning() {
		t.Error("IsRunning() = true after a failed start")
	}
}

func waitForListen(t *testing.T, srv *Server, timeout time.Duration) string {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if addr := srv.Addr(); !strings.HasSuffix(addr, ":0") {
			return addr
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("server did not listen within %s", timeout)
	return ""
}

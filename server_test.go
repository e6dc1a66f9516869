package glimmer

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"pkt.systems/glimmer/httpapi"
	"pkt.systems/glimmer/sshserver"
)

func TestNewRequiresAService(t *testing.T) {
	if _, err := New(ServerConfig{}); err == nil {
		t.Fatalf("expected an error without enabled services")
	}
}

func TestServerStopCancelsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	server := &compositeServer{
		ctx:     ctx,
		cancel:  cancel,
		started: true,
	}
	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	if err := server.Stop(stopCtx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	select {
	case <-ctx.Done():
	default:
		t.Fatalf("expected server context to be canceled")
	}
}

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()
	return addr
}

func TestServerServesRecordingsUntilStopped(t *testing.T) {
	dir := t.TempDir()
	addr := freeAddr(t)
	srv, err := New(ServerConfig{
		HTTP: httpapi.Config{Addr: addr, RecordDir: filepath.Join(dir, "records")},
		SSH:  sshserver.Config{Addr: freeAddr(t), HostKeyPath: filepath.Join(dir, "host_key")},
	}, WithHTTP(), WithSSH())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := srv.Start(context.Background()); err == nil {
		t.Fatalf("expected second start to fail")
	}

	url := fmt.Sprintf("http://%s/sessions", addr)
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := http.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("unexpected status %d", resp.StatusCode)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("http server never came up: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Stop(stopCtx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := srv.Wait(); err != nil {
		t.Fatalf("wait: %v", err)
	}
}

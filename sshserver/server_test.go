package sshserver

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gliderssh "github.com/gliderlabs/ssh"
	"golang.org/x/crypto/ssh"

	"pkt.systems/glimmer/internal/player"
)

func newSigner(t *testing.T) ssh.Signer {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	signer, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		t.Fatalf("signer: %v", err)
	}
	return signer
}

func startServer(t *testing.T, srv *Server) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv.Listener = ln
	srv.HostKeyPath = filepath.Join(t.TempDir(), "host_key")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return ln.Addr().String()
}

func dial(addr string, signer ssh.Signer) (*ssh.Client, error) {
	return ssh.Dial("tcp", addr, &ssh.ClientConfig{
		User:            "alice",
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         2 * time.Second,
	})
}

func TestServerRunsPlayPerSession(t *testing.T) {
	signer := newSigner(t)
	keys, err := ParseAuthorizedKeys(ssh.MarshalAuthorizedKey(signer.PublicKey()))
	if err != nil {
		t.Fatalf("parse keys: %v", err)
	}
	got := make(chan player.Options, 1)
	srv := &Server{
		Keys:  keys,
		Story: "zork",
		Play: func(_ context.Context, opts player.Options) error {
			got <- opts
			_, err := fmt.Fprintf(opts.Out, "screen %dx%d\r\n", opts.Screen.Width, opts.Screen.Height)
			return err
		},
	}
	addr := startServer(t, srv)

	client, err := dial(addr, signer)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = client.Close() }()
	sess, err := client.NewSession()
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	defer func() { _ = sess.Close() }()
	if err := sess.RequestPty("xterm", 24, 80, ssh.TerminalModes{}); err != nil {
		t.Fatalf("pty: %v", err)
	}
	stdout, err := sess.StdoutPipe()
	if err != nil {
		t.Fatalf("stdout: %v", err)
	}
	if err := sess.Shell(); err != nil {
		t.Fatalf("shell: %v", err)
	}
	out, _ := io.ReadAll(stdout)
	if !strings.Contains(string(out), "screen 80x24") {
		t.Fatalf("unexpected output %q", out)
	}
	_ = sess.Wait()

	opts := <-got
	if opts.Story != "zork@alice" || !opts.Screen.ANSI || opts.SessionID == "" {
		t.Fatalf("unexpected play options %+v", opts)
	}
}

func TestServerRejectsUnknownKey(t *testing.T) {
	allowed := newSigner(t)
	keys, err := ParseAuthorizedKeys(ssh.MarshalAuthorizedKey(allowed.PublicKey()))
	if err != nil {
		t.Fatalf("parse keys: %v", err)
	}
	srv := &Server{
		Keys: keys,
		Play: func(context.Context, player.Options) error { return nil },
	}
	addr := startServer(t, srv)
	if client, err := dial(addr, newSigner(t)); err == nil {
		_ = client.Close()
		t.Fatalf("expected an unknown key to be rejected")
	}
}

func TestParseAuthorizedKeys(t *testing.T) {
	a, b := newSigner(t), newSigner(t)
	data := "# team keys\n\n" +
		strings.TrimSpace(string(ssh.MarshalAuthorizedKey(a.PublicKey()))) + " alice@example\n" +
		`no-pty ` + string(ssh.MarshalAuthorizedKey(b.PublicKey()))
	keys, err := ParseAuthorizedKeys([]byte(data))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if keys.Len() != 2 || !keys.Allows(a.PublicKey()) || !keys.Allows(b.PublicKey()) {
		t.Fatalf("expected both keys to be allowed")
	}
	if keys.Allows(newSigner(t).PublicKey()) {
		t.Fatalf("unexpected key allowed")
	}
	if _, err := ParseAuthorizedKeys([]byte("ssh-ed25519 not-base64!\n")); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestEnsureHostKey(t *testing.T) {
	tests := []struct {
		keyType  string
		wantType string
	}{
		{keyType: "", wantType: ssh.KeyAlgoED25519},
		{keyType: HostKeyEd25519, wantType: ssh.KeyAlgoED25519},
		{keyType: "ECDSA", wantType: ssh.KeyAlgoECDSA256},
		{keyType: HostKeyRSA, wantType: ssh.KeyAlgoRSA},
	}
	for _, tt := range tests {
		t.Run(tt.wantType+"/"+tt.keyType, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "keys", "host")
			first, err := EnsureHostKey(path, HostKeyOptions{Type: tt.keyType, Comment: "glimmer zork host key"})
			if err != nil {
				t.Fatalf("create: %v", err)
			}
			if !first.Created || first.Signer.PublicKey().Type() != tt.wantType {
				t.Fatalf("created=%v type=%s, want a new %s key", first.Created, first.Signer.PublicKey().Type(), tt.wantType)
			}
			// The stored key wins over a different configured type.
			second, err := EnsureHostKey(path, HostKeyOptions{Type: HostKeyRSA})
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if second.Created || !gliderssh.KeysEqual(first.Signer.PublicKey(), second.Signer.PublicKey()) {
				t.Fatalf("host key changed between loads")
			}
			if second.Fingerprint() != first.Fingerprint() || !strings.HasPrefix(first.Fingerprint(), "SHA256:") {
				t.Fatalf("unexpected fingerprints %q and %q", first.Fingerprint(), second.Fingerprint())
			}
		})
	}
}

func TestEnsureHostKeyRejectsBadInput(t *testing.T) {
	if _, err := EnsureHostKey(" ", HostKeyOptions{}); err == nil {
		t.Fatalf("expected error for an empty path")
	}
	path := filepath.Join(t.TempDir(), "host")
	if _, err := EnsureHostKey(path, HostKeyOptions{Type: "dsa"}); err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Fatalf("expected unsupported type error, got %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected no key file after a failed generation, got %v", err)
	}
	if err := os.WriteFile(path, []byte("not a key"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := EnsureHostKey(path, HostKeyOptions{}); err == nil {
		t.Fatalf("expected parse error for a corrupt key")
	}
}

func TestForwardResizeKeepsNewest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	winCh := make(chan gliderssh.Window)
	out := make(chan player.Size, 1)
	done := make(chan struct{})
	go func() {
		forwardResize(ctx, winCh, out)
		close(done)
	}()
	winCh <- gliderssh.Window{Width: 80, Height: 24}
	winCh <- gliderssh.Window{Width: 100, Height: 30}
	close(winCh)
	<-done
	cancel()
	if size := <-out; size != (player.Size{Cols: 100, Rows: 30}) {
		t.Fatalf("expected the newest size, got %+v", size)
	}
}

package sshserver

import (
	"context"
	"fmt"
	"io"
	"net"

	gliderssh "github.com/gliderlabs/ssh"
	"golang.org/x/crypto/ssh"

	"pkt.systems/glimmer/core"
	"pkt.systems/glimmer/internal/logx"
	"pkt.systems/glimmer/internal/player"
	"pkt.systems/pslog"
)

// PlayFunc runs one story session.
type PlayFunc func(ctx context.Context, opts player.Options) error

// Server exposes a story over SSH. Every PTY session gets its own
// interpreter process and display session.
type Server struct {
	Addr        string
	HostKeyPath string
	// HostKeyType is used when the host key has to be generated.
	HostKeyType string
	Listener    net.Listener
	// Keys restricts logins to these public keys; nil admits any key.
	Keys *AuthorizedKeys
	// Story names the autosave slot; the user name is appended.
	Story string
	// Options is the template for each session. In, Out, Screen size,
	// Resize, SessionID and Story are filled in per connection.
	Options player.Options
	// Play defaults to player.Run.
	Play   PlayFunc
	logger pslog.Logger
}

// ListenAndServe starts the SSH server and shuts down on context cancellation.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s.logger == nil {
		s.logger = pslog.Ctx(ctx)
	}
	if s.Play == nil {
		s.Play = player.Run
	}

	comment := "glimmer host key"
	if s.Story != "" {
		comment = fmt.Sprintf("glimmer %s host key", s.Story)
	}
	hostKey, err := EnsureHostKey(s.HostKeyPath, HostKeyOptions{Type: s.HostKeyType, Comment: comment})
	if err != nil {
		return err
	}
	keyLog := s.logger.With("path", s.HostKeyPath, "type", hostKey.Signer.PublicKey().Type(), "fingerprint", hostKey.Fingerprint())
	if hostKey.Created {
		keyLog.Info("ssh host key generated")
	} else {
		keyLog.Debug("ssh host key loaded")
	}
	if s.Keys == nil {
		s.logger.Warn("ssh accepting any public key", "reason", "no authorized keys configured")
	}

	server := &gliderssh.Server{
		Addr:             s.Addr,
		Handler:          s.handleSession,
		PublicKeyHandler: s.handlePublicKey,
	}
	server.AddHostKey(hostKey.Signer)

	errCh := make(chan error, 1)
	go func() {
		if s.Listener != nil {
			errCh <- server.Serve(s.Listener)
			return
		}
		errCh <- server.ListenAndServe()
	}()
	s.logger.Info("ssh listening", "addr", s.addr())

	select {
	case <-ctx.Done():
		_ = server.Close()
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) addr() string {
	if s.Listener != nil {
		return s.Listener.Addr().String()
	}
	return s.Addr
}

func (s *Server) handlePublicKey(ctx gliderssh.Context, key gliderssh.PublicKey) bool {
	log := s.logger.With("user", ctx.User(), "remote", remoteAddr(ctx), "fingerprint", ssh.FingerprintSHA256(key))
	if s.Keys == nil {
		log.Debug("ssh pubkey accepted", "reason", "open server")
		return true
	}
	if !s.Keys.Allows(key) {
		log.Warn("ssh pubkey rejected", "reason", "no matching key")
		return false
	}
	log.Info("ssh pubkey accepted")
	return true
}

func remoteAddr(ctx gliderssh.Context) string {
	if ctx == nil || ctx.RemoteAddr() == nil {
		return ""
	}
	return ctx.RemoteAddr().String()
}

func (s *Server) handleSession(sess gliderssh.Session) {
	log := s.logger
	user := sess.User()
	remote := sess.RemoteAddr().String()
	log = log.With("user", user, "remote", remote)
	if sshSession := sess.Context().SessionID(); sshSession != "" {
		log = log.With("ssh_session", sshSession)
	}

	pty, winCh, ok := sess.Pty()
	if !ok {
		log.Info("ssh session rejected", "reason", "pty required")
		_, _ = io.WriteString(sess, "pty required\n")
		_ = sess.Exit(1)
		return
	}

	id := core.NewSessionID()
	ctx := logx.ContextWithSessionLogger(sess.Context(), log, id)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	resize := make(chan player.Size, 1)
	go forwardResize(ctx, winCh, resize)

	opts := s.Options
	opts.SessionID = id
	opts.In = sess
	opts.Out = sess
	opts.Resize = resize
	opts.Logger = logx.Ctx(ctx)
	opts.Screen.Width = pty.Window.Width
	opts.Screen.Height = pty.Window.Height
	opts.Screen.ANSI = true
	if s.Story != "" {
		opts.Story = fmt.Sprintf("%s@%s", s.Story, user)
	}

	log.Info("ssh session opened", "term", pty.Term, "cols", pty.Window.Width, "rows", pty.Window.Height)
	code := 0
	if err := s.Play(ctx, opts); err != nil {
		log.Warn("ssh session failed", "err", err)
		_, _ = fmt.Fprintf(sess, "\r\n%v\r\n", err)
		code = 1
	}
	_, _ = io.WriteString(sess, "\x1b[0m\r\n")
	_ = sess.Exit(code)
	log.Info("ssh session closed", "term", pty.Term)
}

// forwardResize converts window change requests to player sizes. The newest
// size wins when the player is slow to pick them up.
func forwardResize(ctx context.Context, winCh <-chan gliderssh.Window, out chan player.Size) {
	for {
		select {
		case <-ctx.Done():
			return
		case win, ok := <-winCh:
			if !ok {
				return
			}
			size := player.Size{Cols: win.Width, Rows: win.Height}
			select {
			case out <- size:
			default:
				select {
				case <-out:
				default:
				}
				out <- size
			}
		}
	}
}

package httpapi

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"pkt.systems/glimmer/internal/recording"
	"pkt.systems/glimmer/schema"
	"pkt.systems/pslog"
)

// requestNote collects what a handler learned about the transcript it
// served, for the access log line.
type requestNote struct {
	session schema.SessionID
	format  recording.Format
	entry   int
}

type requestNoteKey struct{}

func noteFrom(ctx context.Context) *requestNote {
	note, _ := ctx.Value(requestNoteKey{}).(*requestNote)
	return note
}

// noteEntry records the stored entry of a /record post.
func noteEntry(r *http.Request, id schema.SessionID, format recording.Format, size int) {
	if note := noteFrom(r.Context()); note != nil {
		note.session, note.format, note.entry = id, format, size
	}
}

// statusWriter remembers the status and size of a response. It keeps
// Flush so streams still work behind it.
type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (w *statusWriter) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(p)
	w.bytes += int64(n)
	return n, err
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// withRequestLogging writes one access line per request. Rejected posts
// log at Warn since they mean a player's transcript is being lost.
func withRequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		note := &requestNote{session: pathSession(r.URL.Path)}
		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r.WithContext(context.WithValue(r.Context(), requestNoteKey{}, note)))

		status := sw.status
		if status == 0 {
			status = http.StatusOK
		}
		log := pslog.Ctx(r.Context()).With("remote", remoteHost(r))
		if note.session != "" {
			log = log.With("session", note.session)
		}
		if note.entry > 0 {
			log = log.With("format", note.format, "entry_bytes", note.entry)
		}
		fields := []any{"method", r.Method, "path", r.URL.Path, "status", status, "bytes", sw.bytes, "duration_ms", time.Since(start).Milliseconds()}
		if r.Method == http.MethodPost && status >= http.StatusBadRequest {
			log.Warn("http record rejected", append(fields, "origin", r.Header.Get("Origin"))...)
			return
		}
		log.Info("http request", fields...)
		log.Trace("http request client", "ua", r.UserAgent(), "query", r.URL.RawQuery)
	})
}

// pathSession extracts the id from /sessions/{id} and /sessions/{id}/stream.
func pathSession(path string) schema.SessionID {
	rest, ok := strings.CutPrefix(path, "/sessions/")
	if !ok {
		return ""
	}
	id, _, _ := strings.Cut(rest, "/")
	return schema.SessionID(id)
}

// remoteHost prefers the first X-Forwarded-For hop, so a proxied player
// is logged by their own address.
func remoteHost(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

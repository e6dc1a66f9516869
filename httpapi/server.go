package httpapi

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"pkt.systems/glimmer/internal/logx"
	"pkt.systems/glimmer/internal/recording"
	"pkt.systems/glimmer/schema"
)

// DefaultMaxBodyBytes caps a posted recording entry.
const DefaultMaxBodyBytes = 8 << 20

const shutdownTimeout = 5 * time.Second

//go:embed assets/index.html
var indexHTML []byte

// Server receives transcript recordings and serves them back.
type Server struct {
	cfg      Config
	store    *recordStore
	hub      *Hub
	basePath string
	maxBody  int64
}

// NewServer constructs a recording server. A nil hub gets a fresh one.
func NewServer(cfg Config, hub *Hub) (*Server, error) {
	store, err := newRecordStore(cfg.RecordDir)
	if err != nil {
		return nil, err
	}
	if hub == nil {
		hub = NewHub(cfg.HistorySize)
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	return &Server{
		cfg:      cfg,
		store:    store,
		hub:      hub,
		basePath: mountPath(cfg.BasePath),
		maxBody:  maxBody,
	}, nil
}

// Handler returns an http.Handler for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/record", s.handleRecord)
	mux.HandleFunc("GET /sessions", s.handleSessions)
	mux.HandleFunc("GET /sessions/{id}", s.handleTranscript)
	mux.HandleFunc("GET /sessions/{id}/stream", s.handleStream)

	handler := withRequestLogging(mux)
	if s.basePath == "" {
		return handler
	}
	prefix := s.basePath
	root := http.NewServeMux()
	root.Handle(prefix+"/", http.StripPrefix(prefix, handler))
	root.HandleFunc(prefix, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != prefix {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, prefix+"/", http.StatusTemporaryRedirect)
	})
	return root
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	http.ServeContent(w, r, "index.html", time.Time{}, bytes.NewReader(indexHTML))
}

// mountPath cleans a configured base path to "/prefix" form. An empty
// result mounts the receiver at the root.
func mountPath(value string) string {
	p := strings.Trim(strings.TrimSpace(value), "/")
	if p == "" {
		return ""
	}
	return path.Clean("/" + p)
}

// handleRecord accepts one transcript entry. Browsers post these cross
// origin, so preflight requests are answered for any origin.
func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	switch r.Method {
	case http.MethodOptions:
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.WriteHeader(http.StatusNoContent)
		return
	case http.MethodPost:
	default:
		w.Header().Set("Allow", "POST, OPTIONS")
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	log := logx.Ctx(r.Context())
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err)
		return
	}
	var entry recording.Entry
	if err := decodeJSON(bytes.NewReader(body), &entry); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode entry: %w", err))
		return
	}
	id := schema.SessionID(entry.SessionID)
	if !validSessionID(id) {
		writeError(w, http.StatusBadRequest, errInvalidSessionID)
		return
	}
	var line bytes.Buffer
	if err := json.Compact(&line, body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.store.Append(id, line.Bytes()); err != nil {
		log.Warn("record append failed", "session", id, "err", err)
		writeError(w, http.StatusInternalServerError, errors.New("record failed"))
		return
	}
	s.hub.Publish(entry)
	noteEntry(r, id, entry.Format, line.Len())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.store.List()
	if err != nil {
		logx.Ctx(r.Context()).Warn("record list failed", "err", err)
		writeError(w, http.StatusInternalServerError, errors.New("list failed"))
		return
	}
	if sessions == nil {
		sessions = []SessionInfo{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	id := schema.SessionID(r.PathValue("id"))
	data, err := s.store.Read(id)
	switch {
	case errors.Is(err, errInvalidSessionID):
		writeError(w, http.StatusBadRequest, err)
		return
	case errors.Is(err, os.ErrNotExist):
		writeError(w, http.StatusNotFound, errors.New("no such session"))
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, errors.New("read failed"))
		return
	}
	w.Header().Set("Content-Type", "application/x-ndjson")
	_, _ = w.Write(data)
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errors.New("stream unsupported"))
		return
	}
	id := schema.SessionID(r.PathValue("id"))
	if !validSessionID(id) {
		writeError(w, http.StatusBadRequest, errInvalidSessionID)
		return
	}
	log := logx.WithSession(r.Context(), id)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, unsubscribe := s.hub.Subscribe(id)
	defer unsubscribe()

	lastID := parseUint(r.Header.Get("Last-Event-ID"))
	replay := s.hub.Replay(id, lastID)
	for _, event := range replay {
		_ = writeSSEvent(w, event)
		lastID = event.Seq
	}
	flusher.Flush()

	notify := r.Context().Done()
	log.Info("http stream opened", "replay", len(replay))
	for {
		select {
		case <-notify:
			log.Info("http stream closed")
			return
		case event := <-ch:
			if event.Seq <= lastID {
				continue
			}
			_ = writeSSEvent(w, event)
			flusher.Flush()
		}
	}
}

func decodeJSON(body io.Reader, target any) error {
	return json.NewDecoder(body).Decode(target)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	data, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func writeSSEvent(w http.ResponseWriter, event StreamEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if event.Seq > 0 {
		_, _ = fmt.Fprintf(w, "id: %d\n", event.Seq)
	}
	_, _ = fmt.Fprintf(w, "data: %s\n\n", strings.TrimSpace(string(data)))
	return nil
}

func parseUint(value string) uint64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0
	}
	return parsed
}

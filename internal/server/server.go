// Package server exposes an editing session over HTTP and a websocket.
// Clients read the document through the JSON API and send edits as action
// envelopes; every accepted edit is followed by a document broadcast to all
// connected clients.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/livetemplate/pagecraft"
	"github.com/livetemplate/pagecraft/internal/config"
	"github.com/livetemplate/pagecraft/internal/logging"
	"github.com/livetemplate/pagecraft/internal/preset"
)

const shutdownTimeout = 5 * time.Second

// Server serves one editor to any number of websocket clients.
type Server struct {
	editor *pagecraft.Editor
	cfg    *config.Config
	log    zerolog.Logger

	// actionMu serializes edits so each reply and broadcast reflects the
	// edit that produced it.
	actionMu sync.Mutex

	clients  map[*client]struct{}
	clientMu sync.RWMutex

	watcher *preset.Watcher

	ctx     context.Context
	cancel  context.CancelFunc
	handler http.Handler
}

// New creates a server over ed. A nil cfg uses the defaults.
func New(ed *pagecraft.Editor, cfg *config.Config, log zerolog.Logger) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		editor:  ed,
		cfg:     cfg,
		log:     logging.Component(log, "server"),
		clients: make(map[*client]struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
	s.handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("GET /api/document", s.getDocument)
	api.HandleFunc("PUT /api/document", s.putDocument)
	api.HandleFunc("POST /api/import", s.importMarkdown)
	api.HandleFunc("GET /api/types", s.getTypes)
	api.HandleFunc("GET /api/presets", s.getPresets)

	limit, _ := RateLimitMiddleware(s.ctx,
		s.cfg.API.GetRateLimitRPS(), s.cfg.API.GetRateLimitBurst(), 0, s.log)

	mux := http.NewServeMux()
	mux.Handle("/api/", limit(api))
	mux.HandleFunc("GET /ws", s.serveWebSocket)

	var h http.Handler = mux
	h = CORSMiddleware(s.cfg.API.GetCORSOrigins())(h)
	h = SecurityHeadersMiddleware()(h)
	return h
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Editor returns the served editor.
func (s *Server) Editor() *pagecraft.Editor { return s.editor }

// EnableWatch reloads presets from dir whenever its files change and tells
// clients to refetch them.
func (s *Server) EnableWatch(dir string) error {
	w, err := preset.NewWatcher(dir, func(lib *preset.Library) {
		s.editor.SetPresets(lib)
		s.broadcast(Response{Type: TypePresets, OK: true})
	}, s.log)
	if err != nil {
		return fmt.Errorf("failed to watch presets: %w", err)
	}
	s.watcher = w
	w.Start()
	s.log.Info().Str("dir", dir).Msg("watching presets")
	return nil
}

// StopWatch stops the preset watcher, if any.
func (s *Server) StopWatch() error {
	if s.watcher == nil {
		return nil
	}
	w := s.watcher
	s.watcher = nil
	return w.Stop()
}

// Close stops background work and disconnects every client.
func (s *Server) Close() error {
	s.cancel()
	err := s.StopWatch()

	s.clientMu.Lock()
	for c := range s.clients {
		c.conn.Close()
	}
	s.clientMu.Unlock()
	return err
}

// ListenAndServe serves on the configured address until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr(),
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info().Str("addr", srv.Addr).Msg("listening")

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	if cerr := s.Close(); err == nil {
		err = cerr
	}
	return err
}

// Package server exposes a session over HTTP and pushes its events to
// websocket clients.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/thiagokokada/gitgud/internal/layout"
	"github.com/thiagokokada/gitgud/internal/session"
)

const (
	maxCommandBytes = 4 << 10
	shutdownTimeout = 5 * time.Second
)

type Options struct {
	Addr   string
	Layout layout.Options
}

type Server struct {
	sess        *session.Session
	opts        Options
	hub         *hub
	unsubscribe func()
}

func New(sess *session.Session, opts Options) *Server {
	s := &Server{sess: sess, opts: opts, hub: newHub()}
	s.unsubscribe = sess.Subscribe(s.forward)
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/command", s.handleCommand)
	mux.HandleFunc("GET /api/graph", s.handleGraph)
	mux.HandleFunc("GET /api/layout", s.handleLayout)
	mux.HandleFunc("GET /api/graph.svg", s.handleSVG)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/log", s.handleLog)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /api/divergence", s.handleDivergence)
	mux.HandleFunc("GET /api/ws", s.handleWebSocket)
	return mux
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", slog.String("addr", s.opts.Addr))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		s.Close()
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	s.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close stops forwarding session events and disconnects websocket clients.
func (s *Server) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	s.hub.closeAll()
}

type commandRequest struct {
	Command string `json:"command"`
}

type commandResponse struct {
	Output  string `json:"output"`
	Outcome string `json:"outcome"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCommandBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Command) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "command is required"})
		return
	}
	out, err := s.sess.Submit(r.Context(), req.Command)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, commandResponse{Output: out, Outcome: s.sess.LastOutcome().String()})
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sess.Graph().Snapshot())
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.geometry())
}

func (s *Server) handleSVG(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "image/svg+xml")
	if _, err := w.Write(layout.SVG(s.geometry())); err != nil {
		slog.Debug("write svg", slog.Any("error", err))
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("refresh") != "" {
		// The refresh error ends up in the cached view below.
		_ = s.sess.RefreshStatus(r.Context())
	}
	writeJSON(w, http.StatusOK, s.statusView())
}

func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	entries, err := s.sess.Log(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sess.History())
}

func (s *Server) handleDivergence(w http.ResponseWriter, r *http.Request) {
	rep, err := s.sess.Divergence(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, struct {
		session.Report
		InSync bool `json:"inSync"`
	}{Report: rep, InSync: rep.InSync()})
}

func (s *Server) geometry() layout.Geometry {
	return layout.Compute(s.sess.Graph(), s.opts.Layout)
}

func (s *Server) statusView() session.StatusView {
	st, err := s.sess.Status()
	view := session.StatusView{Status: st}
	if err != nil {
		view.Error = err.Error()
	}
	return view
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("encode response", slog.Any("error", err))
	}
}

// Package web exposes the broker over HTTP. Every request is forwarded to the
// broker, which serializes it with the simulation ticks.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/encodeous/manasim/perf"
	"github.com/encodeous/manasim/state"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Network is the part of the broker the api needs
type Network interface {
	Register(ctx context.Context, secret state.NodeSecret) (state.NodeID, error)
	Alive(ctx context.Context, id state.NodeID) (state.Mana, error)
	GetNodeInfo(ctx context.Context, id state.NodeID) (state.NodeRecord, error)
	Status(ctx context.Context) (state.NetworkStatus, error)
}

type Server struct {
	Network Network
	Log     *slog.Logger
}

type registerRequest struct {
	Secret state.NodeSecret `json:"secret"`
}

type registerResponse struct {
	ID state.NodeID `json:"id"`
}

type aliveResponse struct {
	ID   state.NodeID `json:"id"`
	Mana state.Mana   `json:"mana"`
}

// NewHandler returns the chi router with all routes mounted.
func NewHandler(network Network, log *slog.Logger) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{Network: network, Log: log.With("module", "web")}
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(state.RequestTimeout))
	r.Use(s.logRequests)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Get("/alive/{id}", s.handleAlive)
		r.Get("/nodes/{id}", s.handleNode)
		r.Get("/stats", s.handleStats)
	})
	r.Handle("/debug/metrics", perf.Handler())
	r.Handle("/metrics", perf.PromHandler())
	return r
}

// NewServer returns an http server for handler on addr
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: state.RequestTimeout,
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.Log.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"elapsed", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body registerRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10))
	dec.DisallowUnknownFields()
	// the decoder error may quote the request, keep it out of the response and the logs
	if err := dec.Decode(&body); err != nil || body.Secret.IsZero() {
		writeError(w, http.StatusBadRequest, "invalid request body, expected {\"secret\": \"<base64>\"}")
		return
	}
	id, err := s.Network.Register(r.Context(), body.Secret)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, registerResponse{ID: id})
}

func (s *Server) handleAlive(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	mana, err := s.Network.Alive(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, aliveResponse{ID: id, Mana: mana})
}

func (s *Server) handleNode(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	rec, err := s.Network.GetNodeInfo(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	status, err := s.Network.Status(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func parseID(w http.ResponseWriter, r *http.Request) (state.NodeID, bool) {
	id, err := state.ParseNodeID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return id, false
	}
	return id, true
}

// fail maps broker errors to status codes
func (s *Server) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, state.ErrNotFound), errors.Is(err, state.ErrNotRegistered):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, state.ErrChannelClosed):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		writeError(w, http.StatusGatewayTimeout, err.Error())
	default:
		s.Log.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Package server provides the admin HTTP API: liveness and a bearer-protected
// view of the pipeline, resolver and known chats.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/dayuer/guardbot-go/internal/pipeline"
)

// Pipeline exposes dispatcher introspection.
type Pipeline interface {
	Stats() map[string]any
	Stages() []pipeline.StageInfo
}

// StatsSource is anything that reports a stats map.
type StatsSource interface {
	Stats() map[string]any
}

// ChatSet is the known-chats view.
type ChatSet interface {
	Len() int
	IDs() []int64
}

// ChannelStatus reports whether each channel is running and how the
// outbound queues are doing.
type ChannelStatus interface {
	GetStatus() map[string]bool
	OutboundStats() map[string]any
}

// Pinger checks storage health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// FaultCounter reports the number of faults seen.
type FaultCounter interface {
	Total() int64
}

// ServerConfig configures the admin Server. Nil sources are omitted from responses.
type ServerConfig struct {
	Host       string
	Port       int
	APIKey     string
	InstanceID string

	Dispatcher Pipeline
	Runner     StatsSource
	Resolver   StatsSource
	Known      ChatSet
	Channels   ChannelStatus
	Store      Pinger
	Faults     FaultCounter
}

// Server is the admin HTTP API server.
type Server struct {
	cfg       ServerConfig
	startTime time.Time

	mux *http.ServeMux
	srv *http.Server
}

// NewServer creates a new HTTP API server.
func NewServer(cfg ServerConfig) *Server {
	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.NewString()
	}
	s := &Server{
		cfg:       cfg,
		startTime: time.Now(),
		mux:       http.NewServeMux(),
	}

	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/status", s.withAuth(s.handleStatus))
	s.mux.HandleFunc("GET /api/stages", s.withAuth(s.handleStages))
	s.mux.HandleFunc("GET /api/chats", s.withAuth(s.handleChats))

	return s
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler { return s.mux }

// Start serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("[Server] ✅ admin API → http://%s", addr)
	if s.cfg.APIKey == "" {
		log.Printf("[Server] ⚠️ no API key set, /api/* is unauthenticated")
	}

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("admin server: %w", err)
	}
	return nil
}

// Stop stops the server gracefully.
func (s *Server) Stop() {
	if s.srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.srv.Shutdown(ctx)
	}
}

// --- Auth middleware ---

func (s *Server) withAuth(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.APIKey != "" {
			auth := r.Header.Get("Authorization")
			if subtle.ConstantTimeCompare([]byte(auth), []byte("Bearer "+s.cfg.APIKey)) != 1 {
				writeJSONError(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		handler(w, r)
	}
}

// --- Handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":     "ok",
		"instanceId": s.cfg.InstanceID,
		"uptime":     int(time.Since(s.startTime).Seconds()),
	}
	if s.cfg.Store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.cfg.Store.Ping(ctx); err != nil {
			body["status"] = "degraded"
			body["store"] = err.Error()
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(body)
			return
		}
	}
	writeJSON(w, body)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	status := map[string]any{
		"instanceId": s.cfg.InstanceID,
		"uptime":     int(time.Since(s.startTime).Seconds()),
	}
	if s.cfg.Dispatcher != nil {
		status["dispatcher"] = s.cfg.Dispatcher.Stats()
		status["stages"] = s.cfg.Dispatcher.Stages()
	}
	if s.cfg.Runner != nil {
		status["runner"] = s.cfg.Runner.Stats()
	}
	if s.cfg.Resolver != nil {
		status["resolver"] = s.cfg.Resolver.Stats()
	}
	if s.cfg.Known != nil {
		status["knownChats"] = s.cfg.Known.Len()
	}
	if s.cfg.Channels != nil {
		status["channels"] = s.cfg.Channels.GetStatus()
		status["outbound"] = s.cfg.Channels.OutboundStats()
	}
	if s.cfg.Faults != nil {
		status["faults"] = s.cfg.Faults.Total()
	}
	writeJSON(w, status)
}

func (s *Server) handleStages(w http.ResponseWriter, _ *http.Request) {
	if s.cfg.Dispatcher == nil {
		writeJSONError(w, "pipeline not configured", http.StatusNotImplemented)
		return
	}
	stages := s.cfg.Dispatcher.Stages()
	writeJSON(w, map[string]any{"stages": stages, "total": len(stages)})
}

func (s *Server) handleChats(w http.ResponseWriter, _ *http.Request) {
	if s.cfg.Known == nil {
		writeJSON(w, map[string]any{"chats": []int64{}, "total": 0})
		return
	}
	ids := s.cfg.Known.IDs()
	writeJSON(w, map[string]any{"chats": ids, "total": len(ids)})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

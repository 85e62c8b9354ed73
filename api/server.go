// Package api exposes read-side endpoints over the gate state plus the
// engagement callback used by the external analytics collaborator.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"newsgate/analytics"
	"newsgate/history"
	"newsgate/ratelimit"
)

// Server represents the API server
type Server struct {
	limiter  *ratelimit.Limiter
	analyzer *analytics.Analyzer
	history  *history.Store
	logger   *zap.Logger
	port     int
}

// NewServer creates a new API server
func NewServer(limiter *ratelimit.Limiter, analyzer *analytics.Analyzer, hist *history.Store, logger *zap.Logger, port int) *Server {
	return &Server{
		limiter:  limiter,
		analyzer: analyzer,
		history:  hist,
		logger:   logger,
		port:     port,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/can-post", s.canPostHandler)
	mux.HandleFunc("/stats", s.statsHandler)
	mux.HandleFunc("/trending", s.trendingHandler)
	mux.HandleFunc("/engagement", s.engagementHandler)

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return mux
}

// Start starts the API server
func (s *Server) Start() error {
	s.logger.Info("starting API server", zap.Int("port", s.port))
	return http.ListenAndServe(fmt.Sprintf(":%d", s.port), s.Handler())
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to write response", zap.Error(err))
	}
}

func (s *Server) canPostHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	allowed, reason, err := s.limiter.CanPostNow()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, map[string]any{
		"can_post": allowed,
		"reason":   reason,
	})
}

func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats, err := s.analyzer.Stats()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, stats)
}

func (s *Server) trendingHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	hours := queryInt(r, "hours", 24)
	topK := queryInt(r, "top", 5)

	topics, err := s.analyzer.TrendingTopics(hours, topK)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, topics)
}

type engagementRequest struct {
	NewsItemID string `json:"news_item_id"`
	Views      int64  `json:"views"`
	Clicks     int64  `json:"clicks"`
}

func (s *Server) engagementHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req engagementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.NewsItemID == "" {
		http.Error(w, "news_item_id is required", http.StatusBadRequest)
		return
	}

	if err := s.history.IncrementEngagement(req.NewsItemID, req.Views, req.Clicks); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

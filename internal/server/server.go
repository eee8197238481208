// Package server exposes the library over HTTP: scan and read requests,
// watch session control, settings, a server-sent event stream and metrics.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mgomes/mdindex/internal/config"
	"github.com/mgomes/mdindex/internal/indexer"
	"github.com/mgomes/mdindex/internal/library"
	"github.com/mgomes/mdindex/internal/logging"
)

type Server struct {
	lib    *library.Library
	hub    *Hub
	router *mux.Router
}

func New(lib *library.Library, hub *Hub) *Server {
	s := &Server{lib: lib, hub: hub, router: mux.NewRouter()}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router
	r.Use(instrument)

	r.HandleFunc("/health", s.health).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/files", s.listFiles).Methods("GET")
	api.HandleFunc("/scan", s.scan).Methods("POST")
	api.HandleFunc("/file", s.readFile).Methods("GET")
	api.HandleFunc("/watch", s.listSessions).Methods("GET")
	api.HandleFunc("/watch", s.startWatch).Methods("POST")
	api.HandleFunc("/watch/{id}", s.stopWatch).Methods("DELETE")
	api.HandleFunc("/events", s.events).Methods("GET")
	api.HandleFunc("/settings", s.getSettings).Methods("GET")
	api.HandleFunc("/settings", s.putSettings).Methods("PUT")
}

type pathsRequest struct {
	Paths   []string `json:"paths"`
	Replace bool     `json:"replace"`
}

type skipResponse struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
	Error  string `json:"error,omitempty"`
}

type scanResponse struct {
	Files      indexer.Snapshot `json:"files"`
	Skipped    []skipResponse   `json:"skipped"`
	DurationMs int64            `json:"durationMs"`
}

type watchResponse struct {
	ID      string         `json:"id"`
	Roots   []string       `json:"roots"`
	Watched int            `json:"watched"`
	Skipped []skipResponse `json:"skipped"`
}

func toSkipResponses(skips []indexer.Skip) []skipResponse {
	out := make([]skipResponse, 0, len(skips))
	for _, s := range skips {
		sr := skipResponse{Path: s.Path, Reason: s.Reason}
		if s.Err != nil {
			sr.Error = s.Err.Error()
		}
		out = append(out, sr)
	}
	return out
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"documents":   len(s.lib.Snapshot()),
		"sessions":    len(s.lib.Sessions()),
		"subscribers": s.hub.Subscribers(),
	})
}

func (s *Server) listFiles(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.lib.Snapshot())
}

func (s *Server) scan(w http.ResponseWriter, r *http.Request) {
	var req pathsRequest
	if !decodeOptionalBody(w, r, &req) {
		return
	}

	report := s.lib.Scan(r.Context(), req.Paths)
	if report.Err != nil {
		writeJSONError(w, "scan cancelled: "+report.Err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, scanResponse{
		Files:      report.Snapshot,
		Skipped:    toSkipResponses(report.Skipped),
		DurationMs: report.Duration.Milliseconds(),
	})
}

func (s *Server) readFile(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeJSONError(w, "path is required", http.StatusBadRequest)
		return
	}

	content, err := s.lib.ReadFile(path)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, fs.ErrNotExist):
			status = http.StatusNotFound
		case errors.Is(err, fs.ErrPermission):
			status = http.StatusForbidden
		}
		writeJSONError(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	if _, err := w.Write([]byte(content)); err != nil {
		logging.Error("failed to write file response: %v", err)
	}
}

func (s *Server) listSessions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.lib.Sessions())
}

func (s *Server) startWatch(w http.ResponseWriter, r *http.Request) {
	var req pathsRequest
	if !decodeOptionalBody(w, r, &req) {
		return
	}

	start := s.lib.StartWatching
	if req.Replace {
		start = s.lib.ReplaceWatching
	}

	session, err := start(s.hub, req.Paths)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, watchResponse{
		ID:      session.ID(),
		Roots:   session.Roots(),
		Watched: session.Watched(),
		Skipped: toSkipResponses(session.Skipped()),
	})
}

func (s *Server) stopWatch(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.lib.StopWatching(id); err != nil {
		writeJSONError(w, err.Error(), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// events streams change events as server-sent events named after their
// signal.
func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSONError(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ch, unsubscribe := s.hub.Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(indexer.Payload(ev))
			if err != nil {
				logging.Error("failed to encode event: %v", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Signal(), data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (s *Server) getSettings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.lib.Settings())
}

func (s *Server) putSettings(w http.ResponseWriter, r *http.Request) {
	var settings config.Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeJSONError(w, "invalid settings: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.lib.SaveSettings(settings); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Running sessions keep their old roots; replace them so the new
	// configuration takes effect.
	if len(s.lib.Sessions()) > 0 {
		if _, err := s.lib.ReplaceWatching(s.hub, nil); err != nil {
			logging.Error("failed to restart watching after settings change: %v", err)
		}
	}

	writeJSON(w, http.StatusOK, s.lib.Settings())
}

// decodeOptionalBody decodes a JSON body if one was sent. It writes the
// error response and returns false on malformed input.
func decodeOptionalBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSONError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

func writeJSONError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}

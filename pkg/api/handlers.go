// Package api exposes the conversion pipeline over HTTP: job creation,
// stream selection, status polling, HLS artifact serving and the
// WebSocket event feed.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/vddownco/video-downloader-hls/pkg/orchestrator"
	"github.com/vddownco/video-downloader-hls/pkg/schemas"
	"github.com/vddownco/video-downloader-hls/pkg/store"
	"github.com/vddownco/video-downloader-hls/pkg/ws"
)

// DownloadRequest is the body of POST /download
type DownloadRequest struct {
	URL string `json:"url"`
}

// DownloadResponse acknowledges an accepted download request
type DownloadResponse struct {
	TaskID string `json:"task_id"`
}

// ConvertRequest is the body of POST /convert. SelectedStreams and
// TotalStreamCounts default to their zero values when omitted.
type ConvertRequest struct {
	TaskID            string                  `json:"task_id"`
	SelectedStreams   schemas.StreamSelection `json:"selected_streams"`
	TotalStreamCounts schemas.StreamCounts    `json:"total_stream_counts"`
}

// ConvertResponse acknowledges an accepted conversion request
type ConvertResponse struct {
	Success bool `json:"success"`
}

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error string `json:"error"`
}

// Server holds the HTTP handler dependencies
type Server struct {
	orch   *orchestrator.Orchestrator
	hub    *ws.Hub
	logger *zap.Logger
}

// NewServer creates an API server over the given orchestrator and event hub
func NewServer(orch *orchestrator.Orchestrator, hub *ws.Hub, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		orch:   orch,
		hub:    hub,
		logger: logger,
	}
}

// Router builds the route table with the standard middleware chain
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(LoggingMiddleware(s.logger))
	r.Use(CORSMiddleware())
	r.Use(RecoveryMiddleware(s.logger))

	r.HandleFunc("/download", s.HandleDownload).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/convert", s.HandleConvert).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/status/{id}", s.HandleStatus).Methods(http.MethodGet)
	r.HandleFunc("/streams/{id}", s.HandleStreams).Methods(http.MethodGet)
	r.HandleFunc("/jobs", s.HandleListJobs).Methods(http.MethodGet)
	r.HandleFunc("/hls/{id}/{file}", s.HandleArtifact).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.HandleWS).Methods(http.MethodGet)
	r.HandleFunc("/health", s.HandleHealth).Methods(http.MethodGet)

	return r
}

// HandleDownload handles POST /download
func (s *Server) HandleDownload(w http.ResponseWriter, r *http.Request) {
	var req DownloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.URL == "" {
		s.sendError(w, http.StatusBadRequest, "No URL provided")
		return
	}

	taskID, err := s.orch.CreateJob(r.Context(), req.URL)
	if err != nil {
		if errors.Is(err, orchestrator.ErrInvalidURL) {
			s.sendError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("job creation failed", zap.String("url", req.URL), zap.Error(err))
		s.sendError(w, http.StatusInternalServerError, "Failed to create task")
		return
	}

	s.sendJSON(w, http.StatusOK, DownloadResponse{TaskID: taskID})
}

// HandleConvert handles POST /convert
func (s *Server) HandleConvert(w http.ResponseWriter, r *http.Request) {
	var req ConvertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.TaskID == "" {
		s.sendError(w, http.StatusBadRequest, "No task ID provided")
		return
	}

	err := s.orch.SubmitSelection(r.Context(), req.TaskID, req.SelectedStreams, req.TotalStreamCounts)
	switch {
	case errors.Is(err, store.ErrJobNotFound):
		s.sendError(w, http.StatusNotFound, "Task not found")
	case errors.Is(err, store.ErrWrongState):
		s.sendError(w, http.StatusBadRequest, "Task not ready for conversion")
	case err != nil:
		s.logger.Error("conversion submit failed", zap.String("task_id", req.TaskID), zap.Error(err))
		s.sendError(w, http.StatusInternalServerError, "Failed to start conversion")
	default:
		s.sendJSON(w, http.StatusOK, ConvertResponse{Success: true})
	}
}

// HandleStatus handles GET /status/{id}
func (s *Server) HandleStatus(w http.ResponseWriter, r *http.Request) {
	taskID := mux.Vars(r)["id"]

	status, err := s.orch.GetStatus(r.Context(), taskID)
	if err != nil {
		s.sendError(w, http.StatusNotFound, "Task not found")
		return
	}

	s.sendJSON(w, http.StatusOK, status)
}

// HandleStreams handles GET /streams/{id}
func (s *Server) HandleStreams(w http.ResponseWriter, r *http.Request) {
	taskID := mux.Vars(r)["id"]

	streams, err := s.orch.GetStreams(r.Context(), taskID)
	switch {
	case errors.Is(err, orchestrator.ErrStreamsNotReady):
		s.sendError(w, http.StatusNotFound, "Stream information not available")
	case err != nil:
		s.sendError(w, http.StatusNotFound, "Task not found")
	default:
		s.sendJSON(w, http.StatusOK, streams)
	}
}

// HandleListJobs handles GET /jobs with optional status and limit filters
func (s *Server) HandleListJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var statuses []schemas.JobState
	if v := q.Get("status"); v != "" {
		state := schemas.JobState(v)
		if !state.Valid() {
			s.sendError(w, http.StatusBadRequest, "Unknown status filter")
			return
		}
		statuses = append(statuses, state)
	}

	jobs, err := s.orch.ListJobs(r.Context(), statuses)
	if err != nil {
		s.logger.Error("job listing failed", zap.Error(err))
		s.sendError(w, http.StatusInternalServerError, "Failed to list tasks")
		return
	}

	if v := q.Get("limit"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil && limit > 0 && limit < len(jobs) {
			jobs = jobs[:limit]
		}
	}

	s.sendJSON(w, http.StatusOK, jobs)
}

// HandleArtifact handles GET /hls/{id}/{file}, serving playlists and
// segments from the job's output directory
func (s *Server) HandleArtifact(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	taskID, name := vars["id"], vars["file"]

	if !safePathComponent(taskID) || !safePathComponent(name) {
		s.sendError(w, http.StatusNotFound, "Artifact not found")
		return
	}

	path := filepath.Join(s.orch.OutputPath(taskID), name)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		s.sendError(w, http.StatusNotFound, "Artifact not found")
		return
	}

	if ct := artifactContentType(name); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	http.ServeFile(w, r, path)
}

// HandleWS handles GET /ws, upgrading the connection onto the event hub
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	ws.ServeWS(s.hub, w, r)
}

// HandleHealth handles GET /health
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status": "healthy",
		"time":   time.Now(),
	}

	s.sendJSON(w, http.StatusOK, health)
}

func (s *Server) sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) sendError(w http.ResponseWriter, status int, message string) {
	s.sendJSON(w, status, ErrorResponse{Error: message})
}

// safePathComponent rejects names that could address anything outside a
// single directory level
func safePathComponent(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`)
}

// artifactContentType maps HLS artifact extensions to media types the
// platform mime table may not know
func artifactContentType(name string) string {
	switch filepath.Ext(name) {
	case ".m3u8":
		return "application/vnd.apple.mpegurl"
	case ".ts":
		return "video/mp2t"
	case ".vtt":
		return "text/vtt"
	default:
		return ""
	}
}

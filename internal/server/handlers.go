package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"strmhook/internal/history"
	"strmhook/internal/logging"
	"strmhook/internal/services"
)

const (
	maxBodyBytes        = 1 << 20
	defaultHistoryLimit = 20
	maxHistoryLimit     = 1000
	runIDHeader         = "X-Run-ID"
)

// directoryRequest accepts the field names CloudSaver and similar tools send.
type directoryRequest struct {
	Path       string `json:"path"`
	FullPath   string `json:"full_path"`
	FolderName string `json:"folder_name"`
	SavePath   string `json:"savepath"`
}

func (r directoryRequest) target() string {
	for _, candidate := range []string{r.Path, r.FullPath, r.FolderName, r.SavePath} {
		if trimmed := strings.TrimSpace(candidate); trimmed != "" {
			if !strings.HasPrefix(trimmed, "/") {
				trimmed = "/" + trimmed
			}
			return trimmed
		}
	}
	return ""
}

type directRequest struct {
	Files []string `json:"files"`
}

type historyResponse struct {
	Runs []history.Run `json:"runs"`
}

func (s *Server) handleDirectory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req directoryRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	target := req.target()
	if target == "" {
		s.rejectRequest(w, r, "missing path")
		return
	}

	result, err := s.gen.FromDirectory(r.Context(), target)
	if result.RunID != "" {
		w.Header().Set(runIDHeader, result.RunID)
	}
	if err != nil {
		writeError(w, services.HTTPStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleDirect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req directRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if len(req.Files) == 0 {
		s.rejectRequest(w, r, "missing files")
		return
	}
	for i, file := range req.Files {
		if strings.TrimSpace(file) == "" {
			s.rejectRequest(w, r, fmt.Sprintf("files[%d] is blank", i))
			return
		}
	}

	result := s.gen.FromFiles(r.Context(), req.Files)
	if result.RunID != "" {
		w.Header().Set(runIDHeader, result.RunID)
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, s.cfg.Snapshot())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.history == nil {
		writeError(w, http.StatusNotFound, "history is disabled")
		return
	}
	limit := defaultHistoryLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(parsed, maxHistoryLimit)
	}
	runs, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("history query failed", logging.Error(err))
		writeError(w, http.StatusInternalServerError, "history unavailable")
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{Runs: runs})
}

// decodeBody reads a size-capped JSON body into dst, answering the request
// itself when the body is unusable.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		s.rejectRequest(w, r, "invalid JSON body")
		return false
	}
	return true
}

func (s *Server) rejectRequest(w http.ResponseWriter, r *http.Request, message string) {
	s.logger.Warn("webhook request rejected",
		logging.String("route", r.URL.Path),
		logging.String("reason", message),
		logging.String(logging.FieldEventType, "bad_request"),
		logging.String(logging.FieldErrorHint, "send a JSON body with path or files"),
	)
	writeError(w, http.StatusBadRequest, message)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"prismabox-scraper/internal/domain"
	"prismabox-scraper/internal/domain/model"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"success": false, "error": msg})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	env := "production"
	if s.dev {
		env = "development"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"service":     "prismabox-scraper",
		"environment": env,
		"uptime":      int(time.Since(s.started).Seconds()),
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	})
}

type startRequest struct {
	CallbackURL string `json:"callbackUrl"`
}

type startResponse struct {
	Success   bool   `json:"success"`
	JobID     string `json:"jobId"`
	Message   string `json:"message"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

func (s *Server) startHandler(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.CallbackURL == "" {
		writeError(w, http.StatusBadRequest, "callbackUrl is required")
		return
	}

	job, err := s.scrapingUC.Submit(r.Context(), req.CallbackURL)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCallbackURL) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.log.Error().Err(err).Msg("job submission failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, startResponse{
		Success:   true,
		JobID:     job.ID,
		Message:   "scraping job accepted",
		Status:    string(job.Status),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	view, err := s.scrapingUC.Status(jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		s.log.Error().Str("job_id", jobID).Err(err).Msg("status lookup failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "job": view})
}

func (s *Server) cancelHandler(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	if err := s.scrapingUC.Cancel(jobID); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "job not found")
		case errors.Is(err, domain.ErrJobFinalized):
			writeError(w, http.StatusConflict, "job already finished")
		default:
			s.log.Error().Str("job_id", jobID).Err(err).Msg("cancel failed")
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "job cancelled",
		"jobId":   jobID,
	})
}

func (s *Server) listJobsHandler(w http.ResponseWriter, r *http.Request) {
	jobs := s.scrapingUC.List()
	if jobs == nil {
		jobs = []*model.JobView{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"jobs":    jobs,
		"total":   len(jobs),
	})
}

func (s *Server) activeWorkersHandler(w http.ResponseWriter, r *http.Request) {
	workers := s.scrapingUC.ActiveWorkers()
	if workers == nil {
		workers = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"activeWorkers": workers,
		"count":         len(workers),
	})
}

func (s *Server) sessionLoginHandler(w http.ResponseWriter, r *http.Request) {
	if s.apiKey == "" || s.auth == nil {
		writeError(w, http.StatusServiceUnavailable, "admin API is not configured")
		return
	}
	if bearerToken(r) != s.apiKey {
		writeError(w, http.StatusUnauthorized, "invalid API key")
		return
	}

	token, err := s.auth.Mint(w)
	if err != nil {
		s.log.Error().Err(err).Msg("could not mint admin session")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "token": token})
}

func (s *Server) sessionLogoutHandler(w http.ResponseWriter, r *http.Request) {
	if s.auth != nil {
		s.auth.Clear(w)
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "session cleared"})
}

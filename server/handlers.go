package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jacokyle01/live-analysis/engine"
)

type startRequest struct {
	FEN string `json:"fen"`
}

type threadsRequest struct {
	Threads int `json:"threads"`
}

type multiPVRequest struct {
	MultiPV int `json:"multipv"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	cycle, err := s.svc.StartEvaluation(r.Context(), req.FEN)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, map[string]string{"cycle": cycle})
}

func (s *Server) handleGetEvaluation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ev, ok, err := s.svc.GetEvaluation(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, ev)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := s.svc.StopEvaluation(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleThreads(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req threadsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	n, err := s.svc.SetThreads(req.Threads)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, threadsRequest{Threads: n})
}

func (s *Server) handleMultiPV(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req multiPVRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if err := s.svc.SetMultiPV(req.MultiPV); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, req)
}

func (s *Server) handleRespawn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := s.svc.Respawn(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, s.svc.Status())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, s.svc.Status())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.svc.Status().State == engine.Failed.String() {
		http.Error(w, "engine unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, engine.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, engine.ErrNotEvaluating), errors.Is(err, engine.ErrBusy):
		status = http.StatusConflict
	case errors.Is(err, engine.ErrTimeout):
		status = http.StatusGatewayTimeout
	case errors.Is(err, engine.ErrEngineUnavailable):
		status = http.StatusServiceUnavailable
	}

	if status >= http.StatusInternalServerError {
		s.log.Error().Err(err).Int("status", status).Msg("request failed")
	} else {
		s.log.Debug().Err(err).Int("status", status).Msg("request rejected")
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

package server

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"
)

// handleHealth reports liveness plus collaborator readiness. An unreachable
// judge degrades the report but never fails it, so orchestrators don't
// restart the engine over someone else's outage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	judgeStatus := map[string]interface{}{"mode": string(s.cfg.JudgeMode)}
	if s.judgeProbe != nil {
		healthy, lastError, lastProbe := s.judgeProbe.Status()
		judgeStatus["healthy"] = healthy
		if !lastProbe.IsZero() {
			judgeStatus["last_probe"] = lastProbe.Format(time.RFC3339)
		}
		if lastError != "" {
			judgeStatus["error"] = lastError
			status = "degraded"
		}
	}

	if err := s.db.IntegrityCheck(); err != nil {
		status = "degraded"
		judgeStatus["database_error"] = err.Error()
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  status,
		"service": "robo-trader",
		"version": "1.0.0",
		"judge":   judgeStatus,
	})
}

// handleSystemStatus handles system status requests
func (s *Server) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	response := map[string]interface{}{
		"status":     "running",
		"judge_mode": string(s.cfg.JudgeMode),
		"memory": map[string]interface{}{
			"alloc_mb":       m.Alloc / 1024 / 1024,
			"total_alloc_mb": m.TotalAlloc / 1024 / 1024,
			"sys_mb":         m.Sys / 1024 / 1024,
			"num_gc":         m.NumGC,
		},
		"goroutines": runtime.NumGoroutine(),
	}

	if s.sched != nil {
		response["jobs"] = s.sched.Jobs()
	}

	s.writeJSON(w, http.StatusOK, response)
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

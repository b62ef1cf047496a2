package api

import (
	"net/http"
	"time"
)

type circuitStatus struct {
	Open       bool       `json:"open"`
	UnlockTime *time.Time `json:"unlockTime,omitempty"`
}

type callWindowStatus struct {
	Count     int       `json:"count"`
	StartTime time.Time `json:"startTime"`
}

// handleHealth reports the protection layer state and the badge schedule
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status": "ok",
	}

	if s.deps.Breaker != nil {
		circuit := circuitStatus{}
		if unlock, ok := s.deps.Breaker.UnlockTime(r.Context()); ok {
			circuit.Open = s.deps.Clock.Now().Before(unlock)
			circuit.UnlockTime = &unlock
		}
		status["circuit"] = circuit
		if circuit.Open {
			status["status"] = "degraded"
		}
	}

	if s.deps.Tracker != nil {
		if stats, found, err := s.deps.Tracker.Stats(r.Context()); err == nil && found {
			status["calls"] = callWindowStatus{Count: stats.Count, StartTime: time.UnixMilli(stats.StartTime)}
		}
	}

	if s.deps.Scheduler != nil {
		status["alarm"] = s.deps.Scheduler.State()
	}

	if s.deps.Watchlist != nil {
		if snap, ok := s.deps.Watchlist.Snapshot(); ok {
			status["watchlistUpdatedAt"] = snap.UpdatedAt
		}
	}

	s.sendJSONResponse(w, status)
}

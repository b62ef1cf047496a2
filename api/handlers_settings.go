package api

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/cryptoview/pricewatch/settings"
)

type addCoinRequest struct {
	Symbol string `json:"symbol"`
	CoinID string `json:"coinId"`
	Name   string `json:"name"`
}

type pinRequest struct {
	Symbol string `json:"symbol"`
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	current, err := s.deps.Settings.Load(r.Context())
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	s.sendJSONResponse(w, current)
}

// handlePutSettings replaces the whole settings record
func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var next settings.Settings
	if err := decodeBody(r, &next); err != nil {
		s.sendError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	if err := s.deps.Settings.Save(r.Context(), next); err != nil {
		s.sendError(w, r, err)
		return
	}

	saved, err := s.deps.Settings.Load(r.Context())
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	s.sendJSONResponse(w, saved)
}

func (s *Server) handleAddCoin(w http.ResponseWriter, r *http.Request) {
	var req addCoinRequest
	if err := decodeBody(r, &req); err != nil {
		s.sendError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	updated, added, err := s.deps.Settings.AddCoin(r.Context(), req.Symbol, req.CoinID, req.Name)
	if err != nil {
		s.sendError(w, r, err)
		return
	}

	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	s.sendJSONStatus(w, status, updated)
}

func (s *Server) handleRemoveCoin(w http.ResponseWriter, r *http.Request) {
	updated, err := s.deps.Settings.RemoveCoin(r.Context(), mux.Vars(r)["symbol"])
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	s.sendJSONResponse(w, updated)
}

// handlePin sets the badge coin; an empty symbol unpins
func (s *Server) handlePin(w http.ResponseWriter, r *http.Request) {
	var req pinRequest
	if err := decodeBody(r, &req); err != nil {
		s.sendError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	updated, err := s.deps.Settings.Pin(r.Context(), req.Symbol)
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	s.sendJSONResponse(w, updated)
}

package api

import (
	"fmt"
	"net/http"
)

type feedbackRequest struct {
	Content string `json:"content"`
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	if s.deps.Feedback == nil {
		s.sendError(w, r, fmt.Errorf("%w: feedback disabled", errUnavailable))
		return
	}

	var req feedbackRequest
	if err := decodeBody(r, &req); err != nil {
		s.sendError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	receipt, err := s.deps.Feedback.Submit(r.Context(), req.Content)
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	s.sendJSONStatus(w, http.StatusCreated, receipt)
}

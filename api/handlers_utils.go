package api

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	cg "github.com/cryptoview/pricewatch/coingecko_common"
	"github.com/cryptoview/pricewatch/feedback"
	"github.com/cryptoview/pricewatch/settings"
)

// errorResponse is the body of every failed request
type errorResponse struct {
	Error          string `json:"error"`
	Message        string `json:"message"`
	Retryable      bool   `json:"retryable"`
	UpstreamStatus int    `json:"upstreamStatus,omitempty"`
}

// sendJSONResponse is a common wrapper for JSON responses that sets Content-Type,
// Content-Length and ETag headers
func (s *Server) sendJSONResponse(w http.ResponseWriter, data interface{}) {
	s.sendJSONStatus(w, http.StatusOK, data)
}

func (s *Server) sendJSONStatus(w http.ResponseWriter, status int, data interface{}) {
	responseBytes, err := json.Marshal(data)
	if err != nil {
		http.Error(w, "Error encoding response", http.StatusInternalServerError)
		return
	}

	hash := md5.Sum(responseBytes)
	etag := hex.EncodeToString(hash[:])

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(responseBytes)))
	w.Header().Set("ETag", "\""+etag+"\"")
	w.WriteHeader(status)

	if _, err := w.Write(responseBytes); err != nil {
		s.logger.Warn("error writing response", zap.Error(err))
	}
}

// sendError maps err to a status code and writes the error body
func (s *Server) sendError(w http.ResponseWriter, r *http.Request, err error) {
	resp := errorResponse{Message: err.Error()}
	status := http.StatusInternalServerError

	var apiErr *cg.APIError
	var tooFrequent *feedback.TooFrequentError

	switch {
	case errors.As(err, &apiErr):
		resp.Error = string(apiErr.Kind)
		resp.Retryable = cg.Retryable(err)
		switch apiErr.Kind {
		case cg.KindAPILocked:
			status = http.StatusServiceUnavailable
			w.Header().Set("Retry-After", strconv.Itoa(s.retryAfterSeconds(r)))
		case cg.KindRateLimit:
			status = http.StatusTooManyRequests
		case cg.KindTimeout:
			status = http.StatusGatewayTimeout
		case cg.KindHTTP:
			status = http.StatusBadGateway
			resp.UpstreamStatus = apiErr.Status
		default:
			status = http.StatusBadGateway
		}
	case errors.As(err, &tooFrequent):
		status = http.StatusTooManyRequests
		resp.Error = "too_frequent"
		resp.Retryable = true
		w.Header().Set("Retry-After", strconv.Itoa(tooFrequent.RemainingSeconds))
	case errors.Is(err, feedback.ErrEmptyFeedback), errors.Is(err, settings.ErrInvalidSymbol),
		errors.Is(err, settings.ErrInvalidSettings), errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
		resp.Error = "bad_request"
	case errors.Is(err, settings.ErrCoinNotSelected):
		status = http.StatusNotFound
		resp.Error = "not_found"
	case errors.Is(err, feedback.ErrNotConfigured), errors.Is(err, errUnavailable):
		status = http.StatusServiceUnavailable
		resp.Error = "unavailable"
	default:
		resp.Error = "internal"
		s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}

	s.sendJSONStatus(w, status, resp)
}

// retryAfterSeconds is the time left on the circuit breaker, at least one second
func (s *Server) retryAfterSeconds(r *http.Request) int {
	if s.deps.Breaker == nil {
		return 60
	}
	unlock, ok := s.deps.Breaker.UnlockTime(r.Context())
	if !ok {
		return 1
	}
	remaining := int(math.Ceil(unlock.Sub(s.deps.Clock.Now()).Seconds()))
	if remaining < 1 {
		remaining = 1
	}
	return remaining
}

var (
	errBadRequest  = errors.New("bad request")
	errUnavailable = errors.New("service unavailable")
)

func getParamLowercase(r *http.Request, key string) string {
	if r == nil {
		return ""
	}
	value := r.URL.Query().Get(key)
	if value != "" {
		return strings.ToLower(value)
	}
	return ""
}

func splitParamLowercase(param string) []string {
	if param == "" {
		return []string{}
	}

	parts := strings.Split(param, ",")
	result := []string{}
	for _, part := range parts {
		trimmed := strings.ToLower(strings.TrimSpace(part))
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

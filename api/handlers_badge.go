package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPongTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the API only listens for local clients such as the browser extension
	CheckOrigin: func(r *http.Request) bool { return true },
}

type refreshResponse struct {
	Outcome string      `json:"outcome"`
	CoinID  string      `json:"coinId,omitempty"`
	Badge   interface{} `json:"badge"`
	Error   string      `json:"error,omitempty"`
}

func (s *Server) handleGetBadge(w http.ResponseWriter, r *http.Request) {
	if s.deps.Badge == nil {
		s.sendError(w, r, fmt.Errorf("%w: badge disabled", errUnavailable))
		return
	}
	current, err := s.deps.Badge.Current(r.Context())
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	s.sendJSONResponse(w, current)
}

// handleRefreshBadge runs the badge refresh routine once
func (s *Server) handleRefreshBadge(w http.ResponseWriter, r *http.Request) {
	if s.deps.Refresher == nil {
		s.sendError(w, r, fmt.Errorf("%w: badge disabled", errUnavailable))
		return
	}
	res := s.deps.Refresher.Refresh(r.Context())
	resp := refreshResponse{Outcome: string(res.Outcome), CoinID: res.CoinID, Badge: res.Badge}
	if res.Err != nil {
		resp.Error = res.Err.Error()
	}
	s.sendJSONResponse(w, resp)
}

// handleBadgeStream sends the current badge and then every update over a websocket
func (s *Server) handleBadgeStream(w http.ResponseWriter, r *http.Request) {
	if s.deps.Badge == nil {
		s.sendError(w, r, fmt.Errorf("%w: badge disabled", errUnavailable))
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	sub := s.deps.Badge.Subscribe()
	defer sub.Cancel()

	current, err := s.deps.Badge.Current(r.Context())
	if err != nil {
		s.logger.Warn("failed to read badge for new stream", zap.Error(err))
	} else if err := s.writeJSON(conn, current); err != nil {
		return
	}

	// reader: handles pongs and notices when the client goes away
	closed := make(chan struct{})
	_ = conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					s.logger.Debug("badge stream closed", zap.Error(err))
				}
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-s.ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(wsWriteTimeout))
			return
		case <-closed:
			return
		case b, ok := <-sub.Chan():
			if !ok {
				return
			}
			if err := s.writeJSON(conn, b); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
		}
	}
}

func (s *Server) writeJSON(conn *websocket.Conn, v interface{}) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteJSON(v); err != nil {
		s.logger.Debug("badge stream write failed", zap.Error(err))
		return err
	}
	return nil
}

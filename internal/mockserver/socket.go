// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package mockserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/inkwell-studio/inkwell/internal/backend"
)

// socketIdleTimeout closes a realtime connection that sends nothing.
const socketIdleTimeout = 5 * time.Minute

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The editor is a native client and sends no Origin header.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleSocket serves the realtime channel: ping gets pong, analyze gets
// an analysis frame, anything else gets an error frame. The connection
// stays open across bad frames.
func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("SOCKET_UPGRADE_FAILED", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(MaxRequestBodySize)

	s.metrics.sockets.Inc()
	defer s.metrics.sockets.Dec()
	s.logger.Info("SOCKET_OPEN", "ip", GetClientIP(r))

	for {
		_ = conn.SetReadDeadline(time.Now().Add(socketIdleTimeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("SOCKET_READ_ENDED", "error", err)
			}
			break
		}

		reply := s.socketReply(data)
		if err := conn.WriteJSON(reply); err != nil {
			s.logger.Warn("SOCKET_WRITE_FAILED", "error", err)
			break
		}
	}
	s.logger.Info("SOCKET_CLOSED", "ip", GetClientIP(r))
}

// socketReply answers one frame.
func (s *Server) socketReply(data []byte) backend.Message {
	var msg backend.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return errorFrame("Invalid JSON")
	}

	switch msg.Type {
	case backend.MsgPing:
		return backend.Message{Type: backend.MsgPong}
	case backend.MsgAnalyze:
		if msg.ProjectID == "" || msg.Content == "" {
			return errorFrame("project_id and content are required")
		}
		if s.cfg.Latency > 0 {
			time.Sleep(s.cfg.Latency)
		}
		payload, err := json.Marshal(s.analyze(msg.ProjectID, msg.Content))
		if err != nil {
			return errorFrame("encode analysis: " + err.Error())
		}
		return backend.Message{Type: backend.MsgAnalysis, Payload: payload}
	}
	return errorFrame("Unknown message type: " + msg.Type)
}

func errorFrame(detail string) backend.Message {
	return backend.Message{Type: backend.MsgError, Detail: detail}
}

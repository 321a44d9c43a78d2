// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// =============================================================================
// WEBSOCKET MESSAGES
// =============================================================================

// Message types on the /ws/editor channel.
const (
	MsgPing     = "ping"
	MsgPong     = "pong"
	MsgAnalyze  = "analyze"
	MsgAnalysis = "analysis"
	MsgError    = "error"
)

// SocketPath is the realtime analyze endpoint.
const SocketPath = "/ws/editor"

// Message is one frame on the realtime channel.
type Message struct {
	Type      string          `json:"type"`
	ProjectID string          `json:"project_id,omitempty"`
	Content   string          `json:"content,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Detail    string          `json:"detail,omitempty"`
}

// =============================================================================
// SOCKET
// =============================================================================

// Socket is a connection to the realtime analyze channel. Calls are
// serialized: each request waits for its reply before the next is sent.
type Socket struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	broken bool
}

// SocketURL converts an http(s) base URL to the ws(s) channel URL.
func SocketURL(baseURL string) string {
	u := strings.TrimRight(baseURL, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + SocketPath
}

// Dial connects to the channel and checks it with a ping.
func Dial(ctx context.Context, cfg *Config) (*Socket, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}

	header := http.Header{}
	if cfg.Token != "" {
		header.Set("Authorization", "Bearer "+cfg.Token)
	}
	if cfg.UserAgent != "" {
		header.Set("User-Agent", cfg.UserAgent)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, SocketURL(base), header)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeUnavailable, Message: "websocket dial failed", Cause: err}
	}

	s := &Socket{conn: conn}
	if err := s.Ping(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// Broken reports whether a transport error has made the socket unusable.
func (s *Socket) Broken() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.broken
}

// Ping sends a ping and waits for the pong.
func (s *Socket) Ping(ctx context.Context) error {
	_, err := s.roundTrip(ctx, Message{Type: MsgPing}, MsgPong)
	return err
}

// Analyze sends content for analysis and waits for the result.
func (s *Socket) Analyze(ctx context.Context, project, content string) (*AnalyzeResponse, error) {
	if err := checkInput(project, content); err != nil {
		return nil, err
	}
	msg, err := s.roundTrip(ctx, Message{Type: MsgAnalyze, ProjectID: project, Content: content}, MsgAnalysis)
	if err != nil {
		return nil, err
	}
	var out AnalyzeResponse
	if err := json.Unmarshal(msg.Payload, &out); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode analysis payload", Cause: err}
	}
	return &out, nil
}

// Close closes the connection.
func (s *Socket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broken = true
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return s.conn.Close()
}

// roundTrip writes req and reads frames until one of type want or an
// error frame arrives. Frames of other types are skipped.
func (s *Socket) roundTrip(ctx context.Context, req Message, want string) (*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.broken {
		return nil, &ClientError{Type: ErrTypeUnavailable, Message: "websocket closed"}
	}

	deadline, _ := ctx.Deadline()
	_ = s.conn.SetWriteDeadline(deadline)
	_ = s.conn.SetReadDeadline(deadline)
	stop := context.AfterFunc(ctx, func() {
		// Unblock the read below.
		_ = s.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	if err := s.conn.WriteJSON(req); err != nil {
		s.broken = true
		return nil, s.transportError(ctx, "websocket write failed", err)
	}

	for {
		var msg Message
		if err := s.conn.ReadJSON(&msg); err != nil {
			s.broken = true
			return nil, s.transportError(ctx, "websocket read failed", err)
		}
		switch msg.Type {
		case want:
			return &msg, nil
		case MsgError:
			return nil, &ClientError{Type: ErrTypeServer, Message: msg.Detail}
		}
	}
}

func (s *Socket) transportError(ctx context.Context, msg string, err error) error {
	if ctx.Err() != nil || isTimeout(err) {
		return &ClientError{Type: ErrTypeTimeout, Message: msg, Cause: err}
	}
	return &ClientError{Type: ErrTypeUnavailable, Message: msg, Cause: err}
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wsServer answers ping and analyze frames the way the service does.
func wsServer(t *testing.T, httpAnalyzes *atomic.Int32) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()
	mux.HandleFunc(SocketPath, func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var msg Message
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			switch msg.Type {
			case MsgPing:
				_ = conn.WriteJSON(Message{Type: MsgPong})
			case MsgAnalyze:
				if msg.Content == "fail" {
					_ = conn.WriteJSON(Message{Type: MsgError, Detail: "analysis exploded"})
					continue
				}
				payload, _ := json.Marshal(AnalyzeResponse{Status: "success", ResolvedContext: "ws:" + msg.Content})
				_ = conn.WriteJSON(Message{Type: MsgPong})
				_ = conn.WriteJSON(Message{Type: MsgAnalysis, Payload: payload})
			case "hangup":
				return
			}
		}
	})
	mux.HandleFunc("/editor/analyze", func(w http.ResponseWriter, r *http.Request) {
		httpAnalyzes.Add(1)
		writeJSON(w, http.StatusOK, AnalyzeResponse{Status: "success", ResolvedContext: "http"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestSocketURL(t *testing.T) {
	assert.Equal(t, "ws://127.0.0.1:8000/ws/editor", SocketURL("http://127.0.0.1:8000"))
	assert.Equal(t, "wss://api.example.com/ws/editor", SocketURL("https://api.example.com/"))
}

func TestSocketAnalyze(t *testing.T) {
	var httpCalls atomic.Int32
	srv := wsServer(t, &httpCalls)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sock, err := Dial(ctx, &Config{BaseURL: srv.URL})
	require.NoError(t, err)
	defer sock.Close()

	resp, err := sock.Analyze(ctx, "p1", "hello")
	require.NoError(t, err)
	assert.Equal(t, "ws:hello", resp.ResolvedContext)

	_, err = sock.Analyze(ctx, "p1", "fail")
	assert.ErrorIs(t, err, ErrServer)
	assert.False(t, sock.Broken(), "error frames keep the socket open")

	_, err = sock.Analyze(ctx, "", "x")
	assert.ErrorIs(t, err, ErrMissingProject)
}

func TestDialUnavailable(t *testing.T) {
	_, err := Dial(context.Background(), &Config{BaseURL: "http://127.0.0.1:1"})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestRealtimeFallsBackToHTTP(t *testing.T) {
	var httpCalls atomic.Int32
	srv := wsServer(t, &httpCalls)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cfg := &Config{BaseURL: srv.URL, RequestsPerSecond: 100, Burst: 10}
	sock, err := Dial(ctx, cfg)
	require.NoError(t, err)
	rt := NewRealtime(NewClient(cfg), sock, nil)
	defer rt.Close()

	resp, err := rt.Analyze(ctx, "p1", "over ws")
	require.NoError(t, err)
	assert.Equal(t, "ws:over ws", resp.ResolvedContext)
	assert.True(t, rt.Connected())

	// Service-side errors are not retried over HTTP.
	_, err = rt.Analyze(ctx, "p1", "fail")
	assert.ErrorIs(t, err, ErrServer)
	assert.Zero(t, httpCalls.Load())

	// Kill the socket; the next call goes over HTTP.
	_, _ = sock.roundTrip(ctx, Message{Type: "hangup"}, MsgPong)
	resp, err = rt.Analyze(ctx, "p1", "after hangup")
	require.NoError(t, err)
	assert.Equal(t, "http", resp.ResolvedContext)
	assert.Equal(t, int32(1), httpCalls.Load())
	assert.False(t, rt.Connected())
}

func TestRealtimeWithoutSocket(t *testing.T) {
	var httpCalls atomic.Int32
	srv := wsServer(t, &httpCalls)
	rt := NewRealtime(NewClient(&Config{BaseURL: srv.URL}), nil, nil)

	resp, err := rt.Analyze(context.Background(), "p1", "text")
	require.NoError(t, err)
	assert.Equal(t, "http", resp.ResolvedContext)
	assert.NoError(t, rt.Close())
}

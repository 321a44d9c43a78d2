// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// Realtime is a Client whose Analyze goes over the WebSocket channel when
// it is connected and falls back to HTTP when it is not.
type Realtime struct {
	*Client

	mu     sync.Mutex
	socket *Socket
	logger *slog.Logger
}

// NewRealtime wraps client. socket may be nil.
func NewRealtime(client *Client, socket *Socket, logger *slog.Logger) *Realtime {
	if logger == nil {
		logger = slog.Default()
	}
	return &Realtime{Client: client, socket: socket, logger: logger}
}

// Connected reports whether a live socket is attached.
func (r *Realtime) Connected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.socket != nil && !r.socket.Broken()
}

// Analyze sends content over the socket, or over HTTP when the socket is
// missing or fails in transport. Errors reported by the service itself are
// returned as is.
func (r *Realtime) Analyze(ctx context.Context, project, content string) (*AnalyzeResponse, error) {
	if err := checkInput(project, content); err != nil {
		return nil, err
	}

	r.mu.Lock()
	sock := r.socket
	r.mu.Unlock()

	if sock != nil {
		resp, err := sock.Analyze(ctx, project, content)
		if err == nil {
			return resp, nil
		}
		if errors.Is(err, ErrServer) || ctx.Err() != nil {
			return nil, err
		}
		r.logger.Warn("SOCKET_FALLBACK", "error", err)
		r.drop(sock)
	}
	return r.Client.Analyze(ctx, project, content)
}

// Close closes the socket, if any.
func (r *Realtime) Close() error {
	r.mu.Lock()
	sock := r.socket
	r.socket = nil
	r.mu.Unlock()
	if sock == nil {
		return nil
	}
	return sock.Close()
}

func (r *Realtime) drop(sock *Socket) {
	r.mu.Lock()
	if r.socket == sock {
		r.socket = nil
	}
	r.mu.Unlock()
	_ = sock.Close()
}

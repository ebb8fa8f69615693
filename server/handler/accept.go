package handler

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"

	adapterwebsocket "showdamage/server/adapter/websocket"
	"showdamage/server/domain"
)

// AcceptHandler はホストからのwebsocket接続を受け付け、接続ごとにセッションを起動します。
type AcceptHandler struct {
	factory domain.ApplicationFactory
	cfg     domain.EndpointConfig

	mu        sync.Mutex
	endpoints map[domain.SessionID]*domain.SessionEndpoint
}

func NewAcceptHandler(factory domain.ApplicationFactory, cfg domain.EndpointConfig) *AcceptHandler {
	return &AcceptHandler{
		factory:   factory,
		cfg:       cfg,
		endpoints: make(map[domain.SessionID]*domain.SessionEndpoint),
	}
}

func (h *AcceptHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // ホストはローカルのゲームサーバー: Origin チェックをスキップ
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to accept", "err", err)
		return
	}

	session := domain.NewSession()
	transport := adapterwebsocket.NewTransportFrom(conn)
	connection := domain.NewConnection(session.ID(), transport)
	endpoint, err := domain.NewSessionEndpoint(session, connection, h.factory, h.cfg)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create session endpoint", "err", err)
		conn.Close(websocket.StatusInternalError, "initialization failed")
		return
	}

	h.track(session.ID(), endpoint)
	defer h.untrack(session.ID())

	slog.InfoContext(ctx, "host connected", "sessionID", session.ID(), "remote", r.RemoteAddr)
	if err := endpoint.Run(); err != nil {
		slog.ErrorContext(ctx, "failed to run session endpoint", "sessionID", session.ID(), "err", err)
		return
	}
	slog.InfoContext(ctx, "host disconnected", "sessionID", session.ID())
}

func (h *AcceptHandler) track(id domain.SessionID, se *domain.SessionEndpoint) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.endpoints[id] = se
}

func (h *AcceptHandler) untrack(id domain.SessionID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.endpoints, id)
}

// Active は接続中のホスト数を返します。
func (h *AcceptHandler) Active() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.endpoints)
}

// CloseAll はすべてのセッションに終了を要求します。http.Server.Shutdown はハイジャック済みの接続を閉じないため、シャットダウン時に呼びます。
func (h *AcceptHandler) CloseAll(ctx context.Context) {
	h.mu.Lock()
	endpoints := make([]*domain.SessionEndpoint, 0, len(h.endpoints))
	for _, se := range h.endpoints {
		endpoints = append(endpoints, se)
	}
	h.mu.Unlock()

	for _, se := range endpoints {
		se.Close(ctx)
	}
}

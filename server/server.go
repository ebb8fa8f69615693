package server

import (
	"context"
	"net/http"

	"showdamage/server/domain"
	"showdamage/server/handler"
)

// Server はホスト向けの HTTP/websocket サーバーです。
type Server struct {
	HTTP   *http.Server
	accept *handler.AcceptHandler
}

func NewServer(addr string, factory domain.ApplicationFactory, cfg domain.EndpointConfig) *Server {
	accept := handler.NewAcceptHandler(factory, cfg)
	return &Server{
		HTTP: &http.Server{
			Addr:    addr,
			Handler: Route(accept),
		},
		accept: accept,
	}
}

func (s *Server) Serve() error { return s.HTTP.ListenAndServe() }

// Shutdown はホストのセッションに終了を通知してから HTTP サーバーを止めます。
func (s *Server) Shutdown(ctx context.Context) error {
	s.accept.CloseAll(ctx)
	return s.HTTP.Shutdown(ctx)
}

func (s *Server) Close() error { return s.HTTP.Close() }

func (s *Server) Addr() string { return s.HTTP.Addr }

// Hosts は接続中のホスト数です。
func (s *Server) Hosts() int { return s.accept.Active() }

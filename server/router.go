package server

import (
	"net/http"

	"showdamage/server/handler"
)

func Route(accept *handler.AcceptHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/ws", accept)
	mux.Handle("GET /health", handler.NewHealthHandler(accept.Active))
	return mux
}

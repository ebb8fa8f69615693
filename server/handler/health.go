package handler

import (
	"fmt"
	"net/http"
)

// NewHealthHandler は常に200を返します。active が与えられれば接続中のホスト数を本文に書きます。
func NewHealthHandler(active func() int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if active != nil {
			fmt.Fprintf(w, "hosts=%d\n", active())
		}
	}
}

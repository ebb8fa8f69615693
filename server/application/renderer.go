package application

import (
	"log/slog"

	"showdamage/engine"
	"showdamage/server/domain"
)

// hostRenderer は描画要求を Render メッセージとしてホストへ送ります。
// 送信キューが満杯のときはそのフレームを捨てます。表示中の通知は毎 tick 描画されます。
type hostRenderer struct {
	sessionID domain.SessionID
	sender    domain.Sender
	seq       uint16
	dropped   uint64
}

var _ engine.Renderer = (*hostRenderer)(nil)

func newHostRenderer(sessionID domain.SessionID, sender domain.Sender) *hostRenderer {
	return &hostRenderer{sessionID: sessionID, sender: sender}
}

func (r *hostRenderer) RenderText(player engine.PlayerID, markup string) {
	r.seq++
	body := (&domain.TextPayload{Player: uint32(player), Text: markup}).Encode()
	msg := domain.EncodeMessage(r.sessionID, r.seq, domain.DataTypeRender, uint8(domain.RenderSubTypeText), body)
	if err := r.sender.Send(msg); err != nil {
		r.dropped++
		slog.Debug("render dropped", "sessionID", r.sessionID, "player", player, "dropped", r.dropped, "err", err)
	}
}

package domain

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// HeartbeatService は定期的にpingメッセージをホストへ送信する死活監視サービスです。
type HeartbeatService struct {
	pingInterval time.Duration
	session      *Session
	sender       Sender

	seq     uint16
	dropped atomic.Uint64
}

// NewHeartbeatService は新しいHeartbeatServiceを生成します。
func NewHeartbeatService(pingInterval time.Duration, session *Session, sender Sender) *HeartbeatService {
	return &HeartbeatService{
		pingInterval: pingInterval,
		session:      session,
		sender:       sender,
	}
}

// Run はpingInterval間隔でpingメッセージを送信します。
// 送信キューが満杯のときはpingを捨てます。ctxがキャンセルされると終了します。
func (h *HeartbeatService) Run(ctx context.Context) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.seq++
			if err := h.sender.Send(EncodePingMessage(h.session.ID(), h.seq)); err != nil {
				h.dropped.Add(1)
				slog.WarnContext(ctx, "heartbeat: ping dropped", "sessionID", h.session.ID(), "err", err)
				continue
			}
			slog.DebugContext(ctx, "heartbeat: ping sent", "sessionID", h.session.ID(), "seq", h.seq)
		}
	}
}

// Dropped は送信できなかったpingの数を返します。
func (h *HeartbeatService) Dropped() uint64 { return h.dropped.Load() }

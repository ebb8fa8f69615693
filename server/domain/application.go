package domain

import (
	"context"
	"time"
)

// Application はホストから届いたイベントとコマンドを処理します。
// HandleFrame と Tick はセッションごとの単一ゴルーチンから呼ばれます。
type Application interface {
	HandleFrame(ctx context.Context, frame *Frame) error
	Tick(ctx context.Context, now time.Time)
}

// Sender はホストへメッセージを送ります。満杯時はブロックせずにエラーを返します。
type Sender interface {
	Send(data []byte) error
}

// ApplicationFactory はセッションごとに Application を生成します。
type ApplicationFactory func(session *Session, sender Sender) (Application, error)

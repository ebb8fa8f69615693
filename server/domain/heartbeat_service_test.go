package domain_test

import (
	"context"
	"testing"
	"time"

	domain "showdamage/server/domain"
)

type chanSender struct {
	ch chan []byte
}

func (s *chanSender) Send(data []byte) error {
	select {
	case s.ch <- data:
		return nil
	default:
		return domain.ErrBackpressure
	}
}

func TestHeartbeatService_SendsPing(t *testing.T) {
	session := domain.NewSession()
	sender := &chanSender{ch: make(chan []byte, 16)}

	hb := domain.NewHeartbeatService(50*time.Millisecond, session, sender)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	go hb.Run(ctx)

	// 少なくとも1つのpingが送信されることを確認
	select {
	case msg := <-sender.ch:
		frame, err := domain.ParseFrame(msg)
		if err != nil {
			t.Fatalf("ParseFrame failed: %v", err)
		}
		if frame.Payload.DataType != domain.DataTypeControl || domain.ControlSubType(frame.Payload.SubType) != domain.ControlSubTypePing {
			t.Errorf("payload = %+v, want control/ping", frame.Payload)
		}
		if frame.Header.SessionID != session.ID().Bytes() {
			t.Error("ping carries a foreign session id")
		}
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for ping message")
	}
}

func TestHeartbeatService_StopsOnContextCancel(t *testing.T) {
	session := domain.NewSession()
	sender := &chanSender{ch: make(chan []byte, 16)}

	hb := domain.NewHeartbeatService(50*time.Millisecond, session, sender)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		hb.Run(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
		// 正常終了
	case <-time.After(1 * time.Second):
		t.Fatal("HeartbeatService did not stop after context cancel")
	}
}

func TestHeartbeatService_DropsWhenSenderFull(t *testing.T) {
	session := domain.NewSession()
	// バッファサイズ0で常に満杯になるようにする
	sender := &chanSender{ch: make(chan []byte)}

	hb := domain.NewHeartbeatService(20*time.Millisecond, session, sender)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		hb.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("HeartbeatService blocked on a full sender")
	}
	if hb.Dropped() == 0 {
		t.Error("Dropped() = 0, want dropped pings")
	}
}

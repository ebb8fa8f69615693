package domain

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// SessionID はホスト接続ごとに払い出される識別子です。
type SessionID uuid.UUID

func NewSessionID() SessionID { return SessionID(uuid.New()) }

func SessionIDFromBytes(b [16]byte) SessionID { return SessionID(b) }

func (id SessionID) Bytes() [16]byte { return id }

func (id SessionID) String() string { return uuid.UUID(id).String() }

func (id SessionID) IsEmpty() bool { return id == SessionID{} }

// Session は1つのホスト接続の論理的な状態を表す構造体です。
type Session struct {
	id  SessionID
	now func() time.Time

	// activity
	lastRead  atomic.Int64
	lastWrite atomic.Int64
	lastPong  atomic.Int64

	// lifecycle
	closed atomic.Bool
}

type SessionOption func(*Session)

// WithClock はテスト用に時刻の取得元を差し替えます。
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

func NewSession(opts ...SessionOption) *Session {
	s := &Session{id: NewSessionID(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	now := s.now().UnixNano()
	s.lastRead.Store(now)
	s.lastWrite.Store(now)
	s.lastPong.Store(now)
	return s
}

func (s *Session) ID() SessionID { return s.id }

func (s *Session) TouchRead()  { s.lastRead.Store(s.now().UnixNano()) }
func (s *Session) TouchWrite() { s.lastWrite.Store(s.now().UnixNano()) }
func (s *Session) TouchPong()  { s.lastPong.Store(s.now().UnixNano()) }

// Close はセッションを閉じます。最初の呼び出しのみ true を返します。
func (s *Session) Close() bool {
	return s.closed.CompareAndSwap(false, true)
}

func (s *Session) IsClosed() bool { return s.closed.Load() }

// IsIdle は timeout を超えて読み込みまたはpongが途絶えているかを返します。
// 書き込みはサーバー側の描画で常に発生するため判定に含めません。
func (s *Session) IsIdle(timeout time.Duration) (bool, IdleReason) {
	if timeout <= 0 {
		return false, IdleDisabled
	}
	var reason IdleReason
	if s.since(&s.lastRead) > timeout {
		reason |= IdleRead
	}
	if s.since(&s.lastPong) > timeout {
		reason |= IdlePong
	}
	return reason != IdleNone, reason
}

func (s *Session) since(v *atomic.Int64) time.Duration {
	return s.now().Sub(time.Unix(0, v.Load()))
}

type IdleReason uint8

const (
	IdleNone     IdleReason = 0
	IdleRead     IdleReason = 1 << 0
	IdlePong     IdleReason = 1 << 2
	IdleDisabled IdleReason = 1 << 7 // timeout<=0 のとき
)

func (r IdleReason) Has(x IdleReason) bool { return r&x != 0 }

func (r IdleReason) String() string {
	switch {
	case r == IdleNone:
		return "none"
	case r == IdleDisabled:
		return "disabled"
	case r.Has(IdleRead) && r.Has(IdlePong):
		return "read|pong"
	case r.Has(IdleRead):
		return "read"
	case r.Has(IdlePong):
		return "pong"
	}
	return fmt.Sprintf("unknown(%d)", r)
}

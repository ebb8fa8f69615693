package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"showdamage/internal/handler"
)

var (
	// ErrBackpressure は書き込みチャネルが満杯の場合に返されるエラーです。
	ErrBackpressure = errors.New("write channel is full, apply backpressure")
	// ErrInitializationFailed はセッションエンドポイントの初期化に失敗した場合に返されるエラーです。
	ErrInitializationFailed = errors.New("failed to initialize session endpoint")
	// ErrUnexpectedRequest はループに想定外のリクエストが投入された場合に返されるエラーです。
	ErrUnexpectedRequest = errors.New("unexpected loop request")
)

// EndpointConfig はセッションエンドポイントの動作設定です。
type EndpointConfig struct {
	TickInterval time.Duration
	PingInterval time.Duration
	IdleTimeout  time.Duration
	QueueSize    int
}

func DefaultEndpointConfig() EndpointConfig {
	return EndpointConfig{
		TickInterval: time.Second / 64,
		PingInterval: 5 * time.Second,
		IdleTimeout:  30 * time.Second,
		QueueSize:    1024,
	}
}

// SessionEndpoint は1つのホスト接続を担当します。
// 受信したイベントはセッション専用のループへ順番に渡され、Application はそのループ上でのみ動きます。
type SessionEndpoint struct {
	ctx    context.Context
	cancel context.CancelFunc

	session    *Session
	connection *Connection
	loop       *handler.Loop
	heartbeat  *HeartbeatService
	cfg        EndpointConfig

	ctrlCh  chan endpointEvent // 制御用チャネル
	writeCh chan []byte        // 書き込み用チャネル

	// lifecycle
	closed atomic.Bool
}

var _ Sender = (*SessionEndpoint)(nil)

func NewSessionEndpoint(session *Session, connection *Connection, factory ApplicationFactory, cfg EndpointConfig) (*SessionEndpoint, error) {
	if session == nil || connection == nil || factory == nil {
		return nil, ErrInitializationFailed
	}
	ctx, cancel := context.WithCancel(context.Background())
	se := &SessionEndpoint{
		ctx:        ctx,
		cancel:     cancel,
		session:    session,
		connection: connection,
		cfg:        cfg,
		ctrlCh:     make(chan endpointEvent, 16),
		writeCh:    make(chan []byte, 1024),
	}

	app, err := factory(session, se)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %v", ErrInitializationFailed, err)
	}
	loop, err := handler.New(handler.Config{
		Handler:      &frameHandler{app: app},
		QueueSize:    cfg.QueueSize,
		TickInterval: cfg.TickInterval,
		Logger:       slog.Default().With("sessionID", session.ID()),
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %v", ErrInitializationFailed, err)
	}
	se.loop = loop
	se.heartbeat = NewHeartbeatService(cfg.PingInterval, session, se)
	return se, nil
}

func (se *SessionEndpoint) Run() error {
	eg, ctx := errgroup.WithContext(se.ctx)
	if err := se.loop.Start(ctx); err != nil {
		return err
	}
	eg.Go(func() error {
		se.ownerLoop(ctx)
		return nil
	})
	eg.Go(func() error {
		se.readLoop(ctx)
		return nil
	})
	eg.Go(func() error {
		se.writeLoop(ctx)
		return nil
	})
	if se.cfg.PingInterval > 0 {
		eg.Go(func() error {
			se.heartbeat.Run(ctx)
			return nil
		})
	}
	eg.Go(func() error {
		<-se.loop.Done()
		return nil
	})

	// セッションID通知を送信
	if err := se.Send(EncodeAssignMessage(se.session.ID())); err != nil {
		return err
	}

	return eg.Wait()
}

func (se *SessionEndpoint) Send(data []byte) error {
	select {
	case se.writeCh <- data:
		return nil
	default:
		return ErrBackpressure
	}
}

func (se *SessionEndpoint) Close(ctx context.Context) {
	se.sendCtrlEvent(ctx, endpointEvent{kind: evClose})
}

func (se *SessionEndpoint) ForceClose() {
	se.close(nil)
}

// ownerLoop は論理セッションの状態を監視し、必要に応じて接続の管理を行います。
func (se *SessionEndpoint) ownerLoop(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-se.ctrlCh:
			se.handleControlEvent(ctx, ev)
		case <-ticker.C:
			if ok, reason := se.session.IsIdle(se.cfg.IdleTimeout); ok {
				se.handleControlEvent(ctx, endpointEvent{
					kind: evClose,
					err:  fmt.Errorf("session idle: %s", reason),
				})
			}
		}
	}
}

func (se *SessionEndpoint) readLoop(ctx context.Context) {
	for {
		data, err := se.connection.Read(ctx)
		if err != nil {
			// 読み込みエラーは接続の終了とみなす
			se.sendCtrlEvent(ctx, endpointEvent{kind: evReadError, err: err})
			return
		}
		se.session.TouchRead()
		se.handleData(ctx, data)
	}
}

func (se *SessionEndpoint) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-se.writeCh:
			if err := se.connection.Write(ctx, data); err != nil {
				se.sendCtrlEvent(ctx, endpointEvent{kind: evWriteError, err: err})
				return
			}
			se.session.TouchWrite()
		}
	}
}

func (se *SessionEndpoint) close(err error) {
	if !se.closed.CompareAndSwap(false, true) {
		return
	}
	se.cancel()
	se.session.Close()
	reason := ""
	if err != nil {
		reason = err.Error()
	}
	se.connection.Close(reason)
}

func (se *SessionEndpoint) handleData(ctx context.Context, data []byte) {
	frame, err := ParseFrame(data)
	if err != nil {
		slog.WarnContext(ctx, "failed to parse frame", "err", err)
		return
	}
	if frame.Header.SessionID != se.session.ID().Bytes() {
		slog.WarnContext(ctx, "session ID mismatch", "expected", se.session.ID(), "got", SessionIDFromBytes(frame.Header.SessionID))
		return
	}

	switch frame.Payload.DataType {
	case DataTypeControl:
		se.handleControlMessage(ctx, ControlSubType(frame.Payload.SubType), frame)
	case DataTypeEvent, DataTypeCommand:
		if err := se.loop.Submit(ctx, frame); err != nil {
			slog.WarnContext(ctx, "failed to submit frame", "sessionID", se.session.ID(), "err", err)
		}
	default:
		slog.WarnContext(ctx, "unknown data type", "dataType", frame.Payload.DataType)
	}
}

func (se *SessionEndpoint) handleControlMessage(ctx context.Context, subType ControlSubType, frame *Frame) {
	switch subType {
	case ControlSubTypePong:
		se.sendCtrlEvent(ctx, endpointEvent{kind: evPong})
	case ControlSubTypePing:
		if err := se.Send(EncodePongMessage(se.session.ID(), frame.Header.Seq)); err != nil {
			slog.WarnContext(ctx, "failed to queue pong", "err", err)
		}
	default:
		slog.WarnContext(ctx, "unknown control subtype", "subType", subType)
	}
}

// handleControlEvent は制御チャネルからのイベントを処理し論理セッションの状態を更新する唯一の関数です。
func (se *SessionEndpoint) handleControlEvent(ctx context.Context, ev endpointEvent) {
	switch ev.kind {
	case evClose:
		if ev.err != nil {
			slog.InfoContext(ctx, "closing session", "sessionID", se.session.ID(), "reason", ev.err)
		}
		se.close(ev.err)
	case evPong:
		se.session.TouchPong()
	case evReadError, evWriteError:
		slog.InfoContext(ctx, "connection lost", "sessionID", se.session.ID(), "err", ev.err)
		se.close(nil)
	default:
		slog.WarnContext(ctx, "unknown endpoint event kind", "kind", ev.kind)
	}
}

func (se *SessionEndpoint) sendCtrlEvent(ctx context.Context, ev endpointEvent) {
	select {
	case se.ctrlCh <- ev:
	case <-ctx.Done():
	}
}

// frameHandler はループに投入された Frame を Application に渡します。
type frameHandler struct {
	app Application
}

func (h *frameHandler) Handle(ctx context.Context, req any) error {
	frame, ok := req.(*Frame)
	if !ok {
		return fmt.Errorf("%w: %T", ErrUnexpectedRequest, req)
	}
	return h.app.HandleFrame(ctx, frame)
}

func (h *frameHandler) Tick(ctx context.Context, now time.Time) {
	h.app.Tick(ctx, now)
}

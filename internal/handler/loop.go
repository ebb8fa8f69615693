package handler

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"
)

// Handler processes requests submitted to the loop. Tick is called on the same goroutine.
type Handler interface {
	Handle(ctx context.Context, req any) error
	Tick(ctx context.Context, now time.Time)
}

// Config controls the behaviour of the single thread loop.
type Config struct {
	Handler   Handler
	QueueSize int
	// TickInterval <= 0 disables ticking.
	TickInterval time.Duration
	Now          func() time.Time
	Logger       *slog.Logger
}

var (
	ErrHandlerRequired = errors.New("loop: handler is required")
	ErrAlreadyStarted  = errors.New("loop: start called multiple times")
	ErrNotStarted      = errors.New("loop: not started")
	ErrStopped         = errors.New("loop: stopped")
)

// Loop delivers incoming requests and ticks to the provided handler on a single goroutine.
// Handler errors and panics are logged and the loop keeps running.
type Loop struct {
	handler      Handler
	queue        chan any
	tickInterval time.Duration
	now          func() time.Time
	logger       *slog.Logger

	started int32
	stopped int32

	done chan struct{}
}

// New creates a Loop with the supplied configuration.
func New(cfg Config) (*Loop, error) {
	if cfg.Handler == nil {
		return nil, ErrHandlerRequired
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 1024
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Loop{
		handler:      cfg.Handler,
		queue:        make(chan any, queueSize),
		tickInterval: cfg.TickInterval,
		now:          now,
		logger:       logger,
		done:         make(chan struct{}),
	}, nil
}

// Start launches the single-thread loop. It must be called once.
func (l *Loop) Start(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&l.started, 0, 1) {
		return ErrAlreadyStarted
	}
	go l.run(ctx)
	return nil
}

func (l *Loop) run(ctx context.Context) {
	defer close(l.done)

	var tick <-chan time.Time
	if l.tickInterval > 0 {
		ticker := time.NewTicker(l.tickInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			l.logger.DebugContext(ctx, "loop: context cancelled, shutting down", "err", ctx.Err())
			return
		case req, ok := <-l.queue:
			if !ok {
				l.logger.DebugContext(ctx, "loop: queue closed, exiting")
				return
			}
			l.handle(ctx, req)
		case <-tick:
			// tick の前に溜まっているリクエストを処理する
			if !l.drain(ctx) {
				return
			}
			l.tick(ctx)
		}
	}
}

// drain handles every request already queued. It reports false once the queue is closed.
func (l *Loop) drain(ctx context.Context) bool {
	for {
		select {
		case req, ok := <-l.queue:
			if !ok {
				return false
			}
			l.handle(ctx, req)
		default:
			return true
		}
	}
}

func (l *Loop) handle(ctx context.Context, req any) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.ErrorContext(ctx, "loop: handler panicked", "panic", r)
		}
	}()
	if err := l.handler.Handle(ctx, req); err != nil {
		l.logger.WarnContext(ctx, "loop: handler error", "err", err)
	}
}

func (l *Loop) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.ErrorContext(ctx, "loop: tick panicked", "panic", r)
		}
	}()
	l.handler.Tick(ctx, l.now())
}

// Submit enqueues a request to be processed by the loop.
func (l *Loop) Submit(ctx context.Context, req any) error {
	if atomic.LoadInt32(&l.started) == 0 {
		return ErrNotStarted
	}
	if atomic.LoadInt32(&l.stopped) == 1 {
		return ErrStopped
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case l.queue <- req:
		return nil
	}
}

// Stop drains the loop and waits for graceful completion.
func (l *Loop) Stop(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&l.stopped, 0, 1) {
		return errors.New("loop: stop called multiple times")
	}
	close(l.queue)
	if atomic.LoadInt32(&l.started) == 0 {
		return nil
	}
	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once the loop goroutine has exited.
func (l *Loop) Done() <-chan struct{} { return l.done }

// DrainTimeout closes the queue and waits for completion with the given timeout.
func (l *Loop) DrainTimeout(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return l.Stop(ctx)
}

package deadline

import (
	"container/heap"
	"log/slog"
	"time"
)

// Scheduler は一度だけ発火するコールバックを予約するタイマーサービスです。
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Handle
}

// Handle は予約済みコールバックの取り消しハンドルです。
// Stop が true を返した後、そのコールバックは決して発火しません。
type Handle interface {
	Stop() bool
}

// Wheel はホストのtickで駆動される仮想時計のスケジューラです。
// Advance を呼んだゴルーチン上でコールバックを実行するため、単一スレッドで使うこと。
type Wheel struct {
	now   time.Time
	seq   uint64
	queue timerQueue
}

var _ Scheduler = (*Wheel)(nil)

func NewWheel(start time.Time) *Wheel {
	return &Wheel{now: start}
}

type timer struct {
	at      time.Time
	seq     uint64
	f       func()
	index   int
	stopped bool
	wheel   *Wheel
}

func (t *timer) Stop() bool {
	if t.stopped || t.index < 0 {
		return false
	}
	t.stopped = true
	heap.Remove(&t.wheel.queue, t.index)
	return true
}

// AfterFunc は現在の仮想時刻から d 後に f を予約します。d<=0 は次の Advance で発火します。
func (w *Wheel) AfterFunc(d time.Duration, f func()) Handle {
	if d < 0 {
		d = 0
	}
	w.seq++
	t := &timer{at: w.now.Add(d), seq: w.seq, f: f, wheel: w}
	heap.Push(&w.queue, t)
	return t
}

// Advance は仮想時刻を now まで進め、期限を迎えたコールバックを期限順に実行します。
// 発火したコールバック数を返します。
func (w *Wheel) Advance(now time.Time) int {
	if now.After(w.now) {
		w.now = now
	}
	fired := 0
	for w.queue.Len() > 0 {
		next := w.queue[0]
		if next.at.After(w.now) {
			break
		}
		heap.Pop(&w.queue)
		next.stopped = true
		fired++
		w.fire(next)
	}
	return fired
}

func (w *Wheel) fire(t *timer) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("deadline: timer callback panicked", "panic", r, "at", t.at)
		}
	}()
	t.f()
}

func (w *Wheel) Now() time.Time { return w.now }

// Pending は未発火のタイマー数を返します。
func (w *Wheel) Pending() int { return w.queue.Len() }

type timerQueue []*timer

func (q timerQueue) Len() int { return len(q) }

func (q timerQueue) Less(i, j int) bool {
	if q[i].at.Equal(q[j].at) {
		return q[i].seq < q[j].seq
	}
	return q[i].at.Before(q[j].at)
}

func (q timerQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *timerQueue) Push(x any) {
	t := x.(*timer)
	t.index = len(*q)
	*q = append(*q, t)
}

func (q *timerQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*q = old[:n-1]
	return t
}

package engine

import (
	"time"

	"showdamage/deadline"
)

type shotRecord struct {
	id     ShotID
	weapon string
	hits   int
	flush  deadline.Handle
}

// ShotTracker は攻撃者ごとに現在の発射と、その発射で当たった回数を追跡します。
// 2回目以降のヒットは貫通とみなします。
type ShotTracker struct {
	sched   deadline.Scheduler
	records map[PlayerID]*shotRecord
	next    ShotID

	// onExpire は発射の期限切れ時に呼ばれます。
	onExpire func(attacker PlayerID, shot ShotID)
}

func NewShotTracker(sched deadline.Scheduler, onExpire func(PlayerID, ShotID)) *ShotTracker {
	return &ShotTracker{
		sched:    sched,
		records:  make(map[PlayerID]*shotRecord),
		onExpire: onExpire,
	}
}

// Fire は新しい発射を開始し、その ShotID を返します。前の発射の期限は取り消されます。
func (t *ShotTracker) Fire(attacker PlayerID, weapon string, window time.Duration) ShotID {
	rec := t.arm(attacker, weapon, window)
	return rec.id
}

// Hit は攻撃者の現在の発射にヒットを1回数えます。
// 発射イベントを取りこぼしていた場合は hits=1 の発射を合成します。
func (t *ShotTracker) Hit(attacker PlayerID, weapon string, window time.Duration) (ShotID, bool) {
	rec, ok := t.records[attacker]
	if !ok {
		rec = t.arm(attacker, weapon, window)
		rec.hits = 1
		return rec.id, false
	}
	rec.hits++
	return rec.id, rec.hits > 1
}

func (t *ShotTracker) arm(attacker PlayerID, weapon string, window time.Duration) *shotRecord {
	if old, ok := t.records[attacker]; ok {
		old.flush.Stop()
	}
	t.next++
	rec := &shotRecord{id: t.next, weapon: weapon}
	rec.flush = t.sched.AfterFunc(2*window, func() {
		if t.records[attacker] != rec {
			return
		}
		delete(t.records, attacker)
		if t.onExpire != nil {
			t.onExpire(attacker, rec.id)
		}
	})
	t.records[attacker] = rec
	return rec
}

// Current は攻撃者の現在の発射を返します。
func (t *ShotTracker) Current(attacker PlayerID) (ShotID, int, bool) {
	rec, ok := t.records[attacker]
	if !ok {
		return 0, 0, false
	}
	return rec.id, rec.hits, true
}

func (t *ShotTracker) Remove(attacker PlayerID) bool {
	rec, ok := t.records[attacker]
	if !ok {
		return false
	}
	rec.flush.Stop()
	delete(t.records, attacker)
	return true
}

func (t *ShotTracker) Clear() int {
	n := len(t.records)
	for _, rec := range t.records {
		rec.flush.Stop()
	}
	clear(t.records)
	return n
}

func (t *ShotTracker) Len() int { return len(t.records) }

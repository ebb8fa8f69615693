package engine

import (
	"log/slog"
	"time"

	"showdamage/deadline"
)

// killLinger はキル表示を消す前に対象ごとの累積を残しておく追加時間です。
const killLinger = 100 * time.Millisecond

type set map[PlayerID]struct{}

type bulletAggregate struct {
	shot         ShotID
	total        int
	victims      set
	killed       set
	target       PlayerID
	targetDamage int
	penetration  bool
	flush        deadline.Handle
}

// targetRecord は (攻撃者, 被害者) ごとの累積ダメージです。発射の境界とは独立です。
type targetRecord struct {
	total    int
	health   int
	headshot bool
	dead     bool
	timer    deadline.Handle
}

// BulletEngine は1発の発射で複数の被害者に与えたダメージと、
// 被害者ごとの累積ダメージを別々に集計します。
type BulletEngine struct {
	sched    deadline.Scheduler
	settings Settings
	surface  *Surface
	shots    *ShotTracker

	aggregates map[PlayerID]*bulletAggregate
	targets    map[PlayerID]map[PlayerID]*targetRecord
}

func NewBulletEngine(sched deadline.Scheduler, settings Settings, surface *Surface, shots *ShotTracker) *BulletEngine {
	return &BulletEngine{
		sched:      sched,
		settings:   settings,
		surface:    surface,
		shots:      shots,
		aggregates: make(map[PlayerID]*bulletAggregate),
		targets:    make(map[PlayerID]map[PlayerID]*targetRecord),
	}
}

func (b *BulletEngine) OnBulletDamage(hit Hit) {
	cfg := b.settings.Load()
	shot, penetration := b.shots.Hit(hit.Attacker, hit.Weapon, cfg.BulletWindow())

	agg := b.aggregates[hit.Attacker]
	if agg != nil && agg.shot != shot {
		b.flush(hit.Attacker, agg)
		agg = nil
	}
	if agg == nil {
		agg = &bulletAggregate{shot: shot, victims: set{}, killed: set{}}
		b.aggregates[hit.Attacker] = agg
	}

	if hit.Victim != agg.target {
		agg.target = hit.Victim
		agg.targetDamage = 0
	}
	agg.targetDamage += hit.Damage
	agg.total += hit.Damage
	agg.victims[hit.Victim] = struct{}{}
	if hit.Kill {
		agg.killed[hit.Victim] = struct{}{}
	}
	agg.penetration = agg.penetration || penetration

	rec := b.accumulate(hit, cfg.Notify())
	b.surface.Show(hit.Attacker, hitMessage(rec.total, hit.Health, rec.headshot, hit.Kill), NoticeHit, cfg.Notify())

	if agg.flush != nil {
		agg.flush.Stop()
	}
	attacker := hit.Attacker
	agg.flush = b.sched.AfterFunc(cfg.BulletWindow(), func() {
		if b.aggregates[attacker] == agg {
			b.flush(attacker, agg)
		}
	})

	slog.Debug("bullet hit",
		"attacker", hit.Attacker, "victim", hit.Victim, "damage", hit.Damage,
		"kill", hit.Kill, "penetration", agg.penetration, "shot", shot,
		"targetTotal", rec.total, "total", agg.total, "victims", len(agg.victims), "killed", len(agg.killed))
}

// accumulate は対象ごとの累積を更新し、非アクティブ時の削除タイマーを張り直します。
// キル時は表示時間の後に削除します。
func (b *BulletEngine) accumulate(hit Hit, notify time.Duration) *targetRecord {
	inner, ok := b.targets[hit.Attacker]
	if !ok {
		inner = make(map[PlayerID]*targetRecord)
		b.targets[hit.Attacker] = inner
	}
	rec, ok := inner[hit.Victim]
	if !ok {
		rec = &targetRecord{}
		inner[hit.Victim] = rec
	}
	rec.total += hit.Damage
	rec.health = hit.Health
	rec.headshot = rec.headshot || hit.Headshot
	if hit.Kill {
		rec.dead = true
		b.rearmTarget(hit.Attacker, hit.Victim, rec, notify+killLinger)
	} else {
		b.rearmTarget(hit.Attacker, hit.Victim, rec, 2*notify)
	}
	return rec
}

func (b *BulletEngine) rearmTarget(attacker, victim PlayerID, rec *targetRecord, after time.Duration) {
	if rec.timer != nil {
		rec.timer.Stop()
	}
	rec.timer = b.sched.AfterFunc(after, func() {
		b.dropTarget(attacker, victim, rec)
	})
}

func (b *BulletEngine) dropTarget(attacker, victim PlayerID, rec *targetRecord) {
	inner, ok := b.targets[attacker]
	if !ok || inner[victim] != rec {
		return
	}
	delete(inner, victim)
	if len(inner) == 0 {
		delete(b.targets, attacker)
	}
}

// EndShot は発射の期限切れで呼ばれます。集計がまだその発射のものなら確定させます。
func (b *BulletEngine) EndShot(attacker PlayerID, shot ShotID) {
	agg, ok := b.aggregates[attacker]
	if !ok || agg.shot != shot {
		return
	}
	b.flush(attacker, agg)
}

// flush は集計を破棄し、2人以上に当たっていれば合計を表示します。
func (b *BulletEngine) flush(attacker PlayerID, agg *bulletAggregate) bool {
	if agg.flush != nil {
		agg.flush.Stop()
	}
	if b.aggregates[attacker] == agg {
		delete(b.aggregates, attacker)
	}
	if len(agg.victims) <= 1 || agg.total <= 0 {
		return false
	}

	cfg := b.settings.Load()
	text := RenderTemplate(cfg.BulletTotalMessage, agg.total, len(agg.victims))
	if agg.penetration {
		text += penetrationNote
	}
	b.surface.Show(attacker, text, NoticeTotal, cfg.Notify()*3/2)
	slog.Info("bullet total",
		"attacker", attacker, "damage", agg.total, "victims", len(agg.victims),
		"killed", len(agg.killed), "penetration", agg.penetration)
	return true
}

// Target は (attacker, victim) の累積ダメージを返します。
func (b *BulletEngine) Target(attacker, victim PlayerID) (total int, dead bool, ok bool) {
	rec, ok := b.targets[attacker][victim]
	if !ok {
		return 0, false, false
	}
	return rec.total, rec.dead, true
}

// RemoveAttacker は attacker が攻撃者として持つ集計と累積をすべて破棄します。
func (b *BulletEngine) RemoveAttacker(attacker PlayerID) int {
	n := 0
	if agg, ok := b.aggregates[attacker]; ok {
		agg.flush.Stop()
		delete(b.aggregates, attacker)
		n++
	}
	for _, rec := range b.targets[attacker] {
		rec.timer.Stop()
		n++
	}
	delete(b.targets, attacker)
	return n
}

// RemoveVictim は他の攻撃者が victim に対して持つ累積を破棄します。
func (b *BulletEngine) RemoveVictim(victim PlayerID) int {
	n := 0
	for attacker, inner := range b.targets {
		rec, ok := inner[victim]
		if !ok {
			continue
		}
		rec.timer.Stop()
		delete(inner, victim)
		if len(inner) == 0 {
			delete(b.targets, attacker)
		}
		n++
	}
	return n
}

func (b *BulletEngine) Clear() int {
	n := 0
	for _, agg := range b.aggregates {
		agg.flush.Stop()
		n++
	}
	clear(b.aggregates)
	for _, inner := range b.targets {
		for _, rec := range inner {
			rec.timer.Stop()
			n++
		}
	}
	clear(b.targets)
	return n
}

type BulletStats struct {
	Aggregates    int
	TargetEntries int
	Damage        int
	Victims       int
	Killed        int
}

func (b *BulletEngine) Stats() BulletStats {
	var s BulletStats
	s.Aggregates = len(b.aggregates)
	for _, agg := range b.aggregates {
		s.Damage += agg.total
		s.Victims += len(agg.victims)
		s.Killed += len(agg.killed)
	}
	for _, inner := range b.targets {
		s.TargetEntries += len(inner)
	}
	return s
}

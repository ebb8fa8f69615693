package engine

import (
	"log/slog"

	"showdamage/deadline"
)

type explosiveKey struct {
	attacker PlayerID
	category Category
}

type explosiveAggregate struct {
	total   int
	victims set
	weapon  string
	flush   deadline.Handle
}

// ExplosiveEngine は攻撃者と爆発物の種類ごとに独立した集計窓を持ちます。
// HE は新しいヒットごとに窓が伸び、焼夷は最初のヒットから固定です。
type ExplosiveEngine struct {
	sched      deadline.Scheduler
	settings   Settings
	surface    *Surface
	aggregates map[explosiveKey]*explosiveAggregate
}

func NewExplosiveEngine(sched deadline.Scheduler, settings Settings, surface *Surface) *ExplosiveEngine {
	return &ExplosiveEngine{
		sched:      sched,
		settings:   settings,
		surface:    surface,
		aggregates: make(map[explosiveKey]*explosiveAggregate),
	}
}

func (x *ExplosiveEngine) OnExplosiveDamage(hit Hit, category Category) {
	cfg := x.settings.Load()
	x.surface.Show(hit.Attacker, hitMessage(hit.Damage, hit.Health, hit.Headshot, hit.Kill), NoticeHit, cfg.Notify())

	key := explosiveKey{attacker: hit.Attacker, category: category}
	agg, ok := x.aggregates[key]
	if !ok {
		agg = &explosiveAggregate{victims: set{}}
		x.aggregates[key] = agg
		x.arm(key, agg)
	} else if category == CategoryHE {
		x.arm(key, agg)
	}
	agg.total += hit.Damage
	agg.victims[hit.Victim] = struct{}{}
	agg.weapon = hit.Weapon

	slog.Debug("explosive hit",
		"attacker", hit.Attacker, "victim", hit.Victim, "category", category,
		"damage", hit.Damage, "total", agg.total, "victims", len(agg.victims))
}

func (x *ExplosiveEngine) arm(key explosiveKey, agg *explosiveAggregate) {
	cfg := x.settings.Load()
	window := cfg.GrenadeWindow()
	if key.category == CategoryIncendiary {
		window = cfg.MolotovWindow()
	}
	if agg.flush != nil {
		agg.flush.Stop()
	}
	agg.flush = x.sched.AfterFunc(window, func() {
		if x.aggregates[key] == agg {
			x.flush(key, agg)
		}
	})
}

func (x *ExplosiveEngine) flush(key explosiveKey, agg *explosiveAggregate) {
	delete(x.aggregates, key)
	if agg.total <= 0 {
		return
	}
	cfg := x.settings.Load()
	template := cfg.GrenadeTotalMessage
	if key.category == CategoryIncendiary {
		template = cfg.MolotovTotalMessage
	}
	text := RenderTemplate(template, agg.total, len(agg.victims))
	x.surface.Show(key.attacker, text, NoticeTotal, cfg.GrenadeWindow())
	slog.Info("explosive total",
		"attacker", key.attacker, "category", key.category, "weapon", agg.weapon,
		"damage", agg.total, "victims", len(agg.victims))
}

// Window は (attacker, category) の集計中の合計と人数を返します。
func (x *ExplosiveEngine) Window(attacker PlayerID, category Category) (total, victims int, ok bool) {
	agg, ok := x.aggregates[explosiveKey{attacker: attacker, category: category}]
	if !ok {
		return 0, 0, false
	}
	return agg.total, len(agg.victims), true
}

func (x *ExplosiveEngine) RemoveAttacker(attacker PlayerID) int {
	n := 0
	for _, category := range []Category{CategoryHE, CategoryIncendiary} {
		key := explosiveKey{attacker: attacker, category: category}
		if agg, ok := x.aggregates[key]; ok {
			agg.flush.Stop()
			delete(x.aggregates, key)
			n++
		}
	}
	return n
}

func (x *ExplosiveEngine) Clear() int {
	n := len(x.aggregates)
	for _, agg := range x.aggregates {
		agg.flush.Stop()
	}
	clear(x.aggregates)
	return n
}

type ExplosiveStats struct {
	HE         int
	Incendiary int
	Damage     int
	Victims    int
}

func (x *ExplosiveEngine) Stats() ExplosiveStats {
	var s ExplosiveStats
	for key, agg := range x.aggregates {
		if key.category == CategoryHE {
			s.HE++
		} else {
			s.Incendiary++
		}
		s.Damage += agg.total
		s.Victims += len(agg.victims)
	}
	return s
}

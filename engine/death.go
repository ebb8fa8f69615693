package engine

import (
	"log/slog"
	"strings"
)

type killEstimate struct {
	markers  []string
	headshot int
	body     int
}

// 事前のヒット記録がないキル（一撃キル等）のときに表示するダメージの推定値
var killEstimates = []killEstimate{
	{markers: []string{"awp", "ssg08", "scout"}, headshot: 150, body: 100},
	{markers: []string{"ak47", "m4a1"}, headshot: 140, body: 35},
	{markers: []string{"deagle"}, headshot: 140, body: 60},
}

const defaultKillEstimate = 100

// EstimateKillDamage は武器名とヘッドショット有無から表示用のダメージを推定します。
func EstimateKillDamage(weapon string, headshot bool) int {
	w := strings.ToLower(weapon)
	for _, e := range killEstimates {
		for _, m := range e.markers {
			if !strings.Contains(w, m) {
				continue
			}
			if headshot {
				return e.headshot
			}
			return e.body
		}
	}
	return defaultKillEstimate
}

// OnKill はキルを記録済みの累積ダメージで表示します。
// 記録がなければ推定値で死亡済みの記録を作り、どちらの場合も表示時間の後に削除します。
func (b *BulletEngine) OnKill(attacker, victim PlayerID, weapon string, headshot bool) int {
	cfg := b.settings.Load()

	inner, ok := b.targets[attacker]
	if !ok {
		inner = make(map[PlayerID]*targetRecord)
		b.targets[attacker] = inner
	}
	rec, ok := inner[victim]
	if ok {
		rec.headshot = rec.headshot || headshot
	} else {
		rec = &targetRecord{total: EstimateKillDamage(weapon, headshot), headshot: headshot}
		inner[victim] = rec
		slog.Debug("kill without tracked hits, using estimate",
			"attacker", attacker, "victim", victim, "weapon", weapon, "damage", rec.total)
	}
	rec.dead = true
	rec.health = 0
	b.rearmTarget(attacker, victim, rec, cfg.Notify()+killLinger)

	b.surface.Show(attacker, killMessage(rec.total, rec.headshot), NoticeHit, cfg.Notify())
	return rec.total
}

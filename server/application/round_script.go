package application

import (
	"math/rand/v2"
	"time"

	"showdamage/engine"
	"showdamage/server/domain"
)

const (
	scriptFullHealth = 100
	scriptShotGap    = 100 * time.Millisecond // 連射間隔
	scriptBurnTick   = 500 * time.Millisecond // 炎上ダメージの間隔
	scriptPatternGap = 700 * time.Millisecond
)

// HostAction はシミュレーションホストが送る1イベントです。After は前のイベントからの待ち時間です。
type HostAction struct {
	After   time.Duration
	SubType domain.EventSubType
	Body    []byte
}

// RoundScript はT側の攻撃者がCT側を攻撃する1ラウンド分のイベント列を生成します。
// 同じ seed からは同じイベント列が得られます。
type RoundScript struct {
	Attackers []uint32
	Victims   []uint32

	rng    *rand.Rand
	health map[uint32]int
	out    []HostAction
	gap    time.Duration
}

type pattern func(s *RoundScript, attacker uint32)

var patterns = []pattern{
	(*RoundScript).spray,
	(*RoundScript).wallbang,
	(*RoundScript).grenade,
	(*RoundScript).molotov,
	(*RoundScript).execute,
}

func NewRoundScript(seed uint64, attackers, victims []uint32) *RoundScript {
	return &RoundScript{
		Attackers: attackers,
		Victims:   victims,
		rng:       rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Actions はラウンド終了までのイベントを返します。最後は必ず round end です。
func (s *RoundScript) Actions() []HostAction {
	s.out = nil
	s.health = make(map[uint32]int, len(s.Victims))
	for _, v := range s.Victims {
		s.health[v] = scriptFullHealth
	}
	if len(s.Victims) > 0 {
		for _, a := range s.Attackers {
			patterns[s.rng.IntN(len(patterns))](s, a)
			s.wait(scriptPatternGap)
		}
	}
	s.emit(domain.EventSubTypeRoundEnd, nil)
	return s.out
}

func (s *RoundScript) wait(d time.Duration) { s.gap += d }

func (s *RoundScript) emit(subType domain.EventSubType, body []byte) {
	s.out = append(s.out, HostAction{After: s.gap, SubType: subType, Body: body})
	s.gap = 0
}

func (s *RoundScript) fire(attacker uint32, weapon string) {
	s.emit(domain.EventSubTypeWeaponFire, (&domain.WeaponFirePayload{Attacker: attacker, Weapon: weapon}).Encode())
}

// hit は victim の残り体力を減らしてダメージイベントを出します。体力が0になれば死亡イベントも出します。
func (s *RoundScript) hit(attacker, victim uint32, weapon string, damage int, headshot bool) {
	hp, ok := s.health[victim]
	if !ok || hp <= 0 {
		return
	}
	damage = min(damage, hp)
	hp -= damage
	s.health[victim] = hp

	var group uint8
	if headshot {
		group = uint8(engine.HitHead)
	}
	s.emit(domain.EventSubTypeDamage, (&domain.DamagePayload{
		Victim:       victim,
		Attacker:     attacker,
		Damage:       int16(damage),
		Health:       int16(hp),
		VictimTeam:   uint8(engine.TeamCT),
		AttackerTeam: uint8(engine.TeamT),
		HitGroup:     group,
		Weapon:       weapon,
	}).Encode())
	if hp == 0 {
		s.emit(domain.EventSubTypeDeath, (&domain.DeathPayload{
			Victim:       victim,
			Attacker:     attacker,
			VictimTeam:   uint8(engine.TeamCT),
			AttackerTeam: uint8(engine.TeamT),
			Headshot:     headshot,
			Weapon:       weapon,
		}).Encode())
	}
}

func (s *RoundScript) alive() []uint32 {
	var out []uint32
	for _, v := range s.Victims {
		if s.health[v] > 0 {
			out = append(out, v)
		}
	}
	return out
}

func (s *RoundScript) pick() (uint32, bool) {
	alive := s.alive()
	if len(alive) == 0 {
		return 0, false
	}
	return alive[s.rng.IntN(len(alive))], true
}

// spray は1人の相手に数発撃ち込みます。
func (s *RoundScript) spray(attacker uint32) {
	victim, ok := s.pick()
	if !ok {
		return
	}
	for range 2 + s.rng.IntN(3) {
		s.fire(attacker, "ak47")
		if s.rng.IntN(3) > 0 {
			s.hit(attacker, victim, "ak47", 20+s.rng.IntN(10), s.rng.IntN(6) == 0)
		}
		s.wait(scriptShotGap)
	}
}

// wallbang は1発で2人以上を貫通します。
func (s *RoundScript) wallbang(attacker uint32) {
	alive := s.alive()
	if len(alive) == 0 {
		return
	}
	s.fire(attacker, "awp")
	for _, v := range alive[:min(len(alive), 2)] {
		s.hit(attacker, v, "awp", 60+s.rng.IntN(40), false)
	}
}

func (s *RoundScript) grenade(attacker uint32) {
	for _, v := range s.alive() {
		s.hit(attacker, v, "hegrenade", 10+s.rng.IntN(40), false)
	}
}

func (s *RoundScript) molotov(attacker uint32) {
	for range 3 {
		for _, v := range s.alive() {
			s.hit(attacker, v, "inferno", 4+s.rng.IntN(5), false)
		}
		s.wait(scriptBurnTick)
	}
}

// execute は相手が倒れるまで撃ち続けます。
func (s *RoundScript) execute(attacker uint32) {
	victim, ok := s.pick()
	if !ok {
		return
	}
	for s.health[victim] > 0 {
		s.fire(attacker, "deagle")
		s.hit(attacker, victim, "deagle", 35+s.rng.IntN(30), s.rng.IntN(2) == 0)
		s.wait(scriptShotGap * 3)
	}
}

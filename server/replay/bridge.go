// Package replay は録画済みの CS2 デモをダメージエンジンに流し込みます。
// デモの経過時間で仮想時計を進めるため、実時間を待たずに結果を得られます。
package replay

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/markus-wa/demoinfocs-golang/v5/pkg/demoinfocs/common"
	"github.com/markus-wa/demoinfocs-golang/v5/pkg/demoinfocs/events"

	"showdamage/engine"
)

// Sink はデモのイベントを受け取るエンジンです。*engine.Engine が実装します。
type Sink interface {
	OnDamage(ctx context.Context, ev engine.DamageEvent) error
	OnWeaponFire(ctx context.Context, ev engine.WeaponFireEvent) error
	OnPlayerDeath(ctx context.Context, ev engine.PlayerDeathEvent) error
	OnRoundEnd(ctx context.Context) error
	OnPlayerDisconnect(ctx context.Context, ev engine.PlayerDisconnectEvent) error
	Tick(ctx context.Context) int
}

// Clock は仮想時計です。*deadline.Wheel が実装します。
type Clock interface {
	Advance(now time.Time) int
}

var _ Sink = (*engine.Engine)(nil)

// Bridge はデモパーサーのイベントをエンジンのイベントに変換します。
// パーサーのコールバックと同じゴルーチンで動きます。
type Bridge struct {
	ctx   context.Context
	sink  Sink
	clock Clock
	start time.Time

	Events  int
	Ignored int
	Frames  int
}

func NewBridge(ctx context.Context, sink Sink, clock Clock, start time.Time) *Bridge {
	return &Bridge{ctx: ctx, sink: sink, clock: clock, start: start}
}

// playerID はデモの UserID をエンジンのハンドルに写します。UserID 0 が有効なため1ずらします。
func playerID(p *common.Player) engine.PlayerID {
	if p == nil {
		return engine.NoPlayer
	}
	return engine.PlayerID(p.UserID + 1)
}

func team(p *common.Player) engine.Team {
	if p == nil {
		return engine.TeamUnknown
	}
	switch p.Team {
	case common.TeamTerrorists:
		return engine.TeamT
	case common.TeamCounterTerrorists:
		return engine.TeamCT
	case common.TeamSpectators:
		return engine.TeamSpectator
	default:
		return engine.TeamUnknown
	}
}

// サーバー側の武器名と表示名が異なるもの
var weaponNames = map[common.EquipmentType]string{
	common.EqHE:         "hegrenade",
	common.EqMolotov:    "molotov",
	common.EqIncendiary: "incgrenade",
	common.EqM4A4:       "m4a1",
	common.EqM4A1:       "m4a1_silencer",
	common.EqScout:      "ssg08",
	common.EqDeagle:     "deagle",
}

// weaponName はゲームサーバーのイベントと同じ形式の武器名を返します。
func weaponName(eq *common.Equipment, fallback string) string {
	if eq == nil || eq.Type == common.EqUnknown {
		return strings.ToLower(fallback)
	}
	if name, ok := weaponNames[eq.Type]; ok {
		return name
	}
	return strings.NewReplacer("-", "", " ", "").Replace(strings.ToLower(eq.Type.String()))
}

func (b *Bridge) PlayerHurt(e events.PlayerHurt) {
	hit := engine.HitGeneric
	if e.HitGroup == events.HitGroupHead {
		hit = engine.HitHead
	}
	b.deliver("damage", b.sink.OnDamage(b.ctx, engine.DamageEvent{
		Victim:       playerID(e.Player),
		Attacker:     playerID(e.Attacker),
		Weapon:       weaponName(e.Weapon, e.WeaponString),
		Damage:       e.HealthDamage,
		VictimTeam:   team(e.Player),
		AttackerTeam: team(e.Attacker),
		HitLocation:  hit,
		HealthAfter:  e.Health,
	}))
}

func (b *Bridge) WeaponFire(e events.WeaponFire) {
	b.deliver("weapon fire", b.sink.OnWeaponFire(b.ctx, engine.WeaponFireEvent{
		Attacker: playerID(e.Shooter),
		Weapon:   weaponName(e.Weapon, ""),
	}))
}

func (b *Bridge) Kill(e events.Kill) {
	b.deliver("kill", b.sink.OnPlayerDeath(b.ctx, engine.PlayerDeathEvent{
		Victim:       playerID(e.Victim),
		Attacker:     playerID(e.Killer),
		Weapon:       weaponName(e.Weapon, ""),
		Headshot:     e.IsHeadshot,
		VictimTeam:   team(e.Victim),
		AttackerTeam: team(e.Killer),
	}))
}

func (b *Bridge) RoundEnd(events.RoundEnd) {
	b.deliver("round end", b.sink.OnRoundEnd(b.ctx))
}

func (b *Bridge) PlayerDisconnected(e events.PlayerDisconnected) {
	b.deliver("disconnect", b.sink.OnPlayerDisconnect(b.ctx, engine.PlayerDisconnectEvent{Player: playerID(e.Player)}))
}

// Frame は仮想時計をデモの経過時間まで進めてから描画します。
func (b *Bridge) Frame(elapsed time.Duration) {
	b.clock.Advance(b.start.Add(elapsed))
	b.sink.Tick(b.ctx)
	b.Frames++
}

func (b *Bridge) deliver(kind string, err error) {
	b.Events++
	switch {
	case err == nil:
	case errors.Is(err, engine.ErrInvalidPlayer):
		// ワールドダメージや切断済みプレイヤー
		b.Ignored++
		slog.DebugContext(b.ctx, "replay: event ignored", "kind", kind, "err", err)
	default:
		b.Ignored++
		slog.WarnContext(b.ctx, "replay: event failed", "kind", kind, "err", err)
	}
}

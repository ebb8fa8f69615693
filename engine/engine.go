package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"showdamage/deadline"
)

// Engine はホストのイベントを受け取り、各集計エンジンへ振り分けます。
// すべてのメソッドとタイマーのコールバックは同じゴルーチンから呼ぶこと。
type Engine struct {
	settings Settings
	renderer Renderer

	surface    *Surface
	shots      *ShotTracker
	bullets    *BulletEngine
	explosives *ExplosiveEngine
}

func New(sched deadline.Scheduler, settings Settings, renderer Renderer) (*Engine, error) {
	if sched == nil || settings == nil || renderer == nil {
		return nil, ErrInitializationFailed
	}
	e := &Engine{settings: settings, renderer: renderer}
	e.surface = NewSurface(sched)
	e.shots = NewShotTracker(sched, func(attacker PlayerID, shot ShotID) {
		e.bullets.EndShot(attacker, shot)
	})
	e.bullets = NewBulletEngine(sched, settings, e.surface, e.shots)
	e.explosives = NewExplosiveEngine(sched, settings, e.surface)
	return e, nil
}

func (e *Engine) enabled() bool { return e.settings.Load().Enabled }

// OnDamage はダメージイベントを検証し、集計またはヒット表示に振り分けます。
func (e *Engine) OnDamage(ctx context.Context, ev DamageEvent) error {
	if !e.enabled() {
		return nil
	}
	if !ev.Attacker.Valid() || !ev.Victim.Valid() {
		return fmt.Errorf("%w: damage attacker=%d victim=%d", ErrInvalidPlayer, ev.Attacker, ev.Victim)
	}
	if ev.Attacker == ev.Victim || sameTeam(ev.AttackerTeam, ev.VictimTeam) {
		return nil
	}
	if ev.Damage <= 0 {
		return nil
	}

	hit := Hit{
		Attacker: ev.Attacker,
		Victim:   ev.Victim,
		Weapon:   ev.Weapon,
		Damage:   ev.Damage,
		Health:   max(ev.HealthAfter, 0),
		Headshot: ev.HitLocation == HitHead,
		Kill:     ev.HealthAfter <= 0,
	}
	cfg := e.settings.Load()
	category := Classify(ev.Weapon)
	switch {
	case cfg.GrenadeTotalEnabled && category.Explosive():
		e.explosives.OnExplosiveDamage(hit, category)
	case cfg.BulletTotalEnabled:
		e.bullets.OnBulletDamage(hit)
	default:
		e.surface.Show(hit.Attacker, hitMessage(hit.Damage, hit.Health, hit.Headshot, hit.Kill), NoticeHit, cfg.Notify())
	}
	slog.DebugContext(ctx, "damage",
		"attacker", ev.Attacker, "victim", ev.Victim, "weapon", ev.Weapon,
		"category", category, "damage", ev.Damage, "health", hit.Health)
	return nil
}

func (e *Engine) OnWeaponFire(ctx context.Context, ev WeaponFireEvent) error {
	if !e.enabled() {
		return nil
	}
	if !ev.Attacker.Valid() {
		return fmt.Errorf("%w: weapon fire attacker=%d", ErrInvalidPlayer, ev.Attacker)
	}
	shot := e.shots.Fire(ev.Attacker, ev.Weapon, e.settings.Load().BulletWindow())
	slog.Log(ctx, slog.LevelDebug-4, "weapon fire", "attacker", ev.Attacker, "weapon", ev.Weapon, "shot", shot)
	return nil
}

// OnPlayerDeath はキル表示を行い、死亡したプレイヤーが攻撃者として持つ状態を破棄します。
func (e *Engine) OnPlayerDeath(ctx context.Context, ev PlayerDeathEvent) error {
	if !e.enabled() {
		return nil
	}
	if !ev.Victim.Valid() {
		return fmt.Errorf("%w: death victim=%d", ErrInvalidPlayer, ev.Victim)
	}
	defer e.CleanupPlayer(ev.Victim)

	if !ev.Attacker.Valid() || ev.Attacker == ev.Victim || sameTeam(ev.AttackerTeam, ev.VictimTeam) {
		return nil
	}
	damage := e.bullets.OnKill(ev.Attacker, ev.Victim, ev.Weapon, ev.Headshot)
	slog.DebugContext(ctx, "death",
		"attacker", ev.Attacker, "victim", ev.Victim, "weapon", ev.Weapon,
		"headshot", ev.Headshot, "damage", damage)
	return nil
}

// OnRoundEnd はHUDとすべての集計をリセットします。
func (e *Engine) OnRoundEnd(ctx context.Context) error {
	hud := e.surface.Clear()
	cleared := e.ClearAllDamage()
	slog.InfoContext(ctx, "round end, state cleared", "notifications", hud, "records", cleared)
	return nil
}

func (e *Engine) OnPlayerDisconnect(ctx context.Context, ev PlayerDisconnectEvent) error {
	if !ev.Player.Valid() {
		return fmt.Errorf("%w: disconnect player=%d", ErrInvalidPlayer, ev.Player)
	}
	n := e.CleanupPlayer(ev.Player)
	n += e.bullets.RemoveVictim(ev.Player)
	slog.DebugContext(ctx, "player disconnected, state removed", "player", ev.Player, "records", n)
	return nil
}

// CleanupPlayer は player が攻撃者として持つ発射、集計、累積、ヒット通知を破棄します。
// 集計通知は表示を続けます。
func (e *Engine) CleanupPlayer(player PlayerID) int {
	n := 0
	if e.shots.Remove(player) {
		n++
	}
	n += e.bullets.RemoveAttacker(player)
	n += e.explosives.RemoveAttacker(player)
	if e.surface.RemoveHit(player) {
		n++
	}
	return n
}

// ClearAllDamage はすべての集計と集計通知を破棄し、破棄した件数を返します。
func (e *Engine) ClearAllDamage() int {
	e.shots.Clear()
	n := e.bullets.Clear()
	n += e.explosives.Clear()
	n += e.surface.ClearTotals()
	return n
}

// ClearHUD はすべての通知を消します。
func (e *Engine) ClearHUD() int {
	return e.surface.Clear()
}

// Notify は任意のテキストを player に表示します。管理コマンドのテスト表示で使います。
func (e *Engine) Notify(player PlayerID, markup string, ttl time.Duration) error {
	if !player.Valid() {
		return fmt.Errorf("%w: notify player=%d", ErrInvalidPlayer, player)
	}
	e.surface.Show(player, markup, NoticeHit, ttl)
	return nil
}

// Tick は表示中の通知をすべて描画します。無効化されているときは何もしません。
func (e *Engine) Tick(ctx context.Context) int {
	if !e.enabled() {
		return 0
	}
	return e.surface.Render(e.renderer)
}

type Stats struct {
	Notifications      int
	TotalNotifications int
	Shots              int
	Bullet             BulletStats
	Explosive          ExplosiveStats
}

func (e *Engine) Stats() Stats {
	return Stats{
		Notifications:      e.surface.Len(),
		TotalNotifications: e.surface.Totals(),
		Shots:              e.shots.Len(),
		Bullet:             e.bullets.Stats(),
		Explosive:          e.explosives.Stats(),
	}
}

func sameTeam(a, b Team) bool {
	return a != TeamUnknown && a == b
}

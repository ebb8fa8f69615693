package engine

import (
	"errors"
	"testing"
	"time"
)

func TestEstimateKillDamage(t *testing.T) {
	tests := []struct {
		weapon   string
		headshot bool
		want     int
	}{
		{"awp", true, 150},
		{"weapon_awp", false, 100},
		{"ssg08", true, 150},
		{"scout", false, 100},
		{"ak47", true, 140},
		{"ak47", false, 35},
		{"m4a1_silencer", true, 140},
		{"deagle", true, 140},
		{"deagle", false, 60},
		{"knife", true, 100},
		{"", false, 100},
	}
	for _, tt := range tests {
		if got := EstimateKillDamage(tt.weapon, tt.headshot); got != tt.want {
			t.Errorf("EstimateKillDamage(%q, %v) = %d, want %d", tt.weapon, tt.headshot, got, tt.want)
		}
	}
}

func TestDeath_WithoutRecordFabricatesDamage(t *testing.T) {
	h := newHarness(nil)

	err := h.engine.OnPlayerDeath(h.ctx, PlayerDeathEvent{
		Attacker: attackerA, Victim: victim1, Weapon: "ak47", Headshot: true,
		AttackerTeam: TeamT, VictimTeam: TeamCT,
	})
	if err != nil {
		t.Fatalf("OnPlayerDeath() error = %v", err)
	}
	if got := h.text(attackerA); got != "-140 HP [KILLED]" {
		t.Errorf("kill message = %q, want %q", got, "-140 HP [KILLED]")
	}
	total, dead, ok := h.engine.bullets.Target(attackerA, victim1)
	if !ok || total != 140 || !dead {
		t.Errorf("Target() = (%d, %v, %v), want (140, true, true)", total, dead, ok)
	}

	h.advance(1100*time.Millisecond - time.Millisecond)
	if _, _, ok := h.engine.bullets.Target(attackerA, victim1); !ok {
		t.Fatal("synthetic record removed too early")
	}
	h.advance(1100 * time.Millisecond)
	if _, _, ok := h.engine.bullets.Target(attackerA, victim1); ok {
		t.Error("synthetic record not removed after notifyDuration+0.1s")
	}
}

func TestDeath_UsesStoredCumulative(t *testing.T) {
	h := newHarness(nil)

	h.fire(attackerA, "usp_silencer")
	h.damage(attackerA, victim1, "usp_silencer", 30, 70)
	h.advance(200 * time.Millisecond)
	h.fire(attackerA, "usp_silencer")
	h.damage(attackerA, victim1, "usp_silencer", 35, 35)
	h.advance(400 * time.Millisecond)

	_ = h.engine.OnPlayerDeath(h.ctx, PlayerDeathEvent{Attacker: attackerA, Victim: victim1, Weapon: "usp_silencer"})

	if got := h.text(attackerA); got != "-65 HP [KILLED]" {
		t.Errorf("kill message = %q, want %q", got, "-65 HP [KILLED]")
	}
	// 非アクティブタイマー(0.2s+2s)ではなく、キルから notify+0.1s で消える
	h.advance(400*time.Millisecond + 1100*time.Millisecond)
	if _, _, ok := h.engine.bullets.Target(attackerA, victim1); ok {
		t.Error("record not removed after the kill display window")
	}
}

func TestDeath_CleansUpVictimAsAttacker(t *testing.T) {
	h := newHarness(nil)

	// victim1 は攻撃者としても集計中
	h.fire(victim1, "ak47")
	h.damage(victim1, attackerA, "ak47", 27, 73)
	h.damage(victim1, attackerB, "hegrenade", 40, 60)

	_ = h.engine.OnPlayerDeath(h.ctx, PlayerDeathEvent{Attacker: attackerA, Victim: victim1, Weapon: "ak47"})

	if _, _, ok := h.engine.shots.Current(victim1); ok {
		t.Error("dead player's shot survived")
	}
	if _, ok := h.engine.bullets.aggregates[victim1]; ok {
		t.Error("dead player's bullet aggregate survived")
	}
	if _, _, ok := h.engine.explosives.Window(victim1, CategoryHE); ok {
		t.Error("dead player's HE window survived")
	}
	if got := h.text(victim1); got != "" {
		t.Errorf("dead player's hit notice survived: %q", got)
	}
	if got := h.text(attackerA); got == "" {
		t.Error("killer has no kill message")
	}
}

func TestDeath_Filters(t *testing.T) {
	h := newHarness(nil)

	if err := h.engine.OnPlayerDeath(h.ctx, PlayerDeathEvent{Attacker: attackerA}); !errors.Is(err, ErrInvalidPlayer) {
		t.Errorf("invalid victim: err = %v, want ErrInvalidPlayer", err)
	}
	_ = h.engine.OnPlayerDeath(h.ctx, PlayerDeathEvent{Attacker: victim1, Victim: victim1, Weapon: "ak47"})
	_ = h.engine.OnPlayerDeath(h.ctx, PlayerDeathEvent{Victim: victim1, Weapon: "world"})
	_ = h.engine.OnPlayerDeath(h.ctx, PlayerDeathEvent{
		Attacker: attackerA, Victim: victim1, Weapon: "ak47", AttackerTeam: TeamCT, VictimTeam: TeamCT,
	})
	if n := h.engine.Stats().Bullet.TargetEntries; n != 0 {
		t.Errorf("TargetEntries = %d, want 0", n)
	}
	if h.engine.surface.Len() != 0 {
		t.Errorf("surface has %d entries, want 0", h.engine.surface.Len())
	}
}

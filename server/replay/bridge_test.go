package replay

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/markus-wa/demoinfocs-golang/v5/pkg/demoinfocs/common"
	"github.com/markus-wa/demoinfocs-golang/v5/pkg/demoinfocs/events"

	"showdamage/config"
	"showdamage/deadline"
	"showdamage/engine"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

type recordingSink struct {
	damage      []engine.DamageEvent
	fires       []engine.WeaponFireEvent
	deaths      []engine.PlayerDeathEvent
	disconnects []engine.PlayerDisconnectEvent
	roundEnds   int
	ticks       int
}

func (s *recordingSink) OnDamage(_ context.Context, ev engine.DamageEvent) error {
	s.damage = append(s.damage, ev)
	if !ev.Attacker.Valid() {
		return engine.ErrInvalidPlayer
	}
	return nil
}

func (s *recordingSink) OnWeaponFire(_ context.Context, ev engine.WeaponFireEvent) error {
	s.fires = append(s.fires, ev)
	return nil
}

func (s *recordingSink) OnPlayerDeath(_ context.Context, ev engine.PlayerDeathEvent) error {
	s.deaths = append(s.deaths, ev)
	return nil
}

func (s *recordingSink) OnRoundEnd(context.Context) error { s.roundEnds++; return nil }

func (s *recordingSink) OnPlayerDisconnect(_ context.Context, ev engine.PlayerDisconnectEvent) error {
	s.disconnects = append(s.disconnects, ev)
	return nil
}

func (s *recordingSink) Tick(context.Context) int { s.ticks++; return 0 }

func terrorist(userID int) *common.Player {
	return &common.Player{UserID: userID, Team: common.TeamTerrorists}
}

func counterTerrorist(userID int) *common.Player {
	return &common.Player{UserID: userID, Team: common.TeamCounterTerrorists}
}

func TestBridge_PlayerHurt(t *testing.T) {
	sink := &recordingSink{}
	b := NewBridge(context.Background(), sink, deadline.NewWheel(epoch), epoch)

	b.PlayerHurt(events.PlayerHurt{
		Player:       counterTerrorist(4),
		Attacker:     terrorist(0),
		Health:       73,
		Weapon:       &common.Equipment{Type: common.EqAK47},
		HealthDamage: 27,
		HitGroup:     events.HitGroupHead,
	})

	if len(sink.damage) != 1 {
		t.Fatalf("damage events = %d, want 1", len(sink.damage))
	}
	got := sink.damage[0]
	want := engine.DamageEvent{
		Victim:       5,
		Attacker:     1,
		Weapon:       "ak47",
		Damage:       27,
		VictimTeam:   engine.TeamCT,
		AttackerTeam: engine.TeamT,
		HitLocation:  engine.HitHead,
		HealthAfter:  73,
	}
	if got != want {
		t.Errorf("DamageEvent = %+v, want %+v", got, want)
	}
}

func TestBridge_WorldDamageIgnored(t *testing.T) {
	sink := &recordingSink{}
	b := NewBridge(context.Background(), sink, deadline.NewWheel(epoch), epoch)

	b.PlayerHurt(events.PlayerHurt{Player: counterTerrorist(2), Health: 90, HealthDamage: 10, WeaponString: "World"})

	if sink.damage[0].Attacker != engine.NoPlayer {
		t.Errorf("Attacker = %d, want NoPlayer", sink.damage[0].Attacker)
	}
	if sink.damage[0].Weapon != "world" {
		t.Errorf("Weapon = %q, want world", sink.damage[0].Weapon)
	}
	if b.Events != 1 || b.Ignored != 1 {
		t.Errorf("Events/Ignored = %d/%d, want 1/1", b.Events, b.Ignored)
	}
}

func TestBridge_FireKillRoundDisconnect(t *testing.T) {
	sink := &recordingSink{}
	b := NewBridge(context.Background(), sink, deadline.NewWheel(epoch), epoch)

	b.WeaponFire(events.WeaponFire{Shooter: terrorist(1), Weapon: &common.Equipment{Type: common.EqAWP}})
	b.Kill(events.Kill{Victim: counterTerrorist(2), Killer: terrorist(1), Weapon: &common.Equipment{Type: common.EqAWP}, IsHeadshot: true})
	b.RoundEnd(events.RoundEnd{})
	b.PlayerDisconnected(events.PlayerDisconnected{Player: terrorist(1)})

	if len(sink.fires) != 1 || sink.fires[0] != (engine.WeaponFireEvent{Attacker: 2, Weapon: "awp"}) {
		t.Errorf("fires = %+v", sink.fires)
	}
	if len(sink.deaths) != 1 {
		t.Fatalf("deaths = %d, want 1", len(sink.deaths))
	}
	if d := sink.deaths[0]; d.Victim != 3 || d.Attacker != 2 || !d.Headshot || d.VictimTeam != engine.TeamCT {
		t.Errorf("death = %+v", d)
	}
	if sink.roundEnds != 1 {
		t.Errorf("round ends = %d, want 1", sink.roundEnds)
	}
	if len(sink.disconnects) != 1 || sink.disconnects[0].Player != 2 {
		t.Errorf("disconnects = %+v", sink.disconnects)
	}
}

func TestWeaponName(t *testing.T) {
	tests := []struct {
		eq   *common.Equipment
		want string
	}{
		{&common.Equipment{Type: common.EqHE}, "hegrenade"},
		{&common.Equipment{Type: common.EqMolotov}, "molotov"},
		{&common.Equipment{Type: common.EqIncendiary}, "incgrenade"},
		{&common.Equipment{Type: common.EqM4A4}, "m4a1"},
		{&common.Equipment{Type: common.EqScout}, "ssg08"},
		{&common.Equipment{Type: common.EqAWP}, "awp"},
		{nil, "inferno"},
	}
	for _, tt := range tests {
		if got := weaponName(tt.eq, "Inferno"); got != tt.want {
			t.Errorf("weaponName(%v) = %q, want %q", tt.eq, got, tt.want)
		}
	}
	// 分類と整合すること
	if c := engine.Classify(weaponName(&common.Equipment{Type: common.EqIncendiary}, "")); c != engine.CategoryIncendiary {
		t.Errorf("incendiary classified as %v", c)
	}
}

func TestBridge_FrameAdvancesClock(t *testing.T) {
	sink := &recordingSink{}
	wheel := deadline.NewWheel(epoch)
	b := NewBridge(context.Background(), sink, wheel, epoch)

	fired := false
	wheel.AfterFunc(time.Second, func() { fired = true })

	b.Frame(500 * time.Millisecond)
	if fired {
		t.Error("timer fired early")
	}
	b.Frame(time.Second)
	if !fired {
		t.Error("timer did not fire at demo time 1s")
	}
	if sink.ticks != 2 || b.Frames != 2 {
		t.Errorf("ticks/frames = %d/%d, want 2/2", sink.ticks, b.Frames)
	}
}

type settings struct{ cfg config.Config }

func (s *settings) Load() config.Config { return s.cfg }

// 実際のエンジンに流し、HUDの変化が時刻付きで書き出されることを確認する
func TestTranscript_RecordsHUDChanges(t *testing.T) {
	wheel := deadline.NewWheel(epoch)
	var out bytes.Buffer
	transcript := NewTranscript(&out, wheel.Now, epoch)
	eng, err := engine.New(wheel, &settings{cfg: config.Default()}, transcript)
	if err != nil {
		t.Fatalf("engine.New() error = %v", err)
	}
	b := NewBridge(context.Background(), eng, wheel, epoch)

	b.Frame(100 * time.Millisecond)
	b.PlayerHurt(events.PlayerHurt{
		Player:       counterTerrorist(4),
		Attacker:     terrorist(0),
		Health:       80,
		Weapon:       &common.Equipment{Type: common.EqHE},
		HealthDamage: 20,
	})
	for f := 2; f <= 10; f++ {
		b.Frame(time.Duration(f) * 50 * time.Millisecond)
	}

	if transcript.Lines != 1 {
		t.Fatalf("Lines = %d, want 1:\n%s", transcript.Lines, out.String())
	}
	if got := out.String(); !strings.HasPrefix(got, "[00:00.100] player 1: -20 HP [80 HP]") {
		t.Errorf("transcript = %q", got)
	}
}

func TestFormatElapsed(t *testing.T) {
	if got := formatElapsed(83*time.Second + 250*time.Millisecond); got != "01:23.250" {
		t.Errorf("formatElapsed() = %q, want 01:23.250", got)
	}
}

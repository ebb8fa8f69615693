package engine

import (
	"context"
	"strings"
	"time"

	"showdamage/config"
	"showdamage/deadline"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

const (
	attackerA PlayerID = 1
	attackerB PlayerID = 2
	victim1   PlayerID = 11
	victim2   PlayerID = 12
	victim3   PlayerID = 13
)

type staticSettings struct {
	cfg config.Config
}

func (s *staticSettings) Load() config.Config { return s.cfg }

type renderFrame struct {
	player PlayerID
	text   string
}

type recordingRenderer struct {
	frames []renderFrame
}

func (r *recordingRenderer) RenderText(player PlayerID, markup string) {
	r.frames = append(r.frames, renderFrame{player: player, text: StripMarkup(markup)})
}

func (r *recordingRenderer) contains(substr string) bool {
	for _, f := range r.frames {
		if strings.Contains(f.text, substr) {
			return true
		}
	}
	return false
}

// harness は仮想時計で駆動されるエンジンです。
type harness struct {
	ctx      context.Context
	wheel    *deadline.Wheel
	settings *staticSettings
	renderer *recordingRenderer
	engine   *Engine
}

func newHarness(mutate func(*config.Config)) *harness {
	cfg := config.Default()
	if mutate != nil {
		mutate(&cfg)
	}
	h := &harness{
		ctx:      context.Background(),
		wheel:    deadline.NewWheel(epoch),
		settings: &staticSettings{cfg: cfg},
		renderer: &recordingRenderer{},
	}
	e, err := New(h.wheel, h.settings, h.renderer)
	if err != nil {
		panic(err)
	}
	h.engine = e
	return h
}

// advance は仮想時刻を epoch+d まで進めます。
func (h *harness) advance(d time.Duration) {
	h.wheel.Advance(epoch.Add(d))
}

// at は仮想時刻を epoch+d まで進め、1tick分描画します。
func (h *harness) at(d time.Duration) {
	h.advance(d)
	h.engine.Tick(h.ctx)
}

func (h *harness) fire(attacker PlayerID, weapon string) {
	_ = h.engine.OnWeaponFire(h.ctx, WeaponFireEvent{Attacker: attacker, Weapon: weapon})
}

func (h *harness) damage(attacker, victim PlayerID, weapon string, dmg, health int) {
	_ = h.engine.OnDamage(h.ctx, DamageEvent{
		Attacker:     attacker,
		Victim:       victim,
		Weapon:       weapon,
		Damage:       dmg,
		AttackerTeam: TeamT,
		VictimTeam:   TeamCT,
		HealthAfter:  health,
	})
}

// text は attacker の現在の通知をタグなしで返します。
func (h *harness) text(attacker PlayerID) string {
	markup, _, ok := h.engine.surface.Text(attacker)
	if !ok {
		return ""
	}
	return StripMarkup(markup)
}

func (h *harness) kind(attacker PlayerID) NoticeKind {
	_, kind, _ := h.engine.surface.Text(attacker)
	return kind
}

package engine

import (
	"testing"

	"pgregory.net/rapid"
)

func TestDamageColor_Boundaries(t *testing.T) {
	tests := []struct {
		damage int
		want   string
	}{
		{1, "green"},
		{25, "green"},
		{26, "yellow"},
		{50, "yellow"},
		{51, "orange"},
		{75, "orange"},
		{76, "red"},
		{500, "red"},
	}
	for _, tt := range tests {
		if got := DamageColor(tt.damage, false, false); got != tt.want {
			t.Errorf("DamageColor(%d) = %q, want %q", tt.damage, got, tt.want)
		}
	}
}

func TestDamageColor_IgnoresFlags(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		damage := rapid.IntRange(-50, 500).Draw(t, "damage")
		headshot := rapid.Bool().Draw(t, "headshot")
		kill := rapid.Bool().Draw(t, "kill")
		if got, want := DamageColor(damage, headshot, kill), DamageColor(damage, false, false); got != want {
			t.Fatalf("DamageColor(%d, %v, %v) = %q, want %q", damage, headshot, kill, got, want)
		}
	})
}

func TestHitMessage(t *testing.T) {
	got := hitMessage(20, 80, false, false)
	want := "-<font color='green'>20</font> <font color='white'>HP</font> [80 HP]"
	if got != want {
		t.Errorf("hitMessage = %q, want %q", got, want)
	}
	if got := StripMarkup(hitMessage(140, 0, true, true)); got != "-140 HP [KILLED]" {
		t.Errorf("kill message = %q, want %q", got, "-140 HP [KILLED]")
	}
}

func TestRenderTemplate(t *testing.T) {
	tests := []struct {
		template string
		want     string
	}{
		{"{totalDamage} HP / {victimCount}", "35 HP / 2"},
		{"{0} HP / {1}", "35 HP / 2"},
		{"no placeholders", "no placeholders"},
	}
	for _, tt := range tests {
		if got := RenderTemplate(tt.template, 35, 2); got != tt.want {
			t.Errorf("RenderTemplate(%q) = %q, want %q", tt.template, got, tt.want)
		}
	}
}

func TestStripMarkup(t *testing.T) {
	got := StripMarkup("Общий урон: <font color='red'>35 HP</font>")
	if got != "Общий урон: 35 HP" {
		t.Errorf("StripMarkup = %q", got)
	}
}

package replay

import (
	"fmt"
	"io"
	"time"

	"showdamage/engine"
)

// Transcript は描画されたHUDの変化だけを時刻付きで書き出す engine.Renderer です。
type Transcript struct {
	w     io.Writer
	now   func() time.Time
	start time.Time
	shown map[engine.PlayerID]string
	Lines int
}

var _ engine.Renderer = (*Transcript)(nil)

func NewTranscript(w io.Writer, now func() time.Time, start time.Time) *Transcript {
	return &Transcript{w: w, now: now, start: start, shown: make(map[engine.PlayerID]string)}
}

func (t *Transcript) RenderText(player engine.PlayerID, markup string) {
	if t.shown[player] == markup {
		return
	}
	t.shown[player] = markup
	elapsed := t.now().Sub(t.start)
	fmt.Fprintf(t.w, "[%s] player %d: %s\n", formatElapsed(elapsed), player, engine.StripMarkup(markup))
	t.Lines++
}

func formatElapsed(d time.Duration) string {
	m := d / time.Minute
	s := (d % time.Minute) / time.Second
	ms := (d % time.Second) / time.Millisecond
	return fmt.Sprintf("%02d:%02d.%03d", m, s, ms)
}

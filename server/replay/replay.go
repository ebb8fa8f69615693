package replay

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	dem "github.com/markus-wa/demoinfocs-golang/v5/pkg/demoinfocs"
	"github.com/markus-wa/demoinfocs-golang/v5/pkg/demoinfocs/events"
)

// Register はパーサーにブリッジのハンドラーを登録します。
func (b *Bridge) Register(p dem.Parser) {
	p.RegisterEventHandler(b.PlayerHurt)
	p.RegisterEventHandler(b.WeaponFire)
	p.RegisterEventHandler(b.Kill)
	p.RegisterEventHandler(b.RoundEnd)
	p.RegisterEventHandler(b.PlayerDisconnected)
	p.RegisterEventHandler(func(events.FrameDone) {
		b.Frame(p.CurrentTime())
	})
}

// File は path のデモを最後まで再生します。パーサーの panic はエラーとして返します。
func File(ctx context.Context, path string, b *Bridge) (err error) {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open demo file: %w", err)
	}
	defer f.Close()

	p := dem.NewParser(f)
	defer p.Close()
	b.Register(p)

	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parser panic: %v", r)
		}
	}()
	if err := p.ParseToEnd(); err != nil {
		return fmt.Errorf("failed to parse demo: %w", err)
	}
	slog.InfoContext(ctx, "replay: demo finished",
		"path", path, "demoTime", p.CurrentTime(), "events", b.Events,
		"ignored", b.Ignored, "frames", b.Frames, "took", time.Since(started))
	return nil
}

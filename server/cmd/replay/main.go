package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"

	"showdamage/config"
	"showdamage/deadline"
	"showdamage/engine"
	"showdamage/server/replay"
)

type replayConfig struct {
	Demo       string `env:"DEMO"`
	ConfigPath string `env:"SHOWDAMAGE_CONFIG" envDefault:"showdamage.yaml"`
}

func main() {
	level := new(slog.LevelVar)
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if err := run(level); err != nil {
		slog.Error("replay failed", "err", err)
		os.Exit(1)
	}
}

func run(level *slog.LevelVar) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var rc replayConfig
	if err := env.Parse(&rc); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if len(os.Args) > 1 {
		rc.Demo = os.Args[1]
	}
	if rc.Demo == "" {
		return fmt.Errorf("usage: %s <demo.dem>", os.Args[0])
	}

	cfg, err := config.Load(rc.ConfigPath)
	if err != nil {
		return err
	}
	if err := config.ApplyEnv(&cfg); err != nil {
		return err
	}
	store := config.NewStore(cfg, level, "")

	// デモ時間 0 を固定の起点にして出力を再現可能にする
	start := time.Unix(0, 0).UTC()
	wheel := deadline.NewWheel(start)
	transcript := replay.NewTranscript(os.Stdout, wheel.Now, start)
	eng, err := engine.New(wheel, store, transcript)
	if err != nil {
		return err
	}

	bridge := replay.NewBridge(ctx, eng, wheel, start)
	if err := replay.File(ctx, rc.Demo, bridge); err != nil {
		return err
	}
	slog.InfoContext(ctx, "replay complete", "lines", transcript.Lines, "pending", wheel.Pending())
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"

	"showdamage/config"
	"showdamage/server"
	"showdamage/server/application"
	"showdamage/server/domain"
)

// ServerConfig はプロセスの設定です。すべて環境変数から読みます。
type ServerConfig struct {
	Addr         string        `env:"ADDR" envDefault:"localhost"`
	Port         string        `env:"PORT" envDefault:"9090"`
	ConfigPath   string        `env:"SHOWDAMAGE_CONFIG" envDefault:"showdamage.yaml"`
	TickRate     int           `env:"TICK_RATE" envDefault:"64"`
	PingInterval time.Duration `env:"PING_INTERVAL" envDefault:"5s"`
	IdleTimeout  time.Duration `env:"IDLE_TIMEOUT" envDefault:"30s"`
}

func main() {
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := run(level); err != nil {
		slog.Error("server failed", "err", err)
		os.Exit(1)
	}
}

func run(level *slog.LevelVar) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var sc ServerConfig
	if err := env.Parse(&sc); err != nil {
		return fmt.Errorf("parse server env: %w", err)
	}
	if sc.TickRate <= 0 {
		return fmt.Errorf("invalid TICK_RATE %d", sc.TickRate)
	}

	cfg, err := config.Load(sc.ConfigPath)
	if err != nil {
		return err
	}
	if err := config.ApplyEnv(&cfg); err != nil {
		return err
	}
	store := config.NewStore(cfg, level, sc.ConfigPath)
	if err := store.Persist(); err != nil {
		slog.WarnContext(ctx, "failed to write settings file", "path", sc.ConfigPath, "err", err)
	}

	endpointCfg := domain.DefaultEndpointConfig()
	endpointCfg.TickInterval = time.Second / time.Duration(sc.TickRate)
	endpointCfg.PingInterval = sc.PingInterval
	endpointCfg.IdleTimeout = sc.IdleTimeout

	s := server.NewServer(fmt.Sprintf("%s:%s", sc.Addr, sc.Port), application.NewFactory(store), endpointCfg)

	errCh := make(chan error, 1)
	go func() {
		if err := s.Serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	slog.InfoContext(ctx, "server listening", "addr", s.Addr(), "tickRate", sc.TickRate, "config", sc.ConfigPath, "enabled", store.Load().Enabled)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}
	slog.InfoContext(ctx, "shutdown initiated", "hosts", s.Hosts())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(ctx, "graceful shutdown failed", "error", err)
		if err := s.Close(); err != nil {
			slog.ErrorContext(ctx, "forced close failed", "error", err)
		}
	}
	slog.InfoContext(ctx, "server shutdown complete")
	return nil
}

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
	"github.com/coder/websocket"

	"showdamage/engine"
	"showdamage/server/application"
	"showdamage/server/domain"
)

// hostConfig はシミュレーションホストの設定です。
type hostConfig struct {
	Addr      string   `env:"ADDR" envDefault:"localhost"`
	Port      string   `env:"PORT" envDefault:"9090"`
	Rounds    int      `env:"ROUNDS" envDefault:"3"`
	Seed      uint64   `env:"SEED" envDefault:"1"`
	Attackers []uint32 `env:"ATTACKERS" envDefault:"1,2,3,4,5" envSeparator:","`
	Victims   []uint32 `env:"VICTIMS" envDefault:"11,12,13,14,15" envSeparator:","`
	Commands  []string `env:"COMMANDS" envDefault:"css_showdamage_settings" envSeparator:";"`
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var cfg hostConfig
	if err := env.Parse(&cfg); err != nil {
		slog.Error("invalid host config", "err", err)
		os.Exit(1)
	}

	serverURL := fmt.Sprintf("ws://%s:%s/ws", cfg.Addr, cfg.Port)
	slog.Info("starting simulated host", "server", serverURL, "rounds", cfg.Rounds)
	if err := hostSession(ctx, serverURL, cfg); err != nil && ctx.Err() == nil {
		slog.Error("host session ended", "err", err)
		os.Exit(1)
	}
	slog.Info("simulated host stopped")
}

func hostSession(ctx context.Context, serverURL string, cfg hostConfig) error {
	conn, _, err := websocket.Dial(ctx, serverURL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.CloseNow()

	assigned := make(chan domain.SessionID, 1)
	readErr := make(chan error, 1)
	go func() { readErr <- readLoop(ctx, conn, assigned) }()

	var sessionID domain.SessionID
	select {
	case sessionID = <-assigned:
	case err := <-readErr:
		return err
	case <-ctx.Done():
		return nil
	}
	slog.Info("session assigned", "sessionID", sessionID)

	var seq uint16
	send := func(dataType domain.DataType, subType uint8, body []byte) error {
		seq++
		return conn.Write(ctx, websocket.MessageBinary, domain.EncodeMessage(sessionID, seq, dataType, subType, body))
	}

	for _, line := range cfg.Commands {
		body := (&domain.TextPayload{Player: uint32(engine.NoPlayer), Text: line}).Encode()
		if err := send(domain.DataTypeCommand, uint8(domain.CommandSubTypeRequest), body); err != nil {
			return fmt.Errorf("write command: %w", err)
		}
	}

	for round := range cfg.Rounds {
		slog.Info("round start", "round", round+1)
		script := application.NewRoundScript(cfg.Seed+uint64(round), cfg.Attackers, cfg.Victims)
		for _, act := range script.Actions() {
			if err := sleep(ctx, act.After); err != nil {
				conn.Close(websocket.StatusNormalClosure, "shutdown")
				return nil
			}
			if err := send(domain.DataTypeEvent, uint8(act.SubType), act.Body); err != nil {
				return fmt.Errorf("write event: %w", err)
			}
		}
		// 集計通知が消えるまで待つ
		if err := sleep(ctx, 3*time.Second); err != nil {
			break
		}
	}

	conn.Close(websocket.StatusNormalClosure, "done")
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// readLoop はサーバーからのフレームを処理します。描画は内容が変わったときだけログに出します。
func readLoop(ctx context.Context, conn *websocket.Conn, assigned chan<- domain.SessionID) error {
	shown := make(map[uint32]string)
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		frame, err := domain.ParseFrame(data)
		if err != nil {
			slog.Warn("failed to parse frame", "err", err)
			continue
		}

		switch frame.Payload.DataType {
		case domain.DataTypeControl:
			switch domain.ControlSubType(frame.Payload.SubType) {
			case domain.ControlSubTypeAssign:
				assigned <- domain.SessionIDFromBytes(frame.Header.SessionID)
			case domain.ControlSubTypePing:
				pong := domain.EncodePongMessage(domain.SessionIDFromBytes(frame.Header.SessionID), frame.Header.Seq)
				if err := conn.Write(ctx, websocket.MessageBinary, pong); err != nil {
					return fmt.Errorf("write pong: %w", err)
				}
			}
		case domain.DataTypeRender:
			p, err := domain.ParseTextPayload(frame.Body)
			if err != nil {
				continue
			}
			if shown[p.Player] == p.Text {
				continue
			}
			shown[p.Player] = p.Text
			slog.Info("hud", "player", p.Player, "text", engine.StripMarkup(p.Text))
		case domain.DataTypeCommand:
			if p, err := domain.ParseTextPayload(frame.Body); err == nil {
				fmt.Println(p.Text)
			}
		}
	}
}

package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"showdamage/admin"
	"showdamage/config"
	"showdamage/deadline"
	"showdamage/engine"
	"showdamage/server/domain"
)

// ShowDamageApplication は1つのホスト（ゲームサーバー）分のダメージ表示を担当します。
// エンジン、仮想時計、管理コンソールはセッションごとに独立しています。
type ShowDamageApplication struct {
	session *domain.Session
	sender  domain.Sender

	wheel    *deadline.Wheel
	engine   *engine.Engine
	console  *admin.Console
	renderer *hostRenderer
}

var _ domain.Application = (*ShowDamageApplication)(nil)

// NewFactory は store を共有する ShowDamageApplication を生成するファクトリを返します。
func NewFactory(store *config.Store) domain.ApplicationFactory {
	return func(session *domain.Session, sender domain.Sender) (domain.Application, error) {
		return NewShowDamageApplication(session, sender, store, time.Now())
	}
}

func NewShowDamageApplication(session *domain.Session, sender domain.Sender, store *config.Store, start time.Time) (*ShowDamageApplication, error) {
	if session == nil || sender == nil || store == nil {
		return nil, fmt.Errorf("%w: session, sender and store are required", engine.ErrInitializationFailed)
	}
	app := &ShowDamageApplication{
		session:  session,
		sender:   sender,
		wheel:    deadline.NewWheel(start),
		renderer: newHostRenderer(session.ID(), sender),
	}
	eng, err := engine.New(app.wheel, store, app.renderer)
	if err != nil {
		return nil, err
	}
	console, err := admin.NewConsole(store, eng)
	if err != nil {
		return nil, err
	}
	app.engine = eng
	app.console = console
	return app, nil
}

func (app *ShowDamageApplication) HandleFrame(ctx context.Context, frame *domain.Frame) error {
	switch frame.Payload.DataType {
	case domain.DataTypeEvent:
		err := app.handleEvent(ctx, domain.EventSubType(frame.Payload.SubType), frame.Body)
		if errors.Is(err, engine.ErrInvalidPlayer) {
			// ワールドダメージなど攻撃者のいないイベントは日常的に届く
			slog.DebugContext(ctx, "event ignored", "sessionID", app.session.ID(), "err", err)
			return nil
		}
		return err
	case domain.DataTypeCommand:
		return app.handleCommand(ctx, domain.CommandSubType(frame.Payload.SubType), frame)
	default:
		slog.WarnContext(ctx, "unknown data type", "dataType", frame.Payload.DataType)
		return nil
	}
}

func (app *ShowDamageApplication) handleEvent(ctx context.Context, subType domain.EventSubType, body []byte) error {
	switch subType {
	case domain.EventSubTypeDamage:
		p, err := domain.ParseDamagePayload(body)
		if err != nil {
			return err
		}
		return app.engine.OnDamage(ctx, damageEvent(p))
	case domain.EventSubTypeWeaponFire:
		p, err := domain.ParseWeaponFirePayload(body)
		if err != nil {
			return err
		}
		return app.engine.OnWeaponFire(ctx, engine.WeaponFireEvent{
			Attacker: engine.PlayerID(p.Attacker),
			Weapon:   p.Weapon,
		})
	case domain.EventSubTypeDeath:
		p, err := domain.ParseDeathPayload(body)
		if err != nil {
			return err
		}
		return app.engine.OnPlayerDeath(ctx, engine.PlayerDeathEvent{
			Victim:       engine.PlayerID(p.Victim),
			Attacker:     engine.PlayerID(p.Attacker),
			Weapon:       p.Weapon,
			Headshot:     p.Headshot,
			VictimTeam:   engine.Team(p.VictimTeam),
			AttackerTeam: engine.Team(p.AttackerTeam),
		})
	case domain.EventSubTypeRoundEnd:
		return app.engine.OnRoundEnd(ctx)
	case domain.EventSubTypeDisconnect:
		p, err := domain.ParseDisconnectPayload(body)
		if err != nil {
			return err
		}
		return app.engine.OnPlayerDisconnect(ctx, engine.PlayerDisconnectEvent{Player: engine.PlayerID(p.Player)})
	default:
		slog.WarnContext(ctx, "unknown event subtype", "subType", subType)
		return nil
	}
}

func damageEvent(p *domain.DamagePayload) engine.DamageEvent {
	hit := engine.HitGeneric
	if p.HitGroup == uint8(engine.HitHead) {
		hit = engine.HitHead
	}
	return engine.DamageEvent{
		Victim:       engine.PlayerID(p.Victim),
		Attacker:     engine.PlayerID(p.Attacker),
		Weapon:       p.Weapon,
		Damage:       int(p.Damage),
		VictimTeam:   engine.Team(p.VictimTeam),
		AttackerTeam: engine.Team(p.AttackerTeam),
		HitLocation:  hit,
		HealthAfter:  int(p.Health),
	}
}

// handleCommand は管理コマンドを実行し、結果を Command/Reply として送り返します。
// コマンドの失敗は返信テキストで伝え、ループにはエラーを返しません。
func (app *ShowDamageApplication) handleCommand(ctx context.Context, subType domain.CommandSubType, frame *domain.Frame) error {
	if subType != domain.CommandSubTypeRequest {
		slog.WarnContext(ctx, "unknown command subtype", "subType", subType)
		return nil
	}
	req, err := domain.ParseTextPayload(frame.Body)
	if err != nil {
		return err
	}
	caller := engine.PlayerID(req.Player)
	reply, err := app.console.Execute(ctx, caller, req.Text)
	if err != nil {
		slog.InfoContext(ctx, "command failed", "sessionID", app.session.ID(), "caller", caller, "err", err)
		reply = "[ShowDamage] " + err.Error()
	}
	body := (&domain.TextPayload{Player: req.Player, Text: reply}).Encode()
	msg := domain.EncodeMessage(app.session.ID(), frame.Header.Seq, domain.DataTypeCommand, uint8(domain.CommandSubTypeReply), body)
	if err := app.sender.Send(msg); err != nil {
		return fmt.Errorf("send command reply: %w", err)
	}
	return nil
}

// Tick は仮想時計を now まで進めて期限の来たタイマーを実行し、その後HUDを描画します。
func (app *ShowDamageApplication) Tick(ctx context.Context, now time.Time) {
	fired := app.wheel.Advance(now)
	rendered := app.engine.Tick(ctx)
	if fired > 0 {
		slog.Log(ctx, slog.LevelDebug-4, "tick", "sessionID", app.session.ID(), "fired", fired, "rendered", rendered)
	}
}

// Stats はエンジンの集計状態を返します。
func (app *ShowDamageApplication) Stats() engine.Stats { return app.engine.Stats() }

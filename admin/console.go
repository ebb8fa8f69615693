package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"showdamage/config"
	"showdamage/engine"
)

const (
	commandPrefix = "css_showdamage_"
	replyPrefix   = "[ShowDamage] "

	testMarkup   = "<font color='green'>Тест ShowDamage</font>"
	testDuration = 2 * time.Second
)

var (
	// ErrUnknownCommand は登録されていないコマンドが実行された場合に返されるエラーです。
	ErrUnknownCommand = errors.New("admin: unknown command")
	// ErrInvalidArgument はコマンドの引数が解釈できない場合に返されるエラーです。
	ErrInvalidArgument = errors.New("admin: invalid argument")
	// ErrPlayerRequired はプレイヤーからのみ実行できるコマンドをサーバーが実行した場合に返されるエラーです。
	ErrPlayerRequired = errors.New("admin: command is only available to players")
)

// Store は共有設定の読み書き口です。config.Store が実装します。
type Store interface {
	Load() config.Config
	Update(fn func(*config.Config)) config.Config
	Replace(cfg config.Config) config.Config
	Persist() error
	Path() string
}

// Engine はコンソールが操作するホスト単位のエンジンです。
type Engine interface {
	ClearAllDamage() int
	ClearHUD() int
	Notify(player engine.PlayerID, markup string, ttl time.Duration) error
	Stats() engine.Stats
}

type command struct {
	name  string
	usage string
	help  string
	run   func(ctx context.Context, caller engine.PlayerID, args []string) (string, error)
}

// Console は css_showdamage_* の管理コマンドを解釈します。
// Engine と同じゴルーチンから呼ぶこと。
type Console struct {
	store    Store
	engine   Engine
	commands map[string]*command
	order    []string
}

var (
	_ Store  = (*config.Store)(nil)
	_ Engine = (*engine.Engine)(nil)
)

func NewConsole(store Store, eng Engine) (*Console, error) {
	if store == nil || eng == nil {
		return nil, errors.New("admin: store and engine are required")
	}
	c := &Console{
		store:    store,
		engine:   eng,
		commands: make(map[string]*command),
	}
	c.register(&command{name: "help", help: "show this help", run: c.help})
	c.register(&command{name: "settings", help: "show current settings and active data", run: c.settings})
	c.register(&command{name: "test", help: "show a test notification", run: c.test})
	c.register(&command{name: "reload", help: "reload the settings file", run: c.reload})
	c.register(&command{name: "cleardamage", help: "clear all accumulated damage", run: c.clearDamage})
	c.register(&command{name: "toggle", usage: "[0/1]", help: "turn the plugin on or off", run: c.toggle})
	for _, f := range fields {
		c.register(&command{name: "set" + f.command, usage: f.usage, help: f.help, run: c.setter(f)})
	}
	return c, nil
}

func (c *Console) register(cmd *command) {
	c.commands[cmd.name] = cmd
	c.order = append(c.order, cmd.name)
}

// Execute はコマンド行を1つ実行し、返信テキストを返します。
// caller が NoPlayer のときはサーバーコンソールからの実行です。
func (c *Console) Execute(ctx context.Context, caller engine.PlayerID, line string) (string, error) {
	args := strings.Fields(line)
	if len(args) == 0 {
		return "", fmt.Errorf("%w: empty line", ErrUnknownCommand)
	}
	name := strings.ToLower(args[0])
	cmd, ok := c.commands[strings.TrimPrefix(name, commandPrefix)]
	if !ok || !strings.HasPrefix(name, commandPrefix) {
		return "", fmt.Errorf("%w: %s", ErrUnknownCommand, args[0])
	}
	slog.InfoContext(ctx, "admin: command", "caller", caller, "command", name, "args", len(args)-1)
	reply, err := cmd.run(ctx, caller, args[1:])
	if err != nil {
		return "", err
	}
	return replyPrefix + reply, nil
}

// Usage はコマンドの使い方を1行で返します。
func (c *Console) Usage(name string) string {
	cmd, ok := c.commands[strings.TrimPrefix(strings.ToLower(name), commandPrefix)]
	if !ok {
		return ""
	}
	if cmd.usage == "" {
		return commandPrefix + cmd.name
	}
	return commandPrefix + cmd.name + " " + cmd.usage
}

func (c *Console) help(context.Context, engine.PlayerID, []string) (string, error) {
	var b strings.Builder
	b.WriteString("console commands:\n")
	for _, name := range c.order {
		cmd := c.commands[name]
		fmt.Fprintf(&b, "  %-52s %s\n", c.Usage(name), cmd.help)
	}
	return strings.TrimSuffix(b.String(), "\n"), nil
}

func (c *Console) settings(context.Context, engine.PlayerID, []string) (string, error) {
	cfg := c.store.Load()
	st := c.engine.Stats()

	var b strings.Builder
	b.WriteString("current settings:\n")
	for _, f := range fields {
		fmt.Fprintf(&b, "  %s: %s\n", f.key, f.get(cfg))
	}
	b.WriteString("active data:\n")
	fmt.Fprintf(&b, "  hud notifications: %d (totals: %d)\n", st.Notifications, st.TotalNotifications)
	fmt.Fprintf(&b, "  active shots: %d\n", st.Shots)
	fmt.Fprintf(&b, "  he grenades: %d\n", st.Explosive.HE)
	fmt.Fprintf(&b, "  incendiaries: %d\n", st.Explosive.Incendiary)
	fmt.Fprintf(&b, "  bullet aggregates: %d\n", st.Bullet.Aggregates)
	fmt.Fprintf(&b, "  single target entries: %d\n", st.Bullet.TargetEntries)
	fmt.Fprintf(&b, "  grenade damage: %d HP (%d players)\n", st.Explosive.Damage, st.Explosive.Victims)
	fmt.Fprintf(&b, "  bullet damage: %d HP (%d players, killed: %d)", st.Bullet.Damage, st.Bullet.Victims, st.Bullet.Killed)
	return b.String(), nil
}

func (c *Console) test(_ context.Context, caller engine.PlayerID, _ []string) (string, error) {
	if !caller.Valid() {
		return "", ErrPlayerRequired
	}
	if err := c.engine.Notify(caller, testMarkup, testDuration); err != nil {
		return "", err
	}
	cfg := c.store.Load()
	return fmt.Sprintf("plugin is running: enabled=%s notify_duration=%s log_level=%d grenade_total=%s bullet_total=%s, test notification sent to HUD",
		formatBool(cfg.Enabled), formatFloat(cfg.NotifyDuration), cfg.LogLevel,
		formatBool(cfg.GrenadeTotalEnabled), formatBool(cfg.BulletTotalEnabled)), nil
}

func (c *Console) reload(ctx context.Context, _ engine.PlayerID, _ []string) (string, error) {
	cfg := config.Default()
	if path := c.store.Path(); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return "", fmt.Errorf("admin: reload: %w", err)
		}
		cfg = loaded
	}
	if err := config.ApplyEnv(&cfg); err != nil {
		return "", fmt.Errorf("admin: reload: %w", err)
	}
	c.store.Replace(cfg)
	c.persist(ctx)

	hud := c.engine.ClearHUD()
	cleared := c.engine.ClearAllDamage()
	slog.InfoContext(ctx, "admin: settings reloaded", "path", c.store.Path(), "notifications", hud, "records", cleared)
	return "settings reloaded.", nil
}

func (c *Console) clearDamage(ctx context.Context, _ engine.PlayerID, _ []string) (string, error) {
	n := c.engine.ClearAllDamage()
	slog.InfoContext(ctx, "admin: damage cleared", "records", n)
	return fmt.Sprintf("cleared %d damage records.", n), nil
}

// toggle は引数なしで有効状態を反転し、0/1 が与えられればその値にします。
func (c *Console) toggle(ctx context.Context, caller engine.PlayerID, args []string) (string, error) {
	if len(args) == 0 {
		args = []string{formatBool(!c.store.Load().Enabled)}
	}
	return c.setter(fields[0])(ctx, caller, args)
}

func (c *Console) setter(f field) func(context.Context, engine.PlayerID, []string) (string, error) {
	return func(ctx context.Context, _ engine.PlayerID, args []string) (string, error) {
		cfg := c.store.Load()
		if len(args) == 0 {
			return fmt.Sprintf("current %s: %s. usage: %s", f.key, f.get(cfg), c.Usage("set"+f.command)), nil
		}
		old := f.get(cfg)
		var perr error
		next := c.store.Update(func(cfg *config.Config) {
			perr = f.set(cfg, args)
		})
		if perr != nil {
			return "", fmt.Errorf("%w: %v, usage: %s", ErrInvalidArgument, perr, c.Usage("set"+f.command))
		}
		c.persist(ctx)
		if cfg.Enabled && !next.Enabled {
			hud := c.engine.ClearHUD()
			cleared := c.engine.ClearAllDamage()
			slog.InfoContext(ctx, "admin: plugin disabled, state cleared", "notifications", hud, "records", cleared)
		}
		if f.text {
			return fmt.Sprintf("%s changed.", f.key), nil
		}
		return fmt.Sprintf("%s changed from %s to %s.", f.key, old, f.get(next)), nil
	}
}

func (c *Console) persist(ctx context.Context) {
	if err := c.store.Persist(); err != nil {
		slog.WarnContext(ctx, "admin: failed to save settings", "path", c.store.Path(), "err", err)
	}
}

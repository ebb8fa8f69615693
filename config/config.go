package config

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	DefaultGrenadeTotalMessage = "Общий урон от гранаты: <font color='red'>{totalDamage} HP</font> (поражено: <font color='green'>{victimCount} игроков</font>)"
	DefaultMolotovTotalMessage = "Общий урон от молотова: <font color='red'>{totalDamage} HP</font> (поражено: <font color='green'>{victimCount} игроков</font>)"
	DefaultBulletTotalMessage  = "Общий урон: <font color='red'>{totalDamage} HP</font> (поражено: <font color='green'>{victimCount} игроков</font>)"
)

// Config はプラグインの設定値です。秒単位の値は float64 で保持します。
type Config struct {
	Enabled        bool    `yaml:"css_showdamage_enabled" env:"ENABLED"`
	NotifyDuration float64 `yaml:"css_showdamage_notify_duration" env:"NOTIFY_DURATION"`
	LogLevel       int     `yaml:"css_showdamage_log_level" env:"LOG_LEVEL"`
	HudColorMode   int     `yaml:"css_showdamage_hud_color_mode" env:"HUD_COLOR_MODE"`

	GrenadeTotalEnabled        bool    `yaml:"css_showdamage_grenade_total_enabled" env:"GRENADE_TOTAL_ENABLED"`
	GrenadeTotalDuration       float64 `yaml:"css_showdamage_grenade_total_duration" env:"GRENADE_TOTAL_DURATION"`
	MolotovAggregationDuration float64 `yaml:"css_showdamage_molotov_aggregation_duration" env:"MOLOTOV_AGGREGATION_DURATION"`
	GrenadeTotalMessage        string  `yaml:"css_showdamage_grenade_total_message" env:"GRENADE_TOTAL_MESSAGE"`
	MolotovTotalMessage        string  `yaml:"css_showdamage_molotov_total_message" env:"MOLOTOV_TOTAL_MESSAGE"`

	BulletTotalEnabled    bool    `yaml:"css_showdamage_bullet_total_enabled" env:"BULLET_TOTAL_ENABLED"`
	BulletAggregationTime float64 `yaml:"css_showdamage_bullet_aggregation_time" env:"BULLET_AGGREGATION_TIME"`
	BulletTotalMessage    string  `yaml:"css_showdamage_bullet_total_message" env:"BULLET_TOTAL_MESSAGE"`
}

// 値域
const (
	MinNotifyDuration = 0.1
	MaxNotifyDuration = 10.0
	MinLogLevel       = 0
	MaxLogLevel       = 5
	HudColorModeFixed = 1

	MinGrenadeTotalDuration       = 1.0
	MaxGrenadeTotalDuration       = 10.0
	MinMolotovAggregationDuration = 1.0
	MaxMolotovAggregationDuration = 15.0
	MinBulletAggregationTime      = 0.05
	MaxBulletAggregationTime      = 5.0
)

func Default() Config {
	return Config{
		Enabled:                    true,
		NotifyDuration:             1.0,
		LogLevel:                   4,
		HudColorMode:               HudColorModeFixed,
		GrenadeTotalEnabled:        true,
		GrenadeTotalDuration:       3.0,
		MolotovAggregationDuration: 7.0,
		GrenadeTotalMessage:        DefaultGrenadeTotalMessage,
		MolotovTotalMessage:        DefaultMolotovTotalMessage,
		BulletTotalEnabled:         true,
		BulletAggregationTime:      0.3,
		BulletTotalMessage:         DefaultBulletTotalMessage,
	}
}

// Clamp は範囲外の値を補正し、補正したフィールド名を返します。
// 値は拒否せず、補正ごとに warn ログを1行出します。
func (c *Config) Clamp() []string {
	var fixed []string
	clampFloat := func(name string, v *float64, lo, hi float64) {
		n := *v
		if math.IsNaN(n) {
			n = lo
		}
		n = min(max(n, lo), hi)
		if n != *v {
			slog.Warn("config: value out of range, corrected", "field", name, "value", *v, "corrected", n)
			*v = n
			fixed = append(fixed, name)
		}
	}
	clampInt := func(name string, v *int, lo, hi int) {
		n := min(max(*v, lo), hi)
		if n != *v {
			slog.Warn("config: value out of range, corrected", "field", name, "value", *v, "corrected", n)
			*v = n
			fixed = append(fixed, name)
		}
	}
	defaultString := func(name string, v *string, def string) {
		if *v == "" {
			slog.Warn("config: empty template, using default", "field", name)
			*v = def
			fixed = append(fixed, name)
		}
	}

	clampFloat("notify_duration", &c.NotifyDuration, MinNotifyDuration, MaxNotifyDuration)
	clampInt("log_level", &c.LogLevel, MinLogLevel, MaxLogLevel)
	clampInt("hud_color_mode", &c.HudColorMode, HudColorModeFixed, HudColorModeFixed)
	clampFloat("grenade_total_duration", &c.GrenadeTotalDuration, MinGrenadeTotalDuration, MaxGrenadeTotalDuration)
	clampFloat("molotov_aggregation_duration", &c.MolotovAggregationDuration, MinMolotovAggregationDuration, MaxMolotovAggregationDuration)
	clampFloat("bullet_aggregation_time", &c.BulletAggregationTime, MinBulletAggregationTime, MaxBulletAggregationTime)
	defaultString("grenade_total_message", &c.GrenadeTotalMessage, DefaultGrenadeTotalMessage)
	defaultString("molotov_total_message", &c.MolotovTotalMessage, DefaultMolotovTotalMessage)
	defaultString("bullet_total_message", &c.BulletTotalMessage, DefaultBulletTotalMessage)
	return fixed
}

func seconds(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}

func (c Config) Notify() time.Duration        { return seconds(c.NotifyDuration) }
func (c Config) GrenadeWindow() time.Duration { return seconds(c.GrenadeTotalDuration) }
func (c Config) MolotovWindow() time.Duration { return seconds(c.MolotovAggregationDuration) }
func (c Config) BulletWindow() time.Duration  { return seconds(c.BulletAggregationTime) }

// SlogLevel は 0(trace)〜5(critical) のログレベルを slog.Level に写像します。
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case 0:
		return slog.LevelDebug - 4
	case 1:
		return slog.LevelDebug
	case 2:
		return slog.LevelInfo
	case 3:
		return slog.LevelWarn
	case 4:
		return slog.LevelError
	default:
		return slog.LevelError + 4
	}
}

// Load は設定ファイルを読み込み、範囲外の値を補正して返します。
// ファイルが存在しない場合はデフォルト値を返します。
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Info("config: file not found, using defaults", "path", path)
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	cfg.Clamp()
	return cfg, nil
}

func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv は SHOWDAMAGE_ で始まる環境変数を cfg に上書きします。
// 未設定の変数に対応するフィールドは変更しません。
func ApplyEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: "SHOWDAMAGE_"}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	cfg.Clamp()
	return nil
}

package admin

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"showdamage/config"
)

// field は set コマンド1つ分の設定項目です。
type field struct {
	command string // set の後ろに付くコマンド名
	key     string
	usage   string
	help    string
	text    bool
	get     func(config.Config) string
	set     func(cfg *config.Config, args []string) error
}

var errOutOfRange = errors.New("value out of range")

// fields[0] は enabled であること。toggle が使う。
var fields = []field{
	boolField("enabled", "enabled", "plugin state", func(c *config.Config) *bool { return &c.Enabled }),
	floatField("notifyduration", "notify_duration", config.MinNotifyDuration, config.MaxNotifyDuration, "hud display duration",
		func(c *config.Config) *float64 { return &c.NotifyDuration }),
	intField("loglevel", "log_level", config.MinLogLevel, config.MaxLogLevel, "log level (0-trace,1-debug,2-info,3-warning,4-error,5-critical)",
		func(c *config.Config) *int { return &c.LogLevel }),
	intField("hudcolormode", "hud_color_mode", config.HudColorModeFixed, config.HudColorModeFixed, "hud color mode (only 1)",
		func(c *config.Config) *int { return &c.HudColorMode }),
	boolField("grenadetotalenabled", "grenade_total_enabled", "grenade damage totals", func(c *config.Config) *bool { return &c.GrenadeTotalEnabled }),
	floatField("grenadetotalduration", "grenade_total_duration", config.MinGrenadeTotalDuration, config.MaxGrenadeTotalDuration, "grenade total display duration",
		func(c *config.Config) *float64 { return &c.GrenadeTotalDuration }),
	floatField("molotovaggregationduration", "molotov_aggregation_duration", config.MinMolotovAggregationDuration, config.MaxMolotovAggregationDuration, "molotov aggregation window",
		func(c *config.Config) *float64 { return &c.MolotovAggregationDuration }),
	textField("grenadetotalmessage", "grenade_total_message", "he grenade total message", func(c *config.Config) *string { return &c.GrenadeTotalMessage }),
	textField("molotovtotalmessage", "molotov_total_message", "molotov total message", func(c *config.Config) *string { return &c.MolotovTotalMessage }),
	boolField("bullettotalenabled", "bullet_total_enabled", "bullet damage totals", func(c *config.Config) *bool { return &c.BulletTotalEnabled }),
	floatField("bulletaggregationtime", "bullet_aggregation_time", config.MinBulletAggregationTime, config.MaxBulletAggregationTime, "bullet aggregation window",
		func(c *config.Config) *float64 { return &c.BulletAggregationTime }),
	textField("bullettotalmessage", "bullet_total_message", "bullet total message", func(c *config.Config) *string { return &c.BulletTotalMessage }),
}

func boolField(command, key, help string, ptr func(*config.Config) *bool) field {
	return field{
		command: command,
		key:     key,
		usage:   "<0/1>",
		help:    help,
		get:     func(c config.Config) string { return formatBool(*ptr(&c)) },
		set: func(c *config.Config, args []string) error {
			switch args[0] {
			case "0":
				*ptr(c) = false
			case "1":
				*ptr(c) = true
			default:
				return fmt.Errorf("%q is not 0 or 1", args[0])
			}
			return nil
		},
	}
}

// floatField は範囲外の値を拒否せず Store 側で補正させます。小数点にはカンマも使えます。
func floatField(command, key string, lo, hi float64, help string, ptr func(*config.Config) *float64) field {
	return field{
		command: command,
		key:     key,
		usage:   fmt.Sprintf("<%s-%s>", formatRange(lo), formatRange(hi)),
		help:    help,
		get:     func(c config.Config) string { return formatFloat(*ptr(&c)) },
		set: func(c *config.Config, args []string) error {
			v, err := strconv.ParseFloat(strings.ReplaceAll(args[0], ",", "."), 64)
			if err != nil {
				return fmt.Errorf("%q is not a number", args[0])
			}
			*ptr(c) = v
			return nil
		},
	}
}

func intField(command, key string, lo, hi int, help string, ptr func(*config.Config) *int) field {
	usage := fmt.Sprintf("<%d-%d>", lo, hi)
	if lo == hi {
		usage = fmt.Sprintf("<%d>", lo)
	}
	return field{
		command: command,
		key:     key,
		usage:   usage,
		help:    help,
		get:     func(c config.Config) string { return strconv.Itoa(*ptr(&c)) },
		set: func(c *config.Config, args []string) error {
			v, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("%q is not an integer", args[0])
			}
			if v < lo || v > hi {
				return fmt.Errorf("%d: %w", v, errOutOfRange)
			}
			*ptr(c) = v
			return nil
		},
	}
}

// textField は残りの引数を空白で連結した文字列を値とします。
func textField(command, key, help string, ptr func(*config.Config) *string) field {
	return field{
		command: command,
		key:     key,
		usage:   "<text>",
		help:    help,
		text:    true,
		get:     func(c config.Config) string { return *ptr(&c) },
		set: func(c *config.Config, args []string) error {
			*ptr(c) = strings.Join(args, " ")
			return nil
		},
	}
}

func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func formatRange(v float64) string {
	s := formatFloat(v)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

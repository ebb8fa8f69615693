package engine

import (
	"strconv"
	"strings"
)

const killedLabel = "[KILLED]"

const penetrationNote = " (пробитие)"

// DamageColor はダメージ量に応じたHUDの色を返します。
// headshot と kill は現状では色に影響しません。
func DamageColor(damage int, headshot, kill bool) string {
	switch {
	case damage <= 25:
		return "green"
	case damage <= 50:
		return "yellow"
	case damage <= 75:
		return "orange"
	default:
		return "red"
	}
}

// hitMessage は "-N HP [H HP]" 形式のメッセージを組み立てます。
func hitMessage(damage, health int, headshot, kill bool) string {
	var b strings.Builder
	b.WriteString("-<font color='")
	b.WriteString(DamageColor(damage, headshot, kill))
	b.WriteString("'>")
	b.WriteString(strconv.Itoa(damage))
	b.WriteString("</font> <font color='white'>HP</font> ")
	if kill {
		b.WriteString(killedLabel)
	} else {
		b.WriteString("[")
		b.WriteString(strconv.Itoa(health))
		b.WriteString(" HP]")
	}
	return b.String()
}

func killMessage(damage int, headshot bool) string {
	return hitMessage(damage, 0, headshot, true)
}

// RenderTemplate は集計メッセージのテンプレートに合計ダメージと人数を埋め込みます。
// 旧形式の {0} {1} も受け付けます。
func RenderTemplate(template string, totalDamage, victimCount int) string {
	dmg := strconv.Itoa(totalDamage)
	cnt := strconv.Itoa(victimCount)
	return strings.NewReplacer(
		"{totalDamage}", dmg,
		"{victimCount}", cnt,
		"{0}", dmg,
		"{1}", cnt,
	).Replace(template)
}

// StripMarkup はタグを取り除いたプレーンテキストを返します。ログ出力用です。
func StripMarkup(markup string) string {
	var b strings.Builder
	inTag := false
	for _, r := range markup {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return b.String()
}

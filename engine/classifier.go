package engine

import "strings"

// Category はダメージの種別です。
type Category uint8

const (
	CategoryBullet Category = iota
	CategoryHE
	CategoryIncendiary
)

func (c Category) String() string {
	switch c {
	case CategoryHE:
		return "he"
	case CategoryIncendiary:
		return "incendiary"
	default:
		return "bullet"
	}
}

func (c Category) Explosive() bool {
	return c == CategoryHE || c == CategoryIncendiary
}

var incendiaryMarkers = []string{"molotov", "incgrenade", "inferno"}

// Classify は武器名からダメージ種別を判定します。大文字小文字は区別しません。
func Classify(weapon string) Category {
	w := strings.ToLower(weapon)
	if strings.Contains(w, "hegrenade") {
		return CategoryHE
	}
	for _, m := range incendiaryMarkers {
		if strings.Contains(w, m) {
			return CategoryIncendiary
		}
	}
	return CategoryBullet
}

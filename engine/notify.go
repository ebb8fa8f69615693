package engine

import (
	"maps"
	"slices"
	"time"

	"showdamage/deadline"
)

// NoticeKind は通知の種類です。Total は攻撃者の切断後も表示を続けます。
type NoticeKind uint8

const (
	NoticeHit NoticeKind = iota
	NoticeTotal
)

type notice struct {
	text   string
	kind   NoticeKind
	expiry deadline.Handle
}

// Surface は攻撃者ごとに現在のHUDテキストを1つだけ保持します。後勝ちで上書きされます。
type Surface struct {
	sched   deadline.Scheduler
	entries map[PlayerID]*notice
}

func NewSurface(sched deadline.Scheduler) *Surface {
	return &Surface{
		sched:   sched,
		entries: make(map[PlayerID]*notice),
	}
}

// Show は player の表示を text に置き換え、ttl 後に消えるよう期限を張り直します。
func (s *Surface) Show(player PlayerID, text string, kind NoticeKind, ttl time.Duration) {
	if old, ok := s.entries[player]; ok {
		old.expiry.Stop()
	}
	n := &notice{text: text, kind: kind}
	n.expiry = s.sched.AfterFunc(ttl, func() {
		// 上書き済みなら何もしない
		if s.entries[player] == n {
			delete(s.entries, player)
		}
	})
	s.entries[player] = n
}

func (s *Surface) Text(player PlayerID) (string, NoticeKind, bool) {
	n, ok := s.entries[player]
	if !ok {
		return "", NoticeHit, false
	}
	return n.text, n.kind, true
}

// RemoveHit はヒット通知のみを消します。集計通知はそのまま残します。
func (s *Surface) RemoveHit(player PlayerID) bool {
	n, ok := s.entries[player]
	if !ok || n.kind == NoticeTotal {
		return false
	}
	n.expiry.Stop()
	delete(s.entries, player)
	return true
}

func (s *Surface) ClearTotals() int {
	cleared := 0
	for player, n := range s.entries {
		if n.kind != NoticeTotal {
			continue
		}
		n.expiry.Stop()
		delete(s.entries, player)
		cleared++
	}
	return cleared
}

func (s *Surface) Clear() int {
	cleared := len(s.entries)
	for _, n := range s.entries {
		n.expiry.Stop()
	}
	clear(s.entries)
	return cleared
}

// Render は表示中の全エントリを player の昇順で r に書き出します。
func (s *Surface) Render(r Renderer) int {
	for _, player := range slices.Sorted(maps.Keys(s.entries)) {
		r.RenderText(player, s.entries[player].text)
	}
	return len(s.entries)
}

func (s *Surface) Len() int { return len(s.entries) }

func (s *Surface) Totals() int {
	n := 0
	for _, e := range s.entries {
		if e.kind == NoticeTotal {
			n++
		}
	}
	return n
}

package engine

import (
	"errors"

	"showdamage/config"
)

// PlayerID は接続中のプレイヤーを識別するハンドルです。0 は「プレイヤーなし」を表します。
type PlayerID uint32

const NoPlayer PlayerID = 0

func (p PlayerID) Valid() bool { return p != NoPlayer }

// Team はチーム番号です。TeamUnknown のときは同チーム判定を行いません。
type Team uint8

const (
	TeamUnknown   Team = 0
	TeamSpectator Team = 1
	TeamT         Team = 2
	TeamCT        Team = 3
)

type HitLocation uint8

const (
	HitGeneric HitLocation = 0
	HitHead    HitLocation = 1
)

// ShotID は1回の発射を識別する単調増加のトークンです。
type ShotID uint64

type DamageEvent struct {
	Victim       PlayerID
	Attacker     PlayerID
	Weapon       string
	Damage       int
	VictimTeam   Team
	AttackerTeam Team
	HitLocation  HitLocation
	HealthAfter  int
}

type WeaponFireEvent struct {
	Attacker PlayerID
	Weapon   string
}

type PlayerDeathEvent struct {
	Victim       PlayerID
	Attacker     PlayerID
	Weapon       string
	Headshot     bool
	VictimTeam   Team
	AttackerTeam Team
}

type PlayerDisconnectEvent struct {
	Player PlayerID
}

// Hit は集計エンジンに渡される1ヒット分の情報です。
type Hit struct {
	Attacker PlayerID
	Victim   PlayerID
	Weapon   string
	Damage   int
	Health   int
	Headshot bool
	Kill     bool
}

// Renderer はプレイヤーのHUDにテキストを描画する外部の表示層です。
//
//go:generate go tool mockgen -destination=./mocks/renderer_mock.go -package=mocks . Renderer
type Renderer interface {
	RenderText(player PlayerID, markup string)
}

// Settings は現在の設定スナップショットを返します。config.Store が実装します。
type Settings interface {
	Load() config.Config
}

var (
	// ErrInvalidPlayer はイベントが無効なプレイヤーを参照している場合に返されるエラーです。
	ErrInvalidPlayer = errors.New("engine: invalid player reference")
	// ErrInitializationFailed は必須の依存が与えられなかった場合に返されるエラーです。
	ErrInitializationFailed = errors.New("engine: failed to initialize")
)

package domain

import "errors"

// サイズ定数（可変長の文字列を除く）
const (
	DamagePayloadSize     = 16
	WeaponFirePayloadSize = 5
	DeathPayloadSize      = 12
	DisconnectPayloadSize = 4
	TextPayloadSize       = 6

	maxWeaponLen = 0xFF
	maxTextLen   = 0xFFFF
)

// DamagePayload はダメージイベント (16バイト + 武器名)
//
//	victim       u32 (4)
//	attacker     u32 (4)
//	damage       i16 (2)
//	health       i16 (2) - 被弾後の体力
//	victimTeam   u8  (1)
//	attackerTeam u8  (1)
//	hitGroup     u8  (1) - 1 = 頭
//	weaponLen    u8  (1)
type DamagePayload struct {
	Victim       uint32
	Attacker     uint32
	Damage       int16
	Health       int16
	VictimTeam   uint8
	AttackerTeam uint8
	HitGroup     uint8
	Weapon       string
}

// WeaponFirePayload は発射イベント (5バイト + 武器名)
type WeaponFirePayload struct {
	Attacker uint32
	Weapon   string
}

// DeathPayload は死亡イベント (12バイト + 武器名)
//
//	victim       u32 (4)
//	attacker     u32 (4)
//	victimTeam   u8  (1)
//	attackerTeam u8  (1)
//	headshot     u8  (1)
//	weaponLen    u8  (1)
type DeathPayload struct {
	Victim       uint32
	Attacker     uint32
	VictimTeam   uint8
	AttackerTeam uint8
	Headshot     bool
	Weapon       string
}

// DisconnectPayload は切断イベント (4バイト)
type DisconnectPayload struct {
	Player uint32
}

// TextPayload はプレイヤー宛のテキスト (6バイト + テキスト)
// HUD描画、管理コマンド、コマンド応答で共通に使う
//
//	player   u32 (4)
//	textLen  u16 (2)
type TextPayload struct {
	Player uint32
	Text   string
}

var (
	ErrInvalidDamagePayloadSize     = errors.New("invalid damage payload size")
	ErrInvalidWeaponFirePayloadSize = errors.New("invalid weapon fire payload size")
	ErrInvalidDeathPayloadSize      = errors.New("invalid death payload size")
	ErrInvalidDisconnectPayloadSize = errors.New("invalid disconnect payload size")
	ErrInvalidTextPayloadSize       = errors.New("invalid text payload size")
)

// readString は長さ n の文字列を data[offset:] から取り出す
func readString(data []byte, offset, n int) (string, bool) {
	if offset+n > len(data) {
		return "", false
	}
	return string(data[offset : offset+n]), true
}

func truncate(s string, limit int) string {
	if len(s) > limit {
		return s[:limit]
	}
	return s
}

// ParseDamagePayload はバイト列からDamagePayloadをパースする
func ParseDamagePayload(data []byte) (*DamagePayload, error) {
	if len(data) < DamagePayloadSize {
		return nil, ErrInvalidDamagePayloadSize
	}
	weapon, ok := readString(data, DamagePayloadSize, int(data[15]))
	if !ok {
		return nil, ErrInvalidDamagePayloadSize
	}
	return &DamagePayload{
		Victim:       byteOrder.Uint32(data[0:4]),
		Attacker:     byteOrder.Uint32(data[4:8]),
		Damage:       int16(byteOrder.Uint16(data[8:10])),
		Health:       int16(byteOrder.Uint16(data[10:12])),
		VictimTeam:   data[12],
		AttackerTeam: data[13],
		HitGroup:     data[14],
		Weapon:       weapon,
	}, nil
}

// Encode はDamagePayloadをバイト列にエンコードする
func (p *DamagePayload) Encode() []byte {
	weapon := truncate(p.Weapon, maxWeaponLen)
	data := make([]byte, DamagePayloadSize+len(weapon))
	byteOrder.PutUint32(data[0:4], p.Victim)
	byteOrder.PutUint32(data[4:8], p.Attacker)
	byteOrder.PutUint16(data[8:10], uint16(p.Damage))
	byteOrder.PutUint16(data[10:12], uint16(p.Health))
	data[12] = p.VictimTeam
	data[13] = p.AttackerTeam
	data[14] = p.HitGroup
	data[15] = uint8(len(weapon))
	copy(data[DamagePayloadSize:], weapon)
	return data
}

// ParseWeaponFirePayload はバイト列からWeaponFirePayloadをパースする
func ParseWeaponFirePayload(data []byte) (*WeaponFirePayload, error) {
	if len(data) < WeaponFirePayloadSize {
		return nil, ErrInvalidWeaponFirePayloadSize
	}
	weapon, ok := readString(data, WeaponFirePayloadSize, int(data[4]))
	if !ok {
		return nil, ErrInvalidWeaponFirePayloadSize
	}
	return &WeaponFirePayload{
		Attacker: byteOrder.Uint32(data[0:4]),
		Weapon:   weapon,
	}, nil
}

// Encode はWeaponFirePayloadをバイト列にエンコードする
func (p *WeaponFirePayload) Encode() []byte {
	weapon := truncate(p.Weapon, maxWeaponLen)
	data := make([]byte, WeaponFirePayloadSize+len(weapon))
	byteOrder.PutUint32(data[0:4], p.Attacker)
	data[4] = uint8(len(weapon))
	copy(data[WeaponFirePayloadSize:], weapon)
	return data
}

// ParseDeathPayload はバイト列からDeathPayloadをパースする
func ParseDeathPayload(data []byte) (*DeathPayload, error) {
	if len(data) < DeathPayloadSize {
		return nil, ErrInvalidDeathPayloadSize
	}
	weapon, ok := readString(data, DeathPayloadSize, int(data[11]))
	if !ok {
		return nil, ErrInvalidDeathPayloadSize
	}
	return &DeathPayload{
		Victim:       byteOrder.Uint32(data[0:4]),
		Attacker:     byteOrder.Uint32(data[4:8]),
		VictimTeam:   data[8],
		AttackerTeam: data[9],
		Headshot:     data[10] != 0,
		Weapon:       weapon,
	}, nil
}

// Encode はDeathPayloadをバイト列にエンコードする
func (p *DeathPayload) Encode() []byte {
	weapon := truncate(p.Weapon, maxWeaponLen)
	data := make([]byte, DeathPayloadSize+len(weapon))
	byteOrder.PutUint32(data[0:4], p.Victim)
	byteOrder.PutUint32(data[4:8], p.Attacker)
	data[8] = p.VictimTeam
	data[9] = p.AttackerTeam
	if p.Headshot {
		data[10] = 1
	}
	data[11] = uint8(len(weapon))
	copy(data[DeathPayloadSize:], weapon)
	return data
}

// ParseDisconnectPayload はバイト列からDisconnectPayloadをパースする
func ParseDisconnectPayload(data []byte) (*DisconnectPayload, error) {
	if len(data) < DisconnectPayloadSize {
		return nil, ErrInvalidDisconnectPayloadSize
	}
	return &DisconnectPayload{Player: byteOrder.Uint32(data[0:4])}, nil
}

// Encode はDisconnectPayloadをバイト列にエンコードする
func (p *DisconnectPayload) Encode() []byte {
	data := make([]byte, DisconnectPayloadSize)
	byteOrder.PutUint32(data[0:4], p.Player)
	return data
}

// ParseTextPayload はバイト列からTextPayloadをパースする
func ParseTextPayload(data []byte) (*TextPayload, error) {
	if len(data) < TextPayloadSize {
		return nil, ErrInvalidTextPayloadSize
	}
	text, ok := readString(data, TextPayloadSize, int(byteOrder.Uint16(data[4:6])))
	if !ok {
		return nil, ErrInvalidTextPayloadSize
	}
	return &TextPayload{
		Player: byteOrder.Uint32(data[0:4]),
		Text:   text,
	}, nil
}

// Encode はTextPayloadをバイト列にエンコードする
func (p *TextPayload) Encode() []byte {
	text := truncate(p.Text, maxTextLen)
	data := make([]byte, TextPayloadSize+len(text))
	byteOrder.PutUint32(data[0:4], p.Player)
	byteOrder.PutUint16(data[4:6], uint16(len(text)))
	copy(data[TextPayloadSize:], text)
	return data
}

package domain

import (
	"strings"
	"testing"
)

func TestHeaderRoundTrip(t *testing.T) {
	original := &Header{
		Version:   1,
		SessionID: [16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16},
		Seq:       100,
		Length:    256,
		Timestamp: 1234567890,
	}

	encoded := original.Encode()
	if len(encoded) != HeaderSize {
		t.Errorf("encoded size = %d, want %d", len(encoded), HeaderSize)
	}

	decoded, err := ParseHeader(encoded)
	if err != nil {
		t.Fatalf("ParseHeader failed: %v", err)
	}

	if *decoded != *original {
		t.Errorf("decoded = %+v, want %+v", decoded, original)
	}
}

func TestPayloadHeaderRoundTrip(t *testing.T) {
	original := &PayloadHeader{
		DataType: DataTypeEvent,
		SubType:  uint8(EventSubTypeDamage),
	}

	encoded := original.Encode()
	if len(encoded) != PayloadHeaderSize {
		t.Errorf("encoded size = %d, want %d", len(encoded), PayloadHeaderSize)
	}

	decoded, err := ParsePayloadHeader(encoded)
	if err != nil {
		t.Fatalf("ParsePayloadHeader failed: %v", err)
	}

	if decoded.DataType != original.DataType {
		t.Errorf("DataType = %d, want %d", decoded.DataType, original.DataType)
	}
	if decoded.SubType != original.SubType {
		t.Errorf("SubType = %d, want %d", decoded.SubType, original.SubType)
	}
}

func TestParseFrame(t *testing.T) {
	id := NewSessionID()
	body := (&DisconnectPayload{Player: 7}).Encode()
	msg := EncodeMessage(id, 3, DataTypeEvent, uint8(EventSubTypeDisconnect), body)

	frame, err := ParseFrame(msg)
	if err != nil {
		t.Fatalf("ParseFrame failed: %v", err)
	}
	if frame.Header.SessionID != id.Bytes() {
		t.Errorf("SessionID = %v, want %v", frame.Header.SessionID, id.Bytes())
	}
	if frame.Header.Seq != 3 {
		t.Errorf("Seq = %d, want 3", frame.Header.Seq)
	}
	if frame.Payload.DataType != DataTypeEvent || EventSubType(frame.Payload.SubType) != EventSubTypeDisconnect {
		t.Errorf("Payload = %+v, want event/disconnect", frame.Payload)
	}
	if string(frame.Body) != string(body) {
		t.Errorf("Body = %v, want %v", frame.Body, body)
	}
}

func TestParseFrameErrors(t *testing.T) {
	id := NewSessionID()
	valid := EncodeMessage(id, 1, DataTypeEvent, uint8(EventSubTypeRoundEnd), nil)

	badVersion := append([]byte(nil), valid...)
	badVersion[0] = ProtocolVersion + 1

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"short header", valid[:HeaderSize-1], ErrInvalidHeaderSize},
		{"version", badVersion, ErrUnsupportedVersion},
		{"truncated", valid[:len(valid)-1], ErrInvalidLength},
		{"trailing", append(append([]byte(nil), valid...), 0), ErrInvalidLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseFrame(tt.data); err != tt.want {
				t.Errorf("ParseFrame() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDamagePayloadRoundTrip(t *testing.T) {
	original := &DamagePayload{
		Victim:       11,
		Attacker:     1,
		Damage:       27,
		Health:       73,
		VictimTeam:   3,
		AttackerTeam: 2,
		HitGroup:     1,
		Weapon:       "ak47",
	}

	encoded := original.Encode()
	if len(encoded) != DamagePayloadSize+len("ak47") {
		t.Errorf("encoded size = %d, want %d", len(encoded), DamagePayloadSize+4)
	}

	decoded, err := ParseDamagePayload(encoded)
	if err != nil {
		t.Fatalf("ParseDamagePayload failed: %v", err)
	}
	if *decoded != *original {
		t.Errorf("decoded = %+v, want %+v", decoded, original)
	}
}

func TestDamagePayloadNegativeValues(t *testing.T) {
	original := &DamagePayload{Victim: 1, Attacker: 2, Damage: -5, Health: -1}

	decoded, err := ParseDamagePayload(original.Encode())
	if err != nil {
		t.Fatalf("ParseDamagePayload failed: %v", err)
	}
	if decoded.Damage != -5 || decoded.Health != -1 {
		t.Errorf("Damage/Health = %d/%d, want -5/-1", decoded.Damage, decoded.Health)
	}
}

func TestWeaponFirePayloadRoundTrip(t *testing.T) {
	original := &WeaponFirePayload{Attacker: 4, Weapon: "weapon_m4a1"}

	decoded, err := ParseWeaponFirePayload(original.Encode())
	if err != nil {
		t.Fatalf("ParseWeaponFirePayload failed: %v", err)
	}
	if *decoded != *original {
		t.Errorf("decoded = %+v, want %+v", decoded, original)
	}
}

func TestDeathPayloadRoundTrip(t *testing.T) {
	original := &DeathPayload{
		Victim:       12,
		Attacker:     2,
		VictimTeam:   2,
		AttackerTeam: 3,
		Headshot:     true,
		Weapon:       "deagle",
	}

	decoded, err := ParseDeathPayload(original.Encode())
	if err != nil {
		t.Fatalf("ParseDeathPayload failed: %v", err)
	}
	if *decoded != *original {
		t.Errorf("decoded = %+v, want %+v", decoded, original)
	}
}

func TestDisconnectPayloadRoundTrip(t *testing.T) {
	original := &DisconnectPayload{Player: 99}

	encoded := original.Encode()
	if len(encoded) != DisconnectPayloadSize {
		t.Fatalf("encoded size = %d, want %d", len(encoded), DisconnectPayloadSize)
	}
	decoded, err := ParseDisconnectPayload(encoded)
	if err != nil {
		t.Fatalf("ParseDisconnectPayload failed: %v", err)
	}
	if decoded.Player != 99 {
		t.Errorf("Player = %d, want 99", decoded.Player)
	}
}

func TestTextPayloadRoundTrip(t *testing.T) {
	original := &TextPayload{Player: 5, Text: "-<font color='red'>27</font> [KILLED]"}

	decoded, err := ParseTextPayload(original.Encode())
	if err != nil {
		t.Fatalf("ParseTextPayload failed: %v", err)
	}
	if *decoded != *original {
		t.Errorf("decoded = %+v, want %+v", decoded, original)
	}
}

func TestTextPayloadTruncatesLongText(t *testing.T) {
	p := &TextPayload{Player: 1, Text: strings.Repeat("x", maxTextLen+10)}

	decoded, err := ParseTextPayload(p.Encode())
	if err != nil {
		t.Fatalf("ParseTextPayload failed: %v", err)
	}
	if len(decoded.Text) != maxTextLen {
		t.Errorf("len(Text) = %d, want %d", len(decoded.Text), maxTextLen)
	}
}

func TestParsePayloadInvalidSize(t *testing.T) {
	tests := []struct {
		name  string
		parse func([]byte) error
		data  []byte
		want  error
	}{
		{"damage short", func(b []byte) error { _, err := ParseDamagePayload(b); return err }, make([]byte, DamagePayloadSize-1), ErrInvalidDamagePayloadSize},
		{"damage weapon overrun", func(b []byte) error { _, err := ParseDamagePayload(b); return err }, append(make([]byte, DamagePayloadSize-1), 4), ErrInvalidDamagePayloadSize},
		{"fire short", func(b []byte) error { _, err := ParseWeaponFirePayload(b); return err }, make([]byte, WeaponFirePayloadSize-1), ErrInvalidWeaponFirePayloadSize},
		{"death short", func(b []byte) error { _, err := ParseDeathPayload(b); return err }, make([]byte, DeathPayloadSize-1), ErrInvalidDeathPayloadSize},
		{"disconnect short", func(b []byte) error { _, err := ParseDisconnectPayload(b); return err }, make([]byte, DisconnectPayloadSize-1), ErrInvalidDisconnectPayloadSize},
		{"text short", func(b []byte) error { _, err := ParseTextPayload(b); return err }, make([]byte, TextPayloadSize-1), ErrInvalidTextPayloadSize},
		{"text overrun", func(b []byte) error { _, err := ParseTextPayload(b); return err }, []byte{1, 0, 0, 0, 9, 0, 'a'}, ErrInvalidTextPayloadSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.parse(tt.data); err != tt.want {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestParseHeaderInvalidSize(t *testing.T) {
	data := make([]byte, HeaderSize-1)
	_, err := ParseHeader(data)
	if err != ErrInvalidHeaderSize {
		t.Errorf("expected ErrInvalidHeaderSize, got %v", err)
	}
}

func TestParsePayloadHeaderInvalidSize(t *testing.T) {
	data := make([]byte, PayloadHeaderSize-1)
	_, err := ParsePayloadHeader(data)
	if err != ErrInvalidPayloadSize {
		t.Errorf("expected ErrInvalidPayloadSize, got %v", err)
	}
}

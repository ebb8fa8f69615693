package domain

import (
	"encoding/binary"
	"errors"
	"time"
)

// バイトオーダー: リトルエンディアン
var byteOrder = binary.LittleEndian

const (
	ProtocolVersion   = 1
	HeaderSize        = 25
	PayloadHeaderSize = 2
)

// Header はメッセージヘッダー (25バイト)
//
//	version    u8      (1)
//	sessionID  [16]byte (16)
//	seq        u16     (2)
//	length     u16     (2)  - ペイロード長（PayloadHeaderを含む）
//	timestamp  u32     (4)
type Header struct {
	Version   uint8
	SessionID [16]byte
	Seq       uint16
	Length    uint16
	Timestamp uint32
}

// DataType はメッセージの種別
type DataType uint8

const (
	DataTypeEvent   DataType = 1 // host -> server: ゲームイベント
	DataTypeRender  DataType = 2 // server -> host: HUD描画
	DataTypeCommand DataType = 3 // 管理コマンドとその応答
	DataTypeControl DataType = 4
)

// EventSubType はeventメッセージのサブタイプ
type EventSubType uint8

const (
	EventSubTypeDamage     EventSubType = 1
	EventSubTypeWeaponFire EventSubType = 2
	EventSubTypeDeath      EventSubType = 3
	EventSubTypeRoundEnd   EventSubType = 4
	EventSubTypeDisconnect EventSubType = 5
)

// RenderSubType はrenderメッセージのサブタイプ
type RenderSubType uint8

const (
	RenderSubTypeText RenderSubType = 1
)

// CommandSubType はcommandメッセージのサブタイプ
type CommandSubType uint8

const (
	CommandSubTypeRequest CommandSubType = 1
	CommandSubTypeReply   CommandSubType = 2
)

// ControlSubType はcontrolメッセージのサブタイプ
type ControlSubType uint8

const (
	ControlSubTypePing   ControlSubType = 4
	ControlSubTypePong   ControlSubType = 5
	ControlSubTypeError  ControlSubType = 6
	ControlSubTypeAssign ControlSubType = 7
)

// PayloadHeader はペイロードヘッダー (2バイト)
//
//	datatype  u8 (1)
//	subtype   u8 (1)
type PayloadHeader struct {
	DataType DataType
	SubType  uint8
}

var (
	ErrInvalidHeaderSize  = errors.New("invalid header size")
	ErrInvalidPayloadSize = errors.New("invalid payload size")
	ErrInvalidLength      = errors.New("header length does not match payload")
	ErrUnsupportedVersion = errors.New("unsupported protocol version")
)

// ParseHeader はバイト列からHeaderをパースする
func ParseHeader(data []byte) (*Header, error) {
	if len(data) < HeaderSize {
		return nil, ErrInvalidHeaderSize
	}

	var sessionID [16]byte
	copy(sessionID[:], data[1:17])

	return &Header{
		Version:   data[0],
		SessionID: sessionID,
		Seq:       byteOrder.Uint16(data[17:19]),
		Length:    byteOrder.Uint16(data[19:21]),
		Timestamp: byteOrder.Uint32(data[21:25]),
	}, nil
}

// Encode はHeaderをバイト列にエンコードする
func (h *Header) Encode() []byte {
	data := make([]byte, HeaderSize)
	data[0] = h.Version
	copy(data[1:17], h.SessionID[:])
	byteOrder.PutUint16(data[17:19], h.Seq)
	byteOrder.PutUint16(data[19:21], h.Length)
	byteOrder.PutUint32(data[21:25], h.Timestamp)
	return data
}

// ParsePayloadHeader はバイト列からPayloadHeaderをパースする
func ParsePayloadHeader(data []byte) (*PayloadHeader, error) {
	if len(data) < PayloadHeaderSize {
		return nil, ErrInvalidPayloadSize
	}

	return &PayloadHeader{
		DataType: DataType(data[0]),
		SubType:  data[1],
	}, nil
}

// Encode はPayloadHeaderをバイト列にエンコードする
func (p *PayloadHeader) Encode() []byte {
	return []byte{byte(p.DataType), p.SubType}
}

// Frame はパース済みの1メッセージです。Body は PayloadHeader の後ろのバイト列です。
type Frame struct {
	Header  Header
	Payload PayloadHeader
	Body    []byte
}

// ParseFrame はヘッダー、ペイロードヘッダー、本体を検証して取り出す
func ParseFrame(data []byte) (*Frame, error) {
	header, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}
	if header.Version != ProtocolVersion {
		return nil, ErrUnsupportedVersion
	}
	if int(header.Length) != len(data)-HeaderSize {
		return nil, ErrInvalidLength
	}
	payloadHeader, err := ParsePayloadHeader(data[HeaderSize:])
	if err != nil {
		return nil, err
	}
	return &Frame{
		Header:  *header,
		Payload: *payloadHeader,
		Body:    data[HeaderSize+PayloadHeaderSize:],
	}, nil
}

// EncodeMessage はヘッダーとペイロードヘッダーを付けてメッセージをエンコードする
func EncodeMessage(sessionID SessionID, seq uint16, dataType DataType, subType uint8, body []byte) []byte {
	header := Header{
		Version:   ProtocolVersion,
		SessionID: sessionID.Bytes(),
		Seq:       seq,
		Length:    uint16(PayloadHeaderSize + len(body)),
		Timestamp: uint32(time.Now().UnixMilli() & 0xFFFFFFFF),
	}
	payloadHeader := PayloadHeader{DataType: dataType, SubType: subType}

	data := make([]byte, 0, HeaderSize+PayloadHeaderSize+len(body))
	data = append(data, header.Encode()...)
	data = append(data, payloadHeader.Encode()...)
	data = append(data, body...)
	return data
}

// EncodeAssignMessage はセッションID通知メッセージをエンコードする
// ホストに自分のセッションIDを通知するために使用
func EncodeAssignMessage(sessionID SessionID) []byte {
	return EncodeMessage(sessionID, 0, DataTypeControl, uint8(ControlSubTypeAssign), nil)
}

// EncodePingMessage はPingメッセージをエンコードする
func EncodePingMessage(sessionID SessionID, seq uint16) []byte {
	return EncodeMessage(sessionID, seq, DataTypeControl, uint8(ControlSubTypePing), nil)
}

func EncodePongMessage(sessionID SessionID, seq uint16) []byte {
	return EncodeMessage(sessionID, seq, DataTypeControl, uint8(ControlSubTypePong), nil)
}

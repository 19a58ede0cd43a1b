package serial

import (
	"fmt"
	"unicode/utf8"
)

// 内置类型的 ser_id，0-15 保留给本模块
const (
	SerIDUnit      uint64 = 1
	SerIDActorPath uint64 = 2
	SerIDU64       uint64 = 6
	SerIDStr       uint64 = 7

	// MaxReservedSerID 保留区上界（含）
	MaxReservedSerID uint64 = 15
)

// ═══════════════════════════════════════════════════════════════════════════
// Unit
// ═══════════════════════════════════════════════════════════════════════════

// Unit 零字节消息
type Unit struct{}

// SerID 实现 Serialisable
func (Unit) SerID() uint64 { return SerIDUnit }

// SizeHint 实现 Serialisable
func (Unit) SizeHint() (int, bool) { return 0, true }

// Serialise 实现 Serialisable
func (Unit) Serialise(*Buffer) error { return nil }

// Local 实现 Localer
func (u Unit) Local() (any, bool) { return u, true }

// UnitDeserialiser 还原 Unit，不消费任何字节
var UnitDeserialiser = DeserialiserFunc[Unit](func(*Cursor) (Unit, error) {
	return Unit{}, nil
})

// ═══════════════════════════════════════════════════════════════════════════
// U64
// ═══════════════════════════════════════════════════════════════════════════

// U64 大端序 8 字节无符号整数
type U64 uint64

// SerID 实现 Serialisable
func (U64) SerID() uint64 { return SerIDU64 }

// SizeHint 实现 Serialisable
func (U64) SizeHint() (int, bool) { return 8, true }

// Serialise 实现 Serialisable
func (v U64) Serialise(buf *Buffer) error {
	buf.PutU64(uint64(v))
	return nil
}

// U64Deserialiser 读取 8 字节大端序整数
var U64Deserialiser = DeserialiserFunc[U64](func(c *Cursor) (U64, error) {
	v, err := c.U64()
	return U64(v), err
})

// ═══════════════════════════════════════════════════════════════════════════
// Str
// ═══════════════════════════════════════════════════════════════════════════

// Str 原始 UTF-8 字符串，占用整个负载，没有长度前缀
type Str string

// SerID 实现 Serialisable
func (Str) SerID() uint64 { return SerIDStr }

// SizeHint 实现 Serialisable
func (s Str) SizeHint() (int, bool) { return len(s), true }

// Serialise 实现 Serialisable
func (s Str) Serialise(buf *Buffer) error {
	buf.PutString(string(s))
	return nil
}

// StrDeserialiser 读取剩余全部字节作为字符串
var StrDeserialiser = DeserialiserFunc[Str](func(c *Cursor) (Str, error) {
	rest := c.Rest()
	if !utf8.Valid(rest.b) {
		return "", InvalidData("string payload is not valid UTF-8")
	}
	return Str(rest.b), nil
})

// ═══════════════════════════════════════════════════════════════════════════
// Raw
// ═══════════════════════════════════════════════════════════════════════════

// Raw 携带调用方指定 ser_id 的不透明字节，常用于转发已编码的负载
type Raw struct {
	ID   uint64
	Data Bytes
}

// SerID 实现 Serialisable
func (r Raw) SerID() uint64 { return r.ID }

// SizeHint 实现 Serialisable
func (r Raw) SizeHint() (int, bool) { return r.Data.Len(), true }

// Serialise 实现 Serialisable
func (r Raw) Serialise(buf *Buffer) error {
	buf.PutSlice(r.Data.b)
	return nil
}

// String 便于日志输出
func (r Raw) String() string {
	return fmt.Sprintf("Raw(%d, %d bytes)", r.ID, r.Data.Len())
}

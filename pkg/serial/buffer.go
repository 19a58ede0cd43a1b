package serial

import "encoding/binary"

// ═══════════════════════════════════════════════════════════════════════════
// Buffer 可增长写缓冲
// ═══════════════════════════════════════════════════════════════════════════

// Buffer 编码期间独占的可变字节缓冲
// 预分配容量只是优化，超出容量时自动增长
//
// Buffer 不是并发安全的：每次编码调用拥有自己的 Buffer。
type Buffer struct {
	b []byte
}

// NewBuffer 创建预分配 capacity 字节的缓冲
func NewBuffer(capacity int) *Buffer {
	if capacity < 0 {
		capacity = 0
	}
	return &Buffer{b: make([]byte, 0, capacity)}
}

// Len 已写入字节数
func (b *Buffer) Len() int { return len(b.b) }

// Cap 当前容量
func (b *Buffer) Cap() int { return cap(b.b) }

// PutU8 写入单字节
func (b *Buffer) PutU8(v uint8) {
	b.b = append(b.b, v)
}

// PutU16 以大端序写入 u16
func (b *Buffer) PutU16(v uint16) {
	b.b = binary.BigEndian.AppendUint16(b.b, v)
}

// PutU32 以大端序写入 u32
func (b *Buffer) PutU32(v uint32) {
	b.b = binary.BigEndian.AppendUint32(b.b, v)
}

// PutU64 以大端序写入 u64
func (b *Buffer) PutU64(v uint64) {
	b.b = binary.BigEndian.AppendUint64(b.b, v)
}

// PutSlice 追加字节
func (b *Buffer) PutSlice(p []byte) {
	b.b = append(b.b, p...)
}

// PutString 追加字符串的 UTF-8 字节
func (b *Buffer) PutString(s string) {
	b.b = append(b.b, s...)
}

// Write 实现 io.Writer，便于接入标准库编码器
func (b *Buffer) Write(p []byte) (int, error) {
	b.b = append(b.b, p...)
	return len(p), nil
}

// Freeze 将已写入内容冻结为不可变的 Bytes
// 调用后 Buffer 被重置，之后的写入使用新的存储，不会影响已冻结的字节
func (b *Buffer) Freeze() Bytes {
	out := Bytes{b: b.b[:len(b.b):len(b.b)]}
	b.b = nil
	return out
}

package serial

import (
	"bytes"
	"encoding/hex"
	"io"
)

// Bytes 冻结后的不可变字节序列
//
// Bytes 是值类型，复制只复制切片头，不复制数据；
// 没有任何修改方法，因此可以无锁地交给多个 goroutine 并发读取。
type Bytes struct {
	b []byte
}

// Wrap 将调用方的切片包装为 Bytes（不复制）
// 调用方承诺之后不再修改 p
func Wrap(p []byte) Bytes {
	return Bytes{b: p[:len(p):len(p)]}
}

// CopyOf 复制 p 并返回 Bytes
func CopyOf(p []byte) Bytes {
	return Bytes{b: bytes.Clone(p)}
}

// Len 字节数
func (b Bytes) Len() int { return len(b.b) }

// IsEmpty 是否为空
func (b Bytes) IsEmpty() bool { return len(b.b) == 0 }

// At 返回第 i 个字节
func (b Bytes) At(i int) byte { return b.b[i] }

// Slice 返回 [from, to) 的视图（不复制）
func (b Bytes) Slice(from, to int) Bytes {
	return Bytes{b: b.b[from:to:to]}
}

// Cursor 返回从头开始读取的游标
func (b Bytes) Cursor() *Cursor {
	return &Cursor{b: b}
}

// Clone 返回数据的可变副本
func (b Bytes) Clone() []byte {
	return bytes.Clone(b.b)
}

// Text 以字符串形式返回内容（复制一次）
func (b Bytes) Text() string {
	return string(b.b)
}

// Equal 比较内容是否相同
func (b Bytes) Equal(other Bytes) bool {
	return bytes.Equal(b.b, other.b)
}

// EqualSlice 与普通切片比较内容
func (b Bytes) EqualSlice(p []byte) bool {
	return bytes.Equal(b.b, p)
}

// WriteTo 实现 io.WriterTo，直接写出底层数据
func (b Bytes) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(b.b)
	return int64(n), err
}

// String 返回十六进制表示
func (b Bytes) String() string {
	return hex.EncodeToString(b.b)
}

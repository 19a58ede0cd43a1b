package serial

import "encoding/binary"

// Cursor 在 Bytes 上的只读游标
// 读取只推进位置，不修改底层数据；长度不足时返回 InvalidData 且不推进
type Cursor struct {
	b   Bytes
	pos int
}

// NewCursor 基于普通切片创建游标（不复制）
func NewCursor(p []byte) *Cursor {
	return Wrap(p).Cursor()
}

// Remaining 剩余可读字节数
func (c *Cursor) Remaining() int { return c.b.Len() - c.pos }

// Position 已读取字节数
func (c *Cursor) Position() int { return c.pos }

func (c *Cursor) need(n int, what string) error {
	if c.Remaining() < n {
		return InvalidDataf("need %d bytes for %s, have %d", n, what, c.Remaining())
	}
	return nil
}

// U8 读取单字节
func (c *Cursor) U8() (uint8, error) {
	if err := c.need(1, "u8"); err != nil {
		return 0, err
	}
	v := c.b.b[c.pos]
	c.pos++
	return v, nil
}

// U16 以大端序读取 u16
func (c *Cursor) U16() (uint16, error) {
	if err := c.need(2, "u16"); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(c.b.b[c.pos:])
	c.pos += 2
	return v, nil
}

// U32 以大端序读取 u32
func (c *Cursor) U32() (uint32, error) {
	if err := c.need(4, "u32"); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(c.b.b[c.pos:])
	c.pos += 4
	return v, nil
}

// U64 以大端序读取 u64
func (c *Cursor) U64() (uint64, error) {
	if err := c.need(8, "u64"); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint64(c.b.b[c.pos:])
	c.pos += 8
	return v, nil
}

// Take 读取 n 字节并返回其视图（不复制）
func (c *Cursor) Take(n int) (Bytes, error) {
	if n < 0 {
		return Bytes{}, InvalidDataf("negative length %d", n)
	}
	if err := c.need(n, "slice"); err != nil {
		return Bytes{}, err
	}
	v := c.b.Slice(c.pos, c.pos+n)
	c.pos += n
	return v, nil
}

// CopyInto 将 len(dst) 字节复制到 dst
func (c *Cursor) CopyInto(dst []byte) error {
	if err := c.need(len(dst), "fixed array"); err != nil {
		return err
	}
	copy(dst, c.b.b[c.pos:])
	c.pos += len(dst)
	return nil
}

// Rest 返回剩余全部字节的视图并将游标移到末尾
func (c *Cursor) Rest() Bytes {
	v := c.b.Slice(c.pos, c.b.Len())
	c.pos = c.b.Len()
	return v
}

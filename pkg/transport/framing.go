package transport

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/lwmacct/251216-go-pkg-wire/pkg/serial"
)

// FrameHeaderSize 长度前缀字节数
const FrameHeaderSize = 4

// FrameTooLargeError 帧长度超过上限
type FrameTooLargeError struct {
	Size int
	Max  int
}

// Error 实现 error 接口
func (e *FrameTooLargeError) Error() string {
	return fmt.Sprintf("transport: frame of %d bytes exceeds limit %d", e.Size, e.Max)
}

// WriteFrame 写出 4 字节大端序长度前缀和帧内容
func WriteFrame(w io.Writer, frame serial.Bytes, maxSize int) error {
	if maxSize > 0 && frame.Len() > maxSize {
		return &FrameTooLargeError{Size: frame.Len(), Max: maxSize}
	}
	var hdr [FrameHeaderSize]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(frame.Len()))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := frame.WriteTo(w)
	return err
}

// ReadFrame 读取一帧
// 连接在帧边界正常关闭时返回 io.EOF，帧内截断返回 io.ErrUnexpectedEOF
func ReadFrame(r io.Reader, maxSize int) (serial.Bytes, error) {
	var hdr [FrameHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return serial.Bytes{}, err
	}
	n := int(binary.BigEndian.Uint32(hdr[:]))
	if maxSize > 0 && n > maxSize {
		return serial.Bytes{}, &FrameTooLargeError{Size: n, Max: maxSize}
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return serial.Bytes{}, err
	}
	return serial.Wrap(buf), nil
}

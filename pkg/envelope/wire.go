package envelope

import (
	"github.com/lwmacct/251216-go-pkg-wire/pkg/address"
	"github.com/lwmacct/251216-go-pkg-wire/pkg/serial"
)

// SerialiseMsg 将 src、dst 和消息编码为一帧不可变字节
//
// 大小估算为各部分大小声明之和（缺失视为 0），只用于预分配。
// src、dst 与消息声明的大小全为 0 时在写入任何字节之前返回 InvalidData；
// 定长 8 字节的 ser_id 不计入这项检查。
func SerialiseMsg(src, dst address.ActorPath, msg serial.Serialisable) (serial.Bytes, error) {
	serID := serial.U64(msg.SerID())

	content := serial.SizeHintOrZero(src) +
		serial.SizeHintOrZero(dst) +
		serial.SizeHintOrZero(msg)
	if content == 0 {
		return serial.Bytes{}, serial.InvalidData("encoded size is zero")
	}

	buf := serial.NewBuffer(content + serial.SizeHintOrZero(serID))
	if err := src.Serialise(buf); err != nil {
		return serial.Bytes{}, err
	}
	if err := dst.Serialise(buf); err != nil {
		return serial.Bytes{}, err
	}
	if err := serID.Serialise(buf); err != nil {
		return serial.Bytes{}, err
	}
	if err := msg.Serialise(buf); err != nil {
		return serial.Bytes{}, err
	}
	return buf.Freeze(), nil
}

// DeserialiseMsg 从一帧字节中还原信封
// 依次解码 src、dst、8 字节 ser_id，剩余全部字节作为不透明负载（视图，不复制）。
// 头部任何结构错误都会在切出负载之前返回。
func DeserialiseMsg(frame serial.Bytes) (ReceiveEnvelope, error) {
	c := frame.Cursor()
	src, err := address.Decode(c)
	if err != nil {
		return ReceiveEnvelope{}, err
	}
	dst, err := address.Decode(c)
	if err != nil {
		return ReceiveEnvelope{}, err
	}
	serID, err := c.U64()
	if err != nil {
		return ReceiveEnvelope{}, serial.InvalidData("could not read 8 bytes for ser_id")
	}
	return ReceiveEnvelope{
		Src:   src,
		Dst:   dst,
		SerID: serID,
		Data:  c.Rest(),
	}, nil
}

// DeserialiseMsgBytes 同 DeserialiseMsg，直接使用调用方切片（不复制）
// 调用方承诺之后不再修改 p
func DeserialiseMsgBytes(p []byte) (ReceiveEnvelope, error) {
	return DeserialiseMsg(serial.Wrap(p))
}

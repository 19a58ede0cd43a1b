// Package envelope 将 (源, 目的, 消息) 三元组转换为可投递的信封
//
// 两种构建方式共享同一个 [ReceiveEnvelope] 形状，下游分发代码无需区分：
//   - [SerialiseToRecvEnvelope] 同进程投递，只编码负载，不涉及网络分帧
//   - [SerialiseMsg] 生成跨网络传输的完整帧，[DeserialiseMsg] 为其逆操作
//
// 帧格式：
//
//	src      ActorPath（变长，见 address.Encode）
//	dst      ActorPath
//	ser_id   u64 大端序
//	payload  剩余全部字节，不透明，没有长度前缀
//
// 负载没有长度前缀，因此传输层必须保证每次调用恰好交付一帧。
package envelope

import (
	"github.com/lwmacct/251216-go-pkg-wire/pkg/address"
	"github.com/lwmacct/251216-go-pkg-wire/pkg/serial"
)

// Envelope 在 Actor 之间移动的信封
// 实现：ReceiveEnvelope、LocalEnvelope
type Envelope interface {
	// Source 发送者路径
	Source() address.ActorPath
	// Destination 接收者路径
	Destination() address.ActorPath

	envelope()
}

// ReceiveEnvelope 已编码的消息信封
// Data 为不可变字节，可无复制地交给多个读取者
type ReceiveEnvelope struct {
	Src   address.ActorPath
	Dst   address.ActorPath
	SerID uint64
	Data  serial.Bytes
}

// Source 实现 Envelope
func (e ReceiveEnvelope) Source() address.ActorPath { return e.Src }

// Destination 实现 Envelope
func (e ReceiveEnvelope) Destination() address.ActorPath { return e.Dst }

func (ReceiveEnvelope) envelope() {}

// Payload 返回负载游标
func (e ReceiveEnvelope) Payload() *serial.Cursor { return e.Data.Cursor() }

// LocalEnvelope 同进程投递时携带原始值的信封
// 仅当消息的 Local() 转换成功时产生，永远不会离开进程
type LocalEnvelope struct {
	Src   address.ActorPath
	Dst   address.ActorPath
	Value any
}

// Source 实现 Envelope
func (e LocalEnvelope) Source() address.ActorPath { return e.Src }

// Destination 实现 Envelope
func (e LocalEnvelope) Destination() address.ActorPath { return e.Dst }

func (LocalEnvelope) envelope() {}

// DecodeAs 用给定的 Deserialiser 解码信封负载
// 不检查 ser_id，标签分发由接收端运行时负责
func DecodeAs[T any](env ReceiveEnvelope, d serial.Deserialiser[T]) (T, error) {
	return d.Deserialise(env.Payload())
}

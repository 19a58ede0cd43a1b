package envelope

import (
	"github.com/lwmacct/251216-go-pkg-wire/pkg/address"
	"github.com/lwmacct/251216-go-pkg-wire/pkg/serial"
)

// SerialiseToRecvEnvelope 为同进程投递构建 ReceiveEnvelope
// 按消息的大小声明预分配缓冲，编码后冻结；没有大小声明时返回 Unknown
func SerialiseToRecvEnvelope(src, dst address.ActorPath, msg serial.Serialisable) (ReceiveEnvelope, error) {
	size, ok := msg.SizeHint()
	if !ok {
		return ReceiveEnvelope{}, serial.Unknown("unknown serialisation size")
	}
	buf := serial.NewBuffer(size)
	if err := msg.Serialise(buf); err != nil {
		return ReceiveEnvelope{}, err
	}
	return ReceiveEnvelope{
		Src:   src,
		Dst:   dst,
		SerID: msg.SerID(),
		Data:  buf.Freeze(),
	}, nil
}

// Localise 同进程投递
// 消息支持 Local() 时直接交付原始值，否则退回 SerialiseToRecvEnvelope
func Localise(src, dst address.ActorPath, msg serial.Serialisable) (Envelope, error) {
	if v, ok := serial.AsLocal(msg); ok {
		return LocalEnvelope{Src: src, Dst: dst, Value: v}, nil
	}
	env, err := SerialiseToRecvEnvelope(src, dst, msg)
	if err != nil {
		return nil, err
	}
	return env, nil
}
